package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKind_ThroughWrapping(t *testing.T) {
	base := Stage("lipsync", errors.New("model crashed"))
	wrapped := fmt.Errorf("run job: %w", base)

	assert.True(t, IsKind(wrapped, KindStage))
	assert.False(t, IsKind(wrapped, KindSubmission))
	assert.False(t, IsKind(errors.New("plain"), KindStage))
}

func TestError_Format(t *testing.T) {
	err := Submission(errors.New("backend responded with 500")).WithContext("url", "http://b/jobs")

	assert.Equal(t,
		"[SubmissionError] job submission failed | context: url=http://b/jobs | cause: backend responded with 500",
		err.Error())
	assert.Equal(t, "job submission failed: backend responded with 500", Message(err))
	assert.Equal(t, "no file selected", Message(Validation("no file selected")))
	assert.Equal(t, "", Message(nil))
}
