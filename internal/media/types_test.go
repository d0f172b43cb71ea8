package media

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccepted(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		want        bool
	}{
		{name: "mp4 type", fileName: "clip.bin", contentType: "video/mp4", want: true},
		{name: "quicktime type with params", fileName: "clip", contentType: "Video/QuickTime; codecs=avc1", want: true},
		{name: "extension fallback", fileName: "CLIP.MOV", contentType: "application/octet-stream", want: true},
		{name: "mp4 extension no type", fileName: "clip.mp4", contentType: "", want: true},
		{name: "webm rejected", fileName: "clip.webm", contentType: "video/webm", want: false},
		{name: "audio rejected", fileName: "talk.mp3", contentType: "audio/mpeg", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepted(tt.fileName, tt.contentType))
		})
	}
}

func TestCheck_SizeLimit(t *testing.T) {
	require.NoError(t, Check("a.mp4", "", DefaultMaxBytes, DefaultMaxBytes))
	require.Error(t, Check("a.mp4", "", DefaultMaxBytes+1, DefaultMaxBytes))
	require.Error(t, Check("a.avi", "", 1, DefaultMaxBytes))
}

func TestFile_OpenAndURI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("moov"), 0o600))

	f := &File{Name: "clip.mp4", Path: path}
	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "moov", string(data))

	assert.True(t, strings.HasPrefix(f.URI(), "file:///"))
	assert.True(t, strings.HasSuffix(f.URI(), "/clip.mp4"))

	_, err = (&File{}).Open()
	require.Error(t, err)
}
