package jobs

import (
	"errors"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/media"
	"github.com/MimeLyc/chameleon-localizer/internal/merge"
	"github.com/MimeLyc/chameleon-localizer/internal/stage"
	"github.com/MimeLyc/chameleon-localizer/internal/track"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// Job is the single in-memory localization run owned by a Controller.
type Job struct {
	ID             string
	RemoteID       string
	File           media.File
	TargetLanguage string
	Variant        config.Variant
	Artifact       *merge.Artifact
	Error          string
	Warning        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot is a copy of the controller state handed to observers.
type Snapshot struct {
	JobID          string          `json:"job_id,omitempty"`
	RemoteID       string          `json:"remote_id,omitempty"`
	File           *media.File     `json:"file,omitempty"`
	TargetLanguage string          `json:"target_language"`
	Variant        config.Variant  `json:"variant"`
	Running        bool            `json:"running"`
	Stages         []stage.Stage   `json:"stages,omitempty"`
	Tracks         []track.Track   `json:"tracks,omitempty"`
	MergeState     merge.State     `json:"merge_state,omitempty"`
	Artifact       *merge.Artifact `json:"artifact,omitempty"`
	Error          string          `json:"error,omitempty"`
	Warning        string          `json:"warning,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
	UpdatedAt      time.Time       `json:"updated_at,omitzero"`
}

// Done reports whether the job produced its artifact.
func (s Snapshot) Done() bool {
	return s.Artifact != nil
}
