// Package track drives the audio and video sub-pipelines of the dual-track
// variant: a 0-100 progress value advanced on a ticker, with labelled
// thresholds completed as progress crosses them.
package track

import (
	"fmt"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/stage"
)

type ID string

const (
	Audio ID = "audio"
	Video ID = "video"
)

type Threshold struct {
	Pct       float64 `json:"threshold_pct"`
	Label     string  `json:"label"`
	Completed bool    `json:"completed"`
}

// Definition is the static shape of one track.
type Definition struct {
	ID         ID
	Title      string
	Thresholds []Threshold
	Duration   Range
}

// Track is a point-in-time copy of a progressor.
type Track struct {
	ID       ID            `json:"id"`
	Title    string        `json:"title"`
	State    stage.State   `json:"state"`
	Progress float64       `json:"progress"`
	Percent  int           `json:"percent"`
	Duration time.Duration `json:"total_duration"`
	Stages   []Threshold   `json:"stages"`
}

// Event is raised once per threshold, in threshold order.
type Event struct {
	Track     ID
	Index     int
	Threshold Threshold
	Progress  float64
}

func DefaultAudio() Definition {
	return Definition{
		ID:    Audio,
		Title: "Audio",
		Thresholds: []Threshold{
			{Pct: 25, Label: "Automatic Speech Recognition (ASR)"},
			{Pct: 50, Label: "Speech to Text"},
			{Pct: 75, Label: "Text Translate"},
			{Pct: 100, Label: "Converting to Audio"},
		},
		Duration: Range{Min: 3 * time.Second, Max: 7 * time.Second},
	}
}

func DefaultVideo() Definition {
	return Definition{
		ID:    Video,
		Title: "Video",
		Thresholds: []Threshold{
			{Pct: 20, Label: "Extracting the frames"},
			{Pct: 40, Label: "Analyzing the foreign texts"},
			{Pct: 60, Label: "Translating the texts"},
			{Pct: 80, Label: "Overlaying the texts"},
			{Pct: 100, Label: "Lip syncing the videos"},
		},
		Duration: Range{Min: 4 * time.Second, Max: 8 * time.Second},
	}
}

// ValidateThresholds requires a non-empty, strictly increasing list
// ending at 100.
func ValidateThresholds(ts []Threshold) error {
	if len(ts) == 0 {
		return fmt.Errorf("track needs at least one threshold")
	}
	prev := 0.0
	for i, th := range ts {
		if th.Pct <= prev || th.Pct > 100 {
			return fmt.Errorf("threshold %d (%v) must be in (%v, 100]", i, th.Pct, prev)
		}
		prev = th.Pct
	}
	if prev != 100 {
		return fmt.Errorf("last threshold must be 100, got %v", prev)
	}
	return nil
}
