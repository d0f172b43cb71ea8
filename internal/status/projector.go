// Package status derives the single human-readable status line of a job.
package status

import (
	"github.com/MimeLyc/chameleon-localizer/internal/merge"
	"github.com/MimeLyc/chameleon-localizer/internal/stage"
	"github.com/MimeLyc/chameleon-localizer/internal/track"
)

const (
	Ready     = "Ready to start"
	Completed = "All steps completed"
	Queued    = "Queued"

	mergeName = "Merge"
)

// Item is anything with a name and a pipeline state.
type Item struct {
	Name  string
	State stage.State
}

type Input struct {
	Err   string
	Items []Item
}

// Project maps state to a status line. It has no side effects.
func Project(in Input) string {
	if in.Err != "" {
		return in.Err
	}
	for _, it := range in.Items {
		if it.State == stage.StateActive {
			return InProgress(it.Name)
		}
	}
	if allIn(in.Items, stage.StatePending) {
		return Ready
	}
	if allIn(in.Items, stage.StateDone) {
		return Completed
	}
	return Queued
}

func InProgress(name string) string {
	return name + " in progress…"
}

func FromStages(stages []stage.Stage) []Item {
	items := make([]Item, 0, len(stages))
	for _, st := range stages {
		items = append(items, Item{Name: st.Title, State: st.State})
	}
	return items
}

// FromTracks lists the tracks followed by the merge step.
func FromTracks(tracks []track.Track, m merge.State) []Item {
	items := make([]Item, 0, len(tracks)+1)
	for _, tr := range tracks {
		items = append(items, Item{Name: tr.Title, State: tr.State})
	}
	return append(items, Item{Name: mergeName, State: mergeItemState(m)})
}

func mergeItemState(m merge.State) stage.State {
	switch m {
	case merge.StateMerging:
		return stage.StateActive
	case merge.StateDone:
		return stage.StateDone
	default:
		return stage.StatePending
	}
}

func allIn(items []Item, state stage.State) bool {
	for _, it := range items {
		if it.State != state {
			return false
		}
	}
	return true
}
