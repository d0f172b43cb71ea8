package jobs

import (
	"golang.org/x/text/language"

	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/merge"
	"github.com/MimeLyc/chameleon-localizer/internal/stage"
	"github.com/MimeLyc/chameleon-localizer/internal/status"
	"github.com/MimeLyc/chameleon-localizer/internal/track"
)

type stageRunner = stage.Runner

// pipeline is the state machine of one job generation. Only the variant's
// half is ever driven.
type pipeline struct {
	variant config.Variant
	target  language.Tag

	tracker *stage.Tracker
	audio   *track.Progressor
	video   *track.Progressor
	coord   *merge.Coordinator
}

// newPipeline wires every callback to generation gen, so a discarded
// pipeline can no longer reach the controller's current job.
func (c *Controller) newPipeline(target language.Tag, gen uint64) (*pipeline, error) {
	p := &pipeline{variant: c.variant, target: target}

	p.tracker = stage.NewTracker(stage.DefaultSet(c.sourceLanguage, target))
	p.tracker.Subscribe(func(tr stage.Transition) {
		c.logger.Debug("Stage %s: %s -> %s", tr.Key, tr.From, tr.To)
		c.changed(gen)
	})

	p.coord = merge.NewCoordinator(
		[]string{string(c.audio.ID), string(c.video.ID)},
		c.mergeSettle,
		c.mergeDuration,
		merge.OnState(func(s merge.State) {
			c.logger.Info("Merge %s", s)
			c.changed(gen)
		}),
	)

	opts := []track.Option{
		track.OnProgress(func(track.ID, float64) { c.changed(gen) }),
		track.OnStage(func(ev track.Event) {
			c.logger.Debug("Track %s completed %q at %.1f%%", ev.Track, ev.Threshold.Label, ev.Progress)
		}),
		track.OnComplete(func(id track.ID) {
			if p.coord.MarkComplete(string(id)) {
				c.logger.Info("All tracks complete, last was %s", id)
			}
			c.changed(gen)
		}),
	}

	var err error
	if p.audio, err = track.NewProgressor(c.audio, c.tick, opts...); err != nil {
		return nil, err
	}
	if p.video, err = track.NewProgressor(c.video, c.tick, opts...); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *pipeline) tracks() []*track.Progressor {
	return []*track.Progressor{p.audio, p.video}
}

func (p *pipeline) reset() {
	p.tracker.Reset()
	for _, pr := range p.tracks() {
		pr.Reset()
	}
}

func (p *pipeline) snapshot() Snapshot {
	if p.variant == config.VariantLinear {
		return Snapshot{Stages: p.tracker.Stages()}
	}
	return Snapshot{
		Tracks:     []track.Track{p.audio.Snapshot(), p.video.Snapshot()},
		MergeState: p.coord.State(),
	}
}

func project(s Snapshot) string {
	in := status.Input{Err: s.Error}
	if s.Variant == config.VariantLinear {
		in.Items = status.FromStages(s.Stages)
	} else {
		in.Items = status.FromTracks(s.Tracks, s.MergeState)
	}
	return status.Project(in)
}
