package jobs

import (
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/locale"
	"github.com/MimeLyc/chameleon-localizer/internal/merge"
	"github.com/MimeLyc/chameleon-localizer/internal/stage"
	"github.com/MimeLyc/chameleon-localizer/internal/submit"
	"github.com/MimeLyc/chameleon-localizer/internal/track"
	"github.com/MimeLyc/chameleon-localizer/pkg/log"
)

type Option func(*Controller)

func WithVariant(v config.Variant) Option {
	return func(c *Controller) { c.variant = v }
}

func WithTargetLanguage(tag language.Tag) Option {
	return func(c *Controller) { c.targetLanguage = tag }
}

// WithSubmitter enables backend submission; nil means simulation only.
func WithSubmitter(s submit.Submitter) Option {
	return func(c *Controller) { c.submitter = s }
}

// WithStageRunner replaces the fixed-interval dwell of the linear variant.
func WithStageRunner(r stage.Runner) Option {
	return func(c *Controller) { c.runner = r }
}

func WithDurations(d track.DurationProvider) Option {
	return func(c *Controller) { c.durations = d }
}

func WithTracks(audio, video track.Definition) Option {
	return func(c *Controller) {
		c.audio = audio
		c.video = video
	}
}

func WithTimings(stageInterval, tick, mergeSettle, mergeDuration time.Duration) Option {
	return func(c *Controller) {
		c.stageInterval = stageInterval
		c.tick = tick
		c.mergeSettle = mergeSettle
		c.mergeDuration = mergeDuration
	}
}

func WithArtifactResolver(fn ArtifactResolver) Option {
	return func(c *Controller) { c.resolve = fn }
}

// OnComplete registers the completion hook; it fires once per job.
func OnComplete(fn func(merge.Artifact)) Option {
	return func(c *Controller) { c.onComplete = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRuntimeSettings applies the UI-editable settings. An empty backend URL
// switches submission off; unparsable values keep the current ones.
func WithRuntimeSettings(settings config.RuntimeSettings, timeout time.Duration) Option {
	return func(c *Controller) {
		if v, err := config.ParseVariant(settings.Variant); err == nil {
			c.variant = v
		}
		if tag, err := locale.Parse(settings.TargetLanguage); err == nil {
			c.targetLanguage = tag
		}
		c.submitter = nil
		if base := strings.TrimSpace(settings.APIBaseURL); base != "" {
			c.submitter = submit.NewClient(base, timeout)
		}
	}
}
