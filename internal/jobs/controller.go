// Package jobs owns the lifecycle of one localization job: start, cancel,
// completion, and the status line shown to the user.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/MimeLyc/chameleon-localizer/internal/apperr"
	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/locale"
	"github.com/MimeLyc/chameleon-localizer/internal/media"
	"github.com/MimeLyc/chameleon-localizer/internal/merge"
	"github.com/MimeLyc/chameleon-localizer/internal/submit"
	"github.com/MimeLyc/chameleon-localizer/internal/track"
	"github.com/MimeLyc/chameleon-localizer/pkg/log"
)

// ArtifactResolver turns a finished job into a playable reference.
type ArtifactResolver func(file *media.File, remoteID string) (merge.Artifact, error)

// Controller runs at most one job at a time. All timers belong to the
// running job and are torn down by Cancel.
type Controller struct {
	mu sync.Mutex

	variant        config.Variant
	sourceLanguage language.Tag
	targetLanguage language.Tag
	stageInterval  time.Duration
	tick           time.Duration
	mergeSettle    time.Duration
	mergeDuration  time.Duration
	audio          track.Definition
	video          track.Definition
	durations      track.DurationProvider
	runner         stageRunner
	submitter      submit.Submitter
	resolve        ArtifactResolver
	onComplete     func(merge.Artifact)
	logger         *log.Logger

	job      *Job
	pipe     *pipeline
	gen      uint64
	running  bool
	cancelFn context.CancelFunc
	done     chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewController builds an idle controller from the pipeline config.
func NewController(cfg config.PipelineConfig, opts ...Option) (*Controller, error) {
	audio := track.DefaultAudio()
	audio.Duration = track.Range(cfg.AudioDuration)
	video := track.DefaultVideo()
	video.Duration = track.Range(cfg.VideoDuration)

	c := &Controller{
		variant:        cfg.Variant,
		sourceLanguage: cfg.SourceLanguage,
		targetLanguage: cfg.TargetLanguage,
		stageInterval:  cfg.StageInterval,
		tick:           cfg.TickInterval,
		mergeSettle:    cfg.MergeSettle,
		mergeDuration:  cfg.MergeDuration,
		audio:          audio,
		video:          video,
		durations:      track.NewRandomDurations(uint64(time.Now().UnixNano())),
		resolve:        localArtifact,
		logger:         log.GetLogger().With("jobs"),
		subs:           make(map[int]func(Snapshot)),
	}
	if c.variant == "" {
		c.variant = config.VariantDual
	}
	for _, opt := range opts {
		opt(c)
	}

	pipe, err := c.newPipeline(c.targetLanguage, 0)
	if err != nil {
		return nil, err
	}
	c.pipe = pipe
	return c, nil
}

// Configure applies options between jobs.
func (c *Controller) Configure(opts ...Option) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrJobAlreadyRunning
	}
	for _, opt := range opts {
		opt(c)
	}
	c.job = nil
	c.gen++
	pipe, err := c.newPipeline(c.targetLanguage, c.gen)
	if err == nil {
		c.pipe = pipe
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.notify()
	return nil
}

// Start validates the request and launches a job in the background. A
// validation failure leaves the controller untouched.
func (c *Controller) Start(file *media.File, targetLanguage string) (Snapshot, error) {
	if file == nil {
		return Snapshot{}, apperr.Validation("no file selected")
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Snapshot{}, ErrJobAlreadyRunning
	}

	target := c.targetLanguage
	if targetLanguage != "" {
		tag, err := locale.Parse(targetLanguage)
		if err != nil {
			c.mu.Unlock()
			return Snapshot{}, apperr.Wrap(err, apperr.KindValidation, "unsupported target language").
				WithContext("target_language", targetLanguage)
		}
		target = tag
	}

	pipe, err := c.newPipeline(target, c.gen+1)
	if err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}

	c.gen++
	now := time.Now()
	job := &Job{
		ID:             uuid.NewString(),
		File:           *file,
		TargetLanguage: target.String(),
		Variant:        c.variant,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.job = job
	c.pipe = pipe
	c.running = true
	c.cancelFn = cancel
	c.done = done
	gen := c.gen
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("Job %s started: file=%s target=%s variant=%s", job.ID, file.Name, job.TargetLanguage, job.Variant)
	c.notify()
	go c.run(ctx, gen, pipe, *job, done)
	return snap, nil
}

// Cancel stops every timer of the current job before returning, discards
// the job and resets the pipeline. It is safe to call at any time.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel, done := c.cancelFn, c.done
	hadJob := c.job != nil
	jobID := ""
	if hadJob {
		jobID = c.job.ID
	}

	c.gen++
	c.job = nil
	c.running = false
	c.cancelFn = nil
	c.done = nil
	pipe, err := c.newPipeline(c.targetLanguage, c.gen)
	if err == nil {
		c.pipe = pipe
	} else {
		c.pipe.reset()
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if hadJob {
		c.logger.Info("Job %s cancelled", jobID)
		c.notify()
	}
}

// Wait blocks until the running job's goroutine has exited or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a job currently owns live timers.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status is the current status line.
func (c *Controller) Status() string {
	return c.Snapshot().Status
}

// Subscribe registers fn for every state change. fn runs synchronously on
// the goroutine that made the change and must not call Cancel.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := c.pipe.snapshot()
	snap.Variant = c.pipe.variant
	snap.Running = c.running
	snap.TargetLanguage = c.pipe.target.String()
	if j := c.job; j != nil {
		file := j.File
		snap.JobID = j.ID
		snap.RemoteID = j.RemoteID
		snap.File = &file
		snap.TargetLanguage = j.TargetLanguage
		snap.Error = j.Error
		snap.Warning = j.Warning
		snap.CreatedAt = j.CreatedAt
		snap.UpdatedAt = j.UpdatedAt
		if j.Artifact != nil {
			artifact := *j.Artifact
			snap.Artifact = &artifact
		}
	}
	snap.Status = project(snap)
	return snap
}

func (c *Controller) notify() {
	c.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for id := 0; id < c.nextSub; id++ {
		if fn, ok := c.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	snap := c.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}

// changed is the pipeline callback; it drops events from discarded jobs.
func (c *Controller) changed(gen uint64) {
	c.mu.Lock()
	current := gen == c.gen
	if current && c.job != nil {
		c.job.UpdatedAt = time.Now()
	}
	c.mu.Unlock()

	if current {
		c.notify()
	}
}

// update mutates the job of generation gen, if it is still current.
func (c *Controller) update(gen uint64, fn func(*Job)) bool {
	c.mu.Lock()
	if gen != c.gen || c.job == nil {
		c.mu.Unlock()
		return false
	}
	fn(c.job)
	c.job.UpdatedAt = time.Now()
	c.mu.Unlock()

	c.notify()
	return true
}

func localArtifact(file *media.File, _ string) (merge.Artifact, error) {
	return merge.Artifact{URI: file.URI()}, nil
}
