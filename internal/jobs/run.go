package jobs

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/chameleon-localizer/internal/apperr"
	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/merge"
	"github.com/MimeLyc/chameleon-localizer/internal/stage"
	"github.com/MimeLyc/chameleon-localizer/internal/track"
)

// run drives one job generation to completion, failure or cancellation.
func (c *Controller) run(ctx context.Context, gen uint64, pipe *pipeline, job Job, done chan struct{}) {
	artifact, err := c.execute(ctx, gen, pipe, job)
	if ctx.Err() != nil {
		close(done)
		return
	}

	var (
		jobID    string
		finished bool
	)
	c.mu.Lock()
	if gen == c.gen && c.job != nil {
		jobID = c.job.ID
		c.running = false
		if err != nil {
			c.job.Error = apperr.Message(err)
		} else {
			c.job.Artifact = &artifact
			finished = true
		}
	}
	onComplete := c.onComplete
	c.mu.Unlock()
	close(done)

	if jobID == "" {
		return
	}
	if err != nil {
		c.logger.Error("Job %s failed: %v", jobID, err)
	} else {
		c.logger.Info("Job %s completed: %s", jobID, artifact.URI)
	}
	c.notify()
	if finished && onComplete != nil {
		onComplete(artifact)
	}
}

func (c *Controller) execute(ctx context.Context, gen uint64, pipe *pipeline, job Job) (merge.Artifact, error) {
	file := job.File
	c.mu.Lock()
	submitter := c.submitter
	c.mu.Unlock()

	remoteID := ""
	if submitter != nil {
		id, err := submitter.Submit(ctx, &file, job.TargetLanguage)
		if ctx.Err() != nil {
			return merge.Artifact{}, ctx.Err()
		}
		if err != nil {
			serr := apperr.Submission(err)
			c.logger.Warn("Job submission failed, continuing with local simulation: %v", serr)
			c.update(gen, func(j *Job) { j.Warning = apperr.Message(serr) })
		} else {
			remoteID = id
			c.update(gen, func(j *Job) { j.RemoteID = id })
		}
	}

	if pipe.variant == config.VariantLinear {
		if err := pipe.tracker.Advance(ctx, c.stageRunner()); err != nil {
			return merge.Artifact{}, err
		}
		return c.resolve(&file, remoteID)
	}

	if err := c.runTracks(ctx, pipe); err != nil {
		return merge.Artifact{}, err
	}
	if !pipe.coord.TryBegin() {
		return merge.Artifact{}, fmt.Errorf("merge barrier not satisfied, pending tracks: %v", pipe.coord.Pending())
	}
	artifact, err := pipe.coord.Run(ctx)
	if err != nil {
		return merge.Artifact{}, err
	}
	if artifact.URI == "" {
		return c.resolve(&file, remoteID)
	}
	return artifact, nil
}

// runTracks runs audio and video side by side; a failing track cancels
// the other and no merge happens.
func (c *Controller) runTracks(ctx context.Context, pipe *pipeline) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, pr := range pipe.tracks() {
		duration := c.durations.Duration(pr.Definition())
		c.logger.Debug("Track %s will take %s", pr.ID(), duration)
		g.Go(func() error {
			return pr.Run(gctx, duration)
		})
	}
	return g.Wait()
}

func (c *Controller) stageRunner() stage.Runner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner != nil {
		return c.runner
	}
	return stage.IntervalRunner{Interval: c.stageInterval}
}

// FailTrack halts a running track of the dual variant with a stage error.
// Backend integrations call it when a remote step fails.
func (c *Controller) FailTrack(id track.ID, cause error) error {
	c.mu.Lock()
	if !c.running || c.pipe.variant != config.VariantDual {
		c.mu.Unlock()
		return fmt.Errorf("no running dual-track job")
	}
	pipe := c.pipe
	c.mu.Unlock()

	for _, pr := range pipe.tracks() {
		if pr.ID() != id {
			continue
		}
		if err := pr.Fail(cause); err == nil {
			return fmt.Errorf("track %q already complete", id)
		}
		return nil
	}
	return fmt.Errorf("unknown track %q", id)
}
