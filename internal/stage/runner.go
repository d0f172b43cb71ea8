package stage

import (
	"context"
	"time"
)

// Runner performs (or waits for) the external work behind one stage.
// A non-nil error marks the stage as failed.
type Runner interface {
	RunStage(ctx context.Context, def Definition) error
}

type RunnerFunc func(ctx context.Context, def Definition) error

func (f RunnerFunc) RunStage(ctx context.Context, def Definition) error {
	return f(ctx, def)
}

// IntervalRunner dwells a fixed time on every stage.
type IntervalRunner struct {
	Interval time.Duration
}

func (r IntervalRunner) RunStage(ctx context.Context, _ Definition) error {
	return Sleep(ctx, r.Interval)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
