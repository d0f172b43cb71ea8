package track

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/apperr"
	"github.com/MimeLyc/chameleon-localizer/internal/stage"
)

var errHalted = errors.New("track halted")

type Option func(*Progressor)

// OnStage is called for every completed threshold.
func OnStage(fn func(Event)) Option {
	return func(p *Progressor) { p.onStage = fn }
}

// OnComplete is called once when progress reaches 100.
func OnComplete(fn func(ID)) Option {
	return func(p *Progressor) { p.onComplete = fn }
}

// OnProgress is called after every tick that moved the track.
func OnProgress(fn func(ID, float64)) Option {
	return func(p *Progressor) { p.onProgress = fn }
}

// Progressor advances one track. Tick is the whole state machine; Run only
// feeds it from a ticker.
type Progressor struct {
	def  Definition
	tick time.Duration

	onStage    func(Event)
	onComplete func(ID)
	onProgress func(ID, float64)

	mu        sync.Mutex
	state     stage.State
	progress  float64
	step      float64
	duration  time.Duration
	stages    []Threshold
	next      int
	completed bool
	err       error
	halt      chan struct{}
}

func NewProgressor(def Definition, tick time.Duration, opts ...Option) (*Progressor, error) {
	if err := ValidateThresholds(def.Thresholds); err != nil {
		return nil, err
	}
	if tick <= 0 {
		return nil, errors.New("tick interval must be positive")
	}
	p := &Progressor{def: def, tick: tick}
	for _, opt := range opts {
		opt(p)
	}
	p.Reset()
	return p, nil
}

func (p *Progressor) ID() ID { return p.def.ID }

func (p *Progressor) Definition() Definition { return p.def }

// Reset returns the track to 0% pending.
func (p *Progressor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Progressor) resetLocked() {
	p.state = stage.StatePending
	p.progress = 0
	p.step = 0
	p.duration = 0
	p.next = 0
	p.completed = false
	p.err = nil
	p.halt = make(chan struct{})
	p.stages = make([]Threshold, len(p.def.Thresholds))
	for i, th := range p.def.Thresholds {
		p.stages[i] = Threshold{Pct: th.Pct, Label: th.Label}
	}
}

// Prepare resets the track and arms it for a run of the given duration.
// A track that already failed stays failed until Reset.
func (p *Progressor) Prepare(duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return
	}
	p.resetLocked()
	p.duration = duration
	if duration <= 0 {
		p.step = 100
	} else {
		p.step = 100 * float64(p.tick) / float64(duration)
	}
	p.state = stage.StateActive
}

// Tick advances progress by one step and completes every threshold the
// step crossed, in order. It reports whether this tick finished the track.
func (p *Progressor) Tick() (crossed []Event, finished bool) {
	p.mu.Lock()
	if p.state != stage.StateActive {
		p.mu.Unlock()
		return nil, false
	}

	p.progress = math.Min(p.progress+p.step, 100)
	for p.next < len(p.stages) && p.progress >= p.stages[p.next].Pct {
		p.stages[p.next].Completed = true
		crossed = append(crossed, Event{
			Track:     p.def.ID,
			Index:     p.next,
			Threshold: p.stages[p.next],
			Progress:  p.progress,
		})
		p.next++
	}
	if p.progress >= 100 && !p.completed {
		p.completed = true
		p.state = stage.StateDone
		finished = true
	}
	progress := p.progress
	onStage, onComplete, onProgress := p.onStage, p.onComplete, p.onProgress
	p.mu.Unlock()

	if onProgress != nil {
		onProgress(p.def.ID, progress)
	}
	if onStage != nil {
		for _, ev := range crossed {
			onStage(ev)
		}
	}
	if finished && onComplete != nil {
		onComplete(p.def.ID)
	}
	return crossed, finished
}

// Run arms the track and ticks it until it completes, fails, or ctx is
// done. The ticker is stopped before Run returns.
func (p *Progressor) Run(ctx context.Context, duration time.Duration) error {
	p.Prepare(duration)

	p.mu.Lock()
	halt, err := p.halt, p.err
	p.mu.Unlock()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-halt:
			return p.Err()
		case <-ticker.C:
			if _, finished := p.Tick(); finished {
				return nil
			}
		}
	}
}

// Fail halts an unfinished track with a stage error. It is how a backend
// failure surfaces; the simulation never calls it. A track that has not
// started yet fails as soon as Run is called.
func (p *Progressor) Fail(cause error) error {
	if cause == nil {
		cause = errHalted
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.completed {
		return nil
	}
	if p.err == nil {
		p.err = apperr.Stage(p.def.Title, cause).WithContext("progress", math.Round(p.progress))
		p.state = stage.StateError
		close(p.halt)
	}
	return p.err
}

func (p *Progressor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Progressor) Snapshot() Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	stages := make([]Threshold, len(p.stages))
	copy(stages, p.stages)
	return Track{
		ID:       p.def.ID,
		Title:    p.def.Title,
		State:    p.state,
		Progress: p.progress,
		Percent:  int(math.Round(p.progress)),
		Duration: p.duration,
		Stages:   stages,
	}
}
