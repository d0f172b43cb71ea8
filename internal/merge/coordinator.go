// Package merge implements the barrier that joins the audio and video
// tracks into one rendered artifact.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/stage"
)

type State string

const (
	StateWaiting State = "waiting"
	StateMerging State = "merging"
	StateDone    State = "done"
)

// Artifact is the playable reference handed back to the host.
type Artifact struct {
	URI string `json:"uri"`
}

// ErrNotStarted is returned by Run without a successful TryBegin.
var ErrNotStarted = errors.New("merge was not started")

// Coordinator waits for every registered track, then runs a two-phase
// fixed-delay merge exactly once.
type Coordinator struct {
	settle   time.Duration
	duration time.Duration
	produce  func() (Artifact, error)
	onState  func(State)

	mu       sync.Mutex
	tracks   map[string]bool
	state    State
	begun    bool
	artifact Artifact
}

type Option func(*Coordinator)

// OnState observes waiting→merging→done.
func OnState(fn func(State)) Option {
	return func(c *Coordinator) { c.onState = fn }
}

// WithArtifact sets how the final reference is produced.
func WithArtifact(fn func() (Artifact, error)) Option {
	return func(c *Coordinator) { c.produce = fn }
}

func NewCoordinator(trackIDs []string, settle, duration time.Duration, opts ...Option) *Coordinator {
	c := &Coordinator{
		settle:   settle,
		duration: duration,
		tracks:   make(map[string]bool, len(trackIDs)),
		state:    StateWaiting,
	}
	for _, id := range trackIDs {
		c.tracks[id] = false
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MarkComplete records a track's completion signal and reports whether
// every track is now complete. Unknown ids are ignored.
func (c *Coordinator) MarkComplete(trackID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tracks[trackID]; ok {
		c.tracks[trackID] = true
	}
	return c.readyLocked()
}

func (c *Coordinator) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyLocked()
}

// Pending lists tracks that have not reported completion.
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for id, done := range c.tracks {
		if !done {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// TryBegin claims the merge. It returns true for exactly one caller, and
// only once every track is complete.
func (c *Coordinator) TryBegin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.begun || !c.readyLocked() {
		return false
	}
	c.begun = true
	return true
}

// Run performs the merge claimed by TryBegin: settle, merging, merge
// delay, done.
func (c *Coordinator) Run(ctx context.Context) (Artifact, error) {
	c.mu.Lock()
	begun := c.begun
	c.mu.Unlock()
	if !begun {
		return Artifact{}, ErrNotStarted
	}

	if err := stage.Sleep(ctx, c.settle); err != nil {
		return Artifact{}, err
	}
	c.setState(StateMerging)

	if err := stage.Sleep(ctx, c.duration); err != nil {
		return Artifact{}, err
	}

	var artifact Artifact
	if c.produce != nil {
		var err error
		if artifact, err = c.produce(); err != nil {
			return Artifact{}, fmt.Errorf("produce artifact: %w", err)
		}
	}

	c.mu.Lock()
	c.artifact = artifact
	c.mu.Unlock()
	c.setState(StateDone)
	return artifact, nil
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Artifact() (Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact, c.state == StateDone
}

func (c *Coordinator) readyLocked() bool {
	if len(c.tracks) == 0 {
		return false
	}
	for _, done := range c.tracks {
		if !done {
			return false
		}
	}
	return true
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
