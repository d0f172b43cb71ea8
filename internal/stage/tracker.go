package stage

import (
	"context"
	"fmt"
	"sync"

	"github.com/MimeLyc/chameleon-localizer/internal/apperr"
)

// Tracker holds the mutable state of a Set. Stages are stored in a map
// keyed by stage key; order holds the canonical sequence.
type Tracker struct {
	mu     sync.Mutex
	order  []Key
	stages map[Key]*Stage

	subMu   sync.Mutex
	subs    map[int]func(Transition)
	nextSub int
}

func NewTracker(set Set) *Tracker {
	t := &Tracker{
		order:  make([]Key, 0, len(set)),
		stages: make(map[Key]*Stage, len(set)),
		subs:   make(map[int]func(Transition)),
	}
	for _, def := range set {
		if _, dup := t.stages[def.Key]; dup {
			continue
		}
		t.order = append(t.order, def.Key)
		t.stages[def.Key] = &Stage{Definition: def, State: StatePending}
	}
	return t
}

// Subscribe registers fn for every transition. fn runs on the goroutine
// that made the change, after the tracker lock is released.
func (t *Tracker) Subscribe(fn func(Transition)) (unsubscribe func()) {
	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

// Reset sets every stage back to pending.
func (t *Tracker) Reset() {
	t.mu.Lock()
	changes := make([]Transition, 0, len(t.order))
	for _, key := range t.order {
		st := t.stages[key]
		if st.State != StatePending {
			changes = append(changes, Transition{Key: key, From: st.State, To: StatePending})
			st.State = StatePending
		}
	}
	t.mu.Unlock()

	t.publish(changes...)
}

// Set applies a keyed state update. Activating a stage while another
// one is active is rejected.
func (t *Tracker) Set(key Key, state State) error {
	t.mu.Lock()
	st, ok := t.stages[key]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("unknown stage %q", key)
	}
	if state == StateActive {
		if active, found := t.activeLocked(); found && active.Key != key {
			t.mu.Unlock()
			return fmt.Errorf("stage %q is already active", active.Key)
		}
	}
	if st.State == state {
		t.mu.Unlock()
		return nil
	}
	change := Transition{Key: key, From: st.State, To: state}
	st.State = state
	t.mu.Unlock()

	t.publish(change)
	return nil
}

// Advance walks the remaining stages in order, running each through
// runner. It returns nil once every stage is done and is a no-op when
// nothing is left. A failing step marks its stage as error and returns a
// stage error; a cancelled ctx returns ctx.Err() and leaves the stage
// active for the caller to reset.
func (t *Tracker) Advance(ctx context.Context, runner Runner) error {
	t.mu.Lock()
	if failed, found := t.findLocked(StateError); found {
		t.mu.Unlock()
		return apperr.Stage(failed.Title, fmt.Errorf("stage is in error state, reset first"))
	}
	cur, found := t.activeLocked()
	if !found {
		cur, found = t.findLocked(StatePending)
	}
	t.mu.Unlock()

	if !found {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Set(cur.Key, StateActive); err != nil {
		return err
	}

	for {
		if err := runner.RunStage(ctx, cur.Definition); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			_ = t.Set(cur.Key, StateError)
			return apperr.Stage(cur.Title, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		next, more, err := t.completeAndAdvance(cur.Key)
		if err != nil || !more {
			return err
		}
		cur = next
	}
}

// completeAndAdvance marks key done and activates the next pending stage
// in one step, so observers never see a gap with no active stage.
func (t *Tracker) completeAndAdvance(key Key) (Stage, bool, error) {
	t.mu.Lock()
	st, ok := t.stages[key]
	if !ok {
		t.mu.Unlock()
		return Stage{}, false, fmt.Errorf("unknown stage %q", key)
	}

	changes := make([]Transition, 0, 2)
	if st.State != StateDone {
		changes = append(changes, Transition{Key: key, From: st.State, To: StateDone})
		st.State = StateDone
	}

	next, found := t.activeLocked()
	if !found {
		if next, found = t.findLocked(StatePending); found {
			changes = append(changes, Transition{Key: next.Key, From: StatePending, To: StateActive})
			t.stages[next.Key].State = StateActive
			next.State = StateActive
		}
	}
	t.mu.Unlock()

	t.publish(changes...)
	return next, found, nil
}

// Stages returns a copy of all stages in declared order.
func (t *Tracker) Stages() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()

	ret := make([]Stage, 0, len(t.order))
	for _, key := range t.order {
		ret = append(ret, *t.stages[key])
	}
	return ret
}

func (t *Tracker) Get(key Key) (Stage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.stages[key]
	if !ok {
		return Stage{}, false
	}
	return *st, true
}

func (t *Tracker) activeLocked() (Stage, bool) {
	return t.findLocked(StateActive)
}

func (t *Tracker) findLocked(state State) (Stage, bool) {
	for _, key := range t.order {
		if st := t.stages[key]; st.State == state {
			return *st, true
		}
	}
	return Stage{}, false
}

func (t *Tracker) publish(changes ...Transition) {
	if len(changes) == 0 {
		return
	}
	t.subMu.Lock()
	subs := make([]func(Transition), 0, len(t.subs))
	for id := 0; id < t.nextSub; id++ {
		if fn, ok := t.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	t.subMu.Unlock()

	for _, change := range changes {
		for _, fn := range subs {
			fn(change)
		}
	}
}
