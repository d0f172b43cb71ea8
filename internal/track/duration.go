package track

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Range bounds a randomized run duration.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// DurationProvider picks the total duration of one track run.
type DurationProvider interface {
	Duration(def Definition) time.Duration
}

// RandomDurations draws uniformly from each definition's Range.
type RandomDurations struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomDurations(seed uint64) *RandomDurations {
	return &RandomDurations{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *RandomDurations) Duration(def Definition) time.Duration {
	span := def.Duration.Max - def.Duration.Min
	if span <= 0 {
		return def.Duration.Min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return def.Duration.Min + time.Duration(r.rng.Int64N(int64(span)+1))
}

// FixedDurations returns a preset duration per track, falling back to
// the range minimum.
type FixedDurations map[ID]time.Duration

func (f FixedDurations) Duration(def Definition) time.Duration {
	if d, ok := f[def.ID]; ok {
		return d
	}
	return def.Duration.Min
}
