package track

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/apperr"
	"github.com/MimeLyc/chameleon-localizer/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateThresholds(t *testing.T) {
	require.NoError(t, ValidateThresholds(DefaultAudio().Thresholds))
	require.NoError(t, ValidateThresholds(DefaultVideo().Thresholds))

	require.Error(t, ValidateThresholds(nil))
	require.Error(t, ValidateThresholds([]Threshold{{Pct: 50}, {Pct: 50}, {Pct: 100}}))
	require.Error(t, ValidateThresholds([]Threshold{{Pct: 60}, {Pct: 40}, {Pct: 100}}))
	require.Error(t, ValidateThresholds([]Threshold{{Pct: 25}, {Pct: 90}}))
}

func TestProgressor_TickMarksThresholdsInOrder(t *testing.T) {
	var events []Event
	p, err := NewProgressor(DefaultAudio(), 50*time.Millisecond, OnStage(func(ev Event) {
		events = append(events, ev)
	}))
	require.NoError(t, err)

	// 1000ms at 50ms ticks: 5% per tick, 20 ticks.
	p.Prepare(time.Second)

	last := 0.0
	finishedAt := -1
	for i := 1; i <= 25; i++ {
		_, finished := p.Tick()
		snap := p.Snapshot()
		assert.GreaterOrEqual(t, snap.Progress, last)
		assert.LessOrEqual(t, snap.Progress, 100.0)
		last = snap.Progress
		if finished {
			require.Equal(t, -1, finishedAt, "finished twice")
			finishedAt = i
		}
	}

	assert.Equal(t, 20, finishedAt)
	require.Len(t, events, 4)
	for i, ev := range events {
		assert.Equal(t, i, ev.Index)
		assert.Equal(t, Audio, ev.Track)
	}
	assert.InDelta(t, 25.0, events[0].Progress, 1e-9)

	snap := p.Snapshot()
	assert.Equal(t, stage.StateDone, snap.State)
	assert.Equal(t, 100, snap.Percent)
	for _, th := range snap.Stages {
		assert.True(t, th.Completed)
	}
}

func TestProgressor_SingleTickCrossingSeveralThresholds(t *testing.T) {
	p, err := NewProgressor(DefaultVideo(), 50*time.Millisecond)
	require.NoError(t, err)

	// 45% per tick
	tick := float64(50 * time.Millisecond)
	p.Prepare(time.Duration(tick * 100 / 45))

	crossed, finished := p.Tick()
	require.False(t, finished)
	require.Len(t, crossed, 2)
	assert.Equal(t, "Extracting the frames", crossed[0].Threshold.Label)
	assert.Equal(t, "Analyzing the foreign texts", crossed[1].Threshold.Label)

	crossed, finished = p.Tick()
	require.False(t, finished)
	require.Len(t, crossed, 2)
	assert.Equal(t, 2, crossed[0].Index)
	assert.Equal(t, 3, crossed[1].Index)

	crossed, finished = p.Tick()
	require.True(t, finished)
	require.Len(t, crossed, 1)
	assert.Equal(t, 4, crossed[0].Index)

	crossed, finished = p.Tick()
	assert.Empty(t, crossed)
	assert.False(t, finished)
	assert.Equal(t, 100.0, p.Snapshot().Progress)
}

func TestProgressor_ZeroDurationFinishesInOneTick(t *testing.T) {
	completions := 0
	p, err := NewProgressor(DefaultAudio(), time.Millisecond, OnComplete(func(ID) { completions++ }))
	require.NoError(t, err)

	p.Prepare(0)
	crossed, finished := p.Tick()

	assert.True(t, finished)
	assert.Len(t, crossed, 4)
	p.Tick()
	assert.Equal(t, 1, completions)
}

func TestProgressor_RunCompletesOnce(t *testing.T) {
	var (
		mu          sync.Mutex
		completions int
		labels      []string
	)
	p, err := NewProgressor(DefaultVideo(), time.Millisecond,
		OnStage(func(ev Event) {
			mu.Lock()
			labels = append(labels, ev.Threshold.Label)
			mu.Unlock()
		}),
		OnComplete(func(ID) {
			mu.Lock()
			completions++
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background(), 20*time.Millisecond))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, completions)
	assert.Equal(t, []string{
		"Extracting the frames",
		"Analyzing the foreign texts",
		"Translating the texts",
		"Overlaying the texts",
		"Lip syncing the videos",
	}, labels)
}

func TestProgressor_RunStopsOnCancel(t *testing.T) {
	p, err := NewProgressor(DefaultAudio(), time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool { return p.Snapshot().Progress > 0 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
	assert.Less(t, p.Snapshot().Progress, 100.0)
}

func TestProgressor_FailHaltsWithoutCompleting(t *testing.T) {
	completions := 0
	p, err := NewProgressor(DefaultAudio(), time.Millisecond, OnComplete(func(ID) { completions++ }))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), time.Hour) }()
	require.Eventually(t, func() bool { return p.Snapshot().State == stage.StateActive }, time.Second, time.Millisecond)

	failErr := p.Fail(errors.New("asr backend unavailable"))
	require.Error(t, failErr)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindStage))
	case <-time.After(time.Second):
		t.Fatal("run did not halt")
	}

	snap := p.Snapshot()
	assert.Equal(t, stage.StateError, snap.State)
	assert.Zero(t, completions)
	_, finished := p.Tick()
	assert.False(t, finished)
}

func TestProgressor_FailBeforeRunIsKept(t *testing.T) {
	completions := 0
	p, err := NewProgressor(DefaultAudio(), time.Millisecond, OnComplete(func(ID) { completions++ }))
	require.NoError(t, err)

	require.Error(t, p.Fail(errors.New("asr crashed")))
	assert.Equal(t, stage.StateError, p.Snapshot().State)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), 5*time.Millisecond) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindStage))
		assert.Contains(t, apperr.Message(err), "asr crashed")
	case <-time.After(time.Second):
		t.Fatal("run ignored the earlier failure")
	}

	snap := p.Snapshot()
	assert.Equal(t, stage.StateError, snap.State)
	assert.Zero(t, snap.Progress)
	assert.Zero(t, completions)

	p.Reset()
	assert.NoError(t, p.Err())
	require.NoError(t, p.Run(context.Background(), 5*time.Millisecond))
	assert.Equal(t, 1, completions)
}

func TestDurations(t *testing.T) {
	def := DefaultVideo()
	r := NewRandomDurations(42)
	for range 100 {
		d := r.Duration(def)
		assert.GreaterOrEqual(t, d, def.Duration.Min)
		assert.LessOrEqual(t, d, def.Duration.Max)
	}

	fixed := FixedDurations{Video: 3 * time.Second}
	assert.Equal(t, 3*time.Second, fixed.Duration(def))
	assert.Equal(t, 3*time.Second, fixed.Duration(DefaultAudio()))
}
