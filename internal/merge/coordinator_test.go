package merge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_WaitsForEveryTrack(t *testing.T) {
	c := NewCoordinator([]string{"audio", "video"}, 0, 0)

	assert.False(t, c.TryBegin())
	assert.False(t, c.MarkComplete("audio"))
	assert.False(t, c.TryBegin())
	assert.Equal(t, []string{"video"}, c.Pending())
	assert.Equal(t, StateWaiting, c.State())

	assert.False(t, c.MarkComplete("subtitles"))
	assert.True(t, c.MarkComplete("video"))
	assert.True(t, c.TryBegin())
}

func TestCoordinator_BeginsAtMostOnce(t *testing.T) {
	c := NewCoordinator([]string{"audio", "video"}, 0, 0)
	c.MarkComplete("audio")
	c.MarkComplete("video")
	c.MarkComplete("video")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		winner int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryBegin() {
				mu.Lock()
				winner++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winner)
}

func TestCoordinator_RunTransitions(t *testing.T) {
	var states []State
	c := NewCoordinator([]string{"audio", "video"}, time.Millisecond, time.Millisecond,
		OnState(func(s State) { states = append(states, s) }),
		WithArtifact(func() (Artifact, error) { return Artifact{URI: "file:///tmp/out.mp4"}, nil }),
	)

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrNotStarted)

	c.MarkComplete("audio")
	c.MarkComplete("video")
	require.True(t, c.TryBegin())

	artifact, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/out.mp4", artifact.URI)
	assert.Equal(t, []State{StateMerging, StateDone}, states)

	got, ok := c.Artifact()
	assert.True(t, ok)
	assert.Equal(t, artifact, got)
}

func TestCoordinator_RunHonoursCancel(t *testing.T) {
	c := NewCoordinator([]string{"audio"}, time.Hour, time.Hour)
	c.MarkComplete("audio")
	require.True(t, c.TryBegin())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateWaiting, c.State())
}
