package ui_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/pkg/voicegen/ui"
)

func startLoop(t *testing.T) (*ui.Loop, context.CancelFunc) {
	t.Helper()

	loop := ui.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return loop, cancel
}

func TestLoopRunsPostsInOrder(t *testing.T) {
	t.Parallel()

	loop, _ := startLoop(t)

	var got []int
	for i := range 50 {
		require.True(t, loop.Post(func() { got = append(got, i) }))
	}

	var snapshot []int
	require.NoError(t, loop.Call(context.Background(), func() { snapshot = append(snapshot, got...) }))
	require.Len(t, snapshot, 50)
	for i, v := range snapshot {
		assert.Equal(t, i, v)
	}
}

func TestLoopPostFromLoop(t *testing.T) {
	t.Parallel()

	loop, _ := startLoop(t)

	var wg sync.WaitGroup
	wg.Add(1)
	loop.Post(func() {
		loop.Post(wg.Done)
	})
	wg.Wait()
}

func TestLoopAfter(t *testing.T) {
	t.Parallel()

	loop, _ := startLoop(t)

	fired := make(chan time.Time, 1)
	start := time.Now()
	loop.After(20*time.Millisecond, func() { fired <- time.Now() })

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), 20*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestLoopStopped(t *testing.T) {
	t.Parallel()

	loop, cancel := startLoop(t)
	cancel()
	<-loop.Done()

	assert.False(t, loop.Post(func() {}))
	require.ErrorIs(t, loop.Call(context.Background(), func() {}), ui.ErrStopped)
}

func TestLoopSurvivesPanic(t *testing.T) {
	t.Parallel()

	loop, _ := startLoop(t)
	loop.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, loop.Call(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestStateSurface(t *testing.T) {
	t.Parallel()

	s := ui.NewState()
	changes := 0
	s.OnChange(func() { changes++ })

	assert.Equal(t, []ui.Action{ui.ActionGenerate}, s.EnabledActions())

	s.SetStatus("one")
	s.SetStatus("two")
	s.SetProgress(50)
	s.SetEnabled(ui.ActionPlay, true)

	assert.Equal(t, "two", s.Status)
	assert.Equal(t, []string{"one", "two"}, s.History)
	assert.True(t, s.Enabled(ui.ActionPlay))
	assert.Equal(t, 4, changes)
	assert.Equal(t, "[#####.....]  50%", s.ProgressBar(10))
}
