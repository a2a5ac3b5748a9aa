package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainLoopRunsInOrder(t *testing.T) {
	loop := NewMainLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Do(func() { got = append(got, i) })
	}
	assert.Equal(t, 5, loop.RunPending())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, loop.RunPending())
}

func TestMainLoopDoAndWait(t *testing.T) {
	loop := NewMainLoop()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		loop.Run(ctx)
	}()

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := loop.DoAndWait(func() {
				mu.Lock()
				total++
				mu.Unlock()
			})
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, total)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.False(t, loop.DoAndWait(func() {}))
	ran := false
	loop.Do(func() { ran = true })
	assert.Zero(t, loop.RunPending())
	assert.False(t, ran)
}

func TestMainLoopRunsQueuedWorkOnStop(t *testing.T) {
	loop := NewMainLoop()
	ran := false
	loop.Do(func() { ran = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loop.Run(ctx)
	require.True(t, ran)
}
