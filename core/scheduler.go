package core

import (
	"context"
	"log"
	"sync"

	"fyne.io/fyne/v2"
)

// Scheduler runs functions on the front end's own execution context.
type Scheduler interface {
	// Do queues fn and returns immediately.
	Do(fn func())
	// DoAndWait runs fn and waits for it. It reports false if fn could not run.
	// It must not be called from the scheduler's own context.
	DoAndWait(fn func()) bool
}

// FyneScheduler hands work to the Fyne main thread.
type FyneScheduler struct{}

// Do implements Scheduler.
func (FyneScheduler) Do(fn func()) {
	fyne.Do(fn)
}

// DoAndWait implements Scheduler.
func (FyneScheduler) DoAndWait(fn func()) bool {
	fyne.DoAndWait(fn)
	return true
}

// MainLoop is the execution context of the headless front end. Functions
// queued with Do run one at a time, in order, on the goroutine calling Run.
type MainLoop struct {
	mu      sync.Mutex
	pending []func()
	stopped bool
	ready   chan struct{}
}

// NewMainLoop returns a loop that accepts work before Run is called.
func NewMainLoop() *MainLoop {
	return &MainLoop{ready: make(chan struct{}, 1)}
}

// Do implements Scheduler. Work queued after Run has returned is dropped.
func (l *MainLoop) Do(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		log.Println("MainLoop: dropped work queued after stop")
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// DoAndWait implements Scheduler.
func (l *MainLoop) DoAndWait(fn func()) bool {
	done := make(chan struct{})
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, func() {
		defer close(done)
		fn()
	})
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
	<-done
	return true
}

// Run executes queued work until ctx is done. Work already queued when ctx
// ends still runs; later Do calls are dropped.
func (l *MainLoop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
			l.RunPending()
			return
		case <-l.ready:
			l.RunPending()
		}
	}
}

// RunPending executes the work queued so far and returns how many functions ran.
func (l *MainLoop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.pending) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		l.mu.Unlock()

		fn()
		n++
	}
}
