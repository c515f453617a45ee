// Package ui owns the single goroutine that every piece of user facing state
// is mutated on. Workers never touch that state directly; they post closures.
package ui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("ui loop stopped")

type Loop struct {
	mu      sync.Mutex
	pending []func()
	stopped bool

	wake chan struct{}
	done chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run executes posted closures in order until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for _, fn := range l.drain() {
			l.exec(fn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// Post queues fn for the loop. It never blocks, so it is safe to call from the
// loop itself. It reports false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// After posts fn once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.pending
	l.pending = nil
	return batch
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("UI callback panicked")
		}
	}()
	fn()
}

func (l *Loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	l.stopped = true
	l.pending = nil
	close(l.done)
}
