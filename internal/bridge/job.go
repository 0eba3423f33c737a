package bridge

import (
	"context"
	"time"
)

// job tracks one worker goroutine. The supervisor only ever inspects
// liveness; it never looks at why a worker stopped.
type job struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// spawn runs fn on its own goroutine under a cancellable child context and
// returns the handle the supervisor watches.
func (b *Bridge) spawn(ctx context.Context, name string, fn func(context.Context)) *job {
	jctx, cancel := context.WithCancel(ctx)
	j := &job{name: name, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(j.done)
		fn(jctx)
	}()
	return j
}

// dead reports whether the worker goroutine has returned.
func (j *job) dead() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// kill cancels the worker and waits for it up to the grace timeout.
func (j *job) kill(grace time.Duration) {
	j.cancel()
	select {
	case <-j.done:
	case <-time.After(grace):
	}
}

// killAll cancels every job, then waits for all of them under one shared
// grace deadline.
func killAll(jobs []*job, grace time.Duration) {
	for _, j := range jobs {
		j.cancel()
	}
	deadline := time.After(grace)
	for _, j := range jobs {
		select {
		case <-j.done:
		case <-deadline:
			return
		}
	}
}
