// Copyright (c) 2025 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package reactor provides the single-goroutine event loop that drives
// seqwire servers, clients, and connections.
//
// One goroutine calls Run and executes every task posted to the
// reactor, so state reachable only from one reactor needs no locking.
// Handlers and callbacks execute non-reentrantly on that goroutine and
// must never block it. Socket readiness is translated into tasks by
// per-connection pump goroutines; timeouts are armed with After.
//
// Several reactors may run on separate goroutines, each with its own
// independent set of connections and handler state. Only the root
// owner of a reactor may call Run; components that attach to an
// existing reactor (for example a client sharing a server's loop) only
// ever Submit.
package reactor

import (
	"errors"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Run if the reactor is already being
// driven by another goroutine.
var ErrAlreadyRunning = errors.New("reactor: Run called while already running")

const _defaultBacklog = 1024

// Option configures a Reactor.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	backlog int
}

// Logger sets the logger the reactor uses for its own diagnostics.
// Defaults to a no-op logger.
func Logger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Backlog sets the task queue depth. Submit blocks once the queue is
// full, which backpressures pump goroutines rather than growing
// without bound.
func Backlog(n int) Option {
	return func(o *options) {
		o.backlog = n
	}
}

// Reactor is a single-goroutine task loop with timer support.
type Reactor struct {
	tasks    chan func()
	stopCh   chan struct{}
	done     chan struct{}
	stopped  atomic.Bool
	running  atomic.Bool
	logger   *zap.Logger
}

// New returns a reactor ready to accept tasks. Nothing executes until
// some goroutine calls Run.
func New(opts ...Option) *Reactor {
	o := options{
		logger:  zap.NewNop(),
		backlog: _defaultBacklog,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Reactor{
		tasks:  make(chan func(), o.backlog),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		logger: o.logger,
	}
}

// Submit posts f for execution on the reactor goroutine. It returns
// false once the reactor has stopped, in which case f never runs.
// Safe to call from any goroutine.
func (r *Reactor) Submit(f func()) bool {
	select {
	case <-r.stopCh:
		return false
	default:
	}
	select {
	case r.tasks <- f:
		return true
	case <-r.stopCh:
		return false
	}
}

// Timer is a pending timeout armed with After.
type Timer struct {
	t *time.Timer
}

// Stop disarms the timer. It reports whether the timer was stopped
// before its task was posted.
func (t *Timer) Stop() bool {
	return t.t.Stop()
}

// After arms a timeout that posts f onto the reactor after d. The
// returned Timer may be stopped to cancel it.
func (r *Reactor) After(d time.Duration, f func()) *Timer {
	return &Timer{t: time.AfterFunc(d, func() {
		r.Submit(f)
	})}
}

// Run drives the reactor until Stop, executing tasks in submission
// order. Tasks still queued when Stop is called are drained before Run
// returns. Only the root owner of the reactor may call Run.
func (r *Reactor) Run() error {
	if !r.running.CAS(false, true) {
		return ErrAlreadyRunning
	}
	defer close(r.done)
	r.logger.Debug("reactor running")
	for {
		select {
		case f := <-r.tasks:
			f()
		case <-r.stopCh:
			r.drain()
			r.logger.Debug("reactor stopped")
			return nil
		}
	}
}

func (r *Reactor) drain() {
	for {
		select {
		case f := <-r.tasks:
			f()
		default:
			return
		}
	}
}

// RunOnce executes a single task, blocking until one is available. It
// returns false once the reactor has stopped. Useful for tests that
// drive the loop by hand.
func (r *Reactor) RunOnce() bool {
	select {
	case f := <-r.tasks:
		f()
		return true
	case <-r.stopCh:
		return false
	}
}

// Stop ends the loop. Idempotent and safe from any goroutine. Tasks
// submitted after Stop are rejected.
func (r *Reactor) Stop() {
	if r.stopped.CAS(false, true) {
		close(r.stopCh)
	}
}

// Stopped reports whether Stop has been called.
func (r *Reactor) Stopped() bool {
	return r.stopped.Load()
}

// Done returns a channel closed once Run has returned.
func (r *Reactor) Done() <-chan struct{} {
	return r.done
}
