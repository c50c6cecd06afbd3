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

// Package deferred tracks in-flight deferred replies for one
// connection and detaches them cleanly when the connection dies first.
//
// The Context is the one structure in the framework that is
// intentionally shared across the async boundary: the reactor
// goroutine issues tokens and may detach, while completion callbacks
// resolve tokens from arbitrary goroutines. The detached flag and the
// pending count are therefore atomic; everything else is only touched
// on the reactor goroutine.
package deferred

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Sink receives resolved replies. The connection implements it by
// completing the reply ordering slot for the sequence number and
// flushing whatever prefix became ready.
type Sink interface {
	Complete(seq uint64, body []byte)
	CompleteError(seq uint64, err error)
}

// Executor posts work onto the reactor goroutine that owns the Sink.
// Submit returns false once the reactor has stopped.
type Executor interface {
	Submit(func()) bool
}

// Context tracks the deferred replies outstanding for one connection.
// It outlives the connection logically: when the connection closes
// with tokens still in flight, Detach clears the sink reference and
// the Context lingers until the last token resolves (or is dropped).
//
// A token that is never resolved keeps the Context alive forever.
// That leak is the caller's contract to avoid, not something the
// framework guards: every issued token must be resolved exactly once,
// including on error paths.
type Context struct {
	exec     Executor
	sink     Sink
	detached atomic.Bool
	pending  atomic.Int32
	logger   *zap.Logger
}

// NewContext returns a Context delivering resolved replies to sink on
// the exec goroutine.
func NewContext(exec Executor, sink Sink, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		exec:   exec,
		sink:   sink,
		logger: logger,
	}
}

// Issue returns a reply token bound to this context and the given
// request sequence number, incrementing the pending count.
func (c *Context) Issue(seq uint64) *Reply {
	c.pending.Inc()
	return &Reply{ctx: c, seq: seq}
}

// Pending returns the number of issued tokens not yet resolved.
func (c *Context) Pending() int {
	return int(c.pending.Load())
}

// Detached reports whether the owning connection is gone.
func (c *Context) Detached() bool {
	return c.detached.Load()
}

// Detach marks the context orphaned because its connection no longer
// exists. Later resolutions become no-ops instead of touching dead
// connection state. Must be called on the reactor goroutine.
func (c *Context) Detach() {
	if !c.detached.CAS(false, true) {
		return
	}
	if n := c.pending.Load(); n > 0 {
		c.logger.Debug("detached deferred context with replies in flight",
			zap.Int32("pending", n))
	}
	c.sink = nil
}

// Reply is a token for a response whose payload was not available
// within the handler call. It must be resolved exactly once; a second
// resolution is ignored.
type Reply struct {
	ctx      *Context
	seq      uint64
	resolved atomic.Bool
}

// Seq returns the sequence number of the request this token answers.
func (r *Reply) Seq() uint64 {
	return r.seq
}

// Resolve delivers the response payload. Safe to call from any
// goroutine; delivery happens on the reactor goroutine. If the
// connection closed in the meantime the payload is silently discarded.
func (r *Reply) Resolve(body []byte) {
	r.deliver(func(sink Sink) {
		sink.Complete(r.seq, body)
	})
}

// ResolveError answers the request with an application-level error
// response. The connection stays open.
func (r *Reply) ResolveError(err error) {
	r.deliver(func(sink Sink) {
		sink.CompleteError(r.seq, err)
	})
}

func (r *Reply) deliver(complete func(Sink)) {
	if !r.resolved.CAS(false, true) {
		r.ctx.logger.DPanic("deferred reply resolved twice",
			zap.Uint64("seq", r.seq))
		return
	}
	c := r.ctx
	ok := c.exec.Submit(func() {
		defer c.pending.Dec()
		if c.detached.Load() {
			return
		}
		complete(c.sink)
	})
	if !ok {
		// Reactor already stopped; the reply has nowhere to go.
		c.pending.Dec()
	}
}
