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

package seqwire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/atomic"
	"go.uber.org/seqwire/api/wire"
	ibackoff "go.uber.org/seqwire/internal/backoff"
	"go.uber.org/seqwire/internal/bufferpool"
	"go.uber.org/seqwire/internal/observability"
	"go.uber.org/seqwire/reactor"
	"go.uber.org/seqwire/seqwireerrors"
	"go.uber.org/zap"
)

type clientCall struct {
	onResponse func(*wire.Response)
	onError    func(error)
	span       opentracing.Span
}

// pendingFrame is a request serialized before the connection was
// established. Reply-expecting frames have their callback pair in the
// response FIFO already; noreply frames carry their error callback
// here so a failed connect can settle them.
type pendingFrame struct {
	frame   []byte
	noreply bool
	onError func(error)
}

// Client issues requests against one remote endpoint and matches
// responses to callbacks in strict FIFO order: requests and responses
// on one connection arrive in send order, so the oldest un-answered
// request owns the next decoded response.
//
// Connect is asynchronous; requests sent before the connection is
// established are queued and flushed once it is. A standalone client
// owns its reactor and drives it with Run until every queued request
// is answered. With the Reactor option the client attaches to an
// existing reactor, typically a server's, so handler code can make
// backend calls on the goroutine it already runs on; the reactor's
// root owner drives the loop.
type Client struct {
	addr  string
	codec wire.Codec
	opts  clientOptions

	r          *reactor.Reactor
	ownReactor bool
	logger     *zap.Logger
	metrics    *observability.Metrics

	// Everything below is reactor-confined.
	state      connState
	conn       net.Conn
	writer     *writePump
	readBuf    bytes.Buffer
	pending    []clientCall
	preConnect []pendingFrame
	termErr    error

	// inflight counts requests accepted by Send and not yet settled,
	// for Run's drain check.
	inflight atomic.Int64
	closed   atomic.Bool
}

// Dial returns a client and begins connecting to addr in the
// background. It never blocks: connect failures surface through the
// per-request error callbacks and the OnConnectionError option.
func Dial(addr string, codec wire.Codec, opts ...ClientOption) *Client {
	o := newClientOptions(opts)
	if o.connectBackoff == nil {
		o.connectBackoff = ibackoff.DefaultExponential
	}
	r := o.reactor
	own := false
	if r == nil {
		r = reactor.New(reactor.Logger(o.logger))
		own = true
	}
	c := &Client{
		addr:       addr,
		codec:      codec,
		opts:       o,
		r:          r,
		ownReactor: own,
		logger:     o.logger.With(zap.String("endpoint", addr)),
		metrics:    observability.New(o.scope, "client", o.logger),
		state:      stateConnecting,
	}
	go c.connectLoop()
	return c
}

// connectLoop runs on its own goroutine: attempts are blocking dials,
// paced by the configured backoff, with results posted to the reactor.
func (c *Client) connectLoop() {
	b := c.opts.connectBackoff.Backoff()
	var lastErr error
	for attempt := uint(0); attempt < c.opts.connectAttempts; attempt++ {
		if attempt > 0 {
			pause := b.Duration(attempt - 1)
			c.logger.Debug("retrying connect",
				zap.Uint("attempt", attempt), zap.Duration("backoff", pause))
			time.Sleep(pause)
		}
		if c.closed.Load() {
			return
		}
		nc, err := net.DialTimeout("tcp", c.addr, c.opts.connectTimeout)
		if err == nil {
			if !c.r.Submit(func() { c.onConnected(nc) }) {
				_ = nc.Close()
			}
			return
		}
		lastErr = err
		c.logger.Debug("connect attempt failed", zap.Error(err))
	}
	c.r.Submit(func() {
		c.fail(classifyIOError(lastErr))
	})
}

func (c *Client) onConnected(nc net.Conn) {
	if c.state != stateConnecting {
		_ = nc.Close()
		return
	}
	c.conn = nc
	c.state = stateEstablished
	c.metrics.ConnectionsAccepted.Inc()
	c.logger.Debug("connection established")
	c.writer = newWritePump(nc, c.opts.writeTimeout, c.r, c.onWriteError)
	go readPump(nc, c.r, c.opts.readTimeout, c.onData, c.onReadError)

	queued := c.preConnect
	c.preConnect = nil
	for _, pf := range queued {
		c.enqueueFrame(pf.frame)
		if pf.noreply {
			c.inflight.Dec()
		}
	}
}

// enqueueFrame hands a serialized frame to the write pump. The pump
// owns the pooled copy; write failures come back through onWriteError.
func (c *Client) enqueueFrame(frame []byte) {
	buf := bufferpool.Get()
	buf.Write(frame)
	c.writer.enqueue(buf)
}

// Send serializes a request, queues it for the connection, and
// registers the callback pair at the back of the response FIFO. It
// never blocks on I/O and is safe from any goroutine; callbacks run
// on the reactor goroutine.
func (c *Client) Send(body []byte, onResponse func(*wire.Response), onError func(error)) {
	c.send(body, false, onResponse, onError)
}

// SendNoReply serializes a fire-and-forget request. No response is
// expected, so no FIFO entry is created; onError fires if the request
// cannot be serialized, queued, or flushed to an established
// connection. A write failure after hand-off closes the client and
// surfaces through OnConnectionError instead.
func (c *Client) SendNoReply(body []byte, onError func(error)) {
	c.send(body, true, nil, onError)
}

func (c *Client) send(body []byte, noreply bool, onResponse func(*wire.Response), onError func(error)) {
	if c.closed.Load() {
		if onError != nil {
			onError(seqwireerrors.ClosedErrorf("client is closed"))
		}
		return
	}
	c.inflight.Inc()
	ok := c.r.Submit(func() { c.sendTask(body, noreply, onResponse, onError) })
	if !ok {
		c.inflight.Dec()
		if onError != nil {
			onError(seqwireerrors.ClosedErrorf("client reactor is stopped"))
		}
	}
}

func (c *Client) sendTask(body []byte, noreply bool, onResponse func(*wire.Response), onError func(error)) {
	if c.state == stateClosed {
		c.inflight.Dec()
		if onError != nil {
			onError(c.terminalError())
		}
		return
	}
	frame, err := c.codec.EncodeRequest(body, noreply)
	if err != nil {
		c.inflight.Dec()
		if onError != nil {
			onError(err)
		}
		return
	}

	if noreply {
		if c.state == stateEstablished {
			c.enqueueFrame(frame)
			c.inflight.Dec()
			return
		}
		// Still connecting: the request stays in flight until the
		// frame is flushed or the connect fails.
		c.preConnect = append(c.preConnect, pendingFrame{frame: frame, noreply: true, onError: onError})
		return
	}

	var span opentracing.Span
	if c.opts.tracer != nil {
		span = c.opts.tracer.StartSpan("seqwire.call")
	}
	call := clientCall{onResponse: onResponse, onError: onError, span: span}

	if c.state == stateEstablished {
		c.enqueueFrame(frame)
		c.pending = append(c.pending, call)
		return
	}
	// Still connecting: queue the frame, FIFO position is already
	// fixed by the order frames will be flushed.
	c.preConnect = append(c.preConnect, pendingFrame{frame: frame})
	c.pending = append(c.pending, call)
}

func (c *Client) onWriteError(err error) {
	if c.state != stateEstablished {
		return
	}
	c.fail(err)
}

func (c *Client) onData(chunk []byte, n int) {
	if c.state != stateEstablished {
		bufferpool.PutChunk(chunk)
		return
	}
	c.readBuf.Write(chunk[:n])
	bufferpool.PutChunk(chunk)

	for c.state == stateEstablished {
		res, n, err := c.codec.DecodeResponse(c.readBuf.Bytes())
		if err != nil {
			c.metrics.DecodeErrors.Inc()
			c.logger.Error("response decode error", zap.Error(err))
			c.fail(seqwireerrors.WrapWithCode(seqwireerrors.CodeDecode, err))
			return
		}
		if res == nil {
			return
		}
		c.readBuf.Next(n)
		if len(c.pending) == 0 {
			c.metrics.Desyncs.Inc()
			c.logger.Error("response arrived with no request in flight")
			c.fail(seqwireerrors.DesyncErrorf("response arrived with no request in flight"))
			return
		}
		call := c.pending[0]
		c.pending[0] = clientCall{}
		c.pending = c.pending[1:]
		c.settle(call, res, nil)
	}
}

func (c *Client) onReadError(err error) {
	if c.state != stateEstablished {
		return
	}
	if err == io.EOF {
		c.fail(seqwireerrors.ClosedErrorf("peer closed connection"))
		return
	}
	c.fail(classifyIOError(err))
}

func (c *Client) settle(call clientCall, res *wire.Response, err error) {
	c.inflight.Dec()
	if call.span != nil {
		if err != nil || (res != nil && res.Err != nil) {
			call.span.SetTag("error", true)
		}
		call.span.Finish()
	}
	if err != nil {
		if call.onError != nil {
			call.onError(err)
		}
		return
	}
	if call.onResponse != nil {
		call.onResponse(res)
	}
}

// fail terminally closes the connection and settles every pending
// call with err.
func (c *Client) fail(err error) {
	if c.state == stateClosed {
		return
	}
	wasEstablished := c.state == stateEstablished
	c.state = stateClosed
	c.termErr = err
	c.closed.Store(true)
	if c.writer != nil {
		c.writer.abort()
	} else if c.conn != nil {
		_ = c.conn.Close()
	}
	calls := c.pending
	c.pending = nil
	queued := c.preConnect
	c.preConnect = nil
	for _, call := range calls {
		c.settle(call, nil, err)
	}
	// Reply-expecting queued frames were settled through the FIFO
	// above; noreply frames carry their own error callback.
	for _, pf := range queued {
		if pf.noreply {
			c.inflight.Dec()
			if pf.onError != nil {
				pf.onError(err)
			}
		}
	}
	if wasEstablished {
		c.metrics.ConnectionsClosed.Inc()
	}
	if c.opts.onConnError != nil && err != nil && !seqwireerrors.IsClosed(err) {
		c.opts.onConnError(err)
	}
	if err != nil {
		c.logger.Debug("client connection failed", zap.Error(err))
	} else {
		c.logger.Debug("client connection closed")
	}
}

func (c *Client) terminalError() error {
	if c.termErr != nil {
		return c.termErr
	}
	return seqwireerrors.ClosedErrorf("client is closed")
}

// ErrNotOwner is returned by Run on a client attached to an external
// reactor; only the reactor's root owner may drive the loop.
var ErrNotOwner = errors.New("seqwire: client does not own its reactor")

// Run drives a standalone client's reactor on the calling goroutine
// until every request accepted so far is answered or failed, then
// returns the terminal connection error, if any. It may be called
// again after queueing more requests. Not safe concurrently with
// itself or Close.
func (c *Client) Run() error {
	if !c.ownReactor {
		return ErrNotOwner
	}
	for {
		if c.inflight.Load() == 0 {
			// Between RunOnce calls no task is executing, so reading
			// reactor-confined state here is safe.
			if c.state == stateClosed {
				return c.termErr
			}
			return nil
		}
		if !c.r.RunOnce() {
			return c.terminalError()
		}
	}
}

// Call sends one request and blocks for its response or ctx. It
// requires the client's reactor to be driven elsewhere, typically an
// attached reactor's Run; on a response carrying an application-level
// error the error is returned.
func (c *Client) Call(ctx context.Context, body []byte) ([]byte, error) {
	type outcome struct {
		res *wire.Response
		err error
	}
	ch := make(chan outcome, 1)
	c.Send(body,
		func(res *wire.Response) { ch <- outcome{res: res} },
		func(err error) { ch <- outcome{err: err} },
	)
	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		if out.res.Err != nil {
			return nil, out.res.Err
		}
		return out.res.Body, nil
	case <-ctx.Done():
		return nil, seqwireerrors.WrapWithCode(seqwireerrors.CodeTimeout, ctx.Err())
	}
}

// Close tears the client down: the connection closes and every
// pending call fails with a closed error. For a standalone client,
// Close drives its reactor long enough to run the teardown, then
// stops it.
func (c *Client) Close() error {
	c.closed.Store(true)
	done := make(chan struct{})
	submitted := c.r.Submit(func() {
		c.fail(seqwireerrors.ClosedErrorf("client closed"))
		close(done)
	})
	if !submitted {
		return nil
	}
	if c.ownReactor {
		for {
			select {
			case <-done:
				c.r.Stop()
				return nil
			default:
			}
			if !c.r.RunOnce() {
				return nil
			}
		}
	}
	<-done
	return nil
}
