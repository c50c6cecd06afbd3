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
	"io"
	"net"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/seqwire/api/service"
	"go.uber.org/seqwire/api/wire"
	"go.uber.org/seqwire/internal/bufferpool"
	"go.uber.org/seqwire/internal/deferred"
	"go.uber.org/seqwire/internal/ordering"
	"go.uber.org/seqwire/reactor"
	"go.uber.org/seqwire/seqwireerrors"
	"go.uber.org/zap"
)

type connState int

const (
	stateConnecting connState = iota
	stateEstablished
	stateClosing
	stateClosed
)

type inflight struct {
	start time.Time
	span  opentracing.Span
}

// connection is the server-side per-socket state machine. All fields
// are confined to the server's reactor goroutine; the goroutines it
// owns are the read and write pumps, which communicate by posting
// tasks.
type connection struct {
	server  *Server
	conn    net.Conn
	codec   wire.Codec
	handler service.Handler
	r       *reactor.Reactor
	logger  *zap.Logger
	writer  *writePump

	state    connState
	readBuf  bytes.Buffer
	queue    *ordering.Queue
	deferred *deferred.Context
	nextSeq  uint64
	inflight map[uint64]inflight
}

var _ deferred.Sink = (*connection)(nil)

func newConnection(s *Server, nc net.Conn) *connection {
	return &connection{
		server:   s,
		conn:     nc,
		codec:    s.codec,
		handler:  s.provider.NewHandler(s.opts.global),
		r:        s.r,
		logger:   s.logger.With(zap.String("remote", nc.RemoteAddr().String())),
		state:    stateEstablished,
		queue:    ordering.New(),
		inflight: make(map[uint64]inflight),
	}
}

func (c *connection) start() {
	c.server.metrics.ConnectionsAccepted.Inc()
	c.logger.Debug("connection accepted")
	c.writer = newWritePump(c.conn, c.server.opts.writeTimeout, c.r, c.onWriteError)
	go readPump(c.conn, c.r, c.server.opts.readTimeout, c.onData, c.onReadError)
}

// readPump moves bytes from the socket onto the reactor. It exits when
// the socket errors, including the close triggered from the reactor.
func readPump(conn net.Conn, r *reactor.Reactor, timeout time.Duration, onData func(chunk []byte, n int), onErr func(error)) {
	for {
		if timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
		}
		chunk := bufferpool.GetChunk()
		n, err := conn.Read(chunk)
		if n > 0 {
			if !r.Submit(func() { onData(chunk, n) }) {
				bufferpool.PutChunk(chunk)
				return
			}
		} else {
			bufferpool.PutChunk(chunk)
		}
		if err != nil {
			r.Submit(func() { onErr(err) })
			return
		}
	}
}

func (c *connection) onData(chunk []byte, n int) {
	if c.state != stateEstablished {
		bufferpool.PutChunk(chunk)
		return
	}
	c.readBuf.Write(chunk[:n])
	bufferpool.PutChunk(chunk)
	c.decodeLoop()
}

func (c *connection) decodeLoop() {
	for c.state == stateEstablished {
		req, n, err := c.codec.DecodeRequest(c.readBuf.Bytes())
		if err != nil {
			c.server.metrics.DecodeErrors.Inc()
			c.logger.Error("protocol decode error", zap.Error(err))
			c.closeWithFlush(seqwireerrors.WrapWithCode(seqwireerrors.CodeDecode, err))
			return
		}
		if req == nil {
			return
		}
		c.readBuf.Next(n)
		c.dispatch(req)
	}
}

func (c *connection) dispatch(req *wire.Request) {
	c.nextSeq++
	req.Seq = c.nextSeq
	c.server.metrics.Requests.Inc()

	var span opentracing.Span
	if tracer := c.server.opts.tracer; tracer != nil {
		span = tracer.StartSpan("seqwire.handle",
			opentracing.Tag{Key: "seqwire.seq", Value: req.Seq},
			opentracing.Tag{Key: "seqwire.noreply", Value: req.NoReply},
		)
	}

	if req.NoReply {
		c.server.metrics.NoReplyRequests.Inc()
	} else {
		c.queue.Register(req.Seq)
		c.inflight[req.Seq] = inflight{start: time.Now(), span: span}
	}

	res, err := c.handler.Handle(connDeferrer{c: c, req: req}, req)

	if req.NoReply {
		if err != nil {
			c.logger.Debug("handler error on fire-and-forget request",
				zap.Uint64("seq", req.Seq), zap.Error(err))
		}
		if span != nil {
			span.Finish()
		}
		return
	}
	if err != nil {
		c.completeStatus(req.Seq, backendStatus(err))
		return
	}
	switch res.Kind() {
	case service.KindReply:
		c.completeBody(req.Seq, res.Body())
	case service.KindNone:
		// The slot is already registered; leaving it pending would
		// wedge the flush prefix, so answer with an error instead.
		c.logger.Error("handler produced no response for a request expecting one",
			zap.Uint64("seq", req.Seq))
		c.completeStatus(req.Seq, seqwireerrors.BackendErrorf("handler produced no response"))
	case service.KindDeferred:
		// The reply token resolves the slot later.
	}
}

func backendStatus(err error) *seqwireerrors.Status {
	if seqwireerrors.IsStatus(err) {
		return seqwireerrors.FromError(err)
	}
	return seqwireerrors.WrapWithCode(seqwireerrors.CodeBackend, err)
}

// connDeferrer issues at most one reply token for the request being
// dispatched.
type connDeferrer struct {
	c   *connection
	req *wire.Request
}

func (d connDeferrer) Defer() (service.Token, error) {
	c := d.c
	if c.state != stateEstablished {
		return nil, seqwireerrors.ClosedErrorf("connection is closing")
	}
	if c.deferred == nil {
		c.deferred = deferred.NewContext(c.r, c, c.logger)
	}
	if max := c.server.opts.maxDeferred; max > 0 && c.deferred.Pending() >= max {
		return nil, seqwireerrors.ExhaustedErrorf("%d deferred replies already in flight", max)
	}
	c.server.metrics.DeferredIssued.Inc()
	return c.deferred.Issue(d.req.Seq), nil
}

// Complete and CompleteError implement deferred.Sink. They run on the
// reactor goroutine, posted by reply token resolutions.

func (c *connection) Complete(seq uint64, body []byte) {
	c.server.metrics.DeferredResolved.Inc()
	c.completeBody(seq, body)
}

func (c *connection) CompleteError(seq uint64, err error) {
	c.server.metrics.DeferredResolved.Inc()
	c.completeStatus(seq, backendStatus(err))
}

func (c *connection) completeBody(seq uint64, body []byte) {
	if c.state != stateEstablished {
		return
	}
	enc, err := c.codec.EncodeResponse(body)
	if err != nil {
		c.completeStatus(seq, backendStatus(err))
		return
	}
	c.queue.Complete(seq, enc)
	c.flush()
}

func (c *connection) completeStatus(seq uint64, status *seqwireerrors.Status) {
	if c.state != stateEstablished {
		return
	}
	c.server.metrics.ErrorResponses.Inc()
	enc, err := c.codec.EncodeError(status)
	if err != nil {
		c.logger.Error("cannot serialize error response", zap.Error(err))
		c.closeNow(err)
		return
	}
	c.queue.Complete(seq, enc)
	c.flush()
}

// flush hands the contiguous prefix of completed responses, in
// request arrival order, to the write pump and settles their latency
// and span records. The prefix is batched into one write.
func (c *connection) flush() {
	buf := bufferpool.Get()
	c.queue.Flush(func(seq uint64, body []byte) {
		buf.Write(body)
		if fl, ok := c.inflight[seq]; ok {
			delete(c.inflight, seq)
			c.server.metrics.ObserveLatency(time.Since(fl.start))
			if fl.span != nil {
				fl.span.Finish()
			}
		}
	})
	if buf.Len() == 0 {
		bufferpool.Put(buf)
		return
	}
	c.writer.enqueue(buf)
}

func (c *connection) onWriteError(err error) {
	if c.state == stateClosed {
		return
	}
	if seqwireerrors.IsTimeout(err) {
		c.logger.Debug("write timeout", zap.Error(err))
	} else {
		c.logger.Error("write error", zap.Error(err))
	}
	c.closeNow(err)
}

func classifyIOError(err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return seqwireerrors.WrapWithCode(seqwireerrors.CodeTimeout, err)
	}
	return err
}

func (c *connection) onReadError(err error) {
	if c.state != stateEstablished {
		return
	}
	if err == io.EOF {
		c.logger.Debug("peer closed connection")
		c.closeNow(nil)
		return
	}
	err = classifyIOError(err)
	if seqwireerrors.IsTimeout(err) {
		c.logger.Debug("read timeout", zap.Error(err))
	} else {
		c.logger.Error("read error", zap.Error(err))
	}
	c.closeNow(err)
}

// closeWithFlush transitions to closing, emits the already-completed
// ordered prefix, and closes. Used on protocol errors, where the peer
// still deserves the responses that were ready to go.
func (c *connection) closeWithFlush(reason error) {
	if c.state == stateClosing || c.state == stateClosed {
		return
	}
	c.state = stateClosing
	buf := bufferpool.Get()
	c.queue.Flush(func(seq uint64, body []byte) {
		buf.Write(body)
		if fl, ok := c.inflight[seq]; ok {
			delete(c.inflight, seq)
			if fl.span != nil {
				fl.span.Finish()
			}
		}
	})
	if buf.Len() > 0 {
		c.writer.enqueue(buf)
	} else {
		bufferpool.Put(buf)
	}
	c.closeNow(reason)
}

// closeNow tears the connection down regardless of in-flight work.
// Outstanding deferred replies are detached, not cancelled: their
// eventual resolutions become no-ops. The write pump drains what is
// already queued, each write bounded by the write timeout, and then
// closes the socket, which also stops the read pump.
func (c *connection) closeNow(reason error) {
	if c.state == stateClosed {
		return
	}
	c.state = stateClosed
	if c.deferred != nil {
		if n := c.deferred.Pending(); n > 0 {
			c.server.metrics.DeferredDiscarded.Add(int64(n))
		}
		c.deferred.Detach()
	}
	for seq, fl := range c.inflight {
		delete(c.inflight, seq)
		if fl.span != nil {
			fl.span.SetTag("error", true)
			fl.span.Finish()
		}
	}
	c.writer.close()
	c.server.metrics.ConnectionsClosed.Inc()
	c.server.removeConn(c)
	if reason != nil {
		c.logger.Debug("connection closed", zap.Error(reason))
	} else {
		c.logger.Debug("connection closed")
	}
}
