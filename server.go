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
	"net"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/seqwire/api/service"
	"go.uber.org/seqwire/api/wire"
	"go.uber.org/seqwire/internal/observability"
	"go.uber.org/seqwire/pkg/lifecycle"
	"go.uber.org/seqwire/reactor"
	"go.uber.org/seqwire/seqwireerrors"
	"go.uber.org/zap"
)

// Server accepts connections and serves decoded requests through
// per-connection handlers, answering in request arrival order.
//
// By default a server owns a reactor and drives it on a background
// goroutine between Start and Stop. With the Reactor option it
// attaches to an existing reactor instead, whose root owner is
// responsible for driving the loop while the server is running.
type Server struct {
	addr     string
	codec    wire.Codec
	provider service.Provider
	opts     serverOptions

	r          *reactor.Reactor
	ownReactor bool
	logger     *zap.Logger
	metrics    *observability.Metrics
	once       *lifecycle.Once
	listener   net.Listener
	accepting  sync.WaitGroup

	// conns is reactor-confined.
	conns map[*connection]struct{}
}

// NewServer returns a server for the given listen address, codec, and
// handler provider. Nothing happens until Start.
func NewServer(addr string, codec wire.Codec, provider service.Provider, opts ...ServerOption) *Server {
	o := newServerOptions(opts)
	r := o.reactor
	own := false
	if r == nil {
		r = reactor.New(reactor.Logger(o.logger))
		own = true
	}
	return &Server{
		addr:       addr,
		codec:      codec,
		provider:   provider,
		opts:       o,
		r:          r,
		ownReactor: own,
		logger:     o.logger,
		metrics:    observability.New(o.scope, "server", o.logger),
		once:       lifecycle.NewOnce(),
		conns:      make(map[*connection]struct{}),
	}
}

// Start initializes the provider, binds the listen address, and begins
// accepting connections. If the server owns its reactor, Start also
// launches the loop; an attached server expects its reactor to be
// driven by its owner. Start must happen before the attached reactor
// runs, so provider initialization cannot race handler work.
func (s *Server) Start() error {
	return s.once.Start(func() error {
		if err := s.provider.Init(s.r, s.opts.global); err != nil {
			return err
		}
		l, err := net.Listen("tcp", s.addr)
		if err != nil {
			s.provider.Uninit()
			return err
		}
		s.listener = l
		s.accepting.Add(1)
		go s.acceptLoop()
		if s.ownReactor {
			go func() { _ = s.r.Run() }()
		}
		s.logger.Info("server started", zap.Stringer("addr", l.Addr()))
		return nil
	})
}

// Addr returns the bound listen address. Only valid after a
// successful Start; handy when listening on ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Reactor returns the reactor driving this server's connections, for
// attaching backend clients to it.
func (s *Server) Reactor() *reactor.Reactor {
	return s.r
}

func (s *Server) acceptLoop() {
	defer s.accepting.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			// Accept fails when the listener closes on Stop.
			return
		}
		if !s.r.Submit(func() { s.register(nc) }) {
			_ = nc.Close()
			return
		}
	}
}

func (s *Server) register(nc net.Conn) {
	c := newConnection(s, nc)
	s.conns[c] = struct{}{}
	c.start()
}

func (s *Server) removeConn(c *connection) {
	delete(s.conns, c)
}

// Stop closes the listener, tears down every connection, uninits the
// provider, and, for an owned reactor, stops the loop. Connections
// with deferred replies in flight are detached, and the late
// resolutions are discarded.
func (s *Server) Stop() error {
	return s.once.Stop(func() error {
		var err error
		if s.listener != nil {
			err = s.listener.Close()
		}
		s.accepting.Wait()

		done := make(chan struct{})
		if s.r.Submit(func() {
			for c := range s.conns {
				c.closeNow(seqwireerrors.ClosedErrorf("server stopping"))
			}
			close(done)
		}) {
			<-done
		}
		s.provider.Uninit()
		if s.ownReactor {
			s.r.Stop()
			<-s.r.Done()
		}
		s.logger.Info("server stopped")
		return multierr.Append(nil, err)
	})
}
