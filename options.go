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
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/net/metrics"
	"go.uber.org/seqwire/api/backoff"
	"go.uber.org/seqwire/reactor"
	"go.uber.org/zap"
)

const (
	_defaultConnectTimeout = 10 * time.Second
	_defaultWriteTimeout   = 30 * time.Second
)

// Option configures both servers and clients.
type Option interface {
	ServerOption
	ClientOption
}

// ServerOption configures a Server.
type ServerOption interface {
	applyServer(*serverOptions)
}

// ClientOption configures a Client.
type ClientOption interface {
	applyClient(*clientOptions)
}

type commonOptions struct {
	logger       *zap.Logger
	scope        *metrics.Scope
	tracer       opentracing.Tracer
	readTimeout  time.Duration
	writeTimeout time.Duration
	reactor      *reactor.Reactor
}

func defaultCommonOptions() commonOptions {
	return commonOptions{
		logger:       zap.NewNop(),
		writeTimeout: _defaultWriteTimeout,
	}
}

type serverOptions struct {
	commonOptions
	maxDeferred int
	global      interface{}
}

func newServerOptions(opts []ServerOption) serverOptions {
	o := serverOptions{commonOptions: defaultCommonOptions()}
	for _, opt := range opts {
		opt.applyServer(&o)
	}
	return o
}

type clientOptions struct {
	commonOptions
	connectTimeout  time.Duration
	connectBackoff  backoff.Strategy
	connectAttempts uint
	onConnError     func(error)
}

func newClientOptions(opts []ClientOption) clientOptions {
	o := clientOptions{
		commonOptions:   defaultCommonOptions(),
		connectTimeout:  _defaultConnectTimeout,
		connectAttempts: 1,
	}
	for _, opt := range opts {
		opt.applyClient(&o)
	}
	return o
}

type commonOption func(*commonOptions)

func (f commonOption) applyServer(o *serverOptions) { f(&o.commonOptions) }
func (f commonOption) applyClient(o *clientOptions) { f(&o.commonOptions) }

// Logger configures a logger. Defaults to a no-op logger.
func Logger(logger *zap.Logger) Option {
	return commonOption(func(o *commonOptions) {
		o.logger = logger
	})
}

// Metrics configures a metrics scope to register instruments on.
// Defaults to no metrics.
func Metrics(scope *metrics.Scope) Option {
	return commonOption(func(o *commonOptions) {
		o.scope = scope
	})
}

// Tracer configures an OpenTracing tracer; a span is then recorded
// per request from decode to response flush. Defaults to no tracing.
func Tracer(tracer opentracing.Tracer) Option {
	return commonOption(func(o *commonOptions) {
		o.tracer = tracer
	})
}

// ReadTimeout bounds how long a connection may sit without delivering
// bytes before it is closed. Zero, the default, means no bound.
func ReadTimeout(d time.Duration) Option {
	return commonOption(func(o *commonOptions) {
		o.readTimeout = d
	})
}

// WriteTimeout bounds a single write to the socket. A write that
// cannot complete within it closes the connection. Defaults to 30s;
// zero means no bound.
func WriteTimeout(d time.Duration) Option {
	return commonOption(func(o *commonOptions) {
		o.writeTimeout = d
	})
}

// Reactor attaches the server or client to an existing reactor
// instead of owning one. The attached component never drives the
// loop; only the reactor's root owner may call its Run.
func Reactor(r *reactor.Reactor) Option {
	return commonOption(func(o *commonOptions) {
		o.reactor = r
	})
}

type serverOption func(*serverOptions)

func (f serverOption) applyServer(o *serverOptions) { f(o) }

// MaxDeferredReplies caps the deferred replies in flight per
// connection. A handler deferring past the cap gets an error from
// Defer and the request is answered with an exhausted error response.
// Zero, the default, means no cap.
func MaxDeferredReplies(n int) ServerOption {
	return serverOption(func(o *serverOptions) {
		o.maxDeferred = n
	})
}

// Global provides the read-only configuration handed to every handler
// factory. It is shared across reactors and must be immutable or
// externally synchronized.
func Global(v interface{}) ServerOption {
	return serverOption(func(o *serverOptions) {
		o.global = v
	})
}

type clientOption func(*clientOptions)

func (f clientOption) applyClient(o *clientOptions) { f(o) }

// ConnectTimeout bounds each connect attempt. Defaults to 10s.
func ConnectTimeout(d time.Duration) ClientOption {
	return clientOption(func(o *clientOptions) {
		o.connectTimeout = d
	})
}

// ConnectBackoff sets the backoff strategy pacing connect retries.
// Defaults to full-jitter exponential backoff.
func ConnectBackoff(s backoff.Strategy) ClientOption {
	return clientOption(func(o *clientOptions) {
		o.connectBackoff = s
	})
}

// ConnectAttempts sets how many times to try connecting before
// failing every queued request. Defaults to 1, no retry.
func ConnectAttempts(n uint) ClientOption {
	return clientOption(func(o *clientOptions) {
		if n > 0 {
			o.connectAttempts = n
		}
	})
}

// OnConnectionError registers a callback invoked on the reactor
// goroutine when the client's connection fails terminally: connect
// exhaustion, a decode error, a timeout, or a response arriving with
// no request in flight.
func OnConnectionError(f func(error)) ClientOption {
	return clientOption(func(o *clientOptions) {
		o.onConnError = f
	})
}
