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

// Package service defines the handler interface protocol-specific
// logic implements to serve requests through a seqwire server.
//
// A Provider supplies one Handler instance per accepted connection, so
// a handler never sees two requests concurrently and keeps
// per-connection state without locks. Handlers run on the server's
// reactor goroutine and must never block: no synchronous I/O, no
// sleeps, no lock waits. Work that cannot complete synchronously is
// deferred: the handler takes a reply token from the Deferrer, starts
// an asynchronous operation (typically a backend call on the same
// reactor), and returns Deferred(); the completion callback resolves
// the token later. Replies reach the peer in request arrival order
// either way.
package service

import (
	"go.uber.org/seqwire/api/wire"
	"go.uber.org/seqwire/reactor"
)

// Kind discriminates the outcomes of handling one request.
type Kind int

const (
	// KindReply means the response payload was produced synchronously.
	KindReply Kind = iota

	// KindNone means no response is sent. Only valid for requests
	// decoded with NoReply set; such requests hold no ordering slot.
	KindNone

	// KindDeferred means a reply token was issued and the response
	// will be resolved later.
	KindDeferred
)

// Result is the outcome of handling one request.
type Result struct {
	kind Kind
	body []byte
}

// Reply returns a Result carrying a synchronously produced response
// payload. The payload is serialized and queued at the request's
// sequence number before Handle returns.
func Reply(body []byte) Result {
	return Result{kind: KindReply, body: body}
}

// None returns a Result indicating no response is sent.
func None() Result {
	return Result{kind: KindNone}
}

// Deferred returns a Result indicating the handler issued a reply
// token and the response will arrive through it.
func Deferred() Result {
	return Result{kind: KindDeferred}
}

// Kind returns the outcome discriminator.
func (r Result) Kind() Kind {
	return r.kind
}

// Body returns the response payload for KindReply results.
func (r Result) Body() []byte {
	return r.body
}

// Token answers a request whose response is resolved outside the
// handler call.
//
// Every issued token must be resolved exactly once, including on error
// paths: a token resolved twice is ignored, and a token never resolved
// leaks its connection's deferred context. Resolving is safe from any
// goroutine; if the connection closed in the meantime the resolution
// is silently discarded.
type Token interface {
	// Seq returns the sequence number of the request being answered.
	Seq() uint64

	// Resolve answers the request with a response payload.
	Resolve(body []byte)

	// ResolveError answers the request with an application-level
	// error response. The connection stays open.
	ResolveError(err error)
}

// Deferrer issues deferred reply tokens for the request currently
// being handled. Issuing more than one token per request is a
// programming error the framework does not guard against.
type Deferrer interface {
	// Defer returns a reply token for the current request. It fails
	// if the connection's cap on in-flight deferred replies is hit,
	// in which case the handler should surface the error.
	Defer() (Token, error)
}

// Handler serves the requests of a single connection.
type Handler interface {
	Handle(d Deferrer, req *wire.Request) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(d Deferrer, req *wire.Request) (Result, error)

// Handle calls f.
func (f HandlerFunc) Handle(d Deferrer, req *wire.Request) (Result, error) {
	return f(d, req)
}

// Provider supplies per-reactor shared state and per-connection
// handlers.
//
// Init runs once on the reactor that will drive the provider's
// connections, before any handler is created; it is the place to dial
// backend clients attached to that reactor. Global carries read-only
// configuration shared across reactors and must be immutable or
// externally synchronized; state created by Init is confined to one
// reactor goroutine and needs no locking.
type Provider interface {
	Init(r *reactor.Reactor, global interface{}) error
	Uninit()
	NewHandler(global interface{}) Handler
}

type providerFunc struct {
	newHandler func(global interface{}) Handler
}

func (p providerFunc) Init(*reactor.Reactor, interface{}) error { return nil }
func (p providerFunc) Uninit()                                  {}
func (p providerFunc) NewHandler(global interface{}) Handler {
	return p.newHandler(global)
}

// ProviderFunc returns a Provider with no shared state, creating each
// connection's handler with newHandler.
func ProviderFunc(newHandler func(global interface{}) Handler) Provider {
	return providerFunc{newHandler: newHandler}
}
