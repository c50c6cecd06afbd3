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

// Package seqwire provides a protocol-agnostic asynchronous RPC core:
// an event-driven server and client with strict per-connection reply
// ordering.
//
// A Server accepts connections and decodes requests through a
// pluggable codec (package api/wire). Each connection gets its own
// handler instance (package api/service) running on a single reactor
// goroutine. A handler answers a request immediately, or takes a
// deferred reply token, starts an asynchronous operation, and resolves
// the token later, from any goroutine. However handlers complete,
// responses reach the peer strictly in request arrival order: a
// completed response whose predecessor is still pending is buffered,
// never sent early. Fire-and-forget requests occupy no ordering slot.
// Socket reads and writes happen on per-connection pump goroutines, so
// a slow or stalled peer backs up only its own connection.
//
// Closing a connection does not cancel its outstanding deferred
// operations; it detaches them, so their eventual resolutions are
// discarded safely instead of touching dead connection state. A peer
// therefore always observes either well-formed responses in request
// order or a closed connection, never a garbled or reordered response.
//
// A Client issues requests over the same codec machinery and matches
// responses to callbacks in strict FIFO order. It can run standalone,
// driving its own reactor until every queued request is answered, or
// attach to a server's reactor so handlers can make backend calls on
// the goroutine they already run on. A response arriving with no request
// in flight means the stream can no longer be correlated; the client
// treats it as fatal and closes.
package seqwire
