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

// Package wire defines the codec interface a concrete protocol
// implements to plug into the seqwire framework, and the request and
// response values that cross it.
//
// The framework is protocol agnostic: it moves bytes and orders
// replies; the codec decides what a complete protocol unit looks like.
package wire

import "go.uber.org/seqwire/seqwireerrors"

// Request is one decoded protocol request.
type Request struct {
	// Seq is assigned by the framework at decode time and is monotonic
	// per connection in request arrival order. Codecs leave it zero.
	Seq uint64

	// Body is the opaque protocol payload.
	Body []byte

	// NoReply marks a fire-and-forget request: no response is
	// expected, sent, or ordered for it.
	NoReply bool
}

// Response is one decoded protocol response, seen by clients.
type Response struct {
	// Body is the opaque protocol payload.
	Body []byte

	// Err is set instead of Body when the peer answered with an
	// error response.
	Err *seqwireerrors.Status
}

// Codec parses and serializes one concrete wire protocol.
//
// Decode methods consume from the front of data and report how many
// bytes they used. Returning a nil value with n == 0 and a nil error
// means the buffer does not yet hold a complete protocol unit; the
// connection suspends decoding until more bytes arrive. A non-nil
// error is a protocol error and closes the connection.
//
// Codecs are used from a single reactor goroutine per connection and
// need no internal locking, but one Codec instance may serve many
// connections, so they must not keep per-connection decode state.
type Codec interface {
	// DecodeRequest decodes one request from data.
	DecodeRequest(data []byte) (req *Request, n int, err error)

	// DecodeResponse decodes one response from data.
	DecodeResponse(data []byte) (res *Response, n int, err error)

	// EncodeRequest serializes an outbound request payload.
	EncodeRequest(body []byte, noreply bool) ([]byte, error)

	// EncodeResponse serializes a successful response payload.
	EncodeResponse(body []byte) ([]byte, error)

	// EncodeError serializes an application-level error response.
	EncodeError(status *seqwireerrors.Status) ([]byte, error)
}
