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

// Package framed implements a minimal length-prefixed protocol for the
// seqwire codec interface.
//
// Each unit on the wire is a 4-byte big-endian payload length, one
// flag byte, and the payload. Requests may set the noreply flag;
// responses may set the error flag, in which case the payload is one
// error code byte followed by the message.
//
// The codec exists to exercise and test the framework, not as a
// production protocol.
package framed

import (
	"encoding/binary"

	"go.uber.org/seqwire/api/wire"
	"go.uber.org/seqwire/seqwireerrors"
)

const (
	headerSize = 5

	flagNoReply byte = 1 << 0
	flagError   byte = 1 << 1
)

// MaxPayload caps a frame's payload length. A peer announcing a larger
// frame is desynchronized or malicious, either way a decode error.
const MaxPayload = 16 * 1024 * 1024

// Codec is the framed codec. The zero value is ready to use and safe
// to share between connections.
type Codec struct{}

var _ wire.Codec = Codec{}

// New returns a framed codec.
func New() Codec {
	return Codec{}
}

func split(data []byte) (flags byte, payload []byte, n int, err error) {
	if len(data) < headerSize {
		return 0, nil, 0, nil
	}
	size := binary.BigEndian.Uint32(data)
	if size > MaxPayload {
		return 0, nil, 0, seqwireerrors.DecodeErrorf("frame of %d bytes exceeds max payload %d", size, MaxPayload)
	}
	total := headerSize + int(size)
	if len(data) < total {
		return 0, nil, 0, nil
	}
	return data[4], data[headerSize:total], total, nil
}

// DecodeRequest decodes one request frame.
func (Codec) DecodeRequest(data []byte) (*wire.Request, int, error) {
	flags, payload, n, err := split(data)
	if err != nil || n == 0 {
		return nil, 0, err
	}
	if flags&flagError != 0 {
		return nil, 0, seqwireerrors.DecodeErrorf("error flag set on a request frame")
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	return &wire.Request{
		Body:    body,
		NoReply: flags&flagNoReply != 0,
	}, n, nil
}

// DecodeResponse decodes one response frame.
func (Codec) DecodeResponse(data []byte) (*wire.Response, int, error) {
	flags, payload, n, err := split(data)
	if err != nil || n == 0 {
		return nil, 0, err
	}
	if flags&flagError != 0 {
		if len(payload) < 1 {
			return nil, 0, seqwireerrors.DecodeErrorf("error frame without a code byte")
		}
		code := seqwireerrors.Code(payload[0])
		return &wire.Response{
			Err: seqwireerrors.Newf(code, "%s", payload[1:]),
		}, n, nil
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	return &wire.Response{Body: body}, n, nil
}

func frame(flags byte, payload []byte) []byte {
	out := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	out[4] = flags
	copy(out[headerSize:], payload)
	return out
}

// EncodeRequest serializes an outbound request payload.
func (Codec) EncodeRequest(body []byte, noreply bool) ([]byte, error) {
	if len(body) > MaxPayload {
		return nil, seqwireerrors.DecodeErrorf("request payload of %d bytes exceeds max payload %d", len(body), MaxPayload)
	}
	var flags byte
	if noreply {
		flags |= flagNoReply
	}
	return frame(flags, body), nil
}

// EncodeResponse serializes a successful response payload.
func (Codec) EncodeResponse(body []byte) ([]byte, error) {
	if len(body) > MaxPayload {
		return nil, seqwireerrors.DecodeErrorf("response payload of %d bytes exceeds max payload %d", len(body), MaxPayload)
	}
	return frame(0, body), nil
}

// EncodeError serializes an application-level error response.
func (Codec) EncodeError(status *seqwireerrors.Status) ([]byte, error) {
	msg := status.Message()
	payload := make([]byte, 1+len(msg))
	payload[0] = byte(status.Code())
	copy(payload[1:], msg)
	return frame(flagError, payload), nil
}
