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

package seqwireerrors

import (
	"fmt"
	"strconv"
)

const (
	// CodeOK means no error.
	CodeOK Code = 0

	// CodeUnknown means an unknown error. Errors that carry no
	// classification are converted to this code.
	CodeUnknown Code = 1

	// CodeDecode means the peer sent bytes that do not form a valid
	// protocol unit. The connection is closed with no partial recovery.
	CodeDecode Code = 2

	// CodeBackend means a deferred operation's dependency failed. The
	// error is surfaced to the waiting request as an error response and
	// the connection stays open.
	CodeBackend Code = 3

	// CodeTimeout means a read, write, or connect deadline expired. The
	// connection is forced to close.
	CodeTimeout Code = 4

	// CodeDesync means a client decoded a response with no matching
	// in-flight request. Correlation of any future response is
	// impossible, so the connection is closed.
	CodeDesync Code = 5

	// CodeExhausted means a configured resource bound was hit, for
	// example the cap on in-flight deferred replies.
	CodeExhausted Code = 6

	// CodeClosed means the operation was attempted on a connection that
	// is closing or already closed.
	CodeClosed Code = 7
)

// Code represents the class of a framework error.
type Code int

var (
	codeToString = map[Code]string{
		CodeOK:        "ok",
		CodeUnknown:   "unknown",
		CodeDecode:    "decode",
		CodeBackend:   "backend",
		CodeTimeout:   "timeout",
		CodeDesync:    "desync",
		CodeExhausted: "exhausted",
		CodeClosed:    "closed",
	}
	stringToCode = map[string]Code{
		"ok":        CodeOK,
		"unknown":   CodeUnknown,
		"decode":    CodeDecode,
		"backend":   CodeBackend,
		"timeout":   CodeTimeout,
		"desync":    CodeDesync,
		"exhausted": CodeExhausted,
		"closed":    CodeClosed,
	}
)

// String returns the string representation of the Code.
func (c Code) String() string {
	s, ok := codeToString[c]
	if ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	s, ok := codeToString[c]
	if ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown code: %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	i, ok := stringToCode[string(text)]
	if !ok {
		return fmt.Errorf("unknown code string: %s", string(text))
	}
	*c = i
	return nil
}
