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

// Package seqwireerrors classifies the errors the seqwire framework
// produces and consumes.
//
// Every error the framework hands to user code, writes to a peer as an
// error response, or logs on a connection teardown path is a *Status
// carrying one of the Codes defined in this package. The code decides
// the connection's fate: decode, timeout, and desync errors close the
// connection; backend errors travel the normal reply path and leave
// the connection open.
package seqwireerrors

import (
	"bytes"
	"errors"
	"fmt"
)

// Newf returns a new Status.
//
// The Code should never be CodeOK, if it is, this will return nil.
func Newf(code Code, format string, args ...interface{}) *Status {
	if code == CodeOK {
		return nil
	}

	var err error
	if len(args) == 0 {
		err = errors.New(format)
	} else {
		err = fmt.Errorf(format, args...)
	}

	return &Status{
		code: code,
		err:  err,
	}
}

// Status represents a classified seqwire error.
type Status struct {
	code Code
	err  error
}

// FromError returns the Status for the provided error.
//
// If the error:
//   - is nil, return nil
//   - is a 'Status', return the 'Status'
//
// Otherwise, return a wrapped error with code 'CodeUnknown'.
func FromError(err error) *Status {
	if err == nil {
		return nil
	}
	var st *Status
	if errors.As(err, &st) {
		return st
	}
	return &Status{
		code: CodeUnknown,
		err:  err,
	}
}

// IsStatus returns whether the provided error is a seqwire Status,
// including wrapped errors. This is false if the error is nil.
func IsStatus(err error) bool {
	var st *Status
	return errors.As(err, &st)
}

// WrapWithCode reclassifies err under the given code, keeping the
// original error available through Unwrap.
func WrapWithCode(code Code, err error) *Status {
	if err == nil {
		return nil
	}
	return &Status{
		code: code,
		err:  err,
	}
}

// Code returns the error code for this Status.
func (s *Status) Code() Code {
	if s == nil {
		return CodeOK
	}
	return s.code
}

// Message returns the error message for this Status.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.err.Error()
}

// Error implements the error interface.
func (s *Status) Error() string {
	buffer := bytes.NewBuffer(nil)
	_, _ = buffer.WriteString(`code:`)
	_, _ = buffer.WriteString(s.code.String())
	_, _ = buffer.WriteString(` message:`)
	_, _ = buffer.WriteString(s.err.Error())
	return buffer.String()
}

// Unwrap supports errors.Unwrap.
func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return s.err
}

// ErrorCode returns the Code for the given error. nil maps to CodeOK
// and an unclassified error maps to CodeUnknown.
func ErrorCode(err error) Code {
	if err == nil {
		return CodeOK
	}
	return FromError(err).Code()
}

// DecodeErrorf returns a new Status with code CodeDecode.
func DecodeErrorf(format string, args ...interface{}) *Status {
	return Newf(CodeDecode, format, args...)
}

// BackendErrorf returns a new Status with code CodeBackend.
func BackendErrorf(format string, args ...interface{}) *Status {
	return Newf(CodeBackend, format, args...)
}

// TimeoutErrorf returns a new Status with code CodeTimeout.
func TimeoutErrorf(format string, args ...interface{}) *Status {
	return Newf(CodeTimeout, format, args...)
}

// DesyncErrorf returns a new Status with code CodeDesync.
func DesyncErrorf(format string, args ...interface{}) *Status {
	return Newf(CodeDesync, format, args...)
}

// ExhaustedErrorf returns a new Status with code CodeExhausted.
func ExhaustedErrorf(format string, args ...interface{}) *Status {
	return Newf(CodeExhausted, format, args...)
}

// ClosedErrorf returns a new Status with code CodeClosed.
func ClosedErrorf(format string, args ...interface{}) *Status {
	return Newf(CodeClosed, format, args...)
}

// IsDecode returns true if ErrorCode(err) == CodeDecode.
func IsDecode(err error) bool {
	return ErrorCode(err) == CodeDecode
}

// IsBackend returns true if ErrorCode(err) == CodeBackend.
func IsBackend(err error) bool {
	return ErrorCode(err) == CodeBackend
}

// IsTimeout returns true if ErrorCode(err) == CodeTimeout.
func IsTimeout(err error) bool {
	return ErrorCode(err) == CodeTimeout
}

// IsDesync returns true if ErrorCode(err) == CodeDesync.
func IsDesync(err error) bool {
	return ErrorCode(err) == CodeDesync
}

// IsExhausted returns true if ErrorCode(err) == CodeExhausted.
func IsExhausted(err error) bool {
	return ErrorCode(err) == CodeExhausted
}

// IsClosed returns true if ErrorCode(err) == CodeClosed.
func IsClosed(err error) bool {
	return ErrorCode(err) == CodeClosed
}
