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

// Package bufferpool maintains pools of byte storage for the encode
// and socket read paths.
package bufferpool

import (
	"bytes"
	"sync"
)

// ChunkSize is the size of the scratch slices handed to socket reads.
const ChunkSize = 64 * 1024

var (
	_buffers = sync.Pool{
		New: func() interface{} {
			return &bytes.Buffer{}
		},
	}
	_chunks = sync.Pool{
		New: func() interface{} {
			b := make([]byte, ChunkSize)
			return &b
		},
	}
)

// Get returns a reset bytes.Buffer from the pool.
func Get() *bytes.Buffer {
	return _buffers.Get().(*bytes.Buffer)
}

// Put resets the buffer and returns it to the pool. The caller must
// not touch the buffer, or any slice obtained from it, afterwards.
func Put(buf *bytes.Buffer) {
	buf.Reset()
	_buffers.Put(buf)
}

// GetChunk returns a ChunkSize scratch slice for a socket read.
func GetChunk() []byte {
	return *(_chunks.Get().(*[]byte))
}

// PutChunk returns a chunk obtained from GetChunk to the pool.
func PutChunk(b []byte) {
	if cap(b) != ChunkSize {
		return
	}
	b = b[:ChunkSize]
	_chunks.Put(&b)
}
