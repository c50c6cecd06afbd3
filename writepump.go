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
	"net"
	"sync"
	"time"

	"go.uber.org/seqwire/internal/bufferpool"
	"go.uber.org/seqwire/reactor"
)

// writePump owns the write side of one socket, mirroring readPump on
// the read side. The reactor queues outgoing bytes and moves on; the
// pump performs the blocking writes, so a peer that stops reading
// backs up only its own connection while the reactor keeps servicing
// the rest. A write failure closes the socket and is posted back to
// the reactor as a task.
type writePump struct {
	conn    net.Conn
	timeout time.Duration

	mu      sync.Mutex
	queued  []*bytes.Buffer
	closing bool
	aborted bool
	wake    chan struct{}
}

func newWritePump(conn net.Conn, timeout time.Duration, r *reactor.Reactor, onErr func(error)) *writePump {
	w := &writePump{
		conn:    conn,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
	}
	go w.loop(r, onErr)
	return w
}

// enqueue schedules a pooled buffer's bytes for writing and takes
// ownership of the buffer; the pump returns it to the pool after the
// write. It never blocks. Buffers enqueued after close are discarded.
func (w *writePump) enqueue(buf *bytes.Buffer) {
	w.mu.Lock()
	if w.closing {
		w.mu.Unlock()
		bufferpool.Put(buf)
		return
	}
	w.queued = append(w.queued, buf)
	w.mu.Unlock()
	w.notify()
}

// close drains the writes already queued, then closes the socket and
// exits. Each drained write is still bounded by the write timeout.
func (w *writePump) close() {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
	w.notify()
}

// abort closes the socket immediately, failing any write in progress,
// and discards everything still queued.
func (w *writePump) abort() {
	w.mu.Lock()
	w.closing = true
	w.aborted = true
	w.mu.Unlock()
	_ = w.conn.Close()
	w.notify()
}

func (w *writePump) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writePump) loop(r *reactor.Reactor, onErr func(error)) {
	for {
		w.mu.Lock()
		for len(w.queued) == 0 && !w.closing {
			w.mu.Unlock()
			<-w.wake
			w.mu.Lock()
		}
		queued := w.queued
		w.queued = nil
		closing := w.closing
		aborted := w.aborted
		w.mu.Unlock()

		for i, buf := range queued {
			var err error
			if !aborted {
				err = w.write(buf.Bytes())
			}
			bufferpool.Put(buf)
			if err != nil {
				for _, rest := range queued[i+1:] {
					bufferpool.Put(rest)
				}
				_ = w.conn.Close()
				r.Submit(func() { onErr(err) })
				return
			}
		}
		if closing {
			_ = w.conn.Close()
			return
		}
	}
}

func (w *writePump) write(b []byte) error {
	if w.timeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	if _, err := w.conn.Write(b); err != nil {
		return classifyIOError(err)
	}
	return nil
}
