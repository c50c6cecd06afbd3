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

// Package ordering buffers completed responses so a connection flushes
// them to the socket strictly in request arrival order, no matter in
// what order they completed.
package ordering

import (
	"fmt"
	"sort"
)

type slot struct {
	seq   uint64
	ready bool
	body  []byte
}

// Queue maps request sequence numbers to pending or ready reply slots.
//
// Slots are registered in strictly increasing sequence order, which the
// connection guarantees by registering at decode time. Only the
// contiguous prefix of ready slots starting at the lowest outstanding
// sequence number is ever flushed; a ready reply whose predecessor is
// still pending stays buffered.
//
// A Queue is confined to one reactor goroutine and needs no locking.
type Queue struct {
	slots []slot
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Register records a pending slot for seq. Sequence numbers must be
// registered in strictly increasing order; anything else is a bug in
// the caller, not a recoverable condition.
//
// Requests that elicit no response must not be registered at all, or
// the slot would block the flush prefix forever.
func (q *Queue) Register(seq uint64) {
	if n := len(q.slots); n > 0 && q.slots[n-1].seq >= seq {
		panic(fmt.Sprintf("ordering: register seq %d out of order after %d", seq, q.slots[n-1].seq))
	}
	q.slots = append(q.slots, slot{seq: seq})
}

// Complete marks the slot for seq ready with the serialized reply.
// Completing an unregistered or already-completed seq returns false.
func (q *Queue) Complete(seq uint64, body []byte) bool {
	i := sort.Search(len(q.slots), func(i int) bool {
		return q.slots[i].seq >= seq
	})
	if i == len(q.slots) || q.slots[i].seq != seq || q.slots[i].ready {
		return false
	}
	q.slots[i].ready = true
	q.slots[i].body = body
	return true
}

// Flush emits the contiguous run of ready replies starting at the
// oldest outstanding sequence number, in sequence order, and drops the
// emitted slots. It stops at the first slot that is not ready yet.
func (q *Queue) Flush(emit func(seq uint64, body []byte)) {
	i := 0
	for ; i < len(q.slots) && q.slots[i].ready; i++ {
		emit(q.slots[i].seq, q.slots[i].body)
	}
	if i == 0 {
		return
	}
	n := copy(q.slots, q.slots[i:])
	for j := n; j < len(q.slots); j++ {
		q.slots[j] = slot{}
	}
	q.slots = q.slots[:n]
}

// Len returns the number of outstanding slots, ready or not.
func (q *Queue) Len() int {
	return len(q.slots)
}
