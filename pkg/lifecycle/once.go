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

// Package lifecycle provides an at-most-once start/stop gate for
// objects that advance monotonically through lifecycle states.
package lifecycle

import (
	"sync"

	"go.uber.org/atomic"
)

// State represents the states a lifecycle object can be in.
type State int32

const (
	// Idle indicates the object hasn't been operated on yet.
	Idle State = iota

	// Running indicates the object started successfully.
	Running

	// Stopped indicates the object has been stopped.
	Stopped

	// Errored indicates that start or stop failed and the object is
	// unusable.
	Errored
)

var stateToName = map[State]string{
	Idle:    "idle",
	Running: "running",
	Stopped: "stopped",
	Errored: "errored",
}

// String returns the name of the state.
func (s State) String() string {
	if name, ok := stateToName[s]; ok {
		return name
	}
	return "unknown"
}

// Once guards an object's start and stop work so each runs at most
// once, concurrent callers observe the first call's error, and stop
// pre-empts a start that never happened.
type Once struct {
	mu       sync.Mutex
	state    atomic.Int32
	startErr error
	stopErr  error
}

// NewOnce returns a lifecycle gate in the Idle state.
func NewOnce() *Once {
	return &Once{}
}

// Start runs f at most once and transitions to Running on success,
// Errored on failure. Later calls, and calls racing the first, return
// the first call's error. Start after Stop returns nil without
// running f.
func (o *Once) Start(f func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.State() {
	case Idle:
	case Running, Errored:
		return o.startErr
	default:
		return nil
	}
	var err error
	if f != nil {
		err = f()
	}
	o.startErr = err
	if err != nil {
		o.state.Store(int32(Errored))
		return err
	}
	o.state.Store(int32(Running))
	return nil
}

// Stop runs f at most once, after a successful Start, and transitions
// to Stopped (or Errored if f fails). Stop on an Idle gate marks it
// Stopped without running f, so a racing Start becomes a no-op.
func (o *Once) Stop(f func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.State() {
	case Idle:
		o.state.Store(int32(Stopped))
		return nil
	case Running:
	default:
		return o.stopErr
	}
	var err error
	if f != nil {
		err = f()
	}
	o.stopErr = err
	if err != nil {
		o.state.Store(int32(Errored))
		return err
	}
	o.state.Store(int32(Stopped))
	return nil
}

// State returns the current lifecycle state.
func (o *Once) State() State {
	return State(o.state.Load())
}

// IsRunning reports whether the object started and has not stopped.
func (o *Once) IsRunning() bool {
	return o.State() == Running
}
