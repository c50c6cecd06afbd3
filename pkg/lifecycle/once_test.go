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

package lifecycle

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartStopOnce(t *testing.T) {
	o := NewOnce()
	starts, stops := 0, 0

	require.NoError(t, o.Start(func() error { starts++; return nil }))
	assert.True(t, o.IsRunning())
	require.NoError(t, o.Start(func() error { starts++; return nil }))
	assert.Equal(t, 1, starts)

	require.NoError(t, o.Stop(func() error { stops++; return nil }))
	assert.Equal(t, Stopped, o.State())
	require.NoError(t, o.Stop(func() error { stops++; return nil }))
	assert.Equal(t, 1, stops)
	assert.False(t, o.IsRunning())
}

func TestStartErrorSticks(t *testing.T) {
	o := NewOnce()
	boom := errors.New("boom")
	assert.Equal(t, boom, o.Start(func() error { return boom }))
	assert.Equal(t, Errored, o.State())
	// The second start returns the original error without running.
	assert.Equal(t, boom, o.Start(func() error { return nil }))
}

func TestStopBeforeStart(t *testing.T) {
	o := NewOnce()
	require.NoError(t, o.Stop(func() error {
		t.Fatal("stop work ran without a start")
		return nil
	}))
	assert.Equal(t, Stopped, o.State())

	// A start after a pre-empting stop is a no-op.
	require.NoError(t, o.Start(func() error {
		t.Fatal("start work ran after stop")
		return nil
	}))
	assert.Equal(t, Stopped, o.State())
}

func TestConcurrentStarts(t *testing.T) {
	o := NewOnce()
	var ran int
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = o.Start(func() error {
				ran++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ran)
	assert.True(t, o.IsRunning())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "unknown", State(99).String())
}
