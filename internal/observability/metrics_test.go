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

package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

func TestCountersLandOnScope(t *testing.T) {
	root := metrics.New()
	m := New(root.Scope(), "server", zap.NewNop())

	m.Requests.Inc()
	m.Requests.Inc()
	m.Desyncs.Inc()
	m.ObserveLatency(5 * time.Millisecond)

	values := make(map[string]int64)
	for _, snap := range root.Snapshot().Counters {
		require.Equal(t, "server", snap.Tags["component"])
		values[snap.Name] = snap.Value
	}
	assert.Equal(t, int64(2), values["requests"])
	assert.Equal(t, int64(1), values["desyncs"])
	assert.Equal(t, int64(0), values["decode_errors"])
}

func TestNilScopeIsUsable(t *testing.T) {
	m := New(nil, "client", nil)
	require.NotNil(t, m.Requests)
	m.Requests.Inc()
	m.ConnectionsAccepted.Inc()
	m.ObserveLatency(time.Millisecond)
}

func TestDuplicateRegistrationFallsBack(t *testing.T) {
	root := metrics.New()
	scope := root.Scope()
	first := New(scope, "server", zap.NewNop())
	second := New(scope, "server", zap.NewNop())

	// The second registration collides name by name but must still
	// hand back usable instruments.
	require.NotNil(t, second.Requests)
	first.Requests.Inc()
	second.Requests.Inc()
}
