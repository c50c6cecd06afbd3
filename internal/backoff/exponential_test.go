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

package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExponentialValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []ExponentialOption
		ok   bool
	}{
		{name: "defaults", ok: true},
		{name: "zero base", opts: []ExponentialOption{BaseJump(0)}, ok: false},
		{name: "negative min", opts: []ExponentialOption{MinBackoff(-time.Second)}, ok: false},
		{name: "negative max", opts: []ExponentialOption{MaxBackoff(-time.Second)}, ok: false},
		{
			name: "max below min",
			opts: []ExponentialOption{MinBackoff(time.Second), MaxBackoff(time.Millisecond)},
			ok:   false,
		},
		{
			name: "full config",
			opts: []ExponentialOption{
				BaseJump(time.Millisecond),
				MinBackoff(time.Millisecond),
				MaxBackoff(time.Second),
			},
			ok: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExponential(tt.opts...)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDurationStaysInInterval(t *testing.T) {
	strategy, err := NewExponential(
		BaseJump(time.Millisecond),
		MinBackoff(5*time.Millisecond),
		MaxBackoff(100*time.Millisecond),
		randGenerator(func() *rand.Rand {
			return rand.New(rand.NewSource(7))
		}),
	)
	require.NoError(t, err)

	b := strategy.Backoff()
	for attempts := uint(0); attempts < 70; attempts++ {
		d := b.Duration(attempts)
		assert.True(t, d >= 5*time.Millisecond, "attempt %d: %v below min", attempts, d)
		assert.True(t, d <= 100*time.Millisecond, "attempt %d: %v above max", attempts, d)
	}
}

func TestDurationGrowsWithAttempts(t *testing.T) {
	strategy, err := NewExponential(
		BaseJump(time.Millisecond),
		MaxBackoff(time.Hour),
		randGenerator(func() *rand.Rand {
			return rand.New(rand.NewSource(42))
		}),
	)
	require.NoError(t, err)

	b := strategy.Backoff()
	// With full jitter the mean of each attempt is half the spread, so
	// average over enough draws to see the exponential trend.
	mean := func(attempts uint) time.Duration {
		var total time.Duration
		const rounds = 200
		for i := 0; i < rounds; i++ {
			total += b.Duration(attempts)
		}
		return total / rounds
	}
	assert.True(t, mean(8) > mean(2))
}

func TestBackoffInstancesAreIndependent(t *testing.T) {
	strategy, err := NewExponential()
	require.NoError(t, err)
	assert.NotSame(t, strategy.Backoff(), strategy.Backoff())
}

func TestDefaultExponential(t *testing.T) {
	require.NotNil(t, DefaultExponential)
	d := DefaultExponential.Backoff().Duration(0)
	assert.True(t, d >= 0 && d <= 30*time.Second)
}

func TestIsEqual(t *testing.T) {
	a, err := NewExponential(BaseJump(time.Millisecond))
	require.NoError(t, err)
	b, err := NewExponential(BaseJump(time.Millisecond))
	require.NoError(t, err)
	c, err := NewExponential(BaseJump(2 * time.Millisecond))
	require.NoError(t, err)

	assert.True(t, a.IsEqual(b))
	assert.False(t, a.IsEqual(c))
}
