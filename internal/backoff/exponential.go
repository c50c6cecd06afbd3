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

// Package backoff implements the full-jitter exponential backoff used
// to pace client reconnect attempts.
package backoff

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/seqwire/api/backoff"
)

// ExponentialOption defines options that can be applied to an
// exponential backoff strategy.
type ExponentialOption func(*exponentialOptions)

type exponentialOptions struct {
	base, min, max time.Duration
	newRand        func() *rand.Rand
}

func (e exponentialOptions) validate() (err error) {
	if e.base <= 0 {
		err = multierr.Append(err, errors.New("invalid base for exponential backoff, need greater than zero"))
	}
	if e.min < 0 {
		err = multierr.Append(err, errors.New("invalid min for exponential backoff, need greater than or equal to zero"))
	}
	if e.max < 0 {
		err = multierr.Append(err, errors.New("invalid max for exponential backoff, need greater than or equal to zero"))
	}
	if e.max < e.min {
		err = multierr.Append(err, errors.New("exponential max value must be greater than min value"))
	}
	return err
}

var defaultExponentialOpts = exponentialOptions{
	base: 10 * time.Millisecond,
	max:  30 * time.Second,
	newRand: func() *rand.Rand {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	},
}

// BaseJump sets the first-attempt "jump" the strategy starts from.
func BaseJump(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.base = t
	}
}

// MaxBackoff sets the absolute max time that will ever be returned for
// a backoff.
func MaxBackoff(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.max = t
	}
}

// MinBackoff sets the absolute min time that will ever be returned for
// a backoff.
func MinBackoff(t time.Duration) ExponentialOption {
	return func(options *exponentialOptions) {
		options.min = t
	}
}

// randGenerator is an internal option for overriding the random number
// generator.
func randGenerator(newRand func() *rand.Rand) ExponentialOption {
	return func(options *exponentialOptions) {
		options.newRand = newRand
	}
}

// ExponentialStrategy is a factory for exponential backoff instances,
// each carrying its own random number generator.
type ExponentialStrategy struct {
	opts       exponentialOptions
	minMaxDiff int64
}

var _ backoff.Strategy = (*ExponentialStrategy)(nil)

// NewExponential returns an exponential backoff strategy with full
// jitter: durations are drawn uniformly from [min, min(base<<attempt, max)],
// per the AWS "Full Jitter" scheme.
func NewExponential(opts ...ExponentialOption) (*ExponentialStrategy, error) {
	options := defaultExponentialOpts
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	return &ExponentialStrategy{
		opts:       options,
		minMaxDiff: options.max.Nanoseconds() - options.min.Nanoseconds(),
	}, nil
}

// Backoff returns an exponential backoff instance for the exclusive
// use of one goroutine.
func (e *ExponentialStrategy) Backoff() backoff.Backoff {
	return &exponential{
		strategy: e,
		rand:     e.opts.newRand(),
	}
}

// IsEqual returns whether this strategy has the same base, min, and
// max as the other. Used by configuration tests.
func (e *ExponentialStrategy) IsEqual(other *ExponentialStrategy) bool {
	return e.opts.base == other.opts.base &&
		e.opts.min == other.opts.min &&
		e.opts.max == other.opts.max
}

type exponential struct {
	strategy *ExponentialStrategy
	rand     *rand.Rand
	mu       sync.Mutex
}

// Duration returns how long to wait before the next attempt.
func (e *exponential) Duration(attempts uint) time.Duration {
	opts := e.strategy.opts
	spread := (1 << attempts) * opts.base.Nanoseconds()
	// Either the shift overflowed or we passed the max backoff; clamp
	// to the top of the interval in both cases.
	if spread > e.strategy.minMaxDiff || spread <= 0 {
		spread = e.strategy.minMaxDiff
	}

	e.mu.Lock()
	jitter := e.rand.Int63n(spread + 1)
	e.mu.Unlock()
	return opts.min + time.Duration(jitter)
}

// DefaultExponential is the strategy clients fall back to when no
// reconnect policy is configured.
var DefaultExponential = mustExponential()

func mustExponential() *ExponentialStrategy {
	s, err := NewExponential()
	if err != nil {
		panic(err)
	}
	return s
}
