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

package seqwireconfig

import (
	"time"

	backoffapi "go.uber.org/seqwire/api/backoff"
	"go.uber.org/seqwire/internal/backoff"
)

// Backoff specifies a connect retry pacing strategy. The only
// supported strategy is "exponential" with full jitter:
//
//	backoff:
//	  exponential:
//	    first: 100ms
//	    max: 30s
type Backoff struct {
	Exponential ExponentialBackoff `config:"exponential"`
}

func (c Backoff) isConfigured() bool {
	return c.Exponential.First > 0 || c.Exponential.Max > 0
}

// Strategy returns the configured backoff strategy.
func (c Backoff) Strategy() (backoffapi.Strategy, error) {
	return c.Exponential.Strategy()
}

// ExponentialBackoff details the exponential with full jitter
// strategy. "first" bounds the possible delay of the first attempt;
// each later attempt doubles the range, never exceeding "max".
type ExponentialBackoff struct {
	First time.Duration `config:"first"`
	Max   time.Duration `config:"max"`
}

// Strategy returns an exponential backoff strategy with the given
// configuration.
func (c ExponentialBackoff) Strategy() (backoffapi.Strategy, error) {
	var opts []backoff.ExponentialOption
	if c.First > 0 {
		opts = append(opts, backoff.BaseJump(c.First))
	}
	if c.Max > 0 {
		opts = append(opts, backoff.MaxBackoff(c.Max))
	}
	return backoff.NewExponential(opts...)
}
