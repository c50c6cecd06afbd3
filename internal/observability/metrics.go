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

// Package observability instruments seqwire servers and clients.
package observability

import (
	"time"

	"go.uber.org/net/metrics"
	"go.uber.org/net/metrics/bucket"
	"go.uber.org/zap"
)

// Latency buckets for the request histogram.
var _bucketsMs = bucket.NewRPCLatency()

// Metrics holds the counters and histograms one server or client
// maintains. With no metrics scope configured the instruments land on
// a private root that is never exported, so observations are cheap
// no-ops in effect.
type Metrics struct {
	ConnectionsAccepted *metrics.Counter
	ConnectionsClosed   *metrics.Counter
	Requests            *metrics.Counter
	NoReplyRequests     *metrics.Counter
	ErrorResponses      *metrics.Counter
	DeferredIssued      *metrics.Counter
	DeferredResolved    *metrics.Counter
	DeferredDiscarded   *metrics.Counter
	DecodeErrors        *metrics.Counter
	Desyncs             *metrics.Counter
	RequestLatencies    *metrics.Histogram
}

// New registers the seqwire metrics on the given scope. Registration
// failures are logged, not fatal; the affected instrument is replaced
// with one on a discarded root.
func New(scope *metrics.Scope, component string, logger *zap.Logger) *Metrics {
	m := &Metrics{}
	if scope == nil {
		scope = metrics.New().Scope()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tags := metrics.Tags{"component": component}

	counter := func(dst **metrics.Counter, name, help string) {
		spec := metrics.Spec{
			Name:      name,
			Help:      help,
			ConstTags: tags,
		}
		c, err := scope.Counter(spec)
		if err != nil {
			logger.Error("failed to register counter", zap.String("name", name), zap.Error(err))
			c, _ = metrics.New().Scope().Counter(spec)
		}
		*dst = c
	}

	counter(&m.ConnectionsAccepted, "connections_accepted", "Total connections accepted or established.")
	counter(&m.ConnectionsClosed, "connections_closed", "Total connections closed.")
	counter(&m.Requests, "requests", "Total requests decoded.")
	counter(&m.NoReplyRequests, "noreply_requests", "Total fire-and-forget requests decoded.")
	counter(&m.ErrorResponses, "error_responses", "Total error responses sent.")
	counter(&m.DeferredIssued, "deferred_issued", "Total deferred reply tokens issued.")
	counter(&m.DeferredResolved, "deferred_resolved", "Total deferred reply tokens resolved.")
	counter(&m.DeferredDiscarded, "deferred_discarded", "Total resolutions discarded after detach.")
	counter(&m.DecodeErrors, "decode_errors", "Total connections closed on protocol decode errors.")
	counter(&m.Desyncs, "desyncs", "Total client connections closed on response desynchronization.")

	histSpec := metrics.HistogramSpec{
		Spec: metrics.Spec{
			Name:      "request_latency_ms",
			Help:      "Latency distribution from request decode to response flush.",
			ConstTags: tags,
		},
		Unit:    time.Millisecond,
		Buckets: _bucketsMs,
	}
	latencies, err := scope.Histogram(histSpec)
	if err != nil {
		logger.Error("failed to register request latency histogram", zap.Error(err))
		latencies, _ = metrics.New().Scope().Histogram(histSpec)
	}
	m.RequestLatencies = latencies
	return m
}

// ObserveLatency records the elapsed handling time of one request.
func (m *Metrics) ObserveLatency(elapsed time.Duration) {
	m.RequestLatencies.Observe(elapsed)
}
