// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event publishing
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_events_published_total",
			Help: "Total number of envelopes appended to a stream",
		},
		[]string{"stream", "event_type"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_event_publish_failures_total",
			Help: "Total number of failed publish attempts",
		},
		[]string{"stream"},
	)

	// Subscriber runtime
	HandlerInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_subscriber_handler_invocations_total",
			Help: "Total number of handler invocations by outcome",
		},
		[]string{"subscriber", "outcome"}, // outcome: success, failure, panic, decode_error
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lute_subscriber_handler_duration_seconds",
			Help:    "Duration of handler invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subscriber"},
	)

	HandlersInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lute_subscriber_handlers_in_flight",
			Help: "Current number of running handler invocations",
		},
		[]string{"subscriber"},
	)

	EntriesAcked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_subscriber_entries_acked_total",
			Help: "Total number of acknowledged stream entries",
		},
		[]string{"subscriber"},
	)

	EntriesReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_subscriber_entries_reclaimed_total",
			Help: "Total number of stale pending entries reclaimed for redelivery",
		},
		[]string{"subscriber"},
	)

	BrokerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_subscriber_broker_errors_total",
			Help: "Total number of broker read/ack/claim errors seen by subscribers",
		},
		[]string{"subscriber", "operation"},
	)

	// Lookups
	LookupsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lute_lookups_created_total",
			Help: "Total number of album search lookups created on a search miss",
		},
	)

	LookupTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_lookup_transitions_total",
			Help: "Total number of lookup state transitions recorded",
		},
		[]string{"status"},
	)

	LookupStatusCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lute_lookup_status_count",
			Help: "Number of stored lookups per status at the last aggregation",
		},
		[]string{"status"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lute_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Embedded storage
	BadgerGCDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lute_badger_gc_duration_seconds",
			Help:    "Duration of BadgerDB value log GC runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	BadgerGCRewrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lute_badger_gc_rewrites_total",
			Help: "Total number of value log files rewritten by GC",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lute_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lute_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordPublish records the result of one publish call.
func RecordPublish(stream, eventType string, err error) {
	if err != nil {
		EventPublishFailures.WithLabelValues(stream).Inc()
		return
	}
	EventsPublished.WithLabelValues(stream, eventType).Inc()
}

// RecordHandlerInvocation records a finished handler invocation.
func RecordHandlerInvocation(subscriber, outcome string, duration time.Duration) {
	HandlerInvocations.WithLabelValues(subscriber, outcome).Inc()
	HandlerDuration.WithLabelValues(subscriber).Observe(duration.Seconds())
}

// TrackHandlerInFlight adjusts the in-flight gauge for a subscriber.
func TrackHandlerInFlight(subscriber string, inc bool) {
	if inc {
		HandlersInFlight.WithLabelValues(subscriber).Inc()
	} else {
		HandlersInFlight.WithLabelValues(subscriber).Dec()
	}
}

// RecordAck records an acknowledged entry.
func RecordAck(subscriber string) {
	EntriesAcked.WithLabelValues(subscriber).Inc()
}

// RecordReclaimed records entries reclaimed by a stale-entry scan.
func RecordReclaimed(subscriber string, count int) {
	if count > 0 {
		EntriesReclaimed.WithLabelValues(subscriber).Add(float64(count))
	}
}

// RecordBrokerError records a broker failure seen by a subscriber loop.
func RecordBrokerError(subscriber, operation string) {
	BrokerErrors.WithLabelValues(subscriber, operation).Inc()
}

// RecordLookupCreated records a lookup created on a search miss.
func RecordLookupCreated() {
	LookupsCreated.Inc()
}

// RecordLookupTransition records a lookup written with the given status.
func RecordLookupTransition(status string) {
	LookupTransitions.WithLabelValues(status).Inc()
}

// UpdateLookupStatusCounts replaces the per-status gauge values.
func UpdateLookupStatusCounts(counts map[string]int) {
	LookupStatusCount.Reset()
	for status, count := range counts {
		LookupStatusCount.WithLabelValues(status).Set(float64(count))
	}
}

// RecordCircuitBreakerTransition records a breaker state change.
// States are encoded as 0=closed, 1=half-open, 2=open.
func RecordCircuitBreakerTransition(name, from, to string, toValue float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(toValue)
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordBadgerGC records one value log GC pass.
func RecordBadgerGC(duration time.Duration, rewrites int) {
	BadgerGCDuration.Observe(duration.Seconds())
	if rewrites > 0 {
		BadgerGCRewrites.Add(float64(rewrites))
	}
}
