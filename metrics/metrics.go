// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Polls
	MetricPollsCreated = "polls_created_total"
	// Votes
	MetricVotesCast     = "votes_cast_total"
	MetricVotesRejected = "votes_rejected_total"
	// Results
	MetricRefreshFailures = "results_refresh_failures_total"
	MetricComputeDuration = "results_compute_duration_seconds"
	// Identity
	MetricIdentityVerifications = "identity_verifications_total"
	// HTTP
	MetricRateLimited = "http_rate_limited_total"
)

// Identity verification outcomes
const (
	OutcomeValid       = "valid"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
)

// MetricService owns a private registry so several instances can coexist
// (one per test server). A nil *MetricService is a no-op.
type MetricService struct {
	registry *prometheus.Registry

	pollsCreated          prometheus.Counter
	votesCast             prometheus.Counter
	votesRejected         *prometheus.CounterVec
	refreshFailures       prometheus.Counter
	computeDuration       prometheus.Histogram
	identityVerifications *prometheus.CounterVec
	rateLimited           *prometheus.CounterVec
}

func NewMetricService() *MetricService {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricService{registry: reg}

	m.pollsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricPollsCreated,
		Help: "Polls created",
	})
	m.votesCast = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricVotesCast,
		Help: "Votes recorded",
	})
	m.votesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricVotesRejected,
		Help: "Vote attempts rejected, by reason",
	}, []string{"reason"})
	m.refreshFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricRefreshFailures,
		Help: "Cached result refreshes that failed after a committed vote",
	})
	m.computeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricComputeDuration,
		Help:    "Duration of one result aggregation",
		Buckets: prometheus.DefBuckets,
	})
	m.identityVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricIdentityVerifications,
		Help: "Identity verifications, by outcome",
	}, []string{"outcome"})
	m.rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricRateLimited,
		Help: "Requests rejected by a rate limiter, by limiter",
	}, []string{"limiter"})

	reg.MustRegister(
		m.pollsCreated,
		m.votesCast,
		m.votesRejected,
		m.refreshFailures,
		m.computeDuration,
		m.identityVerifications,
		m.rateLimited,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Polls
func (m *MetricService) IncPollsCreated() {
	if m == nil {
		return
	}
	m.pollsCreated.Inc()
}

// Votes
func (m *MetricService) IncVotesCast() {
	if m == nil {
		return
	}
	m.votesCast.Inc()
}

func (m *MetricService) IncVotesRejected(reason string) {
	if m == nil {
		return
	}
	m.votesRejected.WithLabelValues(reason).Inc()
}

// Results
func (m *MetricService) IncRefreshFailures() {
	if m == nil {
		return
	}
	m.refreshFailures.Inc()
}

func (m *MetricService) ObserveComputeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.computeDuration.Observe(d.Seconds())
}

// Identity
func (m *MetricService) IncIdentityVerifications(outcome string) {
	if m == nil {
		return
	}
	m.identityVerifications.WithLabelValues(outcome).Inc()
}

// HTTP
func (m *MetricService) IncRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(limiter).Inc()
}

// Counters exposed for assertions in tests.

func (m *MetricService) PollsCreated() prometheus.Counter   { return m.pollsCreated }
func (m *MetricService) VotesCast() prometheus.Counter      { return m.votesCast }
func (m *MetricService) RefreshFailures() prometheus.Counter { return m.refreshFailures }

func (m *MetricService) VotesRejected(reason string) prometheus.Counter {
	return m.votesRejected.WithLabelValues(reason)
}

func (m *MetricService) IdentityVerifications(outcome string) prometheus.Counter {
	return m.identityVerifications.WithLabelValues(outcome)
}

func (m *MetricService) RateLimited(limiter string) prometheus.Counter {
	return m.rateLimited.WithLabelValues(limiter)
}
