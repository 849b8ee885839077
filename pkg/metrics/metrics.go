// Copyright 2025 Bidwell Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics provides Prometheus metrics for the pricing engine:
// cache effectiveness, external read volume, and recommendation
// outcomes. In CLI form these mostly matter for tests and debugging; in
// service form they are the operational surface.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Value kind labels for cache metrics.
const (
	ValueKindDemandPrice = "demand_price"
	ValueKindSpotPrice   = "spot_price"
)

// Recommendation outcome labels.
const (
	OutcomeSpot     = "spot"
	OutcomeOnDemand = "on-demand"
	OutcomeReserved = "reserved"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the pricing engine.
type Metrics struct {
	// CacheLookups counts decision-cache accesses.
	// Labels: value_kind (demand_price|spot_price), result (hit|miss)
	CacheLookups *prometheus.CounterVec

	// ExternalReads counts reads against external collaborators.
	// Labels: collaborator (catalog|market|reservations)
	ExternalReads *prometheus.CounterVec

	// ExternalReadErrors counts failed reads against external
	// collaborators. Labels: collaborator
	ExternalReadErrors *prometheus.CounterVec

	// Recommendations counts decisions by outcome.
	// Labels: outcome (spot|on-demand|reserved|error)
	Recommendations *prometheus.CounterVec

	// DecisionDuration observes end-to-end recommendation latency.
	DecisionDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics on the given registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidwell_cache_lookups_total",
				Help: "Decision cache accesses by value kind and result.",
			},
			[]string{"value_kind", "result"},
		),
		ExternalReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidwell_external_reads_total",
				Help: "Reads issued to external pricing collaborators.",
			},
			[]string{"collaborator"},
		),
		ExternalReadErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidwell_external_read_errors_total",
				Help: "Failed reads against external pricing collaborators.",
			},
			[]string{"collaborator"},
		),
		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidwell_recommendations_total",
				Help: "Pricing recommendations by outcome.",
			},
			[]string{"outcome"},
		),
		DecisionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bidwell_decision_duration_seconds",
				Help:    "End-to-end recommendation latency.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		m.CacheLookups,
		m.ExternalReads,
		m.ExternalReadErrors,
		m.Recommendations,
		m.DecisionDuration,
	)
	return m
}

// CacheLookupHook returns a callback for the decision cache's lookup
// hook. Cache keys end with the value kind, so the hook labels each
// access by the key's last segment.
func (m *Metrics) CacheLookupHook() func(key string, hit bool) {
	return func(key string, hit bool) {
		kind := key
		if i := strings.LastIndex(key, ":"); i >= 0 {
			kind = key[i+1:]
		}
		m.ObserveCacheLookup(kind, hit)
	}
}

// ObserveCacheLookup records one cache access.
func (m *Metrics) ObserveCacheLookup(valueKind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(valueKind, result).Inc()
}

// ObserveExternalRead records one read against a collaborator and, when
// err is non-nil, its failure.
func (m *Metrics) ObserveExternalRead(collaborator string, err error) {
	m.ExternalReads.WithLabelValues(collaborator).Inc()
	if err != nil {
		m.ExternalReadErrors.WithLabelValues(collaborator).Inc()
	}
}
