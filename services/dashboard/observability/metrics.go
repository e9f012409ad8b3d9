// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the dashboard
// service: request counters per endpoint, probe latency histograms, and
// gauges tracking the aggregated stack state.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stackdash/stackdash/services/dashboard/setup"
)

// Namespace for all metrics.
const metricsNamespace = "stackdash"

// Subsystem for readiness aggregation metrics.
const setupSubsystem = "setup"

// SetupMetrics holds the Prometheus metrics for readiness aggregation.
//
// Initialize once at startup via NewSetupMetrics and pass the instance to
// the handlers; promauto registers on the default registry.
type SetupMetrics struct {
	// RequestsTotal counts readiness API requests.
	// Labels: endpoint (prerequisites, steps, status, services), status
	// (success, error).
	RequestsTotal *prometheus.CounterVec

	// AggregationSeconds observes how long one full aggregation round
	// takes, per aggregator.
	AggregationSeconds *prometheus.HistogramVec

	// ServicesOperational tracks how many services classified operational
	// in the latest poll.
	ServicesOperational prometheus.Gauge

	// PrerequisitesMissing tracks how many required prerequisites were
	// missing in the latest poll.
	PrerequisitesMissing prometheus.Gauge
}

// NewSetupMetrics creates and registers the readiness metrics.
func NewSetupMetrics() *SetupMetrics {
	return &SetupMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: setupSubsystem,
			Name:      "requests_total",
			Help:      "Readiness API requests by endpoint and outcome.",
		}, []string{"endpoint", "status"}),
		AggregationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: setupSubsystem,
			Name:      "aggregation_seconds",
			Help:      "Duration of one aggregation round.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"aggregator"}),
		ServicesOperational: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: setupSubsystem,
			Name:      "services_operational",
			Help:      "Services classified operational in the latest poll.",
		}),
		PrerequisitesMissing: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: setupSubsystem,
			Name:      "prerequisites_missing",
			Help:      "Required prerequisites missing in the latest poll.",
		}),
	}
}

// ObserveRequest records one API request outcome.
func (m *SetupMetrics) ObserveRequest(endpoint string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObserveAggregation records the duration of one aggregation round.
func (m *SetupMetrics) ObserveAggregation(aggregator string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AggregationSeconds.WithLabelValues(aggregator).Observe(elapsed.Seconds())
}

// RecordServiceStatuses updates the operational gauge from a poll result.
func (m *SetupMetrics) RecordServiceStatuses(statuses []setup.ServiceStatus) {
	if m == nil {
		return
	}
	operational := 0
	for _, s := range statuses {
		if s.State == setup.StateOperational {
			operational++
		}
	}
	m.ServicesOperational.Set(float64(operational))
}

// RecordPrerequisites updates the missing-prerequisites gauge.
func (m *SetupMetrics) RecordPrerequisites(prereqs []setup.Prerequisite) {
	if m == nil {
		return
	}
	missing := 0
	for _, p := range prereqs {
		if p.Required && p.Status != setup.StatusInstalled {
			missing++
		}
	}
	m.PrerequisitesMissing.Set(float64(missing))
}
