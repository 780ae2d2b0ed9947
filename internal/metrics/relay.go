// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for the relay daemon.
// Labels stay low-cardinality: no candidate ids, run ids or URLs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ControllerState is one-hot across all controller states.
	ControllerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_controller_state",
		Help: "Current controller state (active state=1, others 0)",
	}, []string{"state"})

	// TransitionsTotal counts real state changes.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_controller_transitions_total",
		Help: "Total number of controller state transitions, by from and to state",
	}, []string{"from", "to"})

	// RunsTotal counts controller runs by how they ended.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_controller_runs_total",
		Help: "Total number of controller runs, by outcome (stopped, fatal)",
	}, []string{"outcome"})

	// ScansTotal counts full candidate scans by result.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_scans_total",
		Help: "Total number of candidate scans, by result (hit, miss, aborted)",
	}, []string{"result"})

	// LocatorLookupsTotal counts individual candidate lookups.
	LocatorLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_locator_lookups_total",
		Help: "Total number of locator lookups, by backend and result (live, offline, error, limited)",
	}, []string{"backend", "result"})

	// LocatorLookupDuration tracks lookup latency per backend.
	LocatorLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_locator_lookup_duration_seconds",
		Help:    "Locator lookup latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"backend"})

	// IngestProvisionTotal counts ingest provider calls by step and result.
	IngestProvisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_ingest_provision_total",
		Help: "Total number of ingest provisioning steps, by step (endpoint, broadcast) and result",
	}, []string{"step", "result"})

	// BreakerState is one-hot across breaker positions, per guarded component.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_circuit_breaker_state",
		Help: "Circuit breaker position by component (active state=1, others 0)",
	}, []string{"component", "state"})

	// BreakerTripsTotal counts transitions into the open position.
	BreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips, by component and reason",
	}, []string{"component", "reason"})

	// StatusDropsTotal counts status updates replaced before a slow subscriber read them.
	StatusDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_status_drops_total",
		Help: "Total number of status updates dropped for slow subscribers",
	})
)

// SetControllerState marks state as active and clears every other known state.
func SetControllerState(state string, all []string) {
	oneHot(ControllerState, state, all)
}

// RecordTransition counts a state change.
func RecordTransition(from, to string) {
	TransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRun counts a finished controller run.
func RecordRun(outcome string) {
	RunsTotal.WithLabelValues(outcome).Inc()
}

// RecordScan counts a finished candidate scan.
func RecordScan(result string) {
	ScansTotal.WithLabelValues(result).Inc()
}

// RecordLocatorLookup counts a lookup and observes its latency.
func RecordLocatorLookup(backend, result string, seconds float64) {
	LocatorLookupsTotal.WithLabelValues(backend, result).Inc()
	LocatorLookupDuration.WithLabelValues(backend).Observe(seconds)
}

// RecordIngestProvision counts an ingest provisioning step.
func RecordIngestProvision(step, result string) {
	IngestProvisionTotal.WithLabelValues(step, result).Inc()
}

// IncStatusDrop records a status update dropped for a slow subscriber.
func IncStatusDrop() {
	StatusDropsTotal.Inc()
}

var breakerStates = []string{"closed", "half-open", "open"}

// SetBreakerState records the active breaker position for component.
func SetBreakerState(component, state string) {
	oneHot(BreakerState.MustCurryWith(prometheus.Labels{"component": component}), state, breakerStates)
}

// RecordBreakerTrip counts a breaker opening.
func RecordBreakerTrip(component, reason string) {
	BreakerTripsTotal.WithLabelValues(component, reason).Inc()
}

// oneHot sets the gauge for active to 1 and every other label value to 0.
func oneHot(g *prometheus.GaugeVec, active string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == active {
			v = 1
		}
		g.WithLabelValues(s).Set(v)
	}
}
