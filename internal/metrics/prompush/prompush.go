// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the common migration labels (phase, status, entity, kind) onto
//     Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead of
//     exposing an HTTP scrape endpoint, since migration runs are short-lived
//     batch jobs.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can swap
// to alternative backends (e.g. Datadog, StatsD) without changes to the core
// migration engine.
package prompush

import (
	"fmt"

	"dumpmigrate/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	// Phase-level metrics
	phaseCounter  *prometheus.CounterVec // "migrate_phase_total"
	phaseDuration *prometheus.SummaryVec // "migrate_phase_duration_seconds"

	// Record-level metrics
	recordCounter *prometheus.CounterVec // "migrate_records_total"
	batchCounter  *prometheus.CounterVec // "migrate_batches_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (often the tenant or run identifier).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "migrate"
	}

	reg := prometheus.NewRegistry()

	// phase and status are dynamic labels; the tenant rides along as the
	// Pushgateway "job" grouping key rather than a per-series label.
	phaseCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migrate_phase_total",
			Help: "Total number of migration phase executions, partitioned by phase and status.",
		},
		[]string{"phase", "status"},
	)
	phaseDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "migrate_phase_duration_seconds",
			Help:       "Duration of migration phases in seconds, partitioned by phase and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"phase", "status"},
	)

	// RECORD metrics: entity (members, staff, packages) and kind
	// (parsed, planned, skipped, duplicate, written, ...).
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migrate_records_total",
			Help: "Record-level counts per entity and kind (planned, skipped, written, etc.).",
		},
		[]string{"entity", "kind"},
	)

	// BATCH metrics: upsert batches flushed per entity.
	batchCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migrate_batches_total",
			Help: "Total number of upsert batches attempted per entity.",
		},
		[]string{"entity"},
	)

	if err := reg.Register(phaseCounter); err != nil {
		return nil, fmt.Errorf("prompush: register phase counter: %w", err)
	}
	if err := reg.Register(phaseDuration); err != nil {
		return nil, fmt.Errorf("prompush: register phase summary: %w", err)
	}
	if err := reg.Register(recordCounter); err != nil {
		return nil, fmt.Errorf("prompush: register record counter: %w", err)
	}
	if err := reg.Register(batchCounter); err != nil {
		return nil, fmt.Errorf("prompush: register batch counter: %w", err)
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		phaseCounter:  phaseCounter,
		phaseDuration: phaseDuration,
		recordCounter: recordCounter,
		batchCounter:  batchCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "migrate_phase_total":
		if b.phaseCounter == nil {
			return
		}
		phase := labels["phase"]
		status := labels["status"]
		b.phaseCounter.WithLabelValues(phase, status).Add(delta)

	case "migrate_records_total":
		if b.recordCounter == nil {
			return
		}
		entity := labels["entity"]
		kind := labels["kind"]
		b.recordCounter.WithLabelValues(entity, kind).Add(delta)

	case "migrate_batches_total":
		if b.batchCounter == nil {
			return
		}
		entity := labels["entity"]
		b.batchCounter.WithLabelValues(entity).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "migrate_phase_duration_seconds" || b.phaseDuration == nil {
		return
	}
	phase := labels["phase"]
	status := labels["status"]
	b.phaseDuration.WithLabelValues(phase, status).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
