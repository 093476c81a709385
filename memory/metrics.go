package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jarvis"

// Maintenance kinds used as the "kind" label.
const (
	maintenanceHard = "hard"
	maintenanceSoft = "soft"
)

var (
	// EventsAppended counts events appended to the log by role.
	EventsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "events_appended_total",
			Help:      "Total number of conversation events appended",
		},
		[]string{"role"},
	)

	// EventsStored tracks the current size of the event log.
	EventsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "events",
			Help:      "Number of events currently held in memory",
		},
	)

	// MaintenanceRuns counts maintenance passes by kind (hard, soft).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "maintenance_runs_total",
			Help:      "Total number of maintenance passes",
		},
		[]string{"kind"},
	)

	// EventsEvicted counts system events dropped for age.
	EventsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "events_evicted_total",
			Help:      "Total number of expired system events evicted",
		},
	)

	// EventsConsolidated counts events removed by merging into a group head.
	EventsConsolidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "events_consolidated_total",
			Help:      "Total number of events merged away by consolidation",
		},
	)

	// EventsCompressed counts events whose content was truncated.
	EventsCompressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "events_compressed_total",
			Help:      "Total number of events compressed",
		},
	)

	// ValidationWarnings counts input fields replaced with defaults.
	ValidationWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "validation_warnings_total",
			Help:      "Total number of event fields replaced with defaults",
		},
		[]string{"field"},
	)
)
