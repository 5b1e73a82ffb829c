// Package metrics exposes the agent's Prometheus collectors. Collectors are
// package level and registered at init, matching how the rest of the code
// reaches for them from any layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shieldagent"

var (
	// SyncCycles counts completed sync cycles by outcome
	// (success, failed, no_network, skipped).
	SyncCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "cycles_total",
		Help:      "Completed sync cycles by outcome.",
	}, []string{"outcome"})

	// SyncRetries counts individual retry attempts.
	SyncRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "retries_total",
		Help:      "Sync retry attempts.",
	})

	// SyncDuration observes wall time of upload cycles.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Duration of sync cycles.",
		Buckets:   prometheus.DefBuckets,
	})

	// Violations counts recorded policy violations by type.
	Violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "violations_total",
		Help:      "Recorded policy violations by type.",
	}, []string{"type"})

	// BlockActions counts block-screen activations by trigger.
	BlockActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enforce",
		Name:      "blocks_total",
		Help:      "Block actions by trigger (block, time_limit, schedule).",
	}, []string{"trigger"})

	// ForegroundEvents counts foreground-app events by kind.
	ForegroundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enforce",
		Name:      "foreground_events_total",
		Help:      "Foreground app events by kind.",
	}, []string{"kind"})

	// PolicyRefreshes counts remote policy pulls by outcome
	// (updated, unchanged, absent, error).
	PolicyRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "policy",
		Name:      "refreshes_total",
		Help:      "Remote policy refreshes by outcome.",
	}, []string{"outcome"})
)
