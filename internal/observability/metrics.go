// Package observability exposes Prometheus metrics for the family ledger.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsAdded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "family_ledger",
		Subsystem: "ledger",
		Name:      "sessions_added_total",
		Help:      "Number of workout sessions logged.",
	}, []string{"user", "exercise"})

	sessionsUndone = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "family_ledger",
		Subsystem: "ledger",
		Name:      "sessions_undone_total",
		Help:      "Number of sessions removed by undo.",
	}, []string{"user"})

	reconciles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "family_ledger",
		Subsystem: "sync",
		Name:      "reconciles_total",
		Help:      "Number of remote snapshots applied to a local ledger.",
	})

	syncFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "family_ledger",
		Subsystem: "sync",
		Name:      "failures_total",
		Help:      "Number of failed sync bridge operations, labeled by operation.",
	}, []string{"op"})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "family_ledger",
		Subsystem: "sync",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful save.",
	})

	connectedFamilies = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "family_ledger",
		Subsystem: "ledger",
		Name:      "connected_families",
		Help:      "Number of families with a live ledger in this process.",
	})
)

func init() {
	prometheus.MustRegister(sessionsAdded, sessionsUndone, reconciles, syncFailures, lastSyncGauge, connectedFamilies)
}

// RecordSessionAdded counts a logged session.
func RecordSessionAdded(user, exercise string) {
	sessionsAdded.WithLabelValues(user, exercise).Inc()
}

// RecordSessionUndone counts an undo that removed a session.
func RecordSessionUndone(user string) {
	sessionsUndone.WithLabelValues(user).Inc()
}

// RecordReconcile counts an applied remote snapshot.
func RecordReconcile() {
	reconciles.Inc()
}

// RecordSyncFailure counts a failed bridge operation.
func RecordSyncFailure(op string) {
	syncFailures.WithLabelValues(op).Inc()
}

// RecordSynced updates the last successful save watermark.
func RecordSynced(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.Set(float64(ts.Unix()))
}

// SetConnectedFamilies reports the number of live ledgers.
func SetConnectedFamilies(n int) {
	connectedFamilies.Set(float64(n))
}
