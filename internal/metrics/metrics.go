// Package metrics exposes Prometheus counters for operational visibility
// into the lifecycle engine: transitions executed, lock contention, session
// conflicts, and autosave coalescing. None of these are invariants the
// system enforces; they are ambient signal for an operator's dashboard.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TransitionsTotal counts lifecycle transitions by name and outcome
	// ("ok", or "error" on failure).
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dmsd",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions executed, by transition name and outcome.",
		},
		[]string{"transition", "outcome"},
	)

	// LockContentionTotal counts AcquireLock calls that failed because the
	// lock was already held by another principal.
	LockContentionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dmsd",
			Name:      "lock_contention_total",
			Help:      "AcquireLock calls rejected because another principal holds the lease.",
		},
	)

	// SessionConflictsTotal counts Login calls that failed because an
	// existing session was active and force was not set.
	SessionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dmsd",
			Name:      "session_conflicts_total",
			Help:      "Login attempts rejected due to an already-active session.",
		},
	)

	// AutosaveSavesTotal counts every SaveContent call marked isAutosave.
	AutosaveSavesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dmsd",
			Name:      "autosave_saves_total",
			Help:      "Autosave SaveContent calls received.",
		},
	)

	// AutosaveAuditedTotal counts autosaves that were coalesced into an
	// audit entry (the 1st, AutosaveCoalesceDecile-th, 2*decile-th, ...).
	AutosaveAuditedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dmsd",
			Name:      "autosave_audited_total",
			Help:      "Autosave SaveContent calls that produced an audit entry.",
		},
	)
)

// Registry bundles the collectors above into a dedicated
// prometheus.Registry, avoiding collisions with the global default registry
// when dmsd is embedded in a larger process.
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		TransitionsTotal,
		LockContentionTotal,
		SessionConflictsTotal,
		AutosaveSavesTotal,
		AutosaveAuditedTotal,
	)
	return r
}
