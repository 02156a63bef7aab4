// Package metrics defines and registers all custom Prometheus metrics for the
// admin console. It is the single source of truth for metric names, labels,
// and help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionResolutionsTotal counts resolved identity notifications.
// Label:
//   - outcome: "authenticated", "signed_out", "unauthorized" or "error"
var SessionResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_resolutions_total",
		Help:      "Total number of identity notifications resolved, by outcome.",
	},
	[]string{"outcome"},
)

// SessionState is 1 for the state the published session is in, 0 otherwise.
// Label:
//   - state: "loading", "unauthenticated" or "authenticated"
var SessionState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_state",
		Help:      "Current session state (1 for the active state).",
	},
	[]string{"state"},
)

// FailuresTotal counts errors the core swallowed or failed closed on.
// Label:
//   - op: where it happened (e.g. "session.resolve", "session.heal", "cache.invalidate")
var FailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "Total number of reported non-fatal failures, by operation.",
	},
	[]string{"op"},
)

// ── Registry metrics ──────────────────────────────────────────────────────────

// CacheLookupsTotal counts registry cache lookups.
// Labels:
//   - resource: "list" or "user"
//   - result: "hit", "miss" or "bypass"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of registry cache lookups, by resource and result.",
	},
	[]string{"resource", "result"},
)

// RegistryMutationsTotal counts registry writes.
// Labels:
//   - op: "create", "update_role", "delete" or "heal"
//   - result: "ok" or "error"
var RegistryMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registry_mutations_total",
		Help:      "Total number of user registry writes, by operation and result.",
	},
	[]string{"op", "result"},
)
