// Package observability exposes Prometheus metrics for the postback engine.
//
// Metrics cover the full admission pipeline (authentication, rate
// limiting, validation, suspicion scoring) and the economy mutations
// behind it, so a dashboard can tell an exploit wave from a game-server
// bug without reading the audit log.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Postback Pipeline Metrics ──────────────────────────────────────────────

// PostbacksTotal counts inbound postbacks by kind and outcome.
// Outcomes: accepted, unauthorized, rate_limited, suspicious,
// not_registered, insufficient_funds, bounty_unavailable, unknown_kind,
// internal_error.
var PostbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dragonfall",
	Subsystem: "postback",
	Name:      "requests_total",
	Help:      "Inbound postbacks by kind and outcome.",
}, []string{"kind", "outcome"})

// SuspicionScore observes the score distribution of suspicion rejections.
var SuspicionScore = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "dragonfall",
	Subsystem: "postback",
	Name:      "suspicion_score",
	Help:      "Suspicion scores of rejected payloads.",
	Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
})

// RateLimited counts admissions refused by the limiter, by surface.
var RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dragonfall",
	Subsystem: "postback",
	Name:      "rate_limited_total",
	Help:      "Requests refused by the rate limiter, by surface.",
}, []string{"surface"})

// ─── Economy Metrics ────────────────────────────────────────────────────────

// DrogonsCredited totals Drogons credited to player ledgers, by kind.
var DrogonsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dragonfall",
	Subsystem: "economy",
	Name:      "drogons_credited_total",
	Help:      "Drogons credited to player ledgers, by postback kind.",
}, []string{"kind"})

// DrogonsDebited totals Drogons successfully debited from player ledgers.
var DrogonsDebited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dragonfall",
	Subsystem: "economy",
	Name:      "drogons_debited_total",
	Help:      "Drogons debited from player ledgers by accepted spends.",
})

// BountyClaims counts bounty claim attempts by result (won, lost).
var BountyClaims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dragonfall",
	Subsystem: "economy",
	Name:      "bounty_claims_total",
	Help:      "Bounty claim attempts by result.",
}, []string{"result"})

// AuditEventsDropped counts audit events dropped by a full sink buffer.
var AuditEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "dragonfall",
	Subsystem: "audit",
	Name:      "events_dropped_total",
	Help:      "Audit events dropped because the sink buffer was full.",
})
