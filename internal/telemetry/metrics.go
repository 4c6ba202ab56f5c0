// Package telemetry defines the Prometheus metrics exported by rewardbook.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── Store ───────────────────────────────────────────────────────────────────

	DocumentWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "store",
		Name:      "document_writes_total",
		Help:      "Total whole-document writes.",
	})

	Migrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "store",
		Name:      "migrations_total",
		Help:      "Schema upgrades applied on read, labelled by source (stored or legacy).",
	}, []string{"source"})

	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "store",
		Name:      "imports_total",
		Help:      "Import attempts, labelled by result (success, conflict, invalid, error).",
	}, []string{"result"})

	// ─── Ledger ──────────────────────────────────────────────────────────────────

	PointsEarned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "ledger",
		Name:      "points_earned_total",
		Help:      "Points credited by completed task executions.",
	})

	PointsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "ledger",
		Name:      "points_spent_total",
		Help:      "Points debited by exchanges.",
	})

	Executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "ledger",
		Name:      "executions_total",
		Help:      "Task execution transitions, labelled by action.",
	}, []string{"action"})

	// ─── HTTP ────────────────────────────────────────────────────────────────────

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labelled by method and status code.",
	}, []string{"method", "code"})

	HTTPDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rewardbook",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method"})

	ClientRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "http",
		Name:      "client_retries_total",
		Help:      "Retried requests made by the HTTP API client.",
	})

	// ─── Background ──────────────────────────────────────────────────────────────

	InboxFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "inbox",
		Name:      "files_total",
		Help:      "Files picked up from the import inbox, labelled by outcome.",
	}, []string{"outcome"})

	Backups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewardbook",
		Subsystem: "backup",
		Name:      "snapshots_total",
		Help:      "Scheduled export snapshots, labelled by result.",
	}, []string{"result"})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rewardbook",
		Subsystem: "events",
		Name:      "websocket_clients",
		Help:      "Connected websocket clients.",
	})
)
