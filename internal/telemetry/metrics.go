// Package telemetry объявляет метрики Prometheus и настройку логгера.
//
// Все метрики регистрируются в реестре по умолчанию и отдаются сервером
// на GET /metrics. Метки ограничены перечислимыми значениями (действие,
// статус, приоритет, шаблон маршрута), чтобы не раздувать кардинальность.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "milkledger"

// Метрики журнала аудита.
//
// AuditEntriesTotal считает добавленные записи по действию.
// ChainVerificationsTotal считает проверки цепочки по результату (valid|invalid),
// ChainIssuesTotal считает найденные нарушения по виду.
var (
	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Total number of audit entries appended to the hash chain, by action.",
		},
		[]string{"action"},
	)

	AuditPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_pruned_total",
			Help:      "Total number of audit entries removed by retention.",
		},
	)

	ChainVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_verifications_total",
			Help:      "Total number of hash chain verifications, by result.",
		},
		[]string{"result"},
	)

	ChainIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_issues_total",
			Help:      "Total number of integrity issues found by verification, by kind.",
		},
		[]string{"kind"},
	)
)

// Метрики очереди синхронизации.
var (
	QueueEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_enqueued_total",
			Help:      "Total number of items placed into the sync queue, by priority.",
		},
		[]string{"priority"},
	)

	QueueTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_transitions_total",
			Help:      "Total number of terminal queue item transitions, by resulting status.",
		},
		[]string{"status"},
	)
)

// Метрики драйвера синхронизации.
//
// SyncPushesTotal считает попытки отправки пакета по результату
// (ok|network_error|rejected). Рост network_error без ok означает,
// что точка сбора работает офлайн.
var (
	SyncPushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_pushes_total",
			Help:      "Total number of batch push attempts, by result.",
		},
		[]string{"result"},
	)

	SyncPushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_push_duration_seconds",
			Help:      "Duration of a single batch push to the remote endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Метрики сервера.
//
// HTTPRequestsTotal и HTTPRequestDuration размечены шаблоном маршрута chi,
// а не сырым URL.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request latencies, by method and route template.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	AuditLogsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_logs_received_total",
			Help:      "Total number of pushed audit entries handled by the server, by result status.",
		},
		[]string{"status"},
	)

	RecordsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_received_total",
			Help:      "Total number of pushed entity records handled by the server, by result status.",
		},
		[]string{"status"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		},
	)

	PanicsRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_recovered_total",
			Help:      "Total number of handler panics converted into 500 responses.",
		},
	)
)
