// File: backend/services/impersonation-service/internal/utils/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impersonation_service_requests_total",
		Help: "The total number of HTTP requests by status code",
	}, []string{"status"})

	// RequestDuration observes HTTP request latency.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "impersonation_service_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SessionsStartedTotal counts impersonation sessions started.
	SessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "impersonation_service_sessions_started_total",
		Help: "The total number of impersonation sessions started",
	})

	// SessionsTerminatedTotal counts terminal transitions by outcome
	// (ended, force_ended, expired).
	SessionsTerminatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impersonation_service_sessions_terminated_total",
		Help: "The total number of impersonation sessions terminated by outcome",
	}, []string{"outcome"})

	// StartRejectedTotal counts rejected start attempts by reason
	// (not_found, peer_admin, conflict, cascade, step_up).
	StartRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impersonation_service_start_rejected_total",
		Help: "The total number of rejected impersonation start attempts by reason",
	}, []string{"reason"})

	// AuditEntriesWrittenTotal counts audit entries persisted by action type.
	AuditEntriesWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impersonation_service_audit_entries_written_total",
		Help: "The total number of audit entries written by action type",
	}, []string{"action"})

	// AuditEntriesDroppedTotal counts audit entries dropped because the queue
	// was full or the store rejected the write. Audit completeness is a
	// compliance concern, so this counter should be alerted on.
	AuditEntriesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "impersonation_service_audit_entries_dropped_total",
		Help: "The total number of audit entries dropped",
	})

	// AuditQueueDepth gauges the current backlog of the async audit queue.
	AuditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "impersonation_service_audit_queue_depth",
		Help: "The current depth of the async audit write queue",
	})
)
