// File: backend/services/impersonation-service/internal/service/audit_recorder.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/entity"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/utils/metrics"
)

const persistTimeout = 5 * time.Second

// AuditRecorder decouples audit persistence from the request path: entries
// ride a bounded channel consumed by a background worker, so a burst of
// impersonated traffic can neither block responses nor grow unbounded
// in-memory work. Persistence failures are logged to the operational channel
// and counted; they are never surfaced to the triggering request.
type AuditRecorder struct {
	repo    repository.AuditLogRepository
	logger  *zap.Logger
	queue   chan *entity.AuditLogEntry
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewAuditRecorder creates a recorder with the given queue capacity and
// starts its worker goroutine.
func NewAuditRecorder(repo repository.AuditLogRepository, queueSize int, logger *zap.Logger) *AuditRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &AuditRecorder{
		repo:    repo,
		logger:  logger.Named("audit_recorder"),
		queue:   make(chan *entity.AuditLogEntry, queueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues an audit entry without blocking. When the queue is full the
// entry is dropped and counted; audit availability must never gate the
// user-facing request.
func (r *AuditRecorder) Record(entry *entity.AuditLogEntry) {
	select {
	case <-r.closing:
		r.drop(entry, "recorder closed")
		return
	default:
	}

	select {
	case r.queue <- entry:
		metrics.AuditQueueDepth.Set(float64(len(r.queue)))
	default:
		r.drop(entry, "queue full")
	}
}

func (r *AuditRecorder) drop(entry *entity.AuditLogEntry, reason string) {
	metrics.AuditEntriesDroppedTotal.Inc()
	r.logger.Error("Dropping audit entry",
		zap.String("reason", reason),
		zap.String("session_id", entry.SessionID),
		zap.String("action_type", string(entry.ActionType)),
	)
}

func (r *AuditRecorder) run() {
	defer close(r.done)
	for {
		select {
		case entry := <-r.queue:
			r.persist(entry)
		case <-r.closing:
			// Drain what is already queued, then exit.
			for {
				select {
				case entry := <-r.queue:
					r.persist(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *AuditRecorder) persist(entry *entity.AuditLogEntry) {
	metrics.AuditQueueDepth.Set(float64(len(r.queue)))
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.repo.Create(ctx, entry); err != nil {
		metrics.AuditEntriesDroppedTotal.Inc()
		r.logger.Error("Failed to persist audit entry",
			zap.Error(err),
			zap.String("session_id", entry.SessionID),
			zap.String("action_type", string(entry.ActionType)),
		)
		return
	}
	metrics.AuditEntriesWrittenTotal.WithLabelValues(string(entry.ActionType)).Inc()
}

// Close stops accepting new entries, drains the queue and waits for the
// worker to finish.
func (r *AuditRecorder) Close() {
	r.once.Do(func() { close(r.closing) })
	<-r.done
}
