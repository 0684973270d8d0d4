// Package audit records mutating actions to the audit trail.
//
// Writes are best effort: they go through the worker pool and never block or
// fail the request that triggered them.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"objbase.io/objbase/internal/pkg/logger"
	"objbase.io/objbase/internal/pkg/worker"
	"objbase.io/objbase/internal/repository"
)

const writeTimeout = 5 * time.Second

// Logger writes audit records through the worker pool.
type Logger struct {
	repo repository.Repo
	pool *worker.Pool
}

// NewLogger creates an audit logger.
func NewLogger(repo repository.Repo, pool *worker.Pool) *Logger {
	return &Logger{repo: repo, pool: pool}
}

// Record queues an audit record for an action. Detached from the request
// context so the write survives request completion. Without a pool the
// record is written inline.
func (l *Logger) Record(ns, actor, action string, objectID int64, detail string) {
	if l == nil {
		return
	}
	write := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		if err := l.repo.Audit().Append(ctx, ns, actor, action, objectID, detail); err != nil {
			logger.Warn("audit record write failed",
				zap.String("ns", ns),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}
	if l.pool == nil {
		write(context.Background())
		return
	}
	err := l.pool.SubmitDetached(write)
	if err != nil {
		logger.Warn("audit record submit failed",
			zap.String("ns", ns),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
