package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

// CatalogSyncer persists catalog permissions.
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context, catalog *rbac.Catalog) (int, error)
}

// JobRecorder observes job outcomes.
type JobRecorder interface {
	RecordJob(taskType string, err error)
}

// RBACJobs handles permission maintenance tasks.
type RBACJobs struct {
	Syncer      CatalogSyncer
	Catalog     *rbac.Catalog
	Invalidator rbac.Invalidator
	Logger      *slog.Logger
	Metrics     JobRecorder
}

// Handlers lists the task handlers to register on the worker.
func (j *RBACJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskCatalogSync, Handler: j.HandleCatalogSync},
		{Type: TaskCacheInvalidate, Handler: j.HandleCacheInvalidate},
	}
}

// HandleCatalogSync processes TaskCatalogSync tasks.
func (j *RBACJobs) HandleCatalogSync(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Syncer == nil || j.Catalog == nil {
		return errors.New("catalog sync: handler not configured")
	}
	defer func() { j.record(TaskCatalogSync, err) }()

	inserted, err := j.Syncer.SyncCatalog(ctx, j.Catalog)
	if err != nil {
		j.logger().Error("catalog sync", slog.Any("error", err))
		return err
	}
	j.logger().Info("catalog synced", slog.Int("inserted", inserted), slog.Int("resources", len(j.Catalog.Resources())))
	return nil
}

// HandleCacheInvalidate processes TaskCacheInvalidate tasks.
func (j *RBACJobs) HandleCacheInvalidate(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Invalidator == nil {
		return errors.New("cache invalidate: handler not configured")
	}
	var payload CacheInvalidatePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			j.record(TaskCacheInvalidate, err)
			return fmt.Errorf("cache invalidate: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	defer func() { j.record(TaskCacheInvalidate, err) }()

	logger := j.logger().With(slog.Int64("user_id", payload.UserID), slog.String("reason", payload.Reason))
	if payload.UserID > 0 {
		err = j.Invalidator.InvalidateUser(ctx, payload.UserID)
	} else {
		err = j.Invalidator.Invalidate(ctx)
	}
	if err != nil {
		logger.Error("cache invalidate", slog.Any("error", err))
		return err
	}
	logger.Info("permission cache invalidated")
	return nil
}

func (j *RBACJobs) record(taskType string, err error) {
	if j.Metrics != nil {
		j.Metrics.RecordJob(taskType, err)
	}
}

func (j *RBACJobs) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
