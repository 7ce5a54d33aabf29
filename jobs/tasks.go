package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogSync upserts every catalog permission into storage.
	TaskCatalogSync = "rbac:catalog_sync"
	// TaskCacheInvalidate drops cached permission sets.
	TaskCacheInvalidate = "rbac:cache_invalidate"
)

// CacheInvalidatePayload selects what to invalidate. A zero UserID drops
// every cached set.
type CacheInvalidatePayload struct {
	UserID int64  `json:"user_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewCatalogSyncTask constructs a catalog sync task.
func NewCatalogSyncTask() *asynq.Task {
	return asynq.NewTask(TaskCatalogSync, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

// NewCacheInvalidateTask constructs a cache invalidation task.
func NewCacheInvalidateTask(payload CacheInvalidatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheInvalidate, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}
