package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

type fakeSyncer struct {
	inserted int
	err      error
	calls    int
}

func (f *fakeSyncer) SyncCatalog(context.Context, *rbac.Catalog) (int, error) {
	f.calls++
	return f.inserted, f.err
}

type fakeInvalidator struct {
	all   int
	users []int64
	err   error
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.all++
	return f.err
}

func (f *fakeInvalidator) InvalidateUser(_ context.Context, userID int64) error {
	f.users = append(f.users, userID)
	return f.err
}

type recordedJob struct {
	taskType string
	failed   bool
}

type fakeRecorder struct {
	jobs []recordedJob
}

func (f *fakeRecorder) RecordJob(taskType string, err error) {
	f.jobs = append(f.jobs, recordedJob{taskType: taskType, failed: err != nil})
}

func testCatalog(t *testing.T) *rbac.Catalog {
	t.Helper()
	catalog, err := rbac.DefaultCatalog()
	require.NoError(t, err)
	return catalog
}

func TestHandleCatalogSync(t *testing.T) {
	syncer := &fakeSyncer{inserted: 3}
	recorder := &fakeRecorder{}
	j := &RBACJobs{Syncer: syncer, Catalog: testCatalog(t), Metrics: recorder}

	require.NoError(t, j.HandleCatalogSync(context.Background(), NewCatalogSyncTask()))
	require.Equal(t, 1, syncer.calls)
	require.Equal(t, []recordedJob{{taskType: TaskCatalogSync}}, recorder.jobs)
}

func TestHandleCatalogSyncFailureIsRecorded(t *testing.T) {
	recorder := &fakeRecorder{}
	j := &RBACJobs{Syncer: &fakeSyncer{err: errors.New("db down")}, Catalog: testCatalog(t), Metrics: recorder}

	require.Error(t, j.HandleCatalogSync(context.Background(), NewCatalogSyncTask()))
	require.Equal(t, []recordedJob{{taskType: TaskCatalogSync, failed: true}}, recorder.jobs)
}

func TestHandleCatalogSyncNotConfigured(t *testing.T) {
	var j *RBACJobs
	require.Error(t, j.HandleCatalogSync(context.Background(), NewCatalogSyncTask()))
	require.Error(t, (&RBACJobs{}).HandleCatalogSync(context.Background(), NewCatalogSyncTask()))
}

func TestHandleCacheInvalidate(t *testing.T) {
	inv := &fakeInvalidator{}
	j := &RBACJobs{Invalidator: inv}

	task, err := NewCacheInvalidateTask(CacheInvalidatePayload{UserID: 42, Reason: "role removed"})
	require.NoError(t, err)
	require.NoError(t, j.HandleCacheInvalidate(context.Background(), task))
	require.Equal(t, []int64{42}, inv.users)
	require.Zero(t, inv.all)

	task, err = NewCacheInvalidateTask(CacheInvalidatePayload{})
	require.NoError(t, err)
	require.NoError(t, j.HandleCacheInvalidate(context.Background(), task))
	require.Equal(t, 1, inv.all)

	require.NoError(t, j.HandleCacheInvalidate(context.Background(), asynq.NewTask(TaskCacheInvalidate, nil)))
	require.Equal(t, 2, inv.all)
}

func TestHandleCacheInvalidateBadPayloadSkipsRetry(t *testing.T) {
	recorder := &fakeRecorder{}
	j := &RBACJobs{Invalidator: &fakeInvalidator{}, Metrics: recorder}

	err := j.HandleCacheInvalidate(context.Background(), asynq.NewTask(TaskCacheInvalidate, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Len(t, recorder.jobs, 1)
	require.True(t, recorder.jobs[0].failed)
}

func TestHandleCacheInvalidatePropagatesError(t *testing.T) {
	j := &RBACJobs{Invalidator: &fakeInvalidator{err: errors.New("redis down")}}
	err := j.HandleCacheInvalidate(context.Background(), asynq.NewTask(TaskCacheInvalidate, nil))
	require.EqualError(t, err, "redis down")
}

func TestHandlersRegisterBothTasks(t *testing.T) {
	handlers := (&RBACJobs{}).Handlers()
	types := make([]string, 0, len(handlers))
	for _, h := range handlers {
		require.NotNil(t, h.Handler)
		types = append(types, h.Type)
	}
	require.ElementsMatch(t, []string{TaskCatalogSync, TaskCacheInvalidate}, types)
}

func TestCacheInvalidateTaskPayload(t *testing.T) {
	task, err := NewCacheInvalidateTask(CacheInvalidatePayload{UserID: 7})
	require.NoError(t, err)
	require.Equal(t, TaskCacheInvalidate, task.Type())

	var payload CacheInvalidatePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.EqualValues(t, 7, payload.UserID)
}
