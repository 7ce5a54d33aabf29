package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newCachedStore(t *testing.T, next Store) (*CachedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedStore(next, client, time.Minute, nil), mr
}

func TestCachedStoreHit(t *testing.T) {
	store := &fakeStore{grants: map[int64][]string{10: {"clients_view_own"}}}
	cached, _ := newCachedStore(t, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		names, err := cached.EffectivePermissionNames(ctx, 7, Company(10), GuardAPI)
		require.NoError(t, err)
		require.Equal(t, []string{"clients_view_own"}, names)
	}
	require.Equal(t, 1, store.callCount())
}

func TestCachedStoreSeparatesScopes(t *testing.T) {
	store := &fakeStore{grants: map[int64][]string{0: {"products_view"}, 10: {"clients_view_own"}}}
	cached, _ := newCachedStore(t, store)
	ctx := context.Background()

	global, err := cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
	require.NoError(t, err)
	company, err := cached.EffectivePermissionNames(ctx, 7, Company(10), GuardAPI)
	require.NoError(t, err)
	other, err := cached.EffectivePermissionNames(ctx, 8, Company(10), GuardAPI)
	require.NoError(t, err)

	require.Equal(t, []string{"products_view"}, global)
	require.Equal(t, []string{"clients_view_own"}, company)
	require.Equal(t, []string{"clients_view_own"}, other)
	require.Equal(t, 3, store.callCount())
}

func TestCachedStoreEmptySetIsCached(t *testing.T) {
	store := &fakeStore{}
	cached, _ := newCachedStore(t, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		names, err := cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
		require.NoError(t, err)
		require.Empty(t, names)
	}
	require.Equal(t, 1, store.callCount())
}

func TestCachedStoreInvalidateUser(t *testing.T) {
	store := &fakeStore{grants: map[int64][]string{10: {"clients_view_own"}}}
	cached, _ := newCachedStore(t, store)
	ctx := context.Background()

	_, err := cached.EffectivePermissionNames(ctx, 7, Company(10), GuardAPI)
	require.NoError(t, err)
	_, err = cached.EffectivePermissionNames(ctx, 8, Company(10), GuardAPI)
	require.NoError(t, err)

	store.grants[10] = []string{"clients_view_all"}
	require.NoError(t, cached.InvalidateUser(ctx, 7))

	names, err := cached.EffectivePermissionNames(ctx, 7, Company(10), GuardAPI)
	require.NoError(t, err)
	require.Equal(t, []string{"clients_view_all"}, names)

	names, err = cached.EffectivePermissionNames(ctx, 8, Company(10), GuardAPI)
	require.NoError(t, err)
	require.Equal(t, []string{"clients_view_own"}, names, "other users keep their cached set")
}

func TestCachedStoreInvalidateAll(t *testing.T) {
	store := &fakeStore{all: []string{"a"}, grants: map[int64][]string{0: {"x"}}}
	cached, _ := newCachedStore(t, store)
	ctx := context.Background()

	_, err := cached.PermissionNames(ctx, GuardAPI)
	require.NoError(t, err)
	_, err = cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
	require.NoError(t, err)

	store.all = []string{"a", "b"}
	store.grants[0] = []string{"y"}
	require.NoError(t, cached.Invalidate(ctx))

	all, err := cached.PermissionNames(ctx, GuardAPI)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, all)
	names, err := cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
	require.NoError(t, err)
	require.Equal(t, []string{"y"}, names)
	require.Equal(t, 2, store.allHit)
}

func TestCachedStoreEntriesExpire(t *testing.T) {
	store := &fakeStore{grants: map[int64][]string{0: {"x"}}}
	cached, mr := newCachedStore(t, store)
	ctx := context.Background()

	_, err := cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
	require.NoError(t, err)
	require.Equal(t, 2, store.callCount())
}

func TestCachedStoreFallsBackWhenRedisDown(t *testing.T) {
	store := &fakeStore{grants: map[int64][]string{0: {"x"}}}
	cached, mr := newCachedStore(t, store)
	mr.Close()

	names, err := cached.EffectivePermissionNames(context.Background(), 7, nil, GuardAPI)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, names)
	require.Error(t, cached.Invalidate(context.Background()))
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("db down")
	store := &fakeStore{err: boom}
	cached, _ := newCachedStore(t, store)
	ctx := context.Background()

	_, err := cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
	require.ErrorIs(t, err, boom)

	store.err = nil
	store.grants = map[int64][]string{0: {"x"}}
	names, err := cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, names)
}

func TestCachedStoreWithoutClient(t *testing.T) {
	store := &fakeStore{grants: map[int64][]string{0: {"x"}}, all: []string{"x", "y"}}
	cached := NewCachedStore(store, nil, 0, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cached.EffectivePermissionNames(ctx, 7, nil, GuardAPI)
		require.NoError(t, err)
	}
	require.Equal(t, 2, store.callCount())
	require.NoError(t, cached.Invalidate(ctx))
	require.NoError(t, cached.InvalidateUser(ctx, 7))
}

func TestCachedStoreConcurrentMisses(t *testing.T) {
	store := &fakeStore{grants: map[int64][]string{0: {"x"}}}
	cached, _ := newCachedStore(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names, err := cached.EffectivePermissionNames(context.Background(), 7, nil, GuardAPI)
			if err == nil && len(names) != 1 {
				t.Errorf("unexpected names %v", names)
			}
		}()
	}
	wg.Wait()
	require.GreaterOrEqual(t, store.callCount(), 1)
	require.LessOrEqual(t, store.callCount(), 20)
}
