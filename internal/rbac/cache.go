package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey     = "rbac:version"
	cacheUserVersionKey = "rbac:version:user:"
)

// CachedStore memoizes Store lookups in Redis. Entries are keyed by a global
// version and a per-user version so role changes invalidate them without
// scanning keys.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedStore wraps next. A nil client disables caching.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{next: next, client: client, ttl: ttl, logger: logger}
}

// EffectivePermissionNames implements Store.
func (c *CachedStore) EffectivePermissionNames(ctx context.Context, userID int64, companyID *int64, guard string) ([]string, error) {
	if c.client == nil {
		return c.next.EffectivePermissionNames(ctx, userID, companyID, guard)
	}
	key, err := c.userKey(ctx, userID, companyID, guard)
	if err != nil {
		c.warn("rbac cache key", err)
		return c.next.EffectivePermissionNames(ctx, userID, companyID, guard)
	}
	return c.fetch(ctx, key, func(ctx context.Context) ([]string, error) {
		return c.next.EffectivePermissionNames(ctx, userID, companyID, guard)
	})
}

// PermissionNames implements Store.
func (c *CachedStore) PermissionNames(ctx context.Context, guard string) ([]string, error) {
	if c.client == nil {
		return c.next.PermissionNames(ctx, guard)
	}
	ver, err := c.version(ctx, cacheVersionKey)
	if err != nil {
		c.warn("rbac cache version", err)
		return c.next.PermissionNames(ctx, guard)
	}
	key := fmt.Sprintf("rbac:all:%d:%s", ver, guard)
	return c.fetch(ctx, key, func(ctx context.Context) ([]string, error) {
		return c.next.PermissionNames(ctx, guard)
	})
}

// Invalidate drops every cached permission set.
func (c *CachedStore) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		return fmt.Errorf("rbac: bump cache version: %w", err)
	}
	return nil
}

// InvalidateUser drops the cached permission sets of one user in every company.
func (c *CachedStore) InvalidateUser(ctx context.Context, userID int64) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, cacheUserVersionKey+strconv.FormatInt(userID, 10)).Err(); err != nil {
		return fmt.Errorf("rbac: bump user cache version: %w", err)
	}
	return nil
}

func (c *CachedStore) userKey(ctx context.Context, userID int64, companyID *int64, guard string) (string, error) {
	global, err := c.version(ctx, cacheVersionKey)
	if err != nil {
		return "", err
	}
	user, err := c.version(ctx, cacheUserVersionKey+strconv.FormatInt(userID, 10))
	if err != nil {
		return "", err
	}
	scope := "global"
	if companyID != nil {
		scope = "company:" + strconv.FormatInt(*companyID, 10)
	}
	return fmt.Sprintf("rbac:perms:%d:%d:%d:%s:%s", global, userID, user, scope, guard), nil
}

func (c *CachedStore) version(ctx context.Context, key string) (int64, error) {
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func (c *CachedStore) fetch(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			return names, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.warn("rbac cache get", err)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		names, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if names == nil {
			names = []string{}
		}
		payload, err := json.Marshal(names)
		if err == nil {
			if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.warn("rbac cache set", err)
			}
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (c *CachedStore) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.Any("error", err))
	}
}

var (
	_ Store       = (*CachedStore)(nil)
	_ Invalidator = (*CachedStore)(nil)
)
