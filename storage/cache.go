package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"aura-api/domain"
)

type backend interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	EnsureUser(ctx context.Context, claims domain.User) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateSettings(ctx context.Context, userID string, upd domain.SettingsUpdate) (domain.Settings, error)
}

// Cache wraps a Storage instance with Redis-backed caching for user and
// settings reads.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// cachedUser carries the settings that domain.User leaves out of JSON.
type cachedUser struct {
	User     domain.User     `json:"user"`
	Settings domain.Settings `json:"settings"`
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) GetUser(ctx context.Context, id string) (domain.User, error) {
	if u, ok := c.loadUser(ctx, id); ok {
		return u, nil
	}

	u, err := c.base.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	c.storeUser(ctx, u)
	return u, nil
}

// EnsureUser skips the store when the cached user already carries the
// claimed name, email and persona.
func (c *Cache) EnsureUser(ctx context.Context, claims domain.User) (domain.User, error) {
	if u, ok := c.loadUser(ctx, claims.ID); ok && sameClaims(u, claims) {
		return u, nil
	}

	u, err := c.base.EnsureUser(ctx, claims)
	if err != nil {
		return domain.User{}, err
	}

	c.storeUser(ctx, u)
	c.evict(ctx, usersCacheKey())
	return u, nil
}

func (c *Cache) ListUsers(ctx context.Context) ([]domain.User, error) {
	if users, ok := c.loadUsers(ctx); ok {
		return users, nil
	}

	users, err := c.base.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, usersCacheKey(), users)
	return users, nil
}

func (c *Cache) UpdateSettings(ctx context.Context, userID string, upd domain.SettingsUpdate) (domain.Settings, error) {
	settings, err := c.base.UpdateSettings(ctx, userID, upd)
	if err != nil {
		return domain.Settings{}, err
	}

	c.evict(ctx, userCacheKey(userID))
	return settings, nil
}

func sameClaims(u, claims domain.User) bool {
	return (claims.Name == "" || claims.Name == u.Name) &&
		(claims.Email == "" || claims.Email == u.Email) &&
		(claims.Persona == "" || claims.Persona == u.Persona)
}

func (c *Cache) loadUser(ctx context.Context, id string) (domain.User, bool) {
	var cu cachedUser
	if !c.load(ctx, userCacheKey(id), &cu) {
		return domain.User{}, false
	}
	u := cu.User
	u.Settings = cu.Settings
	return u, true
}

func (c *Cache) loadUsers(ctx context.Context) ([]domain.User, bool) {
	var users []domain.User
	if !c.load(ctx, usersCacheKey(), &users) {
		return nil, false
	}
	return users, true
}

func (c *Cache) storeUser(ctx context.Context, u domain.User) {
	c.store(ctx, userCacheKey(u.ID), cachedUser{User: u, Settings: u.Settings})
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func userCacheKey(userID string) string {
	return "user:" + userID
}

func usersCacheKey() string {
	return "users"
}
