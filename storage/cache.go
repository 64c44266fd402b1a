package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaganraajan/projects-board/domain"
)

type backend interface {
	ListTasks(ctx context.Context, email string) ([]domain.Task, error)
	InsertTask(ctx context.Context, email string, t domain.Task) error
	UpdateTask(ctx context.Context, email, id string, patch domain.Patch) (domain.Task, error)
	DeleteTask(ctx context.Context, email, id string) error
	InsertAccount(ctx context.Context, account domain.Account, passwordHash string) error
	FetchAccount(ctx context.Context, email string) (domain.Account, string, error)
}

// Cache wraps a backend with Redis caching of per-account task lists. Any
// task write evicts the account's cached list; Redis errors degrade silently
// to the backend.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

// ListTasks serves the account's task list from Redis when present, falling
// back to (and populating from) the backend.
func (c *Cache) ListTasks(ctx context.Context, email string) ([]domain.Task, error) {
	if tasks, ok := c.loadTasks(ctx, email); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx, email)
	if err != nil {
		return nil, err
	}
	c.storeTasks(ctx, email, tasks)
	return tasks, nil
}

// InsertTask writes through to the backend and evicts the cached list.
func (c *Cache) InsertTask(ctx context.Context, email string, t domain.Task) error {
	if err := c.base.InsertTask(ctx, email, t); err != nil {
		return err
	}
	c.evict(ctx, email)
	return nil
}

// UpdateTask writes through to the backend and evicts the cached list.
func (c *Cache) UpdateTask(ctx context.Context, email, id string, patch domain.Patch) (domain.Task, error) {
	task, err := c.base.UpdateTask(ctx, email, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, email)
	return task, nil
}

// DeleteTask writes through to the backend and evicts the cached list.
func (c *Cache) DeleteTask(ctx context.Context, email, id string) error {
	if err := c.base.DeleteTask(ctx, email, id); err != nil {
		return err
	}
	c.evict(ctx, email)
	return nil
}

// InsertAccount passes through; accounts are not cached.
func (c *Cache) InsertAccount(ctx context.Context, account domain.Account, passwordHash string) error {
	return c.base.InsertAccount(ctx, account, passwordHash)
}

// FetchAccount passes through; accounts are not cached.
func (c *Cache) FetchAccount(ctx context.Context, email string) (domain.Account, string, error) {
	return c.base.FetchAccount(ctx, email)
}

func (c *Cache) loadTasks(ctx context.Context, email string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(email)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backend without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(email)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(email)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeTasks(ctx context.Context, email string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(email), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, email string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(email)).Result()
}

func tasksCacheKey(email string) string {
	return "tasks:" + email
}
