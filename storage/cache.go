package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tidyboard-api/domain"
)

type backend interface {
	FetchBoards(ctx context.Context, userID string) ([]domain.Board, error)
	FetchColumns(ctx context.Context, boardIDs []string) ([]domain.Column, error)
	FetchTasks(ctx context.Context, userID string) ([]domain.Task, error)
	PatchTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) error
	EnqueueTaskEvent(ctx context.Context, ev domain.TaskEvent) error
}

// Cache wraps a Storage instance with Redis-backed caching for read operations.
// Board and task views are keyed per user; column sets per board. Columns are
// never mutated here, so their keys only ever age out via TTL.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) FetchBoards(ctx context.Context, userID string) ([]domain.Board, error) {
	var boards []domain.Board
	if c.loadFromCache(ctx, boardsCacheKey(userID), &boards) {
		return boards, nil
	}

	boards, err := c.base.FetchBoards(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, boardsCacheKey(userID), boards)
	return boards, nil
}

func (c *Cache) FetchColumns(ctx context.Context, boardIDs []string) ([]domain.Column, error) {
	cols := []domain.Column{}
	missing := []string{}
	for _, boardID := range boardIDs {
		var cached []domain.Column
		if c.loadFromCache(ctx, columnsCacheKey(boardID), &cached) {
			cols = append(cols, cached...)
			continue
		}
		missing = append(missing, boardID)
	}
	if len(missing) == 0 {
		return cols, nil
	}

	fetched, err := c.base.FetchColumns(ctx, missing)
	if err != nil {
		return nil, err
	}
	byBoard := map[string][]domain.Column{}
	for _, col := range fetched {
		byBoard[col.BoardID] = append(byBoard[col.BoardID], col)
	}
	for _, boardID := range missing {
		c.store(ctx, columnsCacheKey(boardID), byBoard[boardID])
	}
	return append(cols, fetched...), nil
}

func (c *Cache) FetchTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	var tasks []domain.Task
	if c.loadFromCache(ctx, tasksCacheKey(userID), &tasks) {
		return tasks, nil
	}

	tasks, err := c.base.FetchTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, tasksCacheKey(userID), tasks)
	return tasks, nil
}

// PatchTask writes through to the backing storage and drops the user's cached
// views so the next read observes the change.
func (c *Cache) PatchTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) error {
	if err := c.base.PatchTask(ctx, userID, taskID, patch); err != nil {
		return err
	}

	c.InvalidateViews(ctx, userID)
	return nil
}

func (c *Cache) EnqueueTaskEvent(ctx context.Context, ev domain.TaskEvent) error {
	return c.base.EnqueueTaskEvent(ctx, ev)
}

// InvalidateViews evicts every per-user view key. Eviction is deliberately
// coarse: a batch of task updates settles with one round of deletes.
func (c *Cache) InvalidateViews(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(userID), boardsCacheKey(userID)).Result()
}

func (c *Cache) loadFromCache(ctx context.Context, key string, dst any) bool {
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
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func tasksCacheKey(userID string) string {
	return "tasks:" + userID
}

func boardsCacheKey(userID string) string {
	return "boards:" + userID
}

func columnsCacheKey(boardID string) string {
	return "columns:" + boardID
}
