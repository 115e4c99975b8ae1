package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/coopvalles/asamblea-api/pkg/errors"
)

// CacheRepository wraps Redis for the per-recipient unread-count cache.
// A nil client degrades to cache-miss behaviour so the engine works without
// Redis in development.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{client: client, logger: logger}
}

func unreadCountKey(recipientID string) string {
	return "avisos:unread:" + recipientID
}

// GetUnreadCount returns the cached unread count for a recipient.
func (r *CacheRepository) GetUnreadCount(ctx context.Context, recipientID string) (int, error) {
	if r.client == nil {
		return 0, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, unreadCountKey(recipientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, appErrors.ErrCacheMiss
		}
		return 0, fmt.Errorf("redis get unread count: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.ErrCacheMiss
	}
	return count, nil
}

// SetUnreadCount caches the unread count with the bounded-staleness TTL.
func (r *CacheRepository) SetUnreadCount(ctx context.Context, recipientID string, count int, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, unreadCountKey(recipientID), count, ttl).Err(); err != nil {
		return fmt.Errorf("redis set unread count: %w", err)
	}
	return nil
}

// InvalidateUnreadCount drops the cached counts for the given recipients.
func (r *CacheRepository) InvalidateUnreadCount(ctx context.Context, recipientIDs ...string) error {
	if r.client == nil || len(recipientIDs) == 0 {
		return nil
	}
	keys := make([]string, len(recipientIDs))
	for i, id := range recipientIDs {
		keys[i] = unreadCountKey(id)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate unread counts: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
