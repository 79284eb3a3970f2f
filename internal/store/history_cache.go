package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/models"
)

const historyKeyPrefix = "history:"

// HistoryCache is an optional Redis read-through cache for chat history, keyed
// per (user, document) and invalidated on every append. A nil *HistoryCache is
// valid and disables caching.
type HistoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryCache connects to Redis and verifies the connection with a ping.
func NewHistoryCache(ctx context.Context, cfg config.RedisConfig) (*HistoryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &HistoryCache{client: client, ttl: cfg.TTL}, nil
}

func historyKey(userID, documentID string) string {
	return historyKeyPrefix + userID + ":" + documentID
}

// Get returns the cached history and whether it was present. Cache errors are
// treated as misses; Postgres stays the source of truth.
func (c *HistoryCache) Get(ctx context.Context, userID, documentID string) ([]models.Message, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, historyKey(userID, documentID)).Result()
	if err != nil {
		return nil, false
	}
	var history []models.Message
	if err := json.Unmarshal([]byte(val), &history); err != nil {
		return nil, false
	}
	return history, true
}

// Set stores the history snapshot with the configured TTL.
func (c *HistoryCache) Set(ctx context.Context, userID, documentID string, history []models.Message) {
	if c == nil {
		return
	}
	data, err := json.Marshal(history)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, historyKey(userID, documentID), data, c.ttl).Err()
}

// Invalidate drops the cached snapshot after an append.
func (c *HistoryCache) Invalidate(ctx context.Context, userID, documentID string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, historyKey(userID, documentID)).Err()
}
