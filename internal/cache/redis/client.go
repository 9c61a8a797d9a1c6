package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/steamgems/backend/pkg/logger"
)

// Client is a short-TTL response cache in front of the similarity endpoint.
// The SQLite rankings cache stays authoritative; losing a Redis entry only
// costs a recomputation.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

// NewClientWithAddr connects to a raw address. Used by tests.
func NewClientWithAddr(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetSimilar(ctx context.Context, key string, response interface{}, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("similar:%s", key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set similar cache: %w", err)
	}

	logger.Debug("Similar response cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetSimilar(ctx context.Context, key string, response interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("similar:%s", key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get similar cache: %w", err)
	}

	if err := json.Unmarshal(data, response); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Debug("Similar cache hit", zap.String("key", key))
	return true, nil
}

// InvalidateSimilar drops every cached similarity response. Called after a
// ranking refresh rewrites the candidate pool.
func (c *Client) InvalidateSimilar(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "similar:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Similar response cache invalidated")
	return nil
}
