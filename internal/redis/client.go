// Package redis wraps github.com/redis/go-redis/v9 with the small surface
// this controller needs for persistence and telemetry: hash get/set,
// publish, and a blocking list pop for command intake. Adapted from
// librescoot-bluetooth-service's pkg/redis/client.go, trimmed to the
// calls this domain actually uses.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client represents a Redis connection with the hash/pubsub operations
// internal/persistence and internal/telemetry build on.
type Client struct {
	client *goredis.Client
	ctx    context.Context
}

// New connects to addr, verifying reachability with a Ping the way the
// teacher's New() does.
func New(addr, password string, db int) (*Client, error) {
	c := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Client{client: c, ctx: ctx}, nil
}

// HSet writes field within key.
func (c *Client) HSet(key, field string, value interface{}) error {
	return c.client.HSet(c.ctx, key, field, value).Err()
}

// HGet reads field within key as a string.
func (c *Client) HGet(key, field string) (string, error) {
	val, err := c.client.HGet(c.ctx, key, field).Result()
	if err == goredis.Nil {
		return "", fmt.Errorf("key %s field %s not found", key, field)
	}
	return val, err
}

// HGetBytes reads field within key as raw bytes, for CBOR-encoded blobs.
func (c *Client) HGetBytes(key, field string) ([]byte, error) {
	val, err := c.client.HGet(c.ctx, key, field).Bytes()
	if err == goredis.Nil {
		return nil, fmt.Errorf("key %s field %s not found", key, field)
	}
	return val, err
}

// HExists reports whether field exists within key.
func (c *Client) HExists(key, field string) bool {
	ok, err := c.client.HExists(c.ctx, key, field).Result()
	return err == nil && ok
}

// PublishInt writes and publishes an integer field in one pipeline,
// matching WriteAndPublishInt in the teacher's client.
func (c *Client) PublishInt(key, field string, value int) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, key, field, value)
	pipe.Publish(c.ctx, key, fmt.Sprintf("%s:%d", field, value))
	_, err := pipe.Exec(c.ctx)
	return err
}

// PublishString writes and publishes a string field in one pipeline,
// matching WriteAndPublishString.
func (c *Client) PublishString(key, field, value string) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, key, field, value)
	pipe.Publish(c.ctx, key, fmt.Sprintf("%s:%s", field, value))
	_, err := pipe.Exec(c.ctx)
	return err
}

// Publish sends message on channel, for one-shot events (button presses,
// handoff timeouts, state transitions).
func (c *Client) Publish(channel, message string) error {
	return c.client.Publish(c.ctx, channel, message).Err()
}

// BRPop blocks up to timeout for a value on key; a nil, nil result means
// the call timed out rather than erred, matching the teacher's BRPop.
func (c *Client) BRPop(timeout time.Duration, key string) ([]string, error) {
	result, err := c.client.BRPop(c.ctx, timeout, key).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	return result, err
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
