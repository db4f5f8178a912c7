package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is a byte-oriented key/value cache with per-key expiration.
type Service interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// SetJSON stores v encoded as JSON.
func SetJSON(ctx context.Context, c Service, key string, v any, expiration time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, b, expiration)
}

// GetJSON loads and decodes a JSON value. Misses return ErrCacheMiss.
func GetJSON[T any](ctx context.Context, c Service, key string) (T, error) {
	var out T
	b, err := c.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return out, nil
}
