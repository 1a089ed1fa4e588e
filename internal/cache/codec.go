package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrMiss is returned when a key is absent.
	ErrMiss = errors.New("cache: key not found")
	// ErrMalformed is returned when a stored blob cannot be decoded.
	ErrMalformed = errors.New("cache: malformed payload")
)

// GetJSON reads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, error) {
	var out T
	raw, err := c.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return out, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw)
}
