// Package cache holds complete WFS response bodies keyed by request.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/adp-wfs-client/internal/cache/redisstore"
)

type Interface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type redisAdapter struct {
	cli     *redisstore.Client
	timeout time.Duration
}

var _ Interface = (*redisAdapter)(nil)

// NewRedis bounds every cache operation by timeout so a slow cache never
// holds up a fetch for long.
func NewRedis(c *redisstore.Client, timeout time.Duration) Interface {
	return &redisAdapter{cli: c, timeout: timeout}
}

// returns context with timeout if set
func (a *redisAdapter) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.timeout)
}

func (a *redisAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	b, ok, err := a.cli.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return b, ok, nil
}

func (a *redisAdapter) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := a.cli.Set(ctx, key, val, ttl); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
