// Package redis connects the optional shared rate-limit backend.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"newsletter/internal/platform/config"
	"newsletter/pkg/platform/sentinel"
)

// Client is the go-redis client the limiter buckets talk to.
type Client struct {
	*goredis.Client
}

// New connects when cfg.URL is set and verifies the server answers. A nil
// Client with a nil error means rate limiting stays in process memory.
func New(ctx context.Context, cfg config.Redis) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{Client: goredis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// options applies pool and timeout settings on top of the URL; the URL keeps
// address, credentials and database number.
func options(cfg config.Redis) (*goredis.Options, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Health pings the server. Failures wrap sentinel.ErrUnavailable.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
