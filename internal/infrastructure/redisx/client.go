// Package redisx wraps the optional Redis tier used for verification codes.
// The client is deliberately configured to fail fast: a Redis outage must
// show up as a quick error the caller can fall back from, never as a
// blocked or queued command.
package redisx

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roombook/api/internal/config"
)

// NewClient builds the shared Redis client. go-redis connects lazily on the
// first command, so constructing the client performs no I/O. Retries are
// disabled outright; the orchestrator owns the fallback story.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            cfg.RedisAddr(),
		Password:        cfg.RedisPassword,
		MaxRetries:      -1, // a failed command fails, it is not re-queued
		DialTimeout:     time.Second,
		PoolTimeout:     time.Second,
		MinRetryBackoff: -1,
		MaxRetryBackoff: -1,
	})
}
