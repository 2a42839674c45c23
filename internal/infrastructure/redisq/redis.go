package redisq

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewClient crea y valida un cliente go-redis a partir de una URL.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	// Reintentos acotados con backoff del propio cliente; ninguna llamada
	// bloquea indefinidamente.
	opts.MaxRetries = 5

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}
