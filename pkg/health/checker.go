package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisClient "github.com/taxidata/platform/pkg/redis"
)

// DatabaseChecker returns a health check function for PostgreSQL
func DatabaseChecker(pool *pgxpool.Pool) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client *redisClient.Client) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}
