package db

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// OpenRedis parses a redis:// URL, connects and pings. Caller must call Close when done.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrEmptyDSN
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
