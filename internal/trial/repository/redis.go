package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// incrementWithCeilingScript increments KEYS[1] only while it is below ARGV[1].
// Returns {count, incremented}.
var incrementWithCeilingScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if current >= limit then
  return {current, 0}
end
current = redis.call("INCR", KEYS[1])
return {current, 1}
`)

// RedisStore keeps usage counters in Redis under "<prefix><len(userID)>:<userID>:<service>". The length
// keeps keys distinct when ids contain ':'.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore returns a RedisStore using the default "trial:" key prefix.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: "trial:"}
}

func (s *RedisStore) key(userID, service string) string {
	return s.prefix + strconv.Itoa(len(userID)) + ":" + userID + ":" + service
}

// Count returns the recorded uses for the pair.
func (s *RedisStore) Count(ctx context.Context, userID, service string) (int, error) {
	v, err := s.client.Get(ctx, s.key(userID, service)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("trial: corrupt counter %q: %w", v, err)
	}
	return n, nil
}

// IncrementWithCeiling adds one use unless the pair is already at limit, atomically on the server.
func (s *RedisStore) IncrementWithCeiling(ctx context.Context, userID, service string, limit int) (int, bool, error) {
	res, err := incrementWithCeilingScript.Run(ctx, s.client, []string{s.key(userID, service)}, limit).Result()
	if err != nil {
		return 0, false, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return 0, false, fmt.Errorf("trial: unexpected script result %T", res)
	}
	count, _ := vals[0].(int64)
	incremented, _ := vals[1].(int64)
	return int(count), incremented == 1, nil
}

// Reset deletes the record for the pair.
func (s *RedisStore) Reset(ctx context.Context, userID, service string) error {
	return s.client.Del(ctx, s.key(userID, service)).Err()
}
