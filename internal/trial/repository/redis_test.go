package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_CountMissingIsZero(t *testing.T) {
	s, _ := newTestRedisStore(t)
	n, err := s.Count(context.Background(), "user-1", "document_generation")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisStore_IncrementStopsAtCeiling(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, ok, err := s.IncrementWithCeiling(ctx, "user-1", "contract_review", 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, n)
	}
	n, ok, err := s.IncrementWithCeiling(ctx, "user-1", "contract_review", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, n)

	got, err := mr.Get("trial:6:user-1:contract_review")
	require.NoError(t, err)
	assert.Equal(t, "3", got)

	count, err := s.Count(ctx, "user-1", "contract_review")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRedisStore_ConcurrentIncrements(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.IncrementWithCeiling(ctx, "user-1", "legal_research", 5)
			if err == nil && ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
	n, err := s.Count(ctx, "user-1", "legal_research")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRedisStore_Reset(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	_, _, err := s.IncrementWithCeiling(ctx, "user-1", "a", 1)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx, "user-1", "a"))
	n, err := s.Count(ctx, "user-1", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisStore_CorruptCounter(t *testing.T) {
	s, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("trial:6:user-1:a", "not-a-number"))
	_, err := s.Count(context.Background(), "user-1", "a")
	assert.Error(t, err)
}

func TestRedisStore_Unreachable(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Close()
	_, err := s.Count(context.Background(), "user-1", "a")
	assert.Error(t, err)
	_, _, err = s.IncrementWithCeiling(context.Background(), "user-1", "a", 1)
	assert.Error(t, err)
}

func TestRedisStore_ColonInUserIDDoesNotCollide(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, ok, err := s.IncrementWithCeiling(ctx, "a:b", "c", 1)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.IncrementWithCeiling(ctx, "a", "b:c", 1)
	require.NoError(t, err)
	assert.True(t, ok, "distinct user/service pairs share a counter")

	n, err := s.Count(ctx, "a", "b:c")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, mr.Keys(), 2)
}
