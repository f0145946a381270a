package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexgate/backend/internal/session/domain"
)

func TestMemoryRepository_TimestampsFollowTheClock(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "a", UserID: "u1"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "b", UserID: "u1"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.Revoke(ctx, "a"))

	a, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	b, err := repo.GetByID(ctx, "b")
	require.NoError(t, err)

	assert.True(t, b.CreatedAt.After(a.CreatedAt), "b.CreatedAt %v not after a.CreatedAt %v", b.CreatedAt, a.CreatedAt)
	require.NotNil(t, a.RevokedAt)
	assert.True(t, a.RevokedAt.After(b.CreatedAt), "a.RevokedAt %v not after b.CreatedAt %v", a.RevokedAt, b.CreatedAt)
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
}

func TestMemoryRepository_ListActiveOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, id := range []string{"z", "y", "x"} {
		require.NoError(t, repo.Create(ctx, &domain.Session{ID: id, UserID: "u1"}))
		time.Sleep(2 * time.Millisecond)
	}

	list, err := repo.ListActiveByUser(ctx, "u1")
	require.NoError(t, err)
	var ids []string
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"z", "y", "x"}, ids)
}

func TestMemoryRepository_RegisterIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.RegisterIfAbsent(ctx, &domain.Session{ID: "s1", UserID: "u1"}))
	s, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, domain.StatusActive, s.Status)
	assert.False(t, s.CreatedAt.IsZero())

	require.NoError(t, repo.Revoke(ctx, "s1"))
	require.NoError(t, repo.RegisterIfAbsent(ctx, &domain.Session{ID: "s1", UserID: "u1"}))
	s, err = repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRevoked, s.Status, "a known session must not be reactivated")
}
