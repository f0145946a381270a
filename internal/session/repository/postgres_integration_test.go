//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexgate/backend/internal/db/dbtest"
	"lexgate/backend/internal/session/domain"
)

func TestIntegration_PostgresRepository(t *testing.T) {
	repo := NewPostgresRepository(dbtest.StartPostgres(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &domain.Session{
			ID: id, UserID: "user-1", TenantID: "firm-1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "other", UserID: "user-2", CreatedAt: base}))

	t.Run("list active in creation order", func(t *testing.T) {
		list, err := repo.ListActiveByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "a", list[0].ID)
		assert.Equal(t, "c", list[2].ID)
		assert.True(t, list[0].IsActive())
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Revoke(ctx, "a"))
		first, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		require.NotNil(t, first.RevokedAt)
		assert.Equal(t, domain.StatusRevoked, first.Status)

		require.NoError(t, repo.Revoke(ctx, "a"))
		again, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.True(t, first.RevokedAt.Equal(*again.RevokedAt), "second revoke must not move revoked_at")

		require.NoError(t, repo.Revoke(ctx, "missing"))
	})

	t.Run("revoked sessions leave the active set", func(t *testing.T) {
		list, err := repo.ListActiveByUser(ctx, "user-1")
		require.NoError(t, err)
		ids := make([]string, len(list))
		for i, s := range list {
			ids[i] = s.ID
		}
		assert.Equal(t, []string{"b", "c"}, ids)
	})

	t.Run("unknown id", func(t *testing.T) {
		s, err := repo.GetByID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}
