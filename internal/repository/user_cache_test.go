package repository

import (
	"context"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withUserCache points the cache layer at a throwaway miniredis for one test.
func withUserCache(t *testing.T) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
}

func TestUserRepository_CachedReadKeepsPasswordHash(t *testing.T) {
	truncateTables(t)
	withUserCache(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	const hash = "$2a$10$0123456789012345678901uVWXYZabcdefghijklmnopqrstu"
	user := &models.User{
		Name:     "Cached Reader",
		Username: "cachedreader",
		Email:    "cached@example.com",
		Password: hash,
		Role:     models.RoleUser,
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, user))

	// First read fills the cache, second is served from it.
	first, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, hash, first.Password)

	second, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, hash, second.Password)

	// A profile edit built from the cached copy must not blank the hash.
	second.Bio = "updated bio"
	require.NoError(t, repo.Update(ctx, second))

	stored, err := repo.GetByEmail(ctx, "cached@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, hash, stored.Password)
	assert.Equal(t, "updated bio", stored.Bio)
}
