package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata/backend/internal/domain/identity"
	"github.com/khata/backend/internal/domain/shared"
	"github.com/khata/backend/internal/infrastructure/persistence"
)

func TestMerchantRepository_SaveAndFind(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()
	repo := persistence.NewGormMerchantRepository(tdb.DB)

	merchant, err := identity.NewMerchant("rahim_store", "Rahim General Store", "correct-horse-battery")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, merchant))

	found, err := repo.FindByUsername(ctx, "rahim_store")
	require.NoError(t, err)
	assert.Equal(t, merchant.ID, found.ID)
	assert.Equal(t, "Rahim General Store", found.ShopName)
	assert.True(t, found.VerifyPassword("correct-horse-battery"))

	byID, err := repo.FindByID(ctx, merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, "rahim_store", byID.Username)

	exists, err := repo.ExistsByUsername(ctx, "rahim_store")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsername(ctx, "nobody_here")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMerchantRepository_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()
	repo := persistence.NewGormMerchantRepository(tdb.DB)

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByUsername(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMerchantRepository_UpdatePersistsState(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()
	repo := persistence.NewGormMerchantRepository(tdb.DB)

	merchant, err := identity.NewMerchant("karim_shop", "Karim Shop", "initial-password")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, merchant))

	require.NoError(t, merchant.ChangePassword("initial-password", "rotated-password"))
	require.NoError(t, repo.Save(ctx, merchant))

	found, err := repo.FindByUsername(ctx, "karim_shop")
	require.NoError(t, err)
	assert.False(t, found.VerifyPassword("initial-password"))
	assert.True(t, found.VerifyPassword("rotated-password"))
}
