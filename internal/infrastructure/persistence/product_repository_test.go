package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	db := setupCartTestDB(t)
	repo := NewGormProductRepository(db)
	p := seedProduct(t, db, "Desk", "120.50", 4)

	t.Run("finds existing product", func(t *testing.T) {
		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "Desk", got.Name)
		assert.True(t, p.Price.Equal(got.Price))
		assert.Equal(t, 4, got.Stock)
	})

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, uuid.New())
		assert.Nil(t, got)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormProductRepository_FindByIDs(t *testing.T) {
	ctx := context.Background()
	db := setupCartTestDB(t)
	repo := NewGormProductRepository(db)
	a := seedProduct(t, db, "A", "1", 1)
	b := seedProduct(t, db, "B", "2", 2)

	got, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, uuid.New(), b.ID})
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormProductRepository_Save(t *testing.T) {
	ctx := context.Background()
	db := setupCartTestDB(t)
	repo := NewGormProductRepository(db)
	p := seedProduct(t, db, "Sofa", "300", 2)

	t.Run("updates an existing product", func(t *testing.T) {
		p.Stock = 7
		p.Price = decimal.NewFromInt(280)
		require.NoError(t, repo.Save(ctx, p))

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Stock)
		assert.True(t, decimal.NewFromInt(280).Equal(got.Price))
	})

	t.Run("rejects invalid products", func(t *testing.T) {
		invalid := &catalog.Product{BaseEntity: shared.NewBaseEntity(), Name: "Broken", Stock: -1}
		err := repo.Save(ctx, invalid)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
