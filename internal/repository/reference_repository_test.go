package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReferenceRepository(t *testing.T) {
	tdb := setupTestDB(t)
	seedReference(t, tdb.rawDB)
	repo := NewReferenceRepository(tdb.DB)
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		u, err := repo.GetUser(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Ada", u.FirstName)

		_, err = repo.GetUser(ctx, 99)
		assert.ErrorIs(t, err, ErrUserNotFound)

		byLocation, err := repo.ListUsers(ctx, nil, []int64{2})
		require.NoError(t, err)
		require.Len(t, byLocation, 1)
		assert.Equal(t, int64(2), byLocation[0].ID)
	})

	t.Run("categories", func(t *testing.T) {
		got, err := repo.SalesCategories(ctx, []int64{1, 2, 1})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.False(t, got[2].TaxDefault)

		_, err = repo.SalesCategories(ctx, []int64{1, 3})
		assert.ErrorIs(t, err, ErrSalesCategoryNotFound)
	})

	t.Run("payment types", func(t *testing.T) {
		got, err := repo.PaymentTypes(ctx, []int64{2})
		require.NoError(t, err)
		assert.Equal(t, "card", got[2].Name)

		_, err = repo.PaymentTypes(ctx, []int64{5})
		assert.ErrorIs(t, err, ErrPaymentTypeNotFound)
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := repo.CreateSalesCategory(ctx, &model.SalesCategory{Name: "new_appliance", Active: true})
		assert.ErrorIs(t, err, ErrDuplicateReference)
		_, err = repo.CreatePaymentType(ctx, &model.PaymentType{Name: "cash", Active: true})
		assert.ErrorIs(t, err, ErrDuplicateReference)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: sales_days.user_id")))
}
