package product

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

func newMenuService(t *testing.T) (Service, Repository) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.ApplySQLiteSchema(ctx, conn))
	require.NoError(t, db.SeedMenu(ctx, conn))

	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestListFilters(t *testing.T) {
	svc, _ := newMenuService(t)
	ctx := context.Background()

	all, err := svc.List(ctx, types.ProductFilters{})
	require.NoError(t, err)
	assert.Len(t, all, len(db.DefaultMenu()))

	available, err := svc.List(ctx, types.ProductFilters{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, len(all)-1)
	for _, p := range available {
		assert.True(t, p.Available, p.Name)
	}

	drinks, err := svc.List(ctx, types.ProductFilters{Category: "BEBIDAS"})
	require.NoError(t, err)
	assert.Len(t, drinks, 3)

	juice, err := svc.List(ctx, types.ProductFilters{Query: "suco"})
	require.NoError(t, err)
	require.Len(t, juice, 1)
	assert.Equal(t, int64(7), juice[0].ID)
	assert.True(t, juice[0].Price.Equal(decimal.RequireFromString("10.00")))
}

func TestGet(t *testing.T) {
	svc, _ := newMenuService(t)
	ctx := context.Background()

	p, err := svc.Get(ctx, 12)
	require.NoError(t, err)
	assert.False(t, p.Available)

	_, err = svc.Get(ctx, 999)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFindByIDs(t *testing.T) {
	_, repo := newMenuService(t)

	rows, err := repo.FindByIDs(context.Background(), []int64{1, 7, 404})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
