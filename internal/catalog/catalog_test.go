package catalog

import (
	"context"
	"testing"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = auth.Principal{UserID: 1, FullName: "Yönetici", Role: models.RoleAdmin}

func TestCategoryLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, admin, CategoryInput{Name: "  "})
	assert.True(t, apperr.Is(err, apperr.Validation))

	drinks, err := svc.CreateCategory(ctx, admin, CategoryInput{Name: "İçecekler", SortOrder: 2, IsActive: true})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, admin, CategoryInput{Name: "Ana Yemek", SortOrder: 1, IsActive: false})
	require.NoError(t, err)

	all, err := svc.ListCategories(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana Yemek", all[0].Name)

	active, err := svc.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, drinks.ID, active[0].ID)

	_, err = svc.CreateMenuItem(ctx, admin, MenuItemInput{Name: "Ayran", Price: 20, CategoryID: drinks.ID, IsAvailable: true})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, admin, drinks.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestMenuItemValidationAndSoftDelete(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, db, "Tatlı", 1)

	_, err := svc.CreateMenuItem(ctx, admin, MenuItemInput{Name: "Baklava", Price: -1, CategoryID: cat.ID})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = svc.CreateMenuItem(ctx, admin, MenuItemInput{Name: "Baklava", Price: 10, CategoryID: 999})
	assert.True(t, apperr.Is(err, apperr.Validation))

	item, err := svc.CreateMenuItem(ctx, admin, MenuItemInput{
		Name:        "Baklava",
		Price:       99.999,
		CategoryID:  cat.ID,
		IsAvailable: true,
		TrackStock:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, item.Price)
	assert.False(t, item.IsAvailable, "stoksuz takipli ürün satışa açılamaz")

	require.NoError(t, svc.DeleteMenuItem(ctx, admin, item.ID))

	items, err := svc.ListMenuItems(ctx, MenuItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.ListMenuItems(ctx, MenuItemFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsDeleted)

	err = svc.DeleteMenuItem(ctx, admin, item.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestUpdateMenuItemKeepsStock(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)
	cat := testutil.CreateCategory(t, db, "Tatlı", 1)
	item := testutil.CreateMenuItem(t, db, cat, "Sütlaç", 50, 8, 2)

	updated, err := svc.UpdateMenuItem(context.Background(), admin, item.ID, MenuItemInput{
		Name:          "Fırın Sütlaç",
		Price:         55,
		CategoryID:    cat.ID,
		IsAvailable:   true,
		TrackStock:    true,
		StockQuantity: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "Fırın Sütlaç", updated.Name)
	assert.Equal(t, 8, testutil.Reload[models.MenuItem](t, db, item.ID).StockQuantity)
}
