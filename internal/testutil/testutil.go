// Package testutil paket testleri için in-memory SQLite ve örnek kayıtlar sağlar.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"adisyon-backend/internal/database"
	"adisyon-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewDB her test için ayrı, migrate edilmiş bir in-memory veritabanı açar.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])

	db, err := database.Open("sqlite", dsn, "silent")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Clock sabit zaman döndüren saat
func Clock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func CreateTable(t *testing.T, db *gorm.DB, name string, capacity int) *models.Table {
	t.Helper()
	table := &models.Table{Name: name, Capacity: capacity, Status: models.TableEmpty}
	require.NoError(t, db.Create(table).Error)
	return table
}

func CreateCategory(t *testing.T, db *gorm.DB, name string, sortOrder int) *models.Category {
	t.Helper()
	cat := &models.Category{Name: name, SortOrder: sortOrder, IsActive: true}
	require.NoError(t, db.Create(cat).Error)
	return cat
}

// CreateMenuItem satışta bir ürün ekler; stock >= 0 ise stok takibi açılır.
func CreateMenuItem(t *testing.T, db *gorm.DB, cat *models.Category, name string, price float64, stock int, threshold int) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		Name:           name,
		Price:          price,
		CategoryID:     cat.ID,
		IsAvailable:    true,
		TrackStock:     stock >= 0,
		AlertThreshold: threshold,
	}
	if stock > 0 {
		item.StockQuantity = stock
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func CreateUser(t *testing.T, db *gorm.DB, username, fullName string, role models.UserRole, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username:      username,
		FullName:      fullName,
		PasswordHash:  string(hash),
		Role:          role,
		SecurityStamp: uuid.NewString(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func Reload[T any](t *testing.T, db *gorm.DB, id uint) *T {
	t.Helper()
	var v T
	require.NoError(t, db.First(&v, id).Error)
	return &v
}
