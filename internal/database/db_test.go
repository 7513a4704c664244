package database_test

import (
	"os"
	"path/filepath"
	"testing"

	"adisyon-backend/internal/database"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
tables:
  - name: Masa 1
    capacity: 4
  - name: Bahçe 1
    capacity: 40
categories:
  - name: İçecekler
    sort_order: 1
    items:
      - name: Çay
        price: 15
        track_stock: true
        stock: 0
        alert_threshold: 10
      - name: Ayran
        price: 25.5
`

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open("oracle", "", "silent")
	require.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	sf, err := database.LoadSeedFile(path)
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, sf))
	require.NoError(t, database.Seed(db, sf))

	var tables []models.Table
	require.NoError(t, db.Order("name").Find(&tables).Error)
	require.Len(t, tables, 2)
	assert.Equal(t, 4, tables[0].Capacity, "geçersiz kapasite varsayılana çekilir")

	var items []models.MenuItem
	require.NoError(t, db.Order("name").Find(&items).Error)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsAvailable)
	assert.False(t, items[1].IsAvailable, "stoğu olmayan takipli ürün satışa kapalı")
}

func TestEnsureAdmin(t *testing.T) {
	db := testutil.NewDB(t)

	created, err := database.EnsureAdmin(db, "admin", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = database.EnsureAdmin(db, "admin", "gizli123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = database.EnsureAdmin(db, "admin2", "gizli123")
	require.NoError(t, err)
	assert.False(t, created)
}
