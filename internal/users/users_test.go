package users

import (
	"context"
	"testing"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Service, *gorm.DB, auth.Principal) {
	t.Helper()
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "admin", "Yönetici", models.RoleAdmin, "secret1")
	return NewService(db), db, auth.PrincipalFromUser(admin)
}

func TestCreateUser(t *testing.T) {
	svc, db, actor := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, actor, CreateInput{Username: "ali", FullName: "Ali", Password: "123456", Role: "Şef"})
	require.Error(t, err)
	assert.Equal(t, "Geçersiz rol seçimi.", err.Error())

	_, err = svc.Create(ctx, actor, CreateInput{Username: "ali", FullName: "Ali", Password: "12345", Role: models.RoleGarson})
	require.Error(t, err)
	assert.Equal(t, "Şifre en az 6 karakter olmalıdır.", err.Error())

	u, err := svc.Create(ctx, actor, CreateInput{Username: " ali ", FullName: "Ali Garson", Password: "123456", Role: models.RoleGarson})
	require.NoError(t, err)
	assert.Equal(t, "ali", u.Username)

	_, err = svc.Create(ctx, actor, CreateInput{Username: "ali", FullName: "Başka", Password: "123456", Role: models.RoleKasiyer})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
	assert.Equal(t, "Bu kullanıcı adı zaten kullanılıyor.", err.Error())

	stored := testutil.Reload[models.User](t, db, u.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("123456")))
	assert.NotEmpty(t, stored.SecurityStamp)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdateRoleRotatesStamp(t *testing.T) {
	svc, db, actor := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ayse", "Ayşe", models.RoleGarson, "123456")

	_, err := svc.Update(ctx, actor, u.ID, UpdateInput{FullName: "Ayşe Yılmaz", Role: models.RoleGarson})
	require.NoError(t, err)
	assert.Equal(t, u.SecurityStamp, testutil.Reload[models.User](t, db, u.ID).SecurityStamp, "rol aynı")

	view, err := svc.Update(ctx, actor, u.ID, UpdateInput{FullName: "Ayşe Yılmaz", Role: models.RoleKasiyer})
	require.NoError(t, err)
	assert.Equal(t, models.RoleKasiyer, view.Role)
	assert.NotEqual(t, u.SecurityStamp, testutil.Reload[models.User](t, db, u.ID).SecurityStamp)

	_, err = svc.Update(ctx, actor, actor.UserID, UpdateInput{FullName: "Yönetici", Role: models.RoleGarson})
	require.Error(t, err)
	assert.Equal(t, "Sistemde en az bir Admin bulunmalıdır.", err.Error())

	_, err = svc.Update(ctx, actor, 999, UpdateInput{FullName: "X", Role: models.RoleGarson})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestResetPassword(t *testing.T) {
	svc, db, actor := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "veli", "Veli", models.RoleKasiyer, "123456")

	err := svc.ResetPassword(ctx, actor, u.ID, "kisa")
	require.Error(t, err)
	assert.Equal(t, "Şifre en az 6 karakter olmalıdır.", err.Error())

	require.NoError(t, svc.ResetPassword(ctx, actor, u.ID, "yenisifre"))
	stored := testutil.Reload[models.User](t, db, u.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("yenisifre")))
	assert.NotEqual(t, u.SecurityStamp, stored.SecurityStamp)
}

func TestDeleteGuards(t *testing.T) {
	svc, db, actor := setup(t)
	ctx := context.Background()

	err := svc.Delete(ctx, actor, actor.UserID)
	require.Error(t, err)
	assert.Equal(t, "Kendi hesabınızı silemezsiniz.", err.Error())

	// başka bir admin son admini silmeye çalışırsa
	other := auth.Principal{UserID: 500, FullName: "Dış", Role: models.RoleAdmin}
	err = svc.Delete(ctx, other, actor.UserID)
	require.Error(t, err)
	assert.Equal(t, "Sistemde en az bir Admin bulunmalıdır.", err.Error())

	garson := testutil.CreateUser(t, db, "ali", "Ali Garson", models.RoleGarson, "123456")
	table := testutil.CreateTable(t, db, "Masa 1", 4)
	order := models.Order{
		TableID:   table.ID,
		TableName: table.Name,
		Status:    models.OrderOpen,
		OpenedBy:  "Ali Garson",
		OpenedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(&order).Error)

	err = svc.Delete(ctx, actor, garson.ID)
	require.Error(t, err)
	assert.Equal(t, "'Ali Garson' adına açık siparişler var. Önce kapatın.", err.Error())

	require.NoError(t, db.Model(&order).Update("status", models.OrderPaid).Error)
	require.NoError(t, svc.Delete(ctx, actor, garson.ID))

	var count int64
	db.Model(&models.User{}).Where("id = ?", garson.ID).Count(&count)
	assert.Zero(t, count)

	var logs int64
	db.Model(&models.AuditLog{}).Where("entity_type = ? AND action = ?", "user", models.AuditActionDelete).Count(&logs)
	assert.EqualValues(t, 1, logs)
}
