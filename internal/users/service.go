package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/audit"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"

	"gorm.io/gorm"
)

const minPasswordLength = 6

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// UserView şifre ve damga içermeyen kullanıcı görünümü
type UserView struct {
	ID          uint            `json:"id"`
	Username    string          `json:"username"`
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Role        models.UserRole `json:"role"`
	LastLoginAt *string         `json:"last_login_at"`
}

func toView(u *models.User) UserView {
	v := UserView{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Role:     u.Role,
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.UTC().Format("2006-01-02T15:04:05Z")
		v.LastLoginAt = &s
	}
	return v
}

func (s *Service) List(ctx context.Context) ([]UserView, error) {
	var list []models.User
	if err := s.db.WithContext(ctx).Order("role ASC, full_name ASC").Find(&list).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	out := make([]UserView, 0, len(list))
	for i := range list {
		out = append(out, toView(&list[i]))
	}
	return out, nil
}

type CreateInput struct {
	Username string
	FullName string
	Email    string
	Phone    string
	Password string
	Role     models.UserRole
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*UserView, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Username == "" || in.FullName == "" {
		return nil, apperr.Validationf("Kullanıcı adı ve ad soyad zorunludur.")
	}
	if !in.Role.Valid() {
		return nil, apperr.Validationf("Geçersiz rol seçimi.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validationf("Şifre en az 6 karakter olmalıdır.")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflictf("Bu kullanıcı adı zaten kullanılıyor.")
		}

		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return err
		}
		user = models.User{
			Username:      in.Username,
			FullName:      in.FullName,
			Email:         strings.TrimSpace(in.Email),
			Phone:         strings.TrimSpace(in.Phone),
			PasswordHash:  hash,
			Role:          in.Role,
			SecurityStamp: auth.NewSecurityStamp(),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Kullanıcı oluşturuldu: %s (%s)", user.Username, user.Role),
			After:       toView(&user),
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Kullanıcı oluşturulamadı.")
	}
	v := toView(&user)
	return &v, nil
}

type UpdateInput struct {
	FullName string
	Email    string
	Phone    string
	Role     models.UserRole
}

// Update rol değişirse güvenlik damgasını yeniler; açık oturum düşer.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id uint, in UpdateInput) (*UserView, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return nil, apperr.Validationf("Ad soyad zorunludur.")
	}
	if !in.Role.Valid() {
		return nil, apperr.Validationf("Geçersiz rol seçimi.")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUser(tx, id, &user); err != nil {
			return err
		}
		before := toView(&user)

		if user.Role == models.RoleAdmin && in.Role != models.RoleAdmin {
			if err := ensureAnotherAdmin(tx, user.ID); err != nil {
				return err
			}
		}

		updates := map[string]any{
			"full_name": in.FullName,
			"email":     strings.TrimSpace(in.Email),
			"phone":     strings.TrimSpace(in.Phone),
			"role":      in.Role,
		}
		if in.Role != user.Role {
			updates["security_stamp"] = auth.NewSecurityStamp()
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: "Kullanıcı güncellendi: " + user.Username,
			Before:      before,
			After:       toView(&user),
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	v := toView(&user)
	return &v, nil
}

func (s *Service) ResetPassword(ctx context.Context, actor auth.Principal, id uint, password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validationf("Şifre en az 6 karakter olmalıdır.")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Wrap(err, "")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := loadUser(tx, id, &user); err != nil {
			return err
		}
		if err := tx.Model(&user).Updates(map[string]any{
			"password_hash":  hash,
			"security_stamp": auth.NewSecurityStamp(),
		}).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: "Şifre sıfırlandı: " + user.Username,
		})
	})
	return apperr.Wrap(err, "")
}

// Delete kendi hesabını, son Admin'i ve adına açık adisyon bulunan kullanıcıyı silmez.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	if actor.UserID == id {
		return apperr.Conflictf("Kendi hesabınızı silemezsiniz.")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := loadUser(tx, id, &user); err != nil {
			return err
		}
		if user.Role == models.RoleAdmin {
			if err := ensureAnotherAdmin(tx, user.ID); err != nil {
				return err
			}
		}

		var open int64
		if err := tx.Model(&models.Order{}).
			Where("opened_by = ? AND status = ?", user.FullName, models.OrderOpen).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.Conflictf("'%s' adına açık siparişler var. Önce kapatın.", user.FullName)
		}

		if err := tx.Delete(&user).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionDelete,
			Description: "Kullanıcı silindi: " + user.Username,
			Before:      toView(&user),
		})
	})
	return apperr.Wrap(err, "")
}

func loadUser(tx *gorm.DB, id uint, user *models.User) error {
	if err := tx.First(user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("Kullanıcı bulunamadı.")
		}
		return err
	}
	return nil
}

func ensureAnotherAdmin(tx *gorm.DB, exceptID uint) error {
	var admins int64
	if err := tx.Model(&models.User{}).
		Where("role = ? AND id <> ?", models.RoleAdmin, exceptID).
		Count(&admins).Error; err != nil {
		return err
	}
	if admins == 0 {
		return apperr.Conflictf("Sistemde en az bir Admin bulunmalıdır.")
	}
	return nil
}
