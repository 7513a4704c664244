package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/audit"
	"adisyon-backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const invalidCredentials = "Kullanıcı adı veya şifre hatalı."

type Service struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	return &Service{db: db, secret: secret, ttl: ttl, now: time.Now}
}

func (s *Service) TTL() time.Duration { return s.ttl }

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Login başarılı girişte güvenlik damgasını yeniler; önceki oturumlar düşer.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.New(apperr.Unauthorized, invalidCredentials)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.Unauthorized, invalidCredentials)
		}
		return nil, apperr.Wrap(err, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.Unauthorized, invalidCredentials)
	}
	if !user.Role.Valid() {
		return nil, apperr.New(apperr.Forbidden, "Hesabınıza henüz bir rol atanmamış. Lütfen yöneticinize başvurun.")
	}

	now := s.now().UTC()
	user.SecurityStamp = NewSecurityStamp()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"security_stamp": user.SecurityStamp,
		"last_login_at":  now,
	}).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}

	token, err := GenerateToken(s.secret, &user, s.ttl, now)
	if err != nil {
		return nil, apperr.Wrap(err, "Token oluşturulamadı")
	}
	return &LoginResult{Token: token, ExpiresAt: now.Add(s.ttl), User: &user}, nil
}

// Logout damgayı yenileyerek mevcut token'ı geçersiz kılar.
func (s *Service) Logout(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("security_stamp", NewSecurityStamp()).Error
	return apperr.Wrap(err, "")
}

// Authenticate token'ı ve veritabanındaki güncel damgayı doğrular.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperr.New(apperr.Unauthorized, "Oturum bulunamadı")
	}
	claims, err := ParseToken(s.secret, token)
	if err != nil {
		return Principal{}, apperr.New(apperr.Unauthorized, "Geçersiz veya süresi dolmuş token")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, apperr.New(apperr.Unauthorized, "Kullanıcı bulunamadı")
		}
		return Principal{}, apperr.Wrap(err, "")
	}
	if user.SecurityStamp != claims.Stamp {
		return Principal{}, apperr.New(apperr.Unauthorized, "Oturumunuz sonlandırıldı, tekrar giriş yapın")
	}
	return PrincipalFromUser(&user), nil
}

type RegisterAdminInput struct {
	Username string
	FullName string
	Password string
}

// RegisterAdmin sistemde hiç Admin yokken ilk hesabı açar.
func (s *Service) RegisterAdmin(ctx context.Context, in RegisterAdminInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Username == "" || in.FullName == "" || in.Password == "" {
		return nil, apperr.Validationf("Kullanıcı adı, ad soyad ve şifre zorunlu")
	}
	if len(in.Password) < 6 {
		return nil, apperr.Validationf("Şifre en az 6 karakter olmalıdır.")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.Forbidden, "Zaten bir Admin var")
		}

		hash, err := HashPassword(in.Password)
		if err != nil {
			return err
		}
		user = models.User{
			Username:      in.Username,
			FullName:      in.FullName,
			PasswordHash:  hash,
			Role:          models.RoleAdmin,
			SecurityStamp: NewSecurityStamp(),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      user.ID,
			UserName:    user.FullName,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: "İlk Admin hesabı oluşturuldu: " + user.Username,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Kullanıcı oluşturulamadı")
	}
	return &user, nil
}

func NewSecurityStamp() string {
	return uuid.NewString()
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
