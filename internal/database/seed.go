package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"adisyon-backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type SeedFile struct {
	Tables     []SeedTable    `yaml:"tables"`
	Categories []SeedCategory `yaml:"categories"`
}

type SeedTable struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

type SeedCategory struct {
	Name      string         `yaml:"name"`
	SortOrder int            `yaml:"sort_order"`
	Items     []SeedMenuItem `yaml:"items"`
}

type SeedMenuItem struct {
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description"`
	Price          float64 `yaml:"price"`
	TrackStock     bool    `yaml:"track_stock"`
	Stock          int     `yaml:"stock"`
	AlertThreshold int     `yaml:"alert_threshold"`
}

func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed dosyası okunamadı: %w", err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("seed dosyası çözümlenemedi: %w", err)
	}
	return &sf, nil
}

// Seed sadece eksik masa ve kategorileri ekler, tekrar çalıştırılabilir.
func Seed(db *gorm.DB, sf *SeedFile) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range sf.Tables {
			name := strings.TrimSpace(t.Name)
			if name == "" {
				continue
			}
			var count int64
			tx.Model(&models.Table{}).Where("name = ?", name).Count(&count)
			if count > 0 {
				continue
			}
			capacity := t.Capacity
			if capacity < 1 || capacity > 20 {
				capacity = 4
			}
			if err := tx.Create(&models.Table{Name: name, Capacity: capacity, Status: models.TableEmpty}).Error; err != nil {
				return err
			}
		}

		for _, c := range sf.Categories {
			var cat models.Category
			err := tx.Where("name = ?", c.Name).First(&cat).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cat = models.Category{Name: c.Name, SortOrder: c.SortOrder, IsActive: true}
			if err := tx.Create(&cat).Error; err != nil {
				return err
			}
			for _, it := range c.Items {
				item := models.MenuItem{
					Name:           it.Name,
					Description:    it.Description,
					Price:          models.RoundMoney(it.Price),
					CategoryID:     cat.ID,
					IsAvailable:    !it.TrackStock || it.Stock > 0,
					TrackStock:     it.TrackStock,
					StockQuantity:  it.Stock,
					AlertThreshold: it.AlertThreshold,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// EnsureAdmin hiç Admin yoksa verilen şifreyle bir Admin oluşturur.
func EnsureAdmin(db *gorm.DB, username, password string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 || password == "" {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	user := models.User{
		Username:      username,
		FullName:      "Yönetici",
		PasswordHash:  string(hash),
		Role:          models.RoleAdmin,
		SecurityStamp: uuid.NewString(),
	}
	if err := db.Create(&user).Error; err != nil {
		return false, err
	}
	log.Printf("İlk Admin kullanıcısı oluşturuldu: %s", username)
	return true, nil
}
