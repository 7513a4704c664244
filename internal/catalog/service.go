package catalog

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

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CategoryInput struct {
	Name      string
	SortOrder int
	IsActive  bool
}

func (s *Service) ListCategories(ctx context.Context, onlyActive bool) ([]models.Category, error) {
	q := s.db.WithContext(ctx).Order("sort_order, name")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var cats []models.Category
	if err := q.Find(&cats).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return cats, nil
}

func (s *Service) CreateCategory(ctx context.Context, actor auth.Principal, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validationf("Kategori adı boş olamaz.")
	}
	cat := models.Category{Name: name, SortOrder: in.SortOrder, IsActive: in.IsActive}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cat).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionCreate,
			Description: "Kategori oluşturuldu: " + cat.Name,
			After:       cat,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return &cat, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actor auth.Principal, id uint, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validationf("Kategori adı boş olamaz.")
	}

	var cat models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cat, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Kategori bulunamadı.")
			}
			return err
		}
		before := cat
		cat.Name = name
		cat.SortOrder = in.SortOrder
		cat.IsActive = in.IsActive
		if err := tx.Model(&cat).Updates(map[string]any{
			"name":       cat.Name,
			"sort_order": cat.SortOrder,
			"is_active":  cat.IsActive,
		}).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionUpdate,
			Description: "Kategori güncellendi: " + cat.Name,
			Before:      before,
			After:       cat,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return &cat, nil
}

// DeleteCategory ürünü olan kategoriyi silmez (silinmiş ürünler dahil, geçmiş adisyonlar onlara bağlı).
func (s *Service) DeleteCategory(ctx context.Context, actor auth.Principal, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Kategori bulunamadı.")
			}
			return err
		}
		var count int64
		if err := tx.Model(&models.MenuItem{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflictf("'%s' kategorisinde ürünler var. Önce ürünleri taşıyın.", cat.Name)
		}
		if err := tx.Delete(&cat).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionDelete,
			Description: "Kategori silindi: " + cat.Name,
			Before:      cat,
		})
	})
	return apperr.Wrap(err, "")
}

type MenuItemInput struct {
	Name           string
	Description    string
	Price          float64
	CategoryID     uint
	IsAvailable    bool
	TrackStock     bool
	StockQuantity  int
	AlertThreshold int
}

func (in *MenuItemInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return apperr.Validationf("Ürün adı boş olamaz.")
	}
	if in.Price < 0 {
		return apperr.Validationf("Fiyat negatif olamaz.")
	}
	if in.StockQuantity < 0 {
		return apperr.Validationf("Stok miktarı negatif olamaz.")
	}
	if in.AlertThreshold < 0 {
		return apperr.Validationf("Uyarı eşiği negatif olamaz.")
	}
	return nil
}

type MenuItemFilter struct {
	CategoryID     uint
	IncludeDeleted bool
}

func (s *Service) ListMenuItems(ctx context.Context, f MenuItemFilter) ([]models.MenuItem, error) {
	q := s.db.WithContext(ctx).Preload("Category").Order("name")
	if !f.IncludeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if f.CategoryID > 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	var items []models.MenuItem
	if err := q.Find(&items).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return items, nil
}

func (s *Service) GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).Preload("Category").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("Ürün bulunamadı.")
		}
		return nil, apperr.Wrap(err, "")
	}
	return &item, nil
}

func (s *Service) CreateMenuItem(ctx context.Context, actor auth.Principal, in MenuItemInput) (*models.MenuItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	item := models.MenuItem{
		Name:           in.Name,
		Description:    in.Description,
		Price:          models.RoundMoney(in.Price),
		CategoryID:     in.CategoryID,
		IsAvailable:    in.IsAvailable,
		TrackStock:     in.TrackStock,
		StockQuantity:  in.StockQuantity,
		AlertThreshold: in.AlertThreshold,
	}
	if item.TrackStock && item.StockQuantity <= 0 {
		item.IsAvailable = false
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCategory(tx, in.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "menu_item",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Ürün oluşturuldu: %s (₺%.2f)", item.Name, item.Price),
			After:       item,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return &item, nil
}

// UpdateMenuItem ürün bilgilerini günceller. Stok miktarı burada değişmez, stok defterinden yönetilir.
func (s *Service) UpdateMenuItem(ctx context.Context, actor auth.Principal, id uint, in MenuItemInput) (*models.MenuItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item models.MenuItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("is_deleted = ?", false).First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Ürün bulunamadı.")
			}
			return err
		}
		if err := ensureCategory(tx, in.CategoryID); err != nil {
			return err
		}
		before := item

		item.Name = in.Name
		item.Description = in.Description
		item.Price = models.RoundMoney(in.Price)
		item.CategoryID = in.CategoryID
		item.IsAvailable = in.IsAvailable
		item.TrackStock = in.TrackStock
		item.AlertThreshold = in.AlertThreshold
		if item.TrackStock && item.StockQuantity <= 0 {
			item.IsAvailable = false
		}

		if err := tx.Model(&item).Updates(map[string]any{
			"name":            item.Name,
			"description":     item.Description,
			"price":           item.Price,
			"category_id":     item.CategoryID,
			"is_available":    item.IsAvailable,
			"track_stock":     item.TrackStock,
			"alert_threshold": item.AlertThreshold,
		}).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "menu_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: "Ürün güncellendi: " + item.Name,
			Before:      before,
			After:       item,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return &item, nil
}

// DeleteMenuItem ürünü yumuşak siler; geçmiş adisyon kalemleri ürüne bağlı kalır.
func (s *Service) DeleteMenuItem(ctx context.Context, actor auth.Principal, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.Where("is_deleted = ?", false).First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Ürün bulunamadı.")
			}
			return err
		}
		if err := tx.Model(&item).Updates(map[string]any{
			"is_deleted":   true,
			"is_available": false,
		}).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "menu_item",
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: "Ürün silindi: " + item.Name,
			Before:      item,
		})
	})
	return apperr.Wrap(err, "")
}

func ensureCategory(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Validationf("Kategori bulunamadı.")
	}
	return nil
}
