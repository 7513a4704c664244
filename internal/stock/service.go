package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/audit"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/metrics"
	"adisyon-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ModeDirect   = "direct"
	ModeMovement = "movement"

	DirectionIn  = "in"
	DirectionOut = "out"

	historyLimit   = 50
	sparklineLimit = 5
)

type Service struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(db *gorm.DB, m *metrics.Metrics) *Service {
	return &Service{db: db, metrics: m, now: time.Now}
}

type UpdateInput struct {
	MenuItemID     uint
	Mode           string // direct | movement
	NewStock       *int   // direct
	Direction      string // movement: in | out
	Quantity       int    // movement
	Note           string
	AlertThreshold *int // >= 0 ise güncellenir
}

type UpdateResult struct {
	Item    *models.MenuItem
	Log     *models.StockLog
	Status  Status
	Message string
}

// UpdateStock doğrudan düzeltme ya da giriş/çıkış hareketi uygular ve tek bir StockLog yazar.
func (s *Service) UpdateStock(ctx context.Context, actor auth.Principal, in UpdateInput) (*UpdateResult, error) {
	mode := in.Mode
	if mode == "" {
		mode = ModeDirect
	}
	note := strings.TrimSpace(in.Note)

	switch mode {
	case ModeDirect:
		if in.NewStock == nil || *in.NewStock < 0 {
			return nil, apperr.Validationf("Geçerli bir stok değeri giriniz.")
		}
	case ModeMovement:
		if in.Direction != DirectionIn && in.Direction != DirectionOut {
			return nil, apperr.Validationf("Geçersiz hareket yönü.")
		}
		if in.Quantity <= 0 {
			return nil, apperr.Validationf("Geçerli bir miktar giriniz.")
		}
		if note == "" {
			return nil, apperr.Validationf("Hareket bazlı işlem için açıklama zorunludur.")
		}
	default:
		return nil, apperr.Validationf("Geçersiz işlem tipi.")
	}

	var res UpdateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("is_deleted = ?", false).
			First(&item, in.MenuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Ürün bulunamadı.")
			}
			return err
		}
		before := item

		prev := item.StockQuantity
		var next int
		var movement string
		if mode == ModeDirect {
			next = *in.NewStock
			movement = models.MovementCorrection
		} else if in.Direction == DirectionIn {
			next = prev + in.Quantity
			movement = models.MovementIn
		} else {
			next = prev - in.Quantity
			movement = models.MovementOut
			if next < 0 {
				return apperr.Validationf("Stok miktarı sıfırın altına düşemez.")
			}
		}

		item.StockQuantity = next
		if in.AlertThreshold != nil && *in.AlertThreshold >= 0 {
			item.AlertThreshold = *in.AlertThreshold
		}
		if item.TrackStock && next <= 0 {
			item.IsAvailable = false
		}

		if err := tx.Model(&item).Updates(map[string]any{
			"stock_quantity":  item.StockQuantity,
			"alert_threshold": item.AlertThreshold,
			"is_available":    item.IsAvailable,
		}).Error; err != nil {
			return err
		}

		entry, err := appendLog(tx, item.ID, nil, movement, prev, next, note, s.now().UTC())
		if err != nil {
			return err
		}

		res = UpdateResult{
			Item:    &item,
			Log:     entry,
			Status:  Classify(&item),
			Message: fmt.Sprintf("Stok güncellendi. Yeni stok: %d", next),
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "stock",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%s stok %s: %d → %d", item.Name, movement, prev, next),
			Before:      before,
			After:       item,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	s.metrics.StockMovement(res.Log.MovementType)
	return &res, nil
}

type ToggleResult struct {
	Item    *models.MenuItem
	Status  Status
	Message string
}

// ToggleTrack takibi açar/kapatır; enabled nil ise mevcut değerin tersine çevirir.
func (s *Service) ToggleTrack(ctx context.Context, actor auth.Principal, menuItemID uint, enabled *bool) (*ToggleResult, error) {
	var res ToggleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("is_deleted = ?", false).
			First(&item, menuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("Ürün bulunamadı.")
			}
			return err
		}

		track := !item.TrackStock
		if enabled != nil {
			track = *enabled
		}
		item.TrackStock = track
		if track && item.StockQuantity <= 0 {
			item.IsAvailable = false
		}
		if err := tx.Model(&item).Updates(map[string]any{
			"track_stock":  item.TrackStock,
			"is_available": item.IsAvailable,
		}).Error; err != nil {
			return err
		}

		res.Item = &item
		res.Status = Classify(&item)
		if track {
			res.Message = "Stok takibi aktif edildi."
		} else {
			res.Message = "Stok takibi kapatıldı."
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.FullName,
			EntityType:  "menu_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: item.Name + ": " + res.Message,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return &res, nil
}

// History en yeni 50 hareketi döner
func (s *Service) History(ctx context.Context, menuItemID uint) (*models.MenuItem, []models.StockLog, error) {
	db := s.db.WithContext(ctx)

	var item models.MenuItem
	if err := db.First(&item, menuItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFoundf("Ürün bulunamadı.")
		}
		return nil, nil, apperr.Wrap(err, "")
	}

	var logs []models.StockLog
	if err := db.Where("menu_item_id = ?", menuItemID).
		Order("created_at DESC, id DESC").
		Limit(historyLimit).
		Find(&logs).Error; err != nil {
		return nil, nil, apperr.Wrap(err, "")
	}
	return &item, logs, nil
}

type ItemOverview struct {
	Item        models.MenuItem
	Status      Status
	Sparkline   []int // eskiden yeniye son 5 stok değeri
	LastUpdated *time.Time
}

type Summary struct {
	Total    int  `json:"total"`
	Tracked  int  `json:"tracked"`
	Low      int  `json:"low"`
	Critical int  `json:"critical"`
	HasAlert bool `json:"has_alert"`
}

type Overview struct {
	Items   []ItemOverview
	Summary Summary
}

// Overview silinmemiş tüm ürünlerin stok durumunu ve özet sayıları hesaplar.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)

	var items []models.MenuItem
	if err := db.Preload("Category").
		Where("is_deleted = ?", false).
		Order("name").
		Find(&items).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}

	// ürün başına son sparklineLimit hareket
	var logs []models.StockLog
	if err := db.Raw(`SELECT menu_item_id, new_stock, created_at FROM (
		SELECT menu_item_id, new_stock, created_at, id,
			ROW_NUMBER() OVER (PARTITION BY menu_item_id ORDER BY created_at DESC, id DESC) AS rn
		FROM stock_logs
	) ranked WHERE rn <= ? ORDER BY menu_item_id, created_at DESC, id DESC`, sparklineLimit).
		Scan(&logs).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}

	recent := make(map[uint][]models.StockLog)
	for _, l := range logs {
		if len(recent[l.MenuItemID]) < sparklineLimit {
			recent[l.MenuItemID] = append(recent[l.MenuItemID], l)
		}
	}

	out := &Overview{Items: make([]ItemOverview, 0, len(items))}
	for _, item := range items {
		ov := ItemOverview{Item: item, Status: Classify(&item)}
		r := recent[item.ID]
		if len(r) > 0 {
			ts := r[0].CreatedAt
			ov.LastUpdated = &ts
		}
		ov.Sparkline = make([]int, 0, len(r))
		for i := len(r) - 1; i >= 0; i-- {
			ov.Sparkline = append(ov.Sparkline, r[i].NewStock)
		}
		out.Items = append(out.Items, ov)

		out.Summary.Total++
		if item.TrackStock {
			out.Summary.Tracked++
		}
		switch ov.Status {
		case StatusLow:
			out.Summary.Low++
		case StatusCritical:
			out.Summary.Critical++
		}
	}
	out.Summary.HasAlert = out.Summary.Low+out.Summary.Critical > 0
	return out, nil
}
