// Package qrmenu masadaki QR koddan açılan herkese açık menü ve garson çağırma.
package qrmenu

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/metrics"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/notify"

	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	bc      notify.Broadcaster
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(db *gorm.DB, bc notify.Broadcaster, m *metrics.Metrics) *Service {
	if bc == nil {
		bc = notify.Nop{}
	}
	return &Service{db: db, bc: bc, metrics: m, now: time.Now}
}

type MenuItem struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type MenuCategory struct {
	ID    uint       `json:"id"`
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

type Menu struct {
	TableName      string         `json:"tableName"`
	IsWaiterCalled bool           `json:"isWaiterCalled"`
	Categories     []MenuCategory `json:"categories"`
}

// Menu aktif kategorileri sıra numarasına göre, satıştaki ürünleri eklenme sırasına göre döner.
// Ürünü kalmayan kategori listelenmez.
func (s *Service) Menu(ctx context.Context, rawTableName string) (*Menu, error) {
	name, err := url.PathUnescape(rawTableName)
	if err != nil {
		name = rawTableName
	}
	name = strings.TrimSpace(name)

	var table models.Table
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("Bu QR koda ait masa bulunamadı.")
		}
		return nil, apperr.Wrap(err, "")
	}

	var categories []models.Category
	err = s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Preload("MenuItems", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_deleted = ? AND (is_available = ? OR (track_stock = ? AND stock_quantity > 0))", false, true, true).
				Order("created_at ASC, id ASC")
		}).
		Find(&categories).Error
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}

	menu := &Menu{TableName: table.Name, IsWaiterCalled: table.IsWaiterCalled, Categories: []MenuCategory{}}
	for _, c := range categories {
		if len(c.MenuItems) == 0 {
			continue
		}
		mc := MenuCategory{ID: c.ID, Name: c.Name, Items: make([]MenuItem, 0, len(c.MenuItems))}
		for _, it := range c.MenuItems {
			mc.Items = append(mc.Items, MenuItem{ID: it.ID, Name: it.Name, Description: it.Description, Price: it.Price})
		}
		menu.Categories = append(menu.Categories, mc)
	}
	return menu, nil
}

type CallResult struct {
	Success       bool   `json:"success"`
	AlreadyCalled bool   `json:"alreadyCalled"`
	Message       string `json:"message"`
}

// CallWaiter masanın çağrı bayrağını kurar ve personele yayın yapar.
// Bayrak zaten kuruluysa yan etki yoktur.
func (s *Service) CallWaiter(ctx context.Context, tableName string) (*CallResult, error) {
	tableName = strings.TrimSpace(tableName)
	if tableName == "" {
		return &CallResult{Success: false, Message: "Geçersiz masa adı."}, nil
	}

	var table models.Table
	if err := s.db.WithContext(ctx).Where("name = ?", tableName).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("Masa bulunamadı.")
		}
		return nil, apperr.Wrap(err, "")
	}

	res := s.db.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND is_waiter_called = ?", table.ID, false).
		Update("is_waiter_called", true)
	if res.Error != nil {
		return nil, apperr.Wrap(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return &CallResult{Success: true, AlreadyCalled: true, Message: "Garson zaten çağrıldı."}, nil
	}

	s.metrics.WaiterCalled()
	ev := notify.Event{
		Type:      notify.EventWaiterCalled,
		TableID:   table.ID,
		TableName: table.Name,
		Message:   table.Name + " garson çağırıyor.",
		At:        s.now().UTC(),
	}
	if err := s.bc.Broadcast(ctx, ev); err != nil {
		s.metrics.BroadcastFailed(ev.Type)
		log.Printf("[WARN] Garson çağrısı yayınlanamadı (%s): %v", table.Name, err)
	}
	return &CallResult{Success: true, AlreadyCalled: false, Message: "Garson çağrıldı."}, nil
}
