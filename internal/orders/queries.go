package orders

import (
	"context"
	"errors"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/models"

	"gorm.io/gorm"
)

const pastOrdersLimit = 50

func (e *Engine) withLines(ctx context.Context) *gorm.DB {
	return e.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.MenuItem").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") })
}

// Get kalemler ve ödemelerle birlikte tek adisyon
func (e *Engine) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := e.withLines(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("Adisyon bulunamadı.")
		}
		return nil, apperr.Wrap(err, "")
	}
	return &order, nil
}

func (e *Engine) ListActive(ctx context.Context) ([]models.Order, error) {
	var list []models.Order
	if err := e.withLines(ctx).
		Where("status = ?", models.OrderOpen).
		Order("opened_at DESC").
		Find(&list).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return list, nil
}

// ListPast son kapanan adisyonlar, en yeni önce
func (e *Engine) ListPast(ctx context.Context) ([]models.Order, error) {
	var list []models.Order
	if err := e.withLines(ctx).
		Where("status <> ?", models.OrderOpen).
		Order("closed_at DESC").
		Limit(pastOrdersLimit).
		Find(&list).Error; err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return list, nil
}

// OpenOrderForTable masanın açık adisyonu; yoksa nil
func (e *Engine) OpenOrderForTable(ctx context.Context, tableID uint) (*models.Order, error) {
	var order models.Order
	err := e.withLines(ctx).
		Where("table_id = ? AND status = ?", tableID, models.OrderOpen).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, "")
	}
	return &order, nil
}

// Summary adisyon ekranındaki tutar özeti
type Summary struct {
	Total     float64 `json:"total"`
	Discount  float64 `json:"discount"`
	NetTotal  float64 `json:"net_total"`
	Paid      float64 `json:"paid"`
	Remaining float64 `json:"remaining"`
}

func Summarize(o *models.Order) Summary {
	var paid float64
	for _, p := range o.Payments {
		paid += p.Collected()
	}
	net := models.RoundMoney(o.TotalAmount - o.DiscountAmount)
	paid = models.RoundMoney(paid)
	return Summary{
		Total:     o.TotalAmount,
		Discount:  o.DiscountAmount,
		NetTotal:  net,
		Paid:      paid,
		Remaining: max(models.RoundMoney(net-paid), 0),
	}
}
