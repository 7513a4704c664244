package stock

import (
	"fmt"
	"time"

	"adisyon-backend/internal/models"

	"gorm.io/gorm"
)

// Consume adisyon kaynaklı stok düşümü. Stok 0'ın altına inmez; 0'a inen ürün satıştan kalkar.
// Hiç değişiklik olmadıysa log yazılmaz ve nil döner.
func Consume(tx *gorm.DB, item *models.MenuItem, qty int, orderID uint, now time.Time) (*models.StockLog, error) {
	if !item.TrackStock || qty <= 0 {
		return nil, nil
	}

	prev := item.StockQuantity
	next := prev - qty
	if next <= 0 {
		next = 0
		item.IsAvailable = false
	}
	item.StockQuantity = next

	if err := tx.Model(item).Updates(map[string]any{
		"stock_quantity": item.StockQuantity,
		"is_available":   item.IsAvailable,
	}).Error; err != nil {
		return nil, err
	}
	if next == prev {
		return nil, nil
	}
	return appendLog(tx, item.ID, &orderID, models.MovementOut, prev, next, fmt.Sprintf("Adisyon #%d", orderID), now)
}

// Restock iptal edilen kalemin Consume ile düşülen miktarını geri ekler. Satış durumu değiştirilmez.
func Restock(tx *gorm.DB, item *models.MenuItem, qty int, orderID uint, note string, now time.Time) (*models.StockLog, error) {
	if !item.TrackStock || qty <= 0 {
		return nil, nil
	}

	prev := item.StockQuantity
	item.StockQuantity = prev + qty
	if err := tx.Model(item).Update("stock_quantity", item.StockQuantity).Error; err != nil {
		return nil, err
	}
	if note == "" {
		note = fmt.Sprintf("Adisyon #%d iptal", orderID)
	}
	return appendLog(tx, item.ID, &orderID, models.MovementIn, prev, item.StockQuantity, note, now)
}

func appendLog(tx *gorm.DB, menuItemID uint, orderID *uint, movement string, prev, next int, note string, now time.Time) (*models.StockLog, error) {
	entry := &models.StockLog{
		MenuItemID:     menuItemID,
		OrderID:        orderID,
		MovementType:   movement,
		QuantityChange: next - prev,
		PreviousStock:  prev,
		NewStock:       next,
		CreatedAt:      now,
	}
	if note != "" {
		entry.Note = &note
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}
