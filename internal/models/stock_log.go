package models

import "time"

const (
	MovementIn         = "Giriş"
	MovementOut        = "Çıkış"
	MovementCorrection = "Düzeltme"
)

// StockLog sadece eklenir, güncellenmez. OrderID adisyon kaynaklı hareketlerde doludur.
type StockLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	MenuItemID     uint      `gorm:"not null;index" json:"menu_item_id"`
	MenuItem       *MenuItem `json:"menu_item,omitempty"`
	OrderID        *uint     `gorm:"index" json:"order_id"`
	MovementType   string    `gorm:"size:20;not null" json:"movement_type"`
	QuantityChange int       `gorm:"not null" json:"quantity_change"`
	PreviousStock  int       `gorm:"not null" json:"previous_stock"`
	NewStock       int       `gorm:"not null" json:"new_stock"`
	Note           *string   `gorm:"size:255" json:"note"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
