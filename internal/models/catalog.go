package models

import "time"

type Category struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:100;not null" json:"name"`
	SortOrder int        `gorm:"not null;default:0" json:"sort_order"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	MenuItems []MenuItem `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// MenuItem: takipli üründe stok 0'a inerse IsAvailable=false zorlanır.
type MenuItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Description    string    `gorm:"size:500" json:"description"`
	Price          float64   `gorm:"type:numeric(12,2);not null" json:"price"`
	CategoryID     uint      `gorm:"not null;index" json:"category_id"`
	Category       *Category `json:"category,omitempty"`
	IsAvailable    bool      `gorm:"not null" json:"is_available"`
	TrackStock     bool      `gorm:"not null;default:false" json:"track_stock"`
	StockQuantity  int       `gorm:"not null;default:0" json:"stock_quantity"`
	AlertThreshold int       `gorm:"not null;default:0" json:"alert_threshold"`
	IsDeleted      bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt      time.Time `json:"created_at"`
}
