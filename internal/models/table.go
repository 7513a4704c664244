package models

import "time"

type TableStatus string

const (
	TableEmpty    TableStatus = "empty"
	TableOccupied TableStatus = "occupied"
	TableReserved TableStatus = "reserved"
)

// Table: rezervasyon alanları ya hep birlikte dolu ya hep birlikte boş olur.
type Table struct {
	ID       uint        `gorm:"primaryKey" json:"id"`
	Name     string      `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Capacity int         `gorm:"not null" json:"capacity"`
	Status   TableStatus `gorm:"size:20;not null;default:empty;index" json:"status"`

	ReservationName       *string    `gorm:"size:100" json:"reservation_name"`
	ReservationPhone      *string    `gorm:"size:20" json:"reservation_phone"`
	ReservationGuestCount *int       `json:"reservation_guest_count"`
	ReservationTime       *time.Time `gorm:"index" json:"reservation_time"` // UTC

	IsWaiterCalled bool      `gorm:"not null;default:false" json:"is_waiter_called"`
	CreatedAt      time.Time `json:"created_at"`
}

// ClearedReservation rezervasyon kolonlarını NULL'a çeken update map'i
func ClearedReservation() map[string]any {
	return map[string]any{
		"reservation_name":        nil,
		"reservation_phone":       nil,
		"reservation_guest_count": nil,
		"reservation_time":        nil,
	}
}
