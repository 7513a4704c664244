package notify

import (
	"context"
	"errors"
	"time"
)

const (
	EventWaiterCalled       = "WaiterCalled"
	EventOrderOpened        = "OrderOpened"
	EventOrderClosed        = "OrderClosed"
	EventItemStatusChanged  = "ItemStatusChanged"
	EventReservationExpired = "ReservationExpired"
)

// Event personel ekranlarına giden bildirim
type Event struct {
	Type      string    `json:"type"`
	TableID   uint      `json:"tableId,omitempty"`
	TableName string    `json:"tableName,omitempty"`
	OrderID   uint      `json:"orderId,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Broadcaster bağlı tüm personel istemcilerine en iyi çabayla yayın yapar.
// Bağlı olmayan istemciler için kuyruk yoktur.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event) error
}

// Multi olayı tüm hedeflere iletir; birinin hatası diğerlerini durdurmaz.
type Multi []Broadcaster

func (m Multi) Broadcast(ctx context.Context, ev Event) error {
	var errs []error
	for _, b := range m {
		if b == nil {
			continue
		}
		if err := b.Broadcast(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop hiçbir şey yapmaz
type Nop struct{}

func (Nop) Broadcast(context.Context, Event) error { return nil }
