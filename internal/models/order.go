package models

import "time"

type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderItemStatus string

const (
	ItemPending   OrderItemStatus = "pending"
	ItemPreparing OrderItemStatus = "preparing"
	ItemServed    OrderItemStatus = "served"
	ItemCancelled OrderItemStatus = "cancelled"
)

func (s OrderItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemPreparing, ItemServed, ItemCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentOther      PaymentMethod = "other"
)

// PaymentMethods raporlarda sabit sıra için
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentOther}

// ParsePaymentMethod bilinmeyen değerleri nakit sayar. "card" kredi kartıdır.
func ParsePaymentMethod(v string) PaymentMethod {
	switch PaymentMethod(v) {
	case PaymentCreditCard, "card":
		return PaymentCreditCard
	case PaymentDebitCard:
		return PaymentDebitCard
	case PaymentOther:
		return PaymentOther
	}
	return PaymentCash
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCreditCard:
		return "Kredi Kartı"
	case PaymentDebitCard:
		return "Banka Kartı"
	case PaymentOther:
		return "Diğer"
	}
	return "Nakit"
}

// Order: masa başına en fazla bir açık adisyon. TableName silinen masalar için saklanır.
type Order struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	TableID        uint        `gorm:"not null;index" json:"table_id"`
	TableName      string      `gorm:"size:50;not null" json:"table_name"`
	Status         OrderStatus `gorm:"size:20;not null;index" json:"status"`
	OpenedBy       string      `gorm:"size:100;not null" json:"opened_by"`
	Note           string      `gorm:"size:500" json:"note"`
	TotalAmount    float64     `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	DiscountAmount float64     `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	OpenedAt       time.Time   `gorm:"not null;index" json:"opened_at"`
	ClosedAt       *time.Time  `gorm:"index" json:"closed_at"`
	Items          []OrderItem `json:"items,omitempty"`
	Payments       []Payment   `json:"payments,omitempty"`
}

type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	MenuItemID uint            `gorm:"not null;index" json:"menu_item_id"`
	MenuItem   *MenuItem       `json:"menu_item,omitempty"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  float64         `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal  float64         `gorm:"type:numeric(12,2);not null" json:"line_total"`
	Note       string          `gorm:"size:255" json:"note"`
	Status     OrderItemStatus `gorm:"size:20;not null" json:"status"`
	AddedAt    time.Time       `gorm:"not null" json:"added_at"`

	// ConsumedQty stoktan gerçekten düşülen miktar; stok 0'da kesildiyse Quantity'den azdır
	ConsumedQty int `gorm:"not null;default:0" json:"consumed_qty"`
}

type Payment struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	OrderID     uint          `gorm:"not null;index" json:"order_id"`
	Method      PaymentMethod `gorm:"size:20;not null" json:"method"`
	Amount      float64       `gorm:"type:numeric(12,2);not null" json:"amount"`
	ChangeGiven float64       `gorm:"type:numeric(12,2);not null;default:0" json:"change_given"`
	Note        string        `gorm:"size:255" json:"note"`
	PaidAt      time.Time     `gorm:"not null;index" json:"paid_at"`
}

// Collected para üstü düşülmüş tahsilat
func (p Payment) Collected() float64 {
	return RoundMoney(p.Amount - p.ChangeGiven)
}
