package stock

import (
	"fmt"

	"adisyon-backend/internal/models"
)

// CriticalRatio eşiğin bu oranı ve altı kritik sayılır
const CriticalRatio = 0.5

type Status string

const (
	StatusNotTracked Status = "not_tracked"
	StatusCritical   Status = "critical"
	StatusLow        Status = "low"
	StatusOK         Status = "ok"
)

func Classify(item *models.MenuItem) Status {
	if !item.TrackStock {
		return StatusNotTracked
	}
	if item.AlertThreshold > 0 {
		if item.StockQuantity <= int(float64(item.AlertThreshold)*CriticalRatio) {
			return StatusCritical
		}
		if item.StockQuantity <= item.AlertThreshold {
			return StatusLow
		}
	}
	return StatusOK
}

func (s Status) Label() string {
	switch s {
	case StatusCritical:
		return "🚨 Kritik"
	case StatusLow:
		return "⚡ Düşük"
	case StatusNotTracked:
		return "— Takip Dışı"
	}
	return "✓ Yeterli"
}

// Pill arayüzdeki rozet rengi
func (s Status) Pill() string {
	switch s {
	case StatusCritical:
		return "red"
	case StatusLow:
		return "amber"
	case StatusNotTracked:
		return "gray"
	}
	return "green"
}

func SKU(id uint) string {
	return fmt.Sprintf("SKU-%04d", id)
}
