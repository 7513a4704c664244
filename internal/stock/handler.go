package stock

import (
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type UpdateStockRequest struct {
	Mode           string `json:"mode"` // direct | movement
	NewStock       *int   `json:"new_stock"`
	Direction      string `json:"direction"` // in | out
	Quantity       int    `json:"quantity"`
	Note           string `json:"note"`
	AlertThreshold *int   `json:"alert_threshold"`
}

type ToggleTrackRequest struct {
	Enabled *bool `json:"enabled"`
}

type StockItemResponse struct {
	ID             uint    `json:"id"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	CategoryName   string  `json:"category_name"`
	Price          float64 `json:"price"`
	IsAvailable    bool    `json:"is_available"`
	TrackStock     bool    `json:"track_stock"`
	StockQuantity  int     `json:"stock_quantity"`
	AlertThreshold int     `json:"alert_threshold"`
	Status         Status  `json:"status"`
	StatusLabel    string  `json:"status_label"`
	StatusPill     string  `json:"status_pill"`
	Sparkline      []int   `json:"sparkline"`
	LastUpdated    *string `json:"last_updated"`
}

type HistoryEntryResponse struct {
	ID             uint   `json:"id"`
	CreatedAt      string `json:"created_at"`
	MovementType   string `json:"movement_type"`
	QuantityChange int    `json:"quantity_change"`
	PreviousStock  int    `json:"previous_stock"`
	NewStock       int    `json:"new_stock"`
	Note           string `json:"note"`
	OrderID        *uint  `json:"order_id"`
}

// GET /api/stock
func OverviewHandler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ov, err := svc.Overview(c.UserContext())
		if err != nil {
			return apperr.Fiber(err)
		}

		items := make([]StockItemResponse, 0, len(ov.Items))
		for _, it := range ov.Items {
			r := StockItemResponse{
				ID:             it.Item.ID,
				SKU:            SKU(it.Item.ID),
				Name:           it.Item.Name,
				Price:          it.Item.Price,
				IsAvailable:    it.Item.IsAvailable,
				TrackStock:     it.Item.TrackStock,
				StockQuantity:  it.Item.StockQuantity,
				AlertThreshold: it.Item.AlertThreshold,
				Status:         it.Status,
				StatusLabel:    it.Status.Label(),
				StatusPill:     it.Status.Pill(),
				Sparkline:      it.Sparkline,
			}
			if it.Item.Category != nil {
				r.CategoryName = it.Item.Category.Name
			}
			if it.LastUpdated != nil {
				s := it.LastUpdated.In(loc).Format("02.01.2006 15:04")
				r.LastUpdated = &s
			}
			items = append(items, r)
		}

		return c.JSON(fiber.Map{
			"items":   items,
			"summary": ov.Summary,
		})
	}
}

// POST /api/stock/:id
func UpdateStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}

		var body UpdateStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		res, err := svc.UpdateStock(c.UserContext(), p, UpdateInput{
			MenuItemID:     uint(id),
			Mode:           body.Mode,
			NewStock:       body.NewStock,
			Direction:      body.Direction,
			Quantity:       body.Quantity,
			Note:           body.Note,
			AlertThreshold: body.AlertThreshold,
		})
		if err != nil {
			return apperr.Fiber(err)
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"new_stock":    res.Item.StockQuantity,
			"is_available": res.Item.IsAvailable,
			"status":       res.Status,
			"status_label": res.Status.Label(),
			"status_pill":  res.Status.Pill(),
			"message":      res.Message,
		})
	}
}

// POST /api/stock/:id/track
func ToggleTrackHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}

		var body ToggleTrackRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
			}
		}

		res, err := svc.ToggleTrack(c.UserContext(), p, uint(id), body.Enabled)
		if err != nil {
			return apperr.Fiber(err)
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"track_stock":  res.Item.TrackStock,
			"status":       res.Status,
			"status_label": res.Status.Label(),
			"status_pill":  res.Status.Pill(),
			"message":      res.Message,
		})
	}
}

// GET /api/stock/:id/history
func HistoryHandler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		item, logs, err := svc.History(c.UserContext(), uint(id))
		if err != nil {
			return apperr.Fiber(err)
		}

		entries := make([]HistoryEntryResponse, 0, len(logs))
		for _, l := range logs {
			note := "—"
			if l.Note != nil && *l.Note != "" {
				note = *l.Note
			}
			entries = append(entries, HistoryEntryResponse{
				ID:             l.ID,
				CreatedAt:      l.CreatedAt.In(loc).Format("02.01.2006 15:04"),
				MovementType:   l.MovementType,
				QuantityChange: l.QuantityChange,
				PreviousStock:  l.PreviousStock,
				NewStock:       l.NewStock,
				Note:           note,
				OrderID:        l.OrderID,
			})
		}

		return c.JSON(fiber.Map{
			"menu_item_id": item.ID,
			"name":         item.Name,
			"sku":          SKU(item.ID),
			"history":      entries,
		})
	}
}
