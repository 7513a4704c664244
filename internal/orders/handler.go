package orders

import (
	"context"
	"fmt"
	"log"
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/notify"

	"github.com/gofiber/fiber/v2"
)

type OpenOrderRequest struct {
	TableID  uint        `json:"table_id"`
	OpenedBy string      `json:"opened_by"`
	Note     string      `json:"note"`
	Items    []LineInput `json:"items"`
}

type ItemStatusRequest struct {
	Status string `json:"status"`
}

type PaymentRequest struct {
	PayerName string  `json:"payer_name"`
	Method    string  `json:"method"`
	Amount    float64 `json:"amount"`
	Discount  float64 `json:"discount"`
}

type CloseRequest struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type OrderResponse struct {
	*models.Order
	Summary Summary `json:"summary"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	return OrderResponse{Order: o, Summary: Summarize(o)}
}

// publish commit sonrası çağrılır; yayın hatası isteği bozmaz
func publish(bc notify.Broadcaster, ev notify.Event) {
	if bc == nil {
		return
	}
	ev.At = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bc.Broadcast(ctx, ev); err != nil {
		log.Printf("[WARN] %s bildirimi gönderilemedi: %v", ev.Type, err)
	}
}

func parseID(c *fiber.Ctx, name, msg string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, msg)
	}
	return uint(id), nil
}

// GET /api/orders?tab=active|past
func ListOrdersHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tab := c.Query("tab", "active")

		var (
			list []models.Order
			err  error
		)
		switch tab {
		case "active":
			list, err = e.ListActive(c.UserContext())
		case "past":
			list, err = e.ListPast(c.UserContext())
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz sekme")
		}
		if err != nil {
			return apperr.Fiber(err)
		}

		out := make([]OrderResponse, 0, len(list))
		for i := range list {
			out = append(out, toOrderResponse(&list[i]))
		}
		return c.JSON(fiber.Map{"tab": tab, "orders": out})
	}
}

// GET /api/orders/:id
func GetOrderHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "Geçersiz adisyon ID")
		if err != nil {
			return err
		}
		order, err := e.Get(c.UserContext(), id)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(toOrderResponse(order))
	}
}

// GET /api/orders/table/:tableId
func TableOrderHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := parseID(c, "tableId", "Geçersiz masa ID")
		if err != nil {
			return err
		}
		order, err := e.OpenOrderForTable(c.UserContext(), tableID)
		if err != nil {
			return apperr.Fiber(err)
		}
		if order == nil {
			return c.JSON(fiber.Map{"order": nil})
		}
		return c.JSON(fiber.Map{"order": toOrderResponse(order)})
	}
}

// POST /api/orders
func OpenOrderHandler(e *Engine, bc notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body OpenOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		res, err := e.OpenOrder(c.UserContext(), p, OpenOrderInput{
			TableID:  body.TableID,
			OpenedBy: body.OpenedBy,
			Note:     body.Note,
			Lines:    body.Items,
		})
		if err != nil {
			return apperr.Fiber(err)
		}

		if res.Redirected {
			return c.JSON(fiber.Map{
				"message":    "Bu masada zaten açık bir adisyon var.",
				"redirected": true,
				"order_id":   res.Order.ID,
			})
		}

		publish(bc, notify.Event{
			Type:      notify.EventOrderOpened,
			TableID:   res.Order.TableID,
			TableName: res.Order.TableName,
			OrderID:   res.Order.ID,
		})
		order, err := e.Get(c.UserContext(), res.Order.ID)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":    fmt.Sprintf("%s için adisyon açıldı.", order.TableName),
			"redirected": false,
			"order":      toOrderResponse(order),
		})
	}
}

// POST /api/orders/:id/items
func AddItemHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "Geçersiz adisyon ID")
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body LineInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		item, err := e.AddItem(c.UserContext(), p, id, body)
		if err != nil {
			return apperr.Fiber(err)
		}
		order, err := e.Get(c.UserContext(), id)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Ürün adisyona eklendi.",
			"item":    item,
			"order":   toOrderResponse(order),
		})
	}
}

// PUT /api/orders/items/:itemId/status
func UpdateItemStatusHandler(e *Engine, bc notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemID, err := parseID(c, "itemId", "Geçersiz kalem ID")
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body ItemStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		item, err := e.UpdateItemStatus(c.UserContext(), p, itemID, models.OrderItemStatus(body.Status))
		if err != nil {
			return apperr.Fiber(err)
		}
		order, err := e.Get(c.UserContext(), item.OrderID)
		if err != nil {
			return apperr.Fiber(err)
		}

		publish(bc, notify.Event{
			Type:      notify.EventItemStatusChanged,
			TableID:   order.TableID,
			TableName: order.TableName,
			OrderID:   order.ID,
			Message:   string(item.Status),
		})
		return c.JSON(fiber.Map{
			"message": "Kalem durumu güncellendi.",
			"item":    item,
			"order":   toOrderResponse(order),
		})
	}
}

// POST /api/orders/:id/payments
func AddPaymentHandler(e *Engine, bc notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "Geçersiz adisyon ID")
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body PaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		res, err := e.AddPayment(c.UserContext(), p, id, PaymentInput{
			PayerName: body.PayerName,
			Method:    body.Method,
			Amount:    body.Amount,
			Discount:  body.Discount,
		})
		if err != nil {
			return apperr.Fiber(err)
		}

		msg := fmt.Sprintf("₺%.2f ödeme alındı. Kalan: ₺%.2f", res.Payment.Amount, res.Remaining)
		if res.Closed {
			msg = "Ödeme tamamlandı, adisyon kapatıldı."
			publish(bc, notify.Event{
				Type:      notify.EventOrderClosed,
				TableID:   res.Order.TableID,
				TableName: res.Order.TableName,
				OrderID:   res.Order.ID,
			})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":   msg,
			"payment":   res.Payment,
			"paid":      res.Paid,
			"net_total": res.NetTotal,
			"remaining": res.Remaining,
			"closed":    res.Closed,
		})
	}
}

// POST /api/orders/:id/close
func CloseOrderHandler(e *Engine, bc notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "Geçersiz adisyon ID")
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body CloseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		res, err := e.Close(c.UserContext(), p, id, body.Method, body.Amount)
		if err != nil {
			return apperr.Fiber(err)
		}

		publish(bc, notify.Event{
			Type:      notify.EventOrderClosed,
			TableID:   res.Order.TableID,
			TableName: res.Order.TableName,
			OrderID:   res.Order.ID,
		})
		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("Adisyon kapatıldı. Para üstü: ₺%.2f", res.Change),
			"change":  res.Change,
			"payment": res.Payment,
		})
	}
}

// POST /api/orders/:id/cancel
func CancelOrderHandler(e *Engine, bc notify.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "Geçersiz adisyon ID")
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body CancelRequest
		_ = c.BodyParser(&body)

		order, err := e.Cancel(c.UserContext(), p, id, body.Reason)
		if err != nil {
			return apperr.Fiber(err)
		}

		publish(bc, notify.Event{
			Type:      notify.EventOrderClosed,
			TableID:   order.TableID,
			TableName: order.TableName,
			OrderID:   order.ID,
			Message:   "cancelled",
		})
		return c.JSON(fiber.Map{"message": "Adisyon iptal edildi."})
	}
}
