package tables

import (
	"time"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateTableRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type ReserveRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	GuestCount int    `json:"guest_count"`
	Time       string `json:"time"` // "19:30" ya da "2026-03-10T19:30"
}

type TableResponse struct {
	ID                    uint               `json:"id"`
	Name                  string             `json:"name"`
	Capacity              int                `json:"capacity"`
	Status                models.TableStatus `json:"status"`
	ReservationName       *string            `json:"reservation_name"`
	ReservationPhone      *string            `json:"reservation_phone"`
	ReservationGuestCount *int               `json:"reservation_guest_count"`
	ReservationTime       *string            `json:"reservation_time"` // restoran saati
	IsWaiterCalled        bool               `json:"is_waiter_called"`
}

func toTableResponse(t *models.Table, loc *time.Location) TableResponse {
	r := TableResponse{
		ID:                    t.ID,
		Name:                  t.Name,
		Capacity:              t.Capacity,
		Status:                t.Status,
		ReservationName:       t.ReservationName,
		ReservationPhone:      t.ReservationPhone,
		ReservationGuestCount: t.ReservationGuestCount,
		IsWaiterCalled:        t.IsWaiterCalled,
	}
	if t.ReservationTime != nil {
		s := t.ReservationTime.In(loc).Format("2006-01-02 15:04")
		r.ReservationTime = &s
	}
	return r
}

// GET /api/tables
func ListTablesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.List(c.UserContext())
		if err != nil {
			return apperr.Fiber(err)
		}
		out := make([]TableResponse, 0, len(res.Tables))
		for i := range res.Tables {
			out = append(out, toTableResponse(&res.Tables[i], svc.Location()))
		}
		return c.JSON(fiber.Map{
			"tables":         out,
			"occupied_count": res.OccupiedCount,
			"total":          len(out),
		})
	}
}

// POST /api/tables
func CreateTableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body CreateTableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		table, err := svc.Create(c.UserContext(), p, body.Name, body.Capacity)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "'" + table.Name + "' masası oluşturuldu.",
			"table":   toTableResponse(table, svc.Location()),
		})
	}
}

// POST /api/tables/:id/reserve
func ReserveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz masa ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body ReserveRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		table, err := svc.Reserve(c.UserContext(), p, uint(id), ReserveInput{
			Name:       body.Name,
			Phone:      body.Phone,
			GuestCount: body.GuestCount,
			Time:       body.Time,
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{
			"message": table.Name + " rezerve edildi.",
			"table":   toTableResponse(table, svc.Location()),
		})
	}
}

// POST /api/tables/:id/cancel-reserve
func CancelReserveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz masa ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		changed, err := svc.CancelReserve(c.UserContext(), p, uint(id))
		if err != nil {
			return apperr.Fiber(err)
		}
		msg := "Rezervasyon iptal edildi."
		if !changed {
			msg = "Bu masa zaten rezerve değil."
		}
		return c.JSON(fiber.Map{"message": msg, "changed": changed})
	}
}

// DELETE /api/tables/:id
func DeleteTableHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz masa ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), p, uint(id)); err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"message": "Masa silindi."})
	}
}

// POST /api/tables/:id/waiter-ack
func WaiterAckHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz masa ID")
		}
		table, err := svc.AcknowledgeWaiter(c.UserContext(), uint(id))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{
			"message": table.Name + " için garson çağrısı kapatıldı.",
			"table":   toTableResponse(table, svc.Location()),
		})
	}
}
