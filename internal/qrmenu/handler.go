package qrmenu

import (
	"adisyon-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

type CallWaiterRequest struct {
	TableName string `json:"tableName" form:"tableName"`
}

// GET /api/qr-menu/:tableName
func MenuHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		menu, err := svc.Menu(c.UserContext(), c.Params("tableName"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(menu)
	}
}

// POST /api/qr-menu/call-waiter
func CallWaiterHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CallWaiterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		res, err := svc.CallWaiter(c.UserContext(), body.TableName)
		if err != nil {
			return apperr.Fiber(err)
		}
		if !res.Success {
			return c.Status(fiber.StatusBadRequest).JSON(res)
		}
		return c.JSON(res)
	}
}
