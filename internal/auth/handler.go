package auth

import (
	"adisyon-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

type RegisterAdminRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/register-admin
func RegisterAdminHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		user, err := svc.RegisterAdmin(c.UserContext(), RegisterAdminInput{
			Username: body.Username,
			FullName: body.FullName,
			Password: body.Password,
		})
		if err != nil {
			return apperr.Fiber(err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	}
}

// POST /api/auth/login
func LoginHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		res, err := svc.Login(c.UserContext(), body.Username, body.Password)
		if err != nil {
			return apperr.Fiber(err)
		}

		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    res.Token,
			Expires:  res.ExpiresAt,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})

		return c.JSON(fiber.Map{
			"token": res.Token,
			"user":  PrincipalFromUser(res.User),
		})
	}
}

// POST /api/auth/logout
func LogoutHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		if err := svc.Logout(c.UserContext(), p.UserID); err != nil {
			return apperr.Fiber(err)
		}
		c.ClearCookie(SessionCookie)
		return c.JSON(fiber.Map{"message": "Çıkış yapıldı."})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}
