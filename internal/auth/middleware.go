package auth

import (
	"strings"

	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const SessionCookie = "adisyon_session"

// JWTMiddleware Bearer header'ı ya da oturum çerezini kabul eder.
func JWTMiddleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header eksik")
		}

		p, err := svc.Authenticate(c.UserContext(), token)
		if err != nil {
			return apperr.Fiber(err)
		}

		c.Locals(CtxPrincipalKey, p)
		return c.Next()
	}
}

func TokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(SessionCookie)
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
		}
		if p.HasRole(allowedRoles...) {
			return c.Next()
		}
		return fiber.NewError(fiber.StatusForbidden, "Bu işlem için yetkiniz yok")
	}
}
