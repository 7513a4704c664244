package auth

import (
	"adisyon-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const CtxPrincipalKey = "principal"

// Principal isteği yapan doğrulanmış kullanıcı. Servislere açıkça geçirilir.
type Principal struct {
	UserID   uint            `json:"user_id"`
	Username string          `json:"username"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role"`
}

func (p Principal) HasRole(roles ...models.UserRole) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func PrincipalFromUser(u *models.User) Principal {
	return Principal{UserID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}
}

func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(CtxPrincipalKey).(Principal)
	return p, ok
}

// MustPrincipal JWTMiddleware arkasındaki handler'lar için
func MustPrincipal(c *fiber.Ctx) (Principal, error) {
	p, ok := PrincipalFrom(c)
	if !ok {
		return Principal{}, fiber.NewError(fiber.StatusUnauthorized, "Kullanıcı bilgisi alınamadı")
	}
	return p, nil
}
