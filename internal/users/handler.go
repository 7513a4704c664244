package users

import (
	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateUserRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

func userID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz kullanıcı ID")
	}
	return uint(id), nil
}

// GET /api/users
func ListUsersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.List(c.UserContext())
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"users": list, "roles": models.AllowedRoles})
	}
}

// POST /api/users
func CreateUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		user, err := svc.Create(c.UserContext(), p, CreateInput{
			Username: body.Username,
			FullName: body.FullName,
			Email:    body.Email,
			Phone:    body.Phone,
			Password: body.Password,
			Role:     models.UserRole(body.Role),
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Kullanıcı oluşturuldu.",
			"user":    user,
		})
	}
}

// PUT /api/users/:id
func UpdateUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := userID(c)
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		user, err := svc.Update(c.UserContext(), p, id, UpdateInput{
			FullName: body.FullName,
			Email:    body.Email,
			Phone:    body.Phone,
			Role:     models.UserRole(body.Role),
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"message": "Kullanıcı güncellendi.", "user": user})
	}
}

// POST /api/users/:id/reset-password
func ResetPasswordHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := userID(c)
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body ResetPasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := svc.ResetPassword(c.UserContext(), p, id, body.Password); err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"message": "Şifre sıfırlandı."})
	}
}

// DELETE /api/users/:id
func DeleteUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := userID(c)
		if err != nil {
			return err
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), p, id); err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"message": "Kullanıcı silindi."})
	}
}
