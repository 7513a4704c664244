package catalog

import (
	"adisyon-backend/internal/apperr"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CategoryRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

type MenuItemRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	CategoryID     uint    `json:"category_id"`
	IsAvailable    *bool   `json:"is_available"`
	TrackStock     bool    `json:"track_stock"`
	StockQuantity  int     `json:"stock_quantity"`
	AlertThreshold int     `json:"alert_threshold"`
}

type MenuItemResponse struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	CategoryID     uint    `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	IsAvailable    bool    `json:"is_available"`
	TrackStock     bool    `json:"track_stock"`
	StockQuantity  int     `json:"stock_quantity"`
	AlertThreshold int     `json:"alert_threshold"`
	IsDeleted      bool    `json:"is_deleted"`
	CreatedAt      string  `json:"created_at"`
}

func toMenuItemResponse(m *models.MenuItem) MenuItemResponse {
	r := MenuItemResponse{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		Price:          m.Price,
		CategoryID:     m.CategoryID,
		IsAvailable:    m.IsAvailable,
		TrackStock:     m.TrackStock,
		StockQuantity:  m.StockQuantity,
		AlertThreshold: m.AlertThreshold,
		IsDeleted:      m.IsDeleted,
		CreatedAt:      m.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if m.Category != nil {
		r.CategoryName = m.Category.Name
	}
	return r
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// GET /api/categories?active=true
func ListCategoriesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := svc.ListCategories(c.UserContext(), c.QueryBool("active", false))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(cats)
	}
}

// POST /api/categories
func CreateCategoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		cat, err := svc.CreateCategory(c.UserContext(), p, CategoryInput{
			Name:      body.Name,
			SortOrder: body.SortOrder,
			IsActive:  boolOr(body.IsActive, true),
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz kategori ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		cat, err := svc.UpdateCategory(c.UserContext(), p, uint(id), CategoryInput{
			Name:      body.Name,
			SortOrder: body.SortOrder,
			IsActive:  boolOr(body.IsActive, true),
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(cat)
	}
}

// DELETE /api/categories/:id
func DeleteCategoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz kategori ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteCategory(c.UserContext(), p, uint(id)); err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"message": "Kategori silindi."})
	}
}

// GET /api/menu-items?category_id=1&include_deleted=true
func ListMenuItemsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.ListMenuItems(c.UserContext(), MenuItemFilter{
			CategoryID:     uint(c.QueryInt("category_id", 0)),
			IncludeDeleted: c.QueryBool("include_deleted", false),
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		resp := make([]MenuItemResponse, 0, len(items))
		for i := range items {
			resp = append(resp, toMenuItemResponse(&items[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/menu-items/:id
func GetMenuItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}
		item, err := svc.GetMenuItem(c.UserContext(), uint(id))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(toMenuItemResponse(item))
	}
}

// POST /api/menu-items
func CreateMenuItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body MenuItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		item, err := svc.CreateMenuItem(c.UserContext(), p, body.input())
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toMenuItemResponse(item))
	}
}

// PUT /api/menu-items/:id
func UpdateMenuItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body MenuItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		item, err := svc.UpdateMenuItem(c.UserContext(), p, uint(id), body.input())
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(toMenuItemResponse(item))
	}
}

// DELETE /api/menu-items/:id
func DeleteMenuItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteMenuItem(c.UserContext(), p, uint(id)); err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"message": "Ürün silindi."})
	}
}

func (r MenuItemRequest) input() MenuItemInput {
	return MenuItemInput{
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		CategoryID:     r.CategoryID,
		IsAvailable:    boolOr(r.IsAvailable, true),
		TrackStock:     r.TrackStock,
		StockQuantity:  r.StockQuantity,
		AlertThreshold: r.AlertThreshold,
	}
}
