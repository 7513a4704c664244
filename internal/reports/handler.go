package reports

import (
	"fmt"
	"strconv"

	"adisyon-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// rangeFrom ?preset=today|yesterday|week|month|custom&from=2026-03-01&to=2026-03-10
func rangeFrom(c *fiber.Ctx, svc *Service) (Range, error) {
	return svc.Range(c.Query("preset", PresetToday), c.Query("from"), c.Query("to"))
}

// GET /api/reports/sales
func SalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		rep, err := svc.Sales(c.UserContext(), r, c.QueryBool("includeCancelled", false))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(rep)
	}
}

// GET /api/reports/payments
func PaymentBreakdownHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		list, err := svc.PaymentBreakdown(c.UserContext(), r)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"range": r.Label(), "methods": list})
	}
}

// GET /api/reports/products?top=10
func TopProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		list, err := svc.TopProducts(c.UserContext(), r, c.QueryInt("top", 10))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"range": r.Label(), "products": list})
	}
}

// GET /api/reports/categories
func CategorySalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		list, err := svc.CategorySales(c.UserContext(), r)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"range": r.Label(), "categories": list})
	}
}

// GET /api/reports/hourly
func HourlyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.Hourly(c.UserContext())
		if err != nil {
			return apperr.Fiber(err)
		}
		var total float64
		for _, b := range list {
			total += b.Amount
		}
		return c.JSON(fiber.Map{"hours": list, "total": total})
	}
}

// GET /api/reports/waste
func WasteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		rep, err := svc.Waste(c.UserContext(), r)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(rep)
	}
}

// GET /api/reports/tables
func TableReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		list, err := svc.TableReport(c.UserContext(), r)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"range": r.Label(), "tables": list})
	}
}

// GET /api/reports/stock-trend/:id?days=30
func StockTrendHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}
		trend, err := svc.StockTrend(c.UserContext(), uint(id), c.QueryInt("days", 30))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(trend)
	}
}

// GET /api/reports/export?type=sales|waste|table|stock&format=csv|xlsx
func ExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := rangeFrom(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		file, err := svc.Export(c.UserContext(), c.Query("type"), c.Query("format", FormatCSV), r)
		if err != nil {
			return apperr.Fiber(err)
		}
		c.Set(fiber.HeaderContentType, file.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", strconv.Quote(file.Name)))
		return c.Send(file.Data)
	}
}
