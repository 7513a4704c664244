package main

import (
	"adisyon-backend/internal/audit"
	"adisyon-backend/internal/auth"
	"adisyon-backend/internal/catalog"
	"adisyon-backend/internal/config"
	"adisyon-backend/internal/metrics"
	"adisyon-backend/internal/models"
	"adisyon-backend/internal/notify"
	"adisyon-backend/internal/orders"
	"adisyon-backend/internal/qrmenu"
	"adisyon-backend/internal/reports"
	"adisyon-backend/internal/stock"
	"adisyon-backend/internal/tables"
	"adisyon-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"gorm.io/gorm"
)

type services struct {
	cfg     *config.Config
	db      *gorm.DB
	notify  notify.Broadcaster
	metrics *metrics.Metrics
	auth    *auth.Service
	users   *users.Service
	tables  *tables.Service
	catalog *catalog.Service
	stock   *stock.Service
	orders  *orders.Engine
	qrmenu  *qrmenu.Service
	reports *reports.Service
}

func newServices(cfg *config.Config, db *gorm.DB, m *metrics.Metrics, bc notify.Broadcaster) *services {
	return &services{
		cfg:     cfg,
		db:      db,
		notify:  bc,
		metrics: m,
		auth:    auth.NewService(db, cfg.JWTSecret, cfg.JWTTTL),
		users:   users.NewService(db),
		tables:  tables.NewService(db, cfg.Location, cfg.ReservationGrace, m),
		catalog: catalog.NewService(db),
		stock:   stock.NewService(db, m),
		orders:  orders.NewEngine(db, m),
		qrmenu:  qrmenu.NewService(db, bc, m),
		reports: reports.NewService(db, cfg.Location),
	}
}

func registerRoutes(app *fiber.App, s *services) {
	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	api := app.Group("/api")

	// Public
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(s.auth))
	api.Post("/auth/login", auth.LoginHandler(s.auth))
	api.Get("/qr-menu/:tableName", qrmenu.MenuHandler(s.qrmenu))
	api.Post("/qr-menu/call-waiter", qrmenu.CallWaiterHandler(s.qrmenu))

	// Personel (tüm roller)
	staff := api.Group("")
	staff.Use(auth.JWTMiddleware(s.auth))

	staff.Get("/auth/me", auth.MeHandler())
	staff.Post("/auth/logout", auth.LogoutHandler(s.auth))

	staff.Get("/tables", tables.ListTablesHandler(s.tables))
	staff.Post("/tables/:id/reserve", tables.ReserveHandler(s.tables))
	staff.Post("/tables/:id/cancel-reserve", tables.CancelReserveHandler(s.tables))
	staff.Post("/tables/:id/waiter-ack", tables.WaiterAckHandler(s.tables))

	staff.Get("/categories", catalog.ListCategoriesHandler(s.catalog))
	staff.Get("/menu-items", catalog.ListMenuItemsHandler(s.catalog))
	staff.Get("/menu-items/:id", catalog.GetMenuItemHandler(s.catalog))

	staff.Get("/orders", orders.ListOrdersHandler(s.orders))
	staff.Get("/orders/table/:tableId", orders.TableOrderHandler(s.orders))
	staff.Post("/orders", orders.OpenOrderHandler(s.orders, s.notify))
	staff.Put("/orders/items/:itemId/status", orders.UpdateItemStatusHandler(s.orders, s.notify))
	staff.Get("/orders/:id", orders.GetOrderHandler(s.orders))
	staff.Post("/orders/:id/items", orders.AddItemHandler(s.orders))
	staff.Post("/orders/:id/payments", orders.AddPaymentHandler(s.orders, s.notify))
	staff.Post("/orders/:id/close", orders.CloseOrderHandler(s.orders, s.notify))

	// Admin
	admin := staff.Group("")
	admin.Use(auth.RequireRole(models.RoleAdmin))

	admin.Post("/tables", tables.CreateTableHandler(s.tables))
	admin.Delete("/tables/:id", tables.DeleteTableHandler(s.tables))

	admin.Post("/categories", catalog.CreateCategoryHandler(s.catalog))
	admin.Put("/categories/:id", catalog.UpdateCategoryHandler(s.catalog))
	admin.Delete("/categories/:id", catalog.DeleteCategoryHandler(s.catalog))
	admin.Post("/menu-items", catalog.CreateMenuItemHandler(s.catalog))
	admin.Put("/menu-items/:id", catalog.UpdateMenuItemHandler(s.catalog))
	admin.Delete("/menu-items/:id", catalog.DeleteMenuItemHandler(s.catalog))

	admin.Post("/orders/:id/cancel", orders.CancelOrderHandler(s.orders, s.notify))

	admin.Get("/stock", stock.OverviewHandler(s.stock, s.cfg.Location))
	admin.Post("/stock/:id", stock.UpdateStockHandler(s.stock))
	admin.Post("/stock/:id/track", stock.ToggleTrackHandler(s.stock))
	admin.Get("/stock/:id/history", stock.HistoryHandler(s.stock, s.cfg.Location))

	admin.Get("/reports/sales", reports.SalesHandler(s.reports))
	admin.Get("/reports/payments", reports.PaymentBreakdownHandler(s.reports))
	admin.Get("/reports/products", reports.TopProductsHandler(s.reports))
	admin.Get("/reports/categories", reports.CategorySalesHandler(s.reports))
	admin.Get("/reports/hourly", reports.HourlyHandler(s.reports))
	admin.Get("/reports/waste", reports.WasteHandler(s.reports))
	admin.Get("/reports/tables", reports.TableReportHandler(s.reports))
	admin.Get("/reports/stock-trend/:id", reports.StockTrendHandler(s.reports))
	admin.Get("/reports/export", reports.ExportHandler(s.reports))

	admin.Get("/users", users.ListUsersHandler(s.users))
	admin.Post("/users", users.CreateUserHandler(s.users))
	admin.Put("/users/:id", users.UpdateUserHandler(s.users))
	admin.Post("/users/:id/reset-password", users.ResetPasswordHandler(s.users))
	admin.Delete("/users/:id", users.DeleteUserHandler(s.users))

	admin.Get("/audit-logs", audit.ListAuditLogsHandler(s.db))
}
