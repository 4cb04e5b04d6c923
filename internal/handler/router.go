package handler

import (
	"context"

	"go-stock-resi/internal/middleware"
	"go-stock-resi/internal/service"
	"go-stock-resi/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type RouterConfig struct {
	Inventory    service.InventoryService
	Dashboard    service.DashboardService
	Reports      service.ReportService
	Sessions     service.SessionService
	FallbackUser string
	// Hub is optional; without it /ws is not mounted.
	Hub *ws.Hub
	// Ctx bounds websocket connections.
	Ctx context.Context
	// RequestLog enables Fiber's request logger.
	RequestLog bool
}

func NewRouter(cfg RouterConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Stock Resi v1.0",
	})

	// Middleware
	if cfg.RequestLog {
		app.Use(logger.New()) // Logging request
	}
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	invHandler := NewInventoryHandler(cfg.Inventory)
	dashHandler := NewDashboardHandler(cfg.Dashboard, cfg.Reports)
	sessionHandler := NewSessionHandler(cfg.Sessions, cfg.FallbackUser)

	api := app.Group("/api/v1", middleware.Session(cfg.Sessions))

	api.Post("/session", sessionHandler.Login)
	api.Get("/session", sessionHandler.Current)

	api.Get("/dashboard/stats", dashHandler.GetDashboardStats)
	api.Get("/dashboard/stock-movement", dashHandler.GetStockMovement)
	api.Get("/reports/movements.pdf", dashHandler.ExportMovements)
	api.Get("/reports/movements.xlsx", dashHandler.ExportWorkbook)

	api.Get("/products", invHandler.GetProducts)
	api.Get("/products/:id", invHandler.GetProduct)
	api.Post("/products", invHandler.CreateProduct)
	api.Patch("/products/:id", invHandler.UpdateProduct)
	api.Delete("/products/:id", invHandler.DeleteProduct)

	api.Get("/transactions", invHandler.GetTransactions)
	api.Get("/transactions/:id", invHandler.GetTransaction)
	api.Post("/transactions", invHandler.CreateTransaction)

	api.Delete("/data", invHandler.ClearAll)

	if cfg.Hub != nil {
		ctx := cfg.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		// WebSocket Route
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws", websocket.New(cfg.Hub.Serve(ctx)))
	}

	return app
}
