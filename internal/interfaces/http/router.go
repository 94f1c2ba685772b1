package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/cafe-bot/internal/application/auth"
	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/report"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	Ledger    *appinventory.Ledger
	Report    *report.UseCase
	JWTSecret string
}

// Router registra las rutas del API de administración.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	inventoryHandler := NewInventoryHandler(deps.Ledger)
	protected.Get("/almacen", inventoryHandler.Stock)
	protected.Get("/almacen/:fase/lotes", inventoryHandler.Lots)
	protected.Post("/almacen/sincronizar", RequireRole(auth.RoleAdmin), inventoryHandler.Reconcile)

	reportHandler := NewReportHandler(deps.Report)
	protected.Get("/reportes/almacen.pdf", reportHandler.InventoryPDF)
}
