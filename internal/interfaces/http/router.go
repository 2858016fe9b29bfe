package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/compras-api/internal/application/stock"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Recorder  *stock.RecordMovementUseCase
	Resolver  *stock.ResolveDivergenceUseCase
	Query     *stock.QueryUseCase
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Stock: recepciones, movimientos manuales, traslados y consultas
	stockGroup := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Recorder, deps.Query)
	stockGroup.Post("/receipts", RequireRole("admin", "bodeguero"), stockHandler.RecordReceipt)
	stockGroup.Post("/manual-in", RequireRole("admin", "bodeguero"), stockHandler.RecordManualIn)
	stockGroup.Post("/manual-out", RequireRole("admin", "bodeguero"), stockHandler.RecordManualOut)
	stockGroup.Post("/transfers", RequireRole("admin", "bodeguero"), stockHandler.RecordTransfer)
	stockGroup.Get("/branches/:id", stockHandler.GetAvailableStock)
	stockGroup.Get("/movements", stockHandler.ListMovements)
	stockGroup.Get("/movements/:id", stockHandler.GetMovementDetail)

	// Auditoría: resolución de divergencias (solo admin/auditor)
	auditGroup := protected.Group("/audit")
	auditHandler := NewAuditHandler(deps.Resolver, deps.Query)
	auditGroup.Get("/pending", RequireRole("admin", "auditor"), auditHandler.ListPending)
	auditGroup.Post("/lines/:id/resolve", RequireRole("admin", "auditor"), auditHandler.ResolveLine)
}
