package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Clinica-api/internal/application/analytics"
	"github.com/jhoicas/Clinica-api/internal/application/auth"
	"github.com/jhoicas/Clinica-api/internal/application/pharmacy"
	"github.com/jhoicas/Clinica-api/internal/application/ports"
	"github.com/jhoicas/Clinica-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC     *auth.AuthUseCase
	CatalogUC  *pharmacy.CatalogUseCase
	BatchUC    *pharmacy.BatchUseCase
	CheckoutUC *pharmacy.CheckoutUseCase
	SalesUC    *pharmacy.SalesUseCase
	AlertUC    *pharmacy.AlertUseCase
	RevenueUC  *analytics.RevenueUseCase
	Events     ports.EventSubscriber // nil deshabilita /api/events
	Location   *time.Location
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	requireAuth := AuthMiddleware(deps.JWTSecret)
	pharmacist := RequireRole(entity.RolePharmacist)
	adminOnly := RequireRole(entity.RoleAdmin)

	// Auth: login público; el alta de personal la hace un admin (el primero se crea con pharmacyctl create-admin)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", requireAuth, adminOnly, authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Catálogo: lectura para todo el personal, escritura farmacia
	medicines := api.Group("/medicines", requireAuth)
	medicineHandler := NewMedicineHandler(deps.CatalogUC, deps.BatchUC)
	medicines.Get("/", medicineHandler.List)
	medicines.Get("/search", medicineHandler.Search)
	medicines.Post("/", pharmacist, medicineHandler.Create)
	medicines.Post("/import", pharmacist, medicineHandler.Import)
	medicines.Get("/:id", medicineHandler.GetByID)
	medicines.Put("/:id", pharmacist, medicineHandler.Update)
	medicines.Post("/:id/deactivate", pharmacist, medicineHandler.Deactivate)
	medicines.Delete("/:id", pharmacist, medicineHandler.Delete)
	medicines.Get("/:id/stock", medicineHandler.Stock)
	medicines.Get("/:id/batches", medicineHandler.Batches)

	// Lotes
	batches := api.Group("/batches", requireAuth, pharmacist)
	batchHandler := NewBatchHandler(deps.BatchUC)
	batches.Post("/", batchHandler.Receive)
	batches.Post("/:id/adjust", batchHandler.Adjust)

	// Farmacia: ventas y alertas
	pharmacyGroup := api.Group("/pharmacy", requireAuth)
	pharmacyHandler := NewPharmacyHandler(deps.CheckoutUC, deps.SalesUC, deps.AlertUC)
	pharmacyGroup.Post("/checkout", pharmacist, pharmacyHandler.Checkout)
	pharmacyGroup.Get("/sales", pharmacyHandler.ListSales)
	pharmacyGroup.Get("/sales/:id", pharmacyHandler.GetSale)
	pharmacyGroup.Get("/sales/:id/receipt.pdf", pharmacyHandler.Receipt)
	pharmacyGroup.Get("/alerts/low-stock", pharmacyHandler.LowStock)
	pharmacyGroup.Get("/alerts/expiry", pharmacyHandler.Expiry)

	// Eventos en vivo (SSE) para los tableros
	eventsHandler := NewEventsHandler(deps.Events)
	api.Get("/events", requireAuth, eventsHandler.Stream)

	// Reportes (admin)
	reports := api.Group("/reports", requireAuth, adminOnly)
	reportHandler := NewReportHandler(deps.RevenueUC, deps.Location)
	reports.Get("/daily", reportHandler.Daily)
	reports.Get("/daily.csv", reportHandler.DailyCSV)
}
