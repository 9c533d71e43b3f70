package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tiendapos/facturacion-api/internal/application/billing"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Issuer        *billing.InvoiceIssuer
	Retry         *billing.RetryCoordinator
	Tokens        *billing.TokenManager
	WSFE          billing.InvoiceService
	Invoices      repository.InvoiceRepository
	Contingencies repository.ContingencyRepository
	Configs       repository.TaxConfigurationRepository
	JWTSecret     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Todo el resto requiere Bearer Token.
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	invoiceHandler := NewInvoiceHandler(deps.Issuer, deps.Retry, deps.Invoices)

	// Emisión (por venta)
	sales := protected.Group("/sales")
	sales.Post("/:id/invoice", invoiceHandler.IssueForSale)

	// Comprobantes
	invoices := protected.Group("/invoices")
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/qr", invoiceHandler.GetQR)
	// El reintento manual es una operación de supervisión: queda auditado
	// con el usuario que lo pidió.
	invoices.Post("/:id/retry", RequireRole("supervisor", "admin"), invoiceHandler.Retry)
	invoices.Get("/:id/retries", invoiceHandler.RetryHistory)

	// Contingencias
	contingencyHandler := NewContingencyHandler(deps.Contingencies)
	protected.Get("/contingencies", contingencyHandler.ListOpen)

	// Diagnóstico AFIP
	afipHandler := NewAFIPHandler(deps.Tokens, deps.WSFE, deps.Configs)
	protected.Get("/afip/last-number", afipHandler.LastNumber)
}
