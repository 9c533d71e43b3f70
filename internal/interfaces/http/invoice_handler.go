package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tiendapos/facturacion-api/internal/application/billing"
	"github.com/tiendapos/facturacion-api/internal/application/dto"
	"github.com/tiendapos/facturacion-api/internal/domain"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
	pkgafip "github.com/tiendapos/facturacion-api/pkg/afip"
)

// InvoiceHandler maneja las peticiones HTTP de emisión y consulta de
// comprobantes (protegido).
type InvoiceHandler struct {
	issuer   *billing.InvoiceIssuer
	retry    *billing.RetryCoordinator
	invoices repository.InvoiceRepository
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(issuer *billing.InvoiceIssuer, retry *billing.RetryCoordinator, invoices repository.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{issuer: issuer, retry: retry, invoices: invoices}
}

// IssueForSale emite (o retoma) la factura de una venta. Idempotente: si la
// venta ya tiene comprobante autorizado lo devuelve tal cual.
// POST /api/sales/:id/invoice
func (h *InvoiceHandler) IssueForSale(c *fiber.Ctx) error {
	if GetUserID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	saleID := c.Params("id")
	if saleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de venta requerido"})
	}

	inv, err := h.issuer.IssueForSale(c.Context(), saleID)
	if err != nil {
		if inv != nil {
			// La emisión falló pero la factura quedó registrada en ERROR con
			// su contingencia: se informa el estado, la venta no se bloquea.
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.FromInvoice(inv))
		}
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromInvoice(inv))
}

// GetByID obtiene el detalle del comprobante.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	inv, err := h.invoices.GetByID(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	if inv == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "factura no encontrada"})
	}
	return c.JSON(dto.FromInvoice(inv))
}

// GetQR devuelve el código QR de verificación del comprobante como PNG.
// GET /api/invoices/:id/qr
func (h *InvoiceHandler) GetQR(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	inv, err := h.invoices.GetByID(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	if inv == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "factura no encontrada"})
	}
	if inv.QRData == "" {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_AUTHORIZED_YET", Message: "el comprobante aún no tiene QR (no está autorizado)"})
	}

	size := c.QueryInt("size", 256)
	png, err := pkgafip.RenderQRPNG(inv.QRData, size)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// Retry reintenta manualmente una factura fallida. Queda asentado en el
// historial de auditoría quién lo pidió y con qué desenlace.
// POST /api/invoices/:id/retry
func (h *InvoiceHandler) Retry(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}

	inv, err := h.retry.Retry(c.Context(), id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyIssued) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_ISSUED", Message: "la factura ya fue emitida y autorizada"})
		}
		if inv != nil {
			// El reintento corrió pero AFIP volvió a fallar o rechazar: el
			// intento quedó auditado y la factura sigue en ERROR.
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.FromInvoice(inv))
		}
		return mapDomainError(c, err)
	}
	return c.JSON(dto.FromInvoice(inv))
}

// RetryHistory devuelve el historial de reintentos de la factura.
// GET /api/invoices/:id/retries
func (h *InvoiceHandler) RetryHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	attempts, err := h.retry.History(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}
	out := make([]dto.RetryAttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, dto.FromRetryAttempt(a))
	}
	return c.JSON(out)
}

// mapDomainError traduce errores de dominio a códigos HTTP.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNoTaxConfig):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_TAX_CONFIG", Message: err.Error()})
	case errors.Is(err, domain.ErrSaleNotBillable), errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
