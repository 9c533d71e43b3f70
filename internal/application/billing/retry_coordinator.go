package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tiendapos/facturacion-api/internal/domain"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

// RetryCoordinator ejecuta reintentos manuales sobre facturas fallidas y deja
// el registro de auditoría de cada intento (quién, cuándo, desde qué estado y
// con qué desenlace). El historial es append-only.
type RetryCoordinator struct {
	invoices repository.InvoiceRepository
	attempts repository.RetryAttemptRepository
	issuer   *InvoiceIssuer

	now func() time.Time
}

// NewRetryCoordinator construye el coordinador.
func NewRetryCoordinator(invoices repository.InvoiceRepository, attempts repository.RetryAttemptRepository, issuer *InvoiceIssuer) *RetryCoordinator {
	return &RetryCoordinator{
		invoices: invoices,
		attempts: attempts,
		issuer:   issuer,
		now:      time.Now,
	}
}

// Retry reenvía la factura reutilizando el mismo registro (nunca crea uno
// nuevo). Una factura ya COMPLETADA devuelve domain.ErrAlreadyIssued sin
// registrar intento: jamás se vuelve a pedir CAE por un comprobante emitido.
func (c *RetryCoordinator) Retry(ctx context.Context, invoiceID, userID string) (*entity.Invoice, error) {
	inv, err := c.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	if inv.Status == entity.InvoiceStatusCompleted {
		return nil, domain.ErrAlreadyIssued
	}

	previousStatus := inv.Status
	startedAt := c.now()

	updated, submitErr := c.issuer.Resubmit(ctx, inv)
	if updated == nil {
		// Falla previa al intercambio (venta o configuración inexistente):
		// no hubo intento contra AFIP que auditar.
		return nil, submitErr
	}

	attempt := &entity.RetryAttempt{
		InvoiceID:      invoiceID,
		UserID:         userID,
		PreviousStatus: previousStatus,
		StartedAt:      startedAt,
		CompletedAt:    c.now(),
	}
	if updated.Status == entity.InvoiceStatusCompleted {
		attempt.Result = entity.RetryResultCompleted
		attempt.CAE = updated.CAE
	} else {
		attempt.Result = entity.RetryResultError
		attempt.ErrorDetail = updated.ErrorDetail
		attempt.ProtocolLog = updated.ProtocolLog
	}
	if err := c.attempts.Append(ctx, attempt); err != nil {
		log.Error().Err(err).Str("invoice_id", invoiceID).Msg("No se pudo registrar el reintento")
	}

	return updated, submitErr
}

// History devuelve el historial de reintentos de la factura, el más reciente primero.
func (c *RetryCoordinator) History(ctx context.Context, invoiceID string) ([]*entity.RetryAttempt, error) {
	inv, err := c.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	return c.attempts.ListByInvoice(ctx, invoiceID)
}
