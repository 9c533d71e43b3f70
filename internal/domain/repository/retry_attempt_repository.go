package repository

import (
	"context"

	"github.com/tiendapos/facturacion-api/internal/domain/entity"
)

// RetryAttemptRepository historial append-only de reintentos por factura.
type RetryAttemptRepository interface {
	Append(ctx context.Context, attempt *entity.RetryAttempt) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.RetryAttempt, error)
}
