package repository

import (
	"context"

	"github.com/tiendapos/facturacion-api/internal/domain/entity"
)

// InvoiceRepository puerto de persistencia de comprobantes.
type InvoiceRepository interface {
	// Create persiste la factura. Si ya existe una factura fuera de estado ERROR
	// para la misma venta retorna domain.ErrDuplicate (constraint único parcial).
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update actualiza estado, número, CAE, logs y QR de la factura.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// FindNonErrorBySale devuelve la factura vigente (no ERROR) de una venta, o nil.
	// Es la base de la idempotencia de emisión.
	FindNonErrorBySale(ctx context.Context, saleID string) (*entity.Invoice, error)
}
