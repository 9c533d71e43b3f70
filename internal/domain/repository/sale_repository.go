package repository

import (
	"context"

	"github.com/tiendapos/facturacion-api/internal/domain/entity"
)

// SaleRepository acceso de solo lectura a ventas del colaborador externo,
// más la única escritura permitida: marcar la venta como facturada.
type SaleRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	MarkInvoiced(ctx context.Context, saleID string) error
}
