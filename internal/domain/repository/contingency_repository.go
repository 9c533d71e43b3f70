package repository

import (
	"context"

	"github.com/tiendapos/facturacion-api/internal/domain/entity"
)

// ContingencyRepository puerto de registro de contingencias para revisión humana.
type ContingencyRepository interface {
	Create(ctx context.Context, c *entity.Contingency) error
	ListOpen(ctx context.Context) ([]*entity.Contingency, error)
}
