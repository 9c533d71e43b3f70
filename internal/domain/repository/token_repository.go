package repository

import (
	"context"

	"github.com/tiendapos/facturacion-api/internal/domain/entity"
)

// TokenRepository puerto de persistencia de tickets de acceso WSAA.
// Un token por CUIT; CreateOrReplace reemplaza el anterior de forma atómica.
type TokenRepository interface {
	FindByTaxID(ctx context.Context, taxID string) (*entity.AuthToken, error)
	CreateOrReplace(ctx context.Context, token *entity.AuthToken) error
}
