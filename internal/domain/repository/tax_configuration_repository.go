package repository

import (
	"context"

	"github.com/tiendapos/facturacion-api/internal/domain/entity"
)

// TaxConfigurationRepository puerto de lectura de configuraciones fiscales.
// Las configuraciones las administra el back-office (colaborador externo);
// este core solo las consulta.
type TaxConfigurationRepository interface {
	// FindActiveByBranch devuelve la configuración activa de la sucursal, o nil.
	FindActiveByBranch(ctx context.Context, branchID string) (*entity.TaxConfiguration, error)
	// ListActive devuelve todas las configuraciones activas (para el job de renovación).
	ListActive(ctx context.Context) ([]*entity.TaxConfiguration, error)
}
