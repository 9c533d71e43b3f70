package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

var _ repository.TaxConfigurationRepository = (*TaxConfigurationRepo)(nil)

// TaxConfigurationRepo implementación de TaxConfigurationRepository.
// La tabla lleva un índice único parcial sobre point_of_sale WHERE active:
// una sola configuración activa por punto de venta en todo el sistema.
type TaxConfigurationRepo struct {
	q Querier
}

// NewTaxConfigurationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTaxConfigurationRepository(q Querier) *TaxConfigurationRepo {
	return &TaxConfigurationRepo{q: q}
}

const taxConfigColumns = `id, branch_id, tax_id, point_of_sale, tax_rate, active, created_at, updated_at`

// FindActiveByBranch devuelve la configuración activa de la sucursal, o nil.
func (r *TaxConfigurationRepo) FindActiveByBranch(ctx context.Context, branchID string) (*entity.TaxConfiguration, error) {
	query := `SELECT ` + taxConfigColumns + ` FROM tax_configurations WHERE branch_id = $1 AND active`
	cfg, err := r.scanOne(r.q.QueryRow(ctx, query, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tax configuration: %w", err)
	}
	return cfg, nil
}

// ListActive devuelve todas las configuraciones activas ordenadas por CUIT.
func (r *TaxConfigurationRepo) ListActive(ctx context.Context) ([]*entity.TaxConfiguration, error) {
	query := `SELECT ` + taxConfigColumns + ` FROM tax_configurations WHERE active ORDER BY tax_id, point_of_sale`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tax configurations: %w", err)
	}
	defer rows.Close()

	var list []*entity.TaxConfiguration
	for rows.Next() {
		cfg, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tax configuration: %w", err)
		}
		list = append(list, cfg)
	}
	return list, rows.Err()
}

func (r *TaxConfigurationRepo) scanOne(row pgx.Row) (*entity.TaxConfiguration, error) {
	var cfg entity.TaxConfiguration
	err := row.Scan(
		&cfg.ID, &cfg.BranchID, &cfg.TaxID, &cfg.PointOfSale, &cfg.TaxRate,
		&cfg.Active, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
