package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación de SaleRepository. Las ventas las escribe el módulo
// de caja; acá solo se leen y se marca invoiced tras la aprobación de AFIP.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// GetByID obtiene la venta con sus ítems, o nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	query := `
		SELECT id, branch_id, buyer_tax_id, total, invoiced, date
		FROM sales WHERE id = $1`
	var s entity.Sale
	var buyerTaxID *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.BranchID, &buyerTaxID, &s.Total, &s.Invoiced, &s.Date,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.BuyerTaxID = derefStr(buyerTaxID)

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return &s, nil
}

// MarkInvoiced marca la venta como facturada. Es la única escritura sobre ventas.
func (r *SaleRepo) MarkInvoiced(ctx context.Context, saleID string) error {
	_, err := r.q.Exec(ctx, `UPDATE sales SET invoiced = TRUE WHERE id = $1`, saleID)
	if err != nil {
		return fmt.Errorf("mark sale invoiced: %w", err)
	}
	return nil
}

func (r *SaleRepo) listItems(ctx context.Context, saleID string) ([]entity.SaleItem, error) {
	query := `
		SELECT description, quantity, unit_price, bonus, subtotal
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position`
	rows, err := r.q.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	var items []entity.SaleItem
	for rows.Next() {
		var it entity.SaleItem
		err := rows.Scan(&it.Description, &it.Quantity, &it.UnitPrice, &it.Bonus, &it.Subtotal)
		if err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
