package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

var _ repository.ContingencyRepository = (*ContingencyRepo)(nil)

// ContingencyRepo implementación de ContingencyRepository.
type ContingencyRepo struct {
	q Querier
}

// NewContingencyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewContingencyRepository(q Querier) *ContingencyRepo {
	return &ContingencyRepo{q: q}
}

// Create registra una contingencia para revisión del operador.
func (r *ContingencyRepo) Create(ctx context.Context, c *entity.Contingency) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO contingencies (id, invoice_id, sale_id, reason, detail, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.InvoiceID, c.SaleID, c.Reason, nullIfEmpty(c.Detail), c.Resolved, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contingency: %w", err)
	}
	return nil
}

// ListOpen devuelve las contingencias sin resolver, la más antigua primero.
func (r *ContingencyRepo) ListOpen(ctx context.Context) ([]*entity.Contingency, error) {
	query := `
		SELECT id, invoice_id, sale_id, reason, detail, resolved, created_at
		FROM contingencies
		WHERE NOT resolved
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list contingencies: %w", err)
	}
	defer rows.Close()

	var list []*entity.Contingency
	for rows.Next() {
		var c entity.Contingency
		var detail *string
		err := rows.Scan(&c.ID, &c.InvoiceID, &c.SaleID, &c.Reason, &detail, &c.Resolved, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan contingency: %w", err)
		}
		c.Detail = derefStr(detail)
		list = append(list, &c)
	}
	return list, rows.Err()
}
