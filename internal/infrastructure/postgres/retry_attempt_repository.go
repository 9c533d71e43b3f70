package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

var _ repository.RetryAttemptRepository = (*RetryAttemptRepo)(nil)

// RetryAttemptRepo implementación de RetryAttemptRepository. Solo INSERT y
// SELECT: el historial de reintentos es append-only, nunca se edita un intento.
type RetryAttemptRepo struct {
	q Querier
}

// NewRetryAttemptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRetryAttemptRepository(q Querier) *RetryAttemptRepo {
	return &RetryAttemptRepo{q: q}
}

// Append registra un intento ya finalizado en el historial de la factura.
func (r *RetryAttemptRepo) Append(ctx context.Context, attempt *entity.RetryAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	query := `
		INSERT INTO retry_attempts (
			id, invoice_id, user_id, previous_status, result,
			cae, error_detail, protocol_log, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		attempt.ID, attempt.InvoiceID, attempt.UserID, attempt.PreviousStatus, attempt.Result,
		nullIfEmpty(attempt.CAE), nullIfEmpty(attempt.ErrorDetail), nullIfEmpty(attempt.ProtocolLog),
		attempt.StartedAt, attempt.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert retry attempt: %w", err)
	}
	return nil
}

// ListByInvoice devuelve el historial de reintentos de una factura, el más reciente primero.
func (r *RetryAttemptRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.RetryAttempt, error) {
	query := `
		SELECT id, invoice_id, user_id, previous_status, result,
		       cae, error_detail, protocol_log, started_at, completed_at
		FROM retry_attempts
		WHERE invoice_id = $1
		ORDER BY started_at DESC`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list retry attempts: %w", err)
	}
	defer rows.Close()

	var list []*entity.RetryAttempt
	for rows.Next() {
		var a entity.RetryAttempt
		var cae, errorDetail, protocolLog *string
		err := rows.Scan(
			&a.ID, &a.InvoiceID, &a.UserID, &a.PreviousStatus, &a.Result,
			&cae, &errorDetail, &protocolLog, &a.StartedAt, &a.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan retry attempt: %w", err)
		}
		a.CAE = derefStr(cae)
		a.ErrorDetail = derefStr(errorDetail)
		a.ProtocolLog = derefStr(protocolLog)
		list = append(list, &a)
	}
	return list, rows.Err()
}
