package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

var _ repository.TokenRepository = (*TokenRepo)(nil)

// TokenRepo implementación de TokenRepository. Un registro por CUIT (PK tax_id);
// el reemplazo es un upsert atómico, nunca se muta un token existente.
type TokenRepo struct {
	q Querier
}

// NewTokenRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTokenRepository(q Querier) *TokenRepo {
	return &TokenRepo{q: q}
}

// FindByTaxID obtiene el token vigente de un CUIT, o nil si no hay ninguno.
func (r *TokenRepo) FindByTaxID(ctx context.Context, taxID string) (*entity.AuthToken, error) {
	query := `
		SELECT tax_id, token, sign, generated_at, expires_at, created_at
		FROM auth_tokens WHERE tax_id = $1`
	var t entity.AuthToken
	err := r.q.QueryRow(ctx, query, taxID).Scan(
		&t.TaxID, &t.Token, &t.Sign, &t.GeneratedAt, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth token: %w", err)
	}
	return &t, nil
}

// CreateOrReplace inserta el token nuevo reemplazando por completo el anterior del CUIT.
func (r *TokenRepo) CreateOrReplace(ctx context.Context, token *entity.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (tax_id, token, sign, generated_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tax_id) DO UPDATE SET
			token        = EXCLUDED.token,
			sign         = EXCLUDED.sign,
			generated_at = EXCLUDED.generated_at,
			expires_at   = EXCLUDED.expires_at,
			created_at   = EXCLUDED.created_at`
	_, err := r.q.Exec(ctx, query,
		token.TaxID, token.Token, token.Sign, token.GeneratedAt, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert auth token: %w", err)
	}
	return nil
}
