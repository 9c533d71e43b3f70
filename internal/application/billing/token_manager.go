package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
	"golang.org/x/sync/singleflight"
)

// Ventana de validez del loginTicketRequest. La generación se retrasa unos
// minutos para tolerar desfasaje de reloj contra los servidores de AFIP.
const (
	ticketClockSkew = 10 * time.Minute
	ticketValidity  = 10 * time.Minute
)

// TokenManager es el dueño exclusivo de los tickets de acceso WSAA. El resto
// del sistema jamás toca un token directamente: pide credenciales acá y este
// renueva cuando hace falta (vencido o con menos de 6 h de validez restante).
//
// Renovaciones concurrentes del mismo CUIT se colapsan en un solo login
// (singleflight): el WSAA penaliza los logins repetidos con ticket vigente.
type TokenManager struct {
	tokens  repository.TokenRepository
	wsaa    AuthService
	signers *SignerRegistry
	service string // servicio destino del ticket ("wsfe")

	group singleflight.Group
	now   func() time.Time
}

// NewTokenManager construye el gestor. service es el id de servicio AFIP
// destino de los tickets (normalmente "wsfe").
func NewTokenManager(tokens repository.TokenRepository, wsaa AuthService, signers *SignerRegistry, service string) *TokenManager {
	return &TokenManager{
		tokens:  tokens,
		wsaa:    wsaa,
		signers: signers,
		service: service,
		now:     time.Now,
	}
}

// GetValidToken devuelve credenciales utilizables para el CUIT, renovando
// primero si el token falta, venció o entró en el margen de renovación.
func (m *TokenManager) GetValidToken(ctx context.Context, taxID string) (afip.Credentials, error) {
	tok, err := m.tokens.FindByTaxID(ctx, taxID)
	if err != nil {
		return afip.Credentials{}, err
	}
	if tok != nil && !tok.NeedsRenewal(m.now()) {
		return afip.Credentials{Token: tok.Token, Sign: tok.Sign, TaxID: taxID}, nil
	}

	renewed, err := m.renewShared(ctx, taxID)
	if err != nil {
		return afip.Credentials{}, err
	}
	return afip.Credentials{Token: renewed.Token, Sign: renewed.Sign, TaxID: taxID}, nil
}

// EnsureFresh renueva el token del CUIT solo si lo necesita. Devuelve si hubo
// renovación (para los contadores del job periódico).
func (m *TokenManager) EnsureFresh(ctx context.Context, taxID string) (bool, error) {
	tok, err := m.tokens.FindByTaxID(ctx, taxID)
	if err != nil {
		return false, err
	}
	if tok != nil && !tok.NeedsRenewal(m.now()) {
		return false, nil
	}
	if _, err := m.renewShared(ctx, taxID); err != nil {
		return false, err
	}
	return true, nil
}

// renewShared colapsa renovaciones concurrentes del mismo CUIT en un solo
// login WSAA.
func (m *TokenManager) renewShared(ctx context.Context, taxID string) (*entity.AuthToken, error) {
	v, err, _ := m.group.Do(taxID, func() (interface{}, error) {
		return m.renew(ctx, taxID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.AuthToken), nil
}

func (m *TokenManager) renew(ctx context.Context, taxID string) (*entity.AuthToken, error) {
	// Doble chequeo: otra goroutine pudo haber renovado mientras esperábamos
	// el turno del singleflight.
	tok, err := m.tokens.FindByTaxID(ctx, taxID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if tok != nil && !tok.NeedsRenewal(now) {
		return tok, nil
	}

	signer, err := m.signers.SignerFor(taxID)
	if err != nil {
		return nil, err
	}

	signed, err := signer.SignLoginTicket(afip.TicketRequest{
		UniqueID:       uint32(now.Unix()),
		GenerationTime: now.Add(-ticketClockSkew),
		ExpirationTime: now.Add(ticketValidity),
		Service:        m.service,
	})
	if err != nil {
		return nil, err
	}

	creds, err := m.wsaa.Login(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("renovar token CUIT %s: %w", taxID, err)
	}

	fresh := &entity.AuthToken{
		TaxID:       taxID,
		Token:       creds.Token,
		Sign:        creds.Sign,
		GeneratedAt: creds.GeneratedAt,
		ExpiresAt:   creds.ExpiresAt,
		CreatedAt:   now,
	}
	if err := m.tokens.CreateOrReplace(ctx, fresh); err != nil {
		return nil, err
	}

	log.Info().
		Str("cuit", taxID).
		Time("expires_at", fresh.ExpiresAt).
		Msg("Token WSAA renovado")
	return fresh, nil
}
