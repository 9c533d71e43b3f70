package billing

import (
	"fmt"

	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
)

// SignerRegistry mapea cada CUIT emisor a su firmante de tickets. Se arma una
// sola vez al arrancar: un certificado ilegible debe fallar en el arranque,
// no en medio de una venta.
type SignerRegistry struct {
	signers map[string]LoginTicketSigner
}

// NewSignerRegistry crea un registro vacío.
func NewSignerRegistry() *SignerRegistry {
	return &SignerRegistry{signers: make(map[string]LoginTicketSigner)}
}

// Register asocia el firmante al CUIT.
func (r *SignerRegistry) Register(taxID string, signer LoginTicketSigner) {
	r.signers[taxID] = signer
}

// SignerFor devuelve el firmante del CUIT. La ausencia es un error de
// configuración (ErrCertificate): no hay renovación posible sin certificado.
func (r *SignerRegistry) SignerFor(taxID string) (LoginTicketSigner, error) {
	s, ok := r.signers[taxID]
	if !ok {
		return nil, fmt.Errorf("%w: sin certificado registrado para CUIT %s", afip.ErrCertificate, taxID)
	}
	return s, nil
}

// TaxIDs lista los CUITs con certificado registrado.
func (r *SignerRegistry) TaxIDs() []string {
	ids := make([]string, 0, len(r.signers))
	for id := range r.signers {
		ids = append(ids, id)
	}
	return ids
}
