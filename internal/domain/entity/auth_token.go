package entity

import "time"

// RenewalMargin margen de seguridad: un token con menos de 6 horas de validez
// restante se renueva aunque todavía sirva (el WSAA emite por ~12 horas).
const RenewalMargin = 6 * time.Hour

// AuthToken es el ticket de acceso WSAA de un CUIT. Lo posee en exclusiva el
// TokenManager: nunca se muta, solo se reemplaza completo al renovar.
type AuthToken struct {
	TaxID       string    // CUIT dueño del token
	Token       string    // credencial "token" del loginTicketResponse
	Sign        string    // credencial "sign" del loginTicketResponse
	GeneratedAt time.Time // generationTime informado por el WSAA
	ExpiresAt   time.Time // expirationTime informado por el WSAA
	CreatedAt   time.Time // alta local del registro
}

// RemainingValidity devuelve cuánta vida útil le queda al token respecto de now.
func (t *AuthToken) RemainingValidity(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// NeedsRenewal indica si el token debe renovarse: vencido o dentro del margen
// de seguridad.
func (t *AuthToken) NeedsRenewal(now time.Time) bool {
	return t.RemainingValidity(now) < RenewalMargin
}
