// Package billing orquesta la emisión de comprobantes: gestión de tickets de
// acceso WSAA, autorización WSFE, idempotencia por venta, contingencias y
// reintentos manuales.
package billing

import (
	"context"

	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
)

// LoginTicketSigner firma el loginTicketRequest de un CUIT (CMS/PKCS#7).
type LoginTicketSigner interface {
	SignLoginTicket(req afip.TicketRequest) ([]byte, error)
}

// AuthService abstrae el WSAA: intercambia un CMS firmado por credenciales.
type AuthService interface {
	Login(ctx context.Context, signedTicket []byte) (*afip.LoginCredentials, error)
}

// InvoiceService abstrae el WSFE: consulta de numeración y autorización de
// comprobantes.
type InvoiceService interface {
	LastAuthorizedInvoiceNumber(ctx context.Context, auth afip.Credentials, pointOfSale, voucherType int) (int64, error)
	RequestAuthorization(ctx context.Context, auth afip.Credentials, payload *afip.InvoicePayload) (*afip.AuthorizationResult, error)
}
