package afip

import (
	"errors"
	"fmt"
	"strings"
)

// Taxonomía de errores de la integración AFIP. Los sentinels se matchean con
// errors.Is; el detalle concreto viaja envuelto con %w.
var (
	// ErrCertificate: certificado o llave privada inutilizables. Error de
	// configuración, fatal: no se reintenta automáticamente.
	ErrCertificate = errors.New("afip: certificado inválido")

	// ErrTransport: falla de red, timeout, HTTP no-2xx o respuesta no-XML.
	// Reintetable.
	ErrTransport = errors.New("afip: error de transporte")

	// ErrAuthService: el WSAA respondió algo malformado o inesperado.
	// Reintetable con backoff.
	ErrAuthService = errors.New("afip: respuesta WSAA inválida")

	// ErrInvoiceService: el WSFE respondió algo malformado o inesperado.
	ErrInvoiceService = errors.New("afip: respuesta WSFE inválida")
)

// Event es un error u observación informado por AFIP (código + mensaje).
type Event struct {
	Code    int
	Message string
}

func (e Event) String() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// RejectionError: AFIP rechazó el comprobante con errores de negocio. Terminal
// para el intento; requiere corregir el payload, no reintentar a ciegas.
type RejectionError struct {
	Errors       []Event
	Observations []Event
}

func (e *RejectionError) Error() string {
	var parts []string
	for _, ev := range e.Errors {
		parts = append(parts, ev.String())
	}
	for _, ev := range e.Observations {
		parts = append(parts, ev.String())
	}
	if len(parts) == 0 {
		return "afip: comprobante rechazado"
	}
	return "afip: comprobante rechazado: " + strings.Join(parts, "; ")
}
