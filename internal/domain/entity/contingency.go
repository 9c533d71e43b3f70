package entity

import "time"

// Contingency marca una situación que requiere revisión humana: típicamente una
// factura rechazada o inalcanzable. Es el camino de degradación diseñado, no un
// caso excepcional: la venta nunca se bloquea por una factura fallida.
type Contingency struct {
	ID        string
	InvoiceID string
	SaleID    string
	Reason    string // resumen corto (rechazo AFIP, timeout, certificado, etc.)
	Detail    string // diagnóstico completo para el operador
	Resolved  bool
	CreatedAt time.Time
}
