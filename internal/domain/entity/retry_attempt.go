package entity

import "time"

// Resultados posibles de un reintento.
const (
	RetryResultCompleted = "COMPLETADA"
	RetryResultError     = "ERROR"
)

// RetryAttempt es el registro de auditoría de un reintento manual sobre una
// factura fallida. Inmutable una vez completado; historial append-only por factura.
type RetryAttempt struct {
	ID             string
	InvoiceID      string
	UserID         string // operador que pidió el reintento
	PreviousStatus string // estado de la factura antes del reintento
	Result         string // COMPLETADA | ERROR
	CAE            string // CAE obtenido si el reintento prosperó
	ErrorDetail    string
	ProtocolLog    string
	StartedAt      time.Time
	CompletedAt    time.Time
}
