package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrInvalidInput    = errors.New("entrada inválida")
	ErrDuplicate       = errors.New("recurso duplicado")
	ErrUnauthorized    = errors.New("no autorizado")
	ErrForbidden       = errors.New("acceso denegado")
	ErrConflict        = errors.New("conflicto con el estado actual")
	ErrNoTaxConfig     = errors.New("la sucursal no tiene configuración fiscal activa")
	ErrSaleNotBillable = errors.New("la venta no está en condiciones de facturarse")

	// ErrAlreadyIssued protege contra doble emisión: la factura ya tiene CAE.
	ErrAlreadyIssued = errors.New("la factura ya fue emitida y autorizada")
)
