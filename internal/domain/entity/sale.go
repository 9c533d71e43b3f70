package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale es la vista de solo lectura de una venta completada (el flujo de captura
// de ventas es un colaborador externo; este core solo la lee y marca Invoiced).
type Sale struct {
	ID         string
	BranchID   string
	BuyerTaxID string // CUIT del comprador; vacío = consumidor final
	Total      decimal.Decimal
	Items      []SaleItem
	Invoiced   bool
	Date       time.Time
}

// SaleItem línea de la venta tal como se informa a AFIP.
type SaleItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal // precio unitario neto de IVA
	Bonus       decimal.Decimal // bonificación
	Subtotal    decimal.Decimal
}
