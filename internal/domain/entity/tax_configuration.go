package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxConfiguration vincula una sucursal con su identidad fiscal ante AFIP:
// CUIT emisor y punto de venta habilitado. A lo sumo una configuración activa
// por punto de venta en todo el sistema (constraint único parcial en DB;
// duplicados son un error de configuración, nunca se fusionan en silencio).
type TaxConfiguration struct {
	ID          string
	BranchID    string
	TaxID       string          // CUIT del emisor (11 dígitos, sin guiones)
	PointOfSale int             // punto de venta asignado por AFIP
	TaxRate     decimal.Decimal // alícuota IVA en porcentaje (21.00 por defecto)
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
