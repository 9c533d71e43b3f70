// Package afip contiene catálogos y helpers alineados al webservice de
// Facturación Electrónica AFIP (Argentina) WSFEv1 y al WSAA.
package afip

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Tipos de comprobante (Cbte Tipo) — RG 4291 tabla comprobantes
// =============================================================================

const (
	VoucherFacturaA = 1  // Factura A: receptor identificado con CUIT
	VoucherFacturaB = 6  // Factura B: consumidor final
	VoucherFacturaC = 11 // Factura C: emisor monotributista
)

// VoucherTypeForBuyer decide el tipo de comprobante según el comprador:
// A si informa CUIT, B para consumidor final.
func VoucherTypeForBuyer(buyerTaxID string) int {
	if strings.TrimSpace(buyerTaxID) != "" {
		return VoucherFacturaA
	}
	return VoucherFacturaB
}

// VoucherTypeLetter devuelve la letra del comprobante ("A", "B", "C") para UI y logs.
func VoucherTypeLetter(voucherType int) string {
	switch voucherType {
	case VoucherFacturaA:
		return "A"
	case VoucherFacturaB:
		return "B"
	case VoucherFacturaC:
		return "C"
	default:
		return "?"
	}
}

// =============================================================================
// Tipos de documento del receptor (Doc Tipo)
// =============================================================================

const (
	DocTypeCUIT            = 80 // CUIT
	DocTypeDNI             = 96 // DNI
	DocTypeConsumidorFinal = 99 // Consumidor final (sin identificar)

	// DocNroConsumidorFinal valor centinela de número de documento para consumidor final.
	DocNroConsumidorFinal = int64(0)
)

// =============================================================================
// Concepto del comprobante
// =============================================================================

const (
	ConceptProducts         = 1 // Productos
	ConceptServices         = 2 // Servicios
	ConceptProductsServices = 3 // Productos y servicios
)

// =============================================================================
// Moneda
// =============================================================================

const (
	CurrencyPES  = "PES" // Pesos argentinos
	CurrencyRate = 1     // Cotización fija para moneda local
)

// =============================================================================
// Alícuotas de IVA (Id de AlicIva en FECAESolicitar)
// =============================================================================

const (
	IVARateID0    = 3 // 0%
	IVARateID10_5 = 4 // 10,5%
	IVARateID21   = 5 // 21%
	IVARateID27   = 6 // 27%
)

// IVARateIDFor devuelve el Id de alícuota AFIP para una tasa porcentual conocida.
// Tasas no catalogadas caen en 21% (la alícuota general).
func IVARateIDFor(ratePercent decimal.Decimal) int {
	switch {
	case ratePercent.IsZero():
		return IVARateID0
	case ratePercent.Equal(decimal.NewFromFloat(10.5)):
		return IVARateID10_5
	case ratePercent.Equal(decimal.NewFromInt(27)):
		return IVARateID27
	default:
		return IVARateID21
	}
}

// SplitGross separa un importe bruto en neto + IVA para una tasa porcentual dada
// (neto = bruto / (1 + tasa/100), redondeado a dos decimales; IVA = bruto - neto).
// El bruto se conserva exacto: neto + IVA == bruto siempre.
func SplitGross(gross, ratePercent decimal.Decimal) (net, tax decimal.Decimal) {
	divisor := decimal.NewFromInt(1).Add(ratePercent.Div(decimal.NewFromInt(100)))
	net = gross.Div(divisor).Round(2)
	tax = gross.Sub(net)
	return net, tax
}

// DateFormatAFIP es el layout de fechas del WSFE (CbteFch, CAEFchVto): YYYYMMDD.
const DateFormatAFIP = "20060102"
