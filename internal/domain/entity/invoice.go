package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del comprobante frente a AFIP.
const (
	InvoiceStatusPending    = "PENDIENTE"  // registro creado, aún sin enviar
	InvoiceStatusProcessing = "PROCESANDO" // enviando al WSFE (o envío interrumpido)
	InvoiceStatusCompleted  = "COMPLETADA" // AFIP aprobó: número + CAE asignados
	InvoiceStatusError      = "ERROR"      // rechazo o falla; queda para reintento manual
)

// Invoice representa el comprobante fiscal de una venta.
//
// Invariantes:
//   - por venta hay a lo sumo una Invoice fuera de estado ERROR (los reintentos
//     reutilizan el registro existente, nunca crean uno nuevo);
//   - Number nunca se incrementa localmente: queda en 0 hasta que AFIP confirma
//     y devuelve el número asignado (evita desfasajes con la numeración del fisco).
type Invoice struct {
	ID          string
	SaleID      string
	BranchID    string
	VoucherType int   // tipo de comprobante AFIP (1 = A, 6 = B)
	PointOfSale int   // punto de venta del emisor
	Number      int64 // número asignado por AFIP; 0 hasta la aprobación
	Date        time.Time

	GrossTotal decimal.Decimal // importe total de la venta
	NetTotal   decimal.Decimal // neto gravado
	TaxTotal   decimal.Decimal // IVA

	BuyerDocType   int   // 80 = CUIT, 99 = consumidor final
	BuyerDocNumber int64 // 0 para consumidor final

	CAE        string     // código de autorización electrónico
	CAEDueDate *time.Time // vencimiento del CAE

	Status      string
	ErrorDetail string // texto libre del último error
	ProtocolLog string // traza completa del intercambio con AFIP (auditoría)
	QRData      string // URL de verificación con payload base64
	RawResponse string // respuesta cruda del WS (opaca, solo auditoría)

	CreatedAt time.Time
	UpdatedAt time.Time
}
