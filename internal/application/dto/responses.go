// Package dto define los contratos JSON de la API.
package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse respuesta de error estándar de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InvoiceResponse representación pública del comprobante.
type InvoiceResponse struct {
	ID          string `json:"id"`
	SaleID      string `json:"sale_id"`
	BranchID    string `json:"branch_id"`
	VoucherType int    `json:"voucher_type"`
	Letter      string `json:"letter"` // "A" | "B" | "C"
	PointOfSale int    `json:"point_of_sale"`
	Number      int64  `json:"number"` // 0 hasta la aprobación de AFIP
	Date        string `json:"date"`   // YYYY-MM-DD

	GrossTotal decimal.Decimal `json:"gross_total"`
	NetTotal   decimal.Decimal `json:"net_total"`
	TaxTotal   decimal.Decimal `json:"tax_total"`

	BuyerDocType   int   `json:"buyer_doc_type"`
	BuyerDocNumber int64 `json:"buyer_doc_number"`

	CAE        string `json:"cae,omitempty"`
	CAEDueDate string `json:"cae_due_date,omitempty"` // YYYY-MM-DD

	Status      string `json:"status"`
	ErrorDetail string `json:"error_detail,omitempty"`
	QRData      string `json:"qr_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RetryAttemptResponse un reintento del historial de auditoría.
type RetryAttemptResponse struct {
	ID             string    `json:"id"`
	InvoiceID      string    `json:"invoice_id"`
	UserID         string    `json:"user_id"`
	PreviousStatus string    `json:"previous_status"`
	Result         string    `json:"result"`
	CAE            string    `json:"cae,omitempty"`
	ErrorDetail    string    `json:"error_detail,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// ContingencyResponse una contingencia pendiente de revisión.
type ContingencyResponse struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	SaleID    string    `json:"sale_id"`
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail,omitempty"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// LastNumberResponse respuesta de la consulta de numeración contra AFIP.
type LastNumberResponse struct {
	TaxID       string `json:"tax_id"`
	PointOfSale int    `json:"point_of_sale"`
	VoucherType int    `json:"voucher_type"`
	LastNumber  int64  `json:"last_number"`
}
