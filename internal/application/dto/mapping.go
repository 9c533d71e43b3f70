package dto

import (
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	pkgafip "github.com/tiendapos/facturacion-api/pkg/afip"
)

// FromInvoice mapea la entidad al contrato público. El protocol log y la
// respuesta cruda no se exponen por API: son material de auditoría interna.
func FromInvoice(inv *entity.Invoice) InvoiceResponse {
	out := InvoiceResponse{
		ID:             inv.ID,
		SaleID:         inv.SaleID,
		BranchID:       inv.BranchID,
		VoucherType:    inv.VoucherType,
		Letter:         pkgafip.VoucherTypeLetter(inv.VoucherType),
		PointOfSale:    inv.PointOfSale,
		Number:         inv.Number,
		Date:           inv.Date.Format("2006-01-02"),
		GrossTotal:     inv.GrossTotal,
		NetTotal:       inv.NetTotal,
		TaxTotal:       inv.TaxTotal,
		BuyerDocType:   inv.BuyerDocType,
		BuyerDocNumber: inv.BuyerDocNumber,
		CAE:            inv.CAE,
		Status:         inv.Status,
		ErrorDetail:    inv.ErrorDetail,
		QRData:         inv.QRData,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	if inv.CAEDueDate != nil {
		out.CAEDueDate = inv.CAEDueDate.Format("2006-01-02")
	}
	return out
}

// FromRetryAttempt mapea un reintento del historial.
func FromRetryAttempt(a *entity.RetryAttempt) RetryAttemptResponse {
	return RetryAttemptResponse{
		ID:             a.ID,
		InvoiceID:      a.InvoiceID,
		UserID:         a.UserID,
		PreviousStatus: a.PreviousStatus,
		Result:         a.Result,
		CAE:            a.CAE,
		ErrorDetail:    a.ErrorDetail,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
	}
}

// FromContingency mapea una contingencia.
func FromContingency(c *entity.Contingency) ContingencyResponse {
	return ContingencyResponse{
		ID:        c.ID,
		InvoiceID: c.InvoiceID,
		SaleID:    c.SaleID,
		Reason:    c.Reason,
		Detail:    c.Detail,
		Resolved:  c.Resolved,
		CreatedAt: c.CreatedAt,
	}
}
