package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tiendapos/facturacion-api/internal/domain"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
//
// La tabla lleva un índice único parcial sobre sale_id WHERE status <> 'ERROR':
// la DB garantiza a lo sumo una factura vigente por venta aun con emisiones
// concurrentes de la misma venta.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, sale_id, branch_id, voucher_type, point_of_sale, number, date,
	gross_total, net_total, tax_total, buyer_doc_type, buyer_doc_number,
	cae, cae_due_date, status, error_detail, protocol_log, qr_data, raw_response,
	created_at, updated_at`

// Create persiste la factura. Retorna domain.ErrDuplicate si ya existe una
// factura vigente (no ERROR) para la misma venta.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.SaleID, inv.BranchID, inv.VoucherType, inv.PointOfSale, inv.Number, inv.Date,
		inv.GrossTotal, inv.NetTotal, inv.TaxTotal, inv.BuyerDocType, inv.BuyerDocNumber,
		nullIfEmpty(inv.CAE), inv.CAEDueDate, inv.Status,
		nullIfEmpty(inv.ErrorDetail), nullIfEmpty(inv.ProtocolLog),
		nullIfEmpty(inv.QRData), nullIfEmpty(inv.RawResponse),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe una factura vigente para la venta %s", domain.ErrDuplicate, inv.SaleID)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update actualiza estado, número, CAE, logs y QR de la factura.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET number        = $2,
		    cae           = COALESCE($3, cae),
		    cae_due_date  = COALESCE($4, cae_due_date),
		    status        = $5,
		    error_detail  = $6,
		    protocol_log  = $7,
		    qr_data       = COALESCE($8, qr_data),
		    raw_response  = COALESCE($9, raw_response),
		    updated_at    = $10
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.Number,
		nullIfEmpty(inv.CAE), inv.CAEDueDate, inv.Status,
		nullIfEmpty(inv.ErrorDetail), nullIfEmpty(inv.ProtocolLog),
		nullIfEmpty(inv.QRData), nullIfEmpty(inv.RawResponse),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura completa por ID, o nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := r.scanOne(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// FindNonErrorBySale devuelve la factura vigente (no ERROR) de una venta, o nil.
func (r *InvoiceRepo) FindNonErrorBySale(ctx context.Context, saleID string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE sale_id = $1 AND status <> $2`
	inv, err := r.scanOne(r.q.QueryRow(ctx, query, saleID, entity.InvoiceStatusError))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find invoice by sale: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepo) scanOne(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var cae, errorDetail, protocolLog, qrData, rawResponse *string
	var caeDueDate *time.Time
	err := row.Scan(
		&inv.ID, &inv.SaleID, &inv.BranchID, &inv.VoucherType, &inv.PointOfSale, &inv.Number, &inv.Date,
		&inv.GrossTotal, &inv.NetTotal, &inv.TaxTotal, &inv.BuyerDocType, &inv.BuyerDocNumber,
		&cae, &caeDueDate, &inv.Status, &errorDetail, &protocolLog, &qrData, &rawResponse,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.CAE = derefStr(cae)
	inv.CAEDueDate = caeDueDate
	inv.ErrorDetail = derefStr(errorDetail)
	inv.ProtocolLog = derefStr(protocolLog)
	inv.QRData = derefStr(qrData)
	inv.RawResponse = derefStr(rawResponse)
	return &inv, nil
}
