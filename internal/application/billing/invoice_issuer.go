package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tiendapos/facturacion-api/internal/domain"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/domain/repository"
	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
	pkgafip "github.com/tiendapos/facturacion-api/pkg/afip"
)

// InvoiceIssuer emite el comprobante fiscal de una venta completada.
//
// Reglas centrales:
//   - idempotencia por venta: a lo sumo una factura fuera de ERROR; pedir la
//     emisión de una venta ya facturada devuelve la factura existente;
//   - la numeración la asigna AFIP: el request no lleva número y el asignado
//     vuelve en la respuesta aprobada;
//   - una falla nunca bloquea la venta: la factura queda en ERROR con su
//     contingencia registrada y el flujo comercial sigue.
type InvoiceIssuer struct {
	invoices      repository.InvoiceRepository
	sales         repository.SaleRepository
	configs       repository.TaxConfigurationRepository
	contingencies repository.ContingencyRepository
	tokens        *TokenManager
	wsfe          InvoiceService

	now func() time.Time
}

// NewInvoiceIssuer construye el emisor.
func NewInvoiceIssuer(
	invoices repository.InvoiceRepository,
	sales repository.SaleRepository,
	configs repository.TaxConfigurationRepository,
	contingencies repository.ContingencyRepository,
	tokens *TokenManager,
	wsfe InvoiceService,
) *InvoiceIssuer {
	return &InvoiceIssuer{
		invoices:      invoices,
		sales:         sales,
		configs:       configs,
		contingencies: contingencies,
		tokens:        tokens,
		wsfe:          wsfe,
		now:           time.Now,
	}
}

// IssueForSale emite (o retoma) la factura de la venta. El error devuelto
// describe la falla del intento; la factura devuelta refleja siempre el estado
// persistido (puede ser ERROR).
func (s *InvoiceIssuer) IssueForSale(ctx context.Context, saleID string) (*entity.Invoice, error) {
	existing, err := s.invoices.FindNonErrorBySale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == entity.InvoiceStatusCompleted {
			// Idempotencia: la venta ya tiene su comprobante autorizado.
			return existing, nil
		}
		// PENDIENTE o PROCESANDO: emisión interrumpida (caída a mitad de
		// envío); se retoma sobre el mismo registro.
		return s.Resubmit(ctx, existing)
	}

	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleID)
	}
	if sale.Invoiced {
		// Marcada como facturada pero sin factura vigente: inconsistencia que
		// requiere intervención, no se emite a ciegas.
		return nil, fmt.Errorf("%w: la venta figura facturada sin comprobante vigente", domain.ErrConflict)
	}

	cfg, err := s.configs.FindActiveByBranch(ctx, sale.BranchID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNoTaxConfig, sale.BranchID)
	}

	now := s.now()
	voucherType := pkgafip.VoucherTypeForBuyer(sale.BuyerTaxID)
	docType, docNumber, err := buyerDocument(sale.BuyerTaxID)
	if err != nil {
		return nil, err
	}
	net, tax := pkgafip.SplitGross(sale.Total, cfg.TaxRate)

	inv := &entity.Invoice{
		SaleID:         sale.ID,
		BranchID:       sale.BranchID,
		VoucherType:    voucherType,
		PointOfSale:    cfg.PointOfSale,
		Date:           now,
		GrossTotal:     sale.Total,
		NetTotal:       net,
		TaxTotal:       tax,
		BuyerDocType:   docType,
		BuyerDocNumber: docNumber,
		Status:         entity.InvoiceStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// Carrera: otro proceso creó la factura de esta venta primero.
			if winner, ferr := s.invoices.FindNonErrorBySale(ctx, saleID); ferr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}

	return s.submit(ctx, inv, sale, cfg)
}

// Resubmit reenvía una factura existente (emisión interrumpida o reintento
// manual) reutilizando el mismo registro. Nunca crea una factura nueva.
func (s *InvoiceIssuer) Resubmit(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error) {
	if inv.Status == entity.InvoiceStatusCompleted {
		return nil, domain.ErrAlreadyIssued
	}
	sale, err := s.sales.GetByID(ctx, inv.SaleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, inv.SaleID)
	}
	cfg, err := s.configs.FindActiveByBranch(ctx, inv.BranchID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNoTaxConfig, inv.BranchID)
	}
	return s.submit(ctx, inv, sale, cfg)
}

// submit ejecuta el intercambio con AFIP y persiste el desenlace: COMPLETADA
// con número/CAE/QR, o ERROR con su contingencia. Devuelve la factura en su
// estado final junto con el error del intento (nil si fue aprobada).
func (s *InvoiceIssuer) submit(ctx context.Context, inv *entity.Invoice, sale *entity.Sale, cfg *entity.TaxConfiguration) (*entity.Invoice, error) {
	var trace strings.Builder
	s.tracef(&trace, "inicio emisión venta=%s pto_vta=%d tipo=%s",
		sale.ID, inv.PointOfSale, pkgafip.VoucherTypeLetter(inv.VoucherType))

	inv.Status = entity.InvoiceStatusProcessing
	inv.UpdatedAt = s.now()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}

	creds, err := s.tokens.GetValidToken(ctx, cfg.TaxID)
	if err != nil {
		s.tracef(&trace, "falla al obtener credenciales: %v", err)
		return s.fail(ctx, inv, sale, err, &trace)
	}
	s.tracef(&trace, "credenciales vigentes CUIT %s", cfg.TaxID)

	payload := s.buildPayload(inv, sale, cfg)
	s.tracef(&trace, "FECAESolicitar total=%s neto=%s iva=%s",
		inv.GrossTotal.StringFixed(2), inv.NetTotal.StringFixed(2), inv.TaxTotal.StringFixed(2))

	result, err := s.wsfe.RequestAuthorization(ctx, creds, payload)
	if err != nil {
		s.tracef(&trace, "falla de comunicación con WSFE: %v", err)
		return s.fail(ctx, inv, sale, err, &trace)
	}
	inv.RawResponse = result.Raw

	if !result.Approved {
		rej := &afip.RejectionError{Errors: result.Errors, Observations: result.Observations}
		s.tracef(&trace, "comprobante rechazado: %v", rej)
		return s.fail(ctx, inv, sale, rej, &trace)
	}

	s.tracef(&trace, "aprobado nro=%d cae=%s vto=%s",
		result.InvoiceNumber, result.CAE, result.CAEDueDate.Format("2006-01-02"))

	qrURL, err := s.buildQR(inv, cfg, result)
	if err != nil {
		// El comprobante YA está autorizado: un QR fallido no lo degrada a
		// ERROR, solo queda asentado en la traza.
		s.tracef(&trace, "falla al generar QR: %v", err)
	}

	inv.Number = result.InvoiceNumber
	inv.CAE = result.CAE
	due := result.CAEDueDate
	inv.CAEDueDate = &due
	inv.QRData = qrURL
	inv.Status = entity.InvoiceStatusCompleted
	inv.ErrorDetail = ""
	inv.ProtocolLog = trace.String()
	inv.UpdatedAt = s.now()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.sales.MarkInvoiced(ctx, sale.ID); err != nil {
		return nil, err
	}

	log.Info().
		Str("sale_id", sale.ID).
		Str("invoice_id", inv.ID).
		Int64("number", inv.Number).
		Str("cae", inv.CAE).
		Msg("Comprobante autorizado")
	return inv, nil
}

// fail deja la factura en ERROR con su diagnóstico y registra la contingencia.
// La venta NO se marca facturada y el flujo comercial continúa.
func (s *InvoiceIssuer) fail(ctx context.Context, inv *entity.Invoice, sale *entity.Sale, cause error, trace *strings.Builder) (*entity.Invoice, error) {
	inv.Status = entity.InvoiceStatusError
	inv.ErrorDetail = cause.Error()
	inv.ProtocolLog = trace.String()
	inv.UpdatedAt = s.now()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}

	cont := &entity.Contingency{
		InvoiceID: inv.ID,
		SaleID:    sale.ID,
		Reason:    contingencyReason(cause),
		Detail:    cause.Error(),
		CreatedAt: s.now(),
	}
	if err := s.contingencies.Create(ctx, cont); err != nil {
		log.Error().Err(err).Str("invoice_id", inv.ID).Msg("No se pudo registrar la contingencia")
	}

	log.Warn().
		Err(cause).
		Str("sale_id", sale.ID).
		Str("invoice_id", inv.ID).
		Msg("Emisión fallida, factura en contingencia")
	return inv, cause
}

func (s *InvoiceIssuer) buildPayload(inv *entity.Invoice, sale *entity.Sale, cfg *entity.TaxConfiguration) *afip.InvoicePayload {
	p := &afip.InvoicePayload{
		PointOfSale:  inv.PointOfSale,
		VoucherType:  inv.VoucherType,
		Concept:      pkgafip.ConceptProducts,
		DocType:      inv.BuyerDocType,
		DocNumber:    inv.BuyerDocNumber,
		Date:         inv.Date,
		GrossTotal:   inv.GrossTotal,
		NetTotal:     inv.NetTotal,
		TaxTotal:     inv.TaxTotal,
		Currency:     pkgafip.CurrencyPES,
		CurrencyRate: decimal.NewFromInt(pkgafip.CurrencyRate),
		TaxEntries: []afip.TaxEntry{{
			RateID: pkgafip.IVARateIDFor(cfg.TaxRate),
			Base:   inv.NetTotal,
			Amount: inv.TaxTotal,
		}},
	}
	for _, it := range sale.Items {
		p.Items = append(p.Items, afip.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Bonus:       it.Bonus,
			Subtotal:    it.Subtotal,
		})
	}
	return p
}

func (s *InvoiceIssuer) buildQR(inv *entity.Invoice, cfg *entity.TaxConfiguration, result *afip.AuthorizationResult) (string, error) {
	cuit, err := strconv.ParseInt(cfg.TaxID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("CUIT emisor %q no numérico: %w", cfg.TaxID, err)
	}
	cae, err := strconv.ParseInt(result.CAE, 10, 64)
	if err != nil {
		return "", fmt.Errorf("CAE %q no numérico: %w", result.CAE, err)
	}
	return pkgafip.BuildQRURL(pkgafip.QRPayload{
		Ver:        1,
		Fecha:      inv.Date.Format("2006-01-02"),
		CUIT:       cuit,
		PtoVta:     inv.PointOfSale,
		TipoCmp:    inv.VoucherType,
		NroCmp:     result.InvoiceNumber,
		Importe:    inv.GrossTotal.InexactFloat64(),
		Moneda:     pkgafip.CurrencyPES,
		Ctz:        pkgafip.CurrencyRate,
		TipoDocRec: inv.BuyerDocType,
		NroDocRec:  inv.BuyerDocNumber,
		TipoCodAut: "E",
		CodAut:     cae,
	})
}

func (s *InvoiceIssuer) tracef(trace *strings.Builder, format string, args ...interface{}) {
	fmt.Fprintf(trace, "%s %s\n", s.now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

// buyerDocument traduce el CUIT del comprador (o su ausencia) al par tipo y
// número de documento del receptor.
func buyerDocument(buyerTaxID string) (int, int64, error) {
	trimmed := strings.TrimSpace(buyerTaxID)
	if trimmed == "" {
		return pkgafip.DocTypeConsumidorFinal, pkgafip.DocNroConsumidorFinal, nil
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: CUIT del comprador %q no numérico", domain.ErrInvalidInput, buyerTaxID)
	}
	return pkgafip.DocTypeCUIT, n, nil
}

// contingencyReason clasifica la causa para el listado de contingencias.
func contingencyReason(err error) string {
	var rej *afip.RejectionError
	switch {
	case errors.As(err, &rej):
		return "rechazo AFIP"
	case errors.Is(err, afip.ErrCertificate):
		return "certificado inválido"
	case errors.Is(err, afip.ErrTransport):
		return "falla de transporte"
	case errors.Is(err, afip.ErrAuthService):
		return "falla WSAA"
	case errors.Is(err, afip.ErrInvoiceService):
		return "falla WSFE"
	default:
		return "error de emisión"
	}
}
