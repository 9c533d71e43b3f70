package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiendapos/facturacion-api/internal/domain"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
	pkgafip "github.com/tiendapos/facturacion-api/pkg/afip"
)

// ──────────────────────────────────────────────────────────────────────────────
// Armado del escenario: sucursal con CUIT 20123456789, punto de venta 3,
// IVA 21%, venta de $1000 a consumidor final.
// ──────────────────────────────────────────────────────────────────────────────

type issuerFixture struct {
	issuer        *InvoiceIssuer
	invoices      *fakeInvoiceRepo
	sales         *fakeSaleRepo
	contingencies *fakeContingencyRepo
	wsfe          *fakeWSFE
	wsaa          *fakeWSAA
	now           time.Time
}

func newIssuerFixture(t *testing.T, sale *entity.Sale, wsfe *fakeWSFE) *issuerFixture {
	t.Helper()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	configs := &fakeConfigRepo{configs: []*entity.TaxConfiguration{{
		ID:          "cfg-1",
		BranchID:    "branch-1",
		TaxID:       testCUIT,
		PointOfSale: 3,
		TaxRate:     decimal.NewFromInt(21),
		Active:      true,
	}}}

	tokenRepo := newFakeTokenRepo()
	tokenRepo.tokens[testCUIT] = storedToken(now, 8*time.Hour)
	wsaa := &fakeWSAA{creds: freshCredentials(now)}
	tokens := newTestTokenManager(tokenRepo, wsaa, &fakeSigner{}, now)

	invoices := newFakeInvoiceRepo()
	sales := newFakeSaleRepo(sale)
	contingencies := &fakeContingencyRepo{}

	issuer := NewInvoiceIssuer(invoices, sales, configs, contingencies, tokens, wsfe)
	issuer.now = func() time.Time { return now }

	return &issuerFixture{
		issuer:        issuer,
		invoices:      invoices,
		sales:         sales,
		contingencies: contingencies,
		wsfe:          wsfe,
		wsaa:          wsaa,
		now:           now,
	}
}

func consumidorFinalSale() *entity.Sale {
	return &entity.Sale{
		ID:         "sale-1",
		BranchID:   "branch-1",
		BuyerTaxID: "",
		Total:      decimal.NewFromInt(1000),
		Date:       time.Date(2025, 3, 14, 11, 30, 0, 0, time.UTC),
		Items: []entity.SaleItem{{
			Description: "Yerba mate 1kg",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromFloat(413.22),
			Bonus:       decimal.Zero,
			Subtotal:    decimal.NewFromFloat(826.45),
		}},
	}
}

func approvedResult() *afip.AuthorizationResult {
	return &afip.AuthorizationResult{
		Approved:      true,
		InvoiceNumber: 1043,
		CAE:           "75123456789012",
		CAEDueDate:    time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC),
		Raw:           "<FECAESolicitarResponse/>",
	}
}

func rejectedResult() *afip.AuthorizationResult {
	return &afip.AuthorizationResult{
		Approved: false,
		Observations: []afip.Event{
			{Code: 10016, Message: "Campo CbteFch no puede ser anterior a la fecha actual"},
		},
		Raw: "<FECAESolicitarResponse/>",
	}
}

// ──────────────────────────────────────────────────────────────────────────────

func TestIssueForSaleApproved(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: approvedResult()})

	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, entity.InvoiceStatusCompleted, inv.Status)
	assert.Equal(t, int64(1043), inv.Number, "el número viene de AFIP, nunca se asigna localmente")
	assert.Equal(t, "75123456789012", inv.CAE)
	require.NotNil(t, inv.CAEDueDate)
	assert.Equal(t, time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC), *inv.CAEDueDate)

	// Desglose al 21%: 1000 = 826.45 + 173.55.
	assert.True(t, inv.NetTotal.Equal(decimal.NewFromFloat(826.45)), "neto: %s", inv.NetTotal)
	assert.True(t, inv.TaxTotal.Equal(decimal.NewFromFloat(173.55)), "iva: %s", inv.TaxTotal)

	// Consumidor final → Factura B, DocTipo 99, DocNro 0.
	assert.Equal(t, pkgafip.VoucherFacturaB, inv.VoucherType)
	assert.Equal(t, pkgafip.DocTypeConsumidorFinal, inv.BuyerDocType)
	assert.Zero(t, inv.BuyerDocNumber)

	// El QR decodifica con los datos del comprobante autorizado.
	qr, err := pkgafip.DecodeQRURL(inv.QRData)
	require.NoError(t, err)
	assert.Equal(t, int64(20123456789), qr.CUIT)
	assert.Equal(t, 3, qr.PtoVta)
	assert.Equal(t, int64(1043), qr.NroCmp)
	assert.Equal(t, int64(75123456789012), qr.CodAut)
	assert.Equal(t, float64(1000), qr.Importe)
	assert.Equal(t, "E", qr.TipoCodAut)

	// La venta quedó marcada y la traza persistida.
	sale, _ := fx.sales.GetByID(context.Background(), "sale-1")
	assert.True(t, sale.Invoiced)
	assert.NotEmpty(t, inv.ProtocolLog)
	assert.NotEmpty(t, inv.RawResponse)
	assert.Empty(t, fx.contingencies.created)

	// El payload enviado no lleva número y sí lleva los renglones.
	require.Equal(t, 1, fx.wsfe.authCalls())
	payload := fx.wsfe.gotPayloads[0]
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "Yerba mate 1kg", payload.Items[0].Description)
	require.Len(t, payload.TaxEntries, 1)
	assert.Equal(t, pkgafip.IVARateID21, payload.TaxEntries[0].RateID)
}

func TestIssueForSaleBuyerWithCUIT(t *testing.T) {
	sale := consumidorFinalSale()
	sale.BuyerTaxID = "27333444555"
	fx := newIssuerFixture(t, sale, &fakeWSFE{result: approvedResult()})

	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, pkgafip.VoucherFacturaA, inv.VoucherType, "comprador con CUIT recibe Factura A")
	assert.Equal(t, pkgafip.DocTypeCUIT, inv.BuyerDocType)
	assert.Equal(t, int64(27333444555), inv.BuyerDocNumber)
}

func TestIssueForSaleIdempotent(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: approvedResult()})

	first, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.NoError(t, err)

	second, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "la segunda emisión devuelve el mismo comprobante")
	assert.Equal(t, 1, fx.wsfe.authCalls(), "no se vuelve a pedir CAE")
}

func TestIssueForSaleRejected(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: rejectedResult()})

	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.Error(t, err)

	var rej *afip.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 10016, rej.Observations[0].Code)

	require.NotNil(t, inv)
	assert.Equal(t, entity.InvoiceStatusError, inv.Status)
	assert.Zero(t, inv.Number)
	assert.Empty(t, inv.CAE)
	assert.Contains(t, inv.ErrorDetail, "10016")

	// Contingencia registrada; la venta NO queda facturada.
	require.Len(t, fx.contingencies.created, 1)
	assert.Equal(t, "rechazo AFIP", fx.contingencies.created[0].Reason)
	assert.Equal(t, inv.ID, fx.contingencies.created[0].InvoiceID)
	sale, _ := fx.sales.GetByID(context.Background(), "sale-1")
	assert.False(t, sale.Invoiced)
}

func TestIssueForSaleTransportFailure(t *testing.T) {
	failure := afip.ErrTransport
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{authErr: failure})

	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, afip.ErrTransport)

	require.NotNil(t, inv)
	assert.Equal(t, entity.InvoiceStatusError, inv.Status)
	require.Len(t, fx.contingencies.created, 1)
	assert.Equal(t, "falla de transporte", fx.contingencies.created[0].Reason)
}

func TestIssueForSaleRetriesInterruptedInvoice(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: approvedResult()})

	// Emisión interrumpida: quedó PROCESANDO de una corrida anterior.
	stuck := &entity.Invoice{
		SaleID:         "sale-1",
		BranchID:       "branch-1",
		VoucherType:    pkgafip.VoucherFacturaB,
		PointOfSale:    3,
		Date:           fx.now,
		GrossTotal:     decimal.NewFromInt(1000),
		NetTotal:       decimal.NewFromFloat(826.45),
		TaxTotal:       decimal.NewFromFloat(173.55),
		BuyerDocType:   pkgafip.DocTypeConsumidorFinal,
		Status:         entity.InvoiceStatusProcessing,
		CreatedAt:      fx.now,
		UpdatedAt:      fx.now,
	}
	require.NoError(t, fx.invoices.Create(context.Background(), stuck))

	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.NoError(t, err)

	assert.Equal(t, stuck.ID, inv.ID, "se retoma el registro existente, no se crea otro")
	assert.Equal(t, entity.InvoiceStatusCompleted, inv.Status)
	assert.Equal(t, int64(1043), inv.Number)
}

func TestIssueForSaleNotFound(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: approvedResult()})

	_, err := fx.issuer.IssueForSale(context.Background(), "sale-inexistente")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, fx.wsfe.authCalls())
}

func TestIssueForSaleWithoutTaxConfig(t *testing.T) {
	sale := consumidorFinalSale()
	sale.BranchID = "branch-sin-config"
	fx := newIssuerFixture(t, sale, &fakeWSFE{result: approvedResult()})

	_, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	assert.ErrorIs(t, err, domain.ErrNoTaxConfig)
	assert.Zero(t, fx.wsfe.authCalls())
	assert.Empty(t, fx.invoices.invoices, "sin configuración no se crea ninguna factura")
}

func TestIssueForSaleInvalidBuyerCUIT(t *testing.T) {
	sale := consumidorFinalSale()
	sale.BuyerTaxID = "no-es-un-cuit"
	fx := newIssuerFixture(t, sale, &fakeWSFE{result: approvedResult()})

	_, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIssueForSaleAuthFailure(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: approvedResult()})
	// El WSAA deja de responder y el token guardado ya venció.
	fx.wsaa.err = errors.New("wsaa caído")
	fx.wsaa.creds = nil
	tokenRepo := newFakeTokenRepo() // sin token
	fx.issuer.tokens = NewTokenManager(tokenRepo, fx.wsaa, fx.issuer.tokens.signers, "wsfe")

	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.Error(t, err)

	require.NotNil(t, inv)
	assert.Equal(t, entity.InvoiceStatusError, inv.Status)
	assert.Zero(t, fx.wsfe.authCalls(), "sin credenciales no se llega al WSFE")
	require.Len(t, fx.contingencies.created, 1)
}
