package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiendapos/facturacion-api/internal/domain"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
)

const testOperator = "user-supervisor-1"

// failedInvoiceFixture deja una factura en ERROR (rechazo previo) lista para reintentar.
func failedInvoiceFixture(t *testing.T, wsfe *fakeWSFE) (*issuerFixture, *RetryCoordinator, *fakeAttemptRepo, string) {
	t.Helper()

	rejectingWSFE := &fakeWSFE{result: rejectedResult()}
	fx := newIssuerFixture(t, consumidorFinalSale(), rejectingWSFE)
	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.Error(t, err)
	require.Equal(t, entity.InvoiceStatusError, inv.Status)

	// A partir de acá, el WSFE se comporta como indique el test.
	fx.issuer.wsfe = wsfe
	fx.wsfe = wsfe

	attempts := &fakeAttemptRepo{}
	coordinator := NewRetryCoordinator(fx.invoices, attempts, fx.issuer)
	return fx, coordinator, attempts, inv.ID
}

func TestRetrySuccess(t *testing.T) {
	fx, coordinator, attempts, invoiceID := failedInvoiceFixture(t, &fakeWSFE{result: approvedResult()})

	inv, err := coordinator.Retry(context.Background(), invoiceID, testOperator)
	require.NoError(t, err)

	assert.Equal(t, entity.InvoiceStatusCompleted, inv.Status)
	assert.Equal(t, int64(1043), inv.Number)
	assert.Equal(t, invoiceID, inv.ID, "el reintento reutiliza el registro, nunca crea otro")

	// El intento quedó auditado.
	require.Len(t, attempts.attempts, 1)
	a := attempts.attempts[0]
	assert.Equal(t, testOperator, a.UserID)
	assert.Equal(t, entity.InvoiceStatusError, a.PreviousStatus)
	assert.Equal(t, entity.RetryResultCompleted, a.Result)
	assert.Equal(t, "75123456789012", a.CAE)

	sale, _ := fx.sales.GetByID(context.Background(), "sale-1")
	assert.True(t, sale.Invoiced, "con el reintento exitoso la venta queda facturada")
}

func TestRetryFailsAgain(t *testing.T) {
	_, coordinator, attempts, invoiceID := failedInvoiceFixture(t, &fakeWSFE{result: rejectedResult()})

	inv, err := coordinator.Retry(context.Background(), invoiceID, testOperator)
	require.Error(t, err)

	var rej *afip.RejectionError
	assert.ErrorAs(t, err, &rej)
	assert.Equal(t, entity.InvoiceStatusError, inv.Status)

	require.Len(t, attempts.attempts, 1)
	a := attempts.attempts[0]
	assert.Equal(t, entity.RetryResultError, a.Result)
	assert.NotEmpty(t, a.ErrorDetail)
	assert.NotEmpty(t, a.ProtocolLog)
}

func TestRetryAlreadyIssued(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: approvedResult()})
	inv, err := fx.issuer.IssueForSale(context.Background(), "sale-1")
	require.NoError(t, err)

	attempts := &fakeAttemptRepo{}
	coordinator := NewRetryCoordinator(fx.invoices, attempts, fx.issuer)

	_, err = coordinator.Retry(context.Background(), inv.ID, testOperator)
	assert.ErrorIs(t, err, domain.ErrAlreadyIssued, "una factura con CAE jamás se reemite")
	assert.Empty(t, attempts.attempts, "el rechazo del reintento no genera intento auditado")
	assert.Equal(t, 1, fx.wsfe.authCalls(), "solo la emisión original llegó a AFIP")
}

func TestRetryInvoiceNotFound(t *testing.T) {
	fx := newIssuerFixture(t, consumidorFinalSale(), &fakeWSFE{result: approvedResult()})
	coordinator := NewRetryCoordinator(fx.invoices, &fakeAttemptRepo{}, fx.issuer)

	_, err := coordinator.Retry(context.Background(), "no-existe", testOperator)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRetryHistoryAccumulates(t *testing.T) {
	_, coordinator, attempts, invoiceID := failedInvoiceFixture(t, &fakeWSFE{result: rejectedResult()})

	_, _ = coordinator.Retry(context.Background(), invoiceID, "user-1")
	_, _ = coordinator.Retry(context.Background(), invoiceID, "user-2")

	require.Len(t, attempts.attempts, 2, "cada reintento agrega un registro, nunca se pisan")
	assert.Equal(t, "user-1", attempts.attempts[0].UserID)
	assert.Equal(t, "user-2", attempts.attempts[1].UserID)

	history, err := coordinator.History(context.Background(), invoiceID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
