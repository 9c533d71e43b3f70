package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tiendapos/facturacion-api/internal/domain"
	"github.com/tiendapos/facturacion-api/internal/domain/entity"
	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria para los puertos de persistencia y los clientes AFIP.
// ──────────────────────────────────────────────────────────────────────────────

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*entity.AuthToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*entity.AuthToken)}
}

func (r *fakeTokenRepo) FindByTaxID(_ context.Context, taxID string) (*entity.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[taxID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTokenRepo) CreateOrReplace(_ context.Context, token *entity.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.TaxID] = &cp
	return nil
}

type fakeSigner struct {
	err   error
	calls int
}

func (s *fakeSigner) SignLoginTicket(afip.TicketRequest) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("cms-firmado"), nil
}

type fakeWSAA struct {
	mu    sync.Mutex
	creds *afip.LoginCredentials
	err   error
	delay time.Duration
	calls int
}

func (c *fakeWSAA) Login(context.Context, []byte) (*afip.LoginCredentials, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	cp := *c.creds
	return &cp, nil
}

func (c *fakeWSAA) loginCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeWSFE struct {
	mu          sync.Mutex
	result      *afip.AuthorizationResult
	authErr     error
	lastNumber  int64
	lastErr     error
	gotPayloads []*afip.InvoicePayload
}

func (c *fakeWSFE) LastAuthorizedInvoiceNumber(context.Context, afip.Credentials, int, int) (int64, error) {
	if c.lastErr != nil {
		return 0, c.lastErr
	}
	return c.lastNumber, nil
}

func (c *fakeWSFE) RequestAuthorization(_ context.Context, _ afip.Credentials, p *afip.InvoicePayload) (*afip.AuthorizationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gotPayloads = append(c.gotPayloads, p)
	if c.authErr != nil {
		return nil, c.authErr
	}
	cp := *c.result
	return &cp, nil
}

func (c *fakeWSFE) authCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.gotPayloads)
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]*entity.Invoice)}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invoices {
		if existing.SaleID == inv.SaleID && existing.Status != entity.InvoiceStatusError {
			return fmt.Errorf("%w: venta %s", domain.ErrDuplicate, inv.SaleID)
		}
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) FindNonErrorBySale(_ context.Context, saleID string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.SaleID == saleID && inv.Status != entity.InvoiceStatusError {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeSaleRepo struct {
	mu    sync.Mutex
	sales map[string]*entity.Sale
}

func newFakeSaleRepo(sales ...*entity.Sale) *fakeSaleRepo {
	r := &fakeSaleRepo{sales: make(map[string]*entity.Sale)}
	for _, s := range sales {
		r.sales[s.ID] = s
	}
	return r
}

func (r *fakeSaleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSaleRepo) MarkInvoiced(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sales[id]; ok {
		s.Invoiced = true
	}
	return nil
}

type fakeConfigRepo struct {
	configs []*entity.TaxConfiguration
}

func (r *fakeConfigRepo) FindActiveByBranch(_ context.Context, branchID string) (*entity.TaxConfiguration, error) {
	for _, c := range r.configs {
		if c.BranchID == branchID && c.Active {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeConfigRepo) ListActive(context.Context) ([]*entity.TaxConfiguration, error) {
	var out []*entity.TaxConfiguration
	for _, c := range r.configs {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeContingencyRepo struct {
	mu      sync.Mutex
	created []*entity.Contingency
}

func (r *fakeContingencyRepo) Create(_ context.Context, c *entity.Contingency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	cp := *c
	r.created = append(r.created, &cp)
	return nil
}

func (r *fakeContingencyRepo) ListOpen(context.Context) ([]*entity.Contingency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Contingency
	for _, c := range r.created {
		if !c.Resolved {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*entity.RetryAttempt
}

func (r *fakeAttemptRepo) Append(_ context.Context, a *entity.RetryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	cp := *a
	r.attempts = append(r.attempts, &cp)
	return nil
}

func (r *fakeAttemptRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.RetryAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.RetryAttempt
	for _, a := range r.attempts {
		if a.InvoiceID == invoiceID {
			out = append(out, a)
		}
	}
	return out, nil
}
