package agents

import (
	"InvoiceFinancing/internal/adapters/memory"
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockUnitOfWork is a mock for ports.UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

var _ ports.UnitOfWork = (*MockUnitOfWork)(nil)

func (m *MockUnitOfWork) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockUnitOfWork) AddInvoice(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockUnitOfWork) UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockUnitOfWork) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

func (m *MockUnitOfWork) AddCompany(ctx context.Context, company *domain.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockUnitOfWork) GetCreditLimit(ctx context.Context, companyID string) (*domain.CreditLimit, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditLimit), args.Error(1)
}

func (m *MockUnitOfWork) UpdateCreditLimit(ctx context.Context, limit *domain.CreditLimit) error {
	args := m.Called(ctx, limit)
	return args.Error(0)
}

func (m *MockUnitOfWork) AddERPDocument(ctx context.Context, doc *domain.ERPDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Discard() {
	m.Called()
}

// --- Helpers ---

const payload = `{ "invoiceId": 1 }`

func seededUoW(t *testing.T) ports.UnitOfWork {
	t.Helper()
	nopLogger := zerolog.Nop()
	return memory.NewUnitOfWork("test-saga", memory.SeedSnapshot(), nil, &nopLogger)
}

// --- Tests ---

func TestInvoicingAgent_Routes(t *testing.T) {
	nopLogger := zerolog.Nop()
	uow := seededUoW(t)
	agent := NewInvoicingAgent(uow, &nopLogger)
	ctx := context.Background()

	assert.Equal(t, []string{domain.EventFinancingRequested, domain.EventERPDocumentCreated}, agent.ListensFor())

	next, err := agent.Handle(ctx, domain.NewEvent(domain.EventFinancingRequested, payload))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, domain.EventInvoiceValidated, next.Type)
	assert.Equal(t, payload, next.Payload)

	next, err = agent.Handle(ctx, domain.NewEvent(domain.EventERPDocumentCreated, payload))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, domain.EventInvoiceUpdated, next.Type)

	inv, err := uow.GetInvoice(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceFinanced, inv.Status)
}

func TestInvoicingAgent_IgnoresUnknownEvents(t *testing.T) {
	nopLogger := zerolog.Nop()
	uow := new(MockUnitOfWork)
	agent := NewInvoicingAgent(uow, &nopLogger)

	next, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventLimitsValidated, payload))

	require.NoError(t, err)
	assert.Nil(t, next)
	uow.AssertExpectations(t)
}

func TestInvoicingAgent_RejectsFinancedInvoice(t *testing.T) {
	nopLogger := zerolog.Nop()
	uow := new(MockUnitOfWork)
	uow.On("GetInvoice", mock.Anything, "1").
		Return(&domain.Invoice{ID: "1", CompanyID: "acme", Status: domain.InvoiceFinanced}, nil).Once()
	agent := NewInvoicingAgent(uow, &nopLogger)

	next, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventFinancingRequested, payload))

	require.ErrorIs(t, err, domain.ErrInvoiceNotAvailable)
	assert.Nil(t, next)
	uow.AssertExpectations(t)
}

func TestInvoicingAgent_MissingInvoice(t *testing.T) {
	nopLogger := zerolog.Nop()
	agent := NewInvoicingAgent(seededUoW(t), &nopLogger)

	_, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventFinancingRequested, `{"invoiceId":"404"}`))

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvoicingAgent_InvalidPayload(t *testing.T) {
	nopLogger := zerolog.Nop()
	agent := NewInvoicingAgent(new(MockUnitOfWork), &nopLogger)

	testCases := []struct {
		name    string
		payload string
	}{
		{"not json", "invoice one"},
		{"missing id", `{}`},
		{"boolean id", `{"invoiceId": true}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventFinancingRequested, tc.payload))
			require.ErrorIs(t, err, domain.ErrInvalidPayload)
		})
	}
}

func TestCreditLimitsAgent_VerifyAndConsume(t *testing.T) {
	nopLogger := zerolog.Nop()
	uow := seededUoW(t)
	agent := NewCreditLimitsAgent(uow, &nopLogger)
	ctx := context.Background()

	next, err := agent.Handle(ctx, domain.NewEvent(domain.EventInvoiceValidated, payload))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, domain.EventLimitsValidated, next.Type)

	next, err = agent.Handle(ctx, domain.NewEvent(domain.EventInvoiceUpdated, payload))
	require.NoError(t, err)
	assert.Nil(t, next, "consuming the limit ends the chain")

	limit, err := uow.GetCreditLimit(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(350_000), limit.Used)
}

func TestCreditLimitsAgent_LimitExceeded(t *testing.T) {
	nopLogger := zerolog.Nop()
	agent := NewCreditLimitsAgent(seededUoW(t), &nopLogger)

	// Invoice 2 needs 900k, only 800k is left.
	_, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventInvoiceValidated, `{"invoiceId": 2}`))

	require.ErrorIs(t, err, domain.ErrCreditLimitExceeded)
}

func TestCreditLimitsAgent_UpdateFailure(t *testing.T) {
	nopLogger := zerolog.Nop()
	uow := new(MockUnitOfWork)
	uow.On("GetInvoice", mock.Anything, "1").Return(&domain.Invoice{ID: "1", CompanyID: "acme", Amount: 10}, nil)
	uow.On("GetCreditLimit", mock.Anything, "acme").Return(&domain.CreditLimit{CompanyID: "acme", Limit: 100}, nil)
	uow.On("UpdateCreditLimit", mock.Anything, mock.AnythingOfType("*domain.CreditLimit")).
		Return(domain.NewNotFound("credit limit", "acme")).Once()
	agent := NewCreditLimitsAgent(uow, &nopLogger)

	_, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventInvoiceUpdated, payload))

	require.ErrorIs(t, err, domain.ErrNotFound)
	uow.AssertExpectations(t)
}

func TestAccountingAgent_CreatesERPDocument(t *testing.T) {
	nopLogger := zerolog.Nop()
	uow := new(MockUnitOfWork)
	uow.On("GetInvoice", mock.Anything, "1").Return(&domain.Invoice{ID: "1", CompanyID: "acme", Amount: 150_000}, nil).Once()
	uow.On("AddERPDocument", mock.Anything, mock.MatchedBy(func(doc *domain.ERPDocument) bool {
		return doc.ID != "" && doc.InvoiceID == "1" && doc.CompanyID == "acme" && doc.Amount == 150_000
	})).Return(nil).Once()
	agent := NewAccountingAgent(uow, &nopLogger)

	next, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventLimitsValidated, payload))

	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, domain.EventERPDocumentCreated, next.Type)
	assert.Equal(t, payload, next.Payload)
	uow.AssertExpectations(t)
}

func TestAccountingAgent_PropagatesFailure(t *testing.T) {
	nopLogger := zerolog.Nop()
	uow := new(MockUnitOfWork)
	uow.On("GetInvoice", mock.Anything, "1").Return(&domain.Invoice{ID: "1"}, nil).Once()
	uow.On("AddERPDocument", mock.Anything, mock.Anything).Return(errors.New("erp unavailable")).Once()
	agent := NewAccountingAgent(uow, &nopLogger)

	next, err := agent.Handle(context.Background(), domain.NewEvent(domain.EventLimitsValidated, payload))

	require.Error(t, err)
	assert.Nil(t, next)
	assert.Contains(t, err.Error(), "accounting")
}
