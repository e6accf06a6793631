package saga

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"time"

	"github.com/stretchr/testify/mock"
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

// MockCommitSink is a mock for ports.CommitSink
type MockCommitSink struct {
	mock.Mock
}

func (m *MockCommitSink) Apply(ctx context.Context, changes domain.ChangeSet) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

// MockNotifier is a mock for ports.OutcomeNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, outcome domain.SagaOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

// MockMetrics is a mock for ports.SagaMetrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) ObserveDelivery(eventType, agent string, err error) {
	m.Called(eventType, agent, err)
}

func (m *MockMetrics) ObserveOutcome(job string, status domain.SagaStatus, took time.Duration) {
	m.Called(job, status, took)
}

// stepAgent is a one-route agent used to shape pipelines in tests.
type stepAgent struct {
	name   string
	on     string
	emit   string // "" returns no follow-up
	err    error
	panics bool
	block  bool // waits for ctx to end
}

func (s *stepAgent) Name() string         { return s.name }
func (s *stepAgent) ListensFor() []string { return []string{s.on} }

func (s *stepAgent) Handle(ctx context.Context, ev domain.Event) (*domain.Event, error) {
	if s.panics {
		panic("step exploded")
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.emit == "" {
		return nil, nil
	}
	next := ev.FollowUp(s.emit)
	return &next, nil
}

// lateWriter waits out its deadline, then tries to add an ERP document
// and reports the result on wrote.
type lateWriter struct {
	name  string
	on    string
	uow   ports.UnitOfWork
	wrote chan error
}

func (l *lateWriter) Name() string         { return l.name }
func (l *lateWriter) ListensFor() []string { return []string{l.on} }

func (l *lateWriter) Handle(ctx context.Context, _ domain.Event) (*domain.Event, error) {
	<-ctx.Done()
	time.Sleep(5 * time.Millisecond) // Let the pipeline discard first
	l.wrote <- l.uow.AddERPDocument(ctx, &domain.ERPDocument{ID: "late-doc", InvoiceID: "1", CompanyID: "acme"})
	return nil, ctx.Err()
}

// financingSteps returns the three pipeline steps as stubs.
func financingSteps() (invoicing, limits, accounting *stepAgent) {
	invoicing = &stepAgent{name: "invoicing", on: domain.EventFinancingRequested, emit: domain.EventInvoiceValidated}
	limits = &stepAgent{name: "credit_limits", on: domain.EventInvoiceValidated, emit: domain.EventLimitsValidated}
	accounting = &stepAgent{name: "accounting", on: domain.EventLimitsValidated, emit: domain.EventERPDocumentCreated}
	return invoicing, limits, accounting
}
