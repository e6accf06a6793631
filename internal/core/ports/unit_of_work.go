package ports

import (
	"InvoiceFinancing/internal/core/domain"
	"context"
)

// UnitOfWork is a change-tracking boundary over domain state. Reads see the
// writes made through the same instance; nothing is externally visible
// until Commit.
type UnitOfWork interface {
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	AddInvoice(ctx context.Context, invoice *domain.Invoice) error
	UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error

	GetCompany(ctx context.Context, id string) (*domain.Company, error)
	AddCompany(ctx context.Context, company *domain.Company) error

	// GetCreditLimit finds the credit limit of a company.
	GetCreditLimit(ctx context.Context, companyID string) (*domain.CreditLimit, error)
	UpdateCreditLimit(ctx context.Context, limit *domain.CreditLimit) error

	AddERPDocument(ctx context.Context, doc *domain.ERPDocument) error

	// Commit externalizes the buffered change set. It either applies the
	// whole set to the store or returns an error and keeps the buffer.
	Commit(ctx context.Context) error
	// Discard drops all buffered changes.
	Discard()
}

// SnapshotLoader reads the state a unit of work starts from.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (domain.Snapshot, error)
}

// CommitSink receives change sets. The store sink is the commit point;
// other sinks only hear about change sets the store already applied.
type CommitSink interface {
	Apply(ctx context.Context, changes domain.ChangeSet) error
}
