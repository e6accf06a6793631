package memory

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// unitOfWork buffers writes against a read snapshot. Reads see the buffer
// first; nothing leaves the buffer until Commit. Calls made under a finished
// context are refused, so a step abandoned by its saga cannot write into the
// next run's buffer.
type unitOfWork struct {
	sagaID     string
	base       domain.Snapshot
	store      ports.CommitSink
	publishers []ports.CommitSink
	log        zerolog.Logger
	now        func() time.Time

	mu           sync.Mutex
	companies    map[string]domain.Company
	invoices     map[string]domain.Invoice
	creditLimits map[string]domain.CreditLimit
	erpDocuments []domain.ERPDocument
}

var _ ports.UnitOfWork = (*unitOfWork)(nil) // Ensure compliance

// NewUnitOfWork creates a unit of work over snapshot. The snapshot is owned
// by the unit of work from here on.
//
// Commit applies the change set to store and succeeds iff the store does.
// Publishers are told about applied change sets afterwards; their failures
// are logged and do not undo the commit. A nil store commits in memory only.
func NewUnitOfWork(sagaID string, snapshot domain.Snapshot, store ports.CommitSink, baseLogger *zerolog.Logger, publishers ...ports.CommitSink) ports.UnitOfWork {
	empty := domain.NewSnapshot()
	if snapshot.Invoices == nil {
		snapshot.Invoices = empty.Invoices
	}
	if snapshot.Companies == nil {
		snapshot.Companies = empty.Companies
	}
	if snapshot.CreditLimits == nil {
		snapshot.CreditLimits = empty.CreditLimits
	}
	if snapshot.ERPDocuments == nil {
		snapshot.ERPDocuments = empty.ERPDocuments
	}

	u := &unitOfWork{
		sagaID:     sagaID,
		base:       snapshot,
		store:      store,
		publishers: publishers,
		log:        baseLogger.With().Str("component", "unit_of_work").Str("saga_id", sagaID).Logger(),
		now:        time.Now,
	}
	u.reset()
	return u
}

// live refuses calls made under a finished context.
func live(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("unit of work: %w", err)
	}
	return nil
}

func (u *unitOfWork) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return nil, err
	}
	if inv, ok := u.invoices[id]; ok {
		return &inv, nil
	}
	if inv, ok := u.base.Invoices[id]; ok {
		return &inv, nil
	}
	return nil, domain.NewNotFound("invoice", id)
}

func (u *unitOfWork) AddInvoice(ctx context.Context, invoice *domain.Invoice) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return err
	}
	_, buffered := u.invoices[invoice.ID]
	if _, ok := u.base.Invoices[invoice.ID]; ok || buffered {
		return fmt.Errorf("invoice %q already exists", invoice.ID)
	}
	u.invoices[invoice.ID] = *invoice
	u.log.Debug().Str("invoice_id", invoice.ID).Msg("Added new invoice")
	return nil
}

func (u *unitOfWork) UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return err
	}
	_, buffered := u.invoices[invoice.ID]
	if _, ok := u.base.Invoices[invoice.ID]; !ok && !buffered {
		return domain.NewNotFound("invoice", invoice.ID)
	}
	u.invoices[invoice.ID] = *invoice
	u.log.Debug().Str("invoice_id", invoice.ID).Str("status", string(invoice.Status)).Msg("Added invoice to update")
	return nil
}

func (u *unitOfWork) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return nil, err
	}
	if c, ok := u.companies[id]; ok {
		return &c, nil
	}
	if c, ok := u.base.Companies[id]; ok {
		return &c, nil
	}
	return nil, domain.NewNotFound("company", id)
}

func (u *unitOfWork) AddCompany(ctx context.Context, company *domain.Company) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return err
	}
	_, buffered := u.companies[company.ID]
	if _, ok := u.base.Companies[company.ID]; ok || buffered {
		return fmt.Errorf("company %q already exists", company.ID)
	}
	u.companies[company.ID] = *company
	u.log.Debug().Str("company_id", company.ID).Msg("Added new company")
	return nil
}

func (u *unitOfWork) GetCreditLimit(ctx context.Context, companyID string) (*domain.CreditLimit, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return nil, err
	}
	if cl, ok := u.creditLimits[companyID]; ok {
		return &cl, nil
	}
	if cl, ok := u.base.CreditLimits[companyID]; ok {
		return &cl, nil
	}
	return nil, domain.NewNotFound("credit limit", companyID)
}

func (u *unitOfWork) UpdateCreditLimit(ctx context.Context, limit *domain.CreditLimit) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return err
	}
	_, buffered := u.creditLimits[limit.CompanyID]
	if _, ok := u.base.CreditLimits[limit.CompanyID]; !ok && !buffered {
		return domain.NewNotFound("credit limit", limit.CompanyID)
	}
	u.creditLimits[limit.CompanyID] = *limit
	u.log.Debug().Str("company_id", limit.CompanyID).Int64("used", limit.Used).Msg("Added credit limit to update")
	return nil
}

func (u *unitOfWork) AddERPDocument(ctx context.Context, doc *domain.ERPDocument) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return err
	}
	if _, ok := u.base.ERPDocuments[doc.ID]; ok {
		return fmt.Errorf("erp document %q already exists", doc.ID)
	}
	for _, pending := range u.erpDocuments {
		if pending.ID == doc.ID {
			return fmt.Errorf("erp document %q already added", doc.ID)
		}
	}
	u.erpDocuments = append(u.erpDocuments, *doc)
	u.log.Debug().Str("erp_document_id", doc.ID).Str("invoice_id", doc.InvoiceID).Msg("Added new ERP document")
	return nil
}

// Commit applies the change set to the store, folds it into the snapshot
// and then publishes it. A store failure leaves the buffer in place so the
// commit can be retried.
func (u *unitOfWork) Commit(ctx context.Context) error {
	changes, err := u.apply(ctx)
	if err != nil {
		return err
	}

	for _, p := range u.publishers {
		if err := p.Apply(ctx, changes); err != nil {
			u.log.Warn().Err(err).Msg("Commit publisher failed, change set stays committed")
		}
	}
	return nil
}

func (u *unitOfWork) apply(ctx context.Context) (domain.ChangeSet, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := live(ctx); err != nil {
		return domain.ChangeSet{}, err
	}

	changes := u.changeSet()
	if u.store != nil {
		if err := u.store.Apply(ctx, changes); err != nil {
			u.log.Error().Err(err).Msg("Store rejected change set")
			return domain.ChangeSet{}, fmt.Errorf("commit: %w", err)
		}
	}

	for _, c := range changes.Companies {
		u.base.Companies[c.ID] = c
	}
	for _, inv := range changes.Invoices {
		u.base.Invoices[inv.ID] = inv
	}
	for _, cl := range changes.CreditLimits {
		u.base.CreditLimits[cl.CompanyID] = cl
	}
	for _, doc := range changes.ERPDocuments {
		u.base.ERPDocuments[doc.ID] = doc
	}
	u.reset()

	u.log.Info().
		Int("companies", len(changes.Companies)).
		Int("invoices", len(changes.Invoices)).
		Int("credit_limits", len(changes.CreditLimits)).
		Int("erp_documents", len(changes.ERPDocuments)).
		Msg("Changes committed")
	return changes, nil
}

func (u *unitOfWork) Discard() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.reset()
	u.log.Debug().Msg("Changes discarded")
}

func (u *unitOfWork) reset() {
	u.companies = make(map[string]domain.Company)
	u.invoices = make(map[string]domain.Invoice)
	u.creditLimits = make(map[string]domain.CreditLimit)
	u.erpDocuments = nil
}

// changeSet builds a deterministic change set from the buffer.
func (u *unitOfWork) changeSet() domain.ChangeSet {
	cs := domain.ChangeSet{
		SagaID:      u.sagaID,
		CommittedAt: u.now().UTC(),
	}
	for _, c := range u.companies {
		cs.Companies = append(cs.Companies, c)
	}
	sort.Slice(cs.Companies, func(i, j int) bool { return cs.Companies[i].ID < cs.Companies[j].ID })
	for _, inv := range u.invoices {
		cs.Invoices = append(cs.Invoices, inv)
	}
	sort.Slice(cs.Invoices, func(i, j int) bool { return cs.Invoices[i].ID < cs.Invoices[j].ID })
	for _, cl := range u.creditLimits {
		cs.CreditLimits = append(cs.CreditLimits, cl)
	}
	sort.Slice(cs.CreditLimits, func(i, j int) bool { return cs.CreditLimits[i].CompanyID < cs.CreditLimits[j].CompanyID })
	cs.ERPDocuments = append(cs.ERPDocuments, u.erpDocuments...)
	return cs
}
