package domain

import "time"

// Invoice represents an invoice that can be financed.
type Invoice struct {
	ID        string
	CompanyID string
	Amount    int64 // Minor units
	Status    InvoiceStatus
}

// MarkFinanced moves the invoice to the financed status.
func (i *Invoice) MarkFinanced() {
	i.Status = InvoiceFinanced
}

// Company owns invoices and a credit limit.
type Company struct {
	ID   string
	Name string
}

// CreditLimit is keyed by its company; CompanyID is its id.
type CreditLimit struct {
	CompanyID string
	Limit     int64
	Used      int64
}

// HasAvailable reports whether the limit can cover the required amount.
func (c *CreditLimit) HasAvailable(required int64) bool {
	return c.Used+required <= c.Limit
}

// Consume adds amount to the used limit.
func (c *CreditLimit) Consume(amount int64) {
	c.Used += amount
}

// ERPDocument is created by accounting for every financed invoice.
type ERPDocument struct {
	ID        string
	InvoiceID string
	CompanyID string
	Amount    int64
	CreatedAt time.Time
}

// Snapshot is the read state a unit of work starts from.
type Snapshot struct {
	Invoices     map[string]Invoice
	Companies    map[string]Company
	CreditLimits map[string]CreditLimit // Keyed by company id
	ERPDocuments map[string]ERPDocument
}

// NewSnapshot returns an empty snapshot with all collections allocated.
func NewSnapshot() Snapshot {
	return Snapshot{
		Invoices:     make(map[string]Invoice),
		Companies:    make(map[string]Company),
		CreditLimits: make(map[string]CreditLimit),
		ERPDocuments: make(map[string]ERPDocument),
	}
}

// ChangeSet is what a commit externalizes.
type ChangeSet struct {
	SagaID       string        `json:"sagaId"`
	Companies    []Company     `json:"companies"`
	Invoices     []Invoice     `json:"invoices"`
	CreditLimits []CreditLimit `json:"creditLimits"`
	ERPDocuments []ERPDocument `json:"erpDocuments"`
	CommittedAt  time.Time     `json:"committedAt"`
}

// IsEmpty reports whether the change set carries no changes.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Companies) == 0 && len(c.Invoices) == 0 && len(c.CreditLimits) == 0 && len(c.ERPDocuments) == 0
}
