package agents

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountingAgent creates the ERP document for a financed invoice.
type AccountingAgent struct {
	base
	now func() time.Time
}

var _ ports.Agent = (*AccountingAgent)(nil)

func NewAccountingAgent(uow ports.UnitOfWork, baseLogger *zerolog.Logger) *AccountingAgent {
	a := &AccountingAgent{base: newBase("accounting", uow, baseLogger), now: time.Now}
	a.on(domain.EventLimitsValidated, domain.EventERPDocumentCreated, a.createERPDocument)
	return a
}

func (a *AccountingAgent) createERPDocument(ctx context.Context, req *domain.FinancingRequest) error {
	inv, err := a.uow.GetInvoice(ctx, req.InvoiceID.String())
	if err != nil {
		return err
	}
	doc := &domain.ERPDocument{
		ID:        uuid.NewString(),
		InvoiceID: inv.ID,
		CompanyID: inv.CompanyID,
		Amount:    inv.Amount,
		CreatedAt: a.now().UTC(),
	}
	return a.uow.AddERPDocument(ctx, doc)
}
