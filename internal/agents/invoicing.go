package agents

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// InvoicingAgent checks invoices before financing and marks them financed
// once the ERP document exists.
type InvoicingAgent struct {
	base
}

var _ ports.Agent = (*InvoicingAgent)(nil)

func NewInvoicingAgent(uow ports.UnitOfWork, baseLogger *zerolog.Logger) *InvoicingAgent {
	a := &InvoicingAgent{base: newBase("invoicing", uow, baseLogger)}
	a.on(domain.EventFinancingRequested, domain.EventInvoiceValidated, a.validateInvoice)
	a.on(domain.EventERPDocumentCreated, domain.EventInvoiceUpdated, a.markFinanced)
	return a
}

func (a *InvoicingAgent) validateInvoice(ctx context.Context, req *domain.FinancingRequest) error {
	inv, err := a.uow.GetInvoice(ctx, req.InvoiceID.String())
	if err != nil {
		return err
	}
	if inv.Status != domain.InvoiceAvailable {
		return fmt.Errorf("%w: invoice %s is %s", domain.ErrInvoiceNotAvailable, inv.ID, inv.Status)
	}
	if _, err := a.uow.GetCompany(ctx, inv.CompanyID); err != nil {
		return err
	}
	return nil
}

func (a *InvoicingAgent) markFinanced(ctx context.Context, req *domain.FinancingRequest) error {
	inv, err := a.uow.GetInvoice(ctx, req.InvoiceID.String())
	if err != nil {
		return err
	}
	inv.MarkFinanced()
	return a.uow.UpdateInvoice(ctx, inv)
}
