package agents

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// CreditLimitsAgent verifies and then consumes a company's credit limit.
// Consuming the limit ends the chain.
type CreditLimitsAgent struct {
	base
}

var _ ports.Agent = (*CreditLimitsAgent)(nil)

func NewCreditLimitsAgent(uow ports.UnitOfWork, baseLogger *zerolog.Logger) *CreditLimitsAgent {
	a := &CreditLimitsAgent{base: newBase("credit_limits", uow, baseLogger)}
	a.on(domain.EventInvoiceValidated, domain.EventLimitsValidated, a.verifyLimits)
	a.on(domain.EventInvoiceUpdated, "", a.consumeLimit)
	return a
}

func (a *CreditLimitsAgent) limitFor(ctx context.Context, req *domain.FinancingRequest) (*domain.Invoice, *domain.CreditLimit, error) {
	inv, err := a.uow.GetInvoice(ctx, req.InvoiceID.String())
	if err != nil {
		return nil, nil, err
	}
	limit, err := a.uow.GetCreditLimit(ctx, inv.CompanyID)
	if err != nil {
		return nil, nil, err
	}
	return inv, limit, nil
}

func (a *CreditLimitsAgent) verifyLimits(ctx context.Context, req *domain.FinancingRequest) error {
	inv, limit, err := a.limitFor(ctx, req)
	if err != nil {
		return err
	}
	if !limit.HasAvailable(inv.Amount) {
		return fmt.Errorf("%w: company %s needs %d, has %d left",
			domain.ErrCreditLimitExceeded, limit.CompanyID, inv.Amount, limit.Limit-limit.Used)
	}
	return nil
}

func (a *CreditLimitsAgent) consumeLimit(ctx context.Context, req *domain.FinancingRequest) error {
	inv, limit, err := a.limitFor(ctx, req)
	if err != nil {
		return err
	}
	limit.Consume(inv.Amount)
	return a.uow.UpdateCreditLimit(ctx, limit)
}
