package saga

import (
	"InvoiceFinancing/internal/agents"
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// JobRequestFinancing is the name of the financing job.
const JobRequestFinancing = "request_financing"

// Job is either execution form of a saga.
type Job interface {
	Name() string
	Perform(ctx context.Context, initiating domain.Event) domain.SagaOutcome
}

var (
	_ Job = (*Pipeline)(nil)
	_ Job = (*Choreography)(nil)
)

// NewRequestFinancingJob builds the mediator form of the financing job.
// Invoicing, CreditLimits and Accounting validate and book the financing;
// Invoicing then marks the invoice financed and CreditLimits consumes the
// limit, which ends the chain:
//
//	financingrequested -> invoiceValidatedEvent -> limitsValidatedEvent ->
//	erpDocumentCreated -> invoiceUpdatedEvent
func NewRequestFinancingJob(
	invoicing *agents.InvoicingAgent,
	creditLimits *agents.CreditLimitsAgent,
	accounting *agents.AccountingAgent,
	uow ports.UnitOfWork,
	baseLogger *zerolog.Logger,
	opts ...Option,
) *Pipeline {
	steps := []ports.Agent{invoicing, creditLimits, accounting, invoicing, creditLimits}
	return NewPipeline(JobRequestFinancing, uow, steps, baseLogger, opts...)
}

// NewFinancingChoreography subscribes the financing agents on bus and
// returns the broker form of the job. The chain runs
// financingrequested -> invoiceValidatedEvent -> limitsValidatedEvent ->
// erpDocumentCreated -> invoiceUpdatedEvent.
func NewFinancingChoreography(
	bus ports.EventBus,
	invoicing *agents.InvoicingAgent,
	creditLimits *agents.CreditLimitsAgent,
	accounting *agents.AccountingAgent,
	uow ports.UnitOfWork,
	baseLogger *zerolog.Logger,
	opts ...Option,
) *Choreography {
	for _, a := range []ports.Agent{invoicing, creditLimits, accounting} {
		bus.SubscribeAgent(a)
	}
	return NewChoreography(JobRequestFinancing, bus, uow, baseLogger, opts...)
}
