package saga

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Choreography runs a job in broker form: the initiating event is published
// on the bus and the agents subscribed there chain it to completion. The
// unit of work is committed iff no subscriber failed.
type Choreography struct {
	name     string
	bus      ports.EventBus
	uow      ports.UnitOfWork
	reporter reporter
	newID    func() string
}

// NewChoreography creates a bus-driven job. Agents must already be
// subscribed on bus.
func NewChoreography(name string, bus ports.EventBus, uow ports.UnitOfWork, baseLogger *zerolog.Logger, opts ...Option) *Choreography {
	o := applyOptions(opts)
	return &Choreography{
		name:     name,
		bus:      bus,
		uow:      uow,
		reporter: newReporter(name, baseLogger, o),
		newID:    o.newID,
	}
}

// Name returns the job name.
func (c *Choreography) Name() string { return c.name }

// Perform publishes the initiating event and gates the commit on the
// dispatch report.
func (c *Choreography) Perform(ctx context.Context, initiating domain.Event) domain.SagaOutcome {
	sagaID := c.newID()
	started := time.Now()
	log := c.reporter.log.With().Str("saga_id", sagaID).Logger()
	ctx = log.WithContext(ctx)

	report, err := c.bus.Publish(ctx, initiating)
	outcome := domain.SagaOutcome{
		SagaID: sagaID,
		Job:    c.name,
		Steps:  stepsFromReport(report),
	}

	if err == nil {
		if cerr := c.uow.Commit(ctx); cerr != nil {
			err = fmt.Errorf("%w: %w", ErrCommitFailed, cerr)
		}
	}

	if err != nil {
		c.uow.Discard()
		outcome.Status = domain.SagaAborted
		outcome.Event = initiating.FollowUp(domain.EventSagaAborted).Succeeded(false)
		outcome.Reason = err
	} else {
		last := initiating
		if n := len(report.Events); n > 0 {
			last = report.Events[n-1]
		}
		outcome.Status = domain.SagaCommitted
		outcome.Event = last.Succeeded(true)
	}
	outcome.Duration = time.Since(started)

	c.reporter.report(ctx, log, outcome)
	return outcome
}

// stepsFromReport turns bus deliveries into step records shaped like a
// pipeline's. The last delivery of a clean dispatch is the done step.
func stepsFromReport(report ports.DispatchReport) []domain.StepRecord {
	steps := make([]domain.StepRecord, 0, len(report.Deliveries))
	for _, d := range report.Deliveries {
		rec := domain.StepRecord{
			Step:   d.Agent,
			Input:  d.EventType,
			Output: d.FollowUp,
			Status: domain.StepProgress,
			Err:    d.Err,
		}
		if d.Err != nil {
			rec.Status = domain.StepFailed
		}
		steps = append(steps, rec)
	}
	if n := len(steps); n > 0 && report.OK() {
		steps[n-1].Status = domain.StepDone
	}
	return steps
}
