// Package saga runs jobs: business transactions whose accumulated unit of
// work is committed only when the whole chain succeeds.
//
// Steps run strictly one after another; a step that would have to wait on
// several upstream events (fan-in) cannot be expressed and is not supported.
package saga

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStepTimeout bounds a single pipeline step.
const DefaultStepTimeout = 5 * time.Second

var (
	ErrEmptyPipeline   = errors.New("pipeline has no steps")
	ErrUnhandledEvent  = errors.New("step does not handle event type")
	ErrChainBroken     = errors.New("step produced no follow-up event")
	ErrStepPanicked    = errors.New("step panicked")
	ErrStepTimeout     = errors.New("step deadline exceeded")
	ErrCommitFailed    = errors.New("commit failed")
	ErrSagaInterrupted = errors.New("saga interrupted")
)

// Pipeline is the mediator form: a fixed, ordered list of agents sharing one
// unit of work.
type Pipeline struct {
	name        string
	steps       []ports.Agent
	uow         ports.UnitOfWork
	stepTimeout time.Duration
	reporter    reporter
	newID       func() string
}

// Option configures a Pipeline or a Choreography.
type Option func(*options)

type options struct {
	stepTimeout time.Duration
	metrics     ports.SagaMetrics
	notifier    ports.OutcomeNotifier
	newID       func() string
}

// WithStepTimeout bounds every pipeline step. Zero disables the deadline.
func WithStepTimeout(d time.Duration) Option {
	return func(o *options) { o.stepTimeout = d }
}

// WithMetrics records saga outcomes.
func WithMetrics(m ports.SagaMetrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithNotifier reports every outcome to n.
func WithNotifier(n ports.OutcomeNotifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithIDGenerator overrides how saga ids are generated.
func WithIDGenerator(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.newID = f
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		stepTimeout: DefaultStepTimeout,
		metrics:     ports.NopMetrics{},
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPipeline creates a job that feeds the initiating event through steps
// in order.
func NewPipeline(name string, uow ports.UnitOfWork, steps []ports.Agent, baseLogger *zerolog.Logger, opts ...Option) *Pipeline {
	o := applyOptions(opts)
	return &Pipeline{
		name:        name,
		steps:       steps,
		uow:         uow,
		stepTimeout: o.stepTimeout,
		reporter:    newReporter(name, baseLogger, o),
		newID:       o.newID,
	}
}

// Name returns the job name.
func (p *Pipeline) Name() string { return p.name }

// Perform runs the job and commits the unit of work iff every step
// succeeded. On failure the unit of work is discarded.
func (p *Pipeline) Perform(ctx context.Context, initiating domain.Event) domain.SagaOutcome {
	sagaID := p.newID()
	started := time.Now()
	log := p.reporter.log.With().Str("saga_id", sagaID).Logger()
	ctx = log.WithContext(ctx)

	final, steps, err := p.run(ctx, initiating)
	outcome := domain.SagaOutcome{
		SagaID: sagaID,
		Job:    p.name,
		Steps:  steps,
	}

	if err == nil && final.IsSuccess() {
		if cerr := p.uow.Commit(ctx); cerr != nil {
			err = fmt.Errorf("%w: %w", ErrCommitFailed, cerr)
		}
	}

	if err != nil {
		p.uow.Discard()
		outcome.Status = domain.SagaAborted
		outcome.Event = initiating.FollowUp(domain.EventSagaAborted).Succeeded(false)
		outcome.Reason = err
	} else {
		outcome.Status = domain.SagaCommitted
		outcome.Event = final
	}
	outcome.Duration = time.Since(started)

	p.reporter.report(ctx, log, outcome)
	return outcome
}

// Run feeds the event through every step without committing. It returns
// the final event marked successful, or the abort sentinel. The final event
// is the last step's follow-up, or its input when the last step is terminal.
func (p *Pipeline) Run(ctx context.Context, initiating domain.Event) (domain.Event, error) {
	final, _, err := p.run(ctx, initiating)
	if err != nil {
		return initiating.FollowUp(domain.EventSagaAborted).Succeeded(false), err
	}
	return final, nil
}

func (p *Pipeline) run(ctx context.Context, initiating domain.Event) (domain.Event, []domain.StepRecord, error) {
	if len(p.steps) == 0 {
		return domain.Event{}, nil, ErrEmptyPipeline
	}

	log := zerolog.Ctx(ctx)
	records := make([]domain.StepRecord, 0, len(p.steps))
	current := initiating

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return domain.Event{}, records, fmt.Errorf("%w: %w", ErrSagaInterrupted, err)
		}

		rec := domain.StepRecord{Step: step.Name(), Input: current.Type}
		if !listensFor(step, current.Type) {
			rec.Status = domain.StepFailed
			rec.Err = fmt.Errorf("%w: %s cannot handle %s", ErrUnhandledEvent, step.Name(), current.Type)
			records = append(records, rec)
			return domain.Event{}, records, rec.Err
		}

		last := i == len(p.steps)-1
		started := time.Now()
		next, err := p.runStep(ctx, step, current)
		rec.Duration = time.Since(started)
		if err == nil && next == nil && !last {
			err = fmt.Errorf("%w: %s on %s", ErrChainBroken, step.Name(), current.Type)
		}
		if err != nil {
			rec.Status = domain.StepFailed
			rec.Err = err
			records = append(records, rec)
			log.Warn().Err(err).Str("step", step.Name()).Str("event_type", current.Type).Msg("Saga step failed")
			return domain.Event{}, records, err
		}

		if last {
			// A terminal last step ends the chain on the event it consumed.
			rec.Status = domain.StepDone
			if next != nil {
				rec.Output = next.Type
				current = *next
			}
			records = append(records, rec)
			log.Debug().Str("step", step.Name()).Str("event_type", rec.Input).Msg("Saga chain done")
			break
		}

		rec.Output = next.Type
		rec.Status = domain.StepProgress
		records = append(records, rec)
		log.Debug().Str("step", step.Name()).Str("event_type", current.Type).Str("follow_up", next.Type).Msg("Saga step completed")
		current = *next
	}

	return current.Succeeded(true), records, nil
}

// stepResult carries a step's return values out of its goroutine.
type stepResult struct {
	next *domain.Event
	err  error
}

// runStep runs one step under the step deadline. A step that overruns is
// abandoned; its unit of work is discarded by Perform and never committed.
func (p *Pipeline) runStep(ctx context.Context, step ports.Agent, event domain.Event) (*domain.Event, error) {
	if p.stepTimeout <= 0 {
		return safeHandle(ctx, step, event)
	}

	stepCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	done := make(chan stepResult, 1)
	go func() {
		next, err := safeHandle(stepCtx, step, event)
		done <- stepResult{next: next, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && stepCtx.Err() != nil {
			return nil, p.interrupted(ctx, step)
		}
		return res.next, res.err
	case <-stepCtx.Done():
		return nil, p.interrupted(ctx, step)
	}
}

// interrupted explains why a step's context ended: its own deadline, or
// the caller's context.
func (p *Pipeline) interrupted(ctx context.Context, step ports.Agent) error {
	if ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", ErrStepTimeout, step.Name(), p.stepTimeout)
	}
	return fmt.Errorf("%w: %w", ErrSagaInterrupted, ctx.Err())
}

func listensFor(agent ports.Agent, eventType string) bool {
	for _, t := range agent.ListensFor() {
		if t == eventType {
			return true
		}
	}
	return false
}

// safeHandle turns a step panic into an error.
func safeHandle(ctx context.Context, agent ports.Agent, event domain.Event) (next *domain.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("%w: %s: %v", ErrStepPanicked, agent.Name(), r)
		}
	}()
	return agent.Handle(ctx, event)
}
