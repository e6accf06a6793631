// Package agents holds the handlers of the financing job. Each agent is a
// dispatch table from event type to a side effect against the unit of work
// and the follow-up event type it emits.
package agents

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// sideEffect performs an agent's work for one event.
type sideEffect func(ctx context.Context, req *domain.FinancingRequest) error

// route is one entry of an agent's dispatch table. An empty emit means the
// route is terminal.
type route struct {
	on   string
	emit string
	do   sideEffect
}

// base implements ports.Agent on top of a dispatch table.
type base struct {
	name   string
	uow    ports.UnitOfWork
	routes []route
	log    zerolog.Logger
}

func newBase(name string, uow ports.UnitOfWork, baseLogger *zerolog.Logger) base {
	return base{
		name: name,
		uow:  uow,
		log:  baseLogger.With().Str("component", name+"_agent").Logger(),
	}
}

func (b *base) on(eventType, emit string, do sideEffect) {
	b.routes = append(b.routes, route{on: eventType, emit: emit, do: do})
}

func (b *base) Name() string { return b.name }

func (b *base) ListensFor() []string {
	types := make([]string, len(b.routes))
	for i, r := range b.routes {
		types[i] = r.on
	}
	return types
}

// Handle runs the route registered for the event type. Events the agent
// does not listen for yield no follow-up.
func (b *base) Handle(ctx context.Context, event domain.Event) (*domain.Event, error) {
	for _, r := range b.routes {
		if r.on != event.Type {
			continue
		}

		req, err := domain.ParseFinancingRequest(event.Payload)
		if err != nil {
			return nil, err
		}

		log := b.log.With().Str("event_type", event.Type).Str("invoice_id", req.InvoiceID.String()).Logger()
		if err := r.do(log.WithContext(ctx), req); err != nil {
			log.Warn().Err(err).Msg("Side effect failed")
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}

		if r.emit == "" {
			log.Info().Msg("Handled terminal event")
			return nil, nil
		}
		followUp := event.FollowUp(r.emit)
		log.Info().Str("follow_up", r.emit).Msg("Handled event")
		return &followUp, nil
	}
	return nil, nil
}
