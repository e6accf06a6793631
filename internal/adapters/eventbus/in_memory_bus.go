package eventbus

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultMaxDepth bounds how many follow-ups a single Publish may chain.
const DefaultMaxDepth = 32

var (
	ErrDispatchCycle         = errors.New("event type re-entered its own dispatch path")
	ErrDispatchDepthExceeded = errors.New("event dispatch depth exceeded")
	ErrAgentPanicked         = errors.New("agent panicked")
)

// inMemoryEventBus implements the ports.EventBus interface
type inMemoryEventBus struct {
	log         zerolog.Logger
	metrics     ports.SagaMetrics
	maxDepth    int
	subscribers map[string][]ports.Agent
	mu          sync.RWMutex
}

var _ ports.EventBus = (*inMemoryEventBus)(nil) // Ensure compliance

// Option configures the bus.
type Option func(*inMemoryEventBus)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(b *inMemoryEventBus) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// WithMetrics records every delivery.
func WithMetrics(m ports.SagaMetrics) Option {
	return func(b *inMemoryEventBus) {
		if m != nil {
			b.metrics = m
		}
	}
}

// NewInMemoryEventBus creates a new, empty event bus
func NewInMemoryEventBus(baseLogger *zerolog.Logger, opts ...Option) ports.EventBus {
	b := &inMemoryEventBus{
		log:         baseLogger.With().Str("component", "in_memory_bus").Logger(),
		metrics:     ports.NopMetrics{},
		maxDepth:    DefaultMaxDepth,
		subscribers: make(map[string][]ports.Agent),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers an agent for a specific event type.
// Agents are compared by identity, so they must be comparable (pointers).
func (b *inMemoryEventBus) Subscribe(agent ports.Agent, eventType string) bool {
	b.mu.Lock() // Lock for writing to the map
	defer b.mu.Unlock()

	for _, existing := range b.subscribers[eventType] {
		if existing == agent {
			b.log.Warn().Str("event_type", eventType).Str("agent", agent.Name()).Msg("Agent already subscribed, ignoring")
			return false
		}
	}

	b.subscribers[eventType] = append(b.subscribers[eventType], agent)
	b.log.Info().Str("event_type", eventType).Str("agent", agent.Name()).Msg("New agent subscribed to event type")
	return true
}

// SubscribeAgent registers the agent for every type it listens for.
func (b *inMemoryEventBus) SubscribeAgent(agent ports.Agent) {
	for _, eventType := range agent.ListensFor() {
		b.Subscribe(agent, eventType)
	}
}

// frame is one event on the dispatch stack and the subscribers still to run.
type frame struct {
	event  domain.Event
	depth  int
	agents []ports.Agent
	next   int
}

func (b *inMemoryEventBus) frameFor(event domain.Event, depth int) *frame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	agents := make([]ports.Agent, len(b.subscribers[event.Type]))
	copy(agents, b.subscribers[event.Type])
	return &frame{event: event, depth: depth, agents: agents}
}

// Publish dispatches an event synchronously. A follow-up is dispatched in
// full before the next sibling subscriber of its parent runs.
func (b *inMemoryEventBus) Publish(ctx context.Context, event domain.Event) (ports.DispatchReport, error) {
	var (
		report ports.DispatchReport
		errs   []error
	)

	root := b.frameFor(event, 0)
	if len(root.agents) == 0 {
		// No subscribers for this type, which is fine
		b.log.Warn().Str("event_type", event.Type).Msg("Published event with no subscribers")
	}
	report.Events = append(report.Events, event)
	stack := []*frame{root}

	fail := func(f *frame, agent ports.Agent, err error) {
		wrapped := fmt.Errorf("agent %s on %s: %w", agent.Name(), f.event.Type, err)
		report.Failures = append(report.Failures, ports.DispatchFailure{
			EventType: f.event.Type,
			Agent:     agent.Name(),
			Depth:     f.depth,
			Err:       err,
		})
		errs = append(errs, wrapped)
		b.log.Error().Err(err).
			Str("event_type", f.event.Type).
			Str("agent", agent.Name()).
			Int("depth", f.depth).
			Msg("Agent failed, skipping its branch")
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			b.log.Warn().Err(err).Str("event_type", event.Type).Msg("Dispatch cancelled")
			errs = append(errs, err)
			break
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.agents) {
			stack = stack[:len(stack)-1]
			continue
		}
		agent := top.agents[top.next]
		top.next++

		b.log.Debug().Str("event_type", top.event.Type).Str("agent", agent.Name()).Int("depth", top.depth).Msg("Triggering agent")
		followUp, err := safeHandle(ctx, agent, top.event)
		if err == nil && followUp != nil {
			if onPath(stack, followUp.Type) {
				err = fmt.Errorf("%w: %s", ErrDispatchCycle, followUp.Type)
			} else if top.depth+1 > b.maxDepth {
				err = fmt.Errorf("%w: %d", ErrDispatchDepthExceeded, b.maxDepth)
			}
		}

		delivery := ports.Delivery{Agent: agent.Name(), EventType: top.event.Type, Err: err}
		b.metrics.ObserveDelivery(top.event.Type, agent.Name(), err)
		if err != nil {
			report.Deliveries = append(report.Deliveries, delivery)
			fail(top, agent, err)
			continue
		}
		if followUp == nil {
			report.Deliveries = append(report.Deliveries, delivery)
			continue
		}

		delivery.FollowUp = followUp.Type
		report.Deliveries = append(report.Deliveries, delivery)
		report.Events = append(report.Events, *followUp)
		stack = append(stack, b.frameFor(*followUp, top.depth+1))
	}

	b.log.Info().
		Str("event_type", event.Type).
		Int("deliveries", len(report.Deliveries)).
		Int("failures", len(report.Failures)).
		Msg("Event published")
	return report, errors.Join(errs...)
}

// onPath reports whether eventType is already being dispatched further up.
func onPath(stack []*frame, eventType string) bool {
	for _, f := range stack {
		if f.event.Type == eventType {
			return true
		}
	}
	return false
}

// safeHandle turns an agent panic into an error.
func safeHandle(ctx context.Context, agent ports.Agent, event domain.Event) (followUp *domain.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			followUp = nil
			err = fmt.Errorf("%w: %v", ErrAgentPanicked, r)
		}
	}()
	return agent.Handle(ctx, event)
}
