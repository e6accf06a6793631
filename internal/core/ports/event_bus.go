package ports

import (
	"InvoiceFinancing/internal/core/domain"
	"context"
)

// DispatchFailure records a subscriber that failed while handling an event.
type DispatchFailure struct {
	EventType string
	Agent     string
	Depth     int
	Err       error
}

// Delivery is one agent invocation. FollowUp is empty when the agent
// returned nothing or failed.
type Delivery struct {
	Agent     string
	EventType string
	FollowUp  string
	Err       error
}

// DispatchReport summarises one Publish call.
type DispatchReport struct {
	// Deliveries are in invocation order.
	Deliveries []Delivery
	// Events lists every event dispatched, the initiating one first.
	Events   []domain.Event
	Failures []DispatchFailure
}

// Delivered lists deliveries as "agent<-eventType".
func (r DispatchReport) Delivered() []string {
	out := make([]string, 0, len(r.Deliveries))
	for _, d := range r.Deliveries {
		out = append(out, d.Agent+"<-"+d.EventType)
	}
	return out
}

// OK reports whether every delivery succeeded.
func (r DispatchReport) OK() bool {
	return len(r.Failures) == 0
}

// EventBus defines the interface for our in-process, synchronous pub/sub system
type EventBus interface {
	// Subscribe registers an agent for an event type. It returns false if
	// the pair was already registered; registration is idempotent.
	Subscribe(agent Agent, eventType string) bool

	// SubscribeAgent registers an agent for every type it listens for.
	SubscribeAgent(agent Agent)

	// Publish dispatches the event and every follow-up it causes, depth-first,
	// before returning. The error joins all subscriber failures.
	Publish(ctx context.Context, event domain.Event) (DispatchReport, error)
}
