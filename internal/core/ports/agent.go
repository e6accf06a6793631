package ports

import (
	"InvoiceFinancing/internal/core/domain"
	"context"
)

// Agent maps one input event to zero or one follow-up events, performing a
// side effect against its unit of work as it does so.
type Agent interface {
	// Name identifies the agent in logs and reports.
	Name() string
	// ListensFor returns the event types the agent handles, in route order.
	ListensFor() []string
	// Handle processes an event. Unrecognised types return (nil, nil).
	Handle(ctx context.Context, event domain.Event) (*domain.Event, error)
}
