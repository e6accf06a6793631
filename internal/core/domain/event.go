package domain

// Event types of the "request financing" job, in chain order.
const (
	EventFinancingRequested = "financingrequested"    // Recipient - Invoicing agent
	EventInvoiceValidated   = "invoiceValidatedEvent" // Recipient - Credit limits agent
	EventLimitsValidated    = "limitsValidatedEvent"  // Recipient - Accounting agent
	EventERPDocumentCreated = "erpDocumentCreated"    // Recipient - Invoicing agent
	EventInvoiceUpdated     = "invoiceUpdatedEvent"   // Recipient - Credit limits agent

	// EventSagaAborted is the terminal sentinel a pipeline returns when it fails.
	EventSagaAborted = "sagaAborted"
)

// Event is an immutable, typed message. Identity is by Type.
// Success is only set on terminal events returned by a saga pipeline.
type Event struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Success *bool  `json:"success,omitempty"`
}

// NewEvent creates a progress event (no success flag).
func NewEvent(eventType, payload string) Event {
	return Event{Type: eventType, Payload: payload}
}

// FollowUp creates the next event in a chain, carrying the payload forward unchanged.
func (e Event) FollowUp(eventType string) Event {
	return Event{Type: eventType, Payload: e.Payload}
}

// Succeeded returns a terminal copy of the event with the success flag set.
func (e Event) Succeeded(ok bool) Event {
	return Event{Type: e.Type, Payload: e.Payload, Success: &ok}
}

// IsSuccess reports whether the event is a terminal success event.
func (e Event) IsSuccess() bool {
	return e.Success != nil && *e.Success
}

// IsTerminal reports whether the event carries an outcome.
func (e Event) IsTerminal() bool {
	return e.Success != nil
}
