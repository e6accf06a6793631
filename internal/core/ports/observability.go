package ports

import (
	"InvoiceFinancing/internal/core/domain"
	"context"
	"time"
)

// OutcomeNotifier tells someone outside the process how a saga ended.
type OutcomeNotifier interface {
	Notify(ctx context.Context, outcome domain.SagaOutcome) error
}

// SagaMetrics records dispatch and saga outcome measurements.
type SagaMetrics interface {
	ObserveDelivery(eventType, agent string, err error)
	ObserveOutcome(job string, status domain.SagaStatus, took time.Duration)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) ObserveDelivery(string, string, error) {}

func (NopMetrics) ObserveOutcome(string, domain.SagaStatus, time.Duration) {}
