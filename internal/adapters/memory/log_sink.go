package memory

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes every committed change set to the log.
type LogSink struct {
	log zerolog.Logger
}

var _ ports.CommitSink = (*LogSink)(nil)

func NewLogSink(baseLogger *zerolog.Logger) *LogSink {
	return &LogSink{log: baseLogger.With().Str("component", "commit_log").Logger()}
}

func (s *LogSink) Apply(_ context.Context, changes domain.ChangeSet) error {
	s.log.Info().
		Str("saga_id", changes.SagaID).
		Interface("invoices", changes.Invoices).
		Interface("credit_limits", changes.CreditLimits).
		Interface("erp_documents", changes.ERPDocuments).
		Time("committed_at", changes.CommittedAt).
		Msg("Changes committed!")
	return nil
}
