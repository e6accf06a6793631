package saga

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// reporter logs, counts and forwards saga outcomes.
type reporter struct {
	job      string
	log      zerolog.Logger
	metrics  ports.SagaMetrics
	notifier ports.OutcomeNotifier
}

func newReporter(job string, baseLogger *zerolog.Logger, o options) reporter {
	return reporter{
		job:      job,
		log:      baseLogger.With().Str("component", "saga").Str("job", job).Logger(),
		metrics:  o.metrics,
		notifier: o.notifier,
	}
}

func (r reporter) report(ctx context.Context, log zerolog.Logger, outcome domain.SagaOutcome) {
	r.metrics.ObserveOutcome(r.job, outcome.Status, outcome.Duration)

	if outcome.Committed() {
		log.Info().
			Str("final_event", outcome.Event.Type).
			Int("steps", len(outcome.Steps)).
			Dur("took", outcome.Duration).
			Msg("Saga committed")
	} else {
		log.Error().
			Err(outcome.Reason).
			Int("steps", len(outcome.Steps)).
			Dur("took", outcome.Duration).
			Msg("Saga aborted, changes discarded")
	}

	if r.notifier == nil {
		return
	}
	// The outcome stands even if nobody could be told about it.
	if err := r.notifier.Notify(context.WithoutCancel(ctx), outcome); err != nil {
		log.Warn().Err(err).Msg("Failed to notify saga outcome")
	}
}
