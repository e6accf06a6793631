package telegram

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// outcomeNotifier implements ports.OutcomeNotifier by posting to one chat.
type outcomeNotifier struct {
	api    Sender
	chatID int64
	log    zerolog.Logger
}

var _ ports.OutcomeNotifier = (*outcomeNotifier)(nil)

// NewOutcomeNotifier creates a notifier that reports to chatID.
func NewOutcomeNotifier(api Sender, chatID int64, baseLogger *zerolog.Logger) ports.OutcomeNotifier {
	log := baseLogger.With().Str("component", "tg_notifier").Int64("chat_id", chatID).Logger()
	return &outcomeNotifier{api: api, chatID: chatID, log: log}
}

// NewBotAPI connects to Telegram with token.
func NewBotAPI(token string, baseLogger *zerolog.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	baseLogger.Info().Str("component", "tg_notifier").Str("bot", api.Self.UserName).Msg("Authorized on Telegram")
	return api, nil
}

// Notify sends a short MarkdownV2 summary of the outcome.
func (n *outcomeNotifier) Notify(ctx context.Context, outcome domain.SagaOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, formatOutcome(outcome))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		n.log.Error().Err(err).Str("saga_id", outcome.SagaID).Msg("Failed to send outcome")
		return err
	}
	return nil
}

func formatOutcome(o domain.SagaOutcome) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s) }

	var b strings.Builder
	if o.Committed() {
		fmt.Fprintf(&b, "✅ *%s committed*\n", esc(o.Job))
	} else {
		fmt.Fprintf(&b, "❌ *%s aborted*\n", esc(o.Job))
	}
	fmt.Fprintf(&b, "Saga: `%s`\n", esc(o.SagaID))
	fmt.Fprintf(&b, "Final event: %s\n", esc(o.Event.Type))
	for _, s := range o.Steps {
		fmt.Fprintf(&b, "• %s: %s\n", esc(s.Step), esc(string(s.Status)))
	}
	if o.Reason != nil {
		fmt.Fprintf(&b, "Reason: %s\n", esc(o.Reason.Error()))
	}
	fmt.Fprintf(&b, "Took: %s", esc(o.Duration.String()))
	return b.String()
}
