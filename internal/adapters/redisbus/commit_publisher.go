package redisbus

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CommitPublisher implements ports.CommitSink by publishing every committed
// change set as JSON on a Redis channel.
type CommitPublisher struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

var _ ports.CommitSink = (*CommitPublisher)(nil)

// NewCommitPublisher creates a publisher on channel.
func NewCommitPublisher(opts *redis.Options, channel string, baseLogger *zerolog.Logger) *CommitPublisher {
	return &CommitPublisher{
		client:  redis.NewClient(opts),
		channel: channel,
		log:     baseLogger.With().Str("component", "commit_publisher").Str("channel", channel).Logger(),
	}
}

// Ping checks the connection.
func (p *CommitPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Apply publishes changes. Having no subscribers is not an error.
func (p *CommitPublisher) Apply(ctx context.Context, changes domain.ChangeSet) error {
	data, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("encode change set: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		p.log.Error().Err(err).Str("saga_id", changes.SagaID).Msg("Failed to publish change set")
		return fmt.Errorf("publish change set: %w", err)
	}

	p.log.Debug().Str("saga_id", changes.SagaID).Int64("receivers", receivers).Msg("Change set published")
	return nil
}

// Subscribe streams change sets published on the channel until ctx ends.
// Undecodable messages are logged and skipped.
func (p *CommitPublisher) Subscribe(ctx context.Context) (<-chan domain.ChangeSet, error) {
	ps := p.client.Subscribe(ctx, p.channel)
	// Wait for the subscription to be confirmed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	out := make(chan domain.ChangeSet)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var changes domain.ChangeSet
				if err := json.Unmarshal([]byte(msg.Payload), &changes); err != nil {
					p.log.Warn().Err(err).Msg("Skipping undecodable change set")
					continue
				}
				select {
				case out <- changes:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the client.
func (p *CommitPublisher) Close() error {
	return p.client.Close()
}
