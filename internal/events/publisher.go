package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/config"
)

// Publisher forwards envelopes to an external broker.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// NewPublisher selects the broker named by cfg.Kind.
func NewPublisher(cfg config.BrokerConfig, logger *zap.Logger) (Publisher, error) {
	switch cfg.Kind {
	case config.BrokerAMQP:
		p, err := NewAMQPPublisher(cfg.URL, cfg.Exchange, logger)
		if err != nil {
			return nil, fmt.Errorf("amqp publisher: %w", err)
		}
		return p, nil
	case config.BrokerMQTT:
		p, err := NewMQTTPublisher(cfg.URL, cfg.ClientID, cfg.TopicPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		return p, nil
	case config.BrokerNone, "":
		return NewFallbackPublisher(logger), nil
	default:
		return nil, fmt.Errorf("unknown broker kind %q", cfg.Kind)
	}
}

// Forward returns a handler that publishes every event to p under its type as routing key.
func Forward(p Publisher, logger *zap.Logger) EventHandler {
	return func(ctx context.Context, event Envelope) error {
		if err := p.Publish(ctx, string(event.Meta.Type), event); err != nil {
			return fmt.Errorf("forward %s: %w", event.Meta.Type, err)
		}
		logger.Debug("event forwarded", zap.String("event_type", string(event.Meta.Type)), zap.String("ticket_id", event.Meta.TicketID))
		return nil
	}
}

// FallbackPublisher drops events when no broker is configured.
type FallbackPublisher struct {
	logger *zap.Logger
}

// NewFallbackPublisher builds a publisher that only logs.
func NewFallbackPublisher(logger *zap.Logger) *FallbackPublisher {
	return &FallbackPublisher{logger: logger}
}

func (p *FallbackPublisher) Publish(_ context.Context, key string, _ Envelope) error {
	p.logger.Debug("no broker configured, skipped publish", zap.String("key", key))
	return nil
}

func (p *FallbackPublisher) Close() error { return nil }
