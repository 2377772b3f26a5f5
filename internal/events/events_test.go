package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/domain"
)

type recordingPublisher struct {
	keys []string
	err  error
}

func (r *recordingPublisher) Publish(_ context.Context, key string, _ Envelope) error {
	r.keys = append(r.keys, key)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestTicketEventType(t *testing.T) {
	t.Parallel()
	if got := TicketEventType(domain.EventSLAEscalated); got != "ticket.sla_escalated" {
		t.Errorf("got %q, want ticket.sla_escalated", got)
	}
}

func TestMQTTTopic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		prefix, key, want string
	}{
		{"helpdesk", "ticket.assigned", "helpdesk/tickets/assigned"},
		{"helpdesk/", "ticket.status_changed", "helpdesk/tickets/status_changed"},
	}
	for _, tt := range tests {
		if got := MQTTTopic(tt.prefix, tt.key); got != tt.want {
			t.Errorf("MQTTTopic(%q, %q): got %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestDispatcherRoutesAndContinuesAfterErrors(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher(zap.NewNop())
	failing := &recordingPublisher{err: errors.New("broker down")}
	all := &recordingPublisher{}
	var typed int

	d.Subscribe(TicketEventType(domain.EventAssigned), func(context.Context, Envelope) error {
		typed++
		return nil
	})
	d.SubscribeAll(Forward(failing, zap.NewNop()))
	d.SubscribeAll(Forward(all, zap.NewNop()))

	agent := "agent-1"
	assigned := domain.NewTicketEvent("ticket-1", nil, domain.AssignmentChange{To: &agent})
	d.Publish(context.Background(), NewTicketEnvelope(assigned, "helpdesk"))
	status := domain.NewTicketEvent("ticket-1", nil, domain.StatusChange{From: domain.TicketStatusOpen, To: domain.TicketStatusWaiting})
	d.Publish(context.Background(), NewTicketEnvelope(status, "helpdesk"))

	if typed != 1 {
		t.Errorf("typed handler calls: got %d, want 1", typed)
	}
	if len(all.keys) != 2 {
		t.Fatalf("forwarded: got %d, want 2", len(all.keys))
	}
	if all.keys[0] != "ticket.assigned" || all.keys[1] != "ticket.status_changed" {
		t.Errorf("keys: got %v", all.keys)
	}
}

func TestNewTicketEnvelope(t *testing.T) {
	t.Parallel()
	event := domain.NewTicketEvent("ticket-9", nil, domain.PriorityChange{From: domain.TicketPriorityLow, To: domain.TicketPriorityHigh})
	event.ID = "event-1"
	env := NewTicketEnvelope(event, "helpdesk")
	if env.Meta.ID == "" || env.Meta.TicketID != "ticket-9" {
		t.Errorf("meta: got %+v", env.Meta)
	}
	payload, ok := env.Data.(TicketEventPayload)
	if !ok {
		t.Fatalf("data: got %T, want TicketEventPayload", env.Data)
	}
	if payload.EventID != "event-1" || payload.Type != domain.EventPriorityChanged {
		t.Errorf("payload: got %+v", payload)
	}
}

func TestNewPublisherFallback(t *testing.T) {
	t.Parallel()
	p, err := NewPublisher(config.BrokerConfig{Kind: config.BrokerNone}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if _, ok := p.(*FallbackPublisher); !ok {
		t.Errorf("got %T, want *FallbackPublisher", p)
	}
}
