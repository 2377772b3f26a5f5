package mail

import (
	"context"
	"testing"

	"github.com/deskline/helpdesk/internal/config"
)

func TestNewSMTPSender(t *testing.T) {
	t.Parallel()

	sender, err := NewSMTPSender(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "helpdesk",
		Password: "secret",
		From:     "noreply@example.com",
	})
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	if sender.from != "noreply@example.com" {
		t.Errorf("from: got %q, want noreply@example.com", sender.from)
	}
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	t.Parallel()

	sender, err := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 25, From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	if err := sender.Send(context.Background(), "not an address", "subject", "body"); err == nil {
		t.Fatal("expected error for invalid recipient")
	}
}
