package mail

import (
	"testing"

	"github.com/nerrad567/accounthub/internal/infrastructure/config"
	"github.com/nerrad567/accounthub/internal/infrastructure/logging"
)

func TestLogMailer_Send(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	m := NewLogMailer(log)

	if err := m.Send(t.Context(), "a@example.com", "Hello", "<p>hi</p>"); err != nil {
		t.Errorf("Send() error = %v", err)
	}
}

func TestNewSMTPMailer(t *testing.T) {
	_, err := NewSMTPMailer(config.MailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("NewSMTPMailer() error = %v", err)
	}

	// With credentials
	_, err = NewSMTPMailer(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "no-reply@example.com",
		Username: "mailer",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("NewSMTPMailer() with auth error = %v", err)
	}
}
