// Package mailer hands magic-link mail off for delivery. The API never sends
// mail itself: messages go to a broker for the delivery worker, or to the log
// in development.
package mailer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Mailer delivers magic-link mail for an email address.
type Mailer interface {
	// SendMagicLink hands off a login link for delivery to the address.
	SendMagicLink(ctx context.Context, email, link string) error

	Close() error
}

// MagicLinkMessage is the payload handed to the delivery worker.
type MagicLinkMessage struct {
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMagicLinkMessage creates a delivery payload for an email and link.
func NewMagicLinkMessage(email, link string) *MagicLinkMessage {
	return &MagicLinkMessage{
		Email:     email,
		Link:      link,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MagicLinkMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MagicLinkMessageFromJSON creates a message from JSON bytes
func MagicLinkMessageFromJSON(data []byte) (*MagicLinkMessage, error) {
	var msg MagicLinkMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LogMailer writes login links to the log instead of delivering them. Used
// in development where no broker is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a mailer that logs links instead of sending them.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMagicLink(ctx context.Context, email, link string) error {
	m.logger.Info("magic link (mail delivery disabled)", "email", email, "link", link)
	return nil
}

func (m *LogMailer) Close() error { return nil }
