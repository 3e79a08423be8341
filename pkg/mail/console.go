package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ConsoleMailer writes messages to the log instead of sending them.
// Intended for development; delivered messages are retained for inspection.
type ConsoleMailer struct {
	sender Sender
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Mailer = (*ConsoleMailer)(nil)

// NewConsoleMailer builds a log-only mailer.
func NewConsoleMailer(sender Sender, logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{sender: sender, logger: logger}
}

// Send logs the message envelope and body.
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !msg.HasRecipients() {
		return ErrNoRecipients
	}

	attachments := make([]string, 0, len(msg.Attachments))
	for _, at := range msg.Attachments {
		attachments = append(attachments, at.Filename)
	}
	m.logger.Sugar().Infow("email",
		"from", m.sender.Address,
		"to", msg.To,
		"subject", m.sender.subject(msg.Subject),
		"body", msg.Body,
		"attachments", attachments,
	)

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages delivered so far.
func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
