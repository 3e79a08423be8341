package mail

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/pkg/config"
)

// New selects the transport named by cfg.Provider.
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	sender := Sender{Name: cfg.FromName, Address: cfg.FromAddress, SubjectPrefix: cfg.SubjectPrefix}
	switch cfg.Provider {
	case "", config.MailConsole:
		return NewConsoleMailer(sender, logger), nil
	case config.MailSendGrid:
		return NewSendGridMailer(cfg.SendGridAPIKey, sender)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
