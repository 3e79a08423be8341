package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// ErrNoRecipients is returned when a message has no addressees.
var ErrNoRecipients = errors.New("mail: message has no recipients")

// sendgridAPI is replaced in tests.
var sendgridAPI = func(req rest.Request) (*rest.Response, error) {
	return sendgrid.API(req)
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	key    string
	sender Sender
	from   *sgmail.Email
}

var _ Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer builds a SendGrid transport.
func NewSendGridMailer(apiKey string, sender Sender) (*SendGridMailer, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	return &SendGridMailer{
		key:    apiKey,
		sender: sender,
		from:   sgmail.NewEmail(sender.Name, sender.Address),
	}, nil
}

// Send posts one message; every recipient shares a single personalization.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !msg.HasRecipients() {
		return ErrNoRecipients
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgridAPI(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.sender.subject(msg.Subject)
	for _, to := range msg.To {
		if to == "" {
			continue
		}
		p.AddTos(sgmail.NewEmail("", to))
	}

	out := sgmail.NewV3Mail()
	out.SetFrom(m.from)
	out.AddPersonalizations(p)
	out.AddContent(sgmail.NewContent("text/plain", msg.Body))

	for _, at := range msg.Attachments {
		out.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(at.Content),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return out
}
