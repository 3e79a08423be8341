package mail

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Attachment is a file carried alongside a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a plain-text email addressed to one or more recipients.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages through a transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Sender identifies the From header of outgoing mail.
type Sender struct {
	Name          string
	Address       string
	SubjectPrefix string
}

// HasRecipients reports whether the message can be delivered at all.
func (m Message) HasRecipients() bool {
	for _, to := range m.To {
		if strings.TrimSpace(to) != "" {
			return true
		}
	}
	return false
}

// Attach appends content, sniffing the MIME type when none is given.
func (m *Message) Attach(filename string, content []byte, contentType string) {
	if contentType == "" {
		contentType = mimetype.Detect(content).String()
	}
	m.Attachments = append(m.Attachments, Attachment{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	})
}

func (s Sender) subject(subject string) string {
	if s.SubjectPrefix == "" {
		return subject
	}
	return s.SubjectPrefix + " " + subject
}
