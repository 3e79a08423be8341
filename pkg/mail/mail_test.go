package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/papers-hub-api/pkg/config"
)

func TestConsoleMailerRecordsMessages(t *testing.T) {
	m := NewConsoleMailer(Sender{Address: "no-reply@test"}, nil)

	err := m.Send(context.Background(), Message{To: []string{"a@x.com"}, Subject: "hi", Body: "body"})
	require.NoError(t, err)

	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hi", sent[0].Subject)
}

func TestConsoleMailerRejectsEmptyRecipients(t *testing.T) {
	m := NewConsoleMailer(Sender{}, nil)
	err := m.Send(context.Background(), Message{To: []string{" "}})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestMessageAttachSniffsContentType(t *testing.T) {
	var msg Message
	msg.Attach("a.pdf", []byte("%PDF-1.4\n"), "")
	msg.Attach("b.bin", []byte{0x00}, "application/octet-stream")

	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Equal(t, "application/octet-stream", msg.Attachments[1].ContentType)
}

func TestSendGridMailerBuildsSingleMessage(t *testing.T) {
	original := sendgridAPI
	t.Cleanup(func() { sendgridAPI = original })

	var captured rest.Request
	sendgridAPI = func(req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	m, err := NewSendGridMailer("key", Sender{Name: "Papers Hub", Address: "hub@test", SubjectPrefix: "[Hub]"})
	require.NoError(t, err)

	msg := Message{To: []string{"a@x.com", "b@x.com"}, Subject: "New Notes", Body: "text"}
	msg.Attach("notes.pdf", []byte("content"), "application/pdf")
	require.NoError(t, m.Send(context.Background(), msg))

	assert.Equal(t, http.MethodPost, string(captured.Method))

	var payload struct {
		Personalizations []struct {
			To      []struct{ Email string } `json:"to"`
			Subject string                   `json:"subject"`
		} `json:"personalizations"`
		Attachments []struct {
			Content  string `json:"content"`
			Filename string `json:"filename"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &payload))
	require.Len(t, payload.Personalizations, 1)
	assert.Len(t, payload.Personalizations[0].To, 2)
	assert.Equal(t, "[Hub] New Notes", payload.Personalizations[0].Subject)
	require.Len(t, payload.Attachments, 1)
	assert.Equal(t, "notes.pdf", payload.Attachments[0].Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("content")), payload.Attachments[0].Content)
}

func TestSendGridMailerSurfacesFailures(t *testing.T) {
	original := sendgridAPI
	t.Cleanup(func() { sendgridAPI = original })

	m, err := NewSendGridMailer("key", Sender{Address: "hub@test"})
	require.NoError(t, err)

	sendgridAPI = func(rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}
	assert.Error(t, m.Send(context.Background(), Message{To: []string{"a@x.com"}}))

	sendgridAPI = func(rest.Request) (*rest.Response, error) {
		return nil, errors.New("dial tcp")
	}
	assert.Error(t, m.Send(context.Background(), Message{To: []string{"a@x.com"}}))
}

func TestNewSelectsProvider(t *testing.T) {
	m, err := New(config.MailConfig{Provider: config.MailConsole}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleMailer{}, m)

	_, err = New(config.MailConfig{Provider: config.MailSendGrid}, nil)
	assert.Error(t, err)

	_, err = New(config.MailConfig{Provider: "smtp"}, nil)
	assert.Error(t, err)
}
