package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/logger"
)

// ErrNotConfigured is returned by Send when no API key was supplied.
var ErrNotConfigured = errors.New("email delivery is not configured")

// Address is a display name and mailbox.
type Address struct {
	Name  string
	Email string
}

// Message is a single plain-text email.
type Message struct {
	From    Address
	To      Address
	ReplyTo *Address
	Subject string
	Text    string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid delivers mail through the SendGrid v3 API.
type SendGrid struct {
	apiKey      string
	defaultFrom Address
	logg        *logger.Logger
	send        func(ctx context.Context, email *mail.SGMailV3) (int, string, error)
}

// NewSendGrid returns a mailer. An empty API key yields a mailer whose Send
// returns ErrNotConfigured.
func NewSendGrid(cfg config.SendgridConfig, logg *logger.Logger) *SendGrid {
	m := &SendGrid{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		defaultFrom: Address{Name: cfg.FromName, Email: cfg.DefaultFrom},
		logg:        logg,
	}
	if m.apiKey != "" {
		client := sendgrid.NewSendClient(m.apiKey)
		m.send = func(ctx context.Context, email *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, email)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		}
	}
	return m
}

func (m *SendGrid) Configured() bool {
	return m != nil && m.send != nil
}

func (m *SendGrid) Send(ctx context.Context, msg Message) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	email, err := m.build(msg)
	if err != nil {
		return err
	}
	status, body, err := m.send(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", status, body)
	}
	if m.logg != nil {
		m.logg.Info(m.logg.WithFields(ctx, map[string]any{
			"status":  status,
			"subject": msg.Subject,
		}), "email sent")
	}
	return nil
}

func (m *SendGrid) build(msg Message) (*mail.SGMailV3, error) {
	from := msg.From
	if strings.TrimSpace(from.Email) == "" {
		from.Email = m.defaultFrom.Email
	}
	if strings.TrimSpace(from.Name) == "" {
		from.Name = m.defaultFrom.Name
	}
	if strings.TrimSpace(from.Email) == "" {
		return nil, errors.New("from address is empty")
	}
	if strings.TrimSpace(msg.To.Email) == "" {
		return nil, errors.New("to address is empty")
	}

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.To.Name, msg.To.Email))

	email := mail.NewV3Mail()
	email.SetFrom(mail.NewEmail(from.Name, from.Email))
	email.Subject = msg.Subject
	email.AddPersonalizations(p)
	email.AddContent(mail.NewContent("text/plain", msg.Text))
	if msg.ReplyTo != nil && msg.ReplyTo.Email != "" {
		email.SetReplyTo(mail.NewEmail(msg.ReplyTo.Name, msg.ReplyTo.Email))
	}
	return email, nil
}
