package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	domainEmail "habit_reminder_service/internal/domain/email"

	"github.com/google/uuid"
	"gopkg.in/mail.v2"
)

const messageIDDomain = "remindwell.local"

var bodyTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
  </head>
  <body style="font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f5; margin: 0; padding: 0;">
    <div style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 8px; overflow: hidden;">
      <div style="background: #2563EB; color: #ffffff; padding: 30px 20px; text-align: center;">
        <h1 style="margin: 0; font-size: 24px;">RemindWell</h1>
      </div>
      <div style="padding: 40px 30px;">
        <h2 style="color: #1f2937; margin-top: 0;">{{.Subject}}</h2>
        <p style="font-size: 18px; line-height: 1.8; color: #1f2937; text-align: center;">{{.Message}}</p>
      </div>
      <div style="padding: 20px; text-align: center; font-size: 12px; color: #6b7280; background-color: #f9fafb;">
        <p>You're receiving this because you set up a reminder in RemindWell.</p>
        <p><a href="{{.SettingsURL}}" style="color: #3B82F6;">Manage your reminders</a></p>
      </div>
    </div>
  </body>
</html>
`))

type bodyData struct {
	Subject     string
	Message     string
	SettingsURL string
}

// dialer is the part of *mail.Dialer the sender uses.
type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPSender implements domain email.Sender on top of gopkg.in/mail.v2.
type SMTPSender struct {
	dialer dialer
	from   string
	appURL string
}

func NewSMTPSender(host string, port int, username, password, from, appURL string) *SMTPSender {
	return &SMTPSender{
		dialer: mail.NewDialer(host, port, username, password),
		from:   from,
		appURL: appURL,
	}
}

// Send renders the HTML body, delivers the message and returns the generated Message-ID.
func (s *SMTPSender) Send(ctx context.Context, msg domainEmail.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	html := msg.HTML
	if html == "" {
		rendered, err := RenderBody(msg.Subject, msg.Text, s.appURL)
		if err != nil {
			return "", err
		}
		html = rendered
	}

	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), messageIDDomain)

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return id, nil
}

// RenderBody produces the HTML reminder email. Subject and message are escaped.
func RenderBody(subject, message, appURL string) (string, error) {
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyData{
		Subject:     subject,
		Message:     message,
		SettingsURL: appURL + "/dashboard/settings",
	})
	if err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return buf.String(), nil
}
