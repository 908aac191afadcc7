// Package notify emails finished spreadsheets to a fixed recipient list.
package notify

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/use-agent/tablescout/config"
)

// Message is one outgoing mail.
type Message struct {
	Subject     string
	Body        string
	Attachments []string
}

// Mailer sends messages through an SMTP relay.
type Mailer struct {
	cfg  config.MailConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewMailer returns nil when mail is not configured.
func NewMailer(cfg config.MailConfig) *Mailer {
	if !cfg.Enabled() {
		return nil
	}
	return &Mailer{cfg: cfg, send: (*email.Email).Send}
}

// Build assembles the email without sending it.
func (m *Mailer) Build(msg Message) (*email.Email, error) {
	e := email.NewEmail()
	e.From = fmt.Sprintf("tablescout <%s>", m.cfg.Address)
	e.To = m.cfg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)
	for _, path := range msg.Attachments {
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("attach %s: %w", path, err)
		}
	}
	return e, nil
}

// Send delivers msg. Relays that do not offer AUTH get a second,
// unauthenticated attempt.
func (m *Mailer) Send(msg Message) error {
	e, err := m.Build(msg)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Address, m.cfg.Password, m.cfg.Server)
	err = m.send(e, addr, auth)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(e, addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	slog.Info("mail sent", "to", strings.Join(m.cfg.To, ","), "subject", msg.Subject)
	return nil
}
