package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/makingtools/rapidbites-sub001/internal/config"

	"github.com/jordan-wright/email"
)

var ErrMailerNotConfigured = errors.New("mailer: SMTP_HOST not configured")

// Mailer wraps SMTP configuration for plain-text notifications.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Send delivers a plain-text message. Auth is skipped when no SMTP user is set
// (local relays, mailhog).
func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		return ErrMailerNotConfigured
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
