// Package mailer delivers transactional mail over SMTP. The relay is an
// external collaborator; a delivery failure is returned to the caller as-is.
package mailer

import (
	"fmt"
	"net/smtp"

	"contentgen/internal/config"
)

type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// SendPasswordReset emails a reset link. The token in the link is
// single-use and expires an hour after issuance.
func (m *Mailer) SendPasswordReset(to, name, link string) error {
	if m.host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	subject := "Reset your password"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"We received a request to reset your password. Open the link below to choose a new one:\r\n\r\n"+
			"  %s\r\n\r\n"+
			"The link expires in 1 hour. If you did not request this, you can ignore this email.\r\n",
		name, link)
	msg := buildMessage(m.from, to, subject, body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
}

func buildMessage(from, to, subject, body string) []byte {
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		from, to, subject)
	return []byte(headers + body + "\r\n")
}
