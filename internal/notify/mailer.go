package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/Tomlord1122/task-tracker/internal/config"
)

// Mail is a plain text message to a single recipient.
type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// NewMailer returns an SMTP mailer when a relay is configured and a
// log-only mailer otherwise.
func NewMailer(cfg config.MailConfig, log logrus.FieldLogger) Mailer {
	if !cfg.Enabled() {
		return &LogMailer{log: log.WithField("component", "mailer")}
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.FromEmail,
	}
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", mail.To)
	msg.SetHeader("Subject", mail.Subject)
	msg.SetBody("text/plain", mail.Body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", mail.To, err)
	}
	return nil
}

// LogMailer writes mails to the log instead of sending them.
type LogMailer struct {
	log logrus.FieldLogger
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.log.WithFields(logrus.Fields{
		"to":      mail.To,
		"subject": mail.Subject,
	}).Info(mail.Body)
	return nil
}
