package mailservice

import (
	"fmt"
	"time"

	"github.com/go-mail/mail/v2"
)

const dialTimeout = 5 * time.Second

// NewMailer returns a Mail that delivers through the SMTP server in cfg.
func NewMailer(cfg Config, tp TemplateParser) *Mail {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = dialTimeout

	return &Mail{
		dialer: dialer,
		sender: cfg.Sender,
		parser: tp,
	}
}

func (m *Mail) compose(recipient string, r *Rendered) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", r.Subject)
	msg.SetDateHeader("Date", time.Now())
	msg.SetBody("text/plain", r.Plain)
	msg.AddAlternative("text/html", r.HTML)
	return msg
}

func (m *Mail) send(recipient string, data any, templateFile string) error {
	r, err := m.parser.Render(templateFile, data)
	if err != nil {
		return err
	}

	// one SMTP session at a time
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dialer.DialAndSend(m.compose(recipient, r)); err != nil {
		return fmt.Errorf("could not deliver %s to %s: %w", templateFile, recipient, err)
	}

	return nil
}
