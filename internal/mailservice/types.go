package mailservice

import (
	"context"
	"html/template"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/blogsphere/internal/common"
)

type MailService struct {
	mb        common.MessageConsumer
	m         Mailer
	logger    MailLogger
	clientURL string
	sleep     func(time.Duration)
	ctx       context.Context
	cancel    context.CancelFunc
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

// Template holds the parsed mail templates.
type Template struct {
	set map[string]*template.Template
}

// Config locates the SMTP server and the address mails are sent from.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	Render(name string, data any) (*Rendered, error)
}

// userCreated is the body of a user.created event.
type userCreated struct {
	Email string
	Name  string
	Token string
}

type activationData struct {
	Name            string
	ActivationToken string
	ActivationURL   string
}
