package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sushihentaime/blogsphere/internal/common"
	"golang.org/x/exp/rand"
)

const (
	maxRetries = 5
	baseDelay  = 500 * time.Millisecond
)

// NewMailService links activation mails to clientURL. It fails when an
// embedded template cannot be parsed.
func NewMailService(mb common.MessageConsumer, cfg Config, clientURL string, logger *slog.Logger) (*MailService, error) {
	tp, err := NewTemplate()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:        mb,
		m:         NewMailer(cfg, tp),
		logger:    logger,
		clientURL: clientURL,
		sleep:     time.Sleep,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// SendActivationEmail consumes user.created events until Close is called and
// mails every new user their verification link.
func (s *MailService) SendActivationEmail() {
	msgs, err := s.mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				s.handleUserCreated(msg)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendActivationEmail due to context cancellation")
				return
			}
		}
	}()
}

// handleUserCreated sends the verification mail, retrying with exponential
// backoff and jitter. The message is acked either way so a bad address cannot
// block the queue.
func (s *MailService) handleUserCreated(msg amqp.Delivery) {
	defer func() {
		if msg.Acknowledger != nil {
			_ = msg.Ack(false)
		}
	}()

	var data userCreated
	err := json.Unmarshal(msg.Body, &data)
	if err != nil {
		s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
		return
	}

	payload := activationData{
		Name:            data.Name,
		ActivationToken: data.Token,
		ActivationURL:   s.activationURL(data.Token),
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err = s.m.send(data.Email, payload, "activation_email.html")
		if err == nil {
			s.logger.Info("activation email sent", slog.String("email", data.Email))
			return
		}

		delay := backoff(attempt)
		s.logger.Info("delaying activation email", slog.String("email", data.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay))
		s.sleep(delay)
	}

	s.logger.Error("could not send activation email", slog.String("email", data.Email), slog.String("error", err.Error()))
}

// backoff returns a random delay below baseDelay * 2^attempt.
func backoff(attempt int) time.Duration {
	return time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
}

func (s *MailService) activationURL(token string) string {
	u, err := url.Parse(s.clientURL)
	if err != nil || s.clientURL == "" {
		return ""
	}
	u.Path = "/activate"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}

func (s *MailService) Close() {
	s.cancel()
}
