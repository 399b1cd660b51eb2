package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/yourusername/storefront-api/internal/config"
)

// EmailMessage — готовое к отправке письмо
type EmailMessage struct {
	To             []string
	Subject        string
	Text           string
	HTML           string
	Template       string
	IdempotencyKey string
}

// Mailer отправляет транзакционные письма
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// NewMailer выбирает реализацию по notifier.driver
func NewMailer(cfg config.NotifierConfig) (Mailer, error) {
	switch cfg.Driver {
	case "", config.NotifierDriverLog:
		return NewLogMailer(), nil
	case config.NotifierDriverResend:
		return NewResendMailer(cfg.ResendAPIKey, cfg.From)
	case config.NotifierDriverSMTP:
		return NewSMTPMailerFromEnv(cfg.From)
	default:
		return nil, fmt.Errorf("unsupported notifier driver: %s", cfg.Driver)
	}
}

// LogMailer ничего не отправляет, а сохраняет письма в памяти и пишет в лог.
// Используется в разработке и тестах.
type LogMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(ctx context.Context, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	log.Printf("[Mailer] log send template=%s to=%s subject=%q", msg.Template, strings.Join(msg.To, ","), msg.Subject)
	return nil
}

// Messages возвращает копию отправленных писем
func (m *LogMailer) Messages() []EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// ResendMailer отправляет письма через Resend REST API
type ResendMailer struct {
	from   string
	client *resend.Client
}

func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendMailer{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (m *ResendMailer) Send(ctx context.Context, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}
	if msg.Template != "" {
		params.Tags = []resend.Tag{{Name: "template", Value: msg.Template}}
	}

	options := &resend.SendEmailOptions{}
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		options.IdempotencyKey = key
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := m.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
