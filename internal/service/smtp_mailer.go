package service

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"
)

// SMTPConfig читается из окружения, чтобы пароль не попадал в config.yaml
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

func (c *SMTPConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}
	return nil
}

// SMTPMailer отправляет письма через SMTP
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPMailerFromEnv читает SMTP_* переменные; fallbackFrom используется, если SMTP_FROM пуст
func NewSMTPMailerFromEnv(fallbackFrom string) (*SMTPMailer, error) {
	cfg, err := env.ParseAs[SMTPConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse smtp environment: %w", err)
	}
	if cfg.From == "" {
		cfg.From = fallbackFrom
	}
	return NewSMTPMailer(cfg)
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	if msg.IdempotencyKey != "" {
		gm.SetHeader("X-Entity-Ref-ID", msg.IdempotencyKey)
	}
	if msg.HTML != "" {
		gm.SetBody("text/html", msg.HTML)
		if msg.Text != "" {
			gm.AddAlternative("text/plain", msg.Text)
		}
	} else {
		gm.SetBody("text/plain", msg.Text)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
