package service

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// Имена шаблонов писем
const (
	TemplateOTP               = "otp"
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOperatorAlert     = "operator_alert"
)

type emailTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var templateFuncs = map[string]interface{}{
	"money": formatMoney,
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
}

func mustTemplate(name, subject, text, html string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New(name + "_subject").Funcs(templateFuncs).Parse(subject)),
		text:    texttemplate.Must(texttemplate.New(name + "_text").Funcs(templateFuncs).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name + "_html").Funcs(templateFuncs).Parse(html)),
	}
}

var emailTemplates = map[string]emailTemplate{
	TemplateOTP: mustTemplate(TemplateOTP,
		`{{if eq .Purpose "login"}}Your {{.Store}} login code{{else}}Verify your {{.Store}} account{{end}}`,
		`Hi {{.Name}},

Your one-time code is {{.Code}}. It expires in {{.TTLMinutes}} minutes.
If you did not request it, ignore this email.
`,
		`<p>Hi {{.Name}},</p>
<p>Your one-time code is <strong>{{.Code}}</strong>. It expires in {{.TTLMinutes}} minutes.</p>
<p>If you did not request it, ignore this email.</p>`,
	),
	TemplateOrderConfirmation: mustTemplate(TemplateOrderConfirmation,
		`{{.Store}} order #{{.Order.ID}} confirmed`,
		`Hi {{.Order.BuyerName}},

Thanks for your order #{{.Order.ID}}.
{{range .Order.Items}}- {{.Title}} x{{.Quantity}}: {{money .LineTotal $.Order.Payment.Currency}}
{{end}}
Subtotal: {{money .Order.Subtotal .Order.Payment.Currency}}
Tax: {{money .Order.Tax .Order.Payment.Currency}}
Shipping: {{money .Order.Shipping .Order.Payment.Currency}}
Total: {{money .Order.Total .Order.Payment.Currency}}

Estimated delivery: {{date .Order.EstimatedDeliveryAt}}
Shipping to: {{.Order.ShippingAddress.FullName}}, {{.Order.ShippingAddress.Line1}}, {{.Order.ShippingAddress.City}} {{.Order.ShippingAddress.PostalCode}}
`,
		`<p>Hi {{.Order.BuyerName}},</p>
<p>Thanks for your order <strong>#{{.Order.ID}}</strong>.</p>
<table>
{{range .Order.Items}}<tr><td>{{.Title}}</td><td>x{{.Quantity}}</td><td>{{money .LineTotal $.Order.Payment.Currency}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Order.Subtotal .Order.Payment.Currency}}<br>
Tax: {{money .Order.Tax .Order.Payment.Currency}}<br>
Shipping: {{money .Order.Shipping .Order.Payment.Currency}}<br>
<strong>Total: {{money .Order.Total .Order.Payment.Currency}}</strong></p>
<p>Estimated delivery: {{date .Order.EstimatedDeliveryAt}}</p>`,
	),
	TemplateOperatorAlert: mustTemplate(TemplateOperatorAlert,
		`New order #{{.Order.ID}}: {{money .Order.Total .Order.Payment.Currency}}`,
		`Order #{{.Order.ID}} from {{.Order.BuyerEmail}}
Payment: {{.Order.Payment.GatewayPaymentID}} ({{.Order.Payment.GatewayOrderID}})
Items: {{len .Order.Items}}, total {{money .Order.Total .Order.Payment.Currency}}
Ship to: {{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.State}}
`,
		`<p>Order <strong>#{{.Order.ID}}</strong> from {{.Order.BuyerEmail}}</p>
<p>Payment: {{.Order.Payment.GatewayPaymentID}} ({{.Order.Payment.GatewayOrderID}})</p>
<p>Items: {{len .Order.Items}}, total {{money .Order.Total .Order.Payment.Currency}}</p>
<p>Ship to: {{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.State}}</p>`,
	),
}

// formatMoney форматирует сумму в минимальных единицах (пайсы -> рупии)
func formatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	symbol := currency + " "
	if currency == "" || strings.EqualFold(currency, "INR") {
		symbol = "₹"
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, minor/100, minor%100)
}

// NotifierConfig — параметры писем
type NotifierConfig struct {
	StoreName     string
	OperatorEmail string
	OTPTTL        time.Duration
}

// Notifier рендерит шаблоны писем и передает их Mailer.
// Каждый вызов независим и возвращает собственную ошибку.
type Notifier struct {
	mailer Mailer
	cfg    NotifierConfig
	logger *zerolog.Logger
}

// NewNotifier создает Notifier
func NewNotifier(mailer Mailer, cfg NotifierConfig, logger *zerolog.Logger) (*Notifier, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "Storefront"
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &Notifier{mailer: mailer, cfg: cfg, logger: logger}, nil
}

// SendOTP отправляет одноразовый код
func (n *Notifier) SendOTP(ctx context.Context, email, name, code, purpose string) error {
	data := map[string]interface{}{
		"Store":      n.cfg.StoreName,
		"Name":       name,
		"Code":       code,
		"Purpose":    purpose,
		"TTLMinutes": int(n.cfg.OTPTTL / time.Minute),
	}
	return n.send(ctx, email, TemplateOTP, data, "")
}

// SendOrderConfirmation отправляет покупателю подтверждение заказа
func (n *Notifier) SendOrderConfirmation(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	data := map[string]interface{}{"Store": n.cfg.StoreName, "Order": order}
	return n.send(ctx, order.BuyerEmail, TemplateOrderConfirmation, data, fmt.Sprintf("order-confirmation:%d", order.ID))
}

// SendOperatorAlert уведомляет оператора магазина о новом заказе
func (n *Notifier) SendOperatorAlert(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if n.cfg.OperatorEmail == "" {
		n.logger.Debug().Uint("order_id", order.ID).Msg("operator email not configured, alert skipped")
		return nil
	}
	data := map[string]interface{}{"Store": n.cfg.StoreName, "Order": order}
	return n.send(ctx, n.cfg.OperatorEmail, TemplateOperatorAlert, data, fmt.Sprintf("operator-alert:%d", order.ID))
}

func (n *Notifier) send(ctx context.Context, recipient, templateName string, data interface{}, idempotencyKey string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	msg, err := renderEmail(templateName, data)
	if err != nil {
		return err
	}
	msg.To = []string{recipient}
	msg.IdempotencyKey = idempotencyKey
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", templateName, err)
	}
	return nil
}

func renderEmail(templateName string, data interface{}) (EmailMessage, error) {
	tpl, ok := emailTemplates[templateName]
	if !ok {
		return EmailMessage{}, fmt.Errorf("unknown email template: %s", templateName)
	}
	var subject, text, html bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return EmailMessage{}, fmt.Errorf("render %s subject: %w", templateName, err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return EmailMessage{}, fmt.Errorf("render %s text: %w", templateName, err)
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return EmailMessage{}, fmt.Errorf("render %s html: %w", templateName, err)
	}
	return EmailMessage{
		Template: templateName,
		Subject:  strings.TrimSpace(subject.String()),
		Text:     text.String(),
		HTML:     html.String(),
	}, nil
}
