package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/storefront-api/internal/config"
	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// PaymentGateway создает заказ на стороне платежного шлюза
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*entity.PaymentIntent, error)
	// KeyID — публичный ключ, который нужен клиентскому виджету оплаты
	KeyID() string
}

// NewPaymentGateway выбирает шлюз по payment.driver
func NewPaymentGateway(cfg config.PaymentConfig) (PaymentGateway, error) {
	switch cfg.Driver {
	case "", config.PaymentDriverRazorpay:
		return NewRazorpayGateway(cfg), nil
	case config.PaymentDriverSandbox:
		return NewSandboxGateway(cfg.KeyID), nil
	default:
		return nil, fmt.Errorf("unsupported payment driver: %s", cfg.Driver)
	}
}

// SignatureVerifier проверяет подпись подтверждения оплаты:
// hex(HMAC-SHA256(secret, intentID + "|" + paymentID))
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Configured сообщает, задан ли секрет
func (v *SignatureVerifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

// Sign вычисляет ожидаемую подпись
func (v *SignatureVerifier) Sign(intentID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подписи побайтно за постоянное время.
// Подпись принимается только в точности как ее выдал шлюз: hex в нижнем регистре без пробелов.
func (v *SignatureVerifier) Verify(intentID, paymentID, signature string) bool {
	if !v.Configured() || signature == "" {
		return false
	}
	expected := v.Sign(intentID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// RazorpayGateway создает заказы через Orders API Razorpay
type RazorpayGateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewRazorpayGateway(cfg config.PaymentConfig) *RazorpayGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	return &RazorpayGateway{
		keyID:      strings.TrimSpace(cfg.KeyID),
		keySecret:  strings.TrimSpace(cfg.KeySecret),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *RazorpayGateway) KeyID() string { return g.keyID }

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*entity.PaymentIntent, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, fmt.Errorf("%w: payment gateway credentials are not configured", ErrGatewayUnavailable)
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	body, err := json.Marshal(razorpayOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway order request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyGatewayTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr razorpayErrorResponse
		_ = json.Unmarshal(raw, &apiErr)
		switch {
		case resp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w: gateway rejected order: %s", ErrInvalidAmount, apiErr.Error.Description)
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: gateway rejected credentials", ErrGatewayUnavailable)
		default:
			return nil, fmt.Errorf("%w: gateway status=%d code=%s", ErrGatewayUnavailable, resp.StatusCode, apiErr.Error.Code)
		}
	}

	var payload razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse gateway order response: %v", ErrGatewayUnavailable, err)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("%w: gateway returned order without id", ErrGatewayUnavailable)
	}

	return &entity.PaymentIntent{
		ID:       payload.ID,
		Amount:   payload.Amount,
		Currency: payload.Currency,
		Receipt:  payload.Receipt,
	}, nil
}

func classifyGatewayTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: gateway request timed out", ErrGatewayUnavailable)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: gateway request timed out", ErrGatewayUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}

// SandboxGateway выдает идентификаторы локально, без сетевых вызовов.
// Подпись для подтверждения считается SignatureVerifier с тем же секретом.
type SandboxGateway struct {
	keyID string
}

func NewSandboxGateway(keyID string) *SandboxGateway {
	if keyID == "" {
		keyID = "sandbox"
	}
	return &SandboxGateway{keyID: keyID}
}

func (g *SandboxGateway) KeyID() string { return g.keyID }

func (g *SandboxGateway) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*entity.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &entity.PaymentIntent{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}
