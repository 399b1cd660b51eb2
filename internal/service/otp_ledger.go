package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// OTPLedgerConfig задает параметры одноразовых кодов
type OTPLedgerConfig struct {
	TTL         time.Duration
	Retention   time.Duration
	MaxAttempts int
	CodeLength  int
	Pepper      string
}

// OTPLedger выдает и проверяет одноразовые коды, привязанные к email.
// Для email существует не больше одного живого кода; новый код заменяет старый.
type OTPLedger struct {
	store repository.OTPStore
	cfg   OTPLedgerConfig
	now   func() time.Time
}

// NewOTPLedger создает OTPLedger
func NewOTPLedger(store repository.OTPStore, cfg OTPLedgerConfig) (*OTPLedger, error) {
	if store == nil {
		return nil, fmt.Errorf("otp store is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 2 * cfg.TTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 5
	}
	return &OTPLedger{store: store, cfg: cfg, now: time.Now}, nil
}

// TTL возвращает срок жизни выдаваемых кодов
func (l *OTPLedger) TTL() time.Duration { return l.cfg.TTL }

// Issue генерирует код, сохраняет его хеш и возвращает открытое значение для отправки
func (l *OTPLedger) Issue(ctx context.Context, email string) (string, error) {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}

	code, err := generateNumericCode(l.cfg.CodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	challenge := &entity.OTPChallenge{
		Email:     email,
		CodeHash:  l.hashCode(email, code),
		ExpiresAt: l.now().Add(l.cfg.TTL),
		Attempts:  0,
	}
	if err := l.store.Put(ctx, challenge, l.cfg.TTL+l.cfg.Retention); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// Check сравнивает кандидата с живым кодом. Все исходы, кроме Mismatch, гасят код.
func (l *OTPLedger) Check(ctx context.Context, email, candidate string) (entity.OTPCheckResult, error) {
	email = entity.NormalizeEmail(email)
	candidate = strings.TrimSpace(candidate)

	outcome, attempts, err := l.store.Check(ctx, email, l.hashCode(email, candidate), l.now(), l.cfg.MaxAttempts)
	if err != nil {
		return entity.OTPCheckResult{}, fmt.Errorf("failed to check otp: %w", err)
	}

	result := entity.OTPCheckResult{Outcome: outcome}
	if outcome == entity.OTPMismatch {
		result.AttemptsLeft = l.cfg.MaxAttempts - attempts
		if result.AttemptsLeft < 0 {
			result.AttemptsLeft = 0
		}
	}
	return result, nil
}

// Invalidate удаляет живой код (например, если письмо не ушло)
func (l *OTPLedger) Invalidate(ctx context.Context, email string) error {
	err := l.store.Delete(ctx, entity.NormalizeEmail(email))
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return nil
}

func (l *OTPLedger) hashCode(email, code string) string {
	sum := sha256.Sum256([]byte(l.cfg.Pepper + ":" + email + ":" + code))
	return hex.EncodeToString(sum[:])
}

func generateNumericCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}
