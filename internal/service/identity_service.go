package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
	"github.com/yourusername/storefront-api/pkg/auth"
)

// OTPNotifier доставляет одноразовые коды
type OTPNotifier interface {
	SendOTP(ctx context.Context, email, name, code, purpose string) error
}

// TokenService выпускает и отзывает токены доступа
type TokenService interface {
	GenerateToken(accountID uint, email, role string) (string, error)
	RevokeToken(ctx context.Context, claims *auth.JWTCustomClaims) error
}

// OTPRequestResult — ответ на запрос кода (сам код наружу не возвращается)
type OTPRequestResult struct {
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	ExpiresIn int    `json:"expires_in"`
}

// AuthResult — токен и аккаунт после успешной проверки кода
type AuthResult struct {
	Token   string          `json:"token"`
	Account *entity.Account `json:"account"`
}

// AddressInput — адрес доставки от клиента
type AddressInput struct {
	FullName   string `json:"full_name" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,numeric,min=10,max=15"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,numeric,min=4,max=10"`
	Country    string `json:"country" validate:"max=100"`
}

// AccountPage — страница аккаунтов для оператора
type AccountPage struct {
	Accounts []entity.Account `json:"accounts"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// IdentityService переводит аккаунт из неаутентифицированного состояния
// в аутентифицированное через одноразовый код из email
type IdentityService struct {
	accounts repository.AccountRepository
	ledger   *OTPLedger
	notifier OTPNotifier
	tokens   TokenService
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewIdentityService создает IdentityService
func NewIdentityService(
	accounts repository.AccountRepository,
	ledger *OTPLedger,
	notifier OTPNotifier,
	tokens TokenService,
	logger *zerolog.Logger,
) (*IdentityService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("otp ledger is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("otp notifier is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &IdentityService{
		accounts: accounts,
		ledger:   ledger,
		notifier: notifier,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RequestOTP находит или создает аккаунт, выдает код и отправляет его.
// Если письмо не ушло, код гасится и возвращается ErrOTPDeliveryFailed.
func (s *IdentityService) RequestOTP(ctx context.Context, email, name string) (*OTPRequestResult, error) {
	email = entity.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	account, err := s.findOrCreateAccount(ctx, email, name)
	if err != nil {
		return nil, err
	}

	purpose := entity.OTPPurposeVerification
	if account.IsVerified() {
		purpose = entity.OTPPurposeLogin
	}

	code, err := s.ledger.Issue(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendOTP(ctx, email, account.Name, code, purpose); err != nil {
		if invErr := s.ledger.Invalidate(ctx, email); invErr != nil {
			log.Printf("[Identity] Не удалось погасить неотправленный код для %s: %v", email, invErr)
		}
		s.logger.Warn().Err(err).Uint("account_id", account.ID).Msg("otp delivery failed")
		return nil, fmt.Errorf("%w: %v", ErrOTPDeliveryFailed, err)
	}

	return &OTPRequestResult{
		Email:     email,
		Purpose:   purpose,
		ExpiresIn: int(s.ledger.TTL() / time.Second),
	}, nil
}

func (s *IdentityService) findOrCreateAccount(ctx context.Context, email, name string) (*entity.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = entity.DefaultNameFromEmail(email)
	}
	account = &entity.Account{
		Email:             email,
		Name:              name,
		VerificationState: entity.VerificationUnverified,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// Параллельный запрос успел создать аккаунт
		if errors.Is(err, apperrors.ErrConflict) {
			return s.accounts.GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	log.Printf("[Identity] Создан аккаунт ID=%d для %s", account.ID, email)
	return account, nil
}

// VerifyOTP проверяет код и при успехе выпускает токен доступа
func (s *IdentityService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	email = entity.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty otp", apperrors.ErrValidation)
	}

	result, err := s.ledger.Check(ctx, email, code)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case entity.OTPValid:
	case entity.OTPMismatch:
		return nil, &OTPError{Kind: ErrOTPMismatch, AttemptsLeft: result.AttemptsLeft}
	case entity.OTPExpired:
		return nil, &OTPError{Kind: ErrOTPExpired}
	case entity.OTPExhausted:
		s.logger.Warn().Str("email", email).Msg("otp attempts exhausted")
		return nil, &OTPError{Kind: ErrOTPExhausted}
	default:
		return nil, &OTPError{Kind: ErrOTPNotFound}
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load account after otp check: %w", err)
	}

	now := s.now()
	if !account.IsVerified() {
		if err := s.accounts.MarkVerified(ctx, account.ID, now); err != nil {
			return nil, fmt.Errorf("failed to mark account verified: %w", err)
		}
		account.VerificationState = entity.VerificationVerified
		account.VerifiedAt = &now
	}
	if err := s.accounts.TouchLogin(ctx, account.ID, now); err != nil {
		log.Printf("[Identity] Не удалось обновить last_login_at для ID=%d: %v", account.ID, err)
	} else {
		account.LastLoginAt = &now
	}

	token, err := s.tokens.GenerateToken(account.ID, account.Email, entity.RoleCustomer)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info().Uint("account_id", account.ID).Msg("account authenticated via otp")
	return &AuthResult{Token: token, Account: account}, nil
}

// Logout отзывает текущий токен
func (s *IdentityService) Logout(ctx context.Context, claims *auth.JWTCustomClaims) error {
	return s.tokens.RevokeToken(ctx, claims)
}

// GetAccount возвращает аккаунт вместе с адресом
func (s *IdentityService) GetAccount(ctx context.Context, accountID uint) (*entity.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// ListAccounts возвращает аккаунты, новые первыми; search ищет по email и имени
func (s *IdentityService) ListAccounts(ctx context.Context, search string, page, limit int) (*AccountPage, error) {
	page, limit = normalizePage(page, limit)
	accounts, total, err := s.accounts.List(ctx, repository.AccountFilter{
		Search: strings.TrimSpace(search),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		accounts = []entity.Account{}
	}
	return &AccountPage{Accounts: accounts, Total: total, Page: page, Limit: limit}, nil
}

// GetAddress возвращает адрес доставки или ErrNotFound
func (s *IdentityService) GetAddress(ctx context.Context, accountID uint) (*entity.ShippingAddress, error) {
	return s.accounts.GetAddress(ctx, accountID)
}

// UpdateAddress заменяет адрес доставки аккаунта
func (s *IdentityService) UpdateAddress(ctx context.Context, accountID uint, input AddressInput) (*entity.ShippingAddress, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Line1 = strings.TrimSpace(input.Line1)
	input.Line2 = strings.TrimSpace(input.Line2)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	input.Country = strings.TrimSpace(input.Country)
	if input.Country == "" {
		input.Country = entity.DefaultCountry
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	address := &entity.ShippingAddress{
		AccountID:  accountID,
		FullName:   input.FullName,
		Phone:      input.Phone,
		Line1:      input.Line1,
		Line2:      input.Line2,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    input.Country,
	}
	if err := s.accounts.UpsertAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to save address: %w", err)
	}
	return address, nil
}
