package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// AdminTokenIssuer выпускает токен с ролью оператора
type AdminTokenIssuer interface {
	GenerateToken(accountID uint, email, role string) (string, error)
}

// AdminService проверяет учетные данные оператора магазина.
// Пароль хранится в конфигурации только как bcrypt-хеш.
type AdminService struct {
	email        string
	passwordHash []byte
	tokens       AdminTokenIssuer
	logger       *zerolog.Logger
}

// NewAdminService создает AdminService; без email или хеша вход оператора отключен
func NewAdminService(email, passwordHash string, tokens AdminTokenIssuer, logger *zerolog.Logger) (*AdminService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &AdminService{
		email:        entity.NormalizeEmail(email),
		passwordHash: []byte(passwordHash),
		tokens:       tokens,
		logger:       logger,
	}, nil
}

// Login возвращает токен оператора
func (s *AdminService) Login(ctx context.Context, email, password string) (string, error) {
	email = entity.NormalizeEmail(email)
	if s.email == "" || len(s.passwordHash) == 0 {
		return "", fmt.Errorf("%w: operator login is disabled", ErrInvalidCredentials)
	}
	if email != s.email || strings.TrimSpace(password) == "" {
		s.logger.Warn().Str("email", email).Msg("admin login rejected")
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Warn().Str("email", email).Msg("admin login rejected")
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(0, s.email, entity.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("failed to issue admin token: %w", err)
	}
	s.logger.Info().Str("email", email).Msg("admin logged in")
	return token, nil
}
