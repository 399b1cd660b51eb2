package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// Ошибки разбора токена
var (
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenNotValidYet      = errors.New("token not valid yet")
	ErrTokenSignatureInvalid = errors.New("signature is invalid")
	ErrTokenRevoked          = errors.New("token has been revoked")
	ErrTokenInvalid          = errors.New("invalid token")
)

const revokedKeyPrefix = "auth:revoked:"

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	AccountID uint   `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет HMAC-токены доступа.
// Отозванные токены (logout) хранятся в кеше по jti до истечения срока жизни.
type JWTService struct {
	secret        []byte
	expirationHrs int
	issuer        string
	revocations   repository.CacheRepository
	now           func() time.Time
}

// NewJWTService создает новый сервис JWT и возвращает ошибку при проблемах.
// revocations может быть nil: тогда logout не инвалидирует токены.
func NewJWTService(secret string, expirationHrs int, issuer string, revocations repository.CacheRepository) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required for JWTService")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if issuer == "" {
		issuer = "storefront-api"
	}
	return &JWTService{
		secret:        []byte(secret),
		expirationHrs: expirationHrs,
		issuer:        issuer,
		revocations:   revocations,
		now:           time.Now,
	}, nil
}

// GenerateToken создает токен доступа для аккаунта
func (s *JWTService) GenerateToken(accountID uint, email, role string) (string, error) {
	now := s.now()
	claims := &JWTCustomClaims{
		AccountID: accountID,
		Email:     email,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour * time.Duration(s.expirationHrs))),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(accountID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для аккаунта ID=%d: %v", accountID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken проверяет подпись, срок действия и отзыв токена
func (s *JWTService) ParseToken(ctx context.Context, tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			case ve.Errors&jwt.ValidationErrorNotValidYet != 0:
				return nil, ErrTokenNotValidYet
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				log.Printf("[JWT] Неверная подпись токена для аккаунта ID=%d", claims.AccountID)
				return nil, ErrTokenSignatureInvalid
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenInvalid, claims.Issuer)
	}

	if s.revocations != nil && claims.ID != "" {
		_, err := s.revocations.Get(ctx, revokedKeyPrefix+claims.ID)
		switch {
		case err == nil:
			return nil, ErrTokenRevoked
		case !errors.Is(err, apperrors.ErrNotFound):
			// Кеш недоступен: не блокируем пользователей, но фиксируем в логах
			log.Printf("[JWT] Не удалось проверить отзыв токена %s: %v", claims.ID, err)
		}
	}

	return claims, nil
}

// RevokeToken помечает токен отозванным до истечения его срока действия
func (s *JWTService) RevokeToken(ctx context.Context, claims *JWTCustomClaims) error {
	if s.revocations == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Hour * time.Duration(s.expirationHrs)
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Set(ctx, revokedKeyPrefix+claims.ID, claims.AccountID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	log.Printf("[JWT] Токен %s аккаунта ID=%d отозван", claims.ID, claims.AccountID)
	return nil
}
