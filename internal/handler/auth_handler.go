package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/handler/dto"
	"github.com/yourusername/storefront-api/internal/handler/helper"
	"github.com/yourusername/storefront-api/internal/service"
	"github.com/yourusername/storefront-api/pkg/auth"
)

// IdentityUseCase — операции входа по одноразовому коду и профиля покупателя
type IdentityUseCase interface {
	RequestOTP(ctx context.Context, email, name string) (*service.OTPRequestResult, error)
	VerifyOTP(ctx context.Context, email, code string) (*service.AuthResult, error)
	Logout(ctx context.Context, claims *auth.JWTCustomClaims) error
	GetAccount(ctx context.Context, accountID uint) (*entity.Account, error)
	GetAddress(ctx context.Context, accountID uint) (*entity.ShippingAddress, error)
	UpdateAddress(ctx context.Context, accountID uint, input service.AddressInput) (*entity.ShippingAddress, error)
}

// AuthHandler обрабатывает запросы аутентификации и профиля
type AuthHandler struct {
	identity IdentityUseCase
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(identity IdentityUseCase) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// RequestOTP отправляет одноразовый код на email, создавая аккаунт при первом входе
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req dto.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.identity.RequestOTP(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Verification code sent",
		"email":      result.Email,
		"purpose":    result.Purpose,
		"expires_in": result.ExpiresIn,
	})
}

// VerifyOTP проверяет код и выдает токен доступа
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.identity.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.AuthResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		Account:   dto.NewAccountResponse(result.Account),
	})
}

// GetMe возвращает информацию о текущем аккаунте
func (h *AuthHandler) GetMe(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	account, err := h.identity.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountResponse(account))
}

// GetAddress возвращает адрес доставки
func (h *AuthHandler) GetAddress(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	address, err := h.identity.GetAddress(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAddressResponse(address))
}

// UpdateAddress сохраняет адрес доставки
func (h *AuthHandler) UpdateAddress(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req service.AddressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	address, err := h.identity.UpdateAddress(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAddressResponse(address))
}

// Logout отзывает текущий токен. Ошибка отзыва не мешает клиенту выйти.
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := helper.Claims(c); ok {
		if err := h.identity.Logout(c.Request.Context(), claims); err != nil {
			log.Printf("[AuthHandler] Не удалось отозвать токен аккаунта ID=%d: %v", claims.AccountID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
