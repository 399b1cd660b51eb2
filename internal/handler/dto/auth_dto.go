package dto

import (
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// RequestOTPRequest — запрос одноразового кода
type RequestOTPRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Name  string `json:"name" binding:"omitempty,max=100"`
}

// VerifyOTPRequest — проверка одноразового кода
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	OTP   string `json:"otp" binding:"required,max=16"`
}

// AddressResponse — адрес доставки
type AddressResponse struct {
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AccountResponse — аккаунт покупателя
type AccountResponse struct {
	ID                uint             `json:"id"`
	Email             string           `json:"email"`
	Name              string           `json:"name"`
	VerificationState string           `json:"verification_state"`
	LastLoginAt       *time.Time       `json:"last_login_at,omitempty"`
	Address           *AddressResponse `json:"address"`
	HasAddress        bool             `json:"has_address"`
}

// AuthResponse — токен после успешного входа
type AuthResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	Account   AccountResponse `json:"account"`
}

// NewAddressResponse конвертирует адрес; nil для отсутствующего
func NewAddressResponse(a *entity.ShippingAddress) *AddressResponse {
	if a == nil {
		return nil
	}
	return &AddressResponse{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		UpdatedAt:  a.UpdatedAt,
	}
}

// NewAccountResponse конвертирует аккаунт
func NewAccountResponse(a *entity.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID,
		Email:             a.Email,
		Name:              a.Name,
		VerificationState: a.VerificationState,
		LastLoginAt:       a.LastLoginAt,
		Address:           NewAddressResponse(a.Address),
		HasAddress:        a.Address.IsComplete(),
	}
}
