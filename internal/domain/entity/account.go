package entity

import (
	"strings"
	"time"
)

// Состояния верификации аккаунта
const (
	VerificationUnverified = "unverified"
	VerificationVerified   = "verified"
)

// Роли, которые попадают в JWT claims
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Account представляет покупателя, входящего по одноразовому коду из email
type Account struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	Email             string           `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name              string           `gorm:"size:100;not null;default:''" json:"name"`
	VerificationState string           `gorm:"size:20;not null;default:'unverified'" json:"verification_state"`
	VerifiedAt        *time.Time       `gorm:"type:timestamp" json:"verified_at,omitempty"`
	LastLoginAt       *time.Time       `gorm:"type:timestamp" json:"last_login_at,omitempty"`
	Address           *ShippingAddress `gorm:"foreignKey:AccountID" json:"address,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Account) TableName() string {
	return "accounts"
}

// IsVerified возвращает true, если аккаунт хотя бы раз подтвердил email
func (a *Account) IsVerified() bool {
	return a.VerificationState == VerificationVerified
}

// NormalizeEmail приводит email к ключу хранилища: без пробелов, в нижнем регистре
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultNameFromEmail возвращает локальную часть адреса как отображаемое имя
func DefaultNameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}
