package entity

import (
	"strings"
	"time"
)

// DefaultCountry подставляется, если клиент не передал страну
const DefaultCountry = "India"

// ShippingAddress — единственный текущий адрес доставки аккаунта (без истории)
type ShippingAddress struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	AccountID  uint      `gorm:"not null;uniqueIndex" json:"-"`
	FullName   string    `gorm:"size:100;not null" json:"full_name"`
	Phone      string    `gorm:"size:20;not null" json:"phone"`
	Line1      string    `gorm:"size:255;not null" json:"line1"`
	Line2      string    `gorm:"size:255;not null;default:''" json:"line2"`
	City       string    `gorm:"size:100;not null" json:"city"`
	State      string    `gorm:"size:100;not null" json:"state"`
	PostalCode string    `gorm:"size:20;not null" json:"postal_code"`
	Country    string    `gorm:"size:100;not null;default:'India'" json:"country"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (ShippingAddress) TableName() string {
	return "shipping_addresses"
}

// IsComplete проверяет, что заполнены все обязательные поля (line2 необязательна)
func (a *ShippingAddress) IsComplete() bool {
	if a == nil {
		return false
	}
	for _, v := range []string{a.FullName, a.Phone, a.Line1, a.City, a.State, a.PostalCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Snapshot возвращает копию адреса для записи в заказ
func (a *ShippingAddress) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// AddressSnapshot хранится в заказе и не меняется при обновлении адреса аккаунта
type AddressSnapshot struct {
	FullName   string `gorm:"size:100;not null" json:"full_name"`
	Phone      string `gorm:"size:20;not null" json:"phone"`
	Line1      string `gorm:"size:255;not null" json:"line1"`
	Line2      string `gorm:"size:255;not null;default:''" json:"line2"`
	City       string `gorm:"size:100;not null" json:"city"`
	State      string `gorm:"size:100;not null" json:"state"`
	PostalCode string `gorm:"size:20;not null" json:"postal_code"`
	Country    string `gorm:"size:100;not null" json:"country"`
}
