package entity

import "time"

// Product — позиция каталога. Цена в минимальных единицах валюты.
// Корзина и оформление заказа берут цену и название только отсюда.
type Product struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"size:64;not null;index" json:"category"`
	Price       int64     `gorm:"not null" json:"price"`
	ImageURL    string    `gorm:"size:512;not null" json:"image_url"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Product) TableName() string {
	return "products"
}
