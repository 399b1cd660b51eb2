package entity

import "time"

// MaxCartLineQuantity — верхняя граница количества одной строки корзины
const MaxCartLineQuantity = 99

// CartItem — строка корзины. ProductID уникален в пределах корзины.
// Цены хранятся в минимальных единицах валюты (пайсы).
type CartItem struct {
	AccountID uint      `gorm:"primaryKey;autoIncrement:false" json:"-" bson:"-"`
	ProductID string    `gorm:"primaryKey;size:64" json:"product_id" bson:"product_id"`
	Title     string    `gorm:"size:255;not null" json:"title" bson:"title"`
	UnitPrice int64     `gorm:"not null" json:"unit_price" bson:"unit_price"`
	Quantity  int       `gorm:"not null" json:"quantity" bson:"quantity"`
	CreatedAt time.Time `json:"added_at" bson:"added_at"`
	UpdatedAt time.Time `json:"-" bson:"-"`
}

// TableName определяет имя таблицы для GORM
func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal возвращает стоимость строки
func (i CartItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// CartSnapshot — упорядоченный список строк корзины одного аккаунта
type CartSnapshot struct {
	AccountID uint       `json:"account_id"`
	Items     []CartItem `json:"items"`
}

// IsEmpty возвращает true, если в корзине нет строк
func (c *CartSnapshot) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// ItemCount возвращает суммарное количество единиц товара
func (c *CartSnapshot) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
