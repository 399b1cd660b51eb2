package entity

import (
	"time"
)

// OrderStatus — статус заказа. Финансовые поля заказа неизменяемы,
// после создания меняется только статус.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// DefaultDeliveryLeadTime — срок от создания заказа до ожидаемой доставки
const DefaultDeliveryLeadTime = 7 * 24 * time.Hour

// orderTransitions — прямые переходы вперед по жизненному циклу.
// cancelled достижим из любого нетерминального статуса.
var orderTransitions = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusConfirmed,
	OrderStatusConfirmed:  OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// ParseOrderStatus проверяет, что строка является известным статусом
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

// IsTerminal возвращает true для delivered и cancelled
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return orderTransitions[s] == next
}

// Totals — суммы заказа в минимальных единицах валюты.
// Инвариант: Subtotal + Tax + Shipping == Total.
type Totals struct {
	Subtotal int64 `json:"subtotal" validate:"gte=0"`
	Tax      int64 `json:"tax" validate:"gte=0"`
	Shipping int64 `json:"shipping" validate:"gte=0"`
	Total    int64 `json:"total" validate:"gte=0"`
}

// Balanced проверяет инвариант сумм
func (t Totals) Balanced() bool {
	return t.Subtotal+t.Tax+t.Shipping == t.Total
}

// PaymentRecord — подтвержденные данные платежа из платежного шлюза
type PaymentRecord struct {
	GatewayOrderID   string `gorm:"size:64;not null;index" json:"gateway_order_id"`
	GatewayPaymentID string `gorm:"size:64;not null;uniqueIndex" json:"gateway_payment_id"`
	Signature        string `gorm:"size:128;not null" json:"-"`
	Amount           int64  `gorm:"not null" json:"amount"`
	Currency         string `gorm:"size:3;not null" json:"currency"`
}

// OrderItem — копия строки корзины на момент оформления
type OrderItem struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	OrderID   uint   `gorm:"not null;index" json:"-"`
	ProductID string `gorm:"size:64;not null" json:"product_id"`
	Title     string `gorm:"size:255;not null" json:"title"`
	UnitPrice int64  `gorm:"not null" json:"unit_price"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	LineTotal int64  `gorm:"not null" json:"line_total"`
}

// TableName определяет имя таблицы для GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// Order — запись о покупке. Создается ровно один раз на каждый успешно
// проверенный платеж.
type Order struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	AccountID           uint            `gorm:"not null;index" json:"account_id"`
	BuyerEmail          string          `gorm:"size:255;not null" json:"buyer_email"`
	BuyerName           string          `gorm:"size:100;not null" json:"buyer_name"`
	Items               []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	ShippingAddress     AddressSnapshot `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	Payment             PaymentRecord   `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Status              OrderStatus     `gorm:"size:20;not null;default:'confirmed';index" json:"status"`
	Subtotal            int64           `gorm:"not null" json:"subtotal"`
	Tax                 int64           `gorm:"not null" json:"tax"`
	Shipping            int64           `gorm:"not null" json:"shipping"`
	Total               int64           `gorm:"not null" json:"total"`
	EstimatedDeliveryAt time.Time       `gorm:"not null" json:"estimated_delivery_at"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Order) TableName() string {
	return "orders"
}

// Totals возвращает суммы заказа
func (o *Order) Totals() Totals {
	return Totals{Subtotal: o.Subtotal, Tax: o.Tax, Shipping: o.Shipping, Total: o.Total}
}

// EstimateDelivery вычисляет ожидаемую дату доставки от момента создания
func EstimateDelivery(createdAt time.Time, leadTime time.Duration) time.Time {
	if leadTime <= 0 {
		leadTime = DefaultDeliveryLeadTime
	}
	return createdAt.Add(leadTime)
}
