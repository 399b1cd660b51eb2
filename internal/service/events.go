package service

import (
	"context"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// Типы событий заказа, которые получает клиент по WebSocket
const (
	EventOrderCreated       = "ORDER_CREATED"
	EventOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// OrderEvent — событие жизненного цикла заказа для владельца заказа
type OrderEvent struct {
	Type           string             `json:"type"`
	AccountID      uint               `json:"account_id"`
	OrderID        uint               `json:"order_id"`
	Status         entity.OrderStatus `json:"status"`
	PreviousStatus entity.OrderStatus `json:"previous_status,omitempty"`
	Total          int64              `json:"total"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// OrderEventPublisher доставляет события заказов подписчикам (WebSocket, другие инстансы)
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

type noopEventPublisher struct{}

func (noopEventPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
