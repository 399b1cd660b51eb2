package repository

import (
	"context"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// OrderFilter задает фильтр и пагинацию для списка заказов
type OrderFilter struct {
	Status    entity.OrderStatus
	AccountID uint
	Limit     int
	Offset    int
}

// OrderRepository хранит заказы
type OrderRepository interface {
	// Create сохраняет заказ вместе со строками. Если заказ с таким
	// gateway payment id уже есть, возвращает ErrDuplicatePayment.
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uint) (*entity.Order, error)
	GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*entity.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]entity.Order, int64, error)
	// UpdateStatus меняет статус, только если текущий статус равен from (иначе ErrConflict).
	UpdateStatus(ctx context.Context, id uint, from, to entity.OrderStatus) error
}
