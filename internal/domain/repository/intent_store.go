package repository

import (
	"context"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// IntentStore хранит checkout intent от Initiate до подтверждения оплаты.
// Основное хранилище — PostgreSQL; Redis используется как кеш поверх него.
type IntentStore interface {
	// Save сохраняет intent; повторный id возвращает ErrConflict.
	Save(ctx context.Context, intent *entity.CheckoutIntent) error
	// Get возвращает intent со снимком строк или ErrNotFound.
	Get(ctx context.Context, intentID string) (*entity.CheckoutIntent, error)
	// MarkConsumed отмечает intent, по которому создан заказ.
	MarkConsumed(ctx context.Context, intentID string, at time.Time) error
}
