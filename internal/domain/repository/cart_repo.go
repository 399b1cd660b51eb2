package repository

import (
	"context"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// CartRepository хранит корзины покупателей.
// Реализации: PostgreSQL (по умолчанию) и MongoDB.
type CartRepository interface {
	// Get возвращает корзину; для аккаунта без корзины возвращается пустой снимок.
	Get(ctx context.Context, accountID uint) (*entity.CartSnapshot, error)
	// AddItem добавляет строку или увеличивает количество существующей;
	// итоговое количество не превышает entity.MaxCartLineQuantity.
	AddItem(ctx context.Context, accountID uint, item entity.CartItem) error
	// SetQuantity задает количество существующей строки (ErrNotFound, если строки нет).
	SetQuantity(ctx context.Context, accountID uint, productID string, quantity int) error
	RemoveItem(ctx context.Context, accountID uint, productID string) error
	Clear(ctx context.Context, accountID uint) error
	// RemoveLines уменьшает количество на величину из lines и удаляет обнулившиеся строки.
	RemoveLines(ctx context.Context, accountID uint, lines []entity.CartItem) error
}
