package repository

import (
	"context"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// ProductFilter задает фильтр и пагинацию каталога
type ProductFilter struct {
	Category   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ProductRepository хранит каталог товаров
type ProductRepository interface {
	// Create добавляет товар; занятый id возвращает ErrConflict.
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDs возвращает найденные товары; отсутствующие id пропускаются.
	GetByIDs(ctx context.Context, ids []string) ([]entity.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]entity.Product, int64, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id string) error
}
