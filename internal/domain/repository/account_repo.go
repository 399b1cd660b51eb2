package repository

import (
	"context"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// AccountFilter задает поиск и пагинацию списка аккаунтов.
// Search ищет подстроку в email или имени.
type AccountFilter struct {
	Search string
	Limit  int
	Offset int
}

// AccountRepository определяет методы для работы с аккаунтами покупателей.
// Email хранится в нижнем регистре и уникален.
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	GetByID(ctx context.Context, id uint) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	Update(ctx context.Context, account *entity.Account) error
	MarkVerified(ctx context.Context, id uint, at time.Time) error
	TouchLogin(ctx context.Context, id uint, at time.Time) error
	// List возвращает аккаунты (новые первыми) и общее число под фильтром.
	List(ctx context.Context, filter AccountFilter) ([]entity.Account, int64, error)

	GetAddress(ctx context.Context, accountID uint) (*entity.ShippingAddress, error)
	UpsertAddress(ctx context.Context, address *entity.ShippingAddress) error
}
