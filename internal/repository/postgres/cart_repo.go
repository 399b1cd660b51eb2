package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// CartRepo реализует repository.CartRepository на таблице cart_items
type CartRepo struct {
	db *gorm.DB
}

// NewCartRepo создает новый репозиторий корзин
func NewCartRepo(db *gorm.DB) *CartRepo {
	return &CartRepo{db: db}
}

// Get возвращает строки корзины в порядке добавления
func (r *CartRepo) Get(ctx context.Context, accountID uint) (*entity.CartSnapshot, error) {
	var items []entity.CartItem
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC, product_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return &entity.CartSnapshot{AccountID: accountID, Items: items}, nil
}

// AddItem добавляет строку; если товар уже есть, атомарно увеличивает количество
// в пределах entity.MaxCartLineQuantity
func (r *CartRepo) AddItem(ctx context.Context, accountID uint, item entity.CartItem) error {
	item.AccountID = accountID
	if item.Quantity > entity.MaxCartLineQuantity {
		item.Quantity = entity.MaxCartLineQuantity
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("LEAST(cart_items.quantity + EXCLUDED.quantity, ?)", entity.MaxCartLineQuantity),
			"title":      gorm.Expr("EXCLUDED.title"),
			"unit_price": gorm.Expr("EXCLUDED.unit_price"),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
}

// SetQuantity задает количество существующей строки
func (r *CartRepo) SetQuantity(ctx context.Context, accountID uint, productID string, quantity int) error {
	res := r.db.WithContext(ctx).Model(&entity.CartItem{}).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RemoveItem удаляет строку корзины
func (r *CartRepo) RemoveItem(ctx context.Context, accountID uint, productID string) error {
	res := r.db.WithContext(ctx).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Delete(&entity.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Clear удаляет все строки корзины
func (r *CartRepo) Clear(ctx context.Context, accountID uint) error {
	return r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&entity.CartItem{}).Error
}

// RemoveLines вычитает оформленные количества в одной транзакции.
// Товары, добавленные после начала оформления, остаются в корзине.
func (r *CartRepo) RemoveLines(ctx context.Context, accountID uint, lines []entity.CartItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, line := range lines {
			err := tx.Model(&entity.CartItem{}).
				Where("account_id = ? AND product_id = ?", accountID, line.ProductID).
				Updates(map[string]interface{}{
					"quantity":   gorm.Expr("quantity - ?", line.Quantity),
					"updated_at": now,
				}).Error
			if err != nil {
				return err
			}
		}
		return tx.Where("account_id = ? AND quantity <= 0", accountID).Delete(&entity.CartItem{}).Error
	})
}
