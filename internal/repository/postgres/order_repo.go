package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// clampPage приводит limit и offset списков к допустимым границам
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// OrderRepo реализует repository.OrderRepository
type OrderRepo struct {
	db *gorm.DB
}

// NewOrderRepo создает новый репозиторий заказов
func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create сохраняет заказ и его строки в одной транзакции.
// Уникальный индекс на payment_gateway_payment_id гарантирует один заказ на платеж
// даже при параллельных подтверждениях.
func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payment %s", apperrors.ErrDuplicatePayment, order.Payment.GatewayPaymentID)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID возвращает заказ со строками
func (r *OrderRepo) GetByID(ctx context.Context, id uint) (*entity.Order, error) {
	var order entity.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &order, nil
}

// GetByPaymentID ищет заказ по идентификатору платежа шлюза
func (r *OrderRepo) GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_gateway_payment_id = ?", gatewayPaymentID).
		First(&order).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &order, nil
}

// List возвращает заказы (новые первыми) и общее количество по фильтру
func (r *OrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AccountID != 0 {
		query = query.Where("account_id = ?", filter.AccountID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []entity.Order
	err := query.Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus выполняет условное обновление: статус меняется, только если
// заказ все еще находится в статусе from.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint, from, to entity.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&entity.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("%w: order %d is no longer %s", apperrors.ErrConflict, id, from)
	}
	return nil
}
