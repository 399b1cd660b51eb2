package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderPage — страница заказов
type OrderPage struct {
	Orders []entity.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// OrderService отдает заказы покупателям и оператору и меняет статусы
type OrderService struct {
	orders repository.OrderRepository
	events OrderEventPublisher
	now    func() time.Time
}

// NewOrderService создает OrderService
func NewOrderService(orders repository.OrderRepository, events OrderEventPublisher) (*OrderService, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if events == nil {
		events = noopEventPublisher{}
	}
	return &OrderService{orders: orders, events: events, now: time.Now}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}
	return page, limit
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter, page, limit int) (*OrderPage, error) {
	page, limit = normalizePage(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []entity.Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// ListForAccount возвращает заказы аккаунта, новые первыми
func (s *OrderService) ListForAccount(ctx context.Context, accountID uint, page, limit int) (*OrderPage, error) {
	return s.list(ctx, repository.OrderFilter{AccountID: accountID}, page, limit)
}

// GetForAccount возвращает заказ, только если он принадлежит аккаунту
func (s *OrderService) GetForAccount(ctx context.Context, accountID, orderID uint) (*entity.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AccountID != accountID {
		return nil, apperrors.ErrNotFound
	}
	return order, nil
}

// ListAll возвращает заказы всех покупателей с фильтром по статусу
func (s *OrderService) ListAll(ctx context.Context, status string, page, limit int) (*OrderPage, error) {
	filter := repository.OrderFilter{}
	if status != "" {
		st, ok := entity.ParseOrderStatus(status)
		if !ok {
			return nil, fmt.Errorf("%w: unknown order status %q", apperrors.ErrValidation, status)
		}
		filter.Status = st
	}
	return s.list(ctx, filter, page, limit)
}

// Get возвращает любой заказ (для оператора)
func (s *OrderService) Get(ctx context.Context, orderID uint) (*entity.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// UpdateStatus переводит заказ в новый статус по графу переходов
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string) (*entity.Order, error) {
	next, ok := entity.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown order status %q", apperrors.ErrValidation, status)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if !previous.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, previous, next)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, previous, next); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: order %d status changed concurrently", apperrors.ErrConflict, orderID)
		}
		return nil, err
	}
	order.Status = next
	order.UpdatedAt = s.now()

	log.Printf("[OrderService] Заказ ID=%d: %s -> %s", orderID, previous, next)
	event := OrderEvent{
		Type:           EventOrderStatusChanged,
		AccountID:      order.AccountID,
		OrderID:        order.ID,
		Status:         next,
		PreviousStatus: previous,
		Total:          order.Total,
		OccurredAt:     order.UpdatedAt,
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("[OrderService] Не удалось опубликовать смену статуса заказа ID=%d: %v", orderID, err)
	}
	return order, nil
}

// ExportAll выбирает все заказы постранично для выгрузки
func (s *OrderService) ExportAll(ctx context.Context, status string) ([]entity.Order, error) {
	var all []entity.Order
	for page := 1; ; page++ {
		p, err := s.ListAll(ctx, status, page, maxOrderPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Orders...)
		if len(p.Orders) < maxOrderPageSize || int64(len(all)) >= p.Total {
			return all, nil
		}
	}
}
