package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/handler/helper"
	"github.com/yourusername/storefront-api/internal/service"
)

// OrderUseCase — заказы покупателя
type OrderUseCase interface {
	ListForAccount(ctx context.Context, accountID uint, page, limit int) (*service.OrderPage, error)
	GetForAccount(ctx context.Context, accountID, orderID uint) (*entity.Order, error)
}

// OrderHandler отдает покупателю его заказы
type OrderHandler struct {
	orders OrderUseCase
}

// NewOrderHandler создает обработчик заказов
func NewOrderHandler(orders OrderUseCase) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListOrders возвращает заказы аккаунта, новые первыми
func (h *OrderHandler) ListOrders(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	page, limit := helper.PageParams(c)
	result, err := h.orders.ListForAccount(c.Request.Context(), accountID, page, limit)
	if err != nil {
		respondError(c, "OrderHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrder возвращает заказ аккаунта; чужой заказ — 404
func (h *OrderHandler) GetOrder(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	order, err := h.orders.GetForAccount(c.Request.Context(), accountID, c.GetUint("orderID"))
	if err != nil {
		respondError(c, "OrderHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}
