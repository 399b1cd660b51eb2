package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/storefront-api/internal/handler/dto"
	"github.com/yourusername/storefront-api/internal/handler/helper"
	"github.com/yourusername/storefront-api/internal/service"
)

// CartUseCase — операции с корзиной
type CartUseCase interface {
	Get(ctx context.Context, accountID uint) (*service.CartView, error)
	AddItem(ctx context.Context, accountID uint, input service.CartItemInput) (*service.CartView, error)
	UpdateQuantity(ctx context.Context, accountID uint, productID string, quantity int) (*service.CartView, error)
	RemoveItem(ctx context.Context, accountID uint, productID string) (*service.CartView, error)
	Clear(ctx context.Context, accountID uint) error
	Sync(ctx context.Context, accountID uint, items []service.CartItemInput) (*service.CartView, error)
}

// CartHandler обрабатывает запросы корзины
type CartHandler struct {
	carts CartUseCase
}

// NewCartHandler создает обработчик корзины
func NewCartHandler(carts CartUseCase) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) respond(c *gin.Context, view *service.CartView, err error) {
	if err != nil {
		respondError(c, "CartHandler", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetCart возвращает корзину с суммами
func (h *CartHandler) GetCart(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	view, err := h.carts.Get(c.Request.Context(), accountID)
	h.respond(c, view, err)
}

// GetQuote возвращает только суммы корзины
func (h *CartHandler) GetQuote(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	view, err := h.carts.Get(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, "CartHandler", err)
		return
	}
	c.JSON(http.StatusOK, view.Totals)
}

// AddItem добавляет товар в корзину
func (h *CartHandler) AddItem(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req service.CartItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.carts.AddItem(c.Request.Context(), accountID, req)
	h.respond(c, view, err)
}

// UpdateItem задает количество товара
func (h *CartHandler) UpdateItem(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.carts.UpdateQuantity(c.Request.Context(), accountID, c.Param("productId"), *req.Quantity)
	h.respond(c, view, err)
}

// RemoveItem удаляет товар из корзины
func (h *CartHandler) RemoveItem(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	view, err := h.carts.RemoveItem(c.Request.Context(), accountID, c.Param("productId"))
	h.respond(c, view, err)
}

// ClearCart очищает корзину
func (h *CartHandler) ClearCart(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	if err := h.carts.Clear(c.Request.Context(), accountID); err != nil {
		respondError(c, "CartHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// SyncCart сливает локальную корзину клиента с серверной
func (h *CartHandler) SyncCart(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req dto.SyncCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.carts.Sync(c.Request.Context(), accountID, req.Items)
	h.respond(c, view, err)
}
