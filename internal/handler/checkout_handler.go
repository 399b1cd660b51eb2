package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/storefront-api/internal/handler/dto"
	"github.com/yourusername/storefront-api/internal/handler/helper"
	"github.com/yourusername/storefront-api/internal/service"
)

// CheckoutUseCase — создание платежа и фиксация заказа
type CheckoutUseCase interface {
	Initiate(ctx context.Context, accountID uint, clientTotal *int64) (*service.InitiateResult, error)
	VerifyAndCommit(ctx context.Context, accountID uint, input service.ConfirmInput) (*service.CommitResult, error)
}

// CheckoutHandler обрабатывает оформление заказа
type CheckoutHandler struct {
	checkout CheckoutUseCase
}

// NewCheckoutHandler создает обработчик оформления заказа
func NewCheckoutHandler(checkout CheckoutUseCase) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Initiate создает заказ в платежном шлюзе по текущей корзине. Тело запроса необязательно.
func (h *CheckoutHandler) Initiate(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req dto.InitiateCheckoutRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBindError(c, err)
			return
		}
	}

	result, err := h.checkout.Initiate(c.Request.Context(), accountID, req.ClientTotal)
	if err != nil {
		respondError(c, "CheckoutHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Confirm проверяет подпись оплаты и создает заказ.
// Повтор с тем же платежом возвращает уже созданный заказ с duplicate=true.
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	accountID, ok := helper.AccountID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req service.ConfirmInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.checkout.VerifyAndCommit(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, "CheckoutHandler", err)
		return
	}
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
