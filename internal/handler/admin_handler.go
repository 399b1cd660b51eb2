package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/handler/dto"
	"github.com/yourusername/storefront-api/internal/handler/helper"
	"github.com/yourusername/storefront-api/internal/service"
)

// AdminOrderUseCase — заказы всех покупателей для оператора
type AdminOrderUseCase interface {
	ListAll(ctx context.Context, status string, page, limit int) (*service.OrderPage, error)
	Get(ctx context.Context, orderID uint) (*entity.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, status string) (*entity.Order, error)
	ExportAll(ctx context.Context, status string) ([]entity.Order, error)
}

// AdminAccountUseCase — аккаунты покупателей для оператора
type AdminAccountUseCase interface {
	ListAccounts(ctx context.Context, search string, page, limit int) (*service.AccountPage, error)
}

// AdminLoginUseCase — вход оператора
type AdminLoginUseCase interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// AdminHandler обрабатывает запросы оператора магазина
type AdminHandler struct {
	admin    AdminLoginUseCase
	orders   AdminOrderUseCase
	accounts AdminAccountUseCase
}

// NewAdminHandler создает обработчик оператора
func NewAdminHandler(admin AdminLoginUseCase, orders AdminOrderUseCase, accounts AdminAccountUseCase) *AdminHandler {
	return &AdminHandler{admin: admin, orders: orders, accounts: accounts}
}

// Login выдает токен оператора
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	token, err := h.admin.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "AdminHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "Bearer"})
}

// ListOrders возвращает заказы с фильтром по статусу
func (h *AdminHandler) ListOrders(c *gin.Context) {
	page, limit := helper.PageParams(c)
	result, err := h.orders.ListAll(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		respondError(c, "AdminHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListAccounts возвращает аккаунты покупателей, ?search= ищет по email и имени
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	page, limit := helper.PageParams(c)
	result, err := h.accounts.ListAccounts(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		respondError(c, "AdminHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrder возвращает любой заказ
func (h *AdminHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.GetUint("orderID"))
	if err != nil {
		respondError(c, "AdminHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus меняет статус заказа по графу переходов
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.GetUint("orderID"), req.Status)
	if err != nil {
		respondError(c, "AdminHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ExportOrders выгружает заказы в xlsx (по умолчанию) или csv
func (h *AdminHandler) ExportOrders(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or csv", "error_type": "validation_error"})
		return
	}

	orders, err := h.orders.ExportAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, "AdminHandler", err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = service.WriteOrdersXLSX(&buf, orders)
	} else {
		err = service.WriteOrdersCSV(&buf, orders)
	}
	if err != nil {
		respondError(c, "AdminHandler", fmt.Errorf("failed to build export: %w", err))
		return
	}

	filename := fmt.Sprintf("orders_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
