package handler

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/service"
)

func exportOrders() []entity.Order {
	return []entity.Order{{
		ID:         11,
		AccountID:  7,
		BuyerEmail: "asha@example.com",
		BuyerName:  "Asha",
		Status:     entity.OrderStatusConfirmed,
		Subtotal:   400,
		Tax:        72,
		Total:      472,
		Payment:    entity.PaymentRecord{GatewayOrderID: "order_abc", GatewayPaymentID: "pay_xyz", Amount: 472, Currency: "INR"},
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}
}

func TestAdminHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		admin := &MockAdmin{}
		admin.On("Login", mock.Anything, "ops@example.com", "secret").Return("admin-token", nil)

		c, w := newTestGinContext(http.MethodPost, "/api/admin/login", map[string]string{"email": "ops@example.com", "password": "secret"})
		NewAdminHandler(admin, &MockOrders{}, &MockAccounts{}).Login(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin-token", parseJSONResponse(t, w)["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		admin := &MockAdmin{}
		admin.On("Login", mock.Anything, "ops@example.com", "nope").Return("", service.ErrInvalidCredentials)

		c, w := newTestGinContext(http.MethodPost, "/api/admin/login", map[string]string{"email": "ops@example.com", "password": "nope"})
		NewAdminHandler(admin, &MockOrders{}, &MockAccounts{}).Login(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		c, w := newTestGinContext(http.MethodPost, "/api/admin/login", map[string]string{"email": "ops@example.com"})
		NewAdminHandler(&MockAdmin{}, &MockOrders{}, &MockAccounts{}).Login(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminHandler_Orders(t *testing.T) {
	t.Run("list with status filter", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("ListAll", mock.Anything, "shipped", 1, 20).Return(&service.OrderPage{Orders: exportOrders(), Total: 1, Page: 1, Limit: 20}, nil)

		c, w := newTestGinContext(http.MethodGet, "/api/admin/orders?status=shipped", nil)
		NewAdminHandler(&MockAdmin{}, orders, &MockAccounts{}).ListOrders(c)

		assert.Equal(t, http.StatusOK, w.Code)
		orders.AssertExpectations(t)
	})

	t.Run("get order", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("Get", mock.Anything, uint(11)).Return(&exportOrders()[0], nil)

		c, w := newTestGinContext(http.MethodGet, "/api/admin/orders/11", nil)
		c.Set("orderID", uint(11))
		NewAdminHandler(&MockAdmin{}, orders, &MockAccounts{}).GetOrder(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "asha@example.com", parseJSONResponse(t, w)["buyer_email"])
	})

	t.Run("status transition", func(t *testing.T) {
		shipped := exportOrders()[0]
		shipped.Status = entity.OrderStatusProcessing
		orders := &MockOrders{}
		orders.On("UpdateStatus", mock.Anything, uint(11), "processing").Return(&shipped, nil)

		c, w := newTestGinContext(http.MethodPatch, "/api/admin/orders/11/status", map[string]string{"status": "processing"})
		c.Set("orderID", uint(11))
		NewAdminHandler(&MockAdmin{}, orders, &MockAccounts{}).UpdateOrderStatus(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "processing", parseJSONResponse(t, w)["status"])
	})

	t.Run("illegal transition", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("UpdateStatus", mock.Anything, uint(11), "delivered").Return(nil, service.ErrInvalidStatusTransition)

		c, w := newTestGinContext(http.MethodPatch, "/api/admin/orders/11/status", map[string]string{"status": "delivered"})
		c.Set("orderID", uint(11))
		NewAdminHandler(&MockAdmin{}, orders, &MockAccounts{}).UpdateOrderStatus(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminHandler_Export(t *testing.T) {
	t.Run("xlsx by default", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("ExportAll", mock.Anything, "").Return(exportOrders(), nil)

		c, w := newTestGinContext(http.MethodGet, "/api/admin/orders/export", nil)
		NewAdminHandler(&MockAdmin{}, orders, &MockAccounts{}).ExportOrders(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Orders")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("csv", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("ExportAll", mock.Anything, "confirmed").Return(exportOrders(), nil)

		c, w := newTestGinContext(http.MethodGet, "/api/admin/orders/export?format=csv&status=confirmed", nil)
		NewAdminHandler(&MockAdmin{}, orders, &MockAccounts{}).ExportOrders(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
		assert.Contains(t, w.Body.String(), "pay_xyz")
	})

	t.Run("unknown format", func(t *testing.T) {
		c, w := newTestGinContext(http.MethodGet, "/api/admin/orders/export?format=pdf", nil)
		NewAdminHandler(&MockAdmin{}, &MockOrders{}, &MockAccounts{}).ExportOrders(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminHandler_ListAccounts(t *testing.T) {
	t.Run("search and paging", func(t *testing.T) {
		accounts := &MockAccounts{}
		accounts.On("ListAccounts", mock.Anything, "asha", 2, 5).Return(&service.AccountPage{
			Accounts: []entity.Account{{ID: 7, Email: "asha@example.com", Name: "Asha"}},
			Total:    6, Page: 2, Limit: 5,
		}, nil)

		c, w := newTestGinContext(http.MethodGet, "/api/admin/accounts?search=asha&page=2&limit=5", nil)
		NewAdminHandler(&MockAdmin{}, &MockOrders{}, accounts).ListAccounts(c)

		require.Equal(t, http.StatusOK, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, float64(6), resp["total"])
		require.Len(t, resp["accounts"], 1)
		accounts.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		accounts := &MockAccounts{}
		accounts.On("ListAccounts", mock.Anything, "", 1, 20).Return(nil, assert.AnError)

		c, w := newTestGinContext(http.MethodGet, "/api/admin/accounts", nil)
		NewAdminHandler(&MockAdmin{}, &MockOrders{}, accounts).ListAccounts(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
