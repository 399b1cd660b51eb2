package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
	"github.com/yourusername/storefront-api/internal/service"
)

func sampleCartView() *service.CartView {
	return &service.CartView{
		Items:     []entity.CartItem{{ProductID: "mug", Title: "Mug", UnitPrice: 200, Quantity: 2}},
		ItemCount: 2,
		Totals:    entity.Totals{Subtotal: 400, Tax: 72, Shipping: 0, Total: 472},
	}
}

func TestCartHandler_Requests(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       interface{}
		params     gin.Params
		setup      func(m *MockCart)
		call       func(h *CartHandler, c *gin.Context)
		wantStatus int
	}{
		{
			name:   "get cart",
			method: http.MethodGet,
			setup: func(m *MockCart) {
				m.On("Get", mock.Anything, uint(7)).Return(sampleCartView(), nil)
			},
			call:       (*CartHandler).GetCart,
			wantStatus: http.StatusOK,
		},
		{
			name:   "add item",
			method: http.MethodPost,
			body:   service.CartItemInput{ProductID: "mug", Quantity: 2},
			setup: func(m *MockCart) {
				m.On("AddItem", mock.Anything, uint(7), service.CartItemInput{ProductID: "mug", Quantity: 2}).
					Return(sampleCartView(), nil)
			},
			call:       (*CartHandler).AddItem,
			wantStatus: http.StatusOK,
		},
		{
			name:   "add invalid item",
			method: http.MethodPost,
			body:   service.CartItemInput{ProductID: "mug", Quantity: 0},
			setup: func(m *MockCart) {
				m.On("AddItem", mock.Anything, uint(7), mock.Anything).Return(nil, apperrors.ErrValidation)
			},
			call:       (*CartHandler).AddItem,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "client price and title are ignored",
			method: http.MethodPost,
			body:   map[string]interface{}{"product_id": "tv", "title": "Cheap TV", "unit_price": 1, "quantity": 1},
			setup: func(m *MockCart) {
				m.On("AddItem", mock.Anything, uint(7), service.CartItemInput{ProductID: "tv", Quantity: 1}).
					Return(sampleCartView(), nil)
			},
			call:       (*CartHandler).AddItem,
			wantStatus: http.StatusOK,
		},
		{
			name:   "retired product",
			method: http.MethodPost,
			body:   service.CartItemInput{ProductID: "retired", Quantity: 1},
			setup: func(m *MockCart) {
				m.On("AddItem", mock.Anything, uint(7), mock.Anything).Return(nil, service.ErrProductUnavailable)
			},
			call:       (*CartHandler).AddItem,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "set quantity zero",
			method: http.MethodPut,
			body:   map[string]int{"quantity": 0},
			params: gin.Params{{Key: "productId", Value: "mug"}},
			setup: func(m *MockCart) {
				m.On("UpdateQuantity", mock.Anything, uint(7), "mug", 0).Return(&service.CartView{Items: []entity.CartItem{}}, nil)
			},
			call:       (*CartHandler).UpdateItem,
			wantStatus: http.StatusOK,
		},
		{
			name:       "quantity required",
			method:     http.MethodPut,
			body:       map[string]int{},
			params:     gin.Params{{Key: "productId", Value: "mug"}},
			setup:      func(m *MockCart) {},
			call:       (*CartHandler).UpdateItem,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "remove unknown item",
			method: http.MethodDelete,
			params: gin.Params{{Key: "productId", Value: "ghost"}},
			setup: func(m *MockCart) {
				m.On("RemoveItem", mock.Anything, uint(7), "ghost").Return(nil, apperrors.ErrNotFound)
			},
			call:       (*CartHandler).RemoveItem,
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "clear",
			method: http.MethodDelete,
			setup: func(m *MockCart) {
				m.On("Clear", mock.Anything, uint(7)).Return(nil)
			},
			call:       (*CartHandler).ClearCart,
			wantStatus: http.StatusOK,
		},
		{
			name:   "sync",
			method: http.MethodPost,
			body:   map[string]interface{}{"items": []service.CartItemInput{{ProductID: "mug", Quantity: 1}}},
			setup: func(m *MockCart) {
				m.On("Sync", mock.Anything, uint(7), []service.CartItemInput{{ProductID: "mug", Quantity: 1}}).
					Return(sampleCartView(), nil)
			},
			call:       (*CartHandler).SyncCart,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &MockCart{}
			tt.setup(carts)

			c, w := newCustomerContext(tt.method, "/api/cart", tt.body, 7)
			c.Params = tt.params
			tt.call(NewCartHandler(carts), c)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			carts.AssertExpectations(t)
		})
	}
}

func TestCartHandler_Quote(t *testing.T) {
	carts := &MockCart{}
	carts.On("Get", mock.Anything, uint(7)).Return(sampleCartView(), nil)

	c, w := newCustomerContext(http.MethodGet, "/api/cart/quote", nil, 7)
	NewCartHandler(carts).GetQuote(c)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, float64(472), resp["total"])
	assert.NotContains(t, resp, "items")
}

func TestCartHandler_RequiresAccount(t *testing.T) {
	c, w := newTestGinContext(http.MethodGet, "/api/cart", nil)
	NewCartHandler(&MockCart{}).GetCart(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutHandler_Initiate(t *testing.T) {
	result := &service.InitiateResult{
		IntentID: "order_abc",
		Amount:   472,
		Currency: "INR",
		KeyID:    "rzp_key",
		Receipt:  "rcpt_1",
		Totals:   entity.Totals{Subtotal: 400, Tax: 72, Total: 472},
	}

	t.Run("without body", func(t *testing.T) {
		checkout := &MockCheckout{}
		checkout.On("Initiate", mock.Anything, uint(7), (*int64)(nil)).Return(result, nil)

		c, w := newCustomerContext(http.MethodPost, "/api/checkout/initiate", nil, 7)
		NewCheckoutHandler(checkout).Initiate(c)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := parseJSONResponse(t, w)
		assert.Equal(t, "order_abc", resp["intent_id"])
		assert.Equal(t, float64(472), resp["amount"])
	})

	t.Run("with client total", func(t *testing.T) {
		checkout := &MockCheckout{}
		checkout.On("Initiate", mock.Anything, uint(7), mock.MatchedBy(func(v *int64) bool {
			return v != nil && *v == 472
		})).Return(result, nil)

		c, w := newCustomerContext(http.MethodPost, "/api/checkout/initiate", map[string]int64{"client_total": 472}, 7)
		NewCheckoutHandler(checkout).Initiate(c)

		assert.Equal(t, http.StatusOK, w.Code)
		checkout.AssertExpectations(t)
	})

	errCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty cart", service.ErrEmptyCart, http.StatusBadRequest},
		{"gateway down", service.ErrGatewayUnavailable, http.StatusServiceUnavailable},
		{"client total differs", service.ErrAmountMismatch, http.StatusConflict},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			checkout := &MockCheckout{}
			checkout.On("Initiate", mock.Anything, uint(7), mock.Anything).Return(nil, tt.err)

			c, w := newCustomerContext(http.MethodPost, "/api/checkout/initiate", nil, 7)
			NewCheckoutHandler(checkout).Initiate(c)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func confirmBody() service.ConfirmInput {
	return service.ConfirmInput{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        "deadbeef",
		Items:            []service.ConfirmItem{{ProductID: "mug", Title: "Mug", UnitPrice: 200, Quantity: 2}},
		Subtotal:         400,
		Tax:              72,
		Total:            472,
	}
}

func TestCheckoutHandler_Confirm(t *testing.T) {
	order := &entity.Order{ID: 11, AccountID: 7, Status: entity.OrderStatusConfirmed, Total: 472,
		Payment: entity.PaymentRecord{GatewayOrderID: "order_abc", GatewayPaymentID: "pay_xyz", Signature: "deadbeef"}}

	t.Run("new order", func(t *testing.T) {
		checkout := &MockCheckout{}
		checkout.On("VerifyAndCommit", mock.Anything, uint(7), confirmBody()).Return(&service.CommitResult{Order: order}, nil)

		c, w := newCustomerContext(http.MethodPost, "/api/checkout/confirm", confirmBody(), 7)
		NewCheckoutHandler(checkout).Confirm(c)

		require.Equal(t, http.StatusCreated, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, false, resp["duplicate"])
		assert.NotContains(t, w.Body.String(), "deadbeef", "подпись не возвращается клиенту")
	})

	t.Run("duplicate returns existing order", func(t *testing.T) {
		checkout := &MockCheckout{}
		checkout.On("VerifyAndCommit", mock.Anything, uint(7), confirmBody()).Return(&service.CommitResult{Order: order, Duplicate: true}, nil)

		c, w := newCustomerContext(http.MethodPost, "/api/checkout/confirm", confirmBody(), 7)
		NewCheckoutHandler(checkout).Confirm(c)

		require.Equal(t, http.StatusOK, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, true, resp["duplicate"])
		assert.Equal(t, float64(11), resp["order"].(map[string]interface{})["id"])
	})

	t.Run("verification failure", func(t *testing.T) {
		checkout := &MockCheckout{}
		checkout.On("VerifyAndCommit", mock.Anything, uint(7), mock.Anything).Return(nil, service.ErrVerificationFailed)

		c, w := newCustomerContext(http.MethodPost, "/api/checkout/confirm", confirmBody(), 7)
		NewCheckoutHandler(checkout).Confirm(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, "payment_verification_failed", resp["error_type"])
		assert.NotContains(t, w.Body.String(), "deadbeef")
	})

	t.Run("address missing", func(t *testing.T) {
		checkout := &MockCheckout{}
		checkout.On("VerifyAndCommit", mock.Anything, uint(7), mock.Anything).Return(nil, service.ErrAddressMissing)

		c, w := newCustomerContext(http.MethodPost, "/api/checkout/confirm", confirmBody(), 7)
		NewCheckoutHandler(checkout).Confirm(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestOrderHandler(t *testing.T) {
	t.Run("list uses paging params", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("ListForAccount", mock.Anything, uint(7), 2, 5).
			Return(&service.OrderPage{Orders: []entity.Order{{ID: 3}}, Total: 6, Page: 2, Limit: 5}, nil)

		c, w := newCustomerContext(http.MethodGet, "/api/orders?page=2&limit=5", nil, 7)
		NewOrderHandler(orders).ListOrders(c)

		require.Equal(t, http.StatusOK, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, float64(6), resp["total"])
		orders.AssertExpectations(t)
	})

	t.Run("bad paging params fall back to defaults", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("ListForAccount", mock.Anything, uint(7), 1, 20).Return(&service.OrderPage{Orders: []entity.Order{}}, nil)

		c, w := newCustomerContext(http.MethodGet, "/api/orders?page=-1&limit=abc", nil, 7)
		NewOrderHandler(orders).ListOrders(c)

		assert.Equal(t, http.StatusOK, w.Code)
		orders.AssertExpectations(t)
	})

	t.Run("foreign order is not found", func(t *testing.T) {
		orders := &MockOrders{}
		orders.On("GetForAccount", mock.Anything, uint(7), uint(99)).Return(nil, apperrors.ErrNotFound)

		c, w := newCustomerContext(http.MethodGet, "/api/orders/99", nil, 7)
		c.Set("orderID", uint(99))
		NewOrderHandler(orders).GetOrder(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
