package dto

import "github.com/yourusername/storefront-api/internal/service"

// UpdateCartItemRequest — новое количество строки корзины (0 удаляет строку)
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0,lte=99"`
}

// SyncCartRequest — локальная корзина клиента для слияния с серверной
type SyncCartRequest struct {
	Items []service.CartItemInput `json:"items" binding:"max=100"`
}

// InitiateCheckoutRequest — необязательная сумма, которую видел клиент
type InitiateCheckoutRequest struct {
	ClientTotal *int64 `json:"client_total"`
}

// AdminLoginRequest — вход оператора
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=128"`
}

// UpdateOrderStatusRequest — новый статус заказа
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
