package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
	"github.com/yourusername/storefront-api/internal/service"
)

func otpErrorType(err *service.OTPError) string {
	switch {
	case errors.Is(err.Kind, service.ErrOTPExpired):
		return "otp_expired"
	case errors.Is(err.Kind, service.ErrOTPExhausted):
		return "otp_exhausted"
	case errors.Is(err.Kind, service.ErrOTPNotFound):
		return "otp_not_found"
	default:
		return "otp_mismatch"
	}
}

// respondError переводит ошибку сервиса в HTTP-ответ {"error", "error_type"}.
// Внутренние детали наружу не отдаются, только в лог.
func respondError(c *gin.Context, component string, err error) {
	var otpErr *service.OTPError
	if errors.As(err, &otpErr) {
		body := gin.H{"error": "Invalid or expired code", "error_type": otpErrorType(otpErr)}
		if otpErr.RestartRequired() {
			body["restart_required"] = true
		} else {
			body["attempts_left"] = otpErr.AttemptsLeft
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	switch {
	case errors.Is(err, service.ErrOTPDeliveryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send verification code", "error_type": "otp_delivery_failed"})
	case errors.Is(err, service.ErrVerificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment verification failed", "error_type": "payment_verification_failed"})
	case errors.Is(err, service.ErrAddressMissing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Shipping address is required", "error_type": "address_missing"})
	case errors.Is(err, service.ErrProductUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "product_unavailable"})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty", "error_type": "empty_cart"})
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment amount", "error_type": "invalid_amount"})
	case errors.Is(err, service.ErrAmountMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "Order amount does not match", "error_type": "amount_mismatch"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		log.Printf("[%s] Платежный шлюз недоступен: %v", component, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment service is unavailable", "error_type": "gateway_unavailable"})
	case errors.Is(err, service.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "invalid_status_transition"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "error_type": "invalid_credentials"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Resource was modified concurrently", "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "error_type": "forbidden"})
	default:
		log.Printf("[%s] Внутренняя ошибка: %v", component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error(), "error_type": "validation_error"})
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
}
