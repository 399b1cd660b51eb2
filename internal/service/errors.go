package service

import "errors"

// Ошибки сервисов; хендлеры сопоставляют их с error_type через errors.Is
var (
	// Одноразовые коды
	ErrOTPNotFound       = errors.New("otp_not_found")
	ErrOTPExpired        = errors.New("otp_expired")
	ErrOTPExhausted      = errors.New("otp_attempts_exhausted")
	ErrOTPMismatch       = errors.New("otp_mismatch")
	ErrOTPDeliveryFailed = errors.New("otp_delivery_failed")

	// Каталог
	ErrProductUnavailable = errors.New("product is not available")

	// Оформление заказа
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrAddressMissing     = errors.New("shipping address is missing or incomplete")
	ErrInvalidAmount      = errors.New("chargeable amount must be positive")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrAmountMismatch     = errors.New("order amounts do not match the charged intent")

	// Заказы и администрирование
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrInvalidCredentials      = errors.New("invalid credentials")
)

// OTPError несет исход проверки и число оставшихся попыток для подсказки пользователю
type OTPError struct {
	Kind         error
	AttemptsLeft int
}

func (e *OTPError) Error() string { return e.Kind.Error() }

func (e *OTPError) Unwrap() error { return e.Kind }

// RestartRequired сообщает, что нужен новый код (истек или попытки исчерпаны)
func (e *OTPError) RestartRequired() bool {
	return errors.Is(e.Kind, ErrOTPExpired) || errors.Is(e.Kind, ErrOTPExhausted) || errors.Is(e.Kind, ErrOTPNotFound)
}
