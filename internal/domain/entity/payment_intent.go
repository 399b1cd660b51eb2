package entity

import "time"

// PaymentIntent — заказ, созданный на стороне платежного шлюза.
// Хранится только его идентификатор и сумма.
type PaymentIntent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CheckoutIntent связывает PaymentIntent с аккаунтом, суммами и снимком строк корзины.
// Заказ при подтверждении оплаты собирается только из этого снимка.
type CheckoutIntent struct {
	Intent     PaymentIntent `json:"intent"`
	AccountID  uint          `json:"account_id"`
	Totals     Totals        `json:"totals"`
	Items      []CartItem    `json:"items"`
	CreatedAt  time.Time     `json:"created_at"`
	ConsumedAt *time.Time    `json:"consumed_at,omitempty"`
}
