package entity

import "time"

// OTPOutcome — результат проверки одноразового кода
type OTPOutcome string

const (
	OTPValid     OTPOutcome = "valid"
	OTPExpired   OTPOutcome = "expired"
	OTPExhausted OTPOutcome = "exhausted"
	OTPMismatch  OTPOutcome = "mismatch"
	OTPNotFound  OTPOutcome = "not_found"
)

// OTP purposes passed to the notifier.
const (
	OTPPurposeVerification = "verification"
	OTPPurposeLogin        = "login"
)

// OTPChallenge — живой одноразовый код для email. Код хранится только в виде хеша.
// Отсутствие записи в хранилище означает "нет живого кода".
type OTPChallenge struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// IsExpired проверяет истечение срока действия кода
func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// OTPCheckResult — исход проверки и оставшиеся попытки (для подсказки пользователю)
type OTPCheckResult struct {
	Outcome      OTPOutcome `json:"outcome"`
	AttemptsLeft int        `json:"attempts_left"`
}
