package repository

import (
	"context"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

// OTPStore — хранилище одноразовых кодов с TTL, ключ — email.
// Проверка кода выполняется атомарно на стороне хранилища.
type OTPStore interface {
	// Put перезаписывает живой код для email и сбрасывает счетчик попыток.
	Put(ctx context.Context, challenge *entity.OTPChallenge, retention time.Duration) error
	// Get возвращает живой код или ErrNotFound.
	Get(ctx context.Context, email string) (*entity.OTPChallenge, error)
	// Check атомарно сравнивает хеш кода и обновляет счетчик попыток.
	// Возвращает исход и число попыток после проверки.
	Check(ctx context.Context, email, codeHash string, now time.Time, maxAttempts int) (entity.OTPOutcome, int, error)
	Delete(ctx context.Context, email string) error
}
