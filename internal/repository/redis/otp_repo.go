package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

const otpKeyPrefix = "otp:"

// checkOTPScript проверяет код за одну операцию, чтобы параллельные
// проверки не могли прочитать один и тот же счетчик попыток.
// KEYS[1] - ключ кода; ARGV: хеш кандидата, текущее время (мс), лимит попыток.
var checkOTPScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'code_hash', 'attempts', 'expires_at')
if not v[1] then
  return {'not_found', 0}
end
local attempts = tonumber(v[2])
if tonumber(v[3]) <= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return {'expired', attempts}
end
if attempts >= tonumber(ARGV[3]) then
  redis.call('DEL', KEYS[1])
  return {'exhausted', attempts}
end
if v[1] == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return {'valid', attempts}
end
attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return {'mismatch', attempts}
`)

// OTPRepo реализует repository.OTPStore на Redis hash с TTL
type OTPRepo struct {
	client redis.UniversalClient
}

// NewOTPRepo создает хранилище одноразовых кодов
func NewOTPRepo(client redis.UniversalClient) (*OTPRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for OTPRepo")
	}
	return &OTPRepo{client: client}, nil
}

func otpKey(email string) string {
	return otpKeyPrefix + email
}

// Put перезаписывает код: старый код удаляется в той же транзакции
func (r *OTPRepo) Put(ctx context.Context, challenge *entity.OTPChallenge, retention time.Duration) error {
	key := otpKey(challenge.Email)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]interface{}{
			"code_hash":  challenge.CodeHash,
			"attempts":   challenge.Attempts,
			"expires_at": challenge.ExpiresAt.UnixMilli(),
		})
		pipe.PExpire(ctx, key, retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store otp challenge: %w", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, email string) (*entity.OTPChallenge, error) {
	fields, err := r.client.HGetAll(ctx, otpKey(email)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrNotFound
	}
	attempts, _ := strconv.Atoi(fields["attempts"])
	expiresAt, _ := strconv.ParseInt(fields["expires_at"], 10, 64)
	return &entity.OTPChallenge{
		Email:     email,
		CodeHash:  fields["code_hash"],
		Attempts:  attempts,
		ExpiresAt: time.UnixMilli(expiresAt),
	}, nil
}

func (r *OTPRepo) Check(ctx context.Context, email, codeHash string, now time.Time, maxAttempts int) (entity.OTPOutcome, int, error) {
	res, err := checkOTPScript.Run(ctx, r.client, []string{otpKey(email)}, codeHash, now.UnixMilli(), maxAttempts).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.OTPNotFound, 0, nil
		}
		return "", 0, fmt.Errorf("otp check script failed: %w", err)
	}
	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return "", 0, fmt.Errorf("unexpected otp check reply: %v", res)
	}
	outcome, _ := values[0].(string)
	attempts, _ := values[1].(int64)
	return entity.OTPOutcome(outcome), int(attempts), nil
}

func (r *OTPRepo) Delete(ctx context.Context, email string) error {
	return r.client.Del(ctx, otpKey(email)).Err()
}
