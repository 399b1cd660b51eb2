package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// setupTestRedis поднимает miniredis и клиент к нему
func setupTestRedis(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func putChallenge(t *testing.T, repo *OTPRepo, email, hash string, expiresAt time.Time) {
	t.Helper()
	err := repo.Put(context.Background(), &entity.OTPChallenge{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: expiresAt,
	}, 20*time.Minute)
	require.NoError(t, err)
}

func TestOTPRepo_CheckOutcomes(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo, err := NewOTPRepo(client)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()

	t.Run("not found", func(t *testing.T) {
		outcome, _, err := repo.Check(ctx, "nobody@example.com", "h", now, 3)
		require.NoError(t, err)
		assert.Equal(t, entity.OTPNotFound, outcome)
	})

	t.Run("valid is single use", func(t *testing.T) {
		putChallenge(t, repo, "a@example.com", "good", now.Add(10*time.Minute))

		outcome, _, err := repo.Check(ctx, "a@example.com", "good", now, 3)
		require.NoError(t, err)
		assert.Equal(t, entity.OTPValid, outcome)

		outcome, _, err = repo.Check(ctx, "a@example.com", "good", now, 3)
		require.NoError(t, err)
		assert.Equal(t, entity.OTPNotFound, outcome)
	})

	t.Run("mismatch increments then exhausts", func(t *testing.T) {
		putChallenge(t, repo, "b@example.com", "good", now.Add(10*time.Minute))

		for i := 1; i <= 3; i++ {
			outcome, attempts, err := repo.Check(ctx, "b@example.com", "bad", now, 3)
			require.NoError(t, err)
			assert.Equal(t, entity.OTPMismatch, outcome)
			assert.Equal(t, i, attempts)
		}

		outcome, _, err := repo.Check(ctx, "b@example.com", "good", now, 3)
		require.NoError(t, err)
		assert.Equal(t, entity.OTPExhausted, outcome)

		_, err = repo.Get(ctx, "b@example.com")
		assert.ErrorIs(t, err, apperrors.ErrNotFound, "исчерпанный код должен быть удален")
	})

	t.Run("expired is invalidated", func(t *testing.T) {
		putChallenge(t, repo, "c@example.com", "good", now.Add(-time.Second))

		outcome, _, err := repo.Check(ctx, "c@example.com", "good", now, 3)
		require.NoError(t, err)
		assert.Equal(t, entity.OTPExpired, outcome)

		_, err = repo.Get(ctx, "c@example.com")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestOTPRepo_PutOverwritesPrevious(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo, err := NewOTPRepo(client)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()

	putChallenge(t, repo, "a@example.com", "first", now.Add(10*time.Minute))
	_, _, err = repo.Check(ctx, "a@example.com", "wrong", now, 3)
	require.NoError(t, err)

	putChallenge(t, repo, "a@example.com", "second", now.Add(10*time.Minute))

	got, err := repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "second", got.CodeHash)
	assert.Equal(t, 0, got.Attempts, "новый код сбрасывает счетчик попыток")
	assert.True(t, mr.TTL("otp:a@example.com") > 0)

	outcome, _, err := repo.Check(ctx, "a@example.com", "first", now, 3)
	require.NoError(t, err)
	assert.Equal(t, entity.OTPMismatch, outcome)
}

func TestOTPRepo_ConcurrentWrongCodesRespectAttemptLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo, err := NewOTPRepo(client)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()
	const maxAttempts = 3
	const workers = 20

	putChallenge(t, repo, "race@example.com", "good", now.Add(10*time.Minute))

	outcomes := make([]entity.OTPOutcome, workers)
	errs := make([]error, workers)
	var start, wg sync.WaitGroup
	start.Add(1)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			outcomes[i], _, errs[i] = repo.Check(ctx, "race@example.com", "bad", now, maxAttempts)
		}(i)
	}
	start.Done()
	wg.Wait()

	mismatches := 0
	for i, outcome := range outcomes {
		require.NoError(t, errs[i])
		switch outcome {
		case entity.OTPMismatch:
			mismatches++
		case entity.OTPExhausted, entity.OTPNotFound:
		default:
			t.Fatalf("unexpected outcome %q", outcome)
		}
	}
	assert.Equal(t, maxAttempts, mismatches)

	outcome, _, err := repo.Check(ctx, "race@example.com", "good", now, maxAttempts)
	require.NoError(t, err)
	assert.NotEqual(t, entity.OTPValid, outcome, "после исчерпания попыток верный код не принимается")
}
