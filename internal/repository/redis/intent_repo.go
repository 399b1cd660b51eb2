package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
)

const intentKeyPrefix = "checkout:intent:"

// CachedIntentRepo кеширует checkout intent в Redis поверх основного хранилища.
// Источник истины — durable; промах или сбой кеша читает из него.
type CachedIntentRepo struct {
	cache   repository.CacheRepository
	durable repository.IntentStore
	ttl     time.Duration
}

// NewCachedIntentRepo создает кеширующее хранилище checkout intent
func NewCachedIntentRepo(cache repository.CacheRepository, durable repository.IntentStore, ttl time.Duration) (*CachedIntentRepo, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache repository is required for CachedIntentRepo")
	}
	if durable == nil {
		return nil, fmt.Errorf("durable intent store is required for CachedIntentRepo")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedIntentRepo{cache: cache, durable: durable, ttl: ttl}, nil
}

// Save пишет intent в основное хранилище, затем в кеш
func (r *CachedIntentRepo) Save(ctx context.Context, intent *entity.CheckoutIntent) error {
	if err := r.durable.Save(ctx, intent); err != nil {
		return err
	}
	if err := r.cache.SetJSON(ctx, intentKeyPrefix+intent.Intent.ID, intent, r.ttl); err != nil {
		log.Printf("[IntentCache] Не удалось закешировать intent %s: %v", intent.Intent.ID, err)
	}
	return nil
}

// Get читает кеш; при промахе берет intent из основного хранилища и кеширует его
func (r *CachedIntentRepo) Get(ctx context.Context, intentID string) (*entity.CheckoutIntent, error) {
	var cached entity.CheckoutIntent
	if err := r.cache.GetJSON(ctx, intentKeyPrefix+intentID, &cached); err == nil {
		return &cached, nil
	}

	intent, err := r.durable.Get(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SetJSON(ctx, intentKeyPrefix+intentID, intent, r.ttl); err != nil {
		log.Printf("[IntentCache] Не удалось закешировать intent %s: %v", intentID, err)
	}
	return intent, nil
}

// MarkConsumed отмечает intent в основном хранилище и убирает его из кеша
func (r *CachedIntentRepo) MarkConsumed(ctx context.Context, intentID string, at time.Time) error {
	if err := r.durable.MarkConsumed(ctx, intentID, at); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, intentKeyPrefix+intentID); err != nil {
		log.Printf("[IntentCache] Не удалось удалить intent %s из кеша: %v", intentID, err)
	}
	return nil
}
