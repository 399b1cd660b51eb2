package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// paymentIntentRow — строка payment_intents; ключ — id заказа в платежном шлюзе
type paymentIntentRow struct {
	ID         string                 `gorm:"primaryKey;size:64"`
	AccountID  uint                   `gorm:"not null"`
	Amount     int64                  `gorm:"not null"`
	Currency   string                 `gorm:"size:3;not null"`
	Receipt    string                 `gorm:"size:64;not null"`
	Subtotal   int64                  `gorm:"not null"`
	Tax        int64                  `gorm:"not null"`
	Shipping   int64                  `gorm:"not null"`
	Total      int64                  `gorm:"not null"`
	Items      []paymentIntentItemRow `gorm:"foreignKey:IntentID;references:ID"`
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

func (paymentIntentRow) TableName() string { return "payment_intents" }

// paymentIntentItemRow — строка корзины, зафиксированная в момент Initiate
type paymentIntentItemRow struct {
	IntentID  string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"primaryKey;size:64"`
	Position  int    `gorm:"not null"`
	Title     string `gorm:"size:255;not null"`
	UnitPrice int64  `gorm:"not null"`
	Quantity  int    `gorm:"not null"`
}

func (paymentIntentItemRow) TableName() string { return "payment_intent_items" }

// IntentRepo реализует repository.IntentStore на таблицах payment_intents и payment_intent_items
type IntentRepo struct {
	db *gorm.DB
}

// NewIntentRepo создает репозиторий checkout intent
func NewIntentRepo(db *gorm.DB) *IntentRepo {
	return &IntentRepo{db: db}
}

// Save сохраняет intent вместе со снимком строк в одной транзакции
func (r *IntentRepo) Save(ctx context.Context, intent *entity.CheckoutIntent) error {
	if intent == nil || intent.Intent.ID == "" {
		return fmt.Errorf("intent id is required")
	}
	row := paymentIntentRow{
		ID:         intent.Intent.ID,
		AccountID:  intent.AccountID,
		Amount:     intent.Intent.Amount,
		Currency:   intent.Intent.Currency,
		Receipt:    intent.Intent.Receipt,
		Subtotal:   intent.Totals.Subtotal,
		Tax:        intent.Totals.Tax,
		Shipping:   intent.Totals.Shipping,
		Total:      intent.Totals.Total,
		Items:      make([]paymentIntentItemRow, 0, len(intent.Items)),
		CreatedAt:  intent.CreatedAt,
		ConsumedAt: intent.ConsumedAt,
	}
	for i, it := range intent.Items {
		row.Items = append(row.Items, paymentIntentItemRow{
			IntentID:  intent.Intent.ID,
			ProductID: it.ProductID,
			Position:  i,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: intent %s already exists", apperrors.ErrConflict, intent.Intent.ID)
		}
		return fmt.Errorf("failed to save checkout intent: %w", err)
	}
	return nil
}

// Get возвращает intent со строками в порядке корзины
func (r *IntentRepo) Get(ctx context.Context, intentID string) (*entity.CheckoutIntent, error) {
	var row paymentIntentRow
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", intentID).
		First(&row).Error
	if err != nil {
		return nil, mapNotFound(err)
	}

	intent := &entity.CheckoutIntent{
		Intent: entity.PaymentIntent{
			ID:       row.ID,
			Amount:   row.Amount,
			Currency: row.Currency,
			Receipt:  row.Receipt,
		},
		AccountID:  row.AccountID,
		Totals:     entity.Totals{Subtotal: row.Subtotal, Tax: row.Tax, Shipping: row.Shipping, Total: row.Total},
		Items:      make([]entity.CartItem, 0, len(row.Items)),
		CreatedAt:  row.CreatedAt,
		ConsumedAt: row.ConsumedAt,
	}
	for _, it := range row.Items {
		intent.Items = append(intent.Items, entity.CartItem{
			AccountID: row.AccountID,
			ProductID: it.ProductID,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return intent, nil
}

// MarkConsumed проставляет consumed_at один раз; повторный вызов ничего не меняет
func (r *IntentRepo) MarkConsumed(ctx context.Context, intentID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&paymentIntentRow{}).
		Where("id = ? AND consumed_at IS NULL", intentID).
		Update("consumed_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&paymentIntentRow{}).Where("id = ?", intentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrNotFound
		}
	}
	return nil
}
