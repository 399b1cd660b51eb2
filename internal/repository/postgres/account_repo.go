package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// AccountRepo реализует repository.AccountRepository
type AccountRepo struct {
	db *gorm.DB
}

// NewAccountRepo создает новый репозиторий аккаунтов
func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Create создает аккаунт. Повторный email возвращает ErrConflict.
func (r *AccountRepo) Create(ctx context.Context, account *entity.Account) error {
	account.Email = entity.NormalizeEmail(account.Email)
	if err := r.db.WithContext(ctx).Omit("Address").Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %s already exists", apperrors.ErrConflict, account.Email)
		}
		return err
	}
	return nil
}

// GetByID возвращает аккаунт вместе с адресом доставки
func (r *AccountRepo) GetByID(ctx context.Context, id uint) (*entity.Account, error) {
	var account entity.Account
	if err := r.db.WithContext(ctx).Preload("Address").First(&account, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &account, nil
}

// GetByEmail ищет аккаунт по email без учета регистра
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).
		Preload("Address").
		Where("email = ?", entity.NormalizeEmail(email)).
		First(&account).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &account, nil
}

// Update сохраняет имя аккаунта. Email и статус верификации меняются отдельными методами.
func (r *AccountRepo) Update(ctx context.Context, account *entity.Account) error {
	res := r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"name":       account.Name,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkVerified переводит аккаунт в verified. Повторный вызов не меняет verified_at.
func (r *AccountRepo) MarkVerified(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ? AND verification_state <> ?", id, entity.VerificationVerified).
		Updates(map[string]interface{}{
			"verification_state": entity.VerificationVerified,
			"verified_at":        at,
			"updated_at":         at,
		}).Error
}

// TouchLogin обновляет время последнего входа
func (r *AccountRepo) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// List возвращает аккаунты с адресами для оператора
func (r *AccountRepo) List(ctx context.Context, filter repository.AccountFilter) ([]entity.Account, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	query := r.db.WithContext(ctx).Model(&entity.Account{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where("email LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []entity.Account
	err := query.Preload("Address").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// GetAddress возвращает текущий адрес доставки аккаунта
func (r *AccountRepo) GetAddress(ctx context.Context, accountID uint) (*entity.ShippingAddress, error) {
	var address entity.ShippingAddress
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&address).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &address, nil
}

// UpsertAddress заменяет адрес аккаунта (история не хранится)
func (r *AccountRepo) UpsertAddress(ctx context.Context, address *entity.ShippingAddress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "phone", "line1", "line2", "city", "state", "postal_code", "country", "updated_at",
		}),
	}).Create(address).Error
}
