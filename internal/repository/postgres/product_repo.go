package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// ProductRepo реализует repository.ProductRepository на таблице products
type ProductRepo struct {
	db *gorm.DB
}

// NewProductRepo создает новый репозиторий каталога
func NewProductRepo(db *gorm.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

// Create добавляет товар. Занятый id возвращает ErrConflict.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: product %s already exists", apperrors.ErrConflict, product.ID)
		}
		return err
	}
	return nil
}

// GetByID возвращает товар независимо от признака active
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &product, nil
}

// GetByIDs загружает товары одним запросом
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) ([]entity.Product, error) {
	var products []entity.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// List возвращает страницу каталога, упорядоченную по категории и названию
func (r *ProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	query := r.db.WithContext(ctx).Model(&entity.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []entity.Product
	err := query.Order("category ASC, title ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Update перезаписывает редактируемые поля товара
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&entity.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"title":       product.Title,
			"description": product.Description,
			"category":    product.Category,
			"price":       product.Price,
			"image_url":   product.ImageURL,
			"active":      product.Active,
			"updated_at":  product.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет товар. Строки заказов хранят свой снимок и не затрагиваются.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
