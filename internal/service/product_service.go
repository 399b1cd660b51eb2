package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// ProductInput — данные товара от оператора. ID задается только при создании.
type ProductInput struct {
	ID          string `json:"id" validate:"omitempty,max=64,printascii,excludesall=/?#"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4000"`
	Category    string `json:"category" validate:"max=64"`
	Price       int64  `json:"price" validate:"gte=0"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=512"`
	Active      *bool  `json:"active"`
}

// ProductPage — страница каталога
type ProductPage struct {
	Products []entity.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// ProductService отдает каталог покупателям и редактирует его для оператора
type ProductService struct {
	products repository.ProductRepository
	now      func() time.Time
}

// NewProductService создает ProductService
func NewProductService(products repository.ProductRepository) (*ProductService, error) {
	if products == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	return &ProductService{products: products, now: time.Now}, nil
}

func (s *ProductService) list(ctx context.Context, filter repository.ProductFilter, page, limit int) (*ProductPage, error) {
	page, limit = normalizePage(page, limit)
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []entity.Product{}
	}
	return &ProductPage{Products: products, Total: total, Page: page, Limit: limit}, nil
}

// List возвращает товары в продаже
func (s *ProductService) List(ctx context.Context, category string, page, limit int) (*ProductPage, error) {
	return s.list(ctx, repository.ProductFilter{Category: category, ActiveOnly: true}, page, limit)
}

// Get возвращает товар в продаже; снятый с продажи товар не найден
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.products.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, apperrors.ErrNotFound
	}
	return product, nil
}

// ListAll возвращает весь каталог, включая снятые с продажи товары
func (s *ProductService) ListAll(ctx context.Context, category string, page, limit int) (*ProductPage, error) {
	return s.list(ctx, repository.ProductFilter{Category: category}, page, limit)
}

// Create добавляет товар; без явного active товар сразу в продаже
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*entity.Product, error) {
	input.ID = strings.TrimSpace(input.ID)
	if input.ID == "" {
		return nil, fmt.Errorf("%w: product id is required", apperrors.ErrValidation)
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	now := s.now()
	product := &entity.Product{ID: input.ID, Active: true, CreatedAt: now, UpdatedAt: now}
	applyProductInput(product, input)
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	log.Printf("[ProductService] Добавлен товар %s, цена %d", product.ID, product.Price)
	return product, nil
}

// Update перезаписывает товар; новая цена действует для корзин и новых оформлений
func (s *ProductService) Update(ctx context.Context, id string, input ProductInput) (*entity.Product, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	previousPrice := product.Price
	applyProductInput(product, input)
	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	if previousPrice != product.Price {
		log.Printf("[ProductService] Цена товара %s: %d -> %d", product.ID, previousPrice, product.Price)
	}
	return product, nil
}

// Delete удаляет товар из каталога
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	log.Printf("[ProductService] Удален товар %s", id)
	return nil
}

func applyProductInput(p *entity.Product, in ProductInput) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Active != nil {
		p.Active = *in.Active
	}
}

// lookupProduct возвращает товар в продаже или ErrProductUnavailable
func lookupProduct(ctx context.Context, products repository.ProductRepository, id string) (*entity.Product, error) {
	product, err := products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, id)
		}
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	if !product.Active {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, id)
	}
	return product, nil
}

// priceLines подставляет в строки корзины текущие цену и название из каталога.
// Строки с товарами, которых нет в продаже, остаются как есть; их id возвращаются отдельно.
func priceLines(ctx context.Context, products repository.ProductRepository, items []entity.CartItem) ([]entity.CartItem, []string, error) {
	if len(items) == 0 {
		return items, nil, nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	found, err := products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]entity.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	priced := make([]entity.CartItem, 0, len(items))
	var unavailable []string
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.Active {
			unavailable = append(unavailable, it.ProductID)
		} else {
			it.Title = p.Title
			it.UnitPrice = p.Price
		}
		priced = append(priced, it)
	}
	return priced, unavailable, nil
}
