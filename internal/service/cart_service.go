package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// CartItemInput — строка корзины от клиента. Цена и название берутся из каталога.
type CartItemInput struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

func (in CartItemInput) normalized() CartItemInput {
	in.ProductID = strings.TrimSpace(in.ProductID)
	return in
}

// CartView — корзина с рассчитанными суммами.
// Unavailable перечисляет товары, снятые с продажи; в суммы они не входят.
type CartView struct {
	Items       []entity.CartItem `json:"items"`
	ItemCount   int               `json:"item_count"`
	Totals      entity.Totals     `json:"totals"`
	Unavailable []string          `json:"unavailable,omitempty"`
}

// CartService управляет корзиной аккаунта
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	pricing  PricingRules
}

// NewCartService создает CartService
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, pricing PricingRules) (*CartService, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	return &CartService{carts: carts, products: products, pricing: pricing}, nil
}

// Get возвращает корзину по текущим ценам каталога
func (s *CartService) Get(ctx context.Context, accountID uint) (*CartView, error) {
	snapshot, err := s.carts.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	items, unavailable, err := priceLines(ctx, s.products, snapshot.Items)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entity.CartItem{}
	}

	billable := items
	if len(unavailable) > 0 {
		skip := make(map[string]bool, len(unavailable))
		for _, id := range unavailable {
			skip[id] = true
		}
		billable = make([]entity.CartItem, 0, len(items))
		for _, it := range items {
			if !skip[it.ProductID] {
				billable = append(billable, it)
			}
		}
	}
	totals, err := s.pricing.Quote(billable)
	if err != nil {
		return nil, err
	}
	return &CartView{
		Items:       items,
		ItemCount:   snapshot.ItemCount(),
		Totals:      totals,
		Unavailable: unavailable,
	}, nil
}

// AddItem добавляет товар из каталога; повторное добавление увеличивает количество
func (s *CartService) AddItem(ctx context.Context, accountID uint, input CartItemInput) (*CartView, error) {
	input = input.normalized()
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	product, err := lookupProduct(ctx, s.products, input.ProductID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.AddItem(ctx, accountID, cartLine(product, input.Quantity)); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return s.Get(ctx, accountID)
}

// UpdateQuantity задает количество; 0 удаляет строку
func (s *CartService) UpdateQuantity(ctx context.Context, accountID uint, productID string, quantity int) (*CartView, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, fmt.Errorf("%w: product id is required", apperrors.ErrValidation)
	}
	if quantity < 0 || quantity > entity.MaxCartLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", apperrors.ErrValidation, entity.MaxCartLineQuantity)
	}
	var err error
	if quantity == 0 {
		err = s.carts.RemoveItem(ctx, accountID, productID)
	} else {
		err = s.carts.SetQuantity(ctx, accountID, productID, quantity)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, accountID)
}

// RemoveItem удаляет строку корзины
func (s *CartService) RemoveItem(ctx context.Context, accountID uint, productID string) (*CartView, error) {
	if err := s.carts.RemoveItem(ctx, accountID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, accountID)
}

// Clear очищает корзину
func (s *CartService) Clear(ctx context.Context, accountID uint) error {
	return s.carts.Clear(ctx, accountID)
}

// Sync сливает локальную корзину клиента с серверной: количества складываются.
// Если хотя бы один товар не в продаже, корзина не меняется.
func (s *CartService) Sync(ctx context.Context, accountID uint, items []CartItemInput) (*CartView, error) {
	ids := make([]string, 0, len(items))
	for i := range items {
		items[i] = items[i].normalized()
		if err := validateStruct(items[i]); err != nil {
			return nil, err
		}
		ids = append(ids, items[i].ProductID)
	}

	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]*entity.Product, len(found))
	for i := range found {
		if found[i].Active {
			byID[found[i].ID] = &found[i]
		}
	}
	var missing []string
	for _, id := range ids {
		if byID[id] == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, strings.Join(missing, ", "))
	}

	for _, in := range items {
		if err := s.carts.AddItem(ctx, accountID, cartLine(byID[in.ProductID], in.Quantity)); err != nil {
			return nil, fmt.Errorf("failed to merge cart item %s: %w", in.ProductID, err)
		}
	}
	return s.Get(ctx, accountID)
}

func cartLine(p *entity.Product, quantity int) entity.CartItem {
	return entity.CartItem{
		ProductID: p.ID,
		Title:     p.Title,
		UnitPrice: p.Price,
		Quantity:  quantity,
	}
}
