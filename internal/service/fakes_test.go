package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
	"github.com/yourusername/storefront-api/pkg/auth"
	"github.com/yourusername/storefront-api/pkg/logger"
)

// ============================================================================
// In-memory хранилища для тестов сервисов
// ============================================================================

type memAccountRepo struct {
	mu        sync.Mutex
	nextID    uint
	accounts  map[uint]*entity.Account
	addresses map[uint]*entity.ShippingAddress
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		accounts:  map[uint]*entity.Account{},
		addresses: map[uint]*entity.ShippingAddress{},
	}
}

func (r *memAccountRepo) Create(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return apperrors.ErrConflict
		}
	}
	r.nextID++
	a.ID = r.nextID
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *memAccountRepo) withAddress(a *entity.Account) *entity.Account {
	cp := *a
	if addr, ok := r.addresses[a.ID]; ok {
		addrCopy := *addr
		cp.Address = &addrCopy
	}
	return &cp
}

func (r *memAccountRepo) GetByID(_ context.Context, id uint) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.withAddress(a), nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return r.withAddress(a), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memAccountRepo) Update(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *a
	cp.Address = nil
	r.accounts[a.ID] = &cp
	return nil
}

func (r *memAccountRepo) MarkVerified(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if a.VerificationState != entity.VerificationVerified {
		a.VerificationState = entity.VerificationVerified
		a.VerifiedAt = &at
	}
	return nil
}

func (r *memAccountRepo) TouchLogin(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.LastLoginAt = &at
	return nil
}

func (r *memAccountRepo) List(_ context.Context, f repository.AccountFilter) ([]entity.Account, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var all []entity.Account
	for _, a := range r.accounts {
		if search != "" && !strings.Contains(a.Email, search) && !strings.Contains(strings.ToLower(a.Name), search) {
			continue
		}
		all = append(all, *r.withAddress(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []entity.Account{}, total, nil
	}
	end := f.Offset + f.Limit
	if f.Limit == 0 || end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], total, nil
}

func (r *memAccountRepo) GetAddress(_ context.Context, accountID uint) (*entity.ShippingAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.addresses[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *addr
	return &cp, nil
}

func (r *memAccountRepo) UpsertAddress(_ context.Context, addr *entity.ShippingAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *addr
	r.addresses[addr.AccountID] = &cp
	return nil
}

type memCartRepo struct {
	mu    sync.Mutex
	carts map[uint][]entity.CartItem
	// removeErr имитирует сбой очистки после фиксации заказа
	removeErr error
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[uint][]entity.CartItem{}}
}

func (r *memCartRepo) Get(_ context.Context, accountID uint) (*entity.CartSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]entity.CartItem, len(r.carts[accountID]))
	copy(items, r.carts[accountID])
	return &entity.CartSnapshot{AccountID: accountID, Items: items}, nil
}

func (r *memCartRepo) AddItem(_ context.Context, accountID uint, item entity.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.carts[accountID] {
		if r.carts[accountID][i].ProductID == item.ProductID {
			r.carts[accountID][i].Quantity += item.Quantity
			if r.carts[accountID][i].Quantity > entity.MaxCartLineQuantity {
				r.carts[accountID][i].Quantity = entity.MaxCartLineQuantity
			}
			r.carts[accountID][i].UnitPrice = item.UnitPrice
			r.carts[accountID][i].Title = item.Title
			return nil
		}
	}
	item.AccountID = accountID
	r.carts[accountID] = append(r.carts[accountID], item)
	return nil
}

func (r *memCartRepo) SetQuantity(_ context.Context, accountID uint, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.carts[accountID] {
		if r.carts[accountID][i].ProductID == productID {
			r.carts[accountID][i].Quantity = quantity
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *memCartRepo) RemoveItem(_ context.Context, accountID uint, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.carts[accountID]
	for i := range items {
		if items[i].ProductID == productID {
			r.carts[accountID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *memCartRepo) Clear(_ context.Context, accountID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, accountID)
	return nil
}

func (r *memCartRepo) RemoveLines(_ context.Context, accountID uint, lines []entity.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeErr != nil {
		return r.removeErr
	}
	dec := map[string]int{}
	for _, l := range lines {
		dec[l.ProductID] += l.Quantity
	}
	kept := r.carts[accountID][:0:0]
	for _, it := range r.carts[accountID] {
		it.Quantity -= dec[it.ProductID]
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	r.carts[accountID] = kept
	return nil
}

type memOrderRepo struct {
	mu        sync.Mutex
	nextID    uint
	orders    map[uint]*entity.Order
	createErr error
	// beforeCreate вызывается внутри Create до проверки уникальности (для гонок)
	beforeCreate func()
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[uint]*entity.Order{}}
}

func (r *memOrderRepo) Create(_ context.Context, o *entity.Order) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.orders {
		if existing.Payment.GatewayPaymentID == o.Payment.GatewayPaymentID {
			return apperrors.ErrDuplicatePayment
		}
	}
	r.nextID++
	o.ID = r.nextID
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uint) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) GetByPaymentID(_ context.Context, paymentID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Payment.GatewayPaymentID == paymentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memOrderRepo) List(_ context.Context, f repository.OrderFilter) ([]entity.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.Order
	for _, o := range r.orders {
		if f.AccountID != 0 && o.AccountID != f.AccountID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []entity.Order{}, total, nil
	}
	end := f.Offset + f.Limit
	if f.Limit == 0 || end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], total, nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id uint, from, to entity.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if o.Status != from {
		return apperrors.ErrConflict
	}
	o.Status = to
	return nil
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type memIntentStore struct {
	mu      sync.Mutex
	intents map[string]*entity.CheckoutIntent
	saveErr error
	getErr  error
}

func newMemIntentStore() *memIntentStore {
	return &memIntentStore{intents: map[string]*entity.CheckoutIntent{}}
}

func (s *memIntentStore) Save(_ context.Context, intent *entity.CheckoutIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.intents[intent.Intent.ID]; ok {
		return apperrors.ErrConflict
	}
	cp := *intent
	cp.Items = append([]entity.CartItem(nil), intent.Items...)
	s.intents[intent.Intent.ID] = &cp
	return nil
}

func (s *memIntentStore) Get(_ context.Context, id string) (*entity.CheckoutIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	in, ok := s.intents[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *in
	cp.Items = append([]entity.CartItem(nil), in.Items...)
	return &cp, nil
}

func (s *memIntentStore) MarkConsumed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if in.ConsumedAt == nil {
		in.ConsumedAt = &at
	}
	return nil
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]entity.Product
}

func newMemProductRepo(products ...entity.Product) *memProductRepo {
	r := &memProductRepo{products: map[string]entity.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// testCatalog — каталог, общий для тестов корзины и оформления
func testCatalog() *memProductRepo {
	return newMemProductRepo(
		entity.Product{ID: "mug", Title: "Mug", Category: "kitchen", Price: 200, Active: true},
		entity.Product{ID: "pen", Title: "Pen", Category: "office", Price: 50, Active: true},
		entity.Product{ID: "tv", Title: "Television", Category: "electronics", Price: 100000, Active: true},
		entity.Product{ID: "free", Title: "Sample", Category: "promo", Price: 0, Active: true},
		entity.Product{ID: "retired", Title: "Old Lamp", Category: "home", Price: 900, Active: false},
	)
}

func (r *memProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return apperrors.ErrConflict
	}
	r.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *memProductRepo) GetByIDs(_ context.Context, ids []string) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) List(_ context.Context, f repository.ProductFilter) ([]entity.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.Product
	for _, p := range r.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.ActiveOnly && !p.Active {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []entity.Product{}, total, nil
	}
	end := f.Offset + f.Limit
	if f.Limit == 0 || end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], total, nil
}

func (r *memProductRepo) Update(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memProductRepo) setPrice(id string, price int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.products[id]
	p.Price = price
	r.products[id] = p
}

// ============================================================================
// Моки
// ============================================================================

// MockOrderNotifier реализует OrderNotifier
type MockOrderNotifier struct {
	mock.Mock
}

func (m *MockOrderNotifier) SendOrderConfirmation(ctx context.Context, order *entity.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderNotifier) SendOperatorAlert(ctx context.Context, order *entity.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockOTPNotifier реализует OTPNotifier и запоминает последний код
type MockOTPNotifier struct {
	mock.Mock
	mu       sync.Mutex
	lastCode string
}

func (m *MockOTPNotifier) SendOTP(ctx context.Context, email, name, code, purpose string) error {
	m.mu.Lock()
	m.lastCode = code
	m.mu.Unlock()
	args := m.Called(ctx, email, name, code, purpose)
	return args.Error(0)
}

func (m *MockOTPNotifier) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

// MockTokenService реализует TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(accountID uint, email, role string) (string, error) {
	args := m.Called(accountID, email, role)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) RevokeToken(ctx context.Context, claims *auth.JWTCustomClaims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

// MockPaymentGateway реализует PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*entity.PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaymentIntent), args.Error(1)
}

func (m *MockPaymentGateway) KeyID() string { return "rzp_test_key" }

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, e OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OrderEvent(nil), p.events...)
}

var testLogger = logger.Nop()
