package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
)

// OrderNotifier отправляет письма после оформления заказа
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *entity.Order) error
	SendOperatorAlert(ctx context.Context, order *entity.Order) error
}

// CheckoutConfig — параметры оформления заказа
type CheckoutConfig struct {
	Currency         string
	ReceiptPrefix    string
	GatewayTimeout   time.Duration
	DeliveryLeadTime time.Duration
	NotifyTimeout    time.Duration
}

// CheckoutDeps — зависимости CheckoutService
type CheckoutDeps struct {
	Carts    repository.CartRepository
	Products repository.ProductRepository
	Accounts repository.AccountRepository
	Orders   repository.OrderRepository
	Intents  repository.IntentStore
	Gateway  PaymentGateway
	Verifier *SignatureVerifier
	Pricing  PricingRules
	Notifier OrderNotifier
	Events   OrderEventPublisher
	Logger   *zerolog.Logger
}

// InitiateResult передается клиентскому виджету оплаты
type InitiateResult struct {
	IntentID string        `json:"intent_id"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	KeyID    string        `json:"key_id"`
	Receipt  string        `json:"receipt"`
	Totals   entity.Totals `json:"totals"`
}

// ConfirmItem — строка заказа в подтверждении оплаты.
// Title только для отображения на клиенте: в заказ попадает название из intent.
type ConfirmItem struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Title     string `json:"title" validate:"max=255"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

// ConfirmInput — подтверждение оплаты от клиента вместе с данными заказа.
// Строки и суммы должны совпасть со снимком, сохраненным при Initiate.
type ConfirmInput struct {
	GatewayOrderID   string        `json:"gateway_order_id" validate:"required,max=64"`
	GatewayPaymentID string        `json:"gateway_payment_id" validate:"required,max=64"`
	Signature        string        `json:"signature" validate:"required,max=128"`
	Items            []ConfirmItem `json:"items" validate:"required,min=1,max=100,unique=ProductID,dive"`
	Subtotal         int64         `json:"subtotal" validate:"gte=0"`
	Tax              int64         `json:"tax" validate:"gte=0"`
	Shipping         int64         `json:"shipping" validate:"gte=0"`
	Total            int64         `json:"total" validate:"gte=0"`
}

func (in ConfirmInput) normalized() ConfirmInput {
	in.GatewayOrderID = strings.TrimSpace(in.GatewayOrderID)
	in.GatewayPaymentID = strings.TrimSpace(in.GatewayPaymentID)
	items := make([]ConfirmItem, len(in.Items))
	for i, it := range in.Items {
		it.ProductID = strings.TrimSpace(it.ProductID)
		it.Title = strings.TrimSpace(it.Title)
		items[i] = it
	}
	if in.Items != nil {
		in.Items = items
	}
	return in
}

func (in ConfirmInput) totals() entity.Totals {
	return entity.Totals{Subtotal: in.Subtotal, Tax: in.Tax, Shipping: in.Shipping, Total: in.Total}
}

// matchesSnapshot сравнивает строки подтверждения со снимком intent без учета порядка.
// ProductID в подтверждении уникальны (проверяет валидатор).
func (in ConfirmInput) matchesSnapshot(snapshot []entity.CartItem) bool {
	if len(in.Items) != len(snapshot) {
		return false
	}
	want := make(map[string]entity.CartItem, len(snapshot))
	for _, it := range snapshot {
		want[it.ProductID] = it
	}
	for _, it := range in.Items {
		w, ok := want[it.ProductID]
		if !ok || w.Quantity != it.Quantity || w.UnitPrice != it.UnitPrice {
			return false
		}
		delete(want, it.ProductID)
	}
	return len(want) == 0
}

// CommitResult — созданный или ранее сохраненный заказ
type CommitResult struct {
	Order     *entity.Order `json:"order"`
	Duplicate bool          `json:"duplicate"`
}

// CheckoutService создает платежные intent и фиксирует заказы после проверки подписи
type CheckoutService struct {
	deps CheckoutDeps
	cfg  CheckoutConfig
	now  func() time.Time
	wg   sync.WaitGroup
}

// NewCheckoutService создает CheckoutService
func NewCheckoutService(deps CheckoutDeps, cfg CheckoutConfig) (*CheckoutService, error) {
	switch {
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart repository is required")
	case deps.Products == nil:
		return nil, fmt.Errorf("product repository is required")
	case deps.Accounts == nil:
		return nil, fmt.Errorf("account repository is required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("order repository is required")
	case deps.Intents == nil:
		return nil, fmt.Errorf("intent store is required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("payment gateway is required")
	case deps.Verifier == nil:
		return nil, fmt.Errorf("signature verifier is required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("order notifier is required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Events == nil {
		deps.Events = noopEventPublisher{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.ReceiptPrefix == "" {
		cfg.ReceiptPrefix = "rcpt"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if cfg.DeliveryLeadTime <= 0 {
		cfg.DeliveryLeadTime = entity.DefaultDeliveryLeadTime
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}
	return &CheckoutService{deps: deps, cfg: cfg, now: time.Now}, nil
}

// Initiate пересчитывает суммы по текущей корзине и ценам каталога и создает заказ
// в платежном шлюзе. clientTotal, если передан, должен совпасть с серверным расчетом.
// Корзина не меняется, заказ не создается; снимок строк сохраняется вместе с intent.
func (s *CheckoutService) Initiate(ctx context.Context, accountID uint, clientTotal *int64) (*InitiateResult, error) {
	snapshot, err := s.deps.Carts.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}
	lines, unavailable, err := priceLines(ctx, s.deps.Products, snapshot.Items)
	if err != nil {
		return nil, err
	}
	if len(unavailable) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, strings.Join(unavailable, ", "))
	}

	totals, err := s.deps.Pricing.Quote(lines)
	if err != nil {
		return nil, err
	}
	if clientTotal != nil && *clientTotal != totals.Total {
		return nil, fmt.Errorf("%w: client total %d, server total %d", ErrAmountMismatch, *clientTotal, totals.Total)
	}
	if totals.Total <= 0 {
		return nil, ErrInvalidAmount
	}
	if !s.deps.Verifier.Configured() {
		s.deps.Logger.Error().Uint("account_id", accountID).Msg("payment secret is not configured")
		return nil, fmt.Errorf("%w: payment secret is not configured", ErrGatewayUnavailable)
	}

	receipt := fmt.Sprintf("%s_%d_%s", s.cfg.ReceiptPrefix, accountID, strings.ReplaceAll(uuid.NewString(), "-", "")[:10])

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	intent, err := s.deps.Gateway.CreateIntent(gatewayCtx, totals.Total, s.cfg.Currency, receipt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		s.deps.Logger.Error().Err(err).Uint("account_id", accountID).Int64("amount", totals.Total).Msg("payment intent creation failed")
		return nil, err
	}
	if intent.Amount != totals.Total {
		s.deps.Logger.Error().Str("intent_id", intent.ID).Int64("amount", intent.Amount).Int64("expected", totals.Total).
			Msg("gateway returned unexpected amount")
		return nil, fmt.Errorf("%w: gateway amount mismatch", ErrGatewayUnavailable)
	}

	checkoutIntent := &entity.CheckoutIntent{
		Intent:    *intent,
		AccountID: accountID,
		Totals:    totals,
		Items:     lines,
		CreatedAt: s.now(),
	}
	if err := s.deps.Intents.Save(ctx, checkoutIntent); err != nil {
		// Без сохраненного снимка оплату нельзя будет подтвердить
		s.deps.Logger.Error().Err(err).Str("intent_id", intent.ID).Uint("account_id", accountID).Msg("failed to store checkout intent")
		return nil, fmt.Errorf("failed to store checkout intent: %w", err)
	}

	log.Printf("[Checkout] Создан intent %s для аккаунта ID=%d на сумму %d %s", intent.ID, accountID, intent.Amount, intent.Currency)
	return &InitiateResult{
		IntentID: intent.ID,
		Amount:   intent.Amount,
		Currency: intent.Currency,
		KeyID:    s.deps.Gateway.KeyID(),
		Receipt:  intent.Receipt,
		Totals:   totals,
	}, nil
}

// VerifyAndCommit проверяет подпись оплаты и создает заказ из снимка, сохраненного при Initiate.
// До успешной проверки подписи никаких записей не делается; повторный вызов
// с тем же gateway payment id возвращает уже созданный заказ.
func (s *CheckoutService) VerifyAndCommit(ctx context.Context, accountID uint, input ConfirmInput) (*CommitResult, error) {
	input = input.normalized()
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if !s.deps.Verifier.Configured() {
		return nil, fmt.Errorf("%w: payment secret is not configured", ErrGatewayUnavailable)
	}

	logEvent := func(e *zerolog.Event) *zerolog.Event {
		return e.Str("intent_id", input.GatewayOrderID).Str("payment_id", input.GatewayPaymentID).Uint("account_id", accountID)
	}

	if !s.deps.Verifier.Verify(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		logEvent(s.deps.Logger.Warn()).Msg("payment signature rejected")
		return nil, ErrVerificationFailed
	}

	existing, err := s.deps.Orders.GetByPaymentID(ctx, input.GatewayPaymentID)
	switch {
	case err == nil:
		return s.duplicateResult(existing, accountID, logEvent)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing order: %w", err)
	}

	account, err := s.deps.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !account.Address.IsComplete() {
		return nil, ErrAddressMissing
	}

	intent, err := s.loadIntent(ctx, accountID, input, logEvent)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(account, intent, input)
	if err := s.deps.Orders.Create(ctx, order); err != nil {
		if errors.Is(err, apperrors.ErrDuplicatePayment) {
			// Параллельный запрос с тем же платежом успел создать заказ
			existing, getErr := s.deps.Orders.GetByPaymentID(ctx, input.GatewayPaymentID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load order after duplicate payment: %w", getErr)
			}
			return s.duplicateResult(existing, accountID, logEvent)
		}
		logEvent(s.deps.Logger.Error()).Err(err).Msg("failed to persist order after verified payment")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logEvent(s.deps.Logger.Info()).Uint("order_id", order.ID).Int64("total", order.Total).Msg("order committed")

	// Деньги уже списаны: ошибки ниже не отменяют заказ
	if err := s.deps.Carts.RemoveLines(ctx, accountID, intent.Items); err != nil {
		logEvent(s.deps.Logger.Error()).Err(err).Uint("order_id", order.ID).Msg("failed to clear committed cart lines")
	}
	if err := s.deps.Intents.MarkConsumed(ctx, intent.Intent.ID, order.CreatedAt); err != nil {
		log.Printf("[Checkout] Не удалось отметить intent %s использованным: %v", intent.Intent.ID, err)
	}

	s.notifyAsync(order)
	s.publishCreated(ctx, order)

	return &CommitResult{Order: order, Duplicate: false}, nil
}

func (s *CheckoutService) duplicateResult(existing *entity.Order, accountID uint, logEvent func(*zerolog.Event) *zerolog.Event) (*CommitResult, error) {
	if existing.AccountID != accountID {
		logEvent(s.deps.Logger.Warn()).Uint("order_id", existing.ID).Msg("payment id already committed by another account")
		return nil, ErrVerificationFailed
	}
	logEvent(s.deps.Logger.Info()).Uint("order_id", existing.ID).Msg("duplicate payment confirmation, returning existing order")
	return &CommitResult{Order: existing, Duplicate: true}, nil
}

// loadIntent находит intent, созданный при Initiate, и сверяет с ним подтверждение.
// Без intent списанную сумму подтвердить нечем, заказ не создается.
func (s *CheckoutService) loadIntent(ctx context.Context, accountID uint, input ConfirmInput, logEvent func(*zerolog.Event) *zerolog.Event) (*entity.CheckoutIntent, error) {
	intent, err := s.deps.Intents.Get(ctx, input.GatewayOrderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logEvent(s.deps.Logger.Warn()).Msg("checkout intent not found, charged amount cannot be confirmed")
			return nil, fmt.Errorf("%w: unknown intent %s", ErrAmountMismatch, input.GatewayOrderID)
		}
		logEvent(s.deps.Logger.Error()).Err(err).Msg("failed to load checkout intent")
		return nil, fmt.Errorf("failed to load checkout intent: %w", err)
	}
	if intent.AccountID != accountID {
		logEvent(s.deps.Logger.Warn()).Uint("intent_account_id", intent.AccountID).Msg("checkout intent belongs to another account")
		return nil, ErrVerificationFailed
	}
	if intent.Intent.Amount != intent.Totals.Total || !intent.Totals.Balanced() {
		logEvent(s.deps.Logger.Error()).Int64("intent_amount", intent.Intent.Amount).Int64("intent_total", intent.Totals.Total).
			Msg("stored checkout intent is inconsistent")
		return nil, fmt.Errorf("%w: charged %d, intent total %d", ErrAmountMismatch, intent.Intent.Amount, intent.Totals.Total)
	}
	if input.totals() != intent.Totals || !input.matchesSnapshot(intent.Items) {
		logEvent(s.deps.Logger.Warn()).Int64("submitted_total", input.Total).Int64("charged_amount", intent.Intent.Amount).
			Msg("submitted order differs from checkout intent")
		return nil, fmt.Errorf("%w: submitted total %d, charged %d", ErrAmountMismatch, input.Total, intent.Intent.Amount)
	}
	return intent, nil
}

func (s *CheckoutService) buildOrder(account *entity.Account, intent *entity.CheckoutIntent, input ConfirmInput) *entity.Order {
	createdAt := s.now()
	items := make([]entity.OrderItem, 0, len(intent.Items))
	for _, l := range intent.Items {
		items = append(items, entity.OrderItem{
			ProductID: l.ProductID,
			Title:     l.Title,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal(),
		})
	}
	currency := intent.Intent.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	return &entity.Order{
		AccountID:       account.ID,
		BuyerEmail:      account.Email,
		BuyerName:       account.Name,
		Items:           items,
		ShippingAddress: account.Address.Snapshot(),
		Payment: entity.PaymentRecord{
			GatewayOrderID:   input.GatewayOrderID,
			GatewayPaymentID: input.GatewayPaymentID,
			Signature:        input.Signature,
			Amount:           intent.Intent.Amount,
			Currency:         currency,
		},
		Status:              entity.OrderStatusConfirmed,
		Subtotal:            intent.Totals.Subtotal,
		Tax:                 intent.Totals.Tax,
		Shipping:            intent.Totals.Shipping,
		Total:               intent.Totals.Total,
		EstimatedDeliveryAt: entity.EstimateDelivery(createdAt, s.cfg.DeliveryLeadTime),
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}
}

// notifyAsync отправляет письма покупателю и оператору независимо друг от друга
func (s *CheckoutService) notifyAsync(order *entity.Order) {
	send := func(kind string, fn func(context.Context, *entity.Order) error) {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
		defer cancel()
		if err := fn(ctx, order); err != nil {
			s.deps.Logger.Error().Err(err).Uint("order_id", order.ID).Str("notification", kind).Msg("order notification failed")
		}
	}
	s.wg.Add(2)
	go send("buyer_confirmation", s.deps.Notifier.SendOrderConfirmation)
	go send("operator_alert", s.deps.Notifier.SendOperatorAlert)
}

func (s *CheckoutService) publishCreated(ctx context.Context, order *entity.Order) {
	event := OrderEvent{
		Type:       EventOrderCreated,
		AccountID:  order.AccountID,
		OrderID:    order.ID,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: order.CreatedAt,
	}
	if err := s.deps.Events.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("[Checkout] Не удалось опубликовать событие %s для заказа ID=%d: %v", event.Type, order.ID, err)
	}
}

// Wait дожидается завершения фоновых отправок писем (graceful shutdown, тесты)
func (s *CheckoutService) Wait() {
	s.wg.Wait()
}
