package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/yourusername/storefront-api/internal/service"
)

// OrderEventsChannel — канал Redis, через который экземпляры API обмениваются событиями заказов
const OrderEventsChannel = "storefront:order-events"

// ClusterMessage представляет событие, передаваемое между экземплярами
type ClusterMessage struct {
	InstanceID string          `json:"instance_id"`
	AccountID  uint            `json:"account_id"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}

// OrderEventBus реализует service.OrderEventPublisher: событие уходит в Redis,
// каждый экземпляр (включая отправителя) доставляет его своим локальным соединениям.
// Без Redis события доставляются только локально.
type OrderEventBus struct {
	hub        *Hub
	client     redis.UniversalClient
	channel    string
	instanceID string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrderEventBus создает шину; client может быть nil
func NewOrderEventBus(hub *Hub, client redis.UniversalClient) *OrderEventBus {
	return &OrderEventBus{
		hub:        hub,
		client:     client,
		channel:    OrderEventsChannel,
		instanceID: uuid.NewString(),
	}
}

func eventPayload(e service.OrderEvent) ([]byte, error) {
	return json.Marshal(Event{Type: e.Type, Data: e})
}

// PublishOrderEvent публикует событие заказа владельцу заказа
func (b *OrderEventBus) PublishOrderEvent(ctx context.Context, e service.OrderEvent) error {
	payload, err := eventPayload(e)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}
	if b.client == nil {
		b.hub.SendToAccount(e.AccountID, payload)
		return nil
	}

	data, err := json.Marshal(ClusterMessage{
		InstanceID: b.instanceID,
		AccountID:  e.AccountID,
		Payload:    payload,
		Timestamp:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cluster message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		// Redis недоступен: хотя бы локальные соединения получат событие
		log.Printf("[OrderEventBus] Ошибка публикации в %s: %v, доставляем локально", b.channel, err)
		b.hub.SendToAccount(e.AccountID, payload)
		return err
	}
	return nil
}

// Start подписывается на канал Redis и доставляет события локальному хабу
func (b *OrderEventBus) Start(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	ctx, b.cancel = context.WithCancel(ctx)

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		b.cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	log.Printf("[OrderEventBus] Подписка на %s, экземпляр %s", b.channel, b.instanceID)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Printf("[OrderEventBus] Канал %s закрыт сервером", b.channel)
					return
				}
				b.deliver([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (b *OrderEventBus) deliver(data []byte) {
	var msg ClusterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[OrderEventBus] Некорректное сообщение кластера: %v", err)
		return
	}
	if msg.AccountID == 0 || len(msg.Payload) == 0 {
		return
	}
	b.hub.SendToAccount(msg.AccountID, msg.Payload)
}

// Stop останавливает подписку
func (b *OrderEventBus) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}
