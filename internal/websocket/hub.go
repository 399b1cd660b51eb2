package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub хранит локальные соединения этого экземпляра, сгруппированные по аккаунту
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	stopped bool

	delivered uint64
	dropped   uint64
}

// NewHub создает Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{})}
}

// Register добавляет клиента; false после Stop
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	set, ok := h.clients[c.AccountID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.AccountID] = set
	}
	set[c] = struct{}{}
	log.Printf("[Hub] Аккаунт %d подключен (ConnID: %s, соединений: %d)", c.AccountID, c.ConnectionID, len(set))
	return true
}

// Unregister удаляет клиента и закрывает его канал отправки
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.AccountID]; ok {
		if _, exists := set[c]; exists {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.AccountID)
			}
		}
	}
	h.mu.Unlock()
	c.CloseSend()
}

// SendToAccount отправляет сообщение всем локальным соединениям аккаунта.
// Возвращает число соединений, получивших сообщение.
func (h *Hub) SendToAccount(accountID uint, message []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[accountID]))
	for c := range h.clients[accountID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	var slow []*Client
	for _, c := range targets {
		if c.enqueue(message) {
			sent++
		} else {
			slow = append(slow, c)
		}
	}

	h.mu.Lock()
	h.delivered += uint64(sent)
	h.dropped += uint64(len(slow))
	h.mu.Unlock()

	// медленный клиент отключается, при переподключении он перечитает заказы по REST
	for _, c := range slow {
		log.Printf("[Hub] Буфер клиента аккаунта %d переполнен, соединение %s закрывается", c.AccountID, c.ConnectionID)
		h.Unregister(c)
	}
	return sent
}

// SendJSONToAccount сериализует v и отправляет аккаунту
func (h *Hub) SendJSONToAccount(accountID uint, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.SendToAccount(accountID, data)
	return nil
}

// ClientCount возвращает количество локальных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// GetMetrics возвращает метрики хаба для health-эндпоинта
func (h *Hub) GetMetrics() map[string]interface{} {
	h.mu.RLock()
	accounts := len(h.clients)
	delivered, dropped := h.delivered, h.dropped
	h.mu.RUnlock()
	return map[string]interface{}{
		"connections":        h.ClientCount(),
		"accounts":           accounts,
		"messages_delivered": delivered,
		"messages_dropped":   dropped,
	}
}

// Stop закрывает все соединения; новые регистрации отклоняются
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[uint]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.CloseSend()
	}
	log.Printf("[Hub] Остановлен, закрыто соединений: %d", len(all))
}
