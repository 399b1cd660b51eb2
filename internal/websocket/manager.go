package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Manager обрабатывает входящие WebSocket сообщения
type Manager struct {
	hub            *Hub
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket с обработчиком client:ping
func NewManager(hub *Hub) *Manager {
	m := &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
	m.RegisterHandler(CLIENT_PING, func(_ json.RawMessage, client *Client) error {
		m.sendToClient(client, Event{Type: PONG})
		return nil
	})
	return m
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}
	return handler(event.Data, client)
}

// SendErrorToClient отправляет сообщение об ошибке только этому соединению
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	m.sendToClient(client, Event{
		Type: SERVER_ERROR,
		Data: map[string]string{"code": code, "message": message},
	})
}

func (m *Manager) sendToClient(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации %s: %v", event.Type, err)
		return
	}
	if !client.enqueue(data) {
		log.Printf("[WebSocketManager] Не удалось отправить %s соединению %s", event.Type, client.ConnectionID)
	}
}
