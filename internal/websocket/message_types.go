package websocket

import "github.com/yourusername/storefront-api/internal/service"

// Типы сообщений, которые сервер отправляет клиенту
const (
	// ORDER_CREATED сообщает о новом заказе аккаунта
	ORDER_CREATED = service.EventOrderCreated

	// ORDER_STATUS_CHANGED сообщает о смене статуса заказа
	ORDER_STATUS_CHANGED = service.EventOrderStatusChanged

	// SERVER_ERROR — ошибка обработки клиентского сообщения
	SERVER_ERROR = "server:error"

	// PONG — ответ на client:ping
	PONG = "server:pong"
)

// Типы сообщений от клиента
const (
	CLIENT_PING = "client:ping"
)
