package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/middleware"
	"github.com/yourusername/storefront-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения покупателей
type WSHandler struct {
	hub      *websocket.Hub
	manager  *websocket.Manager
	tokens   middleware.TokenParser
	upgrader gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins совпадает со списком CORS; пустой Origin (не браузер) разрешен.
func NewWSHandler(hub *websocket.Hub, manager *websocket.Manager, tokens middleware.TokenParser, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub:     hub,
		manager: manager,
		tokens:  tokens,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Printf("[WSHandler] Отклонен origin: %s", origin)
				return false
			},
		},
	}
}

// HandleConnection проверяет токен из ?token= и подписывает соединение на события заказов аккаунта
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// токен не логируем
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token parameter", "error_type": "token_missing"})
		return
	}

	claims, err := h.tokens.ParseToken(c.Request.Context(), token)
	if err != nil {
		log.Printf("[WSHandler] Недействительный токен: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
		return
	}
	if claims.Role != entity.RoleCustomer || claims.AccountID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Customer access required", "error_type": "forbidden"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Ошибка upgrade для аккаунта ID=%d: %v", claims.AccountID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.AccountID)
	client.StartPumps(h.manager.HandleMessage)
	log.Printf("[WSHandler] Аккаунт ID=%d подключен (conn %s)", claims.AccountID, client.ConnectionID)
}
