package helper

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/storefront-api/internal/middleware"
	"github.com/yourusername/storefront-api/pkg/auth"
)

// AccountID возвращает ID аккаунта, установленный RequireAuth
func AccountID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(middleware.ContextAccountID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// Claims возвращает claims текущего токена
func Claims(c *gin.Context) (*auth.JWTCustomClaims, bool) {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.JWTCustomClaims)
	return claims, ok
}

// PageParams читает page и limit из query. Некорректные значения заменяются значениями по умолчанию,
// верхнюю границу limit ограничивает сервис.
func PageParams(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	return page, limit
}
