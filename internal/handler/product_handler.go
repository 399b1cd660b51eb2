package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	"github.com/yourusername/storefront-api/internal/handler/helper"
	"github.com/yourusername/storefront-api/internal/service"
)

// ProductUseCase — каталог товаров
type ProductUseCase interface {
	List(ctx context.Context, category string, page, limit int) (*service.ProductPage, error)
	Get(ctx context.Context, id string) (*entity.Product, error)
	ListAll(ctx context.Context, category string, page, limit int) (*service.ProductPage, error)
	Create(ctx context.Context, input service.ProductInput) (*entity.Product, error)
	Update(ctx context.Context, id string, input service.ProductInput) (*entity.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductHandler отдает каталог покупателям и редактирует его для оператора
type ProductHandler struct {
	products ProductUseCase
}

// NewProductHandler создает обработчик каталога
func NewProductHandler(products ProductUseCase) *ProductHandler {
	return &ProductHandler{products: products}
}

// List возвращает товары в продаже, ?category= фильтрует по категории
func (h *ProductHandler) List(c *gin.Context) {
	page, limit := helper.PageParams(c)
	result, err := h.products.List(c.Request.Context(), c.Query("category"), page, limit)
	if err != nil {
		respondError(c, "ProductHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get возвращает товар по id
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("productId"))
	if err != nil {
		respondError(c, "ProductHandler", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// AdminList возвращает весь каталог, включая снятые с продажи товары
func (h *ProductHandler) AdminList(c *gin.Context) {
	page, limit := helper.PageParams(c)
	result, err := h.products.ListAll(c.Request.Context(), c.Query("category"), page, limit)
	if err != nil {
		respondError(c, "ProductHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Create добавляет товар
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, "ProductHandler", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// Update перезаписывает товар
func (h *ProductHandler) Update(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	product, err := h.products.Update(c.Request.Context(), c.Param("productId"), req)
	if err != nil {
		respondError(c, "ProductHandler", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete удаляет товар
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("productId")); err != nil {
		respondError(c, "ProductHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
