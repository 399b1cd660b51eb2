package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront-api/internal/domain/entity"
	apperrors "github.com/yourusername/storefront-api/internal/pkg/errors"
	"github.com/yourusername/storefront-api/internal/service"
)

func sampleProduct() *entity.Product {
	return &entity.Product{ID: "mug", Title: "Mug", Category: "kitchen", Price: 200, Active: true}
}

func TestProductHandler_Public(t *testing.T) {
	t.Run("list by category", func(t *testing.T) {
		products := &MockProducts{}
		products.On("List", mock.Anything, "kitchen", 1, 20).Return(&service.ProductPage{
			Products: []entity.Product{*sampleProduct()}, Total: 1, Page: 1, Limit: 20,
		}, nil)

		c, w := newTestGinContext(http.MethodGet, "/api/products?category=kitchen", nil)
		NewProductHandler(products).List(c)

		require.Equal(t, http.StatusOK, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, float64(1), resp["total"])
		products.AssertExpectations(t)
	})

	t.Run("get", func(t *testing.T) {
		products := &MockProducts{}
		products.On("Get", mock.Anything, "mug").Return(sampleProduct(), nil)

		c, w := newTestGinContext(http.MethodGet, "/api/products/mug", nil)
		c.Params = gin.Params{{Key: "productId", Value: "mug"}}
		NewProductHandler(products).Get(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(200), parseJSONResponse(t, w)["price"])
	})

	t.Run("get retired", func(t *testing.T) {
		products := &MockProducts{}
		products.On("Get", mock.Anything, "retired").Return(nil, apperrors.ErrNotFound)

		c, w := newTestGinContext(http.MethodGet, "/api/products/retired", nil)
		c.Params = gin.Params{{Key: "productId", Value: "retired"}}
		NewProductHandler(products).Get(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProductHandler_Admin(t *testing.T) {
	t.Run("list includes retired", func(t *testing.T) {
		products := &MockProducts{}
		products.On("ListAll", mock.Anything, "", 1, 20).Return(&service.ProductPage{Products: []entity.Product{}}, nil)

		c, w := newTestGinContext(http.MethodGet, "/api/admin/products", nil)
		NewProductHandler(products).AdminList(c)

		assert.Equal(t, http.StatusOK, w.Code)
		products.AssertExpectations(t)
	})

	t.Run("create", func(t *testing.T) {
		products := &MockProducts{}
		input := service.ProductInput{ID: "mug", Title: "Mug", Category: "kitchen", Price: 200}
		products.On("Create", mock.Anything, input).Return(sampleProduct(), nil)

		c, w := newTestGinContext(http.MethodPost, "/api/admin/products", input)
		NewProductHandler(products).Create(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		products.AssertExpectations(t)
	})

	t.Run("create duplicate", func(t *testing.T) {
		products := &MockProducts{}
		products.On("Create", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConflict)

		c, w := newTestGinContext(http.MethodPost, "/api/admin/products", service.ProductInput{ID: "mug", Title: "Mug"})
		NewProductHandler(products).Create(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		products := &MockProducts{}
		retire := false
		input := service.ProductInput{Title: "Mug", Price: 250, Active: &retire}
		products.On("Update", mock.Anything, "mug", input).Return(sampleProduct(), nil)

		c, w := newTestGinContext(http.MethodPut, "/api/admin/products/mug", input)
		c.Params = gin.Params{{Key: "productId", Value: "mug"}}
		NewProductHandler(products).Update(c)

		assert.Equal(t, http.StatusOK, w.Code)
		products.AssertExpectations(t)
	})

	t.Run("update invalid", func(t *testing.T) {
		products := &MockProducts{}
		products.On("Update", mock.Anything, "mug", mock.Anything).Return(nil, apperrors.ErrValidation)

		c, w := newTestGinContext(http.MethodPut, "/api/admin/products/mug", map[string]interface{}{"price": -1})
		c.Params = gin.Params{{Key: "productId", Value: "mug"}}
		NewProductHandler(products).Update(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete missing", func(t *testing.T) {
		products := &MockProducts{}
		products.On("Delete", mock.Anything, "ghost").Return(apperrors.ErrNotFound)

		c, w := newTestGinContext(http.MethodDelete, "/api/admin/products/ghost", nil)
		c.Params = gin.Params{{Key: "productId", Value: "ghost"}}
		NewProductHandler(products).Delete(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
