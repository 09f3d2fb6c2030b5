package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/service"
)

// ProductController handles HTTP requests for composite product operations.
type ProductController struct {
	productService *service.ProductService
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService *service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// CreateProduct handles the HTTP POST request for creating a product with all its components.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	sku, ok := param(c, keyParam)
	if !ok {
		return
	}
	body, ok := rawBody(c)
	if !ok {
		return
	}
	respond(c, pc.productService.Create(c.Request.Context(), sku, body))
}

// GetProduct handles the HTTP GET request for reading a product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	sku, ok := param(c, keyParam)
	if !ok {
		return
	}
	respond(c, pc.productService.Read(c.Request.Context(), sku, c.Request.URL.Query()))
}

// UpdateProduct handles the HTTP PUT request for updating some components of a product.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	sku, ok := param(c, keyParam)
	if !ok {
		return
	}
	body, ok := rawBody(c)
	if !ok {
		return
	}
	respond(c, pc.productService.Update(c.Request.Context(), sku, body))
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by sku.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	sku, ok := param(c, keyParam)
	if !ok {
		return
	}
	respond(c, pc.productService.Delete(c.Request.Context(), sku))
}
