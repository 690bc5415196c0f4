package controllers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// CatalogController serves category and product management plus the public menu
type CatalogController struct {
	catalog *services.CatalogService
	logger  *slog.Logger
}

// NewCatalogController creates a catalog controller
func NewCatalogController(catalog *services.CatalogService, logger *slog.Logger) *CatalogController {
	return &CatalogController{catalog: catalog, logger: logger}
}

func refreshRequested(c *gin.Context) bool {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	return refresh
}

// optionalImage returns the "image" form file, or nil when the request has none
func optionalImage(c *gin.Context) (*multipart.FileHeader, error) {
	if c.ContentType() != "multipart/form-data" {
		return nil, nil
	}
	fileHeader, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	return fileHeader, err
}

// ListCategories handles GET /api/v1/catalog/categories?refresh=true
func (ctl *CatalogController) ListCategories(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	categories, err := ctl.catalog.Categories(c.Request.Context(), session.ID, refreshRequested(c))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/catalog/categories
func (ctl *CatalogController) CreateCategory(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	category, err := ctl.catalog.CreateCategory(c.Request.Context(), session.ID, req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/v1/catalog/categories/:id
func (ctl *CatalogController) UpdateCategory(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	category, err := ctl.catalog.UpdateCategory(c.Request.Context(), session.ID, c.Param("id"), req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/v1/catalog/categories/:id
func (ctl *CatalogController) DeleteCategory(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	if err := ctl.catalog.DeleteCategory(c.Request.Context(), session.ID, c.Param("id")); err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListProducts handles GET /api/v1/catalog/products?search=&categoryId=&refresh=
func (ctl *CatalogController) ListProducts(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	filter := services.ProductFilter{Search: c.Query("search"), CategoryID: c.Query("categoryId")}
	products, err := ctl.catalog.Products(c.Request.Context(), session.ID, filter, refreshRequested(c))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/catalog/products/:id
func (ctl *CatalogController) GetProduct(c *gin.Context) {
	product, err := ctl.catalog.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/catalog/products. It accepts JSON, or a multipart
// form with an optional "image" file.
func (ctl *CatalogController) CreateProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req models.ProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	fileHeader, err := optionalImage(c)
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "INVALID_FILE", "Could not read the uploaded image")
		return
	}

	product, err := ctl.catalog.CreateProduct(c.Request.Context(), session.ID, req, fileHeader)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/v1/catalog/products/:id
func (ctl *CatalogController) UpdateProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req models.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	product, err := ctl.catalog.UpdateProduct(c.Request.Context(), session.ID, c.Param("id"), req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// SetAvailability handles PATCH /api/v1/catalog/products/:id/availability
func (ctl *CatalogController) SetAvailability(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req models.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	product, err := ctl.catalog.SetAvailability(c.Request.Context(), session.ID, c.Param("id"), req.Availability)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// UploadProductImage handles PUT /api/v1/catalog/products/:id/image
func (ctl *CatalogController) UploadProductImage(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required")
		return
	}

	product, err := ctl.catalog.UpdateProductImage(c.Request.Context(), session.ID, c.Param("id"), fileHeader)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/catalog/products/:id
func (ctl *CatalogController) DeleteProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	if err := ctl.catalog.DeleteProduct(c.Request.Context(), session.ID, c.Param("id")); err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Menu handles GET /api/v1/menu?categoryId=&search= - the public menu
func (ctl *CatalogController) Menu(c *gin.Context) {
	products, err := ctl.catalog.Menu(c.Request.Context(), c.Query("categoryId"), c.Query("search"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, products)
}
