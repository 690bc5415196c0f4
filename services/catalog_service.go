package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"sync"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/utils"
	"golang.org/x/sync/errgroup"
)

// CatalogAPI is the part of the catalog service the menu management view uses
type CatalogAPI interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, req models.CategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, req models.ProductRequest, image *clients.ImageUpload) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, req models.ProductRequest) (*models.Product, error)
	UpdateAvailability(ctx context.Context, id string, available bool) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	Menu(ctx context.Context, categoryID, search string) ([]models.Product, error)
}

// ProductFilter narrows the cached product list
type ProductFilter struct {
	Search     string
	CategoryID string
}

func (f ProductFilter) matches(p *models.Product) bool {
	category := strings.TrimSpace(f.CategoryID)
	if category != "" && category != "all" && p.CategoryID != category {
		return false
	}
	return p.Matches(f.Search)
}

type catalogCache struct {
	categories []models.Category
	products   []models.Product
}

// CatalogService caches each session's view of the catalog and keeps it in
// step with the mutations that session makes
type CatalogService struct {
	api    CatalogAPI
	images ImageService
	logger *slog.Logger

	mu     sync.Mutex
	caches map[string]*catalogCache
}

// NewCatalogService creates a catalog service
func NewCatalogService(api CatalogAPI, images ImageService, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		api:    api,
		images: images,
		logger: logger,
		caches: make(map[string]*catalogCache),
	}
}

// HandleSessionEvent drops the cache whenever the session signs in or out
func (s *CatalogService) HandleSessionEvent(event SessionEvent) {
	s.Invalidate(event.SessionID)
	if event.PreviousSessionID != "" {
		s.Invalidate(event.PreviousSessionID)
	}
}

// Invalidate forgets the session's cached catalog
func (s *CatalogService) Invalidate(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, sessionID)
}

// Cached reports whether the session has a loaded catalog
func (s *CatalogService) Cached(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.caches[sessionID]
	return ok
}

func (s *CatalogService) load(ctx context.Context, sessionID string, refresh bool) (*catalogCache, error) {
	s.mu.Lock()
	cache, ok := s.caches[sessionID]
	s.mu.Unlock()
	if ok && !refresh {
		return cache, nil
	}

	loaded := &catalogCache{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loaded.categories, err = s.api.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		loaded.products, err = s.api.ListProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.caches[sessionID] = loaded
	s.mu.Unlock()
	return loaded, nil
}

// update applies fn to the session's cache if one is loaded
func (s *CatalogService) update(sessionID string, fn func(*catalogCache)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cache, ok := s.caches[sessionID]; ok {
		fn(cache)
	}
}

// Categories returns the cached categories, loading them on first use
func (s *CatalogService) Categories(ctx context.Context, sessionID string, refresh bool) ([]models.Category, error) {
	cache, err := s.load(ctx, sessionID, refresh)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, len(cache.categories))
	copy(out, cache.categories)
	return out, nil
}

// Products returns the cached products matching the filter
func (s *CatalogService) Products(ctx context.Context, sessionID string, filter ProductFilter, refresh bool) ([]models.Product, error) {
	cache, err := s.load(ctx, sessionID, refresh)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(cache.products))
	for i := range cache.products {
		if filter.matches(&cache.products[i]) {
			out = append(out, cache.products[i])
		}
	}
	return out, nil
}

// Product fetches a single product from the catalog service
func (s *CatalogService) Product(ctx context.Context, id string) (*models.Product, error) {
	return s.api.GetProduct(ctx, id)
}

// Menu is the public menu, filtered remotely
func (s *CatalogService) Menu(ctx context.Context, categoryID, search string) ([]models.Product, error) {
	if categoryID == "all" {
		categoryID = ""
	}
	return s.api.Menu(ctx, categoryID, strings.TrimSpace(search))
}

func validateCategory(req models.CategoryRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Category name is required"}
	}
	return nil
}

func validateProduct(req models.ProductRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Product name is required"}
	case req.Price <= 0:
		return &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Product price must be greater than zero"}
	case strings.TrimSpace(req.CategoryID) == "":
		return &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Product category is required"}
	}
	return nil
}

// CreateCategory creates a category and appends it to the cache
func (s *CatalogService) CreateCategory(ctx context.Context, sessionID string, req models.CategoryRequest) (*models.Category, error) {
	if err := validateCategory(req); err != nil {
		return nil, err
	}
	category, err := s.api.CreateCategory(ctx, req)
	if err != nil {
		return nil, err
	}
	s.update(sessionID, func(c *catalogCache) {
		c.categories = upsertCategory(c.categories, *category)
	})
	return category, nil
}

// UpdateCategory updates a category and replaces it in the cache
func (s *CatalogService) UpdateCategory(ctx context.Context, sessionID, id string, req models.CategoryRequest) (*models.Category, error) {
	if err := validateCategory(req); err != nil {
		return nil, err
	}
	category, err := s.api.UpdateCategory(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if category.ID == "" {
		category.ID = id
	}
	s.update(sessionID, func(c *catalogCache) {
		c.categories = upsertCategory(c.categories, *category)
	})
	return category, nil
}

// DeleteCategory deletes a category; its products leave the cache with it
func (s *CatalogService) DeleteCategory(ctx context.Context, sessionID, id string) error {
	if err := s.api.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.update(sessionID, func(c *catalogCache) {
		categories := c.categories[:0]
		for _, category := range c.categories {
			if category.ID != id {
				categories = append(categories, category)
			}
		}
		c.categories = categories

		products := c.products[:0]
		for _, product := range c.products {
			if product.CategoryID != id {
				products = append(products, product)
			}
		}
		c.products = products
	})
	return nil
}

// CreateProduct validates the optional image before sending the multipart create
func (s *CatalogService) CreateProduct(ctx context.Context, sessionID string, req models.ProductRequest, fileHeader *multipart.FileHeader) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	var image *clients.ImageUpload
	if fileHeader != nil {
		contentType, err := utils.ValidateImageFile(fileHeader)
		if err != nil {
			return nil, err
		}
		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		defer file.Close()
		image = &clients.ImageUpload{Filename: fileHeader.Filename, ContentType: contentType, Content: file}
	}

	product, err := s.api.CreateProduct(ctx, req, image)
	if err != nil {
		return nil, err
	}
	s.update(sessionID, func(c *catalogCache) {
		c.products = upsertProduct(c.products, *product)
	})
	s.logger.Info("product created", "product_id", product.ID, "session_id", sessionID)
	return product, nil
}

// UpdateProduct updates a product and replaces it in the cache
func (s *CatalogService) UpdateProduct(ctx context.Context, sessionID, id string, req models.ProductRequest) (*models.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}
	product, err := s.api.UpdateProduct(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.replaceProduct(sessionID, id, product)
	return product, nil
}

// SetAvailability toggles whether a product can be ordered
func (s *CatalogService) SetAvailability(ctx context.Context, sessionID, id string, available bool) (*models.Product, error) {
	product, err := s.api.UpdateAvailability(ctx, id, available)
	if err != nil {
		return nil, err
	}
	s.replaceProduct(sessionID, id, product)
	return product, nil
}

// DeleteProduct deletes a product and removes it from the cache
func (s *CatalogService) DeleteProduct(ctx context.Context, sessionID, id string) error {
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.update(sessionID, func(c *catalogCache) {
		products := c.products[:0]
		for _, product := range c.products {
			if product.ID != id {
				products = append(products, product)
			}
		}
		c.products = products
	})
	return nil
}

// UpdateProductImage stores a new image for an existing product and points
// the product at it. The stored image is removed again if the update fails.
func (s *CatalogService) UpdateProductImage(ctx context.Context, sessionID, id string, fileHeader *multipart.FileHeader) (*models.Product, error) {
	current, err := s.api.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadImage(ctx, fileHeader)
	if err != nil {
		return nil, err
	}
	imageURL, err := s.images.GetImageURL(ctx, key)
	if err != nil {
		s.discardImage(ctx, key)
		return nil, err
	}

	req := models.ProductRequest{
		Name:         current.Name,
		Description:  current.Description,
		Price:        current.Price,
		Availability: current.Availability,
		CategoryID:   current.CategoryID,
		ImageURL:     imageURL,
	}
	product, err := s.api.UpdateProduct(ctx, id, req)
	if err != nil {
		s.discardImage(ctx, key)
		return nil, err
	}

	s.replaceProduct(sessionID, id, product)
	s.logger.Info("product image updated", "product_id", id, "key", key)
	return product, nil
}

func (s *CatalogService) discardImage(ctx context.Context, key string) {
	if err := s.images.DeleteImage(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned image", "key", key, "error", err)
	}
}

func (s *CatalogService) replaceProduct(sessionID, id string, product *models.Product) {
	if product.ID == "" {
		product.ID = id
	}
	s.update(sessionID, func(c *catalogCache) {
		c.products = upsertProduct(c.products, *product)
	})
}

func upsertCategory(categories []models.Category, category models.Category) []models.Category {
	for i := range categories {
		if categories[i].ID == category.ID {
			categories[i] = category
			return categories
		}
	}
	return append(categories, category)
}

func upsertProduct(products []models.Product, product models.Product) []models.Product {
	for i := range products {
		if products[i].ID == product.ID {
			products[i] = product
			return products
		}
	}
	return append(products, product)
}
