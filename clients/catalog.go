package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
)

// ImageUpload is an optional file sent alongside product fields
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// CatalogClient talks to the menu/catalog service
type CatalogClient struct {
	*Client
}

// NewCatalogClient creates a client for the catalog service
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{Client: NewClient("catalog", baseURL, timeout)}
}

func (c *CatalogClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.Get(ctx, "categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *CatalogClient) CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	var category models.Category
	if err := c.Post(ctx, "categories", req, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *CatalogClient) UpdateCategory(ctx context.Context, id string, req models.CategoryRequest) (*models.Category, error) {
	var category models.Category
	if err := c.Put(ctx, "categories/"+url.PathEscape(id), req, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *CatalogClient) DeleteCategory(ctx context.Context, id string) error {
	return c.Delete(ctx, "categories/"+url.PathEscape(id))
}

func (c *CatalogClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.Get(ctx, "products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *CatalogClient) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.Get(ctx, "products/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct posts the product as multipart form data, attaching the image when given
func (c *CatalogClient) CreateProduct(ctx context.Context, req models.ProductRequest, image *ImageUpload) (*models.Product, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"Name", req.Name},
		{"Description", req.Description},
		{"Price", strconv.FormatFloat(req.Price, 'f', -1, 64)},
		{"Availability", strconv.FormatBool(req.Availability)},
		{"CategoryId", req.CategoryID},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("failed to encode product field %s: %w", field[0], err)
		}
	}

	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="Image"; filename=%q`, filepath.Base(image.Filename)))
		h.Set("Content-Type", image.ContentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := io.Copy(part, image.Content); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var product models.Product
	if err := c.DoMultipart(ctx, http.MethodPost, "products", writer.FormDataContentType(), body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *CatalogClient) UpdateProduct(ctx context.Context, id string, req models.ProductRequest) (*models.Product, error) {
	var product models.Product
	if err := c.Put(ctx, "products/"+url.PathEscape(id), req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *CatalogClient) UpdateAvailability(ctx context.Context, id string, available bool) (*models.Product, error) {
	var product models.Product
	body := models.AvailabilityRequest{Availability: available}
	if err := c.Patch(ctx, "products/"+url.PathEscape(id)+"/availability", body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *CatalogClient) DeleteProduct(ctx context.Context, id string) error {
	return c.Delete(ctx, "products/"+url.PathEscape(id))
}

// Menu queries the optimized menu endpoint
func (c *CatalogClient) Menu(ctx context.Context, categoryID, search string) ([]models.Product, error) {
	query := url.Values{}
	if categoryID != "" {
		query.Set("categoryId", categoryID)
	}
	if search != "" {
		query.Set("search", search)
	}

	var products []models.Product
	if err := c.Get(ctx, "menu", query, &products); err != nil {
		return nil, err
	}
	return products, nil
}
