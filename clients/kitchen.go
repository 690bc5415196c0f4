package clients

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
)

// TimeRange bounds analytics queries. Empty strings mean unbounded.
type TimeRange struct {
	Start string
	End   string
}

func (r TimeRange) query() url.Values {
	query := url.Values{}
	if r.Start != "" {
		query.Set("startDate", r.Start)
	}
	if r.End != "" {
		query.Set("endDate", r.End)
	}
	return query
}

// KitchenClient talks to the kitchen/orders service, which also hosts analytics
type KitchenClient struct {
	*Client
}

// NewKitchenClient creates a client for the kitchen service
func NewKitchenClient(baseURL string, timeout time.Duration) *KitchenClient {
	return &KitchenClient{Client: NewClient("orders", baseURL, timeout)}
}

// ListOrders returns all orders, optionally filtered by the upstream status value
func (c *KitchenClient) ListOrders(ctx context.Context, status string) ([]models.KitchenOrder, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}

	var orders []models.KitchenOrder
	if err := c.Get(ctx, "orders", query, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *KitchenClient) GetOrder(ctx context.Context, id string) (*models.KitchenOrder, error) {
	var order models.KitchenOrder
	if err := c.Get(ctx, "orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *KitchenClient) PendingOrders(ctx context.Context) ([]models.KitchenOrder, error) {
	var orders []models.KitchenOrder
	if err := c.Get(ctx, "orders/pending", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *KitchenClient) UpdateOrderStatus(ctx context.Context, id string, req models.UpdateOrderStatusRequest) error {
	return c.Put(ctx, "orders/"+url.PathEscape(id)+"/status", req, nil)
}

func (c *KitchenClient) Dashboard(ctx context.Context, r TimeRange) (*models.DashboardTotals, error) {
	var totals models.DashboardTotals
	if err := c.Get(ctx, "Analytics/dashboard", r.query(), &totals); err != nil {
		return nil, err
	}
	return &totals, nil
}

func (c *KitchenClient) OrdersByStatus(ctx context.Context, r TimeRange) ([]models.StatusCount, error) {
	var counts []models.StatusCount
	if err := c.Get(ctx, "Analytics/orders-by-status", r.query(), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *KitchenClient) TopProducts(ctx context.Context, top int, r TimeRange) ([]models.TopProduct, error) {
	query := r.query()
	query.Set("top", strconv.Itoa(top))

	var products []models.TopProduct
	if err := c.Get(ctx, "Analytics/top-products", query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Health probes the analytics health endpoint
func (c *KitchenClient) Health(ctx context.Context) (string, error) {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.Get(ctx, "Analytics/health", nil, &status); err != nil {
		return "", err
	}
	return status.Status, nil
}
