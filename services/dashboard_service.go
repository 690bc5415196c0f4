package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/models"
	"golang.org/x/sync/errgroup"
)

// AnalyticsAPI is the part of the kitchen service the dashboard reads
type AnalyticsAPI interface {
	ListOrders(ctx context.Context, status string) ([]models.KitchenOrder, error)
	Dashboard(ctx context.Context, r clients.TimeRange) (*models.DashboardTotals, error)
	OrdersByStatus(ctx context.Context, r clients.TimeRange) ([]models.StatusCount, error)
	TopProducts(ctx context.Context, top int, r clients.TimeRange) ([]models.TopProduct, error)
}

// DateFilter selects the analytics window
type DateFilter string

const (
	RangeToday DateFilter = "today"
	RangeWeek  DateFilter = "week"
	RangeMonth DateFilter = "month"
	RangeAll   DateFilter = "all"
)

const (
	topProductsLimit = 5
	isoMillis        = "2006-01-02T15:04:05.000Z"
)

// ParseDateFilter defaults to today
func ParseDateFilter(raw string) (DateFilter, error) {
	switch DateFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RangeToday:
		return RangeToday, nil
	case RangeWeek:
		return RangeWeek, nil
	case RangeMonth:
		return RangeMonth, nil
	case RangeAll:
		return RangeAll, nil
	default:
		return "", &models.ValidationError{Code: "INVALID_RANGE", Message: fmt.Sprintf("Invalid date range: %s", raw)}
	}
}

// Bounds returns the window for now in now's location. "all" has no bounds.
// Weeks start on Sunday.
func (f DateFilter) Bounds(now time.Time) (start, end time.Time, bounded bool) {
	y, m, d := now.Date()
	loc := now.Location()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch f {
	case RangeToday:
		return midnight, time.Date(y, m, d, 23, 59, 59, 0, loc), true
	case RangeWeek:
		return midnight.AddDate(0, 0, -int(now.Weekday())), now, true
	case RangeMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), now, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// TimeRange formats the bounds the way the analytics endpoints expect
func (f DateFilter) TimeRange(now time.Time) clients.TimeRange {
	start, end, bounded := f.Bounds(now)
	if !bounded {
		return clients.TimeRange{}
	}
	return clients.TimeRange{
		Start: start.UTC().Format(isoMillis),
		End:   end.UTC().Format(isoMillis),
	}
}

// StatusSlice is one pie chart segment
type StatusSlice struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

// ProductBar is one bar of the best-sellers chart
type ProductBar struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// DashboardView is everything the analytics page renders
type DashboardView struct {
	Range        DateFilter              `json:"range"`
	StatusFilter string                  `json:"status_filter"`
	StartDate    string                  `json:"start_date,omitempty"`
	EndDate      string                  `json:"end_date,omitempty"`
	Totals       *models.DashboardTotals `json:"totals"`
	Orders       []models.KitchenOrder   `json:"orders"`
	OrderCount   int                     `json:"order_count"`
	StatusChart  []StatusSlice           `json:"status_chart"`
	ProductChart []ProductBar            `json:"product_chart"`
}

// DashboardService aggregates the analytics endpoints into one view
type DashboardService struct {
	api   AnalyticsAPI
	clock Clock
}

// NewDashboardService creates a dashboard service
func NewDashboardService(api AnalyticsAPI, clock Clock) *DashboardService {
	return &DashboardService{api: api, clock: clock}
}

// Load fetches totals, orders, status breakdown and top products concurrently.
// Any failing call fails the whole load.
func (s *DashboardService) Load(ctx context.Context, rawRange, rawStatus string) (*DashboardView, error) {
	filter, err := ParseDateFilter(rawRange)
	if err != nil {
		return nil, err
	}

	statusFilter := strings.ToLower(strings.TrimSpace(rawStatus))
	var wanted models.OrderStatus
	if statusFilter == "" {
		statusFilter = "all"
	}
	if statusFilter != "all" {
		if wanted, err = models.ParseOrderStatus(statusFilter); err != nil {
			return nil, err
		}
	}

	window := filter.TimeRange(s.clock.Now())
	view := &DashboardView{
		Range:        filter,
		StatusFilter: statusFilter,
		StartDate:    window.Start,
		EndDate:      window.End,
	}

	var (
		orders []models.KitchenOrder
		counts []models.StatusCount
		top    []models.TopProduct
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.api.Dashboard(gctx, window)
		view.Totals = totals
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.api.ListOrders(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.api.OrdersByStatus(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.api.TopProducts(gctx, topProductsLimit, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Orders = filterOrders(orders, wanted)
	view.OrderCount = len(view.Orders)
	view.StatusChart = statusChart(counts)
	view.ProductChart = productChart(top)
	return view, nil
}

func filterOrders(orders []models.KitchenOrder, wanted models.OrderStatus) []models.KitchenOrder {
	filtered := make([]models.KitchenOrder, 0, len(orders))
	for _, order := range orders {
		if wanted != "" {
			status, err := models.ParseOrderStatus(order.Status)
			if err != nil || status != wanted {
				continue
			}
		}
		filtered = append(filtered, order)
	}
	return filtered
}

func statusChart(counts []models.StatusCount) []StatusSlice {
	slices := make([]StatusSlice, 0, len(counts))
	for _, c := range counts {
		slice := StatusSlice{Status: c.Status, Label: c.Status, Count: c.Count, Color: "#6b7280"}
		if status, err := models.ParseOrderStatus(c.Status); err == nil {
			slice.Status = string(status)
			slice.Label = status.Label()
			slice.Color = status.Color()
		}
		slices = append(slices, slice)
	}
	return slices
}

func productChart(top []models.TopProduct) []ProductBar {
	bars := make([]ProductBar, 0, len(top))
	for _, p := range top {
		bars = append(bars, ProductBar{Name: p.ProductName, Quantity: p.Quantity, Revenue: p.Revenue})
	}
	return bars
}
