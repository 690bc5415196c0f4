package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateFilterBounds(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)

	start, end, bounded := RangeToday.Bounds(now)
	require.True(t, bounded)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 11, 23, 59, 59, 0, time.UTC), end)

	start, end, _ = RangeWeek.Bounds(now)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)

	start, _, _ = RangeMonth.Bounds(now)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)

	_, _, bounded = RangeAll.Bounds(now)
	assert.False(t, bounded)
}

func TestDateFilterTimeRangeFormat(t *testing.T) {
	now := time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)

	r := RangeToday.TimeRange(now)
	assert.Equal(t, "2026-03-11T00:00:00.000Z", r.Start)
	assert.Equal(t, "2026-03-11T23:59:59.000Z", r.End)

	assert.Equal(t, clients.TimeRange{}, RangeAll.TimeRange(now))
}

func TestParseDateFilter(t *testing.T) {
	f, err := ParseDateFilter("")
	require.NoError(t, err)
	assert.Equal(t, RangeToday, f)

	f, err = ParseDateFilter("Week")
	require.NoError(t, err)
	assert.Equal(t, RangeWeek, f)

	_, err = ParseDateFilter("decade")
	var validationErr *models.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "INVALID_RANGE", validationErr.Code)
}

func newTestDashboard() (*DashboardService, *fakeKitchen) {
	api := newFakeKitchen(kitchenOrders()...)
	api.analytics.totals = &models.DashboardTotals{TotalOrders: 5, TotalRevenue: 86}
	api.analytics.counts = []models.StatusCount{{Status: "pending", Count: 2}, {Status: "ready", Count: 1}}
	api.analytics.top = []models.TopProduct{
		{ProductName: "Burger", Quantity: 10, Revenue: 100},
		{ProductName: "Soda", Quantity: 7, Revenue: 21},
	}
	clock := newFakeClock(time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC))
	return NewDashboardService(api, clock), api
}

func TestDashboardLoad(t *testing.T) {
	svc, api := newTestDashboard()

	view, err := svc.Load(context.Background(), "month", "")
	require.NoError(t, err)

	assert.Equal(t, RangeMonth, view.Range)
	assert.Equal(t, "all", view.StatusFilter)
	assert.Equal(t, "2026-03-01T00:00:00.000Z", view.StartDate)
	assert.Equal(t, 5, view.Totals.TotalOrders)
	assert.Equal(t, 5, view.OrderCount)

	require.Len(t, view.StatusChart, 2)
	assert.Equal(t, "Awaiting confirmation", view.StatusChart[0].Label)
	assert.Equal(t, models.StatusPending.Color(), view.StatusChart[0].Color)

	require.Len(t, view.ProductChart, 2)
	assert.Equal(t, "Burger", view.ProductChart[0].Name)

	require.Len(t, api.analytics.ranges, 1)
	assert.Equal(t, view.StartDate, api.analytics.ranges[0].Start)
}

func TestDashboardStatusFilter(t *testing.T) {
	svc, _ := newTestDashboard()

	view, err := svc.Load(context.Background(), "all", "pending")
	require.NoError(t, err)
	assert.Empty(t, view.StartDate)
	// "Received" counts as pending
	assert.Equal(t, 2, view.OrderCount)

	_, err = svc.Load(context.Background(), "all", "lost")
	assert.Error(t, err)
}

func TestDashboardAnyFailureFailsLoad(t *testing.T) {
	svc, api := newTestDashboard()
	api.failWith = &clients.NetworkError{Service: "orders", Err: errors.New("timeout")}

	_, err := svc.Load(context.Background(), "today", "all")
	var netErr *clients.NetworkError
	assert.True(t, errors.As(err, &netErr))
}
