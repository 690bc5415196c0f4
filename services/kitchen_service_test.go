package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKitchen struct {
	mu        sync.Mutex
	orders    []models.KitchenOrder
	updates   []models.UpdateOrderStatusRequest
	failWith  error
	analytics struct {
		totals *models.DashboardTotals
		counts []models.StatusCount
		top    []models.TopProduct
		ranges []clients.TimeRange
	}
}

func newFakeKitchen(orders ...models.KitchenOrder) *fakeKitchen {
	return &fakeKitchen{orders: orders}
}

func (f *fakeKitchen) ListOrders(_ context.Context, status string) ([]models.KitchenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []models.KitchenOrder
	for _, o := range f.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeKitchen) PendingOrders(ctx context.Context) ([]models.KitchenOrder, error) {
	return f.ListOrders(ctx, "pending")
}

func (f *fakeKitchen) GetOrder(_ context.Context, id string) (*models.KitchenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			order := o
			return &order, nil
		}
	}
	return nil, &clients.APIError{Service: "orders", StatusCode: 404, Message: "Order not found"}
}

func (f *fakeKitchen) UpdateOrderStatus(_ context.Context, id string, req models.UpdateOrderStatusRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, req)
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = req.Status
		}
	}
	return nil
}

func (f *fakeKitchen) Dashboard(_ context.Context, r clients.TimeRange) (*models.DashboardTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analytics.ranges = append(f.analytics.ranges, r)
	return f.analytics.totals, nil
}

func (f *fakeKitchen) OrdersByStatus(_ context.Context, _ clients.TimeRange) ([]models.StatusCount, error) {
	return f.analytics.counts, nil
}

func (f *fakeKitchen) TopProducts(_ context.Context, top int, _ clients.TimeRange) ([]models.TopProduct, error) {
	if len(f.analytics.top) > top {
		return f.analytics.top[:top], nil
	}
	return f.analytics.top, nil
}

func kitchenOrders() []models.KitchenOrder {
	return []models.KitchenOrder{
		{ID: "k1", Status: "pending", Total: 23},
		{ID: "k2", Status: "Received", Total: 10},
		{ID: "k3", Status: "accepted", Total: 15},
		{ID: "k4", Status: "ready", Total: 8},
		{ID: "k5", Status: "delivered", Total: 30},
	}
}

var staff = models.Actor{ID: "u1", Name: "Ana"}

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		policy   models.CancellationPolicy
		status   models.OrderStatus
		expected []KitchenAction
	}{
		{models.CancelPendingOnly, models.StatusPending, []KitchenAction{ActionAccept, ActionReject}},
		{models.CancelPendingOnly, models.StatusAccepted, []KitchenAction{ActionStartPreparing}},
		{models.CancelPendingOnly, models.StatusPreparing, []KitchenAction{ActionMarkReady}},
		{models.CancelPendingOnly, models.StatusReady, []KitchenAction{ActionConfirmDelivery}},
		{models.CancelPendingOnly, models.StatusDelivered, []KitchenAction{}},
		{models.CancelPendingOnly, models.StatusCancelled, []KitchenAction{}},
		{models.CancelBeforePreparation, models.StatusAccepted, []KitchenAction{ActionStartPreparing, ActionCancel}},
		{models.CancelAnyActive, models.StatusReady, []KitchenAction{ActionConfirmDelivery, ActionCancel}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy)+"/"+string(tt.status), func(t *testing.T) {
			svc := NewKitchenService(newFakeKitchen(), models.NewTransitionTable(tt.policy), true, testLogger())
			assert.Equal(t, tt.expected, svc.AvailableActions(tt.status))
		})
	}
}

func TestKitchenListOrders(t *testing.T) {
	svc := NewKitchenService(newFakeKitchen(kitchenOrders()...), models.NewTransitionTable(models.CancelPendingOnly), true, testLogger())

	board, err := svc.ListOrders(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, board.Orders, 5)
	assert.Equal(t, 2, board.PendingCount)

	received := board.Orders[1]
	assert.Equal(t, models.StatusPending, received.NormalizedStatus)
	assert.Equal(t, 25, received.Progress)
	assert.Equal(t, []KitchenAction{ActionAccept, ActionReject}, received.Actions)

	delivered := board.Orders[4]
	assert.True(t, delivered.Terminal)
	assert.Empty(t, delivered.Actions)
}

func TestKitchenPerformAction(t *testing.T) {
	api := newFakeKitchen(kitchenOrders()...)
	svc := NewKitchenService(api, models.NewTransitionTable(models.CancelPendingOnly), true, testLogger())
	ctx := context.Background()

	t.Run("accept sends actor and note", func(t *testing.T) {
		board, err := svc.PerformAction(ctx, staff, "k1", "accept", "")
		require.NoError(t, err)
		assert.Equal(t, 1, board.PendingCount)

		require.Len(t, api.updates, 1)
		update := api.updates[0]
		assert.Equal(t, "accepted", update.Status)
		assert.Equal(t, "u1", update.UpdatedBy)
		assert.Equal(t, "Ana", update.UserName)
		assert.Equal(t, "Status changed to accepted", update.Notes)
	})

	t.Run("action not available for status", func(t *testing.T) {
		_, err := svc.PerformAction(ctx, staff, "k3", "reject", "")
		var transitionErr *models.TransitionError
		require.True(t, errors.As(err, &transitionErr))
		assert.Equal(t, models.StatusAccepted, transitionErr.From)
		assert.Equal(t, models.StatusCancelled, transitionErr.To)
	})

	t.Run("cancel is not available under pending_only", func(t *testing.T) {
		_, err := svc.PerformAction(ctx, staff, "k3", "cancel", "")
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := svc.PerformAction(ctx, staff, "k3", "teleport", "")
		var validationErr *models.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "UNKNOWN_ACTION", validationErr.Code)
	})

	t.Run("delivery code checked before any call", func(t *testing.T) {
		before := len(api.updates)
		_, err := svc.PerformAction(ctx, staff, "k4", "confirm_delivery", "12")
		var validationErr *models.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "INVALID_DELIVERY_CODE", validationErr.Code)
		assert.Len(t, api.updates, before)
	})

	t.Run("delivery with code", func(t *testing.T) {
		_, err := svc.PerformAction(ctx, staff, "k4", "confirm_delivery", "1234")
		require.NoError(t, err)
		assert.Equal(t, "delivered", api.updates[len(api.updates)-1].Status)
	})

	t.Run("missing remote order", func(t *testing.T) {
		_, err := svc.PerformAction(ctx, staff, "nope", "accept", "")
		var apiErr *clients.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 404, apiErr.StatusCode)
	})
}

func TestKitchenDeliveryCodeOptional(t *testing.T) {
	api := newFakeKitchen(kitchenOrders()...)
	svc := NewKitchenService(api, models.NewTransitionTable(models.CancelPendingOnly), false, testLogger())

	_, err := svc.PerformAction(context.Background(), staff, "k4", "confirm_delivery", "")
	assert.NoError(t, err)
}

func TestKitchenPendingOrders(t *testing.T) {
	svc := NewKitchenService(newFakeKitchen(kitchenOrders()...), models.NewTransitionTable(models.CancelPendingOnly), true, testLogger())

	pending, err := svc.PendingOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "k1", pending[0].ID)
}
