package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fasttech-foods/backoffice-api/controllers"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/fasttech-foods/backoffice-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// browser is an HTTP client holding cookies the way a storefront tab would
type browser struct {
	t       *testing.T
	baseURL string
	client  *http.Client
	token   string
}

func startServer(t *testing.T) (*testApp, string) {
	t.Helper()
	env := setupRouter(t)
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)
	return env, server.URL
}

func newBrowser(t *testing.T, baseURL string) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, baseURL: baseURL, client: &http.Client{Jar: jar, Timeout: 5 * time.Second}}
}

func (b *browser) call(method, path string, body interface{}, out interface{}) int {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.baseURL+path, reader)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	if out != nil && resp.StatusCode < 300 {
		var envelope struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
		}
		require.NoError(b.t, json.Unmarshal(raw, &envelope), string(raw))
		require.True(b.t, envelope.Success)
		require.NoError(b.t, json.Unmarshal(envelope.Data, out), string(raw))
	}
	return resp.StatusCode
}

// TestServerStartup is an acceptance test that verifies the application wires up
func TestServerStartup(t *testing.T) {
	env := setupRouter(t)
	assert.NotNil(t, env.router, "Router should be initialized")
}

// TestAPIHealthEndpointAcceptance is an end-to-end acceptance test over a real listener
func TestAPIHealthEndpointAcceptance(t *testing.T) {
	_, baseURL := startServer(t)

	resp, err := http.Get(baseURL + "/api/v1/health")
	require.NoError(t, err, "Should be able to reach the server")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Health endpoint should return 200 OK")

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response), "Response should be valid JSON")
	assert.True(t, response.Success, "Success field should be true")
	assert.Equal(t, "FastTech Foods back office API is running", response.Message)
}

// TestHealthEndpointAvailability tests that the health endpoint answers consistently
func TestHealthEndpointAvailability(t *testing.T) {
	_, baseURL := startServer(t)
	b := newBrowser(t, baseURL)

	for i := 0; i < 5; i++ {
		start := time.Now()
		status := b.call(http.MethodGet, "/api/v1/health", nil, nil)
		assert.Equal(t, http.StatusOK, status, fmt.Sprintf("Request %d should succeed", i+1))
		assert.Less(t, time.Since(start), 500*time.Millisecond, "Health endpoint should respond quickly")
	}
}

func TestCustomerOrderJourney(t *testing.T) {
	_, baseURL := startServer(t)
	customer := newBrowser(t, baseURL)

	var menu []models.Product
	require.Equal(t, http.StatusOK, customer.call(http.MethodGet, "/api/v1/menu", nil, &menu))
	require.Len(t, menu, 1)
	burger := menu[0]

	for i := 0; i < 2; i++ {
		status := customer.call(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{
			"id": burger.ID, "name": burger.Name, "unit_price": fmt.Sprintf("%.2f", burger.Price),
		}, nil)
		require.Equal(t, http.StatusOK, status)
	}

	var cart controllers.CartView
	require.Equal(t, http.StatusOK, customer.call(http.MethodGet, "/api/v1/cart", nil, &cart))
	assert.Equal(t, 2, cart.ItemCount)
	assert.Equal(t, "37.80", cart.Subtotal)

	var order models.Order
	status := customer.call(http.MethodPost, "/api/v1/orders", map[string]string{"delivery_method": "delivery", "observations": "ring twice"}, &order)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, order.DeliveryFee.Equal(decimal.RequireFromString("5.90")))
	assert.True(t, order.FinalTotal.Equal(decimal.RequireFromString("43.70")), order.FinalTotal.String())
	require.Len(t, order.PickupCode, 4)

	require.Equal(t, http.StatusOK, customer.call(http.MethodGet, "/api/v1/cart", nil, &cart))
	assert.Zero(t, cart.ItemCount, "checkout empties the cart")

	// another visitor cannot see the order
	stranger := newBrowser(t, baseURL)
	assert.Equal(t, http.StatusNotFound, stranger.call(http.MethodGet, "/api/v1/orders/"+order.ID, nil, nil))

	var tracking controllers.TrackingView
	for _, next := range []models.OrderStatus{models.StatusAccepted, models.StatusPreparing, models.StatusReady} {
		status = customer.call(http.MethodPost, "/api/v1/orders/"+order.ID+"/status", map[string]string{"status": string(next)}, &tracking)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, next, tracking.Order.Status)
	}
	assert.True(t, tracking.IsReady)

	status = customer.call(http.MethodPost, "/api/v1/orders/"+order.ID+"/confirm-delivery", map[string]string{"code": order.PickupCode}, &tracking)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.StatusDelivered, tracking.Order.Status)
	assert.Equal(t, 100, tracking.Progress)

	var history []models.Order
	require.Equal(t, http.StatusOK, customer.call(http.MethodGet, "/api/v1/orders", nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, order.ID, history[0].ID)
	assert.Empty(t, history[0].PickupCode)
}

func TestStaffJourney(t *testing.T) {
	env, baseURL := startServer(t)

	manager := newBrowser(t, baseURL)
	var view models.SessionView
	require.Equal(t, http.StatusOK, manager.call(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email_or_cpf": "ana@fasttech.com", "password": "secret1"}, &view))
	assert.True(t, view.IsManager)

	var board services.KitchenBoard
	require.Equal(t, http.StatusOK, manager.call(http.MethodGet, "/api/v1/kitchen/orders", nil, &board))
	require.Len(t, board.Orders, 1)
	assert.Equal(t, 1, board.PendingCount)

	require.Equal(t, http.StatusOK, manager.call(http.MethodPost, "/api/v1/kitchen/orders/k1/actions", map[string]string{"action": "accept"}, &board))
	assert.Zero(t, board.PendingCount)
	assert.Equal(t, "accepted", env.kitchen.Status("k1"))

	var employee models.Employee
	require.Equal(t, http.StatusCreated, manager.call(http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Duda", "email": "duda@fasttech.com", "password": "secret4"}, &employee))
	assert.Equal(t, models.RoleEmployee, employee.Role)

	// the new employee signs in through the same identity service
	cook := newBrowser(t, baseURL)
	require.Equal(t, http.StatusOK, cook.call(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email_or_cpf": "duda@fasttech.com", "password": "secret4"}, &view))
	assert.True(t, view.IsEmployee)
	assert.False(t, view.IsManager)

	require.Equal(t, http.StatusOK, cook.call(http.MethodPost, "/api/v1/kitchen/orders/k1/actions", map[string]string{"action": "start_preparing"}, &board))
	assert.Equal(t, "preparing", env.kitchen.Status("k1"))
	assert.Equal(t, http.StatusForbidden, cook.call(http.MethodGet, "/api/v1/dashboard", nil, nil))

	require.Equal(t, http.StatusOK, manager.call(http.MethodGet, "/api/v1/dashboard?range=week", nil, nil))

	require.Equal(t, http.StatusOK, cook.call(http.MethodPost, "/api/v1/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, cook.call(http.MethodGet, "/api/v1/kitchen/orders", nil, nil))

	// integrations call with a bearer token and no cookies
	integration := newBrowser(t, baseURL)
	integration.token = testutil.SignToken(t, "svc-pos", "POS", []string{models.RoleEmployee}, time.Minute)
	require.Equal(t, http.StatusOK, integration.call(http.MethodGet, "/api/v1/kitchen/orders/pending", nil, nil))
}
