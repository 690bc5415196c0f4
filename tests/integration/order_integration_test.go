package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/controllers"
	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/fasttech-foods/backoffice-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// OrderIntegrationTestSuite drives the storefront order flow through the
// session middleware, the order controller and an sqlite-backed order book
type OrderIntegrationTestSuite struct {
	suite.Suite
	db       *gorm.DB
	sessions *services.SessionService
	events   *services.Broadcaster
	book     *services.OrderBook
	router   *gin.Engine
}

// SetupSuite runs once before all tests
func (suite *OrderIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(suite.T())
}

// SetupTest runs before each test
func (suite *OrderIntegrationTestSuite) SetupTest() {
	suite.db = testutil.OpenTestDB(suite.T())
	identity := testutil.NewFakeIdentity(suite.T())
	suite.sessions = services.NewSessionService(
		services.NewMemorySessionStore(),
		clients.NewIdentityClient(identity.URL(), 5*time.Second),
		services.RealClock(),
		testutil.Logger(),
	)
	suite.router = suite.buildRouter(models.CancelPendingOnly)
}

// buildRouter wires a fresh order book over the suite database with the given policy
func (suite *OrderIntegrationTestSuite) buildRouter(policy models.CancellationPolicy) *gin.Engine {
	suite.events = services.NewBroadcaster()
	suite.book = services.NewOrderBook(
		services.NewGormOrderStore(suite.db),
		models.NewTransitionTable(policy),
		services.RealClock(),
		testutil.Logger(),
	)
	suite.book.AddPublisher(suite.events)
	ctl := controllers.NewOrderController(suite.book, nil, suite.events, services.RealClock(), testutil.Logger())

	router := gin.New()
	v1 := router.Group("/api/v1", middleware.Sessions(suite.sessions, time.Hour, false))
	{
		v1.GET("/cart", ctl.GetCart)
		v1.POST("/cart/items", ctl.AddCartItem)
		v1.DELETE("/cart/items/:productId", ctl.RemoveCartItem)
		v1.POST("/orders", ctl.CreateOrder)
		v1.GET("/orders", ctl.ListOrders)
		v1.GET("/orders/:id", ctl.GetOrder)
		v1.POST("/orders/:id/status", ctl.UpdateStatus)
		v1.POST("/orders/:id/confirm-delivery", ctl.ConfirmDelivery)
	}
	return router
}

func (suite *OrderIntegrationTestSuite) do(method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderIntegrationTestSuite) data(w *httptest.ResponseRecorder, out interface{}) {
	var response struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	suite.Require().True(response.Success, w.Body.String())
	suite.Require().NoError(json.Unmarshal(response.Data, out))
}

func (suite *OrderIntegrationTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	var response struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response.Error.Code
}

// newVisitor opens an anonymous session and returns its id
func (suite *OrderIntegrationTestSuite) newVisitor() string {
	w := suite.do(http.MethodGet, "/api/v1/cart", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	id := w.Header().Get(middleware.SessionHeader)
	suite.Require().NotEmpty(id)
	return id
}

func (suite *OrderIntegrationTestSuite) addItem(sessionID, id, name, price string) controllers.CartView {
	w := suite.do(http.MethodPost, "/api/v1/cart/items", sessionID, gin.H{"id": id, "name": name, "unit_price": price})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var cart controllers.CartView
	suite.data(w, &cart)
	return cart
}

func (suite *OrderIntegrationTestSuite) checkout(sessionID, method string) models.Order {
	w := suite.do(http.MethodPost, "/api/v1/orders", sessionID, gin.H{"delivery_method": method})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	suite.data(w, &order)
	return order
}

func (suite *OrderIntegrationTestSuite) setStatus(sessionID, orderID string, status models.OrderStatus) *httptest.ResponseRecorder {
	return suite.do(http.MethodPost, "/api/v1/orders/"+orderID+"/status", sessionID, gin.H{"status": string(status)})
}

// TestOrderWorkflow_CreateListAndGet tests the cart-to-order flow end to end
func (suite *OrderIntegrationTestSuite) TestOrderWorkflow_CreateListAndGet() {
	visitor := suite.newVisitor()

	suite.addItem(visitor, "p1", "Classic Burger", "18.90")
	suite.addItem(visitor, "p1", "Classic Burger", "18.90")
	cart := suite.addItem(visitor, "p3", "Lemonade", "7.50")
	suite.Equal(3, cart.ItemCount)
	suite.Equal("45.30", cart.Subtotal)

	w := suite.do(http.MethodDelete, "/api/v1/cart/items/p1", visitor, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.data(w, &cart)
	suite.Equal(2, cart.ItemCount)
	suite.Equal("26.40", cart.Subtotal)

	order := suite.checkout(visitor, "drive-thru")
	suite.Equal(models.DeliveryDriveThru, order.DeliveryMethod)
	suite.True(order.DeliveryFee.IsZero())
	suite.True(order.FinalTotal.Equal(decimal.RequireFromString("26.40")))
	suite.Len(order.Items, 2)

	var history []models.Order
	suite.data(suite.do(http.MethodGet, "/api/v1/orders", visitor, nil), &history)
	suite.Require().Len(history, 1)
	suite.Equal(order.ID, history[0].ID)

	var tracking controllers.TrackingView
	w = suite.do(http.MethodGet, "/api/v1/orders/"+order.ID, visitor, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.data(w, &tracking)
	suite.Equal(models.StatusPending, tracking.Order.Status)
	suite.False(tracking.IsReady)
	suite.NotEmpty(tracking.StatusLabel)
}

// TestCheckout_Validation tests the checkout guards
func (suite *OrderIntegrationTestSuite) TestCheckout_Validation() {
	visitor := suite.newVisitor()

	w := suite.do(http.MethodPost, "/api/v1/orders", visitor, gin.H{"delivery_method": "counter"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("EMPTY_CART", suite.errorCode(w))

	suite.addItem(visitor, "p1", "Classic Burger", "18.90")

	w = suite.do(http.MethodPost, "/api/v1/orders", visitor, gin.H{"delivery_method": "teleport"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_DELIVERY_METHOD", suite.errorCode(w))

	w = suite.do(http.MethodPost, "/api/v1/orders", visitor, gin.H{})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", suite.errorCode(w))

	w = suite.do(http.MethodPost, "/api/v1/cart/items", visitor, gin.H{"id": "p9", "name": "Free Lunch", "unit_price": "0"})
	suite.Equal(http.StatusBadRequest, w.Code)

	// the cart survives a failed checkout
	var cart controllers.CartView
	suite.data(suite.do(http.MethodGet, "/api/v1/cart", visitor, nil), &cart)
	suite.Equal(1, cart.ItemCount)
}

// TestOrders_SessionIsolation tests that visitors only ever see their own orders
func (suite *OrderIntegrationTestSuite) TestOrders_SessionIsolation() {
	alice := suite.newVisitor()
	bob := suite.newVisitor()

	suite.addItem(alice, "p1", "Classic Burger", "18.90")
	order := suite.checkout(alice, "counter")

	var history []models.Order
	suite.data(suite.do(http.MethodGet, "/api/v1/orders", bob, nil), &history)
	suite.Empty(history)

	w := suite.do(http.MethodGet, "/api/v1/orders/"+order.ID, bob, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("ORDER_NOT_FOUND", suite.errorCode(w))

	w = suite.setStatus(bob, order.ID, models.StatusAccepted)
	suite.Equal(http.StatusNotFound, w.Code)
}

// TestStatusWorkflow_PublishesEvents tests the full lifecycle and the change stream
func (suite *OrderIntegrationTestSuite) TestStatusWorkflow_PublishesEvents() {
	visitor := suite.newVisitor()
	suite.addItem(visitor, "p1", "Classic Burger", "18.90")
	order := suite.checkout(visitor, "counter")

	changes, unsubscribe := suite.events.Subscribe(order.ID)
	defer unsubscribe()

	steps := []models.OrderStatus{models.StatusAccepted, models.StatusPreparing, models.StatusReady}
	for _, status := range steps {
		w := suite.setStatus(visitor, order.ID, status)
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}

	// skipping back is never allowed
	w := suite.setStatus(visitor, order.ID, models.StatusPreparing)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("INVALID_TRANSITION", suite.errorCode(w))

	w = suite.do(http.MethodPost, "/api/v1/orders/"+order.ID+"/confirm-delivery", visitor, gin.H{"code": order.PickupCode})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	from := models.StatusPending
	for _, to := range append(steps, models.StatusDelivered) {
		select {
		case change := <-changes:
			suite.Equal(order.ID, change.OrderID)
			suite.Equal(from, change.From)
			suite.Equal(to, change.To)
			from = to
		case <-time.After(time.Second):
			suite.FailNow("missing status change", "expected %s -> %s", from, to)
		}
	}

	w = suite.setStatus(visitor, order.ID, models.StatusCancelled)
	suite.Equal(http.StatusConflict, w.Code, "delivered orders are final")
}

// TestCancellationPolicies tests each configured policy against each active status
func (suite *OrderIntegrationTestSuite) TestCancellationPolicies() {
	testCases := []struct {
		policy      models.CancellationPolicy
		from        models.OrderStatus
		cancellable bool
	}{
		{models.CancelPendingOnly, models.StatusPending, true},
		{models.CancelPendingOnly, models.StatusAccepted, false},
		{models.CancelBeforePreparation, models.StatusAccepted, true},
		{models.CancelBeforePreparation, models.StatusPreparing, false},
		{models.CancelAnyActive, models.StatusPreparing, true},
		{models.CancelAnyActive, models.StatusReady, true},
	}

	path := []models.OrderStatus{models.StatusAccepted, models.StatusPreparing, models.StatusReady}
	for _, tc := range testCases {
		suite.Run(string(tc.policy)+" from "+string(tc.from), func() {
			suite.router = suite.buildRouter(tc.policy)
			visitor := suite.newVisitor()
			suite.addItem(visitor, "p1", "Classic Burger", "18.90")
			order := suite.checkout(visitor, "counter")

			for _, status := range path {
				if order.Status == tc.from {
					break
				}
				w := suite.setStatus(visitor, order.ID, status)
				suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
				order.Status = status
			}

			w := suite.setStatus(visitor, order.ID, models.StatusCancelled)
			if tc.cancellable {
				suite.Equal(http.StatusOK, w.Code, w.Body.String())
			} else {
				suite.Equal(http.StatusConflict, w.Code)
			}
		})
	}
}

// TestOrdersSurviveRestart tests that history is read back from the database
func (suite *OrderIntegrationTestSuite) TestOrdersSurviveRestart() {
	visitor := suite.newVisitor()
	suite.addItem(visitor, "p1", "Classic Burger", "18.90")
	order := suite.checkout(visitor, "delivery")

	suite.router = suite.buildRouter(models.CancelPendingOnly)

	var history []models.Order
	suite.data(suite.do(http.MethodGet, "/api/v1/orders", visitor, nil), &history)
	suite.Require().Len(history, 1)
	suite.Equal(order.ID, history[0].ID)
	suite.True(history[0].FinalTotal.Equal(decimal.RequireFromString("24.80")))
	suite.Empty(history[0].PickupCode, "the plain pickup code is never stored")
	suite.Len(history[0].Items, 1)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Order{}).Count(&count).Error)
	suite.Equal(int64(1), count)
}

func TestOrderIntegrationSuite(t *testing.T) {
	suite.Run(t, new(OrderIntegrationTestSuite))
}
