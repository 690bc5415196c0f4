package controllers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// CreateOrderRequest represents the request body for checking out the cart
type CreateOrderRequest struct {
	DeliveryMethod string `json:"delivery_method" binding:"required"`
	Observations   string `json:"observations"`
}

// UpdateStatusRequest represents the request body for a manual status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ConfirmDeliveryRequest carries the customer's pickup code
type ConfirmDeliveryRequest struct {
	Code string `json:"code"`
}

// CartView is the cart as the checkout page renders it
type CartView struct {
	Items     []models.LineItem `json:"items"`
	Subtotal  string            `json:"subtotal"`
	ItemCount int               `json:"item_count"`
}

// TrackingView is the order tracking page
type TrackingView struct {
	Order            *models.Order `json:"order"`
	StatusLabel      string        `json:"status_label"`
	Progress         int           `json:"progress"`
	MinutesSince     int           `json:"minutes_since"`
	EstimatedReadyAt time.Time     `json:"estimated_ready_at"`
	IsReady          bool          `json:"is_ready"`
	AutoAdvancing    bool          `json:"auto_advancing"`
}

// OrderController serves the cart, checkout and order tracking
type OrderController struct {
	book      *services.OrderBook
	simulator *services.Simulator
	events    *services.Broadcaster
	clock     services.Clock
	logger    *slog.Logger
}

// NewOrderController creates an order controller. simulator may be nil.
func NewOrderController(book *services.OrderBook, simulator *services.Simulator, events *services.Broadcaster, clock services.Clock, logger *slog.Logger) *OrderController {
	return &OrderController{book: book, simulator: simulator, events: events, clock: clock, logger: logger}
}

func (ctl *OrderController) cartView(sessionID string) CartView {
	cart := ctl.book.Cart(sessionID)
	if cart.Items == nil {
		cart.Items = []models.LineItem{}
	}
	count := 0
	for _, item := range cart.Items {
		count += item.Quantity
	}
	return CartView{Items: cart.Items, Subtotal: ctl.book.Subtotal(sessionID), ItemCount: count}
}

// GetCart handles GET /api/v1/cart
func (ctl *OrderController) GetCart(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, ctl.cartView(session.ID))
}

// AddCartItem handles POST /api/v1/cart/items - adds one unit of a product
func (ctl *OrderController) AddCartItem(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var product models.ProductRef
	if err := c.ShouldBindJSON(&product); err != nil {
		respondBindingError(c, err)
		return
	}
	if !product.UnitPrice.IsPositive() {
		respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unit price must be greater than zero")
		return
	}

	ctl.book.AddLineItem(session.ID, product)
	respondOK(c, http.StatusOK, ctl.cartView(session.ID))
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:productId - removes one unit
func (ctl *OrderController) RemoveCartItem(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	ctl.book.RemoveLineItem(session.ID, c.Param("productId"))
	respondOK(c, http.StatusOK, ctl.cartView(session.ID))
}

// CreateOrder handles POST /api/v1/orders - checks out the cart
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	method, err := models.ParseDeliveryMethod(req.DeliveryMethod)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	cart := ctl.book.Cart(session.ID)
	if cart.IsEmpty() {
		respondFailure(c, http.StatusBadRequest, "EMPTY_CART", "Add at least one item before checking out")
		return
	}

	order, err := ctl.book.CreateOrder(c.Request.Context(), session.ID, method, req.Observations)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	ctl.logger.Info("order created", "order_id", order.ID, "session_id", session.ID, "total", order.FinalTotal.StringFixed(2))
	respondOK(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders - the session's history, newest first
func (ctl *OrderController) ListOrders(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	orders, err := ctl.book.History(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, orders)
}

func (ctl *OrderController) tracking(order *models.Order) TrackingView {
	return TrackingView{
		Order:            order,
		StatusLabel:      order.Status.Label(),
		Progress:         order.Progress(),
		MinutesSince:     order.MinutesSince(ctl.clock.Now()),
		EstimatedReadyAt: order.EstimatedReadyAt(),
		IsReady:          order.IsReady(),
		AutoAdvancing:    ctl.simulator.Watching(order.ID),
	}
}

// GetOrder handles GET /api/v1/orders/:id - the tracking view. Opening it
// starts the simulated kitchen for the order when simulation is enabled.
func (ctl *OrderController) GetOrder(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	order, err := ctl.book.GetOrder(c.Request.Context(), session.ID, c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	ctl.simulator.Track(order)
	respondOK(c, http.StatusOK, ctl.tracking(order))
}

// Unwatch handles DELETE /api/v1/orders/:id/watch - the tracking view was closed
func (ctl *OrderController) Unwatch(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	order, err := ctl.book.GetOrder(c.Request.Context(), session.ID, c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	ctl.simulator.Unwatch(order.ID)
	c.Status(http.StatusNoContent)
}

// Events handles GET /api/v1/orders/:id/events - streams status changes as
// server-sent events until the order is terminal or the client goes away
func (ctl *OrderController) Events(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	order, err := ctl.book.GetOrder(c.Request.Context(), session.ID, c.Param("id"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	changes, unsubscribe := ctl.events.Subscribe(order.ID)
	defer unsubscribe()
	ctl.simulator.Watch(order)
	defer ctl.simulator.Release(order.ID)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", ctl.tracking(order))
	c.Writer.Flush()
	if order.Status.IsTerminal() {
		return
	}

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case change, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("status", change)
			return !change.To.IsTerminal()
		case <-done:
			return false
		}
	})
}

// UpdateStatus handles POST /api/v1/orders/:id/status - a manual move through the transition table
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}

	order, err := ctl.book.AdvanceStatus(c.Request.Context(), session.ID, c.Param("id"), status)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, ctl.tracking(order))
}

// ConfirmDelivery handles POST /api/v1/orders/:id/confirm-delivery
func (ctl *OrderController) ConfirmDelivery(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := ctl.book.ConfirmDelivery(c.Request.Context(), session.ID, c.Param("id"), req.Code)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, ctl.tracking(order))
}
