package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	mathrand "math/rand/v2"
	"sync"

	"github.com/fasttech-foods/backoffice-api/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	minEstimatedMinutes = 15
	maxEstimatedMinutes = 35
)

// OrderBook owns the carts and the locally created orders of every session
type OrderBook struct {
	cartMu   sync.Mutex
	carts    map[string]*models.Cart
	statusMu sync.Mutex
	idMu     sync.Mutex
	lastID   int64

	store     OrderStore
	table     *models.TransitionTable
	clock     Clock
	logger    *slog.Logger
	pubMu     sync.RWMutex
	publisher Publishers
}

// NewOrderBook creates an order book backed by the store
func NewOrderBook(store OrderStore, table *models.TransitionTable, clock Clock, logger *slog.Logger) *OrderBook {
	return &OrderBook{
		carts:  make(map[string]*models.Cart),
		store:  store,
		table:  table,
		clock:  clock,
		logger: logger,
	}
}

// AddPublisher registers a receiver for status changes
func (b *OrderBook) AddPublisher(p EventPublisher) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	b.publisher = append(b.publisher, p)
}

func (b *OrderBook) cart(sessionID string) *models.Cart {
	c, ok := b.carts[sessionID]
	if !ok {
		c = &models.Cart{}
		b.carts[sessionID] = c
	}
	return c
}

// AddLineItem adds one unit of the product to the session's cart
func (b *OrderBook) AddLineItem(sessionID string, product models.ProductRef) models.Cart {
	b.cartMu.Lock()
	defer b.cartMu.Unlock()

	c := b.cart(sessionID)
	c.Add(product)
	return models.Cart{Items: c.Snapshot()}
}

// RemoveLineItem removes one unit of the product from the session's cart
func (b *OrderBook) RemoveLineItem(sessionID, productID string) models.Cart {
	b.cartMu.Lock()
	defer b.cartMu.Unlock()

	c := b.cart(sessionID)
	c.Remove(productID)
	return models.Cart{Items: c.Snapshot()}
}

// Cart returns a copy of the session's cart
func (b *OrderBook) Cart(sessionID string) models.Cart {
	b.cartMu.Lock()
	defer b.cartMu.Unlock()

	return models.Cart{Items: b.cart(sessionID).Snapshot()}
}

// Subtotal returns the session's cart subtotal
func (b *OrderBook) Subtotal(sessionID string) string {
	b.cartMu.Lock()
	defer b.cartMu.Unlock()

	return b.cart(sessionID).Subtotal().StringFixed(2)
}

// DropCart forgets the session's cart
func (b *OrderBook) DropCart(sessionID string) {
	b.cartMu.Lock()
	defer b.cartMu.Unlock()
	delete(b.carts, sessionID)
}

// TransferSession hands the cart and order history of one session id to another
func (b *OrderBook) TransferSession(ctx context.Context, fromSessionID, toSessionID string) error {
	b.cartMu.Lock()
	if c, ok := b.carts[fromSessionID]; ok {
		delete(b.carts, fromSessionID)
		if !c.IsEmpty() {
			b.carts[toSessionID] = c
		}
	}
	b.cartMu.Unlock()

	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	return b.store.Reassign(ctx, fromSessionID, toSessionID)
}

// CreateOrder turns the session's cart into a pending order. The returned order
// carries the plain pickup code; only its hash is stored.
func (b *OrderBook) CreateOrder(ctx context.Context, sessionID string, method models.DeliveryMethod, observations string) (*models.Order, error) {
	code, err := generatePickupCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pickup code: %w", err)
	}
	estimated := minEstimatedMinutes + mathrand.IntN(maxEstimatedMinutes-minEstimatedMinutes)
	id := b.nextOrderID()

	b.cartMu.Lock()
	c := b.cart(sessionID)
	items := c.Snapshot()
	subtotal := c.Subtotal()
	c.Clear()
	b.cartMu.Unlock()

	fee := method.Fee()
	now := b.clock.Now()
	order := &models.Order{
		ID:               id,
		SessionID:        sessionID,
		Items:            items,
		Subtotal:         subtotal,
		DeliveryMethod:   method,
		DeliveryFee:      fee,
		FinalTotal:       subtotal.Add(fee),
		Observations:     observations,
		Status:           models.StatusPending,
		EstimatedMinutes: &estimated,
		PickupCodeHash:   string(hash),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := b.store.Create(ctx, order); err != nil {
		b.restoreCart(sessionID, items)
		return nil, err
	}

	b.logger.Info("order created",
		"order_id", order.ID,
		"session_id", sessionID,
		"delivery_method", method,
		"final_total", order.FinalTotal.StringFixed(2))

	order.PickupCode = code
	return order, nil
}

// restoreCart puts the lines of a failed checkout back ahead of anything added since
func (b *OrderBook) restoreCart(sessionID string, items []models.LineItem) {
	b.cartMu.Lock()
	defer b.cartMu.Unlock()

	c := b.cart(sessionID)
	restored := &models.Cart{Items: items}
	for _, item := range c.Items {
		for i := 0; i < item.Quantity; i++ {
			restored.Add(models.ProductRef{ID: item.ProductID, Name: item.Name, UnitPrice: item.UnitPrice})
		}
	}
	c.Items = restored.Items
}

// GetOrder returns one of the session's orders or models.ErrOrderNotFound
func (b *OrderBook) GetOrder(ctx context.Context, sessionID, orderID string) (*models.Order, error) {
	return b.store.Get(ctx, sessionID, orderID)
}

// History returns the session's orders, most recent first
func (b *OrderBook) History(ctx context.Context, sessionID string) ([]models.Order, error) {
	return b.store.ListBySession(ctx, sessionID)
}

// AdvanceStatus moves an order to a new status if the transition table allows it.
// Delivery is only reachable through ConfirmDelivery.
func (b *OrderBook) AdvanceStatus(ctx context.Context, sessionID, orderID string, to models.OrderStatus) (*models.Order, error) {
	b.statusMu.Lock()
	order, change, err := b.applyStatus(ctx, sessionID, orderID, func(from models.OrderStatus) (models.OrderStatus, error) {
		return to, withoutPickupCode(from, to)
	})
	b.statusMu.Unlock()
	if err != nil {
		return nil, err
	}

	b.publish(ctx, change)
	return order, nil
}

// AdvanceToNext moves an order one step along the linear sequence, stopping at ready
func (b *OrderBook) AdvanceToNext(ctx context.Context, sessionID, orderID string) (*models.Order, error) {
	b.statusMu.Lock()
	order, change, err := b.applyStatus(ctx, sessionID, orderID, func(from models.OrderStatus) (models.OrderStatus, error) {
		next, ok := from.Next()
		if !ok {
			return "", &models.TransitionError{From: from, To: from}
		}
		return next, withoutPickupCode(from, next)
	})
	b.statusMu.Unlock()
	if err != nil {
		return nil, err
	}

	b.publish(ctx, change)
	return order, nil
}

// ConfirmDelivery checks the pickup code and marks a ready order as delivered
func (b *OrderBook) ConfirmDelivery(ctx context.Context, sessionID, orderID, code string) (*models.Order, error) {
	if err := ValidatePickupCode(code); err != nil {
		return nil, err
	}

	b.statusMu.Lock()
	order, change, err := b.applyStatus(ctx, sessionID, orderID, func(from models.OrderStatus) (models.OrderStatus, error) {
		return models.StatusDelivered, nil
	}, func(order *models.Order) error {
		if order.Status != models.StatusReady {
			return &models.TransitionError{From: order.Status, To: models.StatusDelivered}
		}
		if bcrypt.CompareHashAndPassword([]byte(order.PickupCodeHash), []byte(code)) != nil {
			return &models.ValidationError{Code: "WRONG_DELIVERY_CODE", Message: "Delivery code does not match"}
		}
		return nil
	})
	b.statusMu.Unlock()
	if err != nil {
		return nil, err
	}

	b.publish(ctx, change)
	return order, nil
}

func withoutPickupCode(from, to models.OrderStatus) error {
	if to == models.StatusDelivered {
		return &models.TransitionError{From: from, To: to}
	}
	return nil
}

// applyStatus must be called with statusMu held
func (b *OrderBook) applyStatus(
	ctx context.Context,
	sessionID, orderID string,
	target func(models.OrderStatus) (models.OrderStatus, error),
	checks ...func(*models.Order) error,
) (*models.Order, models.StatusChange, error) {
	order, err := b.store.Get(ctx, sessionID, orderID)
	if err != nil {
		return nil, models.StatusChange{}, err
	}

	for _, check := range checks {
		if err := check(order); err != nil {
			return nil, models.StatusChange{}, err
		}
	}

	from := order.Status
	to, err := target(from)
	if err != nil {
		return nil, models.StatusChange{}, err
	}
	if err := b.table.Validate(from, to); err != nil {
		return nil, models.StatusChange{}, err
	}

	now := b.clock.Now()
	if err := b.store.UpdateStatus(ctx, orderID, to, now); err != nil {
		return nil, models.StatusChange{}, err
	}
	order.Status = to
	order.UpdatedAt = now

	b.logger.Info("order status changed", "order_id", orderID, "from", from, "to", to)

	return order, models.StatusChange{
		OrderID:   orderID,
		SessionID: sessionID,
		From:      from,
		To:        to,
		Progress:  models.ProgressPercentage(to),
		At:        now,
	}, nil
}

func (b *OrderBook) publish(ctx context.Context, change models.StatusChange) {
	b.pubMu.RLock()
	publishers := b.publisher
	b.pubMu.RUnlock()

	if err := publishers.Publish(ctx, change); err != nil {
		b.logger.Warn("status change not delivered to every publisher", "order_id", change.OrderID, "error", err)
	}
}

// nextOrderID returns ORD-<unix millis>, bumped past the previous id when two
// orders land in the same millisecond
func (b *OrderBook) nextOrderID() string {
	b.idMu.Lock()
	defer b.idMu.Unlock()

	millis := b.clock.Now().UnixMilli()
	if millis <= b.lastID {
		millis = b.lastID + 1
	}
	b.lastID = millis
	return fmt.Sprintf("ORD-%d", millis)
}

// ValidatePickupCode requires exactly four digits
func ValidatePickupCode(code string) error {
	invalid := &models.ValidationError{Code: "INVALID_DELIVERY_CODE", Message: "Delivery code must have exactly 4 digits"}
	if len(code) != 4 {
		return invalid
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return invalid
		}
	}
	return nil
}

func generatePickupCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate pickup code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
