package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fasttech-foods/backoffice-api/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher receives every order status change
type EventPublisher interface {
	Publish(ctx context.Context, change models.StatusChange) error
}

// Publishers fans a change out to several publishers, collecting their errors
type Publishers []EventPublisher

func (p Publishers) Publish(ctx context.Context, change models.StatusChange) error {
	var errs []error
	for _, publisher := range p {
		if err := publisher.Publish(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broadcaster delivers status changes to in-process subscribers of one order
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan models.StatusChange
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[int]chan models.StatusChange)}
}

// Subscribe returns a channel of changes for the order and a function that
// unsubscribes and closes it
func (b *Broadcaster) Subscribe(orderID string) (<-chan models.StatusChange, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan models.StatusChange, 8)
	if b.subs[orderID] == nil {
		b.subs[orderID] = make(map[int]chan models.StatusChange)
	}
	b.subs[orderID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[orderID], id)
			if len(b.subs[orderID]) == 0 {
				delete(b.subs, orderID)
			}
			close(ch)
		})
	}
}

// Publish never blocks: a subscriber whose buffer is full misses the change
func (b *Broadcaster) Publish(_ context.Context, change models.StatusChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[change.OrderID] {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of open subscriptions for an order
func (b *Broadcaster) Subscribers(orderID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[orderID])
}

const (
	orderExchange       = "orders_topic"
	statusRoutingPrefix = "order.status."
)

// AMQPPublisher forwards status changes to the orders topic exchange
type AMQPPublisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	mu     sync.Mutex
	logger *slog.Logger
}

// NewAMQPPublisher dials RabbitMQ and declares the orders exchange
func NewAMQPPublisher(url string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(orderExchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare %s exchange: %w", orderExchange, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, logger: logger}, nil
}

// RoutingKey returns the key a change is published under
func RoutingKey(change models.StatusChange) string {
	return statusRoutingPrefix + string(change.To)
}

func (p *AMQPPublisher) Publish(ctx context.Context, change models.StatusChange) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode status change: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, orderExchange, RoutingKey(change), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    change.At,
		Body:         body,
	})
	if err != nil {
		p.logger.Error("failed to publish status change", "order_id", change.OrderID, "to", change.To, "error", err)
		return fmt.Errorf("failed to publish status change: %w", err)
	}
	return nil
}

// Ping reports whether the broker connection is still open
func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close releases the channel and the connection
func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
