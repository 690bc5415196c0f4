package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
	"gorm.io/gorm"
)

// OrderStore persists locally created orders
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, sessionID, orderID string) (*models.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, at time.Time) error
	Reassign(ctx context.Context, fromSessionID, toSessionID string) error
}

// GormOrderStore implements OrderStore on the application database
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates an order store
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// Create inserts the order together with its line items
func (s *GormOrderStore) Create(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Get loads an order owned by the session
func (s *GormOrderStore) Get(ctx context.Context, sessionID, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND session_id = ?", orderID, sessionID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	return &order, nil
}

// ListBySession returns the session's orders, most recent first
func (s *GormOrderStore) ListBySession(ctx context.Context, sessionID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus overwrites the stored status
func (s *GormOrderStore) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if result.Error != nil {
		return fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// Reassign moves every order of one session to another
func (s *GormOrderStore) Reassign(ctx context.Context, fromSessionID, toSessionID string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("session_id = ?", fromSessionID).
		Update("session_id", toSessionID).Error
	if err != nil {
		return fmt.Errorf("failed to reassign orders: %w", err)
	}
	return nil
}
