package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fasttech-foods/backoffice-api/models"
)

// KitchenAPI is the part of the kitchen service the order board uses
type KitchenAPI interface {
	ListOrders(ctx context.Context, status string) ([]models.KitchenOrder, error)
	PendingOrders(ctx context.Context) ([]models.KitchenOrder, error)
	GetOrder(ctx context.Context, id string) (*models.KitchenOrder, error)
	UpdateOrderStatus(ctx context.Context, id string, req models.UpdateOrderStatusRequest) error
}

// KitchenAction is a button on the order board
type KitchenAction string

const (
	ActionAccept          KitchenAction = "accept"
	ActionReject          KitchenAction = "reject"
	ActionStartPreparing  KitchenAction = "start_preparing"
	ActionMarkReady       KitchenAction = "mark_ready"
	ActionConfirmDelivery KitchenAction = "confirm_delivery"
	ActionCancel          KitchenAction = "cancel"
)

var kitchenActions = []KitchenAction{
	ActionAccept,
	ActionReject,
	ActionStartPreparing,
	ActionMarkReady,
	ActionConfirmDelivery,
	ActionCancel,
}

var actionTargets = map[KitchenAction]models.OrderStatus{
	ActionAccept:          models.StatusAccepted,
	ActionReject:          models.StatusCancelled,
	ActionStartPreparing:  models.StatusPreparing,
	ActionMarkReady:       models.StatusReady,
	ActionConfirmDelivery: models.StatusDelivered,
	ActionCancel:          models.StatusCancelled,
}

// ParseKitchenAction validates an action name
func ParseKitchenAction(raw string) (KitchenAction, error) {
	action := KitchenAction(raw)
	if _, ok := actionTargets[action]; !ok {
		return "", &models.ValidationError{Code: "UNKNOWN_ACTION", Message: fmt.Sprintf("Unknown action: %s", raw)}
	}
	return action, nil
}

// Target is the status the action moves an order to
func (a KitchenAction) Target() models.OrderStatus {
	return actionTargets[a]
}

// KitchenOrderView decorates a remote order with what the board renders
type KitchenOrderView struct {
	models.KitchenOrder
	NormalizedStatus models.OrderStatus `json:"normalized_status"`
	StatusLabel      string             `json:"status_label"`
	StatusColor      string             `json:"status_color"`
	Progress         int                `json:"progress"`
	Actions          []KitchenAction    `json:"actions"`
	Terminal         bool               `json:"terminal"`
}

// KitchenBoard is the order management view
type KitchenBoard struct {
	Orders       []KitchenOrderView `json:"orders"`
	PendingCount int                `json:"pending_count"`
}

// KitchenService drives the order board against the remote kitchen service
type KitchenService struct {
	api          KitchenAPI
	table        *models.TransitionTable
	codeRequired bool
	logger       *slog.Logger
}

// NewKitchenService creates the board service
func NewKitchenService(api KitchenAPI, table *models.TransitionTable, codeRequired bool, logger *slog.Logger) *KitchenService {
	return &KitchenService{api: api, table: table, codeRequired: codeRequired, logger: logger}
}

// AvailableActions lists the actions the transition table permits from a status
func (s *KitchenService) AvailableActions(status models.OrderStatus) []KitchenAction {
	actions := []KitchenAction{}
	for _, action := range kitchenActions {
		switch action {
		case ActionReject:
			if status != models.StatusPending {
				continue
			}
		case ActionCancel:
			if status == models.StatusPending {
				continue
			}
		default:
			if next, ok := status.Next(); !ok || next != action.Target() {
				continue
			}
		}
		if s.table.CanTransition(status, action.Target()) {
			actions = append(actions, action)
		}
	}
	return actions
}

func (s *KitchenService) decorate(order models.KitchenOrder) KitchenOrderView {
	view := KitchenOrderView{KitchenOrder: order, Actions: []KitchenAction{}}
	status, err := models.ParseOrderStatus(order.Status)
	if err != nil {
		view.StatusLabel = order.Status
		return view
	}
	view.NormalizedStatus = status
	view.StatusLabel = status.Label()
	view.StatusColor = status.Color()
	view.Progress = models.ProgressPercentage(status)
	view.Actions = s.AvailableActions(status)
	view.Terminal = status.IsTerminal()
	return view
}

// ListOrders loads the board, optionally filtered by the remote status value
func (s *KitchenService) ListOrders(ctx context.Context, statusFilter string) (*KitchenBoard, error) {
	orders, err := s.api.ListOrders(ctx, statusFilter)
	if err != nil {
		return nil, err
	}

	board := &KitchenBoard{Orders: make([]KitchenOrderView, 0, len(orders))}
	for _, order := range orders {
		view := s.decorate(order)
		if view.NormalizedStatus == models.StatusPending {
			board.PendingCount++
		}
		board.Orders = append(board.Orders, view)
	}
	return board, nil
}

// PendingOrders returns the orders waiting to be accepted
func (s *KitchenService) PendingOrders(ctx context.Context) ([]KitchenOrderView, error) {
	orders, err := s.api.PendingOrders(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]KitchenOrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, s.decorate(order))
	}
	return views, nil
}

// PerformAction applies a board action to a remote order and returns the reloaded board
func (s *KitchenService) PerformAction(ctx context.Context, actor models.Actor, orderID, rawAction, code string) (*KitchenBoard, error) {
	action, err := ParseKitchenAction(rawAction)
	if err != nil {
		return nil, err
	}
	if action == ActionConfirmDelivery && s.codeRequired {
		if err := ValidatePickupCode(code); err != nil {
			return nil, err
		}
	}

	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	current, err := models.ParseOrderStatus(order.Status)
	if err != nil {
		return nil, err
	}

	target := action.Target()
	allowed := false
	for _, available := range s.AvailableActions(current) {
		if available == action {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &models.TransitionError{From: current, To: target}
	}

	req := models.UpdateOrderStatusRequest{
		Status:    string(target),
		UpdatedBy: actor.ID,
		UserName:  actor.Name,
		Notes:     fmt.Sprintf("Status changed to %s", target),
	}
	if err := s.api.UpdateOrderStatus(ctx, orderID, req); err != nil {
		return nil, err
	}

	s.logger.Info("kitchen order updated",
		"order_id", orderID,
		"action", action,
		"from", current,
		"to", target,
		"actor_id", actor.ID)

	return s.ListOrders(ctx, "")
}
