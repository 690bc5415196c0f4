package models

import "fmt"

// CancellationPolicy decides from which statuses an order may be cancelled
type CancellationPolicy string

const (
	// CancelPendingOnly allows cancelling (rejecting) only orders nobody has accepted yet
	CancelPendingOnly CancellationPolicy = "pending_only"
	// CancelBeforePreparation also allows cancelling accepted orders
	CancelBeforePreparation CancellationPolicy = "before_preparation"
	// CancelAnyActive allows cancelling from any non-terminal status
	CancelAnyActive CancellationPolicy = "any_active"
)

// ParseCancellationPolicy validates a configured policy name
func ParseCancellationPolicy(raw string) (CancellationPolicy, error) {
	switch policy := CancellationPolicy(raw); policy {
	case CancelPendingOnly, CancelBeforePreparation, CancelAnyActive:
		return policy, nil
	case "":
		return CancelPendingOnly, nil
	default:
		return "", fmt.Errorf("unknown cancellation policy %q (want %s, %s or %s)",
			raw, CancelPendingOnly, CancelBeforePreparation, CancelAnyActive)
	}
}

// TransitionTable maps each status to the statuses it may move to.
// A single table is shared by every place that changes an order status.
type TransitionTable struct {
	policy  CancellationPolicy
	allowed map[OrderStatus][]OrderStatus
}

// NewTransitionTable builds the table for the given cancellation policy
func NewTransitionTable(policy CancellationPolicy) *TransitionTable {
	allowed := make(map[OrderStatus][]OrderStatus)
	for _, status := range statusSequence {
		if next, ok := status.Next(); ok {
			allowed[status] = append(allowed[status], next)
		}
	}

	var cancellable []OrderStatus
	switch policy {
	case CancelBeforePreparation:
		cancellable = []OrderStatus{StatusPending, StatusAccepted}
	case CancelAnyActive:
		cancellable = []OrderStatus{StatusPending, StatusAccepted, StatusPreparing, StatusReady}
	default:
		policy = CancelPendingOnly
		cancellable = []OrderStatus{StatusPending}
	}
	for _, status := range cancellable {
		allowed[status] = append(allowed[status], StatusCancelled)
	}

	return &TransitionTable{policy: policy, allowed: allowed}
}

// Policy returns the cancellation policy the table was built with
func (t *TransitionTable) Policy() CancellationPolicy {
	return t.policy
}

// Allowed returns the statuses reachable from the given status
func (t *TransitionTable) Allowed(from OrderStatus) []OrderStatus {
	next := t.allowed[from]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is in the table
func (t *TransitionTable) CanTransition(from, to OrderStatus) bool {
	for _, status := range t.allowed[from] {
		if status == to {
			return true
		}
	}
	return false
}

// Validate returns a *TransitionError when from -> to is not permitted
func (t *TransitionTable) Validate(from, to OrderStatus) error {
	if !t.CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
