package models

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when an order id is not in the session's history
	ErrOrderNotFound = errors.New("order not found")

	// ErrSessionNotFound is returned by session stores for unknown ids
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition is wrapped by every TransitionError
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrEmployeeExists is returned when an email is already in the staff directory
	ErrEmployeeExists = errors.New("employee already exists")

	// ErrNotAuthenticated is returned when an operation needs a signed-in session
	ErrNotAuthenticated = errors.New("authentication required")
)

// ValidationError is raised for bad input before any remote call is made
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransitionError reports a status change that the transition table does not permit
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
