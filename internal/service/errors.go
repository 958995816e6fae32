package service

import (
	"errors"
	"fmt"

	"baburchi-admin/internal/model"
)

var (
	ErrForbidden = errors.New("you are not allowed to perform this action")

	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSKU    = errors.New("SKU already exists")

	ErrNoItems              = errors.New("order must contain at least one item")
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrCourierAlreadySynced = errors.New("order is already synced with the courier")
	ErrCourierSyncInFlight  = errors.New("courier sync for this order is already in progress")
	ErrCourierSyncFailed    = errors.New("courier sync failed")
	ErrWebhookUnauthorized  = errors.New("invalid courier webhook credentials")

	ErrLeadNotFound      = errors.New("lead not found")
	ErrModeratorNotFound = errors.New("moderator not found")
	ErrEmailTaken        = errors.New("email is already registered")
)

// TransitionError describes a rejected status change
type TransitionError struct {
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
