package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmptyCart is returned when a checkout finds nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition is returned for order status changes the state machine forbids.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrForbidden indicates the caller lacks the admin privilege.
	ErrForbidden = errors.New("forbidden")
	// ErrInvitationInvalid covers unknown, expired, foreign or already redeemed invitations.
	ErrInvitationInvalid = errors.New("invitation is not valid")
	// ErrProductInUse is returned when deleting a product referenced by an order.
	ErrProductInUse = errors.New("product is referenced by an order")
)
