package order

import (
	"context"

	"shopx/internal/domain"
)

type CreateInput struct {
	UserID          *string
	Lines           []domain.OrderLine
	ShippingAddress string
	BillingAddress  string
}

type Repository interface {
	// Create writes a pending order and its items. The total is computed from Lines.
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	// SnapshotCart turns the lines of a persisted cart into a pending order in
	// one transaction with the cart locked. clearCart deletes the snapshotted lines.
	// Returns domain.ErrEmptyCart when the cart has no lines.
	SnapshotCart(ctx context.Context, cartID string, userID *string, clearCart bool) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, limit int) ([]domain.Order, error)
	MarkPaid(ctx context.Context, id, paymentReference string) (*domain.Order, error)
	Cancel(ctx context.Context, id string) (*domain.Order, error)
}
