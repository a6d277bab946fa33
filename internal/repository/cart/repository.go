package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"shopx/internal/domain"
)

// Repository persists per-user carts. Every user has at most one cart.
type Repository interface {
	// GetOrCreate returns the user's cart with its lines, creating it atomically.
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
	Lines(ctx context.Context, cartID string) ([]domain.CartLine, error)
	// AddLine inserts a line or increases its quantity, refreshing the unit price.
	AddLine(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error
	// SetQuantity sets an exact quantity; quantity <= 0 removes the line.
	SetQuantity(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error
	// Decrement lowers the quantity by one and deletes the line when it would reach zero.
	Decrement(ctx context.Context, cartID, productID string) error
	Remove(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}
