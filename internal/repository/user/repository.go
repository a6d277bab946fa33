package user

import (
	"context"

	"shopx/internal/domain"
)

// Repository persists and fetches users.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	// CreateAdmin creates u and redeems the invitation in one transaction.
	// The invitation must be unredeemed, unexpired and issued for u.Email.
	CreateAdmin(ctx context.Context, u domain.User, invitationID string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
