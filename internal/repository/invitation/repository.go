package invitation

import (
	"context"

	"shopx/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, inv domain.Invitation) error
	Get(ctx context.Context, id string) (*domain.Invitation, error)
	ListPending(ctx context.Context) ([]domain.Invitation, error)
}
