package tag

import (
	"context"

	"shopx/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Tag, error)
	// GetOrCreate returns the tag with the given name, creating it with slug when missing.
	GetOrCreate(ctx context.Context, name, slug string) (*domain.Tag, error)
}
