package category

import (
	"context"

	"shopx/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	// Upsert inserts the category or renames the existing one with the same slug.
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}
