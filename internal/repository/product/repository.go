package product

import (
	"context"

	"shopx/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	// ListByCategory returns newest first; limit <= 0 means no limit.
	ListByCategory(ctx context.Context, categoryID string, limit int) ([]domain.Product, error)
	// HomeListing returns up to perCategory newest products for every category.
	HomeListing(ctx context.Context, perCategory int) ([]domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetByIDs returns the products that exist, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	// Search matches name, description or tag name case-insensitively.
	Search(ctx context.Context, query string) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	// Upsert inserts or updates the product identified by slug and replaces its tags.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}
