package category

import (
	"context"
	"errors"
	"strings"

	"shopx/internal/domain"
	"shopx/internal/slug"
)

type categoryRepo interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type Service struct {
	repo categoryRepo
}

func New(repo categoryRepo) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Upsert creates or renames a category. Only administrators may call it;
// a nil actor is trusted (seed and CLI paths).
func (s *Service) Upsert(ctx context.Context, actor *domain.User, name, categorySlug string) (*domain.Category, error) {
	if actor != nil && !actor.IsAdministrator() {
		return nil, domain.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("category name required")
	}
	categorySlug = slug.Make(categorySlug)
	if categorySlug == "" {
		categorySlug = slug.Make(name)
	}
	if categorySlug == "" {
		return nil, errors.New("category slug required")
	}
	return s.repo.Upsert(ctx, domain.Category{Slug: categorySlug, Name: name})
}
