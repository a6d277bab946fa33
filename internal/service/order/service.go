package order

import (
	"context"

	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
)

type orderRepo interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, limit int) ([]domain.Order, error)
	Cancel(ctx context.Context, id string) (*domain.Order, error)
}

type Service struct {
	repo   orderRepo
	logger *zap.Logger
}

func New(repo orderRepo, l *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger.OrNop(l)}
}

// History lists the user's orders, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns an order visible to actor: its owner or an administrator.
func (s *Service) Get(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdministrator() {
		return o, nil
	}
	if actor == nil || o.UserID == nil || *o.UserID != actor.ID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// ListAll is the admin order listing.
func (s *Service) ListAll(ctx context.Context, actor *domain.User) ([]domain.Order, error) {
	if !actor.IsAdministrator() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListAll(ctx, 200)
}

// Cancel moves a pending order to cancelled. Paid and cancelled orders are final.
func (s *Service) Cancel(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	if !actor.IsAdministrator() {
		return nil, domain.ErrForbidden
	}
	o, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order cancelled", zap.String("order_id", id), zap.String("by", actor.Username))
	return o, nil
}
