package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	orderrepo "shopx/internal/repository/order"
	cartsvc "shopx/internal/service/cart"
)

type orderRepo interface {
	Create(ctx context.Context, in orderrepo.CreateInput) (*domain.Order, error)
	SnapshotCart(ctx context.Context, cartID string, userID *string, clearCart bool) (*domain.Order, error)
	MarkPaid(ctx context.Context, id, paymentReference string) (*domain.Order, error)
}

type cartRepo interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
}

// OrderObserver is notified of every paid order.
type OrderObserver interface {
	OrderPlaced(o *domain.Order)
}

type Service struct {
	orders   orderRepo
	carts    cartRepo
	cart     *cartsvc.Service
	payments PaymentGateway
	observer OrderObserver
	logger   *zap.Logger
}

func New(orders orderRepo, carts cartRepo, cart *cartsvc.Service, payments PaymentGateway, observer OrderObserver, l *zap.Logger) *Service {
	if payments == nil {
		payments = StubGateway{}
	}
	return &Service{orders: orders, carts: carts, cart: cart, payments: payments, observer: observer, logger: logger.OrNop(l)}
}

// Start places an order from the session cart when it has entries, otherwise
// from the authenticated user's persisted cart. It returns domain.ErrEmptyCart
// when there is nothing to order. The returned order is paid.
func (s *Service) Start(ctx context.Context, userID string, sess cartsvc.SessionCart) (*domain.Order, error) {
	var owner *string
	if userID != "" {
		owner = &userID
	}

	var (
		o   *domain.Order
		err error
	)
	switch {
	case len(sess.Cart()) > 0:
		o, err = s.fromSession(ctx, owner, sess)
	case userID != "":
		o, err = s.fromPersisted(ctx, userID)
	default:
		return nil, domain.ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	ref, err := s.payments.Charge(ctx, o.ID, o.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("charge order %s: %w", o.ID, err)
	}
	paid, err := s.orders.MarkPaid(ctx, o.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("mark order %s paid: %w", o.ID, err)
	}
	s.logger.Info("order paid",
		zap.String("order_id", paid.ID),
		zap.String("total", paid.TotalAmount.StringFixed(2)),
		zap.Int("items", len(paid.Items)),
	)
	if s.observer != nil {
		s.observer.OrderPlaced(paid)
	}

	s.ClearCarts(ctx, userID, sess)
	return paid, nil
}

// fromSession snapshots the anonymous cart at live prices. Entries whose
// products vanished are skipped; if none remain the cart counts as empty.
func (s *Service) fromSession(ctx context.Context, owner *string, sess cartsvc.SessionCart) (*domain.Order, error) {
	lines, err := s.cart.Session(sess).Lines(ctx)
	if err != nil {
		return nil, err
	}
	orderLines := domain.OrderLinesFromCart(lines)
	if len(orderLines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	return s.orders.Create(ctx, orderrepo.CreateInput{UserID: owner, Lines: orderLines})
}

func (s *Service) fromPersisted(ctx context.Context, userID string) (*domain.Order, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.orders.SnapshotCart(ctx, c.ID, &userID, true)
}

// ClearCarts empties both carts. Failures are logged and ignored.
func (s *Service) ClearCarts(ctx context.Context, userID string, sess cartsvc.SessionCart) {
	if err := s.cart.Session(sess).Clear(ctx); err != nil {
		s.logger.Warn("clear session cart", zap.Error(err))
	}
	if userID == "" {
		return
	}
	if err := s.cart.Persisted(userID).Clear(ctx); err != nil {
		s.logger.Warn("clear persisted cart", zap.String("user_id", userID), zap.Error(err))
	}
}
