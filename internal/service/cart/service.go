package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
)

// Source is a cart as seen by handlers and checkout, whether persisted for
// a user or held in an anonymous session.
type Source interface {
	Lines(ctx context.Context) ([]domain.CartLine, error)
	// Add increases the product's quantity; qty <= 0 is a no-op.
	Add(ctx context.Context, product domain.Product, qty int) error
	// SetQuantity sets an exact quantity; qty <= 0 removes the line.
	SetQuantity(ctx context.Context, product domain.Product, qty int) error
	// Decrement lowers the quantity by one, removing the line at zero.
	Decrement(ctx context.Context, productID string) error
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
	Subtotal(ctx context.Context) (decimal.Decimal, error)
}

// SessionCart is the part of a session that stores an anonymous cart.
type SessionCart interface {
	Cart() map[string]int
	SetCart(map[string]int)
}

type cartRepo interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
	Lines(ctx context.Context, cartID string) ([]domain.CartLine, error)
	AddLine(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error
	SetQuantity(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error
	Decrement(ctx context.Context, cartID, productID string) error
	Remove(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
}

type orderSnapshotter interface {
	SnapshotCart(ctx context.Context, cartID string, userID *string, clearCart bool) (*domain.Order, error)
}

type productRepo interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type Service struct {
	repo     cartRepo
	products productRepo
	orders   orderSnapshotter
	logger   *zap.Logger
}

func New(repo cartRepo, products productRepo, l *zap.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger.OrNop(l)}
}

// WithOrders enables ToOrder.
func (s *Service) WithOrders(orders orderSnapshotter) *Service {
	s.orders = orders
	return s
}

// Resolve picks the persisted cart for an authenticated user and the
// session cart otherwise.
func (s *Service) Resolve(userID string, sess SessionCart) Source {
	if userID != "" {
		return s.Persisted(userID)
	}
	return s.Session(sess)
}

// Persisted returns the user's database cart. The row is created on first use.
func (s *Service) Persisted(userID string) Source {
	return &persistedSource{repo: s.repo, userID: userID}
}

// Session returns the anonymous cart held in sess.
func (s *Service) Session(sess SessionCart) Source {
	return &sessionSource{sess: sess, products: s.products}
}

// ToOrder snapshots the user's persisted cart into a pending order owned by
// the cart's user. The cart lines are left in place.
func (s *Service) ToOrder(ctx context.Context, userID string) (*domain.Order, error) {
	if s.orders == nil {
		return nil, errors.New("cart: order store not configured")
	}
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	owner := c.UserID
	o, err := s.orders.SnapshotCart(ctx, c.ID, &owner, false)
	if err != nil {
		return nil, fmt.Errorf("snapshot cart %s: %w", c.ID, err)
	}
	return o, nil
}

// MergeSession moves the anonymous cart into the user's persisted cart and
// empties the session cart. Products that no longer exist are dropped.
func (s *Service) MergeSession(ctx context.Context, userID string, sess SessionCart) error {
	items := sess.Cart()
	if len(items) == 0 {
		return nil
	}
	lines, err := s.Session(sess).Lines(ctx)
	if err != nil {
		return err
	}
	dst := s.Persisted(userID)
	for _, l := range lines {
		if err := dst.Add(ctx, *l.Product, l.Quantity); err != nil {
			return fmt.Errorf("merge product %s: %w", l.ProductID, err)
		}
	}
	sess.SetCart(nil)
	s.logger.Info("session cart merged", zap.String("user_id", userID), zap.Int("lines", len(lines)))
	return nil
}

type persistedSource struct {
	repo   cartRepo
	userID string
	cartID string
}

func (p *persistedSource) id(ctx context.Context) (string, error) {
	if p.cartID != "" {
		return p.cartID, nil
	}
	c, err := p.repo.GetOrCreate(ctx, p.userID)
	if err != nil {
		return "", err
	}
	p.cartID = c.ID
	return p.cartID, nil
}

func (p *persistedSource) Lines(ctx context.Context) ([]domain.CartLine, error) {
	id, err := p.id(ctx)
	if err != nil {
		return nil, err
	}
	return p.repo.Lines(ctx, id)
}

func (p *persistedSource) Add(ctx context.Context, product domain.Product, qty int) error {
	if qty <= 0 {
		return nil
	}
	id, err := p.id(ctx)
	if err != nil {
		return err
	}
	return p.repo.AddLine(ctx, id, product.ID, qty, product.Price)
}

func (p *persistedSource) SetQuantity(ctx context.Context, product domain.Product, qty int) error {
	if qty <= 0 {
		return p.Remove(ctx, product.ID)
	}
	id, err := p.id(ctx)
	if err != nil {
		return err
	}
	return p.repo.SetQuantity(ctx, id, product.ID, qty, product.Price)
}

func (p *persistedSource) Decrement(ctx context.Context, productID string) error {
	id, err := p.id(ctx)
	if err != nil {
		return err
	}
	return p.repo.Decrement(ctx, id, productID)
}

func (p *persistedSource) Remove(ctx context.Context, productID string) error {
	id, err := p.id(ctx)
	if err != nil {
		return err
	}
	return p.repo.Remove(ctx, id, productID)
}

func (p *persistedSource) Clear(ctx context.Context) error {
	id, err := p.id(ctx)
	if err != nil {
		return err
	}
	return p.repo.Clear(ctx, id)
}

func (p *persistedSource) Subtotal(ctx context.Context) (decimal.Decimal, error) {
	lines, err := p.Lines(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.Subtotal(lines), nil
}

type sessionSource struct {
	sess     SessionCart
	products productRepo
}

// Lines prices each entry at the product's current price and skips products
// that no longer exist.
func (s *sessionSource) Lines(ctx context.Context) ([]domain.CartLine, error) {
	items := s.sess.Cart()
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(items))
	for id, qty := range items {
		p, ok := products[id]
		if !ok || qty <= 0 {
			continue
		}
		lines = append(lines, domain.CartLine{ProductID: id, Product: &p, Quantity: qty, UnitPrice: p.Price})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Product.Name != lines[j].Product.Name {
			return lines[i].Product.Name < lines[j].Product.Name
		}
		return lines[i].ProductID < lines[j].ProductID
	})
	return lines, nil
}

func (s *sessionSource) Add(_ context.Context, product domain.Product, qty int) error {
	if qty <= 0 {
		return nil
	}
	items := s.sess.Cart()
	items[product.ID] += qty
	s.sess.SetCart(items)
	return nil
}

func (s *sessionSource) SetQuantity(_ context.Context, product domain.Product, qty int) error {
	items := s.sess.Cart()
	if qty <= 0 {
		delete(items, product.ID)
	} else {
		items[product.ID] = qty
	}
	s.sess.SetCart(items)
	return nil
}

func (s *sessionSource) Decrement(_ context.Context, productID string) error {
	items := s.sess.Cart()
	qty, ok := items[productID]
	if !ok {
		return nil
	}
	if qty > 1 {
		items[productID] = qty - 1
	} else {
		delete(items, productID)
	}
	s.sess.SetCart(items)
	return nil
}

func (s *sessionSource) Remove(_ context.Context, productID string) error {
	items := s.sess.Cart()
	if _, ok := items[productID]; !ok {
		return nil
	}
	delete(items, productID)
	s.sess.SetCart(items)
	return nil
}

func (s *sessionSource) Clear(context.Context) error {
	s.sess.SetCart(nil)
	return nil
}

func (s *sessionSource) Subtotal(ctx context.Context) (decimal.Decimal, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.Subtotal(lines), nil
}
