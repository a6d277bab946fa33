package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shopx/internal/db"
	"shopx/internal/domain"
	"shopx/internal/logger"
	"shopx/internal/repository/cart"
)

const orderColumns = `
SELECT o.id::text, o.user_id::text, COALESCE(u.username, ''), o.status, o.total_amount,
       o.shipping_address, o.billing_address, o.payment_reference, o.created_at, o.paid_at
FROM orders o
LEFT JOIN users u ON u.id = o.user_id
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, l *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(l)}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	lines := positiveLines(in.Lines)
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	var id string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		id, err = insertOrder(ctx, tx, in.UserID, lines, in.ShippingAddress, in.BillingAddress)
		return err
	})
	if err != nil {
		r.logger.Error("order repo: create", zap.Error(err))
		return nil, err
	}
	r.logger.Info("order repo: created", zap.String("order_id", id), zap.Int("items", len(lines)))
	return r.Get(ctx, id)
}

func (r *postgresRepo) SnapshotCart(ctx context.Context, cartID string, userID *string, clearCart bool) (*domain.Order, error) {
	var id string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		cartLines, err := cart.FetchLines(ctx, tx, cartID, true)
		if err != nil {
			return err
		}
		lines := domain.OrderLinesFromCart(cartLines)
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}
		id, err = insertOrder(ctx, tx, userID, lines, "", "")
		if err != nil {
			return err
		}
		if clearCart {
			if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyCart) {
			r.logger.Error("order repo: snapshot cart", zap.String("cart_id", cartID), zap.Error(err))
		}
		return nil, err
	}
	r.logger.Info("order repo: cart snapshotted", zap.String("cart_id", cartID), zap.String("order_id", id))
	return r.Get(ctx, id)
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.query(ctx, orderColumns+`WHERE o.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return &orders[0], nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.query(ctx, orderColumns+`WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
}

func (r *postgresRepo) ListAll(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.query(ctx, orderColumns+`ORDER BY o.created_at DESC LIMIT $1`, limit)
}

func (r *postgresRepo) MarkPaid(ctx context.Context, id, paymentReference string) (*domain.Order, error) {
	const q = `
UPDATE orders
SET status = 'paid', paid_at = now(), payment_reference = $2
WHERE id = $1 AND status = 'pending'
`
	return r.transition(ctx, id, domain.OrderPaid, q, id, paymentReference)
}

func (r *postgresRepo) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
UPDATE orders
SET status = 'cancelled'
WHERE id = $1 AND status = 'pending'
`
	return r.transition(ctx, id, domain.OrderCancelled, q, id)
}

// transition applies a conditional status update and explains a miss.
func (r *postgresRepo) transition(ctx context.Context, id string, to domain.OrderStatus, q string, args ...any) (*domain.Order, error) {
	cmd, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.CheckTransition(current.Status, to)
	}
	r.logger.Info("order repo: status changed", zap.String("order_id", id), zap.String("status", string(to)))
	return current, nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Username, &status, &o.TotalAmount,
			&o.ShippingAddress, &o.BillingAddress, &o.PaymentReference, &o.CreatedAt, &o.PaidAt); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}
	const q = `
SELECT oi.id::text, oi.order_id::text, oi.product_id::text, p.name, p.slug, oi.quantity, oi.price
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id::text = ANY($1)
ORDER BY p.name ASC
`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSlug, &it.Quantity, &it.Price); err != nil {
			return err
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func insertOrder(ctx context.Context, tx pgx.Tx, userID *string, lines []domain.OrderLine, shipping, billing string) (string, error) {
	total := domain.OrderTotal(lines)
	var id string
	err := tx.QueryRow(ctx, `
INSERT INTO orders (user_id, status, total_amount, shipping_address, billing_address)
VALUES ($1, 'pending', $2, $3, $4)
RETURNING id::text
`, userID, total, shipping, billing).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)`,
			id, l.ProductID, l.Quantity, l.Price)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("insert order items: %w", err)
	}
	return id, nil
}

func positiveLines(lines []domain.OrderLine) []domain.OrderLine {
	out := make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return out
}
