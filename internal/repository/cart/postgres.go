package cart

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopx/internal/db"
	"shopx/internal/domain"
	"shopx/internal/logger"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, l *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(l)}
}

func (r *postgresRepo) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
RETURNING id::text, user_id::text, created_at, updated_at
`
	var c domain.Cart
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		r.logger.Error("cart repo: get or create", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	lines, err := r.Lines(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = lines
	return &c, nil
}

func (r *postgresRepo) Lines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	return fetchLines(ctx, r.pool, cartID, false)
}

func (r *postgresRepo) AddLine(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return nil
	}
	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, product_id) DO UPDATE SET
    quantity = cart_items.quantity + EXCLUDED.quantity,
    unit_price = EXCLUDED.unit_price
`
	if _, err := r.pool.Exec(ctx, q, cartID, productID, quantity, unitPrice); err != nil {
		r.logger.Error("cart repo: add line", zap.String("cart_id", cartID), zap.String("product_id", productID), zap.Error(err))
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *postgresRepo) SetQuantity(ctx context.Context, cartID, productID string, quantity int, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return r.Remove(ctx, cartID, productID)
	}
	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, product_id) DO UPDATE SET
    quantity = EXCLUDED.quantity,
    unit_price = EXCLUDED.unit_price
`
	if _, err := r.pool.Exec(ctx, q, cartID, productID, quantity, unitPrice); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *postgresRepo) Decrement(ctx context.Context, cartID, productID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = quantity - 1
WHERE cart_id = $1 AND product_id = $2 AND quantity > 1
`, cartID, productID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
		return err
	})
}

func (r *postgresRepo) Remove(ctx context.Context, cartID, productID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return err
	}
	r.logger.Debug("cart repo: cleared", zap.String("cart_id", cartID), zap.Int64("lines", cmd.RowsAffected()))
	return r.touch(ctx, cartID)
}

func (r *postgresRepo) touch(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// FetchLines loads the cart lines joined with their products. forUpdate
// locks the line rows and must only be used inside a transaction.
func FetchLines(ctx context.Context, q Querier, cartID string, forUpdate bool) ([]domain.CartLine, error) {
	return fetchLines(ctx, q, cartID, forUpdate)
}

func fetchLines(ctx context.Context, q Querier, cartID string, forUpdate bool) ([]domain.CartLine, error) {
	query := `
SELECT ci.id::text, ci.cart_id::text, ci.product_id::text, ci.quantity, ci.unit_price, ci.created_at,
       p.name, p.slug, p.price, p.image, p.category_id::text
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at ASC, ci.id ASC
`
	if forUpdate {
		query += ` FOR UPDATE OF ci`
	}
	rows, err := q.Query(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		var p domain.Product
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.Quantity,
			&line.UnitPrice,
			&line.CreatedAt,
			&p.Name,
			&p.Slug,
			&p.Price,
			&p.Image,
			&p.CategoryID,
		); err != nil {
			return nil, err
		}
		p.ID = line.ProductID
		line.Product = &p
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
