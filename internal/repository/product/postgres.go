package product

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shopx/internal/db"
	"shopx/internal/domain"
	"shopx/internal/logger"
)

const selectColumns = `
SELECT p.id::text, p.category_id::text, c.slug, c.name, c.created_at,
       p.name, p.slug, p.description, p.price, p.image, p.created_at
FROM products p
JOIN categories c ON c.id = p.category_id
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, l *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(l)}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, selectColumns+`ORDER BY p.created_at DESC`)
}

func (r *postgresRepo) ListByCategory(ctx context.Context, categoryID string, limit int) ([]domain.Product, error) {
	q := selectColumns + `WHERE p.category_id = $1 ORDER BY p.created_at DESC`
	if limit > 0 {
		return r.query(ctx, q+` LIMIT $2`, categoryID, limit)
	}
	return r.query(ctx, q, categoryID)
}

func (r *postgresRepo) HomeListing(ctx context.Context, perCategory int) ([]domain.Product, error) {
	const q = `
SELECT id, category_id, cat_slug, cat_name, cat_created, name, slug, description, price, image, created_at
FROM (
    SELECT p.id::text AS id, p.category_id::text AS category_id, c.slug AS cat_slug, c.name AS cat_name,
           c.created_at AS cat_created, p.name, p.slug, p.description, p.price, p.image, p.created_at,
           row_number() OVER (PARTITION BY p.category_id ORDER BY p.created_at DESC, p.slug) AS rn
    FROM products p
    JOIN categories c ON c.id = p.category_id
) ranked
WHERE rn <= $1
ORDER BY cat_name ASC, created_at DESC
`
	return r.query(ctx, q, perCategory)
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, selectColumns+`WHERE p.slug = $1`, slug)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getOne(ctx, selectColumns+`WHERE p.id = $1`, id)
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := r.query(ctx, selectColumns+`WHERE p.id::text = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *postgresRepo) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	const q = selectColumns + `
WHERE p.name ILIKE $1 OR p.description ILIKE $1 OR EXISTS (
    SELECT 1 FROM product_tags pt JOIN tags t ON t.id = pt.tag_id
    WHERE pt.product_id = p.id AND t.name ILIKE $1
)
ORDER BY p.name ASC
`
	result, err := r.query(ctx, q, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, err
	}
	r.logger.Debug("product repo: search", zap.String("query", query), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (category_id, name, slug, description, price, image)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text
`
	var id string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, q, p.CategoryID, p.Name, p.Slug, p.Description, p.Price, p.Image).Scan(&id); err != nil {
			return mapWriteErr(err)
		}
		return replaceTags(ctx, tx, id, p.Tags)
	})
	if err != nil {
		r.logger.Warn("product repo: create", zap.String("slug", p.Slug), zap.Error(err))
		return nil, err
	}
	r.logger.Info("product repo: created", zap.String("slug", p.Slug), zap.String("id", id))
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (category_id, name, slug, description, price, image)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (slug) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    image = CASE WHEN EXCLUDED.image = '' THEN products.image ELSE EXCLUDED.image END
RETURNING id::text
`
	var id string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, q, p.CategoryID, p.Name, p.Slug, p.Description, p.Price, p.Image).Scan(&id); err != nil {
			return mapWriteErr(err)
		}
		return replaceTags(ctx, tx, id, p.Tags)
	})
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("slug", p.Slug), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: upserted", zap.String("slug", p.Slug), zap.String("id", id))
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrProductInUse
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) getOne(ctx context.Context, q string, args ...any) (*domain.Product, error) {
	list, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return &list[0], nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("product repo: query", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		var c domain.Category
		if err := rows.Scan(&p.ID, &p.CategoryID, &c.Slug, &c.Name, &c.CreatedAt,
			&p.Name, &p.Slug, &p.Description, &p.Price, &p.Image, &p.CreatedAt); err != nil {
			return nil, err
		}
		c.ID = p.CategoryID
		p.Category = &c
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachTags(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) attachTags(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}
	const q = `
SELECT pt.product_id::text, t.id::text, t.slug, t.name
FROM product_tags pt
JOIN tags t ON t.id = pt.tag_id
WHERE pt.product_id::text = ANY($1)
ORDER BY t.name ASC
`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var productID string
		var t domain.Tag
		if err := rows.Scan(&productID, &t.ID, &t.Slug, &t.Name); err != nil {
			return err
		}
		if i, ok := index[productID]; ok {
			products[i].Tags = append(products[i].Tags, t)
		}
	}
	return rows.Err()
}

func replaceTags(ctx context.Context, tx pgx.Tx, productID string, tags []domain.Tag) error {
	if _, err := tx.Exec(ctx, `DELETE FROM product_tags WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, t := range tags {
		if t.ID == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `INSERT INTO product_tags (product_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, productID, t.ID); err != nil {
			return err
		}
	}
	return nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrAlreadyExists
		case "23503":
			return domain.ErrNotFound
		}
	}
	return err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
