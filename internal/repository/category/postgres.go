package category

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

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

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id::text, slug, name, created_at
FROM categories
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("category repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("category repo: list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	const q = `
SELECT id::text, slug, name, created_at
FROM categories
WHERE slug = $1
`
	return r.scanOne(r.pool.QueryRow(ctx, q, slug))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const q = `
SELECT id::text, slug, name, created_at
FROM categories
WHERE id = $1
`
	return r.scanOne(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (slug, name)
VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text, slug, name, created_at
`
	out, err := r.scanOne(r.pool.QueryRow(ctx, q, c.Slug, c.Name))
	if err != nil {
		r.logger.Error("category repo: upsert", zap.String("slug", c.Slug), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) scanOne(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
