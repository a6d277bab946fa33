package tag

import (
	"context"

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

func (r *postgresRepo) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, slug, name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *postgresRepo) GetOrCreate(ctx context.Context, name, slug string) (*domain.Tag, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	const q = `
INSERT INTO tags (name, slug)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text, slug, name
`
	var t domain.Tag
	if err := r.pool.QueryRow(ctx, q, name, slug).Scan(&t.ID, &t.Slug, &t.Name); err != nil {
		r.logger.Error("tag repo: get or create", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return &t, nil
}
