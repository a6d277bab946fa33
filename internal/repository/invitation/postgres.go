package invitation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopx/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, inv domain.Invitation) error {
	const q = `
INSERT INTO admin_invitations (id, email, expires_at)
VALUES ($1, $2, $3)
`
	_, err := r.pool.Exec(ctx, q, inv.ID, inv.Email, inv.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Invitation, error) {
	const q = `
SELECT id::text, email, expires_at, redeemed_at, redeemed_by::text, created_at
FROM admin_invitations
WHERE id = $1
`
	inv, err := scan(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *postgresRepo) ListPending(ctx context.Context) ([]domain.Invitation, error) {
	const q = `
SELECT id::text, email, expires_at, redeemed_at, redeemed_by::text, created_at
FROM admin_invitations
WHERE redeemed_at IS NULL AND expires_at > now()
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Invitation
	for rows.Next() {
		inv, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func scan(row pgx.Row) (*domain.Invitation, error) {
	var inv domain.Invitation
	if err := row.Scan(&inv.ID, &inv.Email, &inv.ExpiresAt, &inv.RedeemedAt, &inv.RedeemedBy, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}
