package user

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

const userColumns = `id::text, username, email, password_hash, is_admin, is_staff, is_superuser, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, l *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(l)}
}

const insertUser = `
INSERT INTO users (username, email, password_hash, is_admin, is_staff, is_superuser)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	out, err := r.scanUser(r.pool.QueryRow(ctx, insertUser,
		u.Username, strings.TrimSpace(u.Email), u.PasswordHash, u.IsAdmin, u.IsStaff, u.IsSuperuser))
	if err != nil {
		return nil, err
	}
	r.logger.Info("user repo: created", zap.String("username", out.Username), zap.String("id", out.ID))
	return out, nil
}

func (r *postgresRepo) CreateAdmin(ctx context.Context, u domain.User, invitationID string) (*domain.User, error) {
	const redeem = `
UPDATE admin_invitations
SET redeemed_at = now(), redeemed_by = $1
WHERE id = $2 AND redeemed_at IS NULL AND expires_at > now() AND lower(email) = lower($3)
`
	var out *domain.User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := r.scanUser(tx.QueryRow(ctx, insertUser,
			u.Username, strings.TrimSpace(u.Email), u.PasswordHash, true, true, true))
		if err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, redeem, created.ID, invitationID, created.Email)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrInvitationInvalid
		}
		out = created
		return nil
	})
	if err != nil {
		r.logger.Warn("user repo: create admin", zap.String("username", u.Username), zap.Error(err))
		return nil, err
	}
	r.logger.Info("user repo: admin created", zap.String("username", out.Username), zap.String("invitation", invitationID))
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *postgresRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanUser(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("user repo: scan", zap.Error(err))
		return nil, err
	}
	return &u, nil
}
