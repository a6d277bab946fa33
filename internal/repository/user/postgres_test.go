package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"shopx/internal/domain"
	"shopx/internal/testutil/pgtest"
)

func TestPostgres_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(pgtest.Pool(t), nil)

	created, err := repo.Create(ctx, domain.User{Username: "alice", Email: "Alice@Example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.IsAdministrator() {
		t.Fatalf("expected non-admin user")
	}

	byEmail, err := repo.GetByEmail(ctx, "alice@example.COM")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("expected same user")
	}

	if _, err := repo.Create(ctx, domain.User{Username: "alice2", Email: "ALICE@example.com", PasswordHash: "x"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected case-insensitive email conflict, got %v", err)
	}
	if _, err := repo.GetByUsername(ctx, "bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_CreateAdminRedeemsInvitationOnce(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	repo := NewPostgres(pool, nil)

	invID := uuid.NewString()
	if _, err := pool.Exec(ctx, `INSERT INTO admin_invitations (id, email, expires_at) VALUES ($1, $2, $3)`,
		invID, "boss@example.com", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("insert invitation: %v", err)
	}

	admin, err := repo.CreateAdmin(ctx, domain.User{Username: "boss", Email: "boss@example.com", PasswordHash: "h"}, invID)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if !admin.IsAdmin || !admin.IsStaff || !admin.IsSuperuser {
		t.Fatalf("expected all admin flags, got %+v", admin)
	}

	_, err = repo.CreateAdmin(ctx, domain.User{Username: "boss2", Email: "boss@example.com", PasswordHash: "h"}, invID)
	if err == nil {
		t.Fatalf("expected reused invitation to fail")
	}
	if _, err := repo.GetByUsername(ctx, "boss2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no user for failed redemption, got %v", err)
	}
}

func TestPostgres_CreateAdminRejectsForeignEmail(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	repo := NewPostgres(pool, nil)

	invID := uuid.NewString()
	if _, err := pool.Exec(ctx, `INSERT INTO admin_invitations (id, email, expires_at) VALUES ($1, $2, $3)`,
		invID, "boss@example.com", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("insert invitation: %v", err)
	}

	_, err := repo.CreateAdmin(ctx, domain.User{Username: "mallory", Email: "mallory@example.com", PasswordHash: "h"}, invID)
	if !errors.Is(err, domain.ErrInvitationInvalid) {
		t.Fatalf("expected ErrInvitationInvalid, got %v", err)
	}
	if _, err := repo.GetByUsername(ctx, "mallory"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}
