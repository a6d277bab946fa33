package invitation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"shopx/internal/domain"
	"shopx/internal/testutil/pgtest"
)

func TestPostgres_CreateGetAndListPending(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgres(pgtest.Pool(t))

	live := domain.Invitation{ID: uuid.NewString(), Email: "a@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	expired := domain.Invitation{ID: uuid.NewString(), Email: "b@example.com", ExpiresAt: time.Now().Add(-time.Hour)}
	for _, inv := range []domain.Invitation{live, expired} {
		if err := repo.Create(ctx, inv); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.Create(ctx, live); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.Get(ctx, live.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != live.Email || got.RedeemedAt != nil {
		t.Fatalf("unexpected invitation %+v", got)
	}

	pending, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != live.ID {
		t.Fatalf("expected only the live invitation, got %+v", pending)
	}

	if _, err := repo.Get(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
