package order

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shopx/internal/domain"
	"shopx/internal/repository/cart"
	"shopx/internal/testutil/pgtest"
)

type fixture struct {
	userID   string
	cartID   string
	shoeID   string
	jacketID string
}

func seed(ctx context.Context, t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	var f fixture
	var catID string
	steps := []struct {
		q    string
		args []any
		dst  *string
	}{
		{`INSERT INTO users (username, email, password_hash) VALUES ('u', 'u@example.com', 'x') RETURNING id::text`, nil, &f.userID},
		{`INSERT INTO categories (slug, name) VALUES ('kids', 'Kids') RETURNING id::text`, nil, &catID},
	}
	for _, s := range steps {
		if err := pool.QueryRow(ctx, s.q, s.args...).Scan(s.dst); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := pool.QueryRow(ctx, `INSERT INTO products (category_id, name, slug, price) VALUES ($1, 'Shoe', 'shoe', 19.99) RETURNING id::text`, catID).Scan(&f.shoeID); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO products (category_id, name, slug, price) VALUES ($1, 'Jacket', 'jacket', 0.10) RETURNING id::text`, catID).Scan(&f.jacketID); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO carts (user_id) VALUES ($1) RETURNING id::text`, f.userID).Scan(&f.cartID); err != nil {
		t.Fatalf("insert cart: %v", err)
	}
	return f
}

func TestPostgres_SnapshotCartTotalsAndClears(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	f := seed(ctx, t, pool)
	if _, err := pool.Exec(ctx, `INSERT INTO cart_items (cart_id, product_id, quantity, unit_price) VALUES ($1, $2, 3, 19.99), ($1, $3, 100, 0.10)`,
		f.cartID, f.shoeID, f.jacketID); err != nil {
		t.Fatalf("insert lines: %v", err)
	}

	repo := NewPostgres(pool, nil)
	o, err := repo.SnapshotCart(ctx, f.cartID, &f.userID, true)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !o.TotalAmount.Equal(decimal.RequireFromString("69.97")) {
		t.Fatalf("expected 69.97, got %s", o.TotalAmount)
	}
	if o.Status != domain.OrderPending || len(o.Items) != 2 {
		t.Fatalf("unexpected order %+v", o)
	}
	if o.Customer() != "u" {
		t.Fatalf("expected username on order, got %q", o.Customer())
	}

	var left int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM cart_items WHERE cart_id = $1`, f.cartID).Scan(&left); err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 0 {
		t.Fatalf("expected cart cleared, %d lines left", left)
	}

	if _, err := repo.SnapshotCart(ctx, f.cartID, &f.userID, true); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestPostgres_SnapshotCartKeepsLines(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	f := seed(ctx, t, pool)
	if _, err := pool.Exec(ctx, `INSERT INTO cart_items (cart_id, product_id, quantity, unit_price) VALUES ($1, $2, 3, 19.99), ($1, $3, 100, 0.10)`,
		f.cartID, f.shoeID, f.jacketID); err != nil {
		t.Fatalf("insert lines: %v", err)
	}
	before, err := cart.FetchLines(ctx, pool, f.cartID, false)
	if err != nil {
		t.Fatalf("lines: %v", err)
	}

	repo := NewPostgres(pool, nil)
	o, err := repo.SnapshotCart(ctx, f.cartID, &f.userID, false)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if o.Status != domain.OrderPending {
		t.Fatalf("expected pending, got %s", o.Status)
	}
	if !o.TotalAmount.Equal(domain.Subtotal(before)) {
		t.Fatalf("expected total %s, got %s", domain.Subtotal(before), o.TotalAmount)
	}
	if o.UserID == nil || *o.UserID != f.userID {
		t.Fatalf("expected order owned by %s, got %v", f.userID, o.UserID)
	}

	after, err := cart.FetchLines(ctx, pool, f.cartID, false)
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("expected %d lines kept, got %d", len(before), len(after))
	}
	for i := range before {
		if after[i].ProductID != before[i].ProductID || after[i].Quantity != before[i].Quantity || !after[i].UnitPrice.Equal(before[i].UnitPrice) {
			t.Fatalf("line %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestPostgres_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	f := seed(ctx, t, pool)
	repo := NewPostgres(pool, nil)

	o, err := repo.Create(ctx, CreateInput{Lines: []domain.OrderLine{{ProductID: f.shoeID, Quantity: 1, Price: decimal.RequireFromString("19.99")}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Customer() != "Guest" {
		t.Fatalf("expected guest order, got %q", o.Customer())
	}

	paid, err := repo.MarkPaid(ctx, o.ID, "stub-1")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.OrderPaid || paid.PaidAt == nil || paid.PaymentReference != "stub-1" {
		t.Fatalf("unexpected paid order %+v", paid)
	}

	if _, err := repo.Cancel(ctx, o.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := repo.MarkPaid(ctx, "00000000-0000-0000-0000-000000000000", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_UserDeletionKeepsOrder(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	f := seed(ctx, t, pool)
	repo := NewPostgres(pool, nil)

	o, err := repo.Create(ctx, CreateInput{UserID: &f.userID, Lines: []domain.OrderLine{{ProductID: f.jacketID, Quantity: 2, Price: decimal.RequireFromString("0.10")}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, f.userID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	got, err := repo.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != nil || got.Customer() != "Guest" {
		t.Fatalf("expected detached order, got %+v", got)
	}
}
