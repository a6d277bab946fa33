package product

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shopx/internal/domain"
	"shopx/internal/testutil/pgtest"
)

func seedCategory(ctx context.Context, t *testing.T, pool *pgxpool.Pool, slug string) string {
	t.Helper()
	var id string
	if err := pool.QueryRow(ctx, `INSERT INTO categories (slug, name) VALUES ($1, $1) RETURNING id::text`, slug).Scan(&id); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	return id
}

func seedTag(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) domain.Tag {
	t.Helper()
	tag := domain.Tag{Name: name, Slug: name}
	if err := pool.QueryRow(ctx, `INSERT INTO tags (slug, name) VALUES ($1, $1) RETURNING id::text`, name).Scan(&tag.ID); err != nil {
		t.Fatalf("insert tag: %v", err)
	}
	return tag
}

func TestPostgres_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	catID := seedCategory(ctx, t, pool, "kids")
	sale := seedTag(ctx, t, pool, "sale")

	repo := NewPostgres(pool, nil)
	created, err := repo.Create(ctx, domain.Product{
		CategoryID: catID,
		Name:       "Kids Shoe",
		Slug:       "kids-shoe",
		Price:      decimal.RequireFromString("19.99"),
		Tags:       []domain.Tag{sale},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Category == nil || created.Category.Slug != "kids" {
		t.Fatalf("expected category to be joined, got %+v", created.Category)
	}
	if len(created.Tags) != 1 || created.Tags[0].Name != "sale" {
		t.Fatalf("expected sale tag, got %+v", created.Tags)
	}

	got, err := repo.GetBySlug(ctx, "kids-shoe")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected price %s", got.Price)
	}

	if _, err := repo.Create(ctx, domain.Product{CategoryID: catID, Name: "Dup", Slug: "kids-shoe", Price: decimal.NewFromInt(1)}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPostgres_SearchMatchesTagsDistinct(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	catID := seedCategory(ctx, t, pool, "men")
	summer := seedTag(ctx, t, pool, "summer")
	repo := NewPostgres(pool, nil)

	if _, err := repo.Create(ctx, domain.Product{CategoryID: catID, Name: "Summer Shirt", Slug: "summer-shirt", Description: "for summer", Price: decimal.NewFromInt(10), Tags: []domain.Tag{summer}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, domain.Product{CategoryID: catID, Name: "Coat", Slug: "coat", Price: decimal.NewFromInt(90)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Search(ctx, "SUMMER")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "summer-shirt" {
		t.Fatalf("expected one distinct hit, got %+v", got)
	}

	empty, err := repo.Search(ctx, "  ")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for blank query, got %v %v", empty, err)
	}
}

func TestPostgres_HomeListingCapsPerCategory(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	catID := seedCategory(ctx, t, pool, "women")
	repo := NewPostgres(pool, nil)
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		if _, err := repo.Create(ctx, domain.Product{CategoryID: catID, Name: slug, Slug: slug, Price: decimal.NewFromInt(1)}); err != nil {
			t.Fatalf("create %s: %v", slug, err)
		}
	}

	got, err := repo.HomeListing(ctx, 4)
	if err != nil {
		t.Fatalf("home: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 products, got %d", len(got))
	}
}

func TestPostgres_DeleteReferencedProductBlocked(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	catID := seedCategory(ctx, t, pool, "men")
	repo := NewPostgres(pool, nil)
	p, err := repo.Create(ctx, domain.Product{CategoryID: catID, Name: "Belt", Slug: "belt", Price: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var orderID string
	if err := pool.QueryRow(ctx, `INSERT INTO orders (total_amount) VALUES (5) RETURNING id::text`).Scan(&orderID); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, 1, 5)`, orderID, p.ID); err != nil {
		t.Fatalf("insert order item: %v", err)
	}

	if err := repo.Delete(ctx, p.ID); !errors.Is(err, domain.ErrProductInUse) {
		t.Fatalf("expected ErrProductInUse, got %v", err)
	}
}
