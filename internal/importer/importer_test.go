package importer

import (
	"context"
	"strings"
	"testing"

	"shopx/internal/domain"
	productsvc "shopx/internal/service/product"
)

type stubProductWriter struct {
	items []productsvc.CreateInput
}

type stubCategoryWriter struct {
	items []domain.Category
}

func (s *stubProductWriter) Import(_ context.Context, in productsvc.CreateInput) (*domain.Product, error) {
	s.items = append(s.items, in)
	return &domain.Product{Name: in.Name, Slug: in.Slug}, nil
}

func (s *stubCategoryWriter) Upsert(_ context.Context, actor *domain.User, name, slug string) (*domain.Category, error) {
	if actor != nil {
		panic("importer must call Upsert without an actor")
	}
	c := domain.Category{ID: "cat-" + slug, Slug: slug, Name: name}
	s.items = append(s.items, c)
	return &c, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `slug,name,description,category,price,tags,image
kids-shoe,Kids Shoe,Tiny shoes,children,19.99,new;sale,https://cdn.example.com/kids_shoe.png
,,,,,summer,
,Men's Shirt,Crisp cotton,men,29.99,classic,
womens-bag,Women's Bag,,women-accessories,39.99,,`

	products := &stubProductWriter{}
	categories := &stubCategoryWriter{}
	imp := NewCSVImporter(strings.NewReader(csvData), products, categories)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 products imported, got %d", count)
	}
	if len(products.items) != 3 {
		t.Fatalf("expected 3 products saved, got %d", len(products.items))
	}

	shoe := products.items[0]
	if shoe.Slug != "kids-shoe" || shoe.Price != "19.99" || shoe.CategoryID != "cat-children" {
		t.Fatalf("unexpected product data: %+v", shoe)
	}
	if strings.Join(shoe.Tags, ",") != "new,sale,summer" {
		t.Fatalf("expected continuation tags to be merged, got %v", shoe.Tags)
	}
	if shoe.Image == nil || shoe.Image.Filename != "https://cdn.example.com/kids_shoe.png" || shoe.Image.Body != nil {
		t.Fatalf("expected image url to be passed through, got %+v", shoe.Image)
	}

	if products.items[1].Slug != "" || products.items[1].Image != nil {
		t.Fatalf("slug is derived later and image is optional: %+v", products.items[1])
	}

	if len(categories.items) != 3 {
		t.Fatalf("expected 3 category upserts, got %d", len(categories.items))
	}
	if got := categories.items[2]; got.Slug != "women-accessories" || got.Name != "Women Accessories" {
		t.Fatalf("unexpected derived category %+v", got)
	}
}

func TestCSVImporter_ReusesCategories(t *testing.T) {
	csvData := "name,category,price\nA,men,1\nB,Men,2\nC,men,3\n"
	categories := &stubCategoryWriter{}
	imp := NewCSVImporter(strings.NewReader(csvData), &stubProductWriter{}, categories)

	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("import run: %v", err)
	}
	if len(categories.items) != 1 {
		t.Fatalf("expected a single category upsert, got %d", len(categories.items))
	}
}

func TestCSVImporter_MissingColumns(t *testing.T) {
	imp := NewCSVImporter(strings.NewReader("slug,name\nx,y\n"), &stubProductWriter{}, &stubCategoryWriter{})
	if _, err := imp.Run(context.Background()); err == nil || !strings.Contains(err.Error(), `"category"`) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestCSVImporter_InvalidRowReportsLine(t *testing.T) {
	csvData := "name,category,price\nGood,men,1\nBad,,2\n"
	products := &stubProductWriter{}
	imp := NewCSVImporter(strings.NewReader(csvData), products, &stubCategoryWriter{})

	count, err := imp.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line 3 error, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 product before the failure, got %d", count)
	}
}
