package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	productsvc "shopx/internal/service/product"
)

type CategoryWriter interface {
	Upsert(ctx context.Context, actor *domain.User, name, slug string) (*domain.Category, error)
}

type ProductWriter interface {
	Import(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
}

type categorySeed struct {
	Slug string
	Name string
}

type productSeed struct {
	Slug     string
	Name     string
	Category string
	Price    string
	Tags     []string
	Image    string
}

var demoCategories = []categorySeed{
	{Slug: "children", Name: "Children"},
	{Slug: "men", Name: "Men"},
	{Slug: "women", Name: "Women"},
}

// Tag names by slug.
var demoTags = map[string]string{
	"new":     "New",
	"sale":    "Sale",
	"summer":  "Summer",
	"classic": "Classic",
}

var demoProducts = []productSeed{
	{Slug: "kids-shoe", Name: "Kids Shoe", Category: "children", Price: "19.99", Tags: []string{"new", "sale"}, Image: "kids_shoe.png"},
	{Slug: "kids-hat", Name: "Kids Hat", Category: "children", Price: "9.99", Tags: []string{"summer"}, Image: "kids_hat.png"},
	{Slug: "kids-tshirt", Name: "Kids T-Shirt", Category: "children", Price: "12.99", Tags: []string{"summer"}, Image: "kids_tshirt.png"},
	{Slug: "kids-jacket", Name: "Kids Jacket", Category: "children", Price: "34.99", Tags: []string{"classic"}, Image: "kids_jacket.png"},
	{Slug: "kids-backpack", Name: "Kids Backpack", Category: "children", Price: "24.99", Tags: []string{"new"}, Image: "kids_backpack.png"},
	{Slug: "mens-shirt", Name: "Men's Shirt", Category: "men", Price: "29.99", Tags: []string{"classic"}, Image: "menshirt.png"},
	{Slug: "mens-pant", Name: "Men's Pant", Category: "men", Price: "49.99", Tags: []string{"sale"}, Image: "menspant.jpg"},
	{Slug: "mens-sneaker", Name: "Men's Sneaker", Category: "men", Price: "69.99", Tags: []string{"new"}, Image: "mensneaker.jpg"},
	{Slug: "mens-watch", Name: "Men's Watch", Category: "men", Price: "89.99", Tags: []string{"classic"}, Image: "menwatch.png"},
	{Slug: "mens-hoodie", Name: "Men's Hoodie", Category: "men", Price: "39.99", Tags: []string{"summer"}, Image: "menshoodie.png"},
	{Slug: "womens-dress", Name: "Women's Dress", Category: "women", Price: "59.99", Tags: []string{"new"}, Image: "womens_dress.png"},
	{Slug: "womens-bag", Name: "Women's Bag", Category: "women", Price: "39.99", Tags: []string{"classic", "sale"}},
	{Slug: "womens-heels", Name: "Women's Heels", Category: "women", Price: "74.99", Tags: []string{"classic"}},
	{Slug: "womens-top", Name: "Women's Top", Category: "women", Price: "29.99", Tags: []string{"summer"}},
	{Slug: "womens-jacket", Name: "Women's Jacket", Category: "women", Price: "69.99", Tags: []string{"new"}},
}

// Seeder loads the demo catalog. Re-running it updates rows in place.
type Seeder struct {
	categories CategoryWriter
	products   ProductWriter
	// images is searched for product pictures; nil skips uploads.
	images fs.FS
	logger *zap.Logger
}

func New(categories CategoryWriter, products ProductWriter, images fs.FS, l *zap.Logger) *Seeder {
	return &Seeder{categories: categories, products: products, images: images, logger: logger.OrNop(l)}
}

// ImagesDir returns an fs.FS over dir, or nil when dir is empty or missing.
func ImagesDir(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil
	}
	return os.DirFS(dir)
}

// Apply inserts the demo categories, tags and products and returns the
// number of products written.
func (s *Seeder) Apply(ctx context.Context) (int, error) {
	categoryIDs := make(map[string]string, len(demoCategories))
	for _, c := range demoCategories {
		cat, err := s.categories.Upsert(ctx, nil, c.Name, c.Slug)
		if err != nil {
			return 0, fmt.Errorf("upsert category %s: %w", c.Slug, err)
		}
		categoryIDs[c.Slug] = cat.ID
	}

	written := 0
	for _, p := range demoProducts {
		in := productsvc.CreateInput{
			Name:        p.Name,
			Slug:        p.Slug,
			Description: "Demo description for " + p.Name + ".",
			Price:       p.Price,
			CategoryID:  categoryIDs[p.Category],
		}
		for _, t := range p.Tags {
			in.Tags = append(in.Tags, demoTags[t])
		}

		img, closeImg, err := s.openImage(p.Image)
		if err != nil {
			return written, fmt.Errorf("open image for %s: %w", p.Slug, err)
		}
		in.Image = img
		_, err = s.products.Import(ctx, in)
		closeImg()
		if err != nil {
			return written, fmt.Errorf("upsert product %s: %w", p.Slug, err)
		}
		written++
	}

	s.logger.Info("seed complete", zap.Int("categories", len(demoCategories)), zap.Int("products", written))
	return written, nil
}

func (s *Seeder) openImage(name string) (*productsvc.Image, func(), error) {
	noop := func() {}
	if name == "" || s.images == nil {
		return nil, noop, nil
	}
	f, err := s.images.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("seed image not found", zap.String("image", name))
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, noop, err
	}
	return &productsvc.Image{
		Filename:    name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Size:        st.Size(),
		Body:        f,
	}, func() { f.Close() }, nil
}
