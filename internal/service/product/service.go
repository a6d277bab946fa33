package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	"shopx/internal/slug"
	"shopx/internal/storage"
)

// HomePerCategory caps how many products each category shows on the home page.
const HomePerCategory = 4

type productRepo interface {
	List(ctx context.Context) ([]domain.Product, error)
	ListByCategory(ctx context.Context, categoryID string, limit int) ([]domain.Product, error)
	HomeListing(ctx context.Context, perCategory int) ([]domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type categoryRepo interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
}

type tagRepo interface {
	GetOrCreate(ctx context.Context, name, slug string) (*domain.Tag, error)
}

type Service struct {
	repo       productRepo
	categories categoryRepo
	tags       tagRepo
	media      storage.Storage
	validate   *validator.Validate
	logger     *zap.Logger
}

func New(repo productRepo, categories categoryRepo, tags tagRepo, media storage.Storage, l *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		tags:       tags,
		media:      media,
		validate:   newValidator(),
		logger:     logger.OrNop(l),
	}
}

// CategoryGroup is one home page section.
type CategoryGroup struct {
	Category domain.Category
	Products []domain.Product
}

// Home groups up to HomePerCategory newest products under each category.
func (s *Service) Home(ctx context.Context) ([]CategoryGroup, error) {
	products, err := s.repo.HomeListing(ctx, HomePerCategory)
	if err != nil {
		return nil, err
	}
	var groups []CategoryGroup
	for _, p := range products {
		if n := len(groups); n == 0 || groups[n-1].Category.ID != p.CategoryID {
			var c domain.Category
			if p.Category != nil {
				c = *p.Category
			}
			c.ID = p.CategoryID
			groups = append(groups, CategoryGroup{Category: c})
		}
		groups[len(groups)-1].Products = append(groups[len(groups)-1].Products, p)
	}
	return groups, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// GetByIDs returns the products that still exist.
func (s *Service) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// ByCategory returns the category named by slug and its products.
func (s *Service) ByCategory(ctx context.Context, categorySlug string) (*domain.Category, []domain.Product, error) {
	c, err := s.categories.GetBySlug(ctx, categorySlug)
	if err != nil {
		return nil, nil, err
	}
	products, err := s.repo.ListByCategory(ctx, c.ID, 0)
	if err != nil {
		return nil, nil, err
	}
	return c, products, nil
}

// Search returns nothing for a blank query.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.repo.Search(ctx, query)
}

// Image is an uploaded product picture.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type CreateInput struct {
	Name        string   `form:"name" validate:"required,max=200"`
	Slug        string   `form:"slug" validate:"max=200"`
	Description string   `form:"description"`
	Price       string   `form:"price" validate:"required"`
	CategoryID  string   `form:"category" validate:"required"`
	Tags        []string `form:"-"`
	Image       *Image   `form:"-"`
}

// ValidationError lists per-field problems with a product form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, m := range e.Fields {
		parts = append(parts, f+": "+m)
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

// Create adds a product on behalf of an administrator.
func (s *Service) Create(ctx context.Context, actor *domain.User, in CreateInput) (*domain.Product, error) {
	if !actor.IsAdministrator() {
		return nil, domain.ErrForbidden
	}
	p, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	switch _, err := s.repo.GetBySlug(ctx, p.Slug); {
	case err == nil:
		return nil, duplicateSlug()
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	key, err := s.attachImage(ctx, &p, in.Image)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		s.discardImage(ctx, key)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, duplicateSlug()
		}
		return nil, err
	}
	s.logger.Info("product created", zap.String("slug", created.Slug), zap.String("by", actor.Username))
	return created, nil
}

func duplicateSlug() error {
	return &ValidationError{Fields: map[string]string{"slug": "a product with this slug already exists"}}
}

// Import inserts or updates a product by slug without an actor check.
// Used by the seed and CSV import commands.
func (s *Service) Import(ctx context.Context, in CreateInput) (*domain.Product, error) {
	p, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	key, err := s.attachImage(ctx, &p, in.Image)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Upsert(ctx, p)
	if err != nil {
		s.discardImage(ctx, key)
		return nil, err
	}
	return saved, nil
}

// attachImage uploads img when it carries a body and returns the stored key.
// A body-less image is an existing URL or key and is stored as given.
func (s *Service) attachImage(ctx context.Context, p *domain.Product, img *Image) (string, error) {
	switch {
	case img == nil || img.Filename == "":
		return "", nil
	case img.Body == nil:
		p.Image = img.Filename
		return "", nil
	case s.media == nil:
		return "", errors.New("no media storage configured")
	}
	key := storage.ProductImageKey(img.Filename)
	url, err := s.media.Put(ctx, key, img.Body, img.Size, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	p.Image = url
	return key, nil
}

// discardImage removes an upload whose product row was never written.
func (s *Service) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.media.Delete(ctx, key); err != nil {
		s.logger.Warn("orphaned product image", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a product unless an order references it.
func (s *Service) Delete(ctx context.Context, actor *domain.User, id string) error {
	if !actor.IsAdministrator() {
		return domain.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// reservedSlugs are first path segments routed to site pages, which would
// shadow a product detail page at /<slug>/.
var reservedSlugs = map[string]bool{
	"accounts":    true,
	"add-product": true,
	"admin":       true,
	"cart":        true,
	"category":    true,
	"checkout":    true,
	"healthz":     true,
	"media":       true,
	"metrics":     true,
	"orders":      true,
	"readyz":      true,
	"search":      true,
	"static":      true,
}

func (s *Service) build(ctx context.Context, in CreateInput) (domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Price = strings.TrimSpace(in.Price)
	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fieldMessage(fe)
			}
		} else {
			return domain.Product{}, err
		}
	}

	var price decimal.Decimal
	if _, bad := fields["price"]; !bad {
		parsed, err := decimal.NewFromString(in.Price)
		switch {
		case err != nil:
			fields["price"] = "must be a number"
		case parsed.IsNegative():
			fields["price"] = "must not be negative"
		case !parsed.Equal(parsed.Round(2)):
			fields["price"] = "at most 2 decimal places"
		case parsed.GreaterThanOrEqual(decimal.New(1, 8)):
			fields["price"] = "too large"
		default:
			price = parsed.Round(2)
		}
	}

	productSlug := slug.Make(in.Slug)
	if productSlug == "" {
		productSlug = slug.Make(in.Name)
	}
	if productSlug == "" {
		if _, bad := fields["name"]; !bad {
			fields["slug"] = "could not derive a slug"
		}
	} else if reservedSlugs[productSlug] {
		fields["slug"] = "is reserved for a site page"
	}

	if _, bad := fields["category"]; !bad {
		if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return domain.Product{}, err
			}
			fields["category"] = "unknown category"
		}
	}
	if len(fields) > 0 {
		return domain.Product{}, &ValidationError{Fields: fields}
	}

	tags, err := s.resolveTags(ctx, in.Tags)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Slug:        productSlug,
		Description: strings.TrimSpace(in.Description),
		Price:       price,
		Tags:        tags,
	}, nil
}

// resolveTags gets or creates each distinct non-blank tag name.
func (s *Service) resolveTags(ctx context.Context, names []string) ([]domain.Tag, error) {
	seen := map[string]bool{}
	var out []domain.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		tagSlug := slug.Make(name)
		if tagSlug == "" {
			continue
		}
		t, err := s.tags.GetOrCreate(ctx, name, tagSlug)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", name, err)
		}
		out = append(out, *t)
	}
	return out, nil
}

// newValidator reports fields by their form names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}
