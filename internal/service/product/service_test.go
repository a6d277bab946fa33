package product

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopx/internal/domain"
)

type stubProducts struct {
	home      []domain.Product
	created   []domain.Product
	createErr error
	upsertErr error
	taken     string
	searched  []string
}

func (s *stubProducts) List(context.Context) ([]domain.Product, error) { return nil, nil }

func (s *stubProducts) ListByCategory(_ context.Context, categoryID string, _ int) ([]domain.Product, error) {
	return []domain.Product{{ID: "p1", CategoryID: categoryID}}, nil
}

func (s *stubProducts) HomeListing(_ context.Context, perCategory int) ([]domain.Product, error) {
	return s.home, nil
}

func (s *stubProducts) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	if slug != "" && slug == s.taken {
		return &domain.Product{ID: "existing", Slug: slug}, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubProducts) GetByIDs(context.Context, []string) (map[string]domain.Product, error) {
	return nil, nil
}

func (s *stubProducts) Search(_ context.Context, q string) ([]domain.Product, error) {
	s.searched = append(s.searched, q)
	return []domain.Product{{ID: "hit"}}, nil
}

func (s *stubProducts) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, p)
	p.ID = "new"
	return &p, nil
}

func (s *stubProducts) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	return &p, nil
}

func (s *stubProducts) Delete(context.Context, string) error { return nil }

type stubCategories struct{}

func (stubCategories) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	if slug == "kids" {
		return &domain.Category{ID: "cat-kids", Slug: "kids"}, nil
	}
	return nil, domain.ErrNotFound
}

func (stubCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	if id == "cat-kids" {
		return &domain.Category{ID: id, Slug: "kids"}, nil
	}
	return nil, domain.ErrNotFound
}

type stubTags struct {
	created []string
}

func (s *stubTags) GetOrCreate(_ context.Context, name, slug string) (*domain.Tag, error) {
	s.created = append(s.created, name)
	return &domain.Tag{ID: "tag-" + slug, Name: name, Slug: slug}, nil
}

type stubMedia struct {
	keys    []string
	deleted []string
}

func (s *stubMedia) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	s.keys = append(s.keys, key)
	_, _ = io.ReadAll(body)
	return "/media/" + key, nil
}

func (s *stubMedia) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

var admin = &domain.User{Username: "root", IsAdmin: true}

func newService() (*Service, *stubProducts, *stubTags, *stubMedia) {
	products := &stubProducts{}
	tags := &stubTags{}
	media := &stubMedia{}
	return New(products, stubCategories{}, tags, media, nil), products, tags, media
}

func TestCreate_ForbiddenForNonAdmin(t *testing.T) {
	svc, products, _, _ := newService()

	_, err := svc.Create(context.Background(), &domain.User{Username: "shopper"}, CreateInput{Name: "X", Price: "1", CategoryID: "cat-kids"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Create(context.Background(), nil, CreateInput{Name: "X", Price: "1", CategoryID: "cat-kids"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, products.created)
}

func TestCreate_DerivesSlugAndTags(t *testing.T) {
	svc, products, tags, media := newService()

	got, err := svc.Create(context.Background(), admin, CreateInput{
		Name:       "Kids Shoe",
		Price:      "19.99",
		CategoryID: "cat-kids",
		Tags:       []string{"new", " sale ", "NEW", ""},
		Image:      &Image{Filename: "shoe.png", Body: strings.NewReader("img")},
	})
	require.NoError(t, err)
	assert.Equal(t, "kids-shoe", got.Slug)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, []string{"new", "sale"}, tags.created)
	require.Len(t, media.keys, 1)
	assert.Equal(t, "/media/"+media.keys[0], got.Image)
	require.Len(t, products.created, 1)
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc, _, _, _ := newService()

	_, err := svc.Create(context.Background(), admin, CreateInput{Name: "", Price: "abc", CategoryID: "missing"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Equal(t, "must be a number", verr.Fields["price"])
	assert.Equal(t, "unknown category", verr.Fields["category"])

	_, err = svc.Create(context.Background(), admin, CreateInput{Name: "A", Price: "1.234", CategoryID: "cat-kids"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "price")
}

func TestCreate_DuplicateSlugIsValidationError(t *testing.T) {
	svc, products, _, _ := newService()
	products.createErr = domain.ErrAlreadyExists

	_, err := svc.Create(context.Background(), admin, CreateInput{Name: "A", Price: "1", CategoryID: "cat-kids"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "slug")
}

func TestCreate_TakenSlugSkipsUpload(t *testing.T) {
	svc, products, _, media := newService()
	products.taken = "kids-shoe"

	_, err := svc.Create(context.Background(), admin, CreateInput{
		Name:       "Kids Shoe",
		Price:      "1",
		CategoryID: "cat-kids",
		Image:      &Image{Filename: "shoe.png", Body: strings.NewReader("img")},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "slug")
	assert.Empty(t, media.keys)
	assert.Empty(t, products.created)
}

func TestCreate_FailedInsertRemovesUploadedImage(t *testing.T) {
	svc, products, _, media := newService()
	products.createErr = domain.ErrAlreadyExists

	_, err := svc.Create(context.Background(), admin, CreateInput{
		Name:       "Kids Shoe",
		Price:      "1",
		CategoryID: "cat-kids",
		Image:      &Image{Filename: "shoe.png", Body: strings.NewReader("img")},
	})
	require.Error(t, err)
	require.Len(t, media.keys, 1)
	assert.Equal(t, media.keys, media.deleted)
}

func TestImport_FailedUpsertRemovesUploadedImage(t *testing.T) {
	svc, products, _, media := newService()
	products.upsertErr = errors.New("db down")

	_, err := svc.Import(context.Background(), CreateInput{
		Name:       "Kids Shoe",
		Price:      "1",
		CategoryID: "cat-kids",
		Image:      &Image{Filename: "shoe.png", Body: strings.NewReader("img")},
	})
	require.Error(t, err)
	assert.Equal(t, media.keys, media.deleted)
}

func TestCreate_ReservedSlugRejected(t *testing.T) {
	svc, products, _, _ := newService()

	for _, in := range []CreateInput{
		{Name: "Cart", Price: "1", CategoryID: "cat-kids"},
		{Name: "Anything", Slug: "Admin", Price: "1", CategoryID: "cat-kids"},
		{Name: "Add Product", Price: "1", CategoryID: "cat-kids"},
	} {
		_, err := svc.Create(context.Background(), admin, in)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), in.Name)
		assert.Equal(t, "is reserved for a site page", verr.Fields["slug"], in.Name)
	}
	assert.Empty(t, products.created)

	_, err := svc.Create(context.Background(), admin, CreateInput{Name: "Cart Charm", Price: "1", CategoryID: "cat-kids"})
	require.NoError(t, err)
}

func TestSearch_BlankQueryReturnsNothing(t *testing.T) {
	svc, products, _, _ := newService()

	got, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, products.searched)

	got, err = svc.Search(context.Background(), " shoe ")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"shoe"}, products.searched)
}

func TestHome_GroupsByCategory(t *testing.T) {
	svc, products, _, _ := newService()
	kids := &domain.Category{ID: "c1", Name: "Kids"}
	men := &domain.Category{ID: "c2", Name: "Men"}
	products.home = []domain.Product{
		{ID: "a", CategoryID: "c1", Category: kids},
		{ID: "b", CategoryID: "c1", Category: kids},
		{ID: "c", CategoryID: "c2", Category: men},
	}

	groups, err := svc.Home(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Kids", groups[0].Category.Name)
	assert.Len(t, groups[0].Products, 2)
	assert.Len(t, groups[1].Products, 1)
}

func TestByCategory_MissingCategory(t *testing.T) {
	svc, _, _, _ := newService()
	_, _, err := svc.ByCategory(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c, list, err := svc.ByCategory(context.Background(), "kids")
	require.NoError(t, err)
	assert.Equal(t, "cat-kids", c.ID)
	assert.Len(t, list, 1)
}
