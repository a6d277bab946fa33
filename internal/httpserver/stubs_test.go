package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"shopx/internal/domain"
	cartsvc "shopx/internal/service/cart"
	identitysvc "shopx/internal/service/identity"
	productsvc "shopx/internal/service/product"
	"shopx/internal/session"
)

var (
	menCategory = domain.Category{ID: "cat-men", Slug: "men", Name: "Men"}
	shirt       = domain.Product{ID: "p-shirt", CategoryID: "cat-men", Category: &menCategory, Name: "Linen Shirt", Slug: "linen-shirt", Price: decimal.RequireFromString("19.99")}
	adminUser   = &domain.User{ID: "u-admin", Username: "root", IsAdmin: true}
	plainUser   = &domain.User{ID: "u-plain", Username: "alice"}
)

type stubCatalog struct {
	created   []productsvc.CreateInput
	deleted   []string
	err       error
	deleteErr error
}

func (s *stubCatalog) Home(context.Context) ([]productsvc.CategoryGroup, error) {
	return []productsvc.CategoryGroup{{Category: menCategory, Products: []domain.Product{shirt}}}, nil
}

func (s *stubCatalog) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	if slug == shirt.Slug {
		p := shirt
		return &p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubCatalog) ByCategory(_ context.Context, slug string) (*domain.Category, []domain.Product, error) {
	if slug == menCategory.Slug {
		c := menCategory
		return &c, []domain.Product{shirt}, nil
	}
	return nil, nil, domain.ErrNotFound
}

func (s *stubCatalog) Delete(_ context.Context, actor *domain.User, id string) error {
	if !actor.IsAdministrator() {
		return domain.ErrForbidden
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalog) Search(_ context.Context, q string) ([]domain.Product, error) {
	if q == "" {
		return nil, nil
	}
	if strings.Contains(strings.ToLower(shirt.Name), strings.ToLower(q)) {
		return []domain.Product{shirt}, nil
	}
	return nil, nil
}

func (s *stubCatalog) Create(_ context.Context, actor *domain.User, in productsvc.CreateInput) (*domain.Product, error) {
	if !actor.IsAdministrator() {
		return nil, domain.ErrForbidden
	}
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, in)
	return &domain.Product{ID: "p-new", Name: in.Name, Slug: "new-product"}, nil
}

type stubCategories struct{ upserted []string }

func (s *stubCategories) List(context.Context) ([]domain.Category, error) {
	return []domain.Category{menCategory}, nil
}

func (s *stubCategories) Upsert(_ context.Context, _ *domain.User, name, _ string) (*domain.Category, error) {
	s.upserted = append(s.upserted, name)
	return &domain.Category{ID: "c", Name: name}, nil
}

type fakeSource struct {
	added       []string
	decremented []string
	removed     []string
	lines       []domain.CartLine
}

func (f *fakeSource) Lines(context.Context) ([]domain.CartLine, error) { return f.lines, nil }

func (f *fakeSource) Add(_ context.Context, p domain.Product, qty int) error {
	f.added = append(f.added, p.ID)
	return nil
}

func (f *fakeSource) SetQuantity(context.Context, domain.Product, int) error { return nil }

func (f *fakeSource) Decrement(_ context.Context, id string) error {
	f.decremented = append(f.decremented, id)
	return nil
}

func (f *fakeSource) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeSource) Clear(context.Context) error { return nil }

func (f *fakeSource) Subtotal(context.Context) (decimal.Decimal, error) {
	return domain.Subtotal(f.lines), nil
}

type stubCarts struct {
	source    *fakeSource
	resolved  []string
	mergedFor []string
}

func (s *stubCarts) Resolve(userID string, _ cartsvc.SessionCart) cartsvc.Source {
	s.resolved = append(s.resolved, userID)
	return s.source
}

func (s *stubCarts) MergeSession(_ context.Context, userID string, sess cartsvc.SessionCart) error {
	s.mergedFor = append(s.mergedFor, userID)
	sess.SetCart(nil)
	return nil
}

type stubCheckout struct {
	err     error
	cleared int
}

func (s *stubCheckout) Start(context.Context, string, cartsvc.SessionCart) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: "o-1", Status: domain.OrderPaid}, nil
}

func (s *stubCheckout) ClearCarts(context.Context, string, cartsvc.SessionCart) { s.cleared++ }

type stubOrders struct{ cancelErr error }

func (s *stubOrders) History(context.Context, string) ([]domain.Order, error) {
	return []domain.Order{{ID: "o-1", Status: domain.OrderPaid, TotalAmount: decimal.NewFromInt(20)}}, nil
}

func (s *stubOrders) Get(_ context.Context, actor *domain.User, id string) (*domain.Order, error) {
	owner := "u-plain"
	if id != "o-1" || (actor.ID != owner && !actor.IsAdministrator()) {
		return nil, domain.ErrNotFound
	}
	return &domain.Order{ID: id, UserID: &owner, Status: domain.OrderPaid, TotalAmount: decimal.NewFromInt(20)}, nil
}

func (s *stubOrders) ListAll(_ context.Context, actor *domain.User) ([]domain.Order, error) {
	if !actor.IsAdministrator() {
		return nil, domain.ErrForbidden
	}
	return nil, nil
}

func (s *stubOrders) Cancel(context.Context, *domain.User, string) (*domain.Order, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &domain.Order{ID: "o-1", Status: domain.OrderCancelled}, nil
}

type stubIdentity struct {
	users       map[string]*domain.User
	registerErr error
}

func (s *stubIdentity) Register(_ context.Context, in identitysvc.RegisterInput) (*domain.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &domain.User{ID: "u-new", Username: in.Username}, nil
}

func (s *stubIdentity) Login(_ context.Context, identifier, password string) (*domain.User, error) {
	for _, u := range s.users {
		if (u.Username == identifier || u.Email == identifier) && password == "Secret123" {
			return u, nil
		}
	}
	return nil, identitysvc.ErrInvalidCredentials
}

func (s *stubIdentity) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type testEnv struct {
	router   *gin.Engine
	store    *session.MemoryStore
	catalog  *stubCatalog
	cats     *stubCategories
	carts    *stubCarts
	checkout *stubCheckout
	orders   *stubOrders
	identity *stubIdentity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		store:    session.NewMemoryStore(),
		catalog:  &stubCatalog{},
		cats:     &stubCategories{},
		carts:    &stubCarts{source: &fakeSource{}},
		checkout: &stubCheckout{},
		orders:   &stubOrders{},
		identity: &stubIdentity{users: map[string]*domain.User{
			adminUser.ID: adminUser,
			plainUser.ID: plainUser,
		}},
	}
	router, err := buildRouter(nil, stubPinger{}, Deps{
		Catalog:        env.catalog,
		Categories:     env.cats,
		Carts:          env.carts,
		Checkout:       env.checkout,
		Orders:         env.orders,
		Identity:       env.identity,
		Sessions:       env.store,
		CurrencySymbol: "$",
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	env.router = router
	return env
}

// loginAs stores a session bound to u and returns its cookie.
func (e *testEnv) loginAs(t *testing.T, u *domain.User) *http.Cookie {
	t.Helper()
	id := "sess-" + u.ID
	if err := e.store.Save(context.Background(), id, &session.Data{UserID: u.ID}, time.Hour); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return &http.Cookie{Name: "shopx_session", Value: id}
}

func (e *testEnv) do(method, target string, body io.Reader, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) {
		if c != nil {
			r.AddCookie(c)
		}
	}
}

func formBody(v url.Values) io.Reader {
	return strings.NewReader(v.Encode())
}

func withForm(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if c != nil {
			r.AddCookie(c)
		}
	}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "shopx_session" {
			return c
		}
	}
	return nil
}

var errBoom = errors.New("boom")
