package httpserver

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	"shopx/internal/metrics"
	cartsvc "shopx/internal/service/cart"
	identitysvc "shopx/internal/service/identity"
	productsvc "shopx/internal/service/product"
	"shopx/internal/session"
)

type CatalogService interface {
	Home(ctx context.Context) ([]productsvc.CategoryGroup, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ByCategory(ctx context.Context, categorySlug string) (*domain.Category, []domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
	Create(ctx context.Context, actor *domain.User, in productsvc.CreateInput) (*domain.Product, error)
	Delete(ctx context.Context, actor *domain.User, id string) error
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	Upsert(ctx context.Context, actor *domain.User, name, slug string) (*domain.Category, error)
}

type CartService interface {
	Resolve(userID string, sess cartsvc.SessionCart) cartsvc.Source
	MergeSession(ctx context.Context, userID string, sess cartsvc.SessionCart) error
}

type CheckoutService interface {
	Start(ctx context.Context, userID string, sess cartsvc.SessionCart) (*domain.Order, error)
	ClearCarts(ctx context.Context, userID string, sess cartsvc.SessionCart)
}

type OrderService interface {
	History(ctx context.Context, userID string) ([]domain.Order, error)
	Get(ctx context.Context, actor *domain.User, id string) (*domain.Order, error)
	ListAll(ctx context.Context, actor *domain.User) ([]domain.Order, error)
	Cancel(ctx context.Context, actor *domain.User, id string) (*domain.Order, error)
}

type IdentityService interface {
	Register(ctx context.Context, in identitysvc.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, identifier, password string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Deps carries the services behind the storefront routes.
type Deps struct {
	Catalog    CatalogService
	Categories CategoryService
	Carts      CartService
	Checkout   CheckoutService
	Orders     OrderService
	Identity   IdentityService

	Sessions       session.Store
	SessionOptions session.Options
	Metrics        *metrics.Metrics

	// MediaDir is served under MediaURL when images are stored locally.
	MediaDir         string
	MediaURL         string
	CurrencySymbol   string
	CORSAllowOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.Catalog == nil, d.Categories == nil, d.Carts == nil,
		d.Checkout == nil, d.Orders == nil, d.Identity == nil:
		return errors.New("httpserver: missing service dependency")
	case d.Sessions == nil:
		return errors.New("httpserver: missing session store")
	}
	return nil
}

type handler struct {
	deps   Deps
	logger *zap.Logger
}

// buildRouter wires routes for the storefront.
func buildRouter(l *zap.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	l = logger.OrNop(l)
	pages, err := loadPages(deps.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HTMLRender = pages
	router.Use(logger.GinMiddleware(l), logger.Recovery(l))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if len(deps.CORSAllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSAllowOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.StaticFS("/static", http.FS(static))
	if deps.MediaDir != "" && strings.HasPrefix(deps.MediaURL, "/") {
		router.Static(strings.TrimSuffix(deps.MediaURL, "/"), deps.MediaDir)
	}

	h := &handler{deps: deps, logger: l}
	site := router.Group("/")
	site.Use(session.Middleware(deps.Sessions, deps.SessionOptions), h.currentUser())

	site.GET("/", h.home)
	site.GET("/category/:slug/", h.categoryList)
	site.GET("/search/", h.search)
	site.GET("/add-product/", h.requireLogin(), h.addProductForm)
	site.POST("/add-product/", h.requireLogin(), h.addProduct)

	site.GET("/cart/", h.cartView)
	site.POST("/cart/remove/:slug/", h.removeFromCart)
	site.POST("/:slug/add/", h.addToCart)
	site.POST("/:slug/dec/", h.decrementInCart)
	site.GET("/:slug/", h.productDetail)

	site.GET("/checkout/start/", h.checkoutStart)
	site.POST("/checkout/start/", h.checkoutStart)
	site.GET("/checkout/success/", h.checkoutSuccess)
	site.GET("/checkout/cancel/", h.checkoutCancel)

	site.GET("/accounts/login/", h.loginForm)
	site.POST("/accounts/login/", h.login)
	site.GET("/accounts/logout/", h.requireLogin(), h.logout)
	site.POST("/accounts/logout/", h.requireLogin(), h.logout)
	site.GET("/accounts/register/", h.registerForm)
	site.POST("/accounts/register/", h.register)

	site.GET("/orders/", h.requireLogin(), h.orderHistory)
	site.GET("/orders/:id/", h.requireLogin(), h.orderDetail)

	admin := site.Group("/admin", h.requireAdmin())
	admin.GET("/orders/", h.adminOrders)
	admin.POST("/orders/:id/cancel/", h.adminCancelOrder)
	admin.POST("/products/:slug/delete/", h.adminDeleteProduct)
	admin.GET("/categories/", h.adminCategories)
	admin.POST("/categories/", h.adminUpsertCategory)

	router.NoRoute(session.Middleware(deps.Sessions, deps.SessionOptions), h.currentUser(), h.notFound)

	return router, nil
}
