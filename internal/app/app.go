// Package app wires configuration, storage, repositories and services into
// the graph shared by the API server and storectl.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shopx/internal/config"
	"shopx/internal/db"
	"shopx/internal/httpserver"
	"shopx/internal/logger"
	"shopx/internal/metrics"
	"shopx/internal/notify"
	cartrepo "shopx/internal/repository/cart"
	categoryrepo "shopx/internal/repository/category"
	invitationrepo "shopx/internal/repository/invitation"
	orderrepo "shopx/internal/repository/order"
	productrepo "shopx/internal/repository/product"
	tagrepo "shopx/internal/repository/tag"
	userrepo "shopx/internal/repository/user"
	cartsvc "shopx/internal/service/cart"
	categorysvc "shopx/internal/service/category"
	checkoutsvc "shopx/internal/service/checkout"
	identitysvc "shopx/internal/service/identity"
	ordersvc "shopx/internal/service/order"
	productsvc "shopx/internal/service/product"
	"shopx/internal/session"
	"shopx/internal/storage"
)

type App struct {
	Config config.Config
	Logger *zap.Logger
	Pool   *pgxpool.Pool
	Media  storage.Storage
	Metric *metrics.Metrics

	Catalog    *productsvc.Service
	Categories *categorysvc.Service
	Carts      *cartsvc.Service
	Checkout   *checkoutsvc.Service
	Orders     *ordersvc.Service
	Identity   *identitysvc.Service

	redis *redis.Client
}

// New connects to Postgres and media storage and builds every service.
func New(ctx context.Context, cfg config.Config, l *zap.Logger) (*App, error) {
	l = logger.OrNop(l)
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	media, err := storage.New(ctx, cfg.Storage, l)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init media storage: %w", err)
	}

	signer, err := identitysvc.NewInvitationSigner(cfg.InviteSecret)
	if err != nil {
		l.Warn("admin invitations disabled", zap.Error(err))
		signer = nil
	}

	products := productrepo.NewPostgres(pool, l)
	categories := categoryrepo.NewPostgres(pool, l)
	carts := cartrepo.NewPostgres(pool, l)
	orders := orderrepo.NewPostgres(pool, l)
	invitations := invitationrepo.NewPostgres(pool)
	m := metrics.New()

	a := &App{
		Config:     cfg,
		Logger:     l,
		Pool:       pool,
		Media:      media,
		Metric:     m,
		Catalog:    productsvc.New(products, categories, tagrepo.NewPostgres(pool, l), media, l),
		Categories: categorysvc.New(categories),
		Carts:      cartsvc.New(carts, products, l).WithOrders(orders),
		Orders:     ordersvc.New(orders, l),
		Identity:   identitysvc.New(userrepo.NewPostgres(pool, l), invitations, signer, notify.New(cfg.SMTP, l), l),
	}
	a.Checkout = checkoutsvc.New(orders, carts, a.Carts, checkoutsvc.StubGateway{}, m, l)
	return a, nil
}

// SessionStore returns a Redis store when REDIS_ADDR is set and an
// in-process store otherwise.
func (a *App) SessionStore(ctx context.Context) (session.Store, error) {
	if a.Config.RedisAddr == "" {
		a.Logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", a.Config.RedisAddr, err)
	}
	a.redis = client
	a.Logger.Info("using redis session store", zap.String("addr", a.Config.RedisAddr))
	return session.NewRedisStore(client), nil
}

// HTTPDeps assembles the storefront handler dependencies.
func (a *App) HTTPDeps(store session.Store) httpserver.Deps {
	deps := httpserver.Deps{
		Catalog:    a.Catalog,
		Categories: a.Categories,
		Carts:      a.Carts,
		Checkout:   a.Checkout,
		Orders:     a.Orders,
		Identity:   a.Identity,
		Sessions:   store,
		SessionOptions: session.Options{
			CookieName: a.Config.SessionCookie,
			TTL:        a.Config.SessionTTL,
			Secure:     a.Config.SessionSecure,
		},
		Metrics:          a.Metric,
		CurrencySymbol:   a.Config.CurrencySymbol,
		CORSAllowOrigins: a.Config.CORSAllowOrigins,
	}
	if local, ok := a.Media.(*storage.LocalStorage); ok {
		deps.MediaDir = local.Dir()
		deps.MediaURL = a.Config.Storage.MediaURL
	}
	return deps
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	a.Pool.Close()
}
