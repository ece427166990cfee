package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/kliq/backoffice/internal/auth"
	"github.com/kliq/backoffice/internal/customers"
	"github.com/kliq/backoffice/internal/localization"
	"github.com/kliq/backoffice/internal/observability"
	"github.com/kliq/backoffice/internal/pinorders"
	"github.com/kliq/backoffice/internal/platform/cache"
	"github.com/kliq/backoffice/internal/platform/db"
	"github.com/kliq/backoffice/internal/products"
	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/shared"
	"github.com/kliq/backoffice/internal/view"
	"github.com/kliq/backoffice/jobs"
	"github.com/kliq/backoffice/report"
)

// LocalizationNamespace prefixes the redis keys of the translation store.
const LocalizationNamespace = "backoffice:l10n"

// Deps are the process level resources the application is assembled from.
type Deps struct {
	Logger  *slog.Logger
	Config  *Config
	Redis   redis.UniversalClient
	DB      db.Querier
	Metrics *observability.Metrics
	Tokens  *auth.TokenVerifier
	// Queue receives large localization imports; nil imports inline.
	Queue localization.ImportQueue
	// PDF renders statement documents; nil disables PDF download.
	PDF           customers.PDFRenderer
	JobHandler    *jobs.Handler
	ReportHandler *report.Handler
}

// App is the assembled back office.
type App struct {
	Router       http.Handler
	Auth         *auth.Service
	Customers    *customers.Service
	Orders       *pinorders.Service
	Products     *products.Service
	Localization *localization.Service
}

// New wires repositories, services and handlers into the HTTP router.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Redis == nil {
		return nil, errors.New("app: redis client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos, err := newRepositories(cfg, deps.DB, logger)
	if err != nil {
		return nil, err
	}

	l10nStore := localization.NewRedisStore(deps.Redis, LocalizationNamespace)
	seed, err := localization.LoadFixtures()
	if err != nil {
		return nil, err
	}
	if err := l10nStore.Seed(ctx, seed); err != nil {
		return nil, fmt.Errorf("app: seed translations: %w", err)
	}

	a := &App{
		Auth:      auth.NewService(repos.users),
		Customers: customers.NewService(repos.customers),
		Orders:    pinorders.NewService(repos.orders),
		Products:  products.NewService(repos.products, cache.NewVersioned(deps.Redis, "backoffice:catalog", cfg.CatalogCacheTTL), logger),
	}
	if a.Localization, err = localization.NewService(l10nStore, cfg.Languages(), logger); err != nil {
		return nil, err
	}

	engine, err := view.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("app: parse templates: %w", err)
	}
	sessions := shared.NewSessionManager(deps.Redis, "backoffice_session", cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	renderer := &view.Renderer{Engine: engine, CSRF: csrf, Logger: logger}

	handlers := Handlers{
		Pages: NewPages(PagesConfig{
			Logger:       logger,
			Renderer:     renderer,
			Auth:         a.Auth,
			Customers:    a.Customers,
			Orders:       a.Orders,
			Products:     a.Products,
			Localization: a.Localization,
			FetchTimeout: cfg.PageFetchTimeout,
		}),
		Customers: customers.NewHandler(logger, a.Customers, a.Orders, renderer, deps.PDF, cfg.PageFetchTimeout),
		Orders:    pinorders.NewHandler(logger, a.Orders, renderer, cfg.PageFetchTimeout),
		Products:  products.NewHandler(logger, a.Products, renderer, GuardProductAdmin, cfg.PageFetchTimeout),
		Localization: localization.NewHandler(localization.HandlerConfig{
			Logger:       logger,
			Service:      a.Localization,
			Renderer:     renderer,
			Queue:        deps.Queue,
			AsyncMinKeys: cfg.LocalizationImportAsyncMin,
			FetchTimeout: cfg.PageFetchTimeout,
		}),
	}

	var recorder rbac.DecisionRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	a.Router = NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Principals:     PrincipalSource{Users: a.Auth, Tokens: deps.Tokens},
		Metrics:        deps.Metrics,
		RBAC:           rbac.Middleware{Logger: logger, Recorder: recorder},
		Handlers:       handlers,
		AuthHandler:    auth.NewHandler(logger, a.Auth, renderer, sessions, csrf),
		JobHandler:     deps.JobHandler,
		ReportHandler:  deps.ReportHandler,
	})
	return a, nil
}

type repositories struct {
	users     auth.Repository
	customers customers.Repository
	orders    pinorders.Repository
	products  products.Repository
}

// newRepositories picks the data backend. The product catalogue always uses
// the bundled fixtures.
func newRepositories(cfg *Config, pool db.Querier, logger *slog.Logger) (repositories, error) {
	var repos repositories
	catalog, err := products.NewFixtureRepository()
	if err != nil {
		return repos, err
	}
	repos.products = catalog

	if cfg.DataBackend == BackendPostgres {
		if pool == nil {
			return repos, errors.New("app: postgres backend selected without a database pool")
		}
		repos.users = auth.NewPGRepository(pool)
		repos.customers = customers.NewPGRepository(pool)
		repos.orders = pinorders.NewPGRepository(pool)
		return repos, nil
	}

	var users []auth.User
	if cfg.SeedPassword != "" {
		if users, err = auth.SeedUsers(cfg.SeedPassword); err != nil {
			return repos, err
		}
	} else {
		logger.Warn("SEED_PASSWORD not set, memory backend starts without staff accounts")
	}
	repos.users = auth.NewMemoryRepository(users...)
	if repos.customers, err = customers.NewFixtureRepository(); err != nil {
		return repos, err
	}
	if repos.orders, err = pinorders.NewFixtureRepository(); err != nil {
		return repos, err
	}
	return repos, nil
}
