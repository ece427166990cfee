package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kliq/backoffice/internal/auth"
	"github.com/kliq/backoffice/internal/observability"
	"github.com/kliq/backoffice/internal/platform/httpx"
	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/shared"
	"github.com/kliq/backoffice/jobs"
	"github.com/kliq/backoffice/report"
	"github.com/kliq/backoffice/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Principals     PrincipalSource
	Metrics        *observability.Metrics
	RBAC           rbac.Middleware

	Handlers      Handlers
	AuthHandler   *auth.Handler
	JobHandler    *jobs.Handler
	ReportHandler *report.Handler
}

// NewRouter constructs the chi.Router with the back office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	routes := RouteTable(params.Handlers)

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Principals:     params.Principals,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)
	r.Use(NavMiddleware(routes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/welcome", params.Handlers.Pages.Welcome)
	r.Route("/auth", params.AuthHandler.MountRoutes)

	for _, route := range routes {
		r.With(params.RBAC.Gate(route.Pattern, route.Guard)).Method(route.Method, route.Pattern, route.Handler)
	}

	r.Route("/api", func(api chi.Router) {
		h := params.Handlers
		api.Get("/me", apiMe)
		api.With(params.RBAC.RequireAny(auth.RoleCustomerView)).Get("/customers", h.Customers.APIList)
		api.With(params.RBAC.RequireAny(auth.RoleCustomerView)).Get("/customers/{id}", h.Customers.APIGet)
		api.With(params.RBAC.RequireAny(auth.RoleProductView, auth.RoleProductManage)).Get("/digital-pin-products", h.Products.APIList)
		api.Group(func(l10n chi.Router) {
			l10n.Use(params.RBAC.RequireAny(auth.RoleLocalizationManage))
			l10n.Get("/localization/{lang}", h.Localization.APIExport)
			l10n.Post("/localization/{lang}", h.Localization.APIImport)
		})
	})

	if params.JobHandler != nil {
		r.With(params.RBAC.Gate("/jobs", GuardSettings)).Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.With(params.RBAC.Gate("/report", GuardSettings)).Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.NotFound(params.Handlers.Pages.NotFound)
	return r
}

type meResponse struct {
	Subject string   `json:"subject"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
}

func apiMe(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in or send a bearer token")
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{Subject: p.Subject, Name: p.DisplayName(), Email: p.Email, Roles: p.Roles})
}

// staticCacheHandler caches static assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
