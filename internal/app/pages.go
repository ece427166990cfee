package app

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kliq/backoffice/internal/auth"
	"github.com/kliq/backoffice/internal/customers"
	"github.com/kliq/backoffice/internal/datatable"
	"github.com/kliq/backoffice/internal/localization"
	"github.com/kliq/backoffice/internal/pinorders"
	"github.com/kliq/backoffice/internal/products"
	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/shared"
	"github.com/kliq/backoffice/internal/view"
)

// PagesConfig collects the dependencies of the console pages.
type PagesConfig struct {
	Logger       *slog.Logger
	Renderer     *view.Renderer
	Auth         *auth.Service
	Customers    *customers.Service
	Orders       *pinorders.Service
	Products     *products.Service
	Localization *localization.Service
	FetchTimeout time.Duration
}

// Pages serves the dashboard, landing, users, analytics and settings pages.
type Pages struct {
	cfg PagesConfig
}

// NewPages constructs Pages.
func NewPages(cfg PagesConfig) *Pages {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 3 * time.Second
	}
	return &Pages{cfg: cfg}
}

type homePageData struct {
	Name  string
	Roles []string
	Links []view.NavItem
}

// Home is the dashboard of a signed-in user.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	var links []view.NavItem
	for _, item := range view.NavFromContext(r.Context()) {
		if item.Path != "/" {
			links = append(links, item)
		}
	}
	p.cfg.Renderer.Render(w, r, view.Page{
		Template: "pages/home.html",
		Title:    "Dashboard",
		Data:     homePageData{Name: principal.DisplayName(), Roles: principal.Roles, Links: links},
	})
}

// Welcome is the landing page for visitors without a session.
func (p *Pages) Welcome(w http.ResponseWriter, r *http.Request) {
	if rbac.PrincipalFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p.cfg.Renderer.Render(w, r, view.Page{Template: "pages/welcome.html", Title: "Welcome"})
}

// UserColumns is the staff table layout.
func UserColumns() []datatable.Column[auth.User] {
	return []datatable.Column[auth.User]{
		{Header: "Name", Key: "name", Sortable: true},
		{Header: "Email", Key: "email", Sortable: true},
		{Header: "Roles", Key: "roles", Cell: func(u auth.User) template.HTML {
			var b strings.Builder
			for _, role := range rbac.NormalizeRoles(u.Roles) {
				b.WriteString(`<span class="badge">` + template.HTMLEscapeString(role) + `</span> `)
			}
			return template.HTML(b.String())
		}},
		{Header: "Status", Key: "isActive", Sortable: true, Value: func(u auth.User) any {
			if u.IsActive {
				return "active"
			}
			return "inactive"
		}},
		{Header: "Updated", Key: "updatedAt", Sortable: true, SortType: datatable.SortDate, Cell: func(u auth.User) template.HTML {
			return template.HTML(template.HTMLEscapeString(u.UpdatedAt.Format("2006-01-02")))
		}},
	}
}

type tablePageData struct {
	Table datatable.View
	Count int
}

// Users lists staff accounts and their roles.
func (p *Pages) Users(w http.ResponseWriter, r *http.Request) {
	table, err := datatable.New(UserColumns(), datatable.WithLink(datatable.QueryLink(r.URL)))
	if err != nil {
		p.cfg.Renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	table.SetSort(datatable.ParseSortState(r.URL.Query()))
	users, pending, err := shared.FetchWithin(r.Context(), p.cfg.FetchTimeout, p.cfg.Auth.Users)
	if err != nil {
		p.cfg.Logger.Error("list users", slog.Any("error", err))
		users = nil
	}
	page := view.Page{
		Template: "pages/users.html",
		Title:    "Users",
		Data: tablePageData{
			Table: table.Render(users, datatable.RenderOptions{Loading: pending, EmptyMessage: "No staff accounts"}),
			Count: len(users),
		},
	}
	if pending {
		page.Refresh = p.cfg.FetchTimeout
	}
	p.cfg.Renderer.Render(w, r, page)
}

// Metric is one analytics card.
type Metric struct {
	Label string
	Value string
	Href  string
}

type analyticsPageData struct {
	Metrics  []Metric
	Statuses []Metric
	Coverage []Metric
}

// Analytics shows counts per dataset. The datasets load in parallel; a
// failing source is logged and shown as unavailable.
func (p *Pages) Analytics(w http.ResponseWriter, r *http.Request) {
	var (
		customerCount, productCount string
		orders                      []pinorders.Order
		stats                       localization.Stats
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		list, err := p.cfg.Customers.List(ctx)
		customerCount = p.count(len(list), err, "customers")
		return nil
	})
	g.Go(func() error {
		list, err := p.cfg.Products.ListAll(ctx)
		productCount = p.count(len(list), err, "products")
		return nil
	})
	g.Go(func() error {
		var err error
		if orders, err = p.cfg.Orders.ListAll(ctx); err != nil {
			p.cfg.Logger.Error("analytics orders", slog.Any("error", err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if stats, err = p.cfg.Localization.Stats(ctx); err != nil {
			p.cfg.Logger.Error("analytics localization", slog.Any("error", err))
		}
		return nil
	})
	_ = g.Wait()

	var revenue float64
	byStatus := make(map[string]int, len(pinorders.Statuses))
	for _, o := range orders {
		byStatus[o.Status]++
		if o.Status == pinorders.StatusDelivered {
			revenue += o.Amount
		}
	}
	data := analyticsPageData{
		Metrics: []Metric{
			{Label: "Customers", Value: customerCount, Href: "/customers"},
			{Label: "Digital pin orders", Value: strconv.Itoa(len(orders)), Href: "/digital-pin-orders"},
			{Label: "Delivered revenue", Value: view.FormatMoney(revenue)},
			{Label: "Products", Value: productCount, Href: "/digital-pin-products"},
			{Label: "Translation keys", Value: strconv.Itoa(stats.TotalKeys), Href: "/localization"},
		},
	}
	for _, status := range pinorders.Statuses {
		data.Statuses = append(data.Statuses, Metric{
			Label: status,
			Value: strconv.Itoa(byStatus[status]),
			Href:  "/digital-pin-orders?status=" + status,
		})
	}
	for _, lang := range p.cfg.Localization.Languages() {
		data.Coverage = append(data.Coverage, Metric{Label: strings.ToUpper(lang), Value: strconv.Itoa(stats.Languages[lang].Percent()) + "%"})
	}
	p.cfg.Renderer.Render(w, r, view.Page{Template: "pages/analytics.html", Title: "Analytics", Data: data})
}

func (p *Pages) count(n int, err error, dataset string) string {
	if err != nil {
		p.cfg.Logger.Error("analytics "+dataset, slog.Any("error", err))
		return "unavailable"
	}
	return strconv.Itoa(n)
}

// RouteColumns is the guard table layout of the settings page.
func RouteColumns() []datatable.Column[Route] {
	return []datatable.Column[Route]{
		{Header: "Method", Key: "Method", Sortable: true},
		{Header: "Path", Key: "Pattern", Sortable: true, Cell: func(r Route) template.HTML {
			return template.HTML(`<code>` + template.HTMLEscapeString(r.Pattern) + `</code>`)
		}},
		{Header: "Menu", Key: "Title", Sortable: true},
		{Header: "Required roles", Key: "roles", Sortable: true, Value: func(r Route) any { return r.Guard.Describe() }},
		{Header: "Mode", Key: "mode", Value: func(r Route) any {
			switch {
			case len(r.Guard.RequiredRoles) == 0:
				return "authenticated"
			case r.Guard.RequireAllRoles:
				return "all"
			default:
				return "any"
			}
		}},
		{Header: "Fallback", Key: "fallback", Value: func(r Route) any { return r.Guard.Fallback() }},
	}
}

// Settings renders the route guard table.
func (p *Pages) Settings(routes []Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := datatable.New(RouteColumns(), datatable.WithLink(datatable.QueryLink(r.URL)))
		if err != nil {
			p.cfg.Renderer.Error(w, r, http.StatusInternalServerError, "")
			return
		}
		table.SetSort(datatable.ParseSortState(r.URL.Query()))
		p.cfg.Renderer.Render(w, r, view.Page{
			Template: "pages/settings.html",
			Title:    "Settings",
			Data:     tablePageData{Table: table.Render(routes, datatable.RenderOptions{}), Count: len(routes)},
		})
	}
}

// NotFound renders the 404 page.
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.cfg.Renderer.Error(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}

