package app

import (
	"net/http"

	"github.com/kliq/backoffice/internal/auth"
	"github.com/kliq/backoffice/internal/customers"
	"github.com/kliq/backoffice/internal/localization"
	"github.com/kliq/backoffice/internal/pinorders"
	"github.com/kliq/backoffice/internal/products"
	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/view"
)

// Route is one guarded page of the console. Entries with a Title appear in
// the left menu when their guard admits the principal.
type Route struct {
	Method  string
	Pattern string
	Title   string
	Guard   rbac.Guard
	Handler http.HandlerFunc
}

// Menu reports whether the route is a menu entry.
func (r Route) Menu() bool {
	return r.Title != "" && r.Method == http.MethodGet
}

// Handlers groups the page handlers mounted by the route table.
type Handlers struct {
	Pages        *Pages
	Customers    *customers.Handler
	Orders       *pinorders.Handler
	Products     *products.Handler
	Localization *localization.Handler
}

// Guards used by the route table.
var (
	GuardHome         = rbac.Authenticated().WithFallback("/welcome")
	GuardCustomers    = rbac.AnyOf(auth.RoleCustomerView)
	GuardOrders       = rbac.AnyOf(auth.RoleOrderView)
	GuardProducts     = rbac.AnyOf(auth.RoleProductView, auth.RoleProductManage)
	GuardProductAdmin = rbac.AnyOf(auth.RoleProductManage)
	GuardLocalization = rbac.AnyOf(auth.RoleLocalizationManage)
	GuardUsers        = rbac.AnyOf(auth.RoleAdmin, auth.RoleUserManagement)
	GuardAnalytics    = rbac.AnyOf(auth.RoleAnalyticsView)
	GuardSettings     = rbac.AnyOf(auth.RoleAdmin)
)

// RouteTable builds the guarded page routes in menu order.
func RouteTable(h Handlers) []Route {
	get, post := http.MethodGet, http.MethodPost
	routes := []Route{
		{Method: get, Pattern: "/", Title: "Dashboard", Guard: GuardHome, Handler: h.Pages.Home},

		{Method: get, Pattern: "/customers", Title: "Customers", Guard: GuardCustomers, Handler: h.Customers.List},
		{Method: get, Pattern: "/customers/{id}", Guard: GuardCustomers, Handler: h.Customers.Detail},
		{Method: get, Pattern: "/customers/{id}/statement", Guard: GuardCustomers, Handler: h.Customers.Statement},
		{Method: get, Pattern: "/customers/{id}/statement.pdf", Guard: GuardCustomers, Handler: h.Customers.StatementPDF},

		{Method: get, Pattern: "/digital-pin-orders", Title: "Digital Pin Orders", Guard: GuardOrders, Handler: h.Orders.List},
		{Method: get, Pattern: "/digital-pin-orders/export.csv", Guard: GuardOrders, Handler: h.Orders.ExportCSV},

		{Method: get, Pattern: "/digital-pin-products", Title: "Digital Pin Products", Guard: GuardProducts, Handler: h.Products.List},
		{Method: get, Pattern: "/digital-pin-products/themes", Guard: GuardProducts, Handler: h.Products.Themes},
		{Method: get, Pattern: "/digital-pin-products/themes/{id}/edit", Guard: GuardProductAdmin, Handler: h.Products.EditTheme},
		{Method: post, Pattern: "/digital-pin-products/themes/{id}", Guard: GuardProductAdmin, Handler: h.Products.UpdateTheme},
		{Method: get, Pattern: "/digital-pin-products/grouped/new", Guard: GuardProductAdmin, Handler: h.Products.NewGrouped},
		{Method: post, Pattern: "/digital-pin-products/grouped", Guard: GuardProductAdmin, Handler: h.Products.CreateGrouped},
		{Method: get, Pattern: "/digital-pin-products/singles/new", Guard: GuardProductAdmin, Handler: h.Products.NewSingle},
		{Method: post, Pattern: "/digital-pin-products/singles", Guard: GuardProductAdmin, Handler: h.Products.CreateSingle},
		{Method: post, Pattern: "/digital-pin-products/{id}/toggle", Guard: GuardProductAdmin, Handler: h.Products.Toggle},
		{Method: post, Pattern: "/digital-pin-products/{id}/delete", Guard: GuardProductAdmin, Handler: h.Products.Delete},

		{Method: get, Pattern: "/localization", Title: "Localization", Guard: GuardLocalization, Handler: h.Localization.Manager},
		{Method: get, Pattern: "/localization/stats", Guard: GuardLocalization, Handler: h.Localization.Stats},
		{Method: get, Pattern: "/localization/export", Guard: GuardLocalization, Handler: h.Localization.Export},
		{Method: get, Pattern: "/localization/import", Guard: GuardLocalization, Handler: h.Localization.ImportForm},
		{Method: post, Pattern: "/localization/import", Guard: GuardLocalization, Handler: h.Localization.Import},
		{Method: get, Pattern: "/localization/keys/new", Guard: GuardLocalization, Handler: h.Localization.NewKey},
		{Method: post, Pattern: "/localization/keys", Guard: GuardLocalization, Handler: h.Localization.CreateKey},
		{Method: get, Pattern: "/localization/keys/{key}/edit", Guard: GuardLocalization, Handler: h.Localization.EditKey},
		{Method: post, Pattern: "/localization/keys/{key}", Guard: GuardLocalization, Handler: h.Localization.UpdateKey},
		{Method: post, Pattern: "/localization/keys/{key}/delete", Guard: GuardLocalization, Handler: h.Localization.DeleteKey},

		{Method: get, Pattern: "/users", Title: "Users", Guard: GuardUsers, Handler: h.Pages.Users},
		{Method: get, Pattern: "/analytics", Title: "Analytics", Guard: GuardAnalytics, Handler: h.Pages.Analytics},
		{Method: get, Pattern: "/settings", Title: "Settings", Guard: GuardSettings},
	}
	settings := len(routes) - 1
	routes[settings].Handler = h.Pages.Settings(routes)
	return routes
}

// Navigation returns the menu entries whose guard admits p.
func Navigation(routes []Route, p *rbac.Principal) []view.NavItem {
	var items []view.NavItem
	for _, route := range routes {
		if !route.Menu() || !rbac.Check(route.Guard, p).Allowed() {
			continue
		}
		items = append(items, view.NavItem{Title: route.Title, Path: route.Pattern})
	}
	return items
}

// NavMiddleware stores the menu of the request principal in the context.
func NavMiddleware(routes []Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			items := Navigation(routes, rbac.PrincipalFromContext(r.Context()))
			next.ServeHTTP(w, r.WithContext(view.ContextWithNav(r.Context(), items)))
		})
	}
}
