package view

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/shared"
)

// NavItem is one entry of the left menu.
type NavItem struct {
	Title  string
	Path   string
	Active bool
}

type navContextKey struct{}

// ContextWithNav stores the menu visible to the current principal.
func ContextWithNav(ctx context.Context, items []NavItem) context.Context {
	return context.WithValue(ctx, navContextKey{}, items)
}

// NavFromContext returns the menu stored by ContextWithNav.
func NavFromContext(ctx context.Context) []NavItem {
	items, _ := ctx.Value(navContextKey{}).([]NavItem)
	return items
}

// Page describes one render call.
type Page struct {
	Template string
	Title    string
	Data     any
	// Status defaults to 200.
	Status  int
	Refresh time.Duration
	// Notice is shown when the session carries no flash of its own.
	Notice *shared.FlashMessage
}

// Renderer fills the shared layout data from the request and renders pages.
type Renderer struct {
	Engine *Engine
	CSRF   *shared.CSRFManager
	Logger *slog.Logger
}

// Render writes page. Template failures are logged and answered with 500.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, page Page) {
	ctx := r.Context()
	csrfToken := rd.CSRFToken(r)
	var flash *shared.FlashMessage
	if sess := shared.SessionFromContext(ctx); sess != nil {
		flash = sess.PopFlash()
	}
	if flash == nil {
		flash = page.Notice
	}

	status := page.Status
	if status == 0 {
		status = http.StatusOK
	}
	data := TemplateData{
		Title:       page.Title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   rbac.PrincipalFromContext(ctx),
		Nav:         markActive(NavFromContext(ctx), r.URL.Path),
		Refresh:     int(page.Refresh.Round(time.Second) / time.Second),
		Data:        page.Data,
	}
	if err := rd.Engine.Render(w, page.Template, status, data); err != nil {
		rd.logger().Error("render template", slog.String("template", page.Template), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// CSRFToken returns the form token of the request session, issuing one when
// missing. Requests without a session get an empty token.
func (rd *Renderer) CSRFToken(r *http.Request) string {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || rd.CSRF == nil {
		return ""
	}
	token, err := rd.CSRF.EnsureToken(r.Context(), sess)
	if err != nil {
		rd.logger().Warn("ensure csrf token", slog.Any("error", err))
	}
	return token
}

// Error renders the generic error page with status.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	rd.Render(w, r, Page{
		Template: "pages/error.html",
		Title:    http.StatusText(status),
		Data:     map[string]any{"Status": status, "Message": message},
		Status:   status,
	})
}

// Redirect stores a flash message and redirects with 303 See Other.
func (rd *Renderer) Redirect(w http.ResponseWriter, r *http.Request, to string, flash *shared.FlashMessage) {
	if flash != nil {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(*flash)
		}
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (rd *Renderer) logger() *slog.Logger {
	if rd.Logger != nil {
		return rd.Logger
	}
	return slog.Default()
}

func markActive(items []NavItem, path string) []NavItem {
	out := make([]NavItem, len(items))
	for i, item := range items {
		item.Active = item.Path == path || (item.Path != "/" && strings.HasPrefix(path, item.Path+"/"))
		out[i] = item
	}
	return out
}
