package view

import (
	"bytes"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kliq/backoffice/internal/datatable"
	"github.com/kliq/backoffice/internal/rbac"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderErrorPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rd := &Renderer{Engine: engine}

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	res := httptest.NewRecorder()
	rd.Error(res, req, http.StatusNotFound, "")

	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))
	body := res.Body.String()
	assert.Contains(t, body, "404")
	assert.Contains(t, body, "Not Found")
	assert.Contains(t, body, `href="/auth/login"`)
}

func TestLayoutShowsPrincipalAndActiveNav(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rd := &Renderer{Engine: engine}

	ctx := rbac.ContextWithPrincipal(t.Context(), rbac.NewPrincipal("u1", "Ada Lovelace", "ada@kliq.test", []string{"admin"}, nil))
	ctx = ContextWithNav(ctx, []NavItem{{Title: "Dashboard", Path: "/"}, {Title: "Users", Path: "/users"}})
	req := httptest.NewRequest(http.MethodGet, "/users", nil).WithContext(ctx)
	res := httptest.NewRecorder()
	rd.Render(res, req, Page{Template: "pages/welcome.html", Title: "Welcome", Refresh: 3 * time.Second})

	body := res.Body.String()
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, `<a href="/users" class="active" aria-current="page">Users</a>`)
	assert.Contains(t, body, `<a href="/">Dashboard</a>`)
	assert.Contains(t, body, `<meta http-equiv="refresh" content="3">`)
}

func TestDatatablePartial(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	view := datatable.View{
		Headers: []datatable.Header{
			{Label: "Name", Key: "name", Sortable: true, Direction: datatable.Ascending, Glyph: datatable.GlyphAscending, Href: "/users?dir=desc&sort=name"},
			{Label: "Email", Key: "email"},
		},
		Rows:    []datatable.Row{{Cells: []template.HTML{"Ada", "ada@kliq.test"}}},
		Status:  datatable.StatusRows,
		ColSpan: 2,
	}
	var buf bytes.Buffer
	require.NoError(t, engine.Execute(&buf, "partials/datatable", view))
	out := buf.String()
	assert.Contains(t, out, `aria-sort="ascending"`)
	assert.Contains(t, out, `href="/users?dir=desc&amp;sort=name"`)
	assert.Contains(t, out, "<td>ada@kliq.test</td>")

	buf.Reset()
	view.Rows = nil
	view.Status = datatable.StatusLoading
	view.Message = datatable.DefaultLoadingMessage
	require.NoError(t, engine.Execute(&buf, "partials/datatable", view))
	assert.Contains(t, buf.String(), `<td colspan="2">Loading...</td>`)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatMoney(1234.5))
	assert.Equal(t, "$0.00", FormatMoney(0))
}
