package products_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kliq/backoffice/internal/products"
	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/view"
	_ "github.com/kliq/backoffice/testing"
)

type fixture struct {
	router  http.Handler
	service *products.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	repo, err := products.NewFixtureRepository()
	require.NoError(t, err)
	svc := products.NewService(repo, nil, nil)
	h := products.NewHandler(nil, svc, &view.Renderer{Engine: engine}, rbac.AnyOf("product_manage"), time.Second)

	r := chi.NewRouter()
	r.Get("/digital-pin-products", h.List)
	r.Post("/digital-pin-products/{id}/toggle", h.Toggle)
	r.Post("/digital-pin-products/{id}/delete", h.Delete)
	r.Get("/digital-pin-products/singles/new", h.NewSingle)
	r.Post("/digital-pin-products/singles", h.CreateSingle)
	r.Get("/digital-pin-products/grouped/new", h.NewGrouped)
	r.Post("/digital-pin-products/grouped", h.CreateGrouped)
	r.Get("/digital-pin-products/themes", h.Themes)
	r.Get("/digital-pin-products/themes/{id}/edit", h.EditTheme)
	r.Post("/digital-pin-products/themes/{id}", h.UpdateTheme)
	return fixture{router: r, service: svc}
}

func (f fixture) do(t *testing.T, req *http.Request, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	p := rbac.NewPrincipal("u-1", "Tester", "tester@kliq.local", roles, nil)
	req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), p))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestListShowsActionsToManagers(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/digital-pin-products", nil), "product_view")
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Gaming Cards Collection")
	assert.Contains(t, body, "Standalone Card $5")
	assert.NotContains(t, body, "Game Card $25")
	assert.NotContains(t, body, "/toggle")

	res = f.do(t, httptest.NewRequest(http.MethodGet, "/digital-pin-products", nil), "product_manage")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `action="/digital-pin-products/single-6/toggle"`)
}

func TestToggleAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.do(t, postForm("/digital-pin-products/single-6/toggle", url.Values{}), "product_manage")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/digital-pin-products", res.Header().Get("Location"))

	list, err := f.service.ListAll(ctx)
	require.NoError(t, err)
	assert.False(t, list[2].IsActive)

	res = f.do(t, postForm("/digital-pin-products/grouped-1/delete", url.Values{}), "product_manage")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	list, err = f.service.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 5)

	res = f.do(t, postForm("/digital-pin-products/nope/delete", url.Values{}), "product_manage")
	assert.Equal(t, http.StatusSeeOther, res.Code)
}

func TestCreateSingleForm(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/digital-pin-products/singles/new?group=grouped-2", nil), "product_manage")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Gift Cards Collection")

	res = f.do(t, postForm("/digital-pin-products/singles", url.Values{"name": {""}, "price": {"10"}}), "product_manage")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Name is required")

	res = f.do(t, postForm("/digital-pin-products/singles", url.Values{"name": {"Gift Card $50"}, "price": {"abc"}}), "product_manage")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Enter a price")

	res = f.do(t, postForm("/digital-pin-products/singles", url.Values{
		"name":               {"Gift Card $50"},
		"price":              {"50"},
		"grouped_product_id": {"grouped-2"},
	}), "product_manage")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	groups, err := f.service.ListGrouped(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups[1].SingleProducts, 3)
}

func TestCreateGroupedForm(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/digital-pin-products/grouped/new", nil), "product_manage")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `name="color_shadow"`)

	res = f.do(t, postForm("/digital-pin-products/grouped", url.Values{
		"product_name":  {"Music Cards"},
		"theme_name":    {"Music Theme"},
		"color_primary": {"not-a-colour"},
	}), "product_manage")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "#RRGGBB")

	res = f.do(t, postForm("/digital-pin-products/grouped", url.Values{
		"product_name":  {"Music Cards"},
		"theme_name":    {"Music Theme"},
		"color_primary": {"#112233"},
		"banner_url":    {"/images/music.png"},
		"banner_width":  {"800"},
		"banner_height": {"200"},
	}), "product_manage")
	require.Equal(t, http.StatusSeeOther, res.Code)

	themes, err := f.service.ListThemes(context.Background())
	require.NoError(t, err)
	require.Len(t, themes, 3)
	assert.Equal(t, "Music Theme", themes[2].Name)
	assert.Equal(t, 800, themes[2].Banner.Width)
}

func TestEditTheme(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/digital-pin-products/themes/theme-2/edit", nil), "product_manage")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `value="#E91E63"`)

	res = f.do(t, postForm("/digital-pin-products/themes/theme-2", url.Values{
		"theme_name":    {"Holiday Theme"},
		"color_primary": {"#ff0000"},
	}), "product_manage")
	require.Equal(t, http.StatusSeeOther, res.Code)

	theme, err := f.service.GetTheme(context.Background(), "theme-2")
	require.NoError(t, err)
	assert.Equal(t, "Holiday Theme", theme.Name)
	assert.Equal(t, "#FF0000", theme.Color("primary"))
	require.NotNil(t, theme.Banner)
	assert.Equal(t, 1200, theme.Banner.Width)

	res = f.do(t, httptest.NewRequest(http.MethodGet, "/digital-pin-products/themes", nil), "product_view")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Holiday Theme")
	assert.NotContains(t, res.Body.String(), "/themes/theme-2/edit")
}

type unavailableRepo struct {
	products.Repository
}

func (unavailableRepo) Snapshot(context.Context) (products.Catalog, error) {
	return products.Catalog{}, errors.New("db down")
}

func TestListFetchFailureRendersEmptyTable(t *testing.T) {
	engine, err := view.NewEngine()
	require.NoError(t, err)
	svc := products.NewService(unavailableRepo{}, nil, nil)
	h := products.NewHandler(nil, svc, &view.Renderer{Engine: engine}, rbac.AnyOf("product_manage"), time.Second)

	res := httptest.NewRecorder()
	h.List(res, httptest.NewRequest(http.MethodGet, "/digital-pin-products", nil))

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "No products yet")
	assert.Contains(t, body, "Products could not be loaded")
}
