package products

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/kliq/backoffice/internal/datatable"
	"github.com/kliq/backoffice/internal/platform/httpx"
	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/shared"
	"github.com/kliq/backoffice/internal/view"
)

// BasePath is where the catalogue pages are mounted.
const BasePath = "/digital-pin-products"

// Handler serves the catalogue pages.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	renderer     *view.Renderer
	manage       rbac.Guard
	fetchTimeout time.Duration
}

// NewHandler constructs a Handler. Mutating controls are shown to principals
// passing manage.
func NewHandler(logger *slog.Logger, service *Service, renderer *view.Renderer, manage rbac.Guard, fetchTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, renderer: renderer, manage: manage, fetchTimeout: fetchTimeout}
}

func (h *Handler) canManage(r *http.Request) bool {
	return rbac.Check(h.manage, rbac.PrincipalFromContext(r.Context())).Allowed()
}

// Columns is the catalogue table layout. With csrfToken set the table gains
// toggle and delete buttons.
func Columns(csrfToken string, manage bool) []datatable.Column[Product] {
	cols := []datatable.Column[Product]{
		{Header: "Type", Key: "type", Sortable: true, Cell: func(p Product) template.HTML {
			return template.HTML(`<span class="badge badge-` + template.HTMLEscapeString(p.Type) + `">` + template.HTMLEscapeString(p.Type) + `</span>`)
		}},
		{Header: "Name", Key: "name", Sortable: true, Cell: func(p Product) template.HTML {
			html := `<strong>` + template.HTMLEscapeString(p.Name) + `</strong>`
			if p.Grouped != nil {
				html += ` <small>` + cast.ToString(len(p.Grouped.SingleProducts)) + ` cards, ` + template.HTMLEscapeString(p.Grouped.Theme.Name) + `</small>`
			}
			return template.HTML(html)
		}},
		{Header: "Price", Key: "price", Sortable: true, SortType: datatable.SortNumber,
			Value: func(p Product) any { return p.Price() },
			Cell: func(p Product) template.HTML {
				price := p.Price()
				if price == nil {
					return ""
				}
				prefix := ""
				if p.Grouped != nil {
					prefix = "from "
				}
				return template.HTML(prefix + template.HTMLEscapeString(view.FormatMoney(*price)))
			}},
		{Header: "Status", Key: "isActive", Sortable: true,
			Value: func(p Product) any { return statusLabel(p.IsActive) },
			Cell: func(p Product) template.HTML {
				label := statusLabel(p.IsActive)
				return template.HTML(`<span class="badge badge-` + label + `">` + label + `</span>`)
			}},
		{Header: "Updated", Key: "updatedAt", Sortable: true, SortType: datatable.SortDate, Cell: func(p Product) template.HTML {
			return template.HTML(p.UpdatedAt.UTC().Format("2006-01-02 15:04"))
		}},
	}
	if manage {
		cols = append(cols, datatable.Column[Product]{Header: "Actions", Key: "actions", Cell: func(p Product) template.HTML {
			id := template.HTMLEscapeString(p.ID)
			token := template.HTMLEscapeString(csrfToken)
			toggle := "Deactivate"
			if !p.IsActive {
				toggle = "Activate"
			}
			return template.HTML(`<form method="post" action="` + BasePath + `/` + id + `/toggle" class="inline">` +
				`<input type="hidden" name="` + shared.CSRFFormField + `" value="` + token + `">` +
				`<button type="submit" class="button button-small">` + toggle + `</button></form> ` +
				`<form method="post" action="` + BasePath + `/` + id + `/delete" class="inline">` +
				`<input type="hidden" name="` + shared.CSRFFormField + `" value="` + token + `">` +
				`<button type="submit" class="button button-small button-danger">Delete</button></form>`)
		}})
	}
	return cols
}

func statusLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

type listPageData struct {
	Table     datatable.View
	CanManage bool
	Count     int
}

// List renders the catalogue table.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	manage := h.canManage(r)
	table, err := datatable.New(Columns(h.renderer.CSRFToken(r), manage), datatable.WithLink(datatable.QueryLink(r.URL)))
	if err != nil {
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	table.SetSort(datatable.ParseSortState(r.URL.Query()))

	products, pending, err := shared.FetchWithin(r.Context(), h.fetchTimeout, h.service.ListAll)
	var notice *shared.FlashMessage
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		products = nil
		notice = &shared.FlashMessage{Kind: shared.FlashError, Message: "Products could not be loaded"}
	}
	page := view.Page{
		Template: "pages/products/list.html",
		Title:    "Digital Pin Products",
		Data: listPageData{
			Table:     table.Render(products, datatable.RenderOptions{Loading: pending, EmptyMessage: "No products yet"}),
			CanManage: manage,
			Count:     len(products),
		},
		Notice: notice,
	}
	if pending {
		page.Refresh = h.fetchTimeout
	}
	h.renderer.Render(w, r, page)
}

// Toggle flips a product between active and inactive.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	active, err := h.service.ToggleStatus(r.Context(), id)
	if err != nil {
		h.redirectError(w, r, BasePath, "toggle product", err)
		return
	}
	msg := "Product deactivated"
	if active {
		msg = "Product activated"
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: msg})
}

// Delete removes a product.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.redirectError(w, r, BasePath, "delete product", err)
		return
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Product deleted"})
}

type singleFormData struct {
	Form    singleForm
	Errors  map[string]string
	Groups  []GroupedProduct
}

type singleForm struct {
	Name             string
	Description      string
	Price            string
	LogoURL          string
	GroupedProductID string
}

// NewSingle renders the single product form.
func (h *Handler) NewSingle(w http.ResponseWriter, r *http.Request) {
	h.renderSingleForm(w, r, singleForm{GroupedProductID: r.URL.Query().Get("group")}, nil, http.StatusOK)
}

// CreateSingle handles the single product form.
func (h *Handler) CreateSingle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, "")
		return
	}
	form := singleForm{
		Name:             r.PostFormValue("name"),
		Description:      r.PostFormValue("description"),
		Price:            strings.TrimSpace(r.PostFormValue("price")),
		LogoURL:          strings.TrimSpace(r.PostFormValue("logo_url")),
		GroupedProductID: r.PostFormValue("grouped_product_id"),
	}
	price, err := cast.ToFloat64E(form.Price)
	if err != nil {
		h.renderSingleForm(w, r, form, map[string]string{"Price": "Enter a price"}, http.StatusBadRequest)
		return
	}
	in := SingleInput{
		Name:             form.Name,
		Description:      form.Description,
		Price:            price,
		GroupedProductID: form.GroupedProductID,
	}
	if form.LogoURL != "" {
		in.Logo = &Image{URL: form.LogoURL, Alt: strings.TrimSpace(form.Name) + " Logo"}
	}
	single, err := h.service.CreateSingle(r.Context(), in)
	if err != nil {
		var fields FieldErrors
		if errors.As(err, &fields) {
			h.renderSingleForm(w, r, form, fields, http.StatusBadRequest)
			return
		}
		h.redirectError(w, r, BasePath, "create single product", err)
		return
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Created " + single.Name})
}

func (h *Handler) renderSingleForm(w http.ResponseWriter, r *http.Request, form singleForm, errs map[string]string, status int) {
	groups, err := h.service.ListGrouped(r.Context())
	if err != nil {
		h.logger.Error("list grouped products", slog.Any("error", err))
	}
	h.renderer.Render(w, r, view.Page{
		Template: "pages/products/single_form.html",
		Title:    "New Single Product",
		Data:     singleFormData{Form: form, Errors: errs, Groups: groups},
		Status:   status,
	})
}

type themeFormData struct {
	Action   string
	Grouped  bool
	Form     themeForm
	Colors   []colorField
	Errors   map[string]string
	Partials []PartialImage
}

type themeForm struct {
	ProductName  string
	Description  string
	Name         string
	BannerURL    string
	BannerWidth  string
	BannerHeight string
}

type colorField struct {
	ColorKey
	Value string
}

func colorFields(values map[string]string) []colorField {
	out := make([]colorField, len(ColorKeys))
	for i, k := range ColorKeys {
		out[i] = colorField{ColorKey: k, Value: values[k.Key]}
	}
	return out
}

// NewGrouped renders the grouped product form.
func (h *Handler) NewGrouped(w http.ResponseWriter, r *http.Request) {
	defaults := make(map[string]string, len(ColorKeys))
	for _, k := range ColorKeys[:5] {
		defaults[k.Key] = k.Default
	}
	h.renderer.Render(w, r, view.Page{
		Template: "pages/products/theme_form.html",
		Title:    "New Grouped Product",
		Data: themeFormData{
			Action:  BasePath + "/grouped",
			Grouped: true,
			Colors:  colorFields(defaults),
		},
	})
}

// CreateGrouped handles the grouped product form.
func (h *Handler) CreateGrouped(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, "")
		return
	}
	form, colors, values := parseThemeForm(r)
	var grouped *GroupedProduct
	banner, err := form.banner()
	if err == nil {
		grouped, err = h.service.CreateGrouped(r.Context(), GroupedInput{
			Name:        form.ProductName,
			Description: form.Description,
			Theme:       ThemeInput{Name: form.Name, Colors: colors, Banner: banner},
		})
	}
	if err != nil {
		if errs, ok := formErrors(err); ok {
			h.renderer.Render(w, r, view.Page{
				Template: "pages/products/theme_form.html",
				Title:    "New Grouped Product",
				Data:     themeFormData{Action: BasePath + "/grouped", Grouped: true, Form: form, Colors: colorFields(values), Errors: errs},
				Status:   http.StatusBadRequest,
			})
			return
		}
		h.redirectError(w, r, BasePath, "create grouped product", err)
		return
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Created " + grouped.Name})
}

type themesPageData struct {
	Themes    []Theme
	CanManage bool
}

// Themes lists every theme.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.service.ListThemes(r.Context())
	if err != nil {
		h.logger.Error("list themes", slog.Any("error", err))
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	h.renderer.Render(w, r, view.Page{
		Template: "pages/products/themes.html",
		Title:    "Product Themes",
		Data:     themesPageData{Themes: themes, CanManage: h.canManage(r)},
	})
}

// EditTheme renders the theme form filled with the stored values.
func (h *Handler) EditTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.service.GetTheme(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.redirectError(w, r, BasePath+"/themes", "load theme", err)
		return
	}
	values := make(map[string]string, len(theme.Colors))
	for _, c := range theme.Colors {
		values[c.Key] = c.Value
	}
	form := themeForm{Name: theme.Name}
	if theme.Banner != nil {
		form.BannerURL = theme.Banner.URL
		form.BannerWidth = cast.ToString(theme.Banner.Width)
		form.BannerHeight = cast.ToString(theme.Banner.Height)
	}
	h.renderer.Render(w, r, view.Page{
		Template: "pages/products/theme_form.html",
		Title:    "Edit " + theme.Name,
		Data: themeFormData{
			Action:   BasePath + "/themes/" + theme.ID,
			Form:     form,
			Colors:   colorFields(values),
			Partials: theme.Partials,
		},
	})
}

// UpdateTheme handles the theme edit form. Blank colour inputs remove the
// colour; a blank banner URL keeps the current banner.
func (h *Handler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, "")
		return
	}
	id := chi.URLParam(r, "id")
	form, colors, values := parseThemeForm(r)
	banner, err := form.banner()
	if err == nil {
		name := form.Name
		_, err = h.service.UpdateTheme(r.Context(), id, ThemePatch{Name: &name, Colors: colors, Banner: banner})
	}
	if err != nil {
		if errs, ok := formErrors(err); ok {
			h.renderer.Render(w, r, view.Page{
				Template: "pages/products/theme_form.html",
				Title:    "Edit theme",
				Data:     themeFormData{Action: BasePath + "/themes/" + id, Form: form, Colors: colorFields(values), Errors: errs},
				Status:   http.StatusBadRequest,
			})
			return
		}
		h.redirectError(w, r, BasePath+"/themes", "update theme", err)
		return
	}
	h.renderer.Redirect(w, r, BasePath+"/themes", &shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Theme updated"})
}

// APIList returns the catalogue listing as JSON.
func (h *Handler) APIList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListAll(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

func parseThemeForm(r *http.Request) (themeForm, []ColorEntry, map[string]string) {
	form := themeForm{
		ProductName:  r.PostFormValue("product_name"),
		Description:  r.PostFormValue("description"),
		Name:         r.PostFormValue("theme_name"),
		BannerURL:    strings.TrimSpace(r.PostFormValue("banner_url")),
		BannerWidth:  strings.TrimSpace(r.PostFormValue("banner_width")),
		BannerHeight: strings.TrimSpace(r.PostFormValue("banner_height")),
	}
	colors := make([]ColorEntry, 0, len(ColorKeys))
	values := make(map[string]string, len(ColorKeys))
	for _, k := range ColorKeys {
		v := strings.TrimSpace(r.PostFormValue("color_" + k.Key))
		if v == "" {
			continue
		}
		values[k.Key] = v
		colors = append(colors, ColorEntry{Key: k.Key, Value: v})
	}
	return form, colors, values
}

func (f themeForm) banner() (*BannerImage, error) {
	if f.BannerURL == "" {
		return nil, nil
	}
	width, werr := cast.ToIntE(f.BannerWidth)
	height, herr := cast.ToIntE(f.BannerHeight)
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return nil, FieldErrors{"Banner": "Banner width and height must be positive numbers"}
	}
	return &BannerImage{URL: f.BannerURL, Width: width, Height: height}, nil
}

// formErrors turns validation failures into per-field messages.
func formErrors(err error) (map[string]string, bool) {
	var fields FieldErrors
	if errors.As(err, &fields) {
		return fields, true
	}
	if errors.Is(err, shared.ErrValidation) {
		return map[string]string{"Colors": strings.TrimPrefix(err.Error(), shared.ErrValidation.Error()+": ")}, true
	}
	return nil, false
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, to, action string, err error) {
	msg := "Something went wrong"
	switch {
	case errors.Is(err, shared.ErrNotFound):
		msg = "Not found"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "The request timed out"
	default:
		h.logger.Error(action, slog.Any("error", err))
	}
	h.renderer.Redirect(w, r, to, &shared.FlashMessage{Kind: shared.FlashError, Message: msg})
}
