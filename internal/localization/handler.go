package localization

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kliq/backoffice/internal/datatable"
	"github.com/kliq/backoffice/internal/platform/httpx"
	"github.com/kliq/backoffice/internal/shared"
	"github.com/kliq/backoffice/internal/view"
)

// BasePath is where the localization pages are mounted.
const BasePath = "/localization"

const maxImportBytes = 4 << 20

// ImportQueue hands imports to the background worker.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, lang string, translations map[string]string) (string, error)
}

// HandlerConfig collects Handler dependencies.
type HandlerConfig struct {
	Logger       *slog.Logger
	Service      *Service
	Renderer     *view.Renderer
	Queue        ImportQueue
	AsyncMinKeys int
	FetchTimeout time.Duration
}

// Handler serves the translation manager.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	renderer     *view.Renderer
	queue        ImportQueue
	asyncMinKeys int
	fetchTimeout time.Duration
	validator    *validator.Validate
}

// NewHandler constructs a Handler. Imports with at least AsyncMinKeys
// entries go through Queue when one is configured.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      cfg.Service,
		renderer:     cfg.Renderer,
		queue:        cfg.Queue,
		asyncMinKeys: cfg.AsyncMinKeys,
		fetchTimeout: cfg.FetchTimeout,
		validator:    validator.New(),
	}
}

// Columns is the key table layout: one column per language.
func Columns(languages []string, csrfToken string) []datatable.Column[Key] {
	cols := []datatable.Column[Key]{
		{Header: "Key", Key: "key", Sortable: true, Cell: func(k Key) template.HTML {
			return template.HTML(`<code>` + template.HTMLEscapeString(k.Key) + `</code>`)
		}},
	}
	for _, lang := range languages {
		cols = append(cols, datatable.Column[Key]{
			Header:   strings.ToUpper(lang),
			Key:      "lang_" + lang,
			Sortable: true,
			Value: func(k Key) any {
				if text := k.Translations[lang]; text != "" {
					return text
				}
				return nil
			},
			Cell: func(k Key) template.HTML {
				if text := k.Translations[lang]; text != "" {
					return template.HTML(template.HTMLEscapeString(text))
				}
				return template.HTML(`<span class="missing">missing</span>`)
			},
		})
	}
	cols = append(cols,
		datatable.Column[Key]{Header: "Category", Key: "category", Sortable: true},
		datatable.Column[Key]{Header: "Description", Key: "description"},
		datatable.Column[Key]{Header: "Actions", Key: "actions", Cell: func(k Key) template.HTML {
			path := BasePath + "/keys/" + url.PathEscape(k.Key)
			return template.HTML(`<a class="button button-small" href="` + template.HTMLEscapeString(path) + `/edit">Edit</a> ` +
				`<form method="post" action="` + template.HTMLEscapeString(path) + `/delete" class="inline">` +
				`<input type="hidden" name="` + shared.CSRFFormField + `" value="` + template.HTMLEscapeString(csrfToken) + `">` +
				`<button type="submit" class="button button-small button-danger">Delete</button></form>`)
		}},
	)
	return cols
}

type managerPageData struct {
	Query      string
	Category   string
	Categories []string
	Languages  []string
	Table      datatable.View
	Count      int
}

// Manager renders the searchable key table.
func (h *Handler) Manager(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := query.Get("q")
	category := query.Get("category")
	if category == "" {
		category = CategoryAll
	}
	languages := h.service.Languages()
	table, err := datatable.New(Columns(languages, h.renderer.CSRFToken(r)), datatable.WithLink(datatable.QueryLink(r.URL)))
	if err != nil {
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	table.SetSort(datatable.ParseSortState(query))

	keys, pending, err := shared.FetchWithin(r.Context(), h.fetchTimeout, func(ctx context.Context) ([]Key, error) {
		return h.service.Search(ctx, q, category)
	})
	var notice *shared.FlashMessage
	if err != nil {
		h.logger.Error("search localization keys", slog.Any("error", err))
		keys = nil
		notice = &shared.FlashMessage{Kind: shared.FlashError, Message: "Keys could not be loaded"}
	}
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.logger.Warn("list localization categories", slog.Any("error", err))
	}

	page := view.Page{
		Template: "pages/localization/manager.html",
		Title:    "Localization",
		Data: managerPageData{
			Query:      q,
			Category:   category,
			Categories: categories,
			Languages:  languages,
			Table:      table.Render(keys, datatable.RenderOptions{Loading: pending, EmptyMessage: "No translation keys found"}),
			Count:      len(keys),
		},
		Notice: notice,
	}
	if pending {
		page.Refresh = h.fetchTimeout
	}
	h.renderer.Render(w, r, page)
}

type keyForm struct {
	Key          string `validate:"required,max=200"`
	Category     string `validate:"max=60"`
	Description  string `validate:"max=500"`
	Translations map[string]string
}

type translationField struct {
	Language string
	Value    string
}

type keyFormData struct {
	Action string
	IsEdit bool
	Form   keyForm
	Fields []translationField
	Errors map[string]string
}

func (h *Handler) fields(values map[string]string) []translationField {
	out := make([]translationField, 0, len(h.service.Languages()))
	for _, lang := range h.service.Languages() {
		out = append(out, translationField{Language: lang, Value: values[lang]})
	}
	return out
}

func (h *Handler) parseKeyForm(r *http.Request) keyForm {
	form := keyForm{
		Key:          strings.TrimSpace(r.PostFormValue("key")),
		Category:     strings.TrimSpace(r.PostFormValue("category")),
		Description:  strings.TrimSpace(r.PostFormValue("description")),
		Translations: make(map[string]string),
	}
	for _, lang := range h.service.Languages() {
		form.Translations[lang] = r.PostFormValue("t_" + lang)
	}
	return form
}

func (h *Handler) validateForm(form keyForm) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					errs[fe.Field()] = fe.Field() + " is required"
				} else {
					errs[fe.Field()] = fe.Field() + " is too long"
				}
			}
		}
	}
	return errs
}

func (h *Handler) renderKeyForm(w http.ResponseWriter, r *http.Request, data keyFormData, status int) {
	title := "New translation key"
	if data.IsEdit {
		title = "Edit " + data.Form.Key
	}
	h.renderer.Render(w, r, view.Page{Template: "pages/localization/key_form.html", Title: title, Data: data, Status: status})
}

// NewKey renders the empty key form.
func (h *Handler) NewKey(w http.ResponseWriter, r *http.Request) {
	h.renderKeyForm(w, r, keyFormData{Action: BasePath + "/keys", Fields: h.fields(nil)}, http.StatusOK)
}

// CreateKey handles the new key form.
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, "")
		return
	}
	form := h.parseKeyForm(r)
	data := keyFormData{Action: BasePath + "/keys", Form: form, Fields: h.fields(form.Translations)}
	if data.Errors = h.validateForm(form); len(data.Errors) > 0 {
		h.renderKeyForm(w, r, data, http.StatusBadRequest)
		return
	}
	err := h.service.Add(r.Context(), Key{Key: form.Key, Translations: form.Translations, Category: form.Category, Description: form.Description})
	switch {
	case errors.Is(err, shared.ErrAlreadyExists):
		data.Errors = map[string]string{"Key": "Key \"" + form.Key + "\" already exists"}
		h.renderKeyForm(w, r, data, http.StatusConflict)
		return
	case errors.Is(err, shared.ErrValidation):
		data.Errors = map[string]string{"general": err.Error()}
		h.renderKeyForm(w, r, data, http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("add localization key", slog.Any("error", err))
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Added " + form.Key})
}

// EditKey renders the form of an existing key.
func (h *Handler) EditKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.redirectError(w, r, "load localization key", err)
		return
	}
	form := keyForm{Key: key.Key, Category: key.Category, Description: key.Description, Translations: key.Translations}
	h.renderKeyForm(w, r, keyFormData{
		Action: BasePath + "/keys/" + url.PathEscape(key.Key),
		IsEdit: true,
		Form:   form,
		Fields: h.fields(key.Translations),
	}, http.StatusOK)
}

// UpdateKey handles the edit form. The key name cannot change.
func (h *Handler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, "")
		return
	}
	name := chi.URLParam(r, "key")
	form := h.parseKeyForm(r)
	form.Key = name
	data := keyFormData{Action: BasePath + "/keys/" + url.PathEscape(name), IsEdit: true, Form: form, Fields: h.fields(form.Translations)}
	if data.Errors = h.validateForm(form); len(data.Errors) > 0 {
		h.renderKeyForm(w, r, data, http.StatusBadRequest)
		return
	}
	_, err := h.service.Update(r.Context(), name, KeyPatch{
		Translations: form.Translations,
		Category:     &form.Category,
		Description:  &form.Description,
	})
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			data.Errors = map[string]string{"general": err.Error()}
			h.renderKeyForm(w, r, data, http.StatusBadRequest)
			return
		}
		h.redirectError(w, r, "update localization key", err)
		return
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Updated " + name})
}

// DeleteKey removes a key.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "key")
	if err := h.service.Delete(r.Context(), name); err != nil {
		h.redirectError(w, r, "delete localization key", err)
		return
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Deleted " + name})
}

type statsRow struct {
	Language string
	LanguageStats
}

type statsPageData struct {
	TotalKeys int
	Rows      []statsRow
	Missing   map[string][]Key
	Languages []string
}

// Stats renders translation coverage per language.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("localization stats", slog.Any("error", err))
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	data := statsPageData{TotalKeys: stats.TotalKeys, Missing: make(map[string][]Key), Languages: h.service.Languages()}
	for _, lang := range data.Languages {
		data.Rows = append(data.Rows, statsRow{Language: lang, LanguageStats: stats.Languages[lang]})
		if missing, err := h.service.Missing(r.Context(), lang); err == nil {
			data.Missing[lang] = missing
		}
	}
	for lang, ls := range stats.Languages {
		if !containsString(data.Languages, lang) {
			data.Rows = append(data.Rows, statsRow{Language: lang, LanguageStats: ls})
		}
	}
	h.renderer.Render(w, r, view.Page{Template: "pages/localization/stats.html", Title: "Translation statistics", Data: data})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Export downloads the translations of ?lang= as a JSON object.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	translations, err := h.service.Export(r.Context(), lang)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="translations-`+url.PathEscape(strings.TrimSpace(lang))+`.json"`)
	httpx.JSON(w, http.StatusOK, translations)
}

type importPageData struct {
	Languages []string
	Language  string
	Payload   string
	Errors    map[string]string
}

// ImportForm renders the JSON import form.
func (h *Handler) ImportForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, view.Page{
		Template: "pages/localization/import.html",
		Title:    "Import translations",
		Data:     importPageData{Languages: h.service.Languages(), Language: h.service.Languages()[0]},
	})
}

// Import handles the import form. The JSON object comes from the uploaded
// file or, when none is sent, from the payload text area.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderer.Error(w, r, http.StatusBadRequest, "The upload is too large")
		return
	}
	data := importPageData{
		Languages: h.service.Languages(),
		Language:  strings.TrimSpace(r.PostFormValue("language")),
		Payload:   r.PostFormValue("payload"),
	}
	raw := []byte(data.Payload)
	if file, _, err := r.FormFile("file"); err == nil {
		raw, err = io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			h.renderer.Error(w, r, http.StatusBadRequest, "")
			return
		}
	}
	var translations map[string]string
	if err := json.Unmarshal(raw, &translations); err != nil {
		data.Errors = map[string]string{"Payload": "Provide a JSON object of key to text"}
		h.renderer.Render(w, r, view.Page{Template: "pages/localization/import.html", Title: "Import translations", Data: data, Status: http.StatusBadRequest})
		return
	}

	msg, err := h.runImport(r.Context(), data.Language, translations)
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			data.Errors = map[string]string{"Language": err.Error()}
			h.renderer.Render(w, r, view.Page{Template: "pages/localization/import.html", Title: "Import translations", Data: data, Status: http.StatusBadRequest})
			return
		}
		h.logger.Error("import translations", slog.Any("error", err))
		h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashError, Message: "Import failed"})
		return
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashSuccess, Message: msg})
}

// runImport imports inline or enqueues large payloads.
func (h *Handler) runImport(ctx context.Context, lang string, translations map[string]string) (string, error) {
	lang, err := CanonicalLanguage(lang)
	if err != nil {
		return "", err
	}
	if h.queue != nil && h.asyncMinKeys > 0 && len(translations) >= h.asyncMinKeys {
		id, err := h.queue.EnqueueImport(ctx, lang, translations)
		if err != nil {
			return "", err
		}
		h.logger.Info("localization import queued", slog.String("task_id", id), slog.Int("keys", len(translations)))
		return "Import of " + strconv.Itoa(len(translations)) + " keys queued", nil
	}
	result, err := h.service.Import(ctx, lang, translations)
	if err != nil {
		return "", err
	}
	return "Imported " + strconv.Itoa(result.Created) + " new and " + strconv.Itoa(result.Updated) + " updated keys", nil
}

// APIExport returns the translations of {lang} as JSON.
func (h *Handler) APIExport(w http.ResponseWriter, r *http.Request) {
	translations, err := h.service.Export(r.Context(), chi.URLParam(r, "lang"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, translations)
}

// APIImport imports a JSON object of translations for {lang}.
func (h *Handler) APIImport(w http.ResponseWriter, r *http.Request) {
	var translations map[string]string
	if err := httpx.DecodeJSON(w, r, &translations); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	lang, err := CanonicalLanguage(chi.URLParam(r, "lang"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.queue != nil && h.asyncMinKeys > 0 && len(translations) >= h.asyncMinKeys {
		id, err := h.queue.EnqueueImport(r.Context(), lang, translations)
		if err != nil {
			h.logger.Error("enqueue import", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"taskId": id, "keys": len(translations)})
		return
	}
	result, err := h.service.Import(r.Context(), lang, translations)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, action string, err error) {
	msg := "Something went wrong"
	if errors.Is(err, shared.ErrNotFound) {
		msg = "Translation key not found"
	} else {
		h.logger.Error(action, slog.Any("error", err))
	}
	h.renderer.Redirect(w, r, BasePath, &shared.FlashMessage{Kind: shared.FlashError, Message: msg})
}
