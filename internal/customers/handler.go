package customers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kliq/backoffice/internal/datatable"
	"github.com/kliq/backoffice/internal/pinorders"
	"github.com/kliq/backoffice/internal/platform/httpx"
	"github.com/kliq/backoffice/internal/shared"
	"github.com/kliq/backoffice/internal/view"
)

// OrderLister provides the orders shown on a customer's page.
type OrderLister interface {
	ListByCustomer(ctx context.Context, customerID string) ([]pinorders.Order, error)
}

// PDFRenderer converts an HTML document to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves the customer pages and API.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	orders       OrderLister
	renderer     *view.Renderer
	pdf          PDFRenderer
	fetchTimeout time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, orders OrderLister, renderer *view.Renderer, pdf PDFRenderer, fetchTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		orders:       orders,
		renderer:     renderer,
		pdf:          pdf,
		fetchTimeout: fetchTimeout,
	}
}

// Columns is the customer table layout.
func Columns() []datatable.Column[Customer] {
	return []datatable.Column[Customer]{
		{Header: "KliqId", Key: "accountNumber", Sortable: true},
		{Header: "Name", Key: "name", Sortable: true},
		{Header: "Email", Key: "email", Sortable: true},
		{Header: "Phone", Key: "phone", Sortable: true},
		{Header: "Status", Key: "status", Sortable: true, Cell: func(c Customer) template.HTML {
			status := template.HTMLEscapeString(c.Status)
			return template.HTML(`<span class="badge badge-` + status + `">` + status + `</span>`)
		}},
		{Header: "Actions", Key: "actions", Cell: func(c Customer) template.HTML {
			return template.HTML(`<a class="button button-small" href="/customers/` + template.HTMLEscapeString(c.ID) + `">View</a>`)
		}},
	}
}

type listPageData struct {
	Filters  SearchFilters
	Table    datatable.View
	Count    int
	Filtered bool
}

// List renders the customer table with the search form.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := SearchFilters{KliqID: query.Get("kliqId"), Phone: query.Get("phone")}
	table, err := datatable.New(Columns(), datatable.WithLink(datatable.QueryLink(r.URL)))
	if err != nil {
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	table.SetSort(datatable.ParseSortState(query))

	customers, pending, err := shared.FetchWithin(r.Context(), h.fetchTimeout, func(ctx context.Context) ([]Customer, error) {
		return h.service.Search(ctx, filters)
	})
	var notice *shared.FlashMessage
	if err != nil {
		h.logger.Error("search customers", slog.Any("error", err))
		customers = nil
		notice = &shared.FlashMessage{Kind: shared.FlashError, Message: "Customers could not be loaded"}
	}

	page := view.Page{
		Template: "pages/customers/list.html",
		Title:    "Customers",
		Data: listPageData{
			Filters:  filters,
			Table:    table.Render(customers, datatable.RenderOptions{Loading: pending, EmptyMessage: "No customers found"}),
			Count:    len(customers),
			Filtered: !filters.IsZero(),
		},
		Notice: notice,
	}
	if pending {
		page.Refresh = h.fetchTimeout
	}
	h.renderer.Render(w, r, page)
}

type detailPageData struct {
	Customer   Customer
	Orders     datatable.View
	OrderCount int
	Periods    []Period
	Selected   Period
	Years      []int
}

// Detail renders one customer with its orders and statement picker.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		customer *Customer
		orders   []pinorders.Order
		periods  []Period
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		customer, err = h.service.Get(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = h.orders.ListByCustomer(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		periods, err = h.service.Periods(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, "load customer", err)
		return
	}

	table, err := datatable.New(pinorders.Columns(), datatable.WithLink(datatable.QueryLink(r.URL)))
	if err != nil {
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
		return
	}
	table.SetSort(datatable.ParseSortState(r.URL.Query()))

	h.renderer.Render(w, r, view.Page{
		Template: "pages/customers/detail.html",
		Title:    customer.Name,
		Data: detailPageData{
			Customer:   *customer,
			Orders:     table.Render(orders, datatable.RenderOptions{EmptyMessage: "No orders for this customer"}),
			OrderCount: len(orders),
			Periods:    periods,
			Selected:   h.service.CurrentPeriod(),
			Years:      h.service.StatementYears(),
		},
	})
}

type statementPageData struct {
	Customer  Customer
	Statement *Statement
	Selected  Period
	Years     []int
	Months    []int
	PDFHref   string
}

// Statement renders the monthly statement selected by ?month=&year=,
// defaulting to the current month.
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	period, err := h.parsePeriod(r)
	if err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "load customer", err)
		return
	}
	statement, err := h.service.Statement(r.Context(), id, period.Month, period.Year)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.fail(w, r, "load statement", err)
		return
	}

	months := make([]int, 12)
	for i := range months {
		months[i] = i + 1
	}
	h.renderer.Render(w, r, view.Page{
		Template: "pages/customers/statement.html",
		Title:    "Monthly Statement",
		Data: statementPageData{
			Customer:  *customer,
			Statement: statement,
			Selected:  period,
			Years:     h.service.StatementYears(),
			Months:    months,
			PDFHref:   fmt.Sprintf("/customers/%s/statement.pdf?month=%d&year=%d", customer.ID, period.Month, period.Year),
		},
	})
}

// StatementDocument is the data of the printable statement.
type StatementDocument struct {
	Customer  Customer
	Statement Statement
}

// StatementPDF downloads the selected statement rendered by Gotenberg.
func (h *Handler) StatementPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.pdf == nil {
		h.renderer.Error(w, r, http.StatusServiceUnavailable, "PDF download is not configured")
		return
	}
	period, err := h.parsePeriod(r)
	if err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "load customer", err)
		return
	}
	statement, err := h.service.Statement(r.Context(), id, period.Month, period.Year)
	if err != nil {
		h.fail(w, r, "load statement", err)
		return
	}

	var doc bytes.Buffer
	if err := h.renderer.Engine.Execute(&doc, "documents/statement", StatementDocument{Customer: *customer, Statement: *statement}); err != nil {
		h.fail(w, r, "render statement document", err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), doc.String())
	if err != nil {
		h.logger.Error("render statement pdf", slog.String("customer_id", id), slog.Any("error", err))
		h.renderer.Error(w, r, http.StatusBadGateway, "The PDF service is unavailable")
		return
	}
	filename := fmt.Sprintf("statement-%s-%04d-%02d.pdf", customer.AccountNumber, period.Year, period.Month)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// APIList returns customers as JSON, filtered by ?kliqId= and ?phone=.
func (h *Handler) APIList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	customers, err := h.service.Search(r.Context(), SearchFilters{KliqID: query.Get("kliqId"), Phone: query.Get("phone")})
	if err != nil {
		h.logger.Error("api search customers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": customers, "count": len(customers)})
}

// APIGet returns one customer as JSON.
func (h *Handler) APIGet(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) parsePeriod(r *http.Request) (Period, error) {
	period := h.service.CurrentPeriod()
	query := r.URL.Query()
	if raw := query.Get("month"); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil || month < 1 || month > 12 {
			return Period{}, errors.New("month must be between 1 and 12")
		}
		period.Month = month
	}
	if raw := query.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 {
			return Period{}, errors.New("year is invalid")
		}
		period.Year = year
	}
	return period, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.renderer.Error(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, shared.ErrValidation):
		h.renderer.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		h.renderer.Error(w, r, http.StatusInternalServerError, "")
	}
}
