package pinorders

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kliq/backoffice/internal/datatable"
	"github.com/kliq/backoffice/internal/shared"
	"github.com/kliq/backoffice/internal/view"
)

// Handler serves the digital-pin order pages.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	renderer     *view.Renderer
	fetchTimeout time.Duration
}

// NewHandler constructs a Handler. Pages whose data takes longer than
// fetchTimeout render a loading table that refreshes itself.
func NewHandler(logger *slog.Logger, service *Service, renderer *view.Renderer, fetchTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, renderer: renderer, fetchTimeout: fetchTimeout}
}

type listPageData struct {
	Filter     Filter
	Form       url.Values
	Errors     map[string]string
	Statuses   []string
	Table      datatable.View
	Matched    int
	Total      int
	Filtered   bool
	ExportHref string
}

// Columns is the order table layout.
func Columns() []datatable.Column[Order] {
	return []datatable.Column[Order]{
		{Header: "Order ID", Key: "id", Sortable: true},
		{Header: "Customer", Key: "customerId", Sortable: true},
		{Header: "Product", Key: "product", Sortable: true},
		{Header: "PIN Code", Key: "pinCode", Sortable: true, Cell: func(o Order) template.HTML {
			return template.HTML(`<code>` + template.HTMLEscapeString(o.PinCode) + `</code>`)
		}},
		{Header: "Amount", Key: "amount", Sortable: true, SortType: datatable.SortNumber, Cell: func(o Order) template.HTML {
			return template.HTML(template.HTMLEscapeString(view.FormatMoney(o.Amount)))
		}},
		{Header: "Status", Key: "status", Sortable: true, Cell: StatusBadge},
		{Header: "Created", Key: "createdAt", Sortable: true, SortType: datatable.SortDate, Cell: func(o Order) template.HTML {
			return template.HTML(template.HTMLEscapeString(o.CreatedAt.UTC().Format("2006-01-02 15:04")))
		}},
	}
}

// StatusBadge renders the order status as a coloured label.
func StatusBadge(o Order) template.HTML {
	status := template.HTMLEscapeString(o.Status)
	return template.HTML(`<span class="badge badge-` + status + `">` + status + `</span>`)
}

// List renders the filterable order table.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, errs := ParseFilter(r.URL.Query())
	table, err := datatable.New(Columns(), datatable.WithLink(datatable.QueryLink(r.URL)))
	if err != nil {
		h.logger.Error("build order table", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	table.SetSort(datatable.ParseSortState(r.URL.Query()))

	result, pending, err := shared.FetchWithin(r.Context(), h.fetchTimeout, func(ctx context.Context) (FilterResult, error) {
		return h.service.Filter(ctx, filter)
	})
	var notice *shared.FlashMessage
	if err != nil {
		h.logger.Error("filter orders", slog.Any("error", err))
		result = FilterResult{}
		notice = &shared.FlashMessage{Kind: shared.FlashError, Message: "Orders could not be loaded"}
	}

	exportQuery := filter.Values()
	if s := table.Sort(); s.Active() {
		exportQuery.Set(datatable.ParamSort, s.Key)
		exportQuery.Set(datatable.ParamDirection, string(s.Direction))
	}
	exportHref := "/digital-pin-orders/export.csv"
	if encoded := exportQuery.Encode(); encoded != "" {
		exportHref += "?" + encoded
	}

	page := view.Page{
		Template: "pages/orders/list.html",
		Title:    "Digital Pin Orders",
		Data: listPageData{
			Filter:     filter,
			Form:       r.URL.Query(),
			Errors:     errs,
			Statuses:   Statuses,
			Table:      table.Render(result.Orders, datatable.RenderOptions{Loading: pending, EmptyMessage: "No orders match the current filters"}),
			Matched:    result.Matched(),
			Total:      result.Total,
			Filtered:   filter.Active(),
			ExportHref: exportHref,
		},
		Notice: notice,
	}
	if pending {
		page.Refresh = h.fetchTimeout
	}
	h.renderer.Render(w, r, page)
}

// ExportCSV downloads the filtered orders in the table's current sort order.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, _ := ParseFilter(r.URL.Query())
	table, err := datatable.New(Columns())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	table.SetSort(datatable.ParseSortState(r.URL.Query()))

	result, err := h.service.Filter(r.Context(), filter)
	if err != nil {
		h.logger.Error("export orders", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table.Rows(result.Orders)); err != nil {
		h.logger.Error("write orders csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="digital-pin-orders.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
