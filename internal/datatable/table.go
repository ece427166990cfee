package datatable

import (
	"html/template"

	"golang.org/x/text/language"
)

const (
	// DefaultEmptyMessage is shown when there are no rows.
	DefaultEmptyMessage = "No data found"
	// DefaultLoadingMessage is shown while rows are pending.
	DefaultLoadingMessage = "Loading..."
)

// Sort indicator glyphs.
const (
	GlyphNeutral    = "↕"
	GlyphAscending  = "↑"
	GlyphDescending = "↓"
)

// Option customises a Table.
type Option func(*options)

type options struct {
	lang language.Tag
	link func(SortState) string
}

// WithLanguage sets the collation language for string columns.
func WithLanguage(tag language.Tag) Option {
	return func(o *options) { o.lang = tag }
}

// WithLink sets how header links to a sort state are built.
func WithLink(fn func(SortState) string) Option {
	return func(o *options) { o.link = fn }
}

// Table owns the column layout and the sort state of one rendered table.
// It is not safe for concurrent use.
type Table[T any] struct {
	columns []Column[T]
	state   SortState
	opts    options
}

// New builds a Table for the given columns.
func New[T any](columns []Column[T], opts ...Option) (*Table[T], error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	cfg := options{lang: language.Und}
	for _, opt := range opts {
		opt(&cfg)
	}
	cols := make([]Column[T], len(columns))
	copy(cols, columns)
	return &Table[T]{columns: cols, opts: cfg}, nil
}

// Columns returns a copy of the column descriptors.
func (t *Table[T]) Columns() []Column[T] {
	cols := make([]Column[T], len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Sort returns the current sort state.
func (t *Table[T]) Sort() SortState {
	return t.state
}

// SetSort replaces the sort state, clearing it when it does not reference a
// sortable column.
func (t *Table[T]) SetSort(state SortState) {
	t.state = Normalize(state, t.columns)
}

// ClearSort returns the table to the original row order.
func (t *Table[T]) ClearSort() {
	t.state = SortState{}
}

// Activate applies a header activation and returns the new state.
func (t *Table[T]) Activate(key string) SortState {
	t.state = NextSortState(t.state, t.columns, key)
	return t.state
}

// Rows returns data in display order.
func (t *Table[T]) Rows(data []T) []T {
	return sortRows(data, t.columns, t.state, t.opts.lang)
}

// RenderOptions carries the per-render inputs that do not belong to the layout.
type RenderOptions struct {
	Loading        bool
	EmptyMessage   string
	LoadingMessage string
}

// Status classifies what the table body shows.
type Status string

const (
	StatusLoading Status = "loading"
	StatusEmpty   Status = "empty"
	StatusRows    Status = "rows"
)

// Header is the rendered form of one column header.
type Header struct {
	Label     string
	Key       string
	Sortable  bool
	Direction Direction
	Glyph     string
	Href      string
}

// AriaSort returns the aria-sort attribute value for the header.
func (h Header) AriaSort() string {
	switch h.Direction {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "none"
	}
}

// Row holds the rendered cells of one record.
type Row struct {
	Cells []template.HTML
}

// View is the template-ready rendering of a table.
type View struct {
	Headers []Header
	Rows    []Row
	Status  Status
	Message string
	ColSpan int
	Sort    SortState
}

// Loading reports whether the view shows the loading indicator.
func (v View) Loading() bool { return v.Status == StatusLoading }

// Render produces the View for data. A nil slice means not yet loaded and is
// rendered like an empty one.
func (t *Table[T]) Render(data []T, ro RenderOptions) View {
	view := View{
		Headers: t.headers(),
		ColSpan: len(t.columns),
		Sort:    t.state,
	}
	switch {
	case ro.Loading:
		view.Status = StatusLoading
		view.Message = ro.LoadingMessage
		if view.Message == "" {
			view.Message = DefaultLoadingMessage
		}
	case len(data) == 0:
		view.Status = StatusEmpty
		view.Message = ro.EmptyMessage
		if view.Message == "" {
			view.Message = DefaultEmptyMessage
		}
	default:
		view.Status = StatusRows
		rows := t.Rows(data)
		view.Rows = make([]Row, 0, len(rows))
		for _, record := range rows {
			view.Rows = append(view.Rows, t.row(record))
		}
	}
	return view
}

func (t *Table[T]) headers() []Header {
	headers := make([]Header, 0, len(t.columns))
	for _, col := range t.columns {
		h := Header{Label: col.Header, Key: col.Key, Sortable: col.Sortable}
		if col.Sortable {
			h.Glyph = GlyphNeutral
			if t.state.Active() && t.state.Key == col.Key {
				h.Direction = t.state.Direction
				if h.Direction == Ascending {
					h.Glyph = GlyphAscending
				} else {
					h.Glyph = GlyphDescending
				}
			}
			if t.opts.link != nil {
				h.Href = t.opts.link(NextSortState(t.state, t.columns, col.Key))
			}
		}
		headers = append(headers, h)
	}
	return headers
}

func (t *Table[T]) row(record T) Row {
	cells := make([]template.HTML, len(t.columns))
	for i, col := range t.columns {
		if col.Cell != nil {
			cells[i] = col.Cell(record)
			continue
		}
		cells[i] = template.HTML(template.HTMLEscapeString(stringify(col.value(record))))
	}
	return Row{Cells: cells}
}
