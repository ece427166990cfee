package pinorders

import (
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DateLayout is the format of date filter inputs.
const DateLayout = "2006-01-02"

// Filter holds the order list criteria. Every set field must match.
type Filter struct {
	OrderID    string
	CustomerID string
	Product    string
	Status     string
	AmountMin  *float64
	AmountMax  *float64
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Active reports whether any criterion is set.
func (f Filter) Active() bool {
	return f.OrderID != "" || f.CustomerID != "" || f.Product != "" ||
		(f.Status != "" && f.Status != StatusAll) ||
		f.AmountMin != nil || f.AmountMax != nil || f.DateFrom != nil || f.DateTo != nil
}

// Matches reports whether o satisfies the filter. Order id and product are
// compared case-insensitively; the customer id is compared as typed. DateTo
// includes the whole day it names.
func (f Filter) Matches(o Order) bool {
	if f.OrderID != "" && !strings.Contains(strings.ToLower(o.ID), strings.ToLower(f.OrderID)) {
		return false
	}
	if f.CustomerID != "" && !strings.Contains(o.CustomerID, f.CustomerID) {
		return false
	}
	if f.Product != "" && !strings.Contains(strings.ToLower(o.Product), strings.ToLower(f.Product)) {
		return false
	}
	if f.Status != "" && f.Status != StatusAll && o.Status != f.Status {
		return false
	}
	if f.AmountMin != nil && o.Amount < *f.AmountMin {
		return false
	}
	if f.AmountMax != nil && o.Amount > *f.AmountMax {
		return false
	}
	if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.CreatedAt.After(endOfDay(*f.DateTo)) {
		return false
	}
	return true
}

// Apply returns the orders matching f, keeping their order.
func (f Filter) Apply(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// Values encodes f back into query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("orderId", f.OrderID)
	set("customerId", f.CustomerID)
	set("product", f.Product)
	if f.Status != StatusAll {
		set("status", f.Status)
	}
	if f.AmountMin != nil {
		set("amountMin", cast.ToString(*f.AmountMin))
	}
	if f.AmountMax != nil {
		set("amountMax", cast.ToString(*f.AmountMax))
	}
	if f.DateFrom != nil {
		set("dateFrom", f.DateFrom.Format(DateLayout))
	}
	if f.DateTo != nil {
		set("dateTo", f.DateTo.Format(DateLayout))
	}
	return v
}

// ParseFilter reads a Filter from query parameters. Malformed values are
// dropped from the filter and reported per field.
func ParseFilter(values url.Values) (Filter, map[string]string) {
	errs := make(map[string]string)
	f := Filter{
		OrderID:    strings.TrimSpace(values.Get("orderId")),
		CustomerID: strings.TrimSpace(values.Get("customerId")),
		Product:    strings.TrimSpace(values.Get("product")),
		Status:     strings.ToLower(strings.TrimSpace(values.Get("status"))),
	}
	switch f.Status {
	case "", StatusAll, StatusDelivered, StatusPending, StatusFailed:
	default:
		errs["status"] = "Unknown status"
		f.Status = ""
	}
	if f.Status == "" {
		f.Status = StatusAll
	}

	f.AmountMin = parseAmount(values.Get("amountMin"), "amountMin", errs)
	f.AmountMax = parseAmount(values.Get("amountMax"), "amountMax", errs)
	f.DateFrom = parseDate(values.Get("dateFrom"), "dateFrom", errs)
	f.DateTo = parseDate(values.Get("dateTo"), "dateTo", errs)
	return f, errs
}

func parseAmount(raw, field string, errs map[string]string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || v < 0 {
		errs[field] = "Enter a non-negative amount"
		return nil
	}
	return &v
}

func parseDate(raw, field string, errs map[string]string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		errs[field] = "Use the YYYY-MM-DD format"
		return nil
	}
	return &t
}

func endOfDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), day.Location())
}
