// Package pinorders lists and filters digital-pin orders.
package pinorders

import "time"

// Order status values.
const (
	StatusDelivered = "delivered"
	StatusPending   = "pending"
	StatusFailed    = "failed"
	// StatusAll disables the status filter.
	StatusAll = "all"
)

// Statuses lists the concrete order statuses.
var Statuses = []string{StatusDelivered, StatusPending, StatusFailed}

// Order is a purchase of a digital pin.
type Order struct {
	ID         string    `json:"id" yaml:"id"`
	CustomerID string    `json:"customerId" yaml:"customerId"`
	PinCode    string    `json:"pinCode" yaml:"pinCode"`
	Product    string    `json:"product" yaml:"product"`
	Amount     float64   `json:"amount" yaml:"amount"`
	Status     string    `json:"status" yaml:"status"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

// FilterResult is a filtered page of orders and the size of the unfiltered set.
type FilterResult struct {
	Orders []Order
	Total  int
}

// Matched is the number of orders left after filtering.
func (r FilterResult) Matched() int {
	return len(r.Orders)
}
