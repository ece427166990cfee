// Package customers serves the customer directory and monthly statements.
package customers

import "time"

// Status values of a customer account.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Customer is a Kliq account holder.
type Customer struct {
	ID            string `json:"id" yaml:"id"`
	AccountNumber string `json:"accountNumber" yaml:"accountNumber"`
	Name          string `json:"name" yaml:"name"`
	Email         string `json:"email" yaml:"email"`
	Phone         string `json:"phone" yaml:"phone"`
	Status        string `json:"status" yaml:"status"`
}

// SearchFilters narrows the customer list. Empty fields match everything.
type SearchFilters struct {
	KliqID string
	Phone  string
}

// IsZero reports whether no filter is set.
func (f SearchFilters) IsZero() bool {
	return f.KliqID == "" && f.Phone == ""
}

// StatementLine is one transaction of a monthly statement.
type StatementLine struct {
	Date        time.Time `json:"date" yaml:"date"`
	Description string    `json:"description" yaml:"description"`
	Amount      float64   `json:"amount" yaml:"amount"`
}

// Statement is a generated monthly statement for one customer.
type Statement struct {
	ID          string          `json:"id" yaml:"id"`
	CustomerID  string          `json:"customerId" yaml:"customerId"`
	Month       int             `json:"month" yaml:"month"`
	Year        int             `json:"year" yaml:"year"`
	Lines       []StatementLine `json:"lines" yaml:"lines"`
	GeneratedAt time.Time       `json:"generatedAt" yaml:"generatedAt"`
}

// TotalAmount sums the statement lines.
func (s Statement) TotalAmount() float64 {
	var total float64
	for _, l := range s.Lines {
		total += l.Amount
	}
	return total
}

// TransactionCount is the number of statement lines.
func (s Statement) TransactionCount() int {
	return len(s.Lines)
}

// Period is a month/year pair.
type Period struct {
	Month int
	Year  int
}
