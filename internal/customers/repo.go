package customers

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/kliq/backoffice/internal/platform/db"
	"github.com/kliq/backoffice/internal/shared"
)

// Repository reads customers and their statements.
type Repository interface {
	Search(ctx context.Context, filters SearchFilters) ([]Customer, error)
	Get(ctx context.Context, id string) (*Customer, error)
	Statement(ctx context.Context, customerID string, period Period) (*Statement, error)
	Periods(ctx context.Context, customerID string) ([]Period, error)
}

//go:embed fixtures/customers.yaml
var fixtureYAML []byte

type fixtureFile struct {
	Customers  []Customer  `yaml:"customers"`
	Statements []Statement `yaml:"statements"`
}

// LoadFixtures decodes the bundled demo customers and statements.
func LoadFixtures() ([]Customer, []Statement, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(fixtureYAML, &f); err != nil {
		return nil, nil, fmt.Errorf("customers: decode fixtures: %w", err)
	}
	return f.Customers, f.Statements, nil
}

// MemoryRepository serves customers from process memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	customers  []Customer
	statements []Statement
}

// NewMemoryRepository returns a repository over the given records.
func NewMemoryRepository(customers []Customer, statements []Statement) *MemoryRepository {
	return &MemoryRepository{
		customers:  slices.Clone(customers),
		statements: slices.Clone(statements),
	}
}

// NewFixtureRepository returns a memory repository seeded with the demo data.
func NewFixtureRepository() (*MemoryRepository, error) {
	customers, statements, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	return NewMemoryRepository(customers, statements), nil
}

// Search returns customers matching every non-empty filter, in insertion order.
func (r *MemoryRepository) Search(_ context.Context, filters SearchFilters) ([]Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		if filters.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get fetches a customer by id.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Statement fetches the statement of a customer for one month.
func (r *MemoryRepository) Statement(_ context.Context, customerID string, period Period) (*Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.statements {
		if s.CustomerID == customerID && s.Month == period.Month && s.Year == period.Year {
			found := s
			found.Lines = slices.Clone(s.Lines)
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Periods lists the months with a generated statement, newest first.
func (r *MemoryRepository) Periods(_ context.Context, customerID string) ([]Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Period
	for _, s := range r.statements {
		if s.CustomerID == customerID {
			out = append(out, Period{Month: s.Month, Year: s.Year})
		}
	}
	sortPeriods(out)
	return out, nil
}

// Matches reports whether c satisfies the filters. Both comparisons are
// case-insensitive substring checks.
func (f SearchFilters) Matches(c Customer) bool {
	if f.KliqID != "" && !containsFold(c.AccountNumber, f.KliqID) {
		return false
	}
	if f.Phone != "" && !containsFold(c.Phone, f.Phone) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortPeriods(periods []Period) {
	slices.SortFunc(periods, func(a, b Period) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

const customerColumns = `id, account_number, name, email, phone, status`

// Search returns customers matching every non-empty filter.
func (r *PGRepository) Search(ctx context.Context, filters SearchFilters) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE ($1 = '' OR strpos(lower(account_number), lower($1)) > 0)
  AND ($2 = '' OR strpos(lower(phone), lower($2)) > 0)
ORDER BY account_number`, filters.KliqID, filters.Phone)
	if err != nil {
		return nil, fmt.Errorf("customers: search: %w", err)
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customers: search: %w", err)
	}
	return out, nil
}

// Get fetches a customer by id.
func (r *PGRepository) Get(ctx context.Context, id string) (*Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

// Statement fetches a statement header and its lines.
func (r *PGRepository) Statement(ctx context.Context, customerID string, period Period) (*Statement, error) {
	var s Statement
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, month, year, generated_at
FROM customer_statements WHERE customer_id = $1 AND month = $2 AND year = $3`,
		customerID, period.Month, period.Year).Scan(&s.ID, &s.CustomerID, &s.Month, &s.Year, &s.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("customers: statement: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT line_date, description, amount
FROM customer_statement_lines WHERE statement_id = $1 ORDER BY position`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("customers: statement lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line StatementLine
		if err := rows.Scan(&line.Date, &line.Description, &line.Amount); err != nil {
			return nil, fmt.Errorf("customers: scan statement line: %w", err)
		}
		s.Lines = append(s.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customers: statement lines: %w", err)
	}
	return &s, nil
}

// Periods lists the months with a generated statement, newest first.
func (r *PGRepository) Periods(ctx context.Context, customerID string) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT month, year FROM customer_statements
WHERE customer_id = $1 ORDER BY year DESC, month DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("customers: periods: %w", err)
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.Month, &p.Year); err != nil {
			return nil, fmt.Errorf("customers: scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.AccountNumber, &c.Name, &c.Email, &c.Phone, &c.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("customers: scan customer: %w", err)
	}
	return &c, nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PGRepository)(nil)
)
