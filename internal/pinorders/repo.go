package pinorders

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/kliq/backoffice/internal/platform/db"
)

// Repository reads digital-pin orders.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
}

//go:embed fixtures/orders.yaml
var fixtureYAML []byte

// LoadFixtures decodes the bundled demo orders.
func LoadFixtures() ([]Order, error) {
	var f struct {
		Orders []Order `yaml:"orders"`
	}
	if err := yaml.Unmarshal(fixtureYAML, &f); err != nil {
		return nil, fmt.Errorf("pinorders: decode fixtures: %w", err)
	}
	return f.Orders, nil
}

// MemoryRepository serves orders from process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders []Order
}

// NewMemoryRepository returns a repository over orders.
func NewMemoryRepository(orders []Order) *MemoryRepository {
	return &MemoryRepository{orders: slices.Clone(orders)}
}

// NewFixtureRepository returns a memory repository seeded with the demo data.
func NewFixtureRepository() (*MemoryRepository, error) {
	orders, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	return NewMemoryRepository(orders), nil
}

// List returns every order in insertion order.
func (r *MemoryRepository) List(_ context.Context) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.orders), nil
}

// ListByCustomer returns the orders placed by customerID.
func (r *MemoryRepository) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

const orderColumns = `id, customer_id, pin_code, product, amount, status, created_at`

// List returns every order, oldest first.
func (r *PGRepository) List(ctx context.Context) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM pin_orders ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("pinorders: list: %w", err)
	}
	return collectOrders(rows)
}

// ListByCustomer returns the orders placed by customerID, oldest first.
func (r *PGRepository) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM pin_orders WHERE customer_id = $1 ORDER BY created_at, id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("pinorders: list by customer: %w", err)
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var o Order
		err := row.Scan(&o.ID, &o.CustomerID, &o.PinCode, &o.Product, &o.Amount, &o.Status, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("pinorders: scan orders: %w", err)
	}
	return orders, nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PGRepository)(nil)
)
