package products

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kliq/backoffice/internal/shared"
)

// Catalog is a consistent copy of every stored record.
type Catalog struct {
	Themes  []Theme          `yaml:"themes"`
	Grouped []GroupedProduct `yaml:"grouped"`
	Singles []SingleProduct  `yaml:"singles"`
}

// Repository stores catalogue records.
type Repository interface {
	Snapshot(ctx context.Context) (Catalog, error)
	InsertTheme(ctx context.Context, theme Theme) error
	ReplaceTheme(ctx context.Context, theme Theme) error
	DeleteTheme(ctx context.Context, id string) error
	InsertGrouped(ctx context.Context, grouped GroupedProduct) error
	InsertSingle(ctx context.Context, single SingleProduct) error
	// Delete removes a grouped product, or else a single product. Singles of
	// a deleted group become standalone.
	Delete(ctx context.Context, id string, at time.Time) error
	// ToggleStatus flips the active flag of a grouped product, or else a
	// single product, and returns the new value.
	ToggleStatus(ctx context.Context, id string, at time.Time) (bool, error)
}

//go:embed fixtures/catalog.yaml
var fixtureYAML []byte

// LoadFixtures decodes the bundled demo catalogue.
func LoadFixtures() (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(fixtureYAML, &c); err != nil {
		return Catalog{}, fmt.Errorf("products: decode fixtures: %w", err)
	}
	for i := range c.Themes {
		colors, err := NormalizeColors(c.Themes[i].Colors)
		if err != nil {
			return Catalog{}, fmt.Errorf("products: fixture theme %s: %w", c.Themes[i].ID, err)
		}
		c.Themes[i].Colors = colors
	}
	return c, nil
}

// MemoryRepository keeps the catalogue in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	catalog Catalog
}

// NewMemoryRepository returns a repository holding a copy of c.
func NewMemoryRepository(c Catalog) *MemoryRepository {
	return &MemoryRepository{catalog: cloneCatalog(c)}
}

// NewFixtureRepository returns a memory repository seeded with the demo data.
func NewFixtureRepository() (*MemoryRepository, error) {
	c, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	return NewMemoryRepository(c), nil
}

// Snapshot returns a deep copy of the catalogue.
func (r *MemoryRepository) Snapshot(_ context.Context) (Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneCatalog(r.catalog), nil
}

// InsertTheme stores a new theme.
func (r *MemoryRepository) InsertTheme(_ context.Context, theme Theme) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.catalog.Themes, func(t Theme) bool { return t.ID == theme.ID }) {
		return shared.ErrAlreadyExists
	}
	r.catalog.Themes = append(r.catalog.Themes, cloneTheme(theme))
	return nil
}

// ReplaceTheme overwrites the theme with the same id.
func (r *MemoryRepository) ReplaceTheme(_ context.Context, theme Theme) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.catalog.Themes, func(t Theme) bool { return t.ID == theme.ID })
	if i < 0 {
		return shared.ErrNotFound
	}
	r.catalog.Themes[i] = cloneTheme(theme)
	return nil
}

// DeleteTheme removes a theme. Missing themes are ignored.
func (r *MemoryRepository) DeleteTheme(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog.Themes = slices.DeleteFunc(r.catalog.Themes, func(t Theme) bool { return t.ID == id })
	return nil
}

// InsertGrouped stores a new grouped product.
func (r *MemoryRepository) InsertGrouped(_ context.Context, grouped GroupedProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasProduct(grouped.ID) {
		return shared.ErrAlreadyExists
	}
	grouped.Theme = Theme{}
	grouped.SingleProducts = nil
	r.catalog.Grouped = append(r.catalog.Grouped, grouped)
	return nil
}

// InsertSingle stores a new single product.
func (r *MemoryRepository) InsertSingle(_ context.Context, single SingleProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasProduct(single.ID) {
		return shared.ErrAlreadyExists
	}
	if single.GroupedProductID != "" && !slices.ContainsFunc(r.catalog.Grouped, func(g GroupedProduct) bool { return g.ID == single.GroupedProductID }) {
		return fmt.Errorf("grouped product %s: %w", single.GroupedProductID, shared.ErrNotFound)
	}
	r.catalog.Singles = append(r.catalog.Singles, single)
	return nil
}

// Delete removes a grouped product, or else a single product.
func (r *MemoryRepository) Delete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.IndexFunc(r.catalog.Grouped, func(g GroupedProduct) bool { return g.ID == id }); i >= 0 {
		r.catalog.Grouped = slices.Delete(r.catalog.Grouped, i, i+1)
		for j := range r.catalog.Singles {
			if r.catalog.Singles[j].GroupedProductID == id {
				r.catalog.Singles[j].GroupedProductID = ""
				r.catalog.Singles[j].UpdatedAt = at
			}
		}
		return nil
	}
	if i := slices.IndexFunc(r.catalog.Singles, func(s SingleProduct) bool { return s.ID == id }); i >= 0 {
		r.catalog.Singles = slices.Delete(r.catalog.Singles, i, i+1)
		return nil
	}
	return shared.ErrNotFound
}

// ToggleStatus flips the active flag of a grouped product, or else a single
// product.
func (r *MemoryRepository) ToggleStatus(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.catalog.Grouped {
		if g := &r.catalog.Grouped[i]; g.ID == id {
			g.IsActive = !g.IsActive
			g.UpdatedAt = at
			return g.IsActive, nil
		}
	}
	for i := range r.catalog.Singles {
		if s := &r.catalog.Singles[i]; s.ID == id {
			s.IsActive = !s.IsActive
			s.UpdatedAt = at
			return s.IsActive, nil
		}
	}
	return false, shared.ErrNotFound
}

func (r *MemoryRepository) hasProduct(id string) bool {
	return slices.ContainsFunc(r.catalog.Grouped, func(g GroupedProduct) bool { return g.ID == id }) ||
		slices.ContainsFunc(r.catalog.Singles, func(s SingleProduct) bool { return s.ID == id })
}

func cloneCatalog(c Catalog) Catalog {
	out := Catalog{
		Themes:  make([]Theme, len(c.Themes)),
		Grouped: slices.Clone(c.Grouped),
		Singles: slices.Clone(c.Singles),
	}
	for i, t := range c.Themes {
		out.Themes[i] = cloneTheme(t)
	}
	return out
}

func cloneTheme(t Theme) Theme {
	t.Colors = slices.Clone(t.Colors)
	t.Partials = slices.Clone(t.Partials)
	if t.Banner != nil {
		banner := *t.Banner
		t.Banner = &banner
	}
	return t
}

var _ Repository = (*MemoryRepository)(nil)
