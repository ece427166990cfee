package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kliq/backoffice/internal/platform/cache"
	"github.com/kliq/backoffice/internal/shared"
)

// FieldErrors reports rejected input per form field.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match shared.ErrValidation.
func (e FieldErrors) Unwrap() error { return shared.ErrValidation }

// Service implements the catalogue use-cases. Listing reads go through a
// versioned Redis cache that every mutation invalidates.
type Service struct {
	repo      Repository
	cache     *cache.Versioned
	logger    *slog.Logger
	validator *validator.Validate
	now       func() time.Time
	newID     func(prefix string) string
}

// NewService constructs a Service. A nil cache helper disables caching.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.NewVersioned(nil, "products", 0)
	}
	return &Service{
		repo:      repo,
		cache:     c,
		logger:    logger,
		validator: validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func(prefix string) string { return prefix + "-" + uuid.NewString() },
	}
}

// ListAll returns grouped products followed by standalone single products.
func (s *Service) ListAll(ctx context.Context) ([]Product, error) {
	return cache.FetchJSON(ctx, s.cache, func(ctx context.Context) ([]Product, error) {
		catalog, err := s.repo.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return listing(catalog), nil
	}, "listing")
}

// ListGrouped returns every grouped product with its theme and members.
func (s *Service) ListGrouped(ctx context.Context) ([]GroupedProduct, error) {
	catalog, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return assemble(catalog), nil
}

// ListSingle returns every single product, grouped or not.
func (s *Service) ListSingle(ctx context.Context) ([]SingleProduct, error) {
	catalog, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Singles, nil
}

// ListThemes returns every theme.
func (s *Service) ListThemes(ctx context.Context) ([]Theme, error) {
	return cache.FetchJSON(ctx, s.cache, func(ctx context.Context) ([]Theme, error) {
		catalog, err := s.repo.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return catalog.Themes, nil
	}, "themes")
}

// GetTheme fetches one theme.
func (s *Service) GetTheme(ctx context.Context, id string) (*Theme, error) {
	catalog, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range catalog.Themes {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, shared.ErrNotFound
}

// CreateGrouped creates a grouped product together with its theme.
func (s *Service) CreateGrouped(ctx context.Context, in GroupedInput) (*GroupedProduct, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Theme.Name = strings.TrimSpace(in.Theme.Name)
	if err := s.validate(in); err != nil {
		return nil, err
	}
	colors, err := NormalizeColors(in.Theme.Colors)
	if err != nil {
		return nil, err
	}

	now := s.now()
	theme := Theme{
		ID:        s.newID("theme"),
		Name:      in.Theme.Name,
		Colors:    colors,
		Banner:    in.Theme.Banner,
		Partials:  s.assignPartialIDs(in.Theme.Partials),
		CreatedAt: now,
		UpdatedAt: now,
	}
	grouped := GroupedProduct{
		ID:          s.newID("grouped"),
		Name:        in.Name,
		Description: in.Description,
		IsActive:    true,
		Logo:        in.Logo,
		ThemeID:     theme.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertTheme(ctx, theme); err != nil {
		return nil, fmt.Errorf("products: insert theme: %w", err)
	}
	if err := s.repo.InsertGrouped(ctx, grouped); err != nil {
		if derr := s.repo.DeleteTheme(ctx, theme.ID); derr != nil {
			s.logger.Error("remove theme of failed grouped product", slog.String("theme_id", theme.ID), slog.Any("error", derr))
		}
		return nil, fmt.Errorf("products: insert grouped product: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info("grouped product created", slog.String("product_id", grouped.ID), slog.String("theme_id", theme.ID))

	grouped.Theme = theme
	grouped.SingleProducts = []SingleProduct{}
	return &grouped, nil
}

// CreateSingle creates a single product, attached to its group when one is
// named.
func (s *Service) CreateSingle(ctx context.Context, in SingleInput) (*SingleProduct, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.GroupedProductID = strings.TrimSpace(in.GroupedProductID)
	if err := s.validate(in); err != nil {
		return nil, err
	}
	now := s.now()
	single := SingleProduct{
		ID:               s.newID("single"),
		Name:             in.Name,
		Description:      in.Description,
		Price:            in.Price,
		IsActive:         true,
		Logo:             in.Logo,
		GroupedProductID: in.GroupedProductID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.InsertSingle(ctx, single); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, FieldErrors{"GroupedProductID": "Unknown grouped product"}
		}
		return nil, fmt.Errorf("products: insert single product: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info("single product created", slog.String("product_id", single.ID))
	return &single, nil
}

// UpdateTheme applies patch to a theme. Grouped products using the theme
// see the change on their next read.
func (s *Service) UpdateTheme(ctx context.Context, id string, patch ThemePatch) (*Theme, error) {
	theme, err := s.GetTheme(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, FieldErrors{"Name": "Name is required"}
		}
		theme.Name = name
	}
	if patch.Colors != nil {
		colors, err := NormalizeColors(patch.Colors)
		if err != nil {
			return nil, err
		}
		theme.Colors = colors
	}
	if patch.Banner != nil {
		banner := *patch.Banner
		theme.Banner = &banner
	}
	if patch.Partials != nil {
		theme.Partials = s.assignPartialIDs(patch.Partials)
	}
	theme.UpdatedAt = s.now()
	if err := s.repo.ReplaceTheme(ctx, *theme); err != nil {
		return nil, fmt.Errorf("products: update theme: %w", err)
	}
	s.invalidate(ctx)
	return theme, nil
}

// Delete removes a grouped or single product.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id, s.now()); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("product deleted", slog.String("product_id", id))
	return nil
}

// ToggleStatus flips a product between active and inactive.
func (s *Service) ToggleStatus(ctx context.Context, id string) (bool, error) {
	active, err := s.repo.ToggleStatus(ctx, id, s.now())
	if err != nil {
		return false, err
	}
	s.invalidate(ctx)
	return active, nil
}

func (s *Service) validate(in any) error {
	err := s.validator.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if ns := fe.StructNamespace(); strings.Count(ns, ".") > 1 {
			field = ns[strings.Index(ns, ".")+1:]
		}
		switch fe.Tag() {
		case "required":
			out[field] = fe.Field() + " is required"
		case "max":
			out[field] = fe.Field() + " is too long"
		case "gt":
			out[field] = fe.Field() + " must be greater than zero"
		default:
			out[field] = fe.Error()
		}
	}
	return out
}

func (s *Service) assignPartialIDs(partials []PartialImage) []PartialImage {
	out := make([]PartialImage, len(partials))
	for i, p := range partials {
		p.ID = s.newID("partial")
		out[i] = p
	}
	return out
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("invalidate product cache", slog.Any("error", err))
	}
}

// assemble resolves themes and members of every grouped product.
func assemble(c Catalog) []GroupedProduct {
	themes := make(map[string]Theme, len(c.Themes))
	for _, t := range c.Themes {
		themes[t.ID] = t
	}
	out := make([]GroupedProduct, 0, len(c.Grouped))
	for _, g := range c.Grouped {
		g.Theme = themes[g.ThemeID]
		g.SingleProducts = []SingleProduct{}
		for _, single := range c.Singles {
			if single.GroupedProductID == g.ID {
				g.SingleProducts = append(g.SingleProducts, single)
			}
		}
		out = append(out, g)
	}
	return out
}

func listing(c Catalog) []Product {
	out := make([]Product, 0, len(c.Grouped)+len(c.Singles))
	for _, g := range assemble(c) {
		grouped := g
		out = append(out, Product{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			Type:        TypeGrouped,
			IsActive:    g.IsActive,
			Grouped:     &grouped,
			CreatedAt:   g.CreatedAt,
			UpdatedAt:   g.UpdatedAt,
		})
	}
	for _, single := range c.Singles {
		if single.GroupedProductID != "" {
			continue
		}
		standalone := single
		out = append(out, Product{
			ID:          single.ID,
			Name:        single.Name,
			Description: single.Description,
			Type:        TypeSingle,
			IsActive:    single.IsActive,
			Single:      &standalone,
			CreatedAt:   single.CreatedAt,
			UpdatedAt:   single.UpdatedAt,
		})
	}
	return out
}
