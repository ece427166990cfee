package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kliq/backoffice/internal/shared"
)

// statementYearSpan is how many years before and after the current one the
// statement picker offers.
const statementYearSpan = 3

// Service exposes customer use-cases.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns every customer.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.repo.Search(ctx, SearchFilters{})
}

// Search returns customers whose account number and phone contain the given
// fragments. Blank fragments are ignored.
func (s *Service) Search(ctx context.Context, filters SearchFilters) ([]Customer, error) {
	filters.KliqID = strings.TrimSpace(filters.KliqID)
	filters.Phone = strings.TrimSpace(filters.Phone)
	return s.repo.Search(ctx, filters)
}

// Get fetches a customer.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Statement returns the statement of customerID for month/year. A customer
// without a statement for that period yields shared.ErrNotFound.
func (s *Service) Statement(ctx context.Context, customerID string, month, year int) (*Statement, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", shared.ErrValidation)
	}
	if year < 1 {
		return nil, fmt.Errorf("%w: year must be positive", shared.ErrValidation)
	}
	if _, err := s.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.Statement(ctx, customerID, Period{Month: month, Year: year})
}

// Periods lists the months for which customerID has a statement.
func (s *Service) Periods(ctx context.Context, customerID string) ([]Period, error) {
	return s.repo.Periods(ctx, customerID)
}

// CurrentPeriod is the month the statement picker starts on.
func (s *Service) CurrentPeriod() Period {
	now := s.now()
	return Period{Month: int(now.Month()), Year: now.Year()}
}

// StatementYears lists the selectable years around the current one.
func (s *Service) StatementYears() []int {
	current := s.now().Year()
	years := make([]int, 0, 2*statementYearSpan+1)
	for y := current - statementYearSpan; y <= current+statementYearSpan; y++ {
		years = append(years, y)
	}
	return years
}
