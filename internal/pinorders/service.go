package pinorders

import (
	"context"
	"strings"
)

// Service exposes order use-cases.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListAll returns every order.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.repo.List(ctx)
}

// ListByCustomer returns the orders of one customer.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return []Order{}, nil
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

// Filter returns the orders matching f together with the unfiltered count.
func (s *Service) Filter(ctx context.Context, f Filter) (FilterResult, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return FilterResult{}, err
	}
	return FilterResult{Orders: f.Apply(all), Total: len(all)}, nil
}
