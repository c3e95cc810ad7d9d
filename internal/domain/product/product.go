package product

import (
	"context"

	"github.com/go-faster/errors"
)

// Sentinel errors for catalogue operations.
var (
	ErrNotFound      = errors.New("product not found")
	ErrEmptyName     = errors.New("name required")
	ErrNegativePrice = errors.New("price must not be negative")
)

// Product represents a catalogue item available for purchase.
// Price is expressed in minor currency units.
type Product struct {
	ID          int64
	Name        string
	Price       int64
	ImageURL    string
	Description string
}

// Repository defines persistence operations for the product catalogue.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	Create(ctx context.Context, p *Product) error
}

// Service encapsulates catalogue business logic.
type Service struct {
	products Repository
}

// NewService creates a catalogue Service backed by the given repository.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// List returns every product in the catalogue.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// Add validates and persists a new product. Names are not required to be
// unique.
func (s *Service) Add(ctx context.Context, p Product) (*Product, error) {
	if p.Name == "" {
		return nil, ErrEmptyName
	}
	if p.Price < 0 {
		return nil, ErrNegativePrice
	}

	if err := s.products.Create(ctx, &p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return &p, nil
}
