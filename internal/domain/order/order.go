package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/agrofix/orders-api/internal/domain/product"
)

// Status is the fulfillment state of an order. Transitions are not
// constrained: any status may follow any other.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusDelivered  Status = "Delivered"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDelivered:
		return true
	}
	return false
}

// Sentinel errors for order operations.
var (
	ErrNotFound    = errors.New("order not found")
	ErrEmptyItems  = errors.New("items required")
	ErrInvalidItem = errors.New("invalid item data")

	// ErrTrackingIDConflict is returned by the repository when the generated
	// tracking id collides with an existing order.
	ErrTrackingIDConflict = errors.New("tracking id already exists")

	// ErrInvalidStatus is returned when a status update carries a value
	// outside the known enum.
	ErrInvalidStatus = errors.New("invalid status")
)

// MissingFieldError indicates a required buyer field was empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// DanglingProductError indicates an order item references a product that no
// longer exists. Aggregation treats this as a not-found condition.
type DanglingProductError struct {
	OrderID   int64
	ProductID int64
}

func (e *DanglingProductError) Error() string {
	return fmt.Sprintf("order %d references missing product %d", e.OrderID, e.ProductID)
}

// Order represents a placed order. TrackingID is assigned at creation and
// never changes; Status is the only field mutable afterwards.
type Order struct {
	ID              int64
	BuyerName       string
	BuyerContact    string
	DeliveryAddress string
	Status          Status
	TrackingID      string
	CreatedAt       time.Time
}

// Item is a single line item: a product reference and a quantity.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
}

// EnrichedItem is an Item annotated with its resolved product.
type EnrichedItem struct {
	Item
	Product product.Product
}

// Enriched is an Order augmented with its items, their products, and the
// computed total price in minor currency units.
type Enriched struct {
	Order
	Items      []EnrichedItem
	TotalPrice int64
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and its items as one atomic unit. On a
	// tracking id uniqueness violation it returns ErrTrackingIDConflict and
	// leaves storage unchanged.
	Create(ctx context.Context, o *Order, items []Item) error
	GetByID(ctx context.Context, id int64) (*Order, []Item, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*Order, []Item, error)
	// List returns all orders in primary key order, with every order's items
	// keyed by order id.
	List(ctx context.Context) ([]Order, map[int64][]Item, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
}
