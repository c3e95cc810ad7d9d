package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agrofix/orders-api/internal/domain/product"
)

// trackingIDPrefix is prepended to the random token of every tracking id.
// The token is opaque to the rest of the system; nothing ever parses it.
const trackingIDPrefix = "ORD-"

// ItemInput is one requested line item in a new order.
type ItemInput struct {
	ProductID int64
	Quantity  int64
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	BuyerName       string
	BuyerContact    string
	DeliveryAddress string
	Items           []ItemInput
}

// Service encapsulates order placement, lookup, enrichment, and status
// updates.
type Service struct {
	products product.Repository
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
	}
}

// PlaceOrder validates the request, generates a tracking id, and persists the
// order together with its items as one atomic unit. Product existence is not
// verified here; a dangling product id is accepted and only surfaces later as
// a join miss during enrichment.
//
// A tracking id collision at the storage level (practically impossible with a
// 128-bit random token, but cheap to handle) triggers exactly one
// regeneration before the error is surfaced.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	items := make([]Item, len(req.Items))
	for i, item := range req.Items {
		items[i] = Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	o := &Order{
		BuyerName:       req.BuyerName,
		BuyerContact:    req.BuyerContact,
		DeliveryAddress: req.DeliveryAddress,
		Status:          StatusPending,
		TrackingID:      newTrackingID(),
	}

	err := s.orders.Create(ctx, o, items)
	if errors.Is(err, ErrTrackingIDConflict) {
		o.TrackingID = newTrackingID()
		err = s.orders.Create(ctx, o, items)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// validatePlaceOrder checks the request fields in order, failing fast on the
// first violation.
func validatePlaceOrder(req PlaceOrderRequest) error {
	if req.BuyerName == "" {
		return &MissingFieldError{Field: "buyer_name"}
	}
	if req.BuyerContact == "" {
		return &MissingFieldError{Field: "buyer_contact"}
	}
	if req.DeliveryAddress == "" {
		return &MissingFieldError{Field: "delivery_address"}
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return ErrInvalidItem
		}
	}
	return nil
}

func newTrackingID() string {
	return trackingIDPrefix + uuid.New().String()
}

// GetOrder returns the enriched order with the given internal id.
func (s *Service) GetOrder(ctx context.Context, id int64) (*Enriched, error) {
	o, items, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, o, items)
}

// GetOrderByTracking returns the enriched order with the given tracking id.
func (s *Service) GetOrderByTracking(ctx context.Context, trackingID string) (*Enriched, error) {
	o, items, err := s.orders.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, o, items)
}

// ListOrders returns every order, enriched independently, in primary key
// order.
func (s *Service) ListOrders(ctx context.Context) ([]Enriched, error) {
	all, itemsByOrder, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	enriched := make([]Enriched, 0, len(all))
	for i := range all {
		e, err := s.enrich(ctx, &all[i], itemsByOrder[all[i].ID])
		if err != nil {
			return nil, err
		}
		enriched = append(enriched, *e)
	}
	return enriched, nil
}

// UpdateStatus sets the status of an existing order. No transition ordering
// is enforced; the status field is the entire update surface.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.orders.UpdateStatus(ctx, id, status)
}

// enrich resolves the order's items against the catalogue and computes the
// total. An item whose product is missing fails the whole aggregation with a
// DanglingProductError.
func (s *Service) enrich(ctx context.Context, o *Order, items []Item) (*Enriched, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	var byID map[int64]product.Product
	if len(ids) > 0 {
		fetched, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "get products")
		}
		byID = make(map[int64]product.Product, len(fetched))
		for _, p := range fetched {
			byID[p.ID] = p
		}
	}

	enrichedItems := make([]EnrichedItem, len(items))
	for i, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &DanglingProductError{OrderID: o.ID, ProductID: item.ProductID}
		}
		enrichedItems[i] = EnrichedItem{Item: item, Product: p}
	}

	return &Enriched{
		Order:      *o,
		Items:      enrichedItems,
		TotalPrice: ComputeTotal(enrichedItems),
	}, nil
}

// ComputeTotal returns the sum of quantity times product price over all
// items, in minor currency units.
func ComputeTotal(items []EnrichedItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Quantity * item.Product.Price
	}
	return total
}
