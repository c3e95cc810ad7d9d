package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/agrofix/orders-api/internal/domain/order"
)

type createOrderRequest struct {
	BuyerName       string             `json:"buyer_name" validate:"required"`
	BuyerContact    string             `json:"buyer_contact" validate:"required"`
	DeliveryAddress string             `json:"delivery_address" validate:"required"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type orderResponse struct {
	ID              int64     `json:"id"`
	BuyerName       string    `json:"buyer_name"`
	BuyerContact    string    `json:"buyer_contact"`
	DeliveryAddress string    `json:"delivery_address"`
	Status          string    `json:"status"`
	TrackingID      string    `json:"tracking_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type enrichedOrderResponse struct {
	orderResponse
	Items      []orderItemResponse `json:"items"`
	TotalPrice int64               `json:"total_price"`
}

type orderItemResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Product   productResponse `json:"product"`
}

// PlaceOrder handles POST /api/orders. Validation and storage failures share
// a single generic failure response carrying a human-readable detail string,
// matching the storefront's contract.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusInternalServerError, "Failed to create order", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, http.StatusInternalServerError, "Failed to create order", err.Error())
		return
	}

	items := make([]order.ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		BuyerName:       req.BuyerName,
		BuyerContact:    req.BuyerContact,
		DeliveryAddress: req.DeliveryAddress,
		Items:           items,
	})
	if err != nil {
		zctx.From(r.Context()).Error("create order", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Failed to create order", err.Error())
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	enriched, err := h.orders.ListOrders(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list orders", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Failed to fetch orders", "")
		return
	}

	out := make([]enrichedOrderResponse, len(enriched))
	for i := range enriched {
		out[i] = toEnrichedResponse(&enriched[i])
	}
	respondJSON(w, r, http.StatusOK, out)
}

// GetOrder handles GET /api/orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "Order not found", "")
		return
	}

	enriched, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.respondOrderLookupError(w, r, err, "Failed to fetch order")
		return
	}
	respondJSON(w, r, http.StatusOK, toEnrichedResponse(enriched))
}

// GetOrderByTracking handles GET /api/orders/track/{trackingID}.
func (h *Handler) GetOrderByTracking(w http.ResponseWriter, r *http.Request) {
	enriched, err := h.orders.GetOrderByTracking(r.Context(), chi.URLParam(r, "trackingID"))
	if err != nil {
		h.respondOrderLookupError(w, r, err, "Failed to fetch order by tracking ID")
		return
	}
	respondJSON(w, r, http.StatusOK, toEnrichedResponse(enriched))
}

// UpdateOrderStatus handles PATCH /api/orders/{orderID}. The update surface
// is the single status field; unknown fields are rejected outright.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "Order not found", "")
		return
	}

	status, err := decodeStatusPatch(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "Failed to update order", err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "Order not found", "")
		return
	case errors.Is(err, order.ErrInvalidStatus):
		respondError(w, r, http.StatusBadRequest, "Failed to update order", err.Error())
		return
	case err != nil:
		zctx.From(r.Context()).Error("update order status", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Failed to update order", "")
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// decodeStatusPatch reads a PATCH body of exactly {"status": <string>}. Any
// other field fails the decode so no column can be overwritten through this
// endpoint.
func decodeStatusPatch(r *http.Request) (order.Status, error) {
	d := jx.Decode(r.Body, 512)

	var (
		status string
		seen   bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return errors.Errorf("unknown field %q", key)
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "status")
		}
		status = v
		seen = true
		return nil
	}); err != nil {
		return "", err
	}
	if !seen {
		return "", errors.New("status is required")
	}
	return order.Status(status), nil
}

func (h *Handler) respondOrderLookupError(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	var dangling *order.DanglingProductError
	switch {
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "Order not found", "")
	case errors.As(err, &dangling):
		// A dangling product reference fails the whole aggregation as a
		// not-found condition.
		respondError(w, r, http.StatusNotFound, "Order not found", err.Error())
	default:
		zctx.From(r.Context()).Error("fetch order", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, failMsg, "")
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		BuyerName:       o.BuyerName,
		BuyerContact:    o.BuyerContact,
		DeliveryAddress: o.DeliveryAddress,
		Status:          string(o.Status),
		TrackingID:      o.TrackingID,
		CreatedAt:       o.CreatedAt,
	}
}

func toEnrichedResponse(e *order.Enriched) enrichedOrderResponse {
	items := make([]orderItemResponse, len(e.Items))
	for i, item := range e.Items {
		items[i] = orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   toProductResponse(item.Product),
		}
	}
	return enrichedOrderResponse{
		orderResponse: toOrderResponse(&e.Order),
		Items:         items,
		TotalPrice:    e.TotalPrice,
	}
}
