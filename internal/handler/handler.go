// Package handler exposes the ordering core over the JSON HTTP contract
// consumed by the storefront.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agrofix/orders-api/internal/domain/order"
	"github.com/agrofix/orders-api/internal/domain/product"
)

// Handler translates HTTP requests into domain calls and domain results back
// into the wire format.
type Handler struct {
	catalogue *product.Service
	orders    *order.Service
	validate  *validator.Validate
}

// New constructs a Handler with the required domain services.
func New(catalogue *product.Service, orders *order.Service) *Handler {
	return &Handler{
		catalogue: catalogue,
		orders:    orders,
		validate:  validator.New(),
	}
}

// Register mounts all API routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Post("/products", h.AddProduct)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.PlaceOrder)
			r.Get("/track/{trackingID}", h.GetOrderByTracking)
			r.Get("/{orderID}", h.GetOrder)
			r.Patch("/{orderID}", h.UpdateOrderStatus)
		})
	})
}

// Root answers a plain liveness banner on GET /.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("AgroFix backend is running."))
}
