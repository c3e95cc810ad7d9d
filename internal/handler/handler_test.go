package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrofix/orders-api/internal/domain/order"
	"github.com/agrofix/orders-api/internal/domain/product"
)

// --- In-memory repositories ---

type memProductRepo struct {
	nextID   int64
	products []product.Product
	err      error
}

func (m *memProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.err
}

func (m *memProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		for _, p := range m.products {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (m *memProductRepo) Create(_ context.Context, p *product.Product) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	p.ID = m.nextID
	m.products = append(m.products, *p)
	return nil
}

type memOrderRepo struct {
	nextID int64
	orders []order.Order
	items  map[int64][]order.Item
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{items: make(map[int64][]order.Item)}
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order, items []order.Item) error {
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].OrderID = o.ID
	}
	m.orders = append(m.orders, *o)
	m.items[o.ID] = items
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, []order.Item, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return &o, m.items[id], nil
		}
	}
	return nil, nil, order.ErrNotFound
}

func (m *memOrderRepo) GetByTrackingID(_ context.Context, trackingID string) (*order.Order, []order.Item, error) {
	for _, o := range m.orders {
		if o.TrackingID == trackingID {
			return &o, m.items[o.ID], nil
		}
	}
	return nil, nil, order.ErrNotFound
}

func (m *memOrderRepo) List(_ context.Context) ([]order.Order, map[int64][]order.Item, error) {
	return m.orders, m.items, nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, id int64, status order.Status) (*order.Order, error) {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].Status = status
			o := m.orders[i]
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

// --- Helpers ---

func newTestServer(products *memProductRepo, orders *memOrderRepo) *chi.Mux {
	h := New(product.NewService(products), order.NewService(products, orders))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func catalogue(products ...product.Product) *memProductRepo {
	repo := &memProductRepo{products: products}
	for _, p := range products {
		if p.ID > repo.nextID {
			repo.nextID = p.ID
		}
	}
	return repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func validOrderBody() map[string]any {
	return map[string]any{
		"buyer_name":       "Asha",
		"buyer_contact":    "asha@example.com",
		"delivery_address": "12 Market Road",
		"items": []map[string]any{
			{"product_id": 1, "quantity": 2},
			{"product_id": 2, "quantity": 1},
		},
	}
}

// --- Product endpoints ---

func TestListProducts(t *testing.T) {
	router := newTestServer(catalogue(
		product.Product{ID: 1, Name: "Tomato", Price: 30, ImageURL: "https://example.com/t.png"},
		product.Product{ID: 2, Name: "Apple", Price: 100, ImageURL: "https://example.com/a.png"},
	), newMemOrderRepo())

	w := doJSON(t, router, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	decodeBody(t, w, &got)
	require.Len(t, got, 2)
	assert.Equal(t, "Tomato", got[0]["name"])
	assert.Equal(t, float64(30), got[0]["price"])
	assert.Equal(t, "https://example.com/t.png", got[0]["image_url"])
}

func TestAddProduct(t *testing.T) {
	repo := catalogue()
	router := newTestServer(repo, newMemOrderRepo())

	w := doJSON(t, router, http.MethodPost, "/api/products", map[string]any{
		"name":        "Mango",
		"price":       90,
		"image_url":   "https://example.com/m.png",
		"description": "Ripe alphonso",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	decodeBody(t, w, &got)
	assert.Equal(t, float64(1), got["id"])
	assert.Equal(t, "Mango", got["name"])
	require.Len(t, repo.products, 1)
}

func TestAddProduct_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"price": 10}},
		{"negative price", map[string]any{"name": "Mango", "price": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := catalogue()
			router := newTestServer(repo, newMemOrderRepo())

			w := doJSON(t, router, http.MethodPost, "/api/products", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var got map[string]any
			decodeBody(t, w, &got)
			assert.Equal(t, "Failed to add product", got["error"])
			assert.NotEmpty(t, got["details"])
			assert.Empty(t, repo.products)
		})
	}
}

// --- Order endpoints ---

func TestPlaceOrder(t *testing.T) {
	orders := newMemOrderRepo()
	router := newTestServer(catalogue(), orders)

	w := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	decodeBody(t, w, &got)
	assert.Equal(t, "Pending", got["status"])
	assert.Contains(t, got["tracking_id"], "ORD-")
	assert.Equal(t, "Asha", got["buyer_name"])

	require.Len(t, orders.orders, 1)
	require.Len(t, orders.items[1], 2)
}

func TestPlaceOrder_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing buyer_name", func(b map[string]any) { delete(b, "buyer_name") }},
		{"missing buyer_contact", func(b map[string]any) { delete(b, "buyer_contact") }},
		{"missing delivery_address", func(b map[string]any) { delete(b, "delivery_address") }},
		{"empty items", func(b map[string]any) { b["items"] = []map[string]any{} }},
		{"zero quantity", func(b map[string]any) {
			b["items"] = []map[string]any{{"product_id": 1, "quantity": 0}}
		}},
		{"negative quantity", func(b map[string]any) {
			b["items"] = []map[string]any{{"product_id": 1, "quantity": -2}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := newMemOrderRepo()
			router := newTestServer(catalogue(), orders)

			body := validOrderBody()
			tt.mutate(body)

			w := doJSON(t, router, http.MethodPost, "/api/orders", body)
			require.Equal(t, http.StatusInternalServerError, w.Code)

			var got map[string]any
			decodeBody(t, w, &got)
			assert.Equal(t, "Failed to create order", got["error"])
			assert.NotEmpty(t, got["details"])
			assert.Empty(t, orders.orders, "storage must stay unchanged")
		})
	}
}

func TestGetOrder_Enriched(t *testing.T) {
	products := catalogue(
		product.Product{ID: 1, Name: "Tomato", Price: 30},
		product.Product{ID: 2, Name: "Apple", Price: 100},
	)
	orders := newMemOrderRepo()
	router := newTestServer(products, orders)

	created := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())
	require.Equal(t, http.StatusOK, created.Code)

	w := doJSON(t, router, http.MethodGet, "/api/orders/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	decodeBody(t, w, &got)
	assert.Equal(t, float64(160), got["total_price"])

	items, ok := got["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	nested, ok := first["product"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Tomato", nested["name"])
}

func TestGetOrder_ByTrackingMatchesByID(t *testing.T) {
	products := catalogue(
		product.Product{ID: 1, Name: "Tomato", Price: 30},
		product.Product{ID: 2, Name: "Apple", Price: 100},
	)
	orders := newMemOrderRepo()
	router := newTestServer(products, orders)

	created := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())
	var placed map[string]any
	decodeBody(t, created, &placed)
	trackingID, ok := placed["tracking_id"].(string)
	require.True(t, ok)

	byID := doJSON(t, router, http.MethodGet, "/api/orders/1", nil)
	byTracking := doJSON(t, router, http.MethodGet, "/api/orders/track/"+trackingID, nil)

	require.Equal(t, http.StatusOK, byID.Code)
	require.Equal(t, http.StatusOK, byTracking.Code)
	assert.JSONEq(t, byID.Body.String(), byTracking.Body.String())
}

func TestGetOrder_NotFound(t *testing.T) {
	router := newTestServer(catalogue(), newMemOrderRepo())

	for _, path := range []string{"/api/orders/99", "/api/orders/track/ORD-missing"} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, w.Code, "path %s", path)

		var got map[string]any
		decodeBody(t, w, &got)
		assert.Equal(t, "Order not found", got["error"])
	}
}

func TestGetOrder_DanglingProductIsNotFound(t *testing.T) {
	// Catalogue knows neither product; the join miss fails the aggregation.
	orders := newMemOrderRepo()
	router := newTestServer(catalogue(), orders)

	created := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())
	require.Equal(t, http.StatusOK, created.Code)

	w := doJSON(t, router, http.MethodGet, "/api/orders/1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOrders(t *testing.T) {
	products := catalogue(
		product.Product{ID: 1, Name: "Tomato", Price: 30},
		product.Product{ID: 2, Name: "Apple", Price: 100},
	)
	orders := newMemOrderRepo()
	router := newTestServer(products, orders)

	doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())

	w := doJSON(t, router, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	decodeBody(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, float64(160), got[0]["total_price"])
}

func TestUpdateOrderStatus(t *testing.T) {
	orders := newMemOrderRepo()
	router := newTestServer(catalogue(), orders)

	doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())

	w := doJSON(t, router, http.MethodPatch, "/api/orders/1", map[string]any{"status": "Delivered"})
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	decodeBody(t, w, &got)
	assert.Equal(t, "Delivered", got["status"])
	assert.Equal(t, "Asha", got["buyer_name"], "other fields must be unchanged")
}

func TestUpdateOrderStatus_RejectsUnknownFields(t *testing.T) {
	orders := newMemOrderRepo()
	router := newTestServer(catalogue(), orders)

	doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())

	w := doJSON(t, router, http.MethodPatch, "/api/orders/1", map[string]any{
		"status":      "Delivered",
		"tracking_id": "ORD-overwritten",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	current, _, err := orders.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, current.Status)
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	orders := newMemOrderRepo()
	router := newTestServer(catalogue(), orders)

	doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody())

	w := doJSON(t, router, http.MethodPatch, "/api/orders/1", map[string]any{"status": "Shipped"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	router := newTestServer(catalogue(), newMemOrderRepo())

	w := doJSON(t, router, http.MethodPatch, "/api/orders/9", map[string]any{"status": "Delivered"})
	require.Equal(t, http.StatusNotFound, w.Code)
}
