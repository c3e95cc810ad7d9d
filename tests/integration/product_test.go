//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts_Seeded(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < 9 {
		t.Fatalf("expected at least 9 seeded products, got %d", len(products))
	}

	if products[0].Name != "Tomato" || products[0].Price != 30 {
		t.Errorf("first seeded product: got %q/%d, want Tomato/30", products[0].Name, products[0].Price)
	}

	// Listing is in primary key order.
	for i := 1; i < len(products); i++ {
		if products[i].ID <= products[i-1].ID {
			t.Fatalf("products not in id order at index %d", i)
		}
	}
}

func TestAddProduct(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/products", map[string]any{
		"name":        "Mango",
		"price":       90,
		"image_url":   "https://example.com/mango.png",
		"description": "Seasonal",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	created := decodeJSON[productResponse](t, resp)
	if created.ID == 0 {
		t.Error("created product must carry an assigned id")
	}
	if created.Name != "Mango" || created.Price != 90 {
		t.Errorf("created product mismatch: %+v", created)
	}
}

func TestAddProduct_Invalid(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/products", map[string]any{
		"price": -5,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
