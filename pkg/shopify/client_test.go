package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/oilslick/catops/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:         srv.URL,
		AccessToken:     "shpat_test",
		RequestInterval: time.Nanosecond,
		MaxRetries:      3,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestFetchProducts_PaginatesWithSinceID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "shpat_test" {
			t.Errorf("access token header = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "250" {
			t.Errorf("limit = %q, want 250", got)
		}

		sinceID, _ := strconv.ParseInt(r.URL.Query().Get("since_id"), 10, 64)
		var page []models.Product
		switch sinceID {
		case 0:
			for i := int64(1); i <= 250; i++ {
				page = append(page, models.Product{ID: i})
			}
		case 250:
			for i := int64(251); i <= 300; i++ {
				page = append(page, models.Product{ID: i})
			}
		default:
			t.Errorf("unexpected since_id %d", sinceID)
		}
		writeJSON(t, w, map[string]any{"products": page})
	})

	c := testClient(t, handler)
	products, err := c.FetchProducts(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	if len(products) != 300 {
		t.Fatalf("len(products) = %d, want 300", len(products))
	}
	if products[0].ID != 1 || products[299].ID != 300 {
		t.Errorf("ids = %d..%d, want 1..300", products[0].ID, products[299].ID)
	}
}

func TestFetchProducts_ForwardsFilters(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("vendor"); got != "Acme" {
			t.Errorf("vendor = %q, want Acme", got)
		}
		if got := r.URL.Query().Get("status"); got != "active" {
			t.Errorf("status = %q, want active", got)
		}
		writeJSON(t, w, map[string]any{"products": []models.Product{}})
	})

	c := testClient(t, handler)
	if _, err := c.FetchProducts(context.Background(), ListOptions{Vendor: "Acme", Status: "active"}); err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
}

func TestDo_RetriesAfterRateLimit(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, map[string]any{"products": []models.Product{}})
	})

	c := testClient(t, handler)
	if _, err := c.FetchProducts(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("FetchProducts after 429: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDo_RetriesAfterServerError(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, map[string]any{"product": models.Product{ID: 7}})
	})

	c := testClient(t, handler)
	p, err := c.GetProduct(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetProduct after 502: %v", err)
	}
	if p.ID != 7 {
		t.Errorf("product id = %d, want 7", p.ID)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDo_PermanentErrorDoesNotRetry(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors":"Not Found"}`)
	})

	c := testClient(t, handler)
	_, err := c.GetProduct(context.Background(), 999)
	if err == nil {
		t.Fatal("GetProduct succeeded against a 404")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("error = %v, want APIError with status 404", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 4xx)", attempts)
	}
}

func TestUpdateProduct_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/products/42.json" {
			t.Errorf("path = %s, want /products/42.json", r.URL.Path)
		}

		var body struct {
			Product map[string]any `json:"product"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if got := body.Product["id"]; got != float64(42) {
			t.Errorf("body product id = %v, want 42", got)
		}
		if got := body.Product["status"]; got != "draft" {
			t.Errorf("body status = %v, want draft", got)
		}

		writeJSON(t, w, map[string]any{"product": models.Product{ID: 42, Status: "draft"}})
	})

	c := testClient(t, handler)
	res, err := c.UpdateProduct(context.Background(), 42, map[string]any{"status": "draft"})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if !res.OK() {
		t.Fatalf("result errors = %v, want clean update", res.Errors)
	}
	if res.Product == nil || res.Product.Status != "draft" {
		t.Errorf("updated product = %+v, want draft status", res.Product)
	}
}

func TestUpdateProduct_EmbeddedErrorsOn200(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": {"title": ["can't be blank"]}}`)
	})

	c := testClient(t, handler)
	res, err := c.UpdateProduct(context.Background(), 42, map[string]any{"title": ""})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if res.OK() {
		t.Fatal("result OK although the body embedded errors")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "title: can't be blank" {
		t.Errorf("errors = %v, want [title: can't be blank]", res.Errors)
	}
}

func TestUpdateProduct_ValidationFailure422(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"errors": {"variants": ["exceeds the variant limit", "duplicate sku"]}}`)
	})

	c := testClient(t, handler)
	res, err := c.UpdateProduct(context.Background(), 42, map[string]any{})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if res.OK() {
		t.Fatal("result OK although the API rejected the update")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v, want two entries", res.Errors)
	}
	if res.Errors[0] != "variants: exceeds the variant limit" {
		t.Errorf("errors[0] = %q", res.Errors[0])
	}
}

func TestInventoryLevels_FiltersByItem(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inventory_levels.json" {
			t.Errorf("path = %s, want /inventory_levels.json", r.URL.Path)
		}
		if got := r.URL.Query().Get("inventory_item_ids"); got != "777" {
			t.Errorf("inventory_item_ids = %q, want 777", got)
		}
		writeJSON(t, w, map[string]any{"inventory_levels": []InventoryLevel{
			{InventoryItemID: 777, LocationID: 22, Available: 5},
		}})
	})

	c := testClient(t, handler)
	levels, err := c.InventoryLevels(context.Background(), 777)
	if err != nil {
		t.Fatalf("InventoryLevels: %v", err)
	}
	if len(levels) != 1 || levels[0].LocationID != 22 || levels[0].Available != 5 {
		t.Errorf("levels = %+v, want one level at location 22 with 5 available", levels)
	}
}

func TestSetInventoryLevel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inventory_levels/set.json" {
			t.Errorf("request = %s %s, want POST /inventory_levels/set.json", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["available"] != float64(5) || body["location_id"] != float64(22) {
			t.Errorf("body = %v", body)
		}
		writeJSON(t, w, map[string]any{"inventory_level": body})
	})

	c := testClient(t, handler)
	if err := c.SetInventoryLevel(context.Background(), 777, 22, 5); err != nil {
		t.Fatalf("SetInventoryLevel: %v", err)
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{Store: "shop"}); err == nil {
		t.Error("NewClient accepted an empty access token")
	}
	if _, err := NewClient(Config{AccessToken: "tok"}); err == nil {
		t.Error("NewClient accepted an empty store")
	}
}

func TestNewClient_DerivesBaseURL(t *testing.T) {
	c, err := NewClient(Config{Store: "oak-and-iron", AccessToken: "tok"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	want := "https://oak-and-iron.myshopify.com/admin/api/" + defaultAPIVersion
	if c.baseURL != want {
		t.Errorf("baseURL = %q, want %q", c.baseURL, want)
	}
}
