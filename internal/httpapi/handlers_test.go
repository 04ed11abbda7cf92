package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"brewpos/backend/internal/cache"
	"brewpos/backend/internal/service"
	"brewpos/backend/internal/store/memory"
	"brewpos/backend/internal/suggest"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	engine := suggest.NewEngine(cache.NoopSuggestionCache{}, 5*time.Second)
	svc := service.New(repo, engine, 0.08)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func login(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: expected 200, got %d (body: %s)", username, rec.Code, rec.Body.String())
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	if body.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	return body.AccessToken
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginAndListProducts(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Products) == 0 {
		t.Fatalf("expected seeded products")
	}
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCashierCannotCreateIngredient(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/ingredients", token, map[string]any{
		"name":          "Matcha Powder",
		"unit":          "g",
		"cost_per_unit": 0.12,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestQuoteAndOrderRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	quoteRec := doJSON(t, handler, http.MethodPost, "/api/v1/cart/quote", token, map[string]any{
		"product_id": "prod-latte",
		"recipe_id":  "rcp-latte-base",
		"quantity":   1,
	})
	if quoteRec.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d (body: %s)", quoteRec.Code, quoteRec.Body.String())
	}
	var quote struct {
		UnitPrice float64 `json:"unit_price"`
	}
	if err := json.NewDecoder(quoteRec.Body).Decode(&quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}

	orderRec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"lines": []map[string]any{
			{"product_id": "prod-latte", "recipe_id": "rcp-latte-base", "quantity": 1},
		},
		"tax_rate":       0.08,
		"payment_method": "card",
	})
	if orderRec.Code != http.StatusCreated {
		t.Fatalf("order: expected 201, got %d (body: %s)", orderRec.Code, orderRec.Body.String())
	}
	var created struct {
		Order struct {
			ID    string `json:"id"`
			Lines []struct {
				UnitPrice float64 `json:"unit_price"`
			} `json:"lines"`
		} `json:"order"`
	}
	if err := json.NewDecoder(orderRec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if created.Order.Lines[0].UnitPrice != quote.UnitPrice {
		t.Fatalf("order unit price %.4f differs from quote %.4f", created.Order.Lines[0].UnitPrice, quote.UnitPrice)
	}

	receiptRec := doJSON(t, handler, http.MethodGet, "/api/v1/orders/"+created.Order.ID+"/receipt", token, nil)
	if receiptRec.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d (body: %s)", receiptRec.Code, receiptRec.Body.String())
	}
}

func TestOrderUnknownExtraReturns422(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"lines": []map[string]any{
			{"product_id": "prod-latte", "recipe_id": "rcp-latte-base", "extra_ids": []string{"ext-nope"}, "quantity": 1},
		},
		"payment_method": "card",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestOrderOverDiscountReturns400(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"lines": []map[string]any{
			{"product_id": "prod-beans-bag", "quantity": 1},
		},
		"discount":       500.0,
		"payment_method": "card",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestInvalidStatusTransitionReturns409(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	orderRec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"lines": []map[string]any{
			{"product_id": "prod-beans-bag", "quantity": 1},
		},
		"payment_method": "card",
	})
	if orderRec.Code != http.StatusCreated {
		t.Fatalf("order: expected 201, got %d", orderRec.Code)
	}
	var created struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	if err := json.NewDecoder(orderRec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/orders/"+created.Order.ID+"/status", token, map[string]any{
		"status": "completed",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestAdminCreatesVariantGroup(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products/prod-drip/variant-groups", token, map[string]any{
		"name": "Size",
		"options": []map[string]any{
			{"name": "Small", "price_adjustment": -0.25},
			{"name": "Large", "price_adjustment": 0.50},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSuggestionEndpoint(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/cart/suggestion", token, map[string]any{
		"cart_product_ids": []string{"prod-latte"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Suggestion *struct {
			ExtraName string `json:"extra_name"`
		} `json:"suggestion"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Suggestion == nil || body.Suggestion.ExtraName != "Extra Shot" {
		t.Fatalf("expected Extra Shot suggestion, got %+v", body.Suggestion)
	}
}
