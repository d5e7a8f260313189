/*
handlers_test.go - HTTP surface tests

Tests for:
- Error-to-status mapping and query-string parsing
- Catalog endpoints (products, suppliers, links)
- Ledger operations (purchases, sales, transfers)
- Reporting reads (transactions, price changes, integrity)

All requests go through the full router so middleware, URL params, and
JSON encoding are exercised the way a real client would see them. The
store is the in-memory implementation; the SQLite store has its own
test suite.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradewind/stock-engine/inventory"
	"github.com/tradewind/stock-engine/inventory/store"
)

// =============================================================================
// FIXTURES
// =============================================================================

func newTestRouter(t *testing.T) (http.Handler, *store.TxMemory) {
	t.Helper()
	st := store.NewTxMemory()
	h := NewHandler(st, zap.NewNop(), 2*time.Second)
	return NewRouter(h, zap.NewNop(), []string{"*"}), st
}

// doJSON sends one request through the router with a JSON-encoded body
// and returns the recorder.
func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
}

func createProduct(t *testing.T, router http.Handler, name, unitPrice string, stock int64) ProductDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/products", CreateProductRequest{
		Name:      name,
		UnitPrice: decimal.RequireFromString(unitPrice),
		Stock:     stock,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create product %q: status %d, body %s", name, rec.Code, rec.Body.String())
	}
	var dto ProductDTO
	decodeJSON(t, rec, &dto)
	return dto
}

func createSupplier(t *testing.T, router http.Handler, name, email string) SupplierDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/suppliers", SupplierRequest{
		Name:  name,
		Email: email,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create supplier %q: status %d, body %s", name, rec.Code, rec.Body.String())
	}
	var dto SupplierDTO
	decodeJSON(t, rec, &dto)
	return dto
}

func recordPurchase(t *testing.T, router http.Handler, productID, supplierID string, qty int64, unitPrice string) TransactionDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/purchases", MovementRequest{
		ProductID:  productID,
		SupplierID: supplierID,
		Quantity:   qty,
		UnitPrice:  decimal.RequireFromString(unitPrice),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to record purchase: status %d, body %s", rec.Code, rec.Body.String())
	}
	var dto TransactionDTO
	decodeJSON(t, rec, &dto)
	return dto
}

func recordSale(t *testing.T, router http.Handler, productID, supplierID string, qty int64, unitPrice string) TransactionDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/sales", MovementRequest{
		ProductID:  productID,
		SupplierID: supplierID,
		Quantity:   qty,
		UnitPrice:  decimal.RequireFromString(unitPrice),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to record sale: status %d, body %s", rec.Code, rec.Body.String())
	}
	var dto TransactionDTO
	decodeJSON(t, rec, &dto)
	return dto
}

func getProduct(t *testing.T, router http.Handler, id string) ProductDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodGet, "/api/products/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Failed to get product %s: status %d, body %s", id, rec.Code, rec.Body.String())
	}
	var dto ProductDTO
	decodeJSON(t, rec, &dto)
	return dto
}

// =============================================================================
// STATUS MAPPING AND PARSING
// =============================================================================

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &inventory.NotFoundError{Entity: "product", ID: "p-1"}, http.StatusNotFound},
		{"insufficient stock", &inventory.InsufficientStockError{ProductID: "p-1", Available: 2, Requested: 5}, http.StatusConflict},
		{"referential integrity", &inventory.ReferentialIntegrityError{ProductID: "p-1", References: 3}, http.StatusConflict},
		{"duplicate email", inventory.ErrDuplicateEmail, http.StatusConflict},
		{"duplicate link", inventory.ErrDuplicateLink, http.StatusConflict},
		{"price guard", &inventory.ExcessivePriceChangeError{ProductID: "p-1"}, http.StatusUnprocessableEntity},
		{"inactive entity", &inventory.InactiveEntityError{Entity: "supplier", ID: "s-1", State: "suspended"}, http.StatusUnprocessableEntity},
		{"validation", &inventory.ValidationError{Field: "name", Reason: "must not be empty"}, http.StatusBadRequest},
		{"deadline exceeded", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestParseTransactionFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/transactions?product_id=p-1&supplier_id=s-1&kind=sale&transfer_id=tr-9&from=2025-01-01T00:00:00Z&limit=25", nil)

	f, err := parseTransactionFilter(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.ProductID == nil || *f.ProductID != "p-1" {
		t.Errorf("ProductID not parsed: %v", f.ProductID)
	}
	if f.SupplierID == nil || *f.SupplierID != "s-1" {
		t.Errorf("SupplierID not parsed: %v", f.SupplierID)
	}
	if f.Kind == nil || *f.Kind != inventory.KindSale {
		t.Errorf("Kind not parsed: %v", f.Kind)
	}
	if f.TransferID == nil || *f.TransferID != "tr-9" {
		t.Errorf("TransferID not parsed: %v", f.TransferID)
	}
	if f.From == nil || !f.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("From not parsed: %v", f.From)
	}
	if f.To != nil {
		t.Errorf("To should be nil, got %v", f.To)
	}
	if f.Limit != 25 {
		t.Errorf("Limit not parsed: %d", f.Limit)
	}
}

func TestParseTransactionFilter_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)

	f, err := parseTransactionFilter(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.ProductID != nil || f.SupplierID != nil || f.Kind != nil || f.TransferID != nil {
		t.Errorf("Expected zero filter, got %+v", f)
	}
	if f.From != nil || f.To != nil || f.Limit != 0 {
		t.Errorf("Expected no window or limit, got %+v", f)
	}
}

// =============================================================================
// PRODUCT ENDPOINTS
// =============================================================================

func TestCreateProduct(t *testing.T) {
	router, _ := newTestRouter(t)

	// WHEN: Registering a product with opening stock
	rec := doJSON(t, router, http.MethodPost, "/api/products", CreateProductRequest{
		Name:         "Widget",
		Description:  "Standard widget",
		UnitPrice:    decimal.RequireFromString("850000"),
		Stock:        15,
		MinimumStock: 5,
	})

	// THEN: 201 with the stored product
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var dto ProductDTO
	decodeJSON(t, rec, &dto)
	if dto.ID == "" {
		t.Error("Expected a generated product ID")
	}
	if dto.Name != "Widget" {
		t.Errorf("Expected name Widget, got %q", dto.Name)
	}
	if !dto.UnitPrice.Equal(decimal.RequireFromString("850000")) {
		t.Errorf("Expected unit price 850000, got %s", dto.UnitPrice)
	}

	// Opening stock doubles as the ledger baseline
	if dto.Stock != 15 || dto.InitialStock != 15 {
		t.Errorf("Expected stock and baseline 15, got %d and %d", dto.Stock, dto.InitialStock)
	}
	if dto.State != "active" {
		t.Errorf("Expected state active, got %q", dto.State)
	}
	if dto.LowStock {
		t.Error("15 on hand with minimum 5 should not be low stock")
	}
	if dto.CreatedAt == "" {
		t.Error("Expected a created_at timestamp")
	}
}

func TestCreateProduct_InvalidInput(t *testing.T) {
	router, _ := newTestRouter(t)

	// Blank name is rejected before any write
	rec := doJSON(t, router, http.MethodPost, "/api/products", CreateProductRequest{
		Name:      "",
		UnitPrice: decimal.RequireFromString("100"),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Blank name: expected 400, got %d", rec.Code)
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if resp.Error != "Failed to create product" {
		t.Errorf("Unexpected error message: %q", resp.Error)
	}
	if !strings.Contains(resp.Details, "name") {
		t.Errorf("Details should name the field, got %q", resp.Details)
	}

	// Malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("Malformed body: expected 400, got %d", rec2.Code)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/products/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp.Details, "nope") {
		t.Errorf("Details should name the missing product, got %q", resp.Details)
	}
}

func TestListProducts_SortedByName(t *testing.T) {
	router, _ := newTestRouter(t)
	createProduct(t, router, "Widget", "1000", 10)
	createProduct(t, router, "Gadget", "2000", 20)

	rec := doJSON(t, router, http.MethodGet, "/api/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var products []ProductDTO
	decodeJSON(t, rec, &products)
	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}
	if products[0].Name != "Gadget" || products[1].Name != "Widget" {
		t.Errorf("Expected Gadget before Widget, got %q then %q", products[0].Name, products[1].Name)
	}
}

func TestUpdateProduct_MetadataOnly(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)

	rec := doJSON(t, router, http.MethodPut, "/api/products/"+p.ID, UpdateProductRequest{
		Name:         "Widget Mk2",
		Description:  "Refreshed",
		MinimumStock: 8,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated ProductDTO
	decodeJSON(t, rec, &updated)
	if updated.Name != "Widget Mk2" || updated.Description != "Refreshed" || updated.MinimumStock != 8 {
		t.Errorf("Metadata not applied: %+v", updated)
	}

	// Stock and price only move through their own endpoints
	if updated.Stock != 10 {
		t.Errorf("Expected stock 10, got %d", updated.Stock)
	}
	if !updated.UnitPrice.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Expected price 1000, got %s", updated.UnitPrice)
	}
}

func TestSetProductState(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)

	rec := doJSON(t, router, http.MethodPut, "/api/products/"+p.ID+"/state", SetStateRequest{State: "discontinued"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var dto ProductDTO
	decodeJSON(t, rec, &dto)
	if dto.State != "discontinued" {
		t.Errorf("Expected discontinued, got %q", dto.State)
	}

	// Unknown state names are rejected
	rec = doJSON(t, router, http.MethodPut, "/api/products/"+p.ID+"/state", SetStateRequest{State: "retired"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown state, got %d", rec.Code)
	}
}

func TestListLowStock(t *testing.T) {
	router, _ := newTestRouter(t)

	// GIVEN: One product under its minimum and one comfortably above
	rec := doJSON(t, router, http.MethodPost, "/api/products", CreateProductRequest{
		Name:         "Widget",
		UnitPrice:    decimal.RequireFromString("1000"),
		Stock:        3,
		MinimumStock: 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create product: %s", rec.Body.String())
	}
	createProduct(t, router, "Gadget", "2000", 50)

	// WHEN: Listing low-stock products
	rec = doJSON(t, router, http.MethodGet, "/api/products/low-stock", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	// THEN: Only the under-minimum product appears, flagged
	var products []ProductDTO
	decodeJSON(t, rec, &products)
	if len(products) != 1 {
		t.Fatalf("Expected 1 low-stock product, got %d", len(products))
	}
	if products[0].Name != "Widget" || !products[0].LowStock {
		t.Errorf("Expected Widget flagged low, got %+v", products[0])
	}
}

// =============================================================================
// PRICE ENDPOINT
// =============================================================================

func TestUpdatePrice(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)

	// WHEN: Repricing within the guard, with an actor header
	body, err := json.Marshal(UpdatePriceRequest{NewPrice: decimal.RequireFromString("1100")})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, "/api/products/"+p.ID+"/price", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "ana")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// THEN: The audit record comes back with the actor attached
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var change PriceChangeDTO
	decodeJSON(t, rec, &change)
	if !change.OldPrice.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Expected old price 1000, got %s", change.OldPrice)
	}
	if !change.NewPrice.Equal(decimal.RequireFromString("1100")) {
		t.Errorf("Expected new price 1100, got %s", change.NewPrice)
	}
	if change.ChangedBy != "ana" {
		t.Errorf("Expected actor ana, got %q", change.ChangedBy)
	}

	// And the product carries the new price
	if got := getProduct(t, router, p.ID); !got.UnitPrice.Equal(decimal.RequireFromString("1100")) {
		t.Errorf("Expected price 1100 on product, got %s", got.UnitPrice)
	}
}

func TestUpdatePrice_SamePriceReportsUnchanged(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)

	rec := doJSON(t, router, http.MethodPut, "/api/products/"+p.ID+"/price",
		UpdatePriceRequest{NewPrice: decimal.RequireFromString("1000")})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "unchanged" {
		t.Errorf("Expected unchanged, got %v", body)
	}

	// No audit record for a no-op
	rec = doJSON(t, router, http.MethodGet, "/api/price-changes?product_id="+p.ID, nil)
	var changes []PriceChangeDTO
	decodeJSON(t, rec, &changes)
	if len(changes) != 0 {
		t.Errorf("Expected no audit records, got %d", len(changes))
	}
}

func TestUpdatePrice_BeyondGuard(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)

	// 1201 is just over a 20% raise
	rec := doJSON(t, router, http.MethodPut, "/api/products/"+p.ID+"/price",
		UpdatePriceRequest{NewPrice: decimal.RequireFromString("1201")})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp.Details, "exceeds") {
		t.Errorf("Details should mention the guard, got %q", resp.Details)
	}

	// Price is untouched
	if got := getProduct(t, router, p.ID); !got.UnitPrice.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Expected price unchanged at 1000, got %s", got.UnitPrice)
	}
}

func TestUpdatePrice_UnknownProduct(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/products/nope/price",
		UpdatePriceRequest{NewPrice: decimal.RequireFromString("10")})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// SUPPLIER ENDPOINTS
// =============================================================================

func TestCreateSupplier(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/suppliers", SupplierRequest{
		Name:    "Acme Corp",
		Contact: "Jo Vu",
		Phone:   "+84 (28) 1234-5678",
		Email:   "orders@acme.com",
		Address: "12 Factory Road",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var dto SupplierDTO
	decodeJSON(t, rec, &dto)
	if dto.ID == "" {
		t.Error("Expected a generated supplier ID")
	}
	if dto.Email != "orders@acme.com" {
		t.Errorf("Expected email kept, got %q", dto.Email)
	}
	if dto.State != "active" {
		t.Errorf("Expected state active, got %q", dto.State)
	}
}

func TestCreateSupplier_DuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)
	createSupplier(t, router, "Acme", "orders@acme.com")

	// Case differences do not make an email unique
	rec := doJSON(t, router, http.MethodPost, "/api/suppliers", SupplierRequest{
		Name:  "Acme Clone",
		Email: "ORDERS@ACME.COM",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateSupplier_BadEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/suppliers", SupplierRequest{
		Name:  "Acme",
		Email: "not-an-email",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestSupplierLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	// Update contact details
	rec := doJSON(t, router, http.MethodPut, "/api/suppliers/"+s.ID, SupplierRequest{
		Name:    "Acme Corp",
		Contact: "Jo Vu",
		Email:   "orders@acme.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Update failed: %d %s", rec.Code, rec.Body.String())
	}
	var updated SupplierDTO
	decodeJSON(t, rec, &updated)
	if updated.Name != "Acme Corp" || updated.Contact != "Jo Vu" {
		t.Errorf("Update not applied: %+v", updated)
	}

	// Suspend
	rec = doJSON(t, router, http.MethodPut, "/api/suppliers/"+s.ID+"/state", SetStateRequest{State: "suspended"})
	if rec.Code != http.StatusOK {
		t.Fatalf("State change failed: %d %s", rec.Code, rec.Body.String())
	}
	var suspended SupplierDTO
	decodeJSON(t, rec, &suspended)
	if suspended.State != "suspended" {
		t.Errorf("Expected suspended, got %q", suspended.State)
	}

	// A suspended supplier cannot take purchases
	p := createProduct(t, router, "Widget", "1000", 10)
	rec = doJSON(t, router, http.MethodPost, "/api/purchases", MovementRequest{
		ProductID:  p.ID,
		SupplierID: s.ID,
		Quantity:   5,
		UnitPrice:  decimal.RequireFromString("900"),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for suspended supplier, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetSupplier_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/suppliers/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// LINK ENDPOINTS
// =============================================================================

func TestLinkSupplier(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	// WHEN: Linking with a lead time and no explicit window
	lead := 14
	rec := doJSON(t, router, http.MethodPost, "/api/products/"+p.ID+"/suppliers", CreateLinkRequest{
		SupplierID:   s.ID,
		UnitPrice:    decimal.RequireFromString("900"),
		LeadTimeDays: &lead,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var link LinkDTO
	decodeJSON(t, rec, &link)
	if link.ProductID != p.ID || link.SupplierID != s.ID {
		t.Errorf("Link endpoints wrong: %+v", link)
	}
	if link.LeadTimeDays == nil || *link.LeadTimeDays != 14 {
		t.Errorf("Expected lead time 14, got %v", link.LeadTimeDays)
	}
	if link.ValidFrom == "" {
		t.Error("Empty valid_from should default to now")
	}
	if link.State != "active" {
		t.Errorf("Expected active link, got %q", link.State)
	}

	// Both directions list it
	rec = doJSON(t, router, http.MethodGet, "/api/products/"+p.ID+"/suppliers", nil)
	var byProduct []LinkDTO
	decodeJSON(t, rec, &byProduct)
	if len(byProduct) != 1 {
		t.Errorf("Expected 1 link on product, got %d", len(byProduct))
	}
	rec = doJSON(t, router, http.MethodGet, "/api/suppliers/"+s.ID+"/products", nil)
	var bySupplier []LinkDTO
	decodeJSON(t, rec, &bySupplier)
	if len(bySupplier) != 1 {
		t.Errorf("Expected 1 link on supplier, got %d", len(bySupplier))
	}

	// A second active link for the same pair is refused
	rec = doJSON(t, router, http.MethodPost, "/api/products/"+p.ID+"/suppliers", CreateLinkRequest{
		SupplierID: s.ID,
		UnitPrice:  decimal.RequireFromString("950"),
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate link, got %d: %s", rec.Code, rec.Body.String())
	}

	// Deactivate, then remove
	rec = doJSON(t, router, http.MethodPut, "/api/links/"+link.ID+"/state", SetStateRequest{State: "inactive"})
	if rec.Code != http.StatusOK {
		t.Fatalf("State change failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodDelete, "/api/links/"+link.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodGet, "/api/products/"+p.ID+"/suppliers", nil)
	decodeJSON(t, rec, &byProduct)
	if len(byProduct) != 0 {
		t.Errorf("Expected no links after delete, got %d", len(byProduct))
	}
}

func TestLinkSupplier_ExplicitWindow(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	rec := doJSON(t, router, http.MethodPost, "/api/products/"+p.ID+"/suppliers", CreateLinkRequest{
		SupplierID: s.ID,
		UnitPrice:  decimal.RequireFromString("900"),
		ValidFrom:  "2025-06-01T00:00:00Z",
		ValidTo:    "2025-12-31T00:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var link LinkDTO
	decodeJSON(t, rec, &link)
	if link.ValidFrom != "2025-06-01T00:00:00Z" {
		t.Errorf("Expected valid_from echoed, got %q", link.ValidFrom)
	}
	if link.ValidTo == nil || *link.ValidTo != "2025-12-31T00:00:00Z" {
		t.Errorf("Expected valid_to echoed, got %v", link.ValidTo)
	}
}

func TestLinkSupplier_BadTimestamp(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	rec := doJSON(t, router, http.MethodPost, "/api/products/"+p.ID+"/suppliers", CreateLinkRequest{
		SupplierID: s.ID,
		UnitPrice:  decimal.RequireFromString("900"),
		ValidFrom:  "last tuesday",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if resp.Error != "Invalid valid_from" {
		t.Errorf("Unexpected error: %q", resp.Error)
	}
}

func TestLinkSupplier_UnknownEnds(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)

	// Unknown supplier
	rec := doJSON(t, router, http.MethodPost, "/api/products/"+p.ID+"/suppliers", CreateLinkRequest{
		SupplierID: "nope",
		UnitPrice:  decimal.RequireFromString("900"),
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Unknown supplier: expected 404, got %d", rec.Code)
	}

	// Unknown product on the listing side
	rec = doJSON(t, router, http.MethodGet, "/api/products/nope/suppliers", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Unknown product: expected 404, got %d", rec.Code)
	}

	// Unknown link delete
	rec = doJSON(t, router, http.MethodDelete, "/api/links/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Unknown link: expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

func TestRecordPurchase(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "850000", 15)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	// WHEN: Buying 10 more units
	rec := doJSON(t, router, http.MethodPost, "/api/purchases", MovementRequest{
		ProductID:  p.ID,
		SupplierID: s.ID,
		Quantity:   10,
		UnitPrice:  decimal.RequireFromString("750000"),
		Note:       "Restock",
	})

	// THEN: The ledger entry comes back and stock rises
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tx TransactionDTO
	decodeJSON(t, rec, &tx)
	if tx.Kind != "purchase" {
		t.Errorf("Expected kind purchase, got %q", tx.Kind)
	}
	if tx.Quantity != 10 {
		t.Errorf("Expected quantity 10, got %d", tx.Quantity)
	}
	if !tx.Total.Equal(decimal.RequireFromString("7500000")) {
		t.Errorf("Expected total 7500000, got %s", tx.Total)
	}
	if tx.Note != "Restock" {
		t.Errorf("Expected note kept, got %q", tx.Note)
	}

	if got := getProduct(t, router, p.ID); got.Stock != 25 {
		t.Errorf("Expected stock 25 after purchase, got %d", got.Stock)
	}
}

func TestRecordSale(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 15)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	rec := doJSON(t, router, http.MethodPost, "/api/sales", MovementRequest{
		ProductID:  p.ID,
		SupplierID: s.ID,
		Quantity:   5,
		UnitPrice:  decimal.RequireFromString("1200"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tx TransactionDTO
	decodeJSON(t, rec, &tx)
	if tx.Kind != "sale" {
		t.Errorf("Expected kind sale, got %q", tx.Kind)
	}

	if got := getProduct(t, router, p.ID); got.Stock != 10 {
		t.Errorf("Expected stock 10 after sale, got %d", got.Stock)
	}
}

func TestRecordSale_InsufficientStock(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 3)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	// WHEN: Selling more than is on hand
	rec := doJSON(t, router, http.MethodPost, "/api/sales", MovementRequest{
		ProductID:  p.ID,
		SupplierID: s.ID,
		Quantity:   10,
		UnitPrice:  decimal.RequireFromString("1200"),
	})

	// THEN: 409 and nothing written
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp.Details, "available 3") {
		t.Errorf("Details should state availability, got %q", resp.Details)
	}

	if got := getProduct(t, router, p.ID); got.Stock != 3 {
		t.Errorf("Stock must be untouched, got %d", got.Stock)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/transactions?product_id="+p.ID, nil)
	var txs []TransactionDTO
	decodeJSON(t, rec, &txs)
	if len(txs) != 0 {
		t.Errorf("Expected empty ledger, got %d entries", len(txs))
	}
}

func TestTransfer(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 20)
	from := createSupplier(t, router, "Acme", "orders@acme.com")
	to := createSupplier(t, router, "Globex", "sales@globex.com")

	// WHEN: Rebooking 8 units from Acme to Globex
	rec := doJSON(t, router, http.MethodPost, "/api/transfers", TransferRequest{
		ProductID:      p.ID,
		FromSupplierID: from.ID,
		ToSupplierID:   to.ID,
		Quantity:       8,
		UnitPrice:      decimal.RequireFromString("950"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// THEN: Two legs share one transfer ID
	var tr TransferDTO
	decodeJSON(t, rec, &tr)
	if tr.TransferID == "" {
		t.Fatal("Expected a transfer ID")
	}
	if tr.SaleLeg.TransferID != tr.TransferID || tr.PurchaseLeg.TransferID != tr.TransferID {
		t.Error("Both legs must carry the transfer ID")
	}
	if tr.SaleLeg.Kind != "sale" || tr.PurchaseLeg.Kind != "purchase" {
		t.Errorf("Unexpected leg kinds: %q and %q", tr.SaleLeg.Kind, tr.PurchaseLeg.Kind)
	}
	if tr.SaleLeg.SupplierID != from.ID || tr.PurchaseLeg.SupplierID != to.ID {
		t.Error("Legs attached to the wrong suppliers")
	}

	// Net stock change is zero
	if got := getProduct(t, router, p.ID); got.Stock != 20 {
		t.Errorf("Expected stock unchanged at 20, got %d", got.Stock)
	}

	// Both legs are queryable by transfer ID
	rec = doJSON(t, router, http.MethodGet, "/api/transactions?transfer_id="+tr.TransferID, nil)
	var txs []TransactionDTO
	decodeJSON(t, rec, &txs)
	if len(txs) != 2 {
		t.Errorf("Expected 2 legs, got %d", len(txs))
	}
}

func TestTransfer_SameSupplier(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 20)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", TransferRequest{
		ProductID:      p.ID,
		FromSupplierID: s.ID,
		ToSupplierID:   s.ID,
		Quantity:       5,
		UnitPrice:      decimal.RequireFromString("900"),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTransfer_BeyondStock(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 20)
	from := createSupplier(t, router, "Acme", "orders@acme.com")
	to := createSupplier(t, router, "Globex", "sales@globex.com")

	rec := doJSON(t, router, http.MethodPost, "/api/transfers", TransferRequest{
		ProductID:      p.ID,
		FromSupplierID: from.ID,
		ToSupplierID:   to.ID,
		Quantity:       50,
		UnitPrice:      decimal.RequireFromString("900"),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	// No legs written
	rec = doJSON(t, router, http.MethodGet, "/api/transactions", nil)
	var txs []TransactionDTO
	decodeJSON(t, rec, &txs)
	if len(txs) != 0 {
		t.Errorf("Expected empty ledger, got %d entries", len(txs))
	}
}

func TestRecordSale_ConcurrentRequests(t *testing.T) {
	// GIVEN: Stock of exactly Q
	// WHEN: Two clients POST a sale of Q at the same time
	// THEN: One gets 201, the other 409, and the stock never goes negative

	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 5)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	payload, err := json.Marshal(MovementRequest{
		ProductID:  p.ID,
		SupplierID: s.ID,
		Quantity:   5,
		UnitPrice:  decimal.RequireFromString("1200"),
	})
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}

	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodPost, "/api/sales", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}

	first, second := <-codes, <-codes
	if first > second {
		first, second = second, first
	}
	if first != http.StatusCreated || second != http.StatusConflict {
		t.Fatalf("Expected one 201 and one 409, got %d and %d", first, second)
	}

	if got := getProduct(t, router, p.ID); got.Stock != 0 {
		t.Errorf("Expected stock 0 after the winning sale, got %d", got.Stock)
	}
	rec := doJSON(t, router, http.MethodGet, "/api/transactions?product_id="+p.ID, nil)
	var txs []TransactionDTO
	decodeJSON(t, rec, &txs)
	if len(txs) != 1 {
		t.Errorf("Expected exactly one ledger entry, got %d", len(txs))
	}
}

// =============================================================================
// REPORTING READS
// =============================================================================

func TestListTransactions_Filters(t *testing.T) {
	router, _ := newTestRouter(t)
	widget := createProduct(t, router, "Widget", "1000", 50)
	gadget := createProduct(t, router, "Gadget", "2000", 50)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	recordPurchase(t, router, widget.ID, s.ID, 10, "900")
	recordSale(t, router, widget.ID, s.ID, 4, "1200")
	recordPurchase(t, router, gadget.ID, s.ID, 6, "1800")

	// Everything, oldest first
	rec := doJSON(t, router, http.MethodGet, "/api/transactions", nil)
	var all []TransactionDTO
	decodeJSON(t, rec, &all)
	if len(all) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(all))
	}
	if all[0].Kind != "purchase" || all[0].ProductID != widget.ID {
		t.Errorf("Expected the widget purchase first, got %+v", all[0])
	}

	// By product
	rec = doJSON(t, router, http.MethodGet, "/api/transactions?product_id="+widget.ID, nil)
	var byProduct []TransactionDTO
	decodeJSON(t, rec, &byProduct)
	if len(byProduct) != 2 {
		t.Errorf("Expected 2 widget entries, got %d", len(byProduct))
	}

	// By kind
	rec = doJSON(t, router, http.MethodGet, "/api/transactions?kind=sale", nil)
	var sales []TransactionDTO
	decodeJSON(t, rec, &sales)
	if len(sales) != 1 || sales[0].Kind != "sale" {
		t.Errorf("Expected 1 sale, got %+v", sales)
	}

	// Limit keeps the oldest
	rec = doJSON(t, router, http.MethodGet, "/api/transactions?limit=1", nil)
	var limited []TransactionDTO
	decodeJSON(t, rec, &limited)
	if len(limited) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(limited))
	}
	if limited[0].ID != all[0].ID {
		t.Error("Limit should keep the oldest entry")
	}

	// A future from excludes everything
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	rec = doJSON(t, router, http.MethodGet, "/api/transactions?from="+future, nil)
	var none []TransactionDTO
	decodeJSON(t, rec, &none)
	if len(none) != 0 {
		t.Errorf("Expected no entries from %s, got %d", future, len(none))
	}
}

func TestListTransactions_BadFilter(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		name  string
		query string
	}{
		{"unknown kind", "?kind=donation"},
		{"bad from", "?from=yesterday"},
		{"bad to", "?to=2025-13-45"},
		{"negative limit", "?limit=-2"},
		{"non-numeric limit", "?limit=ten"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodGet, "/api/transactions"+tc.query, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestListPriceChanges(t *testing.T) {
	router, _ := newTestRouter(t)
	widget := createProduct(t, router, "Widget", "1000", 10)
	gadget := createProduct(t, router, "Gadget", "5000", 10)

	// Two in-guard repricings on the widget, one on the gadget
	for _, newPrice := range []string{"1100", "1200"} {
		rec := doJSON(t, router, http.MethodPut, "/api/products/"+widget.ID+"/price",
			UpdatePriceRequest{NewPrice: decimal.RequireFromString(newPrice)})
		if rec.Code != http.StatusOK {
			t.Fatalf("Repricing to %s failed: %s", newPrice, rec.Body.String())
		}
	}
	rec := doJSON(t, router, http.MethodPut, "/api/products/"+gadget.ID+"/price",
		UpdatePriceRequest{NewPrice: decimal.RequireFromString("4500")})
	if rec.Code != http.StatusOK {
		t.Fatalf("Repricing gadget failed: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/price-changes", nil)
	var all []PriceChangeDTO
	decodeJSON(t, rec, &all)
	if len(all) != 3 {
		t.Fatalf("Expected 3 changes, got %d", len(all))
	}

	// Filter by product, oldest first
	rec = doJSON(t, router, http.MethodGet, "/api/price-changes?product_id="+widget.ID, nil)
	var widgetOnly []PriceChangeDTO
	decodeJSON(t, rec, &widgetOnly)
	if len(widgetOnly) != 2 {
		t.Fatalf("Expected 2 widget changes, got %d", len(widgetOnly))
	}
	if !widgetOnly[0].NewPrice.Equal(decimal.RequireFromString("1100")) {
		t.Errorf("Expected oldest change first, got %s", widgetOnly[0].NewPrice)
	}

	// No X-Actor header means the system actor
	if widgetOnly[0].ChangedBy != "system" {
		t.Errorf("Expected system actor, got %q", widgetOnly[0].ChangedBy)
	}
}

func TestGetProductSummary(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)
	s := createSupplier(t, router, "Acme", "orders@acme.com")
	recordPurchase(t, router, p.ID, s.ID, 10, "100")
	recordSale(t, router, p.ID, s.ID, 5, "150")

	rec := doJSON(t, router, http.MethodGet, "/api/products/"+p.ID+"/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary inventory.LedgerSummary
	decodeJSON(t, rec, &summary)
	if summary.Entries != 2 || summary.Purchased != 10 || summary.Sold != 5 || summary.Net != 5 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if !summary.Spent.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Expected spent 1000, got %s", summary.Spent)
	}
	if !summary.Earned.Equal(decimal.RequireFromString("750")) {
		t.Errorf("Expected earned 750, got %s", summary.Earned)
	}

	// Unknown products 404 rather than returning an empty summary
	rec = doJSON(t, router, http.MethodGet, "/api/products/nope/summary", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// DELETION AND INTEGRITY
// =============================================================================

func TestDeleteProduct(t *testing.T) {
	router, _ := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 10)
	s := createSupplier(t, router, "Acme", "orders@acme.com")

	// A product with ledger history cannot be deleted
	recordPurchase(t, router, p.ID, s.ID, 5, "900")
	rec := doJSON(t, router, http.MethodDelete, "/api/products/"+p.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp.Details, "ledger entries") {
		t.Errorf("Details should explain the block, got %q", resp.Details)
	}
	if got := getProduct(t, router, p.ID); got.ID != p.ID {
		t.Error("Product should survive a refused delete")
	}

	// A product without history deletes cleanly
	fresh := createProduct(t, router, "Gadget", "2000", 0)
	rec = doJSON(t, router, http.MethodDelete, "/api/products/"+fresh.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodGet, "/api/products/"+fresh.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestIntegrityEndpoints(t *testing.T) {
	router, st := newTestRouter(t)
	p := createProduct(t, router, "Widget", "1000", 15)
	s := createSupplier(t, router, "Acme", "orders@acme.com")
	recordPurchase(t, router, p.ID, s.ID, 10, "900")
	recordSale(t, router, p.ID, s.ID, 2, "1200")

	// Consistent after engine operations
	rec := doJSON(t, router, http.MethodGet, "/api/products/"+p.ID+"/integrity", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report inventory.IntegrityReport
	decodeJSON(t, rec, &report)
	if !report.Consistent {
		t.Errorf("Expected consistent, got %+v", report)
	}
	if report.Stock != 23 || report.Expected != 23 {
		t.Errorf("Expected 23 both ways, got stock %d expected %d", report.Stock, report.Expected)
	}

	// Corrupt the cached stock behind the engine's back
	if err := st.UpdateProductStock(context.Background(), inventory.ProductID(p.ID), 99); err != nil {
		t.Fatalf("Failed to corrupt stock: %v", err)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/products/"+p.ID+"/integrity", nil)
	decodeJSON(t, rec, &report)
	if report.Consistent {
		t.Error("Expected the drift to be flagged")
	}
	if report.Drift() != 76 {
		t.Errorf("Expected drift 76, got %d", report.Drift())
	}

	// Whole-catalog audit carries the same verdict
	rec = doJSON(t, router, http.MethodGet, "/api/integrity", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var reports []inventory.IntegrityReport
	decodeJSON(t, rec, &reports)
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}
	if reports[0].Consistent {
		t.Error("Catalog audit should flag the drift")
	}

	// Unknown product
	rec = doJSON(t, router, http.MethodGet, "/api/products/nope/integrity", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
