/*
handlers.go - HTTP API handlers for the inventory system

PURPOSE:
  Exposes the inventory engine and catalog via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Products:
    GET    /api/products                 List all products
    POST   /api/products                 Register a product
    GET    /api/products/low-stock       Products under their minimum
    GET    /api/products/{id}            Get product details
    PUT    /api/products/{id}            Edit metadata (not stock/price)
    DELETE /api/products/{id}            Delete (refused while referenced)
    PUT    /api/products/{id}/state      Lifecycle transition
    PUT    /api/products/{id}/price      Guarded, audited repricing
    GET    /api/products/{id}/suppliers  Links on a product
    POST   /api/products/{id}/suppliers  Link a supplier
    GET    /api/products/{id}/summary    Ledger totals for a product
    GET    /api/products/{id}/integrity  Stock-vs-ledger audit

  Suppliers:
    GET    /api/suppliers                List all suppliers
    POST   /api/suppliers                Register a supplier
    GET    /api/suppliers/{id}           Get supplier details
    PUT    /api/suppliers/{id}           Edit contact details
    PUT    /api/suppliers/{id}/state     Lifecycle transition
    GET    /api/suppliers/{id}/products  Links a supplier appears on

  Links:
    PUT    /api/links/{id}/state         Lifecycle transition
    DELETE /api/links/{id}               Remove a link

  Ledger:
    POST   /api/purchases                Record a purchase
    POST   /api/sales                    Record a sale
    POST   /api/transfers                Rebook stock between suppliers
    GET    /api/transactions             Filtered ledger query
    GET    /api/price-changes            Repricing audit query
    GET    /api/integrity                Audit every product

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: Validation errors, malformed bodies and query params
  - 404: Unknown product/supplier/link
  - 409: Insufficient stock, delete of a referenced product, duplicates
  - 422: Inactive entity, price change beyond the 20% guard
  - 503: Operation timed out waiting for the product lock
  - 500: Everything else

ACTOR IDENTITY:
  Mutations read the X-Actor header. Absent means the engine records the
  change as "system". Nothing verifies the header; upstream auth owns that.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tradewind/stock-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *inventory.Engine
	Catalog   *inventory.Catalog
	Ledger    *inventory.Ledger
	Integrity *inventory.IntegrityChecker

	// OpTimeout bounds each mutating operation: lock wait plus commit.
	OpTimeout time.Duration
}

// NewHandler creates a handler wired to the given store.
func NewHandler(store inventory.TxStore, logger *zap.Logger, opTimeout time.Duration) *Handler {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Handler{
		Engine:    inventory.NewEngine(store, logger),
		Catalog:   inventory.NewCatalog(store),
		Ledger:    inventory.NewLedger(store),
		Integrity: inventory.NewIntegrityChecker(store),
		OpTimeout: opTimeout,
	}
}

// opCtx bounds a mutating operation. A request canceled or timed out
// while waiting for a product lock aborts with nothing written.
func (h *Handler) opCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.OpTimeout)
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.Products(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// CreateProduct registers a product with its opening stock.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Catalog.CreateProduct(r.Context(), req.Name, req.Description, req.UnitPrice, req.Stock, req.MinimumStock)
	if err != nil {
		writeError(w, statusFor(err), "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(*p))
}

// ListLowStock returns products under their minimum-stock threshold.
// GET /api/products/low-stock
func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.LowStock(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Failed to list low-stock products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// GetProduct returns one product.
// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	p, err := h.Catalog.Product(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// UpdateProduct edits product metadata. Stock and price are not
// reachable from here.
// PUT /api/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Catalog.UpdateProductInfo(r.Context(), id, req.Name, req.Description, req.MinimumStock)
	if err != nil {
		writeError(w, statusFor(err), "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// DeleteProduct removes a product. Refused with 409 while ledger entries
// reference it.
// DELETE /api/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	ctx, cancel := h.opCtx(r)
	defer cancel()

	if err := h.Engine.DeleteProduct(ctx, id); err != nil {
		writeError(w, statusFor(err), "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetProductState moves a product through its lifecycle.
// PUT /api/products/{id}/state
func (h *Handler) SetProductState(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Catalog.SetProductState(r.Context(), id, inventory.ProductState(req.State))
	if err != nil {
		writeError(w, statusFor(err), "Failed to change product state", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// UpdatePrice reprices a product within the 20% guard. A no-op price is
// accepted and reported as unchanged, with no audit record.
// PUT /api/products/{id}/price
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	var req UpdatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx, cancel := h.opCtx(r)
	defer cancel()

	change, err := h.Engine.UpdatePrice(ctx, id, req.NewPrice, r.Header.Get("X-Actor"))
	if err != nil {
		writeError(w, statusFor(err), "Failed to update price", err)
		return
	}
	if change == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "unchanged"})
		return
	}
	writeJSON(w, http.StatusOK, toPriceChangeDTO(*change))
}

// GetProductSummary totals a product's ledger history.
// GET /api/products/{id}/summary
func (h *Handler) GetProductSummary(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	// 404 for unknown products; an empty summary would be misleading.
	if _, err := h.Catalog.Product(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to get product", err)
		return
	}

	summary, err := h.Ledger.Summary(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to summarize ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CheckProductIntegrity audits one product against its ledger.
// GET /api/products/{id}/integrity
func (h *Handler) CheckProductIntegrity(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	report, err := h.Integrity.CheckProduct(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to check integrity", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// SUPPLIER HANDLERS
// =============================================================================

// ListSuppliers returns all suppliers.
// GET /api/suppliers
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Catalog.Suppliers(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Failed to list suppliers", err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTOs(suppliers))
}

// CreateSupplier registers a supplier.
// POST /api/suppliers
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Catalog.CreateSupplier(r.Context(), req.Name, req.Contact, req.Phone, req.Email, req.Address)
	if err != nil {
		writeError(w, statusFor(err), "Failed to create supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSupplierDTO(*s))
}

// GetSupplier returns one supplier.
// GET /api/suppliers/{id}
func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id := inventory.SupplierID(chi.URLParam(r, "id"))

	s, err := h.Catalog.Supplier(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get supplier", err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(*s))
}

// UpdateSupplier edits supplier contact details.
// PUT /api/suppliers/{id}
func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id := inventory.SupplierID(chi.URLParam(r, "id"))

	var req SupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Catalog.UpdateSupplier(r.Context(), id, req.Name, req.Contact, req.Phone, req.Email, req.Address)
	if err != nil {
		writeError(w, statusFor(err), "Failed to update supplier", err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(*s))
}

// SetSupplierState moves a supplier through its lifecycle.
// PUT /api/suppliers/{id}/state
func (h *Handler) SetSupplierState(w http.ResponseWriter, r *http.Request) {
	id := inventory.SupplierID(chi.URLParam(r, "id"))

	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Catalog.SetSupplierState(r.Context(), id, inventory.SupplierState(req.State))
	if err != nil {
		writeError(w, statusFor(err), "Failed to change supplier state", err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(*s))
}

// ListSupplierProducts returns the links a supplier appears on.
// GET /api/suppliers/{id}/products
func (h *Handler) ListSupplierProducts(w http.ResponseWriter, r *http.Request) {
	id := inventory.SupplierID(chi.URLParam(r, "id"))

	if _, err := h.Catalog.Supplier(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to get supplier", err)
		return
	}

	links, err := h.Catalog.SupplierProducts(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to list supplier links", err)
		return
	}
	writeJSON(w, http.StatusOK, toLinkDTOs(links))
}

// =============================================================================
// LINK HANDLERS
// =============================================================================

// ListProductSuppliers returns the links on a product.
// GET /api/products/{id}/suppliers
func (h *Handler) ListProductSuppliers(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	if _, err := h.Catalog.Product(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to get product", err)
		return
	}

	links, err := h.Catalog.ProductSuppliers(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to list product links", err)
		return
	}
	writeJSON(w, http.StatusOK, toLinkDTOs(links))
}

// LinkSupplier links a supplier to the product in the URL.
// POST /api/products/{id}/suppliers
func (h *Handler) LinkSupplier(w http.ResponseWriter, r *http.Request) {
	productID := inventory.ProductID(chi.URLParam(r, "id"))

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	validFrom := time.Now().UTC()
	if req.ValidFrom != "" {
		t, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid valid_from", err)
			return
		}
		validFrom = t
	}
	var validTo *time.Time
	if req.ValidTo != "" {
		t, err := time.Parse(time.RFC3339, req.ValidTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid valid_to", err)
			return
		}
		validTo = &t
	}

	l, err := h.Catalog.LinkSupplier(r.Context(), productID, inventory.SupplierID(req.SupplierID),
		req.UnitPrice, req.LeadTimeDays, validFrom, validTo)
	if err != nil {
		writeError(w, statusFor(err), "Failed to link supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLinkDTO(*l))
}

// SetLinkState moves a link through its lifecycle.
// PUT /api/links/{id}/state
func (h *Handler) SetLinkState(w http.ResponseWriter, r *http.Request) {
	id := inventory.LinkID(chi.URLParam(r, "id"))

	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	l, err := h.Catalog.SetLinkState(r.Context(), id, inventory.LinkState(req.State))
	if err != nil {
		writeError(w, statusFor(err), "Failed to change link state", err)
		return
	}
	writeJSON(w, http.StatusOK, toLinkDTO(*l))
}

// DeleteLink removes a product-supplier link.
// DELETE /api/links/{id}
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id := inventory.LinkID(chi.URLParam(r, "id"))

	if err := h.Catalog.Unlink(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to delete link", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

// RecordPurchase records a purchase and raises stock.
// POST /api/purchases
func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx, cancel := h.opCtx(r)
	defer cancel()

	tx, err := h.Engine.RecordPurchase(ctx, inventory.ProductID(req.ProductID),
		inventory.SupplierID(req.SupplierID), req.Quantity, req.UnitPrice, req.Note)
	if err != nil {
		writeError(w, statusFor(err), "Failed to record purchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// RecordSale records a sale and lowers stock. 409 when stock cannot
// cover the quantity.
// POST /api/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx, cancel := h.opCtx(r)
	defer cancel()

	tx, err := h.Engine.RecordSale(ctx, inventory.ProductID(req.ProductID),
		inventory.SupplierID(req.SupplierID), req.Quantity, req.UnitPrice, req.Note)
	if err != nil {
		writeError(w, statusFor(err), "Failed to record sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// Transfer rebooks stock between suppliers: two tagged ledger entries,
// no net stock change.
// POST /api/transfers
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx, cancel := h.opCtx(r)
	defer cancel()

	result, err := h.Engine.Transfer(ctx, inventory.ProductID(req.ProductID),
		inventory.SupplierID(req.FromSupplierID), inventory.SupplierID(req.ToSupplierID),
		req.Quantity, req.UnitPrice)
	if err != nil {
		writeError(w, statusFor(err), "Failed to transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(*result))
}

// =============================================================================
// REPORTING READS
// =============================================================================

// ListTransactions queries the ledger.
// GET /api/transactions?product_id=&supplier_id=&kind=&transfer_id=&from=&to=&limit=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	txs, err := h.Ledger.Entries(r.Context(), filter)
	if err != nil {
		writeError(w, statusFor(err), "Failed to query transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// ListPriceChanges queries the repricing audit trail.
// GET /api/price-changes?product_id=&from=&to=&limit=
func (h *Handler) ListPriceChanges(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePriceChangeFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	changes, err := h.Ledger.PriceHistory(r.Context(), filter)
	if err != nil {
		writeError(w, statusFor(err), "Failed to query price changes", err)
		return
	}
	writeJSON(w, http.StatusOK, toPriceChangeDTOs(changes))
}

// CheckIntegrity audits every product against the ledger.
// GET /api/integrity
func (h *Handler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Integrity.CheckAll(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Failed to check integrity", err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTransactionFilter(r *http.Request) (inventory.TransactionFilter, error) {
	var f inventory.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("product_id"); v != "" {
		id := inventory.ProductID(v)
		f.ProductID = &id
	}
	if v := q.Get("supplier_id"); v != "" {
		id := inventory.SupplierID(v)
		f.SupplierID = &id
	}
	if v := q.Get("kind"); v != "" {
		kind := inventory.TransactionKind(v)
		if !kind.IsValid() {
			return f, fmt.Errorf("unknown kind %q", v)
		}
		f.Kind = &kind
	}
	if v := q.Get("transfer_id"); v != "" {
		f.TransferID = &v
	}

	var err error
	if f.From, err = parseTimeParam(q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseTimeParam(q.Get("to")); err != nil {
		return f, err
	}
	if f.Limit, err = parseLimitParam(q.Get("limit")); err != nil {
		return f, err
	}
	return f, nil
}

func parsePriceChangeFilter(r *http.Request) (inventory.PriceChangeFilter, error) {
	var f inventory.PriceChangeFilter
	q := r.URL.Query()

	if v := q.Get("product_id"); v != "" {
		id := inventory.ProductID(v)
		f.ProductID = &id
	}

	var err error
	if f.From, err = parseTimeParam(q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseTimeParam(q.Get("to")); err != nil {
		return f, err
	}
	if f.Limit, err = parseLimitParam(q.Get("limit")); err != nil {
		return f, err
	}
	return f, nil
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", v, err)
	}
	return &t, nil
}

func parseLimitParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case inventory.IsNotFound(err):
		return http.StatusNotFound
	case inventory.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrExcessivePriceChange),
		errors.Is(err, inventory.ErrInactiveEntity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
