/*
memory.go - In-memory store for tests and dev mode

PURPOSE:
  A map-backed implementation of inventory.Store with the same observable
  behavior as the SQLite store: write-time validation, typed not-found
  errors, email and link uniqueness, append-only ledger and price log.

TRANSACTIONS:
  TxMemory adds WithTx on top. The store's own write lock is held for the
  whole transaction, so every other caller waits for commit or rollback
  and uncommitted writes are never observable. The body runs against a
  txMemoryView whose methods skip locking; a deep snapshot taken before
  the body runs is restored if the body fails, so a failed operation
  leaves the store exactly as it found it.

CONCURRENCY:
  Public methods take m.mu. The *Locked internals assume it is held and
  back both the public surface and the transactional view, mirroring how
  the SQLite store reuses its dbtx helpers inside WithTx.

USAGE:
  st := store.NewTxMemory()
  eng := inventory.NewEngine(st, logger)

SEE ALSO:
  - store/sqlite/sqlite.go: The production implementation this mirrors
*/
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tradewind/stock-engine/inventory"
)

// Memory is a map-backed inventory.Store. Safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	products     map[inventory.ProductID]inventory.Product
	suppliers    map[inventory.SupplierID]inventory.Supplier
	links        map[inventory.LinkID]inventory.SupplierLink
	transactions []inventory.Transaction
	priceChanges []inventory.PriceChange
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		products:  make(map[inventory.ProductID]inventory.Product),
		suppliers: make(map[inventory.SupplierID]inventory.Supplier),
		links:     make(map[inventory.LinkID]inventory.SupplierLink),
	}
}

// =============================================================================
// PRODUCTS
// =============================================================================

// SaveProduct inserts a product. Stock at save time becomes the opening
// baseline whatever the caller put in InitialStock.
func (m *Memory) SaveProduct(ctx context.Context, p inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveProductLocked(p)
}

func (m *Memory) saveProductLocked(p inventory.Product) error {
	if err := inventory.ValidateProduct(p); err != nil {
		return err
	}
	if _, ok := m.products[p.ID]; ok {
		return &inventory.ValidationError{Field: "id", Reason: "product already exists"}
	}
	p.InitialStock = p.Stock
	m.products[p.ID] = p
	return nil
}

func (m *Memory) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getProductLocked(id)
}

func (m *Memory) getProductLocked(id inventory.ProductID) (*inventory.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, &inventory.NotFoundError{Entity: "product", ID: string(id)}
	}
	return &p, nil
}

func (m *Memory) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listProductsLocked()
}

func (m *Memory) listProductsLocked() ([]inventory.Product, error) {
	out := make([]inventory.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateProductInfo writes name, description, minimum stock, and state.
// Stock, price, and the opening baseline keep their stored values.
func (m *Memory) UpdateProductInfo(ctx context.Context, p inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateProductInfoLocked(p)
}

func (m *Memory) updateProductInfoLocked(p inventory.Product) error {
	cur, err := m.getProductLocked(p.ID)
	if err != nil {
		return err
	}
	next := *cur
	next.Name = p.Name
	next.Description = p.Description
	next.MinimumStock = p.MinimumStock
	next.State = p.State
	if err := inventory.ValidateProduct(next); err != nil {
		return err
	}
	m.products[next.ID] = next
	return nil
}

func (m *Memory) UpdateProductStock(ctx context.Context, id inventory.ProductID, stock int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateProductStockLocked(id, stock)
}

func (m *Memory) updateProductStockLocked(id inventory.ProductID, stock int64) error {
	if stock < 0 {
		return &inventory.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	cur, err := m.getProductLocked(id)
	if err != nil {
		return err
	}
	cur.Stock = stock
	m.products[id] = *cur
	return nil
}

func (m *Memory) UpdateProductPrice(ctx context.Context, id inventory.ProductID, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateProductPriceLocked(id, price)
}

func (m *Memory) updateProductPriceLocked(id inventory.ProductID, price decimal.Decimal) error {
	if !price.IsPositive() {
		return &inventory.ValidationError{Field: "unit_price", Reason: "must be greater than zero"}
	}
	cur, err := m.getProductLocked(id)
	if err != nil {
		return err
	}
	cur.UnitPrice = price
	m.products[id] = *cur
	return nil
}

// DeleteProduct removes the product and its links. Ledger references are
// the engine's guard, not this store's.
func (m *Memory) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteProductLocked(id)
}

func (m *Memory) deleteProductLocked(id inventory.ProductID) error {
	if _, err := m.getProductLocked(id); err != nil {
		return err
	}
	delete(m.products, id)
	for lid, l := range m.links {
		if l.ProductID == id {
			delete(m.links, lid)
		}
	}
	return nil
}

// =============================================================================
// SUPPLIERS
// =============================================================================

func (m *Memory) SaveSupplier(ctx context.Context, s inventory.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveSupplierLocked(s)
}

func (m *Memory) saveSupplierLocked(s inventory.Supplier) error {
	if err := inventory.ValidateSupplier(s); err != nil {
		return err
	}
	if _, ok := m.suppliers[s.ID]; ok {
		return &inventory.ValidationError{Field: "id", Reason: "supplier already exists"}
	}
	if err := m.checkEmailFreeLocked(s.Email, s.ID); err != nil {
		return err
	}
	m.suppliers[s.ID] = s
	return nil
}

func (m *Memory) GetSupplier(ctx context.Context, id inventory.SupplierID) (*inventory.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSupplierLocked(id)
}

func (m *Memory) getSupplierLocked(id inventory.SupplierID) (*inventory.Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return nil, &inventory.NotFoundError{Entity: "supplier", ID: string(id)}
	}
	return &s, nil
}

func (m *Memory) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listSuppliersLocked()
}

func (m *Memory) listSuppliersLocked() ([]inventory.Supplier, error) {
	out := make([]inventory.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateSupplier(ctx context.Context, s inventory.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSupplierLocked(s)
}

func (m *Memory) updateSupplierLocked(s inventory.Supplier) error {
	if err := inventory.ValidateSupplier(s); err != nil {
		return err
	}
	cur, err := m.getSupplierLocked(s.ID)
	if err != nil {
		return err
	}
	if err := m.checkEmailFreeLocked(s.Email, s.ID); err != nil {
		return err
	}
	s.CreatedAt = cur.CreatedAt
	m.suppliers[s.ID] = s
	return nil
}

// checkEmailFreeLocked is case-insensitive and skips the supplier itself.
func (m *Memory) checkEmailFreeLocked(email string, self inventory.SupplierID) error {
	for _, other := range m.suppliers {
		if other.ID != self && strings.EqualFold(other.Email, email) {
			return fmt.Errorf("%w: %s", inventory.ErrDuplicateEmail, email)
		}
	}
	return nil
}

// =============================================================================
// PRODUCT-SUPPLIER LINKS
// =============================================================================

func (m *Memory) SaveLink(ctx context.Context, l inventory.SupplierLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLinkLocked(l)
}

func (m *Memory) saveLinkLocked(l inventory.SupplierLink) error {
	if err := inventory.ValidateLink(l); err != nil {
		return err
	}
	if _, ok := m.links[l.ID]; ok {
		return &inventory.ValidationError{Field: "id", Reason: "link already exists"}
	}
	if _, err := m.getProductLocked(l.ProductID); err != nil {
		return err
	}
	if _, err := m.getSupplierLocked(l.SupplierID); err != nil {
		return err
	}
	if err := m.checkLinkFreeLocked(l); err != nil {
		return err
	}
	m.links[l.ID] = l
	return nil
}

func (m *Memory) GetLink(ctx context.Context, id inventory.LinkID) (*inventory.SupplierLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLinkLocked(id)
}

func (m *Memory) getLinkLocked(id inventory.LinkID) (*inventory.SupplierLink, error) {
	l, ok := m.links[id]
	if !ok {
		return nil, &inventory.NotFoundError{Entity: "link", ID: string(id)}
	}
	return &l, nil
}

func (m *Memory) LinksByProduct(ctx context.Context, id inventory.ProductID) ([]inventory.SupplierLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.linksByProductLocked(id)
}

func (m *Memory) linksByProductLocked(id inventory.ProductID) ([]inventory.SupplierLink, error) {
	out := make([]inventory.SupplierLink, 0)
	for _, l := range m.links {
		if l.ProductID == id {
			out = append(out, l)
		}
	}
	sortLinks(out)
	return out, nil
}

func (m *Memory) LinksBySupplier(ctx context.Context, id inventory.SupplierID) ([]inventory.SupplierLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.linksBySupplierLocked(id)
}

func (m *Memory) linksBySupplierLocked(id inventory.SupplierID) ([]inventory.SupplierLink, error) {
	out := make([]inventory.SupplierLink, 0)
	for _, l := range m.links {
		if l.SupplierID == id {
			out = append(out, l)
		}
	}
	sortLinks(out)
	return out, nil
}

func sortLinks(links []inventory.SupplierLink) {
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.Before(links[j].CreatedAt)
		}
		return links[i].ID < links[j].ID
	})
}

func (m *Memory) UpdateLink(ctx context.Context, l inventory.SupplierLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLinkLocked(l)
}

func (m *Memory) updateLinkLocked(l inventory.SupplierLink) error {
	if err := inventory.ValidateLink(l); err != nil {
		return err
	}
	cur, ok := m.links[l.ID]
	if !ok {
		return &inventory.NotFoundError{Entity: "link", ID: string(l.ID)}
	}
	if err := m.checkLinkFreeLocked(l); err != nil {
		return err
	}
	l.CreatedAt = cur.CreatedAt
	m.links[l.ID] = l
	return nil
}

func (m *Memory) DeleteLink(ctx context.Context, id inventory.LinkID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLinkLocked(id)
}

func (m *Memory) deleteLinkLocked(id inventory.LinkID) error {
	if _, ok := m.links[id]; !ok {
		return &inventory.NotFoundError{Entity: "link", ID: string(id)}
	}
	delete(m.links, id)
	return nil
}

// checkLinkFreeLocked enforces one link per (product, supplier, state),
// skipping the link itself on update.
func (m *Memory) checkLinkFreeLocked(l inventory.SupplierLink) error {
	for _, other := range m.links {
		if other.ID != l.ID &&
			other.ProductID == l.ProductID &&
			other.SupplierID == l.SupplierID &&
			other.State == l.State {
			return fmt.Errorf("%w: product %s, supplier %s", inventory.ErrDuplicateLink, l.ProductID, l.SupplierID)
		}
	}
	return nil
}

// =============================================================================
// LEDGER - append-only
// =============================================================================

func (m *Memory) AppendTransaction(ctx context.Context, t inventory.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendTransactionLocked(t)
}

func (m *Memory) appendTransactionLocked(t inventory.Transaction) error {
	if !t.Kind.IsValid() {
		return &inventory.ValidationError{Field: "kind", Reason: "unknown transaction kind"}
	}
	if t.Quantity <= 0 {
		return &inventory.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if !t.UnitPrice.IsPositive() {
		return &inventory.ValidationError{Field: "unit_price", Reason: "must be greater than zero"}
	}
	if _, err := m.getProductLocked(t.ProductID); err != nil {
		return err
	}
	if _, err := m.getSupplierLocked(t.SupplierID); err != nil {
		return err
	}
	m.transactions = append(m.transactions, t)
	return nil
}

func (m *Memory) Transactions(ctx context.Context, f inventory.TransactionFilter) ([]inventory.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsLocked(f)
}

func (m *Memory) transactionsLocked(f inventory.TransactionFilter) ([]inventory.Transaction, error) {
	out := make([]inventory.Transaction, 0)
	for _, t := range m.transactions {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	// Stable keeps insertion order for entries stamped in the same instant,
	// such as the two legs of a transfer.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) CountByProduct(ctx context.Context, id inventory.ProductID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countByProductLocked(id)
}

func (m *Memory) countByProductLocked(id inventory.ProductID) (int64, error) {
	var n int64
	for _, t := range m.transactions {
		if t.ProductID == id {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// PRICE LOG - append-only
// =============================================================================

// AppendPriceChange does not require the product to exist: the audit
// trail outlives product deletion.
func (m *Memory) AppendPriceChange(ctx context.Context, pc inventory.PriceChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendPriceChangeLocked(pc)
}

func (m *Memory) appendPriceChangeLocked(pc inventory.PriceChange) error {
	m.priceChanges = append(m.priceChanges, pc)
	return nil
}

func (m *Memory) PriceChanges(ctx context.Context, f inventory.PriceChangeFilter) ([]inventory.PriceChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.priceChangesLocked(f)
}

func (m *Memory) priceChangesLocked(f inventory.PriceChangeFilter) ([]inventory.PriceChange, error) {
	out := make([]inventory.PriceChange, 0)
	for _, pc := range m.priceChanges {
		if f.Matches(pc) {
			out = append(out, pc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.Before(out[j].ChangedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONAL WRAPPER
// =============================================================================

// TxMemory adds WithTx to Memory.
type TxMemory struct {
	*Memory
}

// NewTxMemory creates an empty transactional store.
func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx runs fn against a transactional view while holding the store's
// write lock, so no other caller observes the body's writes before they
// commit. On error every write fn made is undone and the error is
// returned unchanged.
func (t *TxMemory) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := t.snapshot()
	if err := fn(&txMemoryView{m: t.Memory}); err != nil {
		t.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	products     map[inventory.ProductID]inventory.Product
	suppliers    map[inventory.SupplierID]inventory.Supplier
	links        map[inventory.LinkID]inventory.SupplierLink
	transactions []inventory.Transaction
	priceChanges []inventory.PriceChange
}

// snapshot requires m.mu held.
func (m *Memory) snapshot() memorySnapshot {
	snap := memorySnapshot{
		products:     make(map[inventory.ProductID]inventory.Product, len(m.products)),
		suppliers:    make(map[inventory.SupplierID]inventory.Supplier, len(m.suppliers)),
		links:        make(map[inventory.LinkID]inventory.SupplierLink, len(m.links)),
		transactions: make([]inventory.Transaction, len(m.transactions)),
		priceChanges: make([]inventory.PriceChange, len(m.priceChanges)),
	}
	for id, p := range m.products {
		snap.products[id] = p
	}
	for id, s := range m.suppliers {
		snap.suppliers[id] = s
	}
	for id, l := range m.links {
		snap.links[id] = l
	}
	copy(snap.transactions, m.transactions)
	copy(snap.priceChanges, m.priceChanges)
	return snap
}

// restore requires m.mu held.
func (m *Memory) restore(snap memorySnapshot) {
	m.products = snap.products
	m.suppliers = snap.suppliers
	m.links = snap.links
	m.transactions = snap.transactions
	m.priceChanges = snap.priceChanges
}

// txMemoryView is the store a WithTx body runs against. The transaction
// already holds the write lock, so every method goes straight to the
// *Locked internals.
type txMemoryView struct {
	m *Memory
}

func (v *txMemoryView) SaveProduct(ctx context.Context, p inventory.Product) error {
	return v.m.saveProductLocked(p)
}

func (v *txMemoryView) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	return v.m.getProductLocked(id)
}

func (v *txMemoryView) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	return v.m.listProductsLocked()
}

func (v *txMemoryView) UpdateProductInfo(ctx context.Context, p inventory.Product) error {
	return v.m.updateProductInfoLocked(p)
}

func (v *txMemoryView) UpdateProductStock(ctx context.Context, id inventory.ProductID, stock int64) error {
	return v.m.updateProductStockLocked(id, stock)
}

func (v *txMemoryView) UpdateProductPrice(ctx context.Context, id inventory.ProductID, price decimal.Decimal) error {
	return v.m.updateProductPriceLocked(id, price)
}

func (v *txMemoryView) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	return v.m.deleteProductLocked(id)
}

func (v *txMemoryView) SaveSupplier(ctx context.Context, s inventory.Supplier) error {
	return v.m.saveSupplierLocked(s)
}

func (v *txMemoryView) GetSupplier(ctx context.Context, id inventory.SupplierID) (*inventory.Supplier, error) {
	return v.m.getSupplierLocked(id)
}

func (v *txMemoryView) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	return v.m.listSuppliersLocked()
}

func (v *txMemoryView) UpdateSupplier(ctx context.Context, s inventory.Supplier) error {
	return v.m.updateSupplierLocked(s)
}

func (v *txMemoryView) SaveLink(ctx context.Context, l inventory.SupplierLink) error {
	return v.m.saveLinkLocked(l)
}

func (v *txMemoryView) GetLink(ctx context.Context, id inventory.LinkID) (*inventory.SupplierLink, error) {
	return v.m.getLinkLocked(id)
}

func (v *txMemoryView) LinksByProduct(ctx context.Context, id inventory.ProductID) ([]inventory.SupplierLink, error) {
	return v.m.linksByProductLocked(id)
}

func (v *txMemoryView) LinksBySupplier(ctx context.Context, id inventory.SupplierID) ([]inventory.SupplierLink, error) {
	return v.m.linksBySupplierLocked(id)
}

func (v *txMemoryView) UpdateLink(ctx context.Context, l inventory.SupplierLink) error {
	return v.m.updateLinkLocked(l)
}

func (v *txMemoryView) DeleteLink(ctx context.Context, id inventory.LinkID) error {
	return v.m.deleteLinkLocked(id)
}

func (v *txMemoryView) AppendTransaction(ctx context.Context, t inventory.Transaction) error {
	return v.m.appendTransactionLocked(t)
}

func (v *txMemoryView) Transactions(ctx context.Context, f inventory.TransactionFilter) ([]inventory.Transaction, error) {
	return v.m.transactionsLocked(f)
}

func (v *txMemoryView) CountByProduct(ctx context.Context, id inventory.ProductID) (int64, error) {
	return v.m.countByProductLocked(id)
}

func (v *txMemoryView) AppendPriceChange(ctx context.Context, pc inventory.PriceChange) error {
	return v.m.appendPriceChangeLocked(pc)
}

func (v *txMemoryView) PriceChanges(ctx context.Context, f inventory.PriceChangeFilter) ([]inventory.PriceChange, error) {
	return v.m.priceChangesLocked(f)
}
