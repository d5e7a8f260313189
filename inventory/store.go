/*
store.go - Persistence interfaces for the catalog, ledger, and price log

PURPOSE:
  Defines the interface between the domain logic and the database. Different
  implementations can use SQLite or in-memory storage; the engine only ever
  sees these interfaces.

KEY INTERFACES:
  CatalogStore: Product/Supplier/SupplierLink lifecycle
  LedgerStore:  Append-only transaction persistence and filtered reads
  PriceLog:     Append-only price-change audit records
  Store:        The union of the three read/write surfaces
  TxStore:      Store plus WithTx for atomic multi-write operations

APPEND-ONLY CONTRACT:
  LedgerStore and PriceLog expose Append and read methods only. There is no
  update or delete for transactions or price changes, and DeleteProduct must
  fail while any transaction references the product.

STOCK OWNERSHIP:
  UpdateProductStock and UpdateProductPrice exist so the engine can write
  exactly the column it owns. UpdateProductInfo covers the metadata fields
  (name, description, minimum stock, state) and never touches stock or
  price, so catalog edits cannot clobber a concurrent engine write.

ATOMIC UNITS:
  WithTx(ctx, fn) runs fn against a transactional view of the store. If fn
  returns an error every write inside it is rolled back. The engine wraps
  each operation's read-check-write span in one WithTx call.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - inventory/store/memory.go: In-memory for tests and dev mode

SEE ALSO:
  - engine.go: The only writer of stock and price columns
  - ledger.go: Read-side facade over LedgerStore
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG STORE
// =============================================================================

// CatalogStore owns Product, Supplier, and SupplierLink lifecycle. Every
// write validates field rules first (validate.go) and returns a typed error
// on violation. Get methods return a NotFoundError for missing rows.
type CatalogStore interface {
	// SaveProduct inserts a product. The opening stock baseline is captured
	// from Stock at save time.
	SaveProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// UpdateProductInfo writes name, description, minimum stock, and state.
	// Stock, price, and the opening baseline are left untouched.
	UpdateProductInfo(ctx context.Context, p Product) error

	// UpdateProductStock writes the cached stock quantity. Engine use only.
	UpdateProductStock(ctx context.Context, id ProductID, stock int64) error

	// UpdateProductPrice writes the unit price. Engine use only.
	UpdateProductPrice(ctx context.Context, id ProductID, price decimal.Decimal) error

	// DeleteProduct removes a product and its supplier links. It does NOT
	// check ledger references; the engine guards that before calling.
	DeleteProduct(ctx context.Context, id ProductID) error

	// SaveSupplier inserts a supplier, enforcing email uniqueness.
	SaveSupplier(ctx context.Context, s Supplier) error
	GetSupplier(ctx context.Context, id SupplierID) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	// UpdateSupplier writes all supplier fields, enforcing email uniqueness
	// against the other suppliers.
	UpdateSupplier(ctx context.Context, s Supplier) error

	// SaveLink inserts a link, enforcing the one-link-per
	// (product, supplier, state) rule.
	SaveLink(ctx context.Context, l SupplierLink) error
	GetLink(ctx context.Context, id LinkID) (*SupplierLink, error)
	LinksByProduct(ctx context.Context, id ProductID) ([]SupplierLink, error)
	LinksBySupplier(ctx context.Context, id SupplierID) ([]SupplierLink, error)
	UpdateLink(ctx context.Context, l SupplierLink) error
	DeleteLink(ctx context.Context, id LinkID) error
}

// =============================================================================
// LEDGER STORE - Append-only
// =============================================================================

// LedgerStore persists transactions. Append-only: no update, no delete.
type LedgerStore interface {
	// AppendTransaction persists one ledger entry. This is the only write.
	AppendTransaction(ctx context.Context, t Transaction) error

	// Transactions returns entries matching the filter, ordered by
	// occurrence time then insertion.
	Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)

	// CountByProduct returns how many ledger entries reference a product.
	// Used by the deletion guard.
	CountByProduct(ctx context.Context, id ProductID) (int64, error)
}

// TransactionFilter selects ledger entries. Nil fields match everything;
// From and To are inclusive bounds on the occurrence time.
type TransactionFilter struct {
	ProductID  *ProductID
	SupplierID *SupplierID
	Kind       *TransactionKind
	TransferID *string
	From       *time.Time
	To         *time.Time
	Limit      int // 0 means no limit
}

// Matches reports whether a transaction passes every set field. The memory
// store filters with this; the SQLite store compiles it to a WHERE clause.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.ProductID != nil && t.ProductID != *f.ProductID {
		return false
	}
	if f.SupplierID != nil && t.SupplierID != *f.SupplierID {
		return false
	}
	if f.Kind != nil && t.Kind != *f.Kind {
		return false
	}
	if f.TransferID != nil && t.TransferID != *f.TransferID {
		return false
	}
	if f.From != nil && t.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && t.OccurredAt.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// PRICE LOG - Append-only audit of repricings
// =============================================================================

// PriceLog persists price-change audit records. Also append-only.
type PriceLog interface {
	AppendPriceChange(ctx context.Context, pc PriceChange) error
	PriceChanges(ctx context.Context, f PriceChangeFilter) ([]PriceChange, error)
}

// PriceChangeFilter selects audit records. Nil fields match everything.
type PriceChangeFilter struct {
	ProductID *ProductID
	From      *time.Time
	To        *time.Time
	Limit     int
}

// Matches reports whether a price change passes every set field.
func (f PriceChangeFilter) Matches(pc PriceChange) bool {
	if f.ProductID != nil && pc.ProductID != *f.ProductID {
		return false
	}
	if f.From != nil && pc.ChangedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && pc.ChangedAt.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// COMBINED SURFACES
// =============================================================================

// Store is the full persistence surface.
type Store interface {
	CatalogStore
	LedgerStore
	PriceLog
}

// TxStore wraps Store with transaction support. The engine requires it:
// every mutating operation runs its read-check-write span inside WithTx.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view. If fn returns an
	// error the transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
