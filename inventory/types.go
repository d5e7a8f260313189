/*
Package inventory provides the core inventory ledger and consistency engine.

PURPOSE:
  This package contains the data model and algorithms for tracking stock in
  a trading business. Products are bought from suppliers and sold onward;
  every movement is an immutable ledger entry, and the engine guarantees the
  cached stock count on a product always equals the net of its recorded
  movements, even under concurrent writers and partial failures.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: A catalog item with a cached, engine-owned stock quantity
  - Supplier: A trading partner with a unique, format-validated email
  - SupplierLink: The priced relationship between a product and a supplier
  - Transaction: An immutable ledger entry recording one stock movement
  - PriceChange: An audit record written whenever a product is repriced

DESIGN PRINCIPLES:
  1. Immutability: Transactions and PriceChanges are never modified
  2. Precision: Uses decimal.Decimal for money to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing product/supplier IDs
  4. Single Writer: Product.Stock is mutated only through the Engine

USAGE:
  product := inventory.NewProduct("Widget", "blue, 10cm", price, 15)
  engine := inventory.NewEngine(store, logger)
  entry, err := engine.RecordPurchase(ctx, product.ID, supplier.ID, 10, cost, "")

SEE ALSO:
  - engine.go: The locked mutation path for stock and prices
  - ledger.go: Read-side queries over the transaction history
  - store.go: Persistence interfaces
*/
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type SupplierID string
type LinkID string
type TransactionID string
type PriceChangeID string

// =============================================================================
// PRODUCT - Catalog item with engine-owned stock
// =============================================================================

type ProductState string

const (
	ProductActive       ProductState = "active"
	ProductInactive     ProductState = "inactive"
	ProductDiscontinued ProductState = "discontinued"
)

func (s ProductState) IsValid() bool {
	switch s {
	case ProductActive, ProductInactive, ProductDiscontinued:
		return true
	}
	return false
}

// Product is a catalog item. Stock is a cached quantity owned by the Engine:
// it is written only inside the engine's locked path, never directly.
// InitialStock is the opening quantity captured at creation and is immutable
// afterwards; it is the baseline the integrity check measures against.
type Product struct {
	ID           ProductID
	Name         string
	Description  string
	UnitPrice    decimal.Decimal
	Stock        int64
	InitialStock int64
	MinimumStock int64
	State        ProductState
	CreatedAt    time.Time
}

// NewProduct creates an active product with the given opening stock.
func NewProduct(name, description string, unitPrice decimal.Decimal, stock int64) Product {
	return Product{
		ID:           ProductID(uuid.NewString()),
		Name:         name,
		Description:  description,
		UnitPrice:    unitPrice,
		Stock:        stock,
		InitialStock: stock,
		State:        ProductActive,
		CreatedAt:    time.Now().UTC(),
	}
}

// LowOnStock reports whether the cached stock has fallen below the
// configured minimum. Zero minimum means no threshold.
func (p Product) LowOnStock() bool {
	return p.MinimumStock > 0 && p.Stock < p.MinimumStock
}

// =============================================================================
// SUPPLIER
// =============================================================================

type SupplierState string

const (
	SupplierActive    SupplierState = "active"
	SupplierInactive  SupplierState = "inactive"
	SupplierSuspended SupplierState = "suspended"
)

func (s SupplierState) IsValid() bool {
	switch s {
	case SupplierActive, SupplierInactive, SupplierSuspended:
		return true
	}
	return false
}

// Supplier is a trading partner. Email is unique across suppliers and must
// have a local@domain.tld shape; Phone may contain only digits and common
// punctuation. Both rules are enforced at write time by the stores.
type Supplier struct {
	ID        SupplierID
	Name      string
	Contact   string
	Phone     string
	Email     string
	Address   string
	State     SupplierState
	CreatedAt time.Time
}

// NewSupplier creates an active supplier.
func NewSupplier(name, contact, phone, email, address string) Supplier {
	return Supplier{
		ID:        SupplierID(uuid.NewString()),
		Name:      name,
		Contact:   contact,
		Phone:     phone,
		Email:     email,
		Address:   address,
		State:     SupplierActive,
		CreatedAt: time.Now().UTC(),
	}
}

// =============================================================================
// SUPPLIER LINK - Priced product/supplier relationship
// =============================================================================

type LinkState string

const (
	LinkActive   LinkState = "active"
	LinkInactive LinkState = "inactive"
	LinkPending  LinkState = "pending"
)

func (s LinkState) IsValid() bool {
	switch s {
	case LinkActive, LinkInactive, LinkPending:
		return true
	}
	return false
}

// SupplierLink records that a supplier furnishes a product at a given price.
// At most one link may exist per (product, supplier, state), so a pair has a
// single active link while historical inactive links may persist.
type SupplierLink struct {
	ID           LinkID
	ProductID    ProductID
	SupplierID   SupplierID
	UnitPrice    decimal.Decimal
	LeadTimeDays *int // nil when unknown; must be positive when set
	ValidFrom    time.Time
	ValidTo      *time.Time // nil for open-ended; must not precede ValidFrom
	State        LinkState
	CreatedAt    time.Time
}

// NewSupplierLink creates an active link with an open-ended validity window.
func NewSupplierLink(productID ProductID, supplierID SupplierID, unitPrice decimal.Decimal, validFrom time.Time) SupplierLink {
	return SupplierLink{
		ID:         LinkID(uuid.NewString()),
		ProductID:  productID,
		SupplierID: supplierID,
		UnitPrice:  unitPrice,
		ValidFrom:  validFrom,
		State:      LinkActive,
		CreatedAt:  time.Now().UTC(),
	}
}

// =============================================================================
// TRANSACTION - Immutable ledger entry for one stock movement
// =============================================================================

type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase" // stock in from a supplier
	KindSale     TransactionKind = "sale"     // stock out
)

func (k TransactionKind) IsValid() bool {
	return k == KindPurchase || k == KindSale
}

// Transaction is one entry in the append-only ledger. Once written it is
// never updated or deleted; a product with any transaction history cannot
// be deleted either. TransferID ties together the two legs of a
// supplier-to-supplier transfer and is empty for ordinary movements.
type Transaction struct {
	ID         TransactionID
	ProductID  ProductID
	SupplierID SupplierID
	Kind       TransactionKind
	Quantity   int64
	UnitPrice  decimal.Decimal
	OccurredAt time.Time
	Note       string
	TransferID string
	CreatedAt  time.Time
}

// NewTransaction creates a ledger entry effective at the given time.
func NewTransaction(productID ProductID, supplierID SupplierID, kind TransactionKind, quantity int64, unitPrice decimal.Decimal, at time.Time) Transaction {
	return Transaction{
		ID:         TransactionID(uuid.NewString()),
		ProductID:  productID,
		SupplierID: supplierID,
		Kind:       kind,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		OccurredAt: at,
		CreatedAt:  at,
	}
}

// Total is the monetary value of the movement (quantity times unit price).
func (t Transaction) Total() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// SignedQuantity is the stock delta this entry represents: positive for a
// purchase, negative for a sale.
func (t Transaction) SignedQuantity() int64 {
	if t.Kind == KindSale {
		return -t.Quantity
	}
	return t.Quantity
}

// =============================================================================
// PRICE CHANGE - Audit record for product repricing
// =============================================================================

// PriceChange captures one accepted repricing of a product. It is written
// as a side effect of the engine's price update and never mutated. A price
// update that keeps the same value writes no record.
type PriceChange struct {
	ID        PriceChangeID
	ProductID ProductID
	OldPrice  decimal.Decimal
	NewPrice  decimal.Decimal
	ChangedBy string
	ChangedAt time.Time
}

// NewPriceChange creates an audit record for an accepted repricing.
func NewPriceChange(productID ProductID, oldPrice, newPrice decimal.Decimal, actor string, at time.Time) PriceChange {
	return PriceChange{
		ID:        PriceChangeID(uuid.NewString()),
		ProductID: productID,
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
		ChangedBy: actor,
		ChangedAt: at,
	}
}
