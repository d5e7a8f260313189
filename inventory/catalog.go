/*
catalog.go - Catalog maintenance: products, suppliers, and their links

PURPOSE:
  Everything that manages WHAT can be traded, as opposed to the trading
  itself. Creation, metadata edits, lifecycle state changes, and supplier
  linking live here; stock and price never move through this file.

SEE ALSO:
  - engine.go: The stock/price write path this deliberately excludes
  - validate.go: Field rules the backing store applies on every write
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Catalog manages product, supplier, and link records.
type Catalog struct {
	store Store
}

// NewCatalog creates a catalog service over a store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// =============================================================================
// PRODUCTS
// =============================================================================

// CreateProduct registers a product. The stock it starts with becomes its
// opening baseline; from then on only the engine moves it.
func (c *Catalog) CreateProduct(ctx context.Context, name, description string, unitPrice decimal.Decimal, stock, minimumStock int64) (*Product, error) {
	p := NewProduct(name, description, unitPrice, stock)
	p.MinimumStock = minimumStock
	if err := c.store.SaveProduct(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Product fetches one product.
func (c *Catalog) Product(ctx context.Context, id ProductID) (*Product, error) {
	return c.store.GetProduct(ctx, id)
}

// Products lists all products.
func (c *Catalog) Products(ctx context.Context) ([]Product, error) {
	return c.store.ListProducts(ctx)
}

// UpdateProductInfo edits name, description, and minimum stock. Stock,
// price, and state are untouched.
func (c *Catalog) UpdateProductInfo(ctx context.Context, id ProductID, name, description string, minimumStock int64) (*Product, error) {
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.Description = description
	p.MinimumStock = minimumStock
	if err := c.store.UpdateProductInfo(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetProductState moves a product through its lifecycle. Deactivating a
// product blocks new purchases and sales but keeps its history.
func (c *Catalog) SetProductState(ctx context.Context, id ProductID, state ProductState) (*Product, error) {
	if !state.IsValid() {
		return nil, &ValidationError{Field: "state", Reason: "unknown product state"}
	}
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.State = state
	if err := c.store.UpdateProductInfo(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// LowStock returns products whose stock sits below their minimum
// threshold. Products without a threshold never appear.
func (c *Catalog) LowStock(ctx context.Context) ([]Product, error) {
	products, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]Product, 0)
	for _, p := range products {
		if p.LowOnStock() {
			low = append(low, p)
		}
	}
	return low, nil
}

// =============================================================================
// SUPPLIERS
// =============================================================================

// CreateSupplier registers a supplier. Email uniqueness is enforced by
// the store.
func (c *Catalog) CreateSupplier(ctx context.Context, name, contact, phone, email, address string) (*Supplier, error) {
	s := NewSupplier(name, contact, phone, email, address)
	if err := c.store.SaveSupplier(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Supplier fetches one supplier.
func (c *Catalog) Supplier(ctx context.Context, id SupplierID) (*Supplier, error) {
	return c.store.GetSupplier(ctx, id)
}

// Suppliers lists all suppliers.
func (c *Catalog) Suppliers(ctx context.Context) ([]Supplier, error) {
	return c.store.ListSuppliers(ctx)
}

// UpdateSupplier edits supplier contact details.
func (c *Catalog) UpdateSupplier(ctx context.Context, id SupplierID, name, contact, phone, email, address string) (*Supplier, error) {
	s, err := c.store.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Name = name
	s.Contact = contact
	s.Phone = phone
	s.Email = email
	s.Address = address
	if err := c.store.UpdateSupplier(ctx, *s); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSupplierState moves a supplier through its lifecycle. A supplier
// that is not Active can no longer be purchased from.
func (c *Catalog) SetSupplierState(ctx context.Context, id SupplierID, state SupplierState) (*Supplier, error) {
	if !state.IsValid() {
		return nil, &ValidationError{Field: "state", Reason: "unknown supplier state"}
	}
	s, err := c.store.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	s.State = state
	if err := c.store.UpdateSupplier(ctx, *s); err != nil {
		return nil, err
	}
	return s, nil
}

// =============================================================================
// PRODUCT-SUPPLIER LINKS
// =============================================================================

// LinkSupplier records that a supplier furnishes a product at a given
// price. Both ends must exist; one link per (product, supplier, state).
func (c *Catalog) LinkSupplier(ctx context.Context, productID ProductID, supplierID SupplierID, unitPrice decimal.Decimal, leadTimeDays *int, validFrom time.Time, validTo *time.Time) (*SupplierLink, error) {
	if _, err := c.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	if _, err := c.store.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}

	l := NewSupplierLink(productID, supplierID, unitPrice, validFrom)
	l.LeadTimeDays = leadTimeDays
	l.ValidTo = validTo
	if err := c.store.SaveLink(ctx, l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Link fetches one link.
func (c *Catalog) Link(ctx context.Context, id LinkID) (*SupplierLink, error) {
	return c.store.GetLink(ctx, id)
}

// ProductSuppliers lists the links on a product.
func (c *Catalog) ProductSuppliers(ctx context.Context, id ProductID) ([]SupplierLink, error) {
	return c.store.LinksByProduct(ctx, id)
}

// SupplierProducts lists the links a supplier appears on.
func (c *Catalog) SupplierProducts(ctx context.Context, id SupplierID) ([]SupplierLink, error) {
	return c.store.LinksBySupplier(ctx, id)
}

// SetLinkState moves a link through its lifecycle.
func (c *Catalog) SetLinkState(ctx context.Context, id LinkID, state LinkState) (*SupplierLink, error) {
	if !state.IsValid() {
		return nil, &ValidationError{Field: "state", Reason: "unknown link state"}
	}
	l, err := c.store.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	l.State = state
	if err := c.store.UpdateLink(ctx, *l); err != nil {
		return nil, err
	}
	return l, nil
}

// Unlink removes a link. Ledger history is untouched; entries reference
// suppliers directly, not through links.
func (c *Catalog) Unlink(ctx context.Context, id LinkID) error {
	if _, err := c.store.GetLink(ctx, id); err != nil {
		return err
	}
	return c.store.DeleteLink(ctx, id)
}
