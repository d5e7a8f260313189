/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match on the sentinels with errors.Is and extract detail from
  the structured types with errors.As.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, rejected before any write
  2. Reference errors - Missing or inactive products/suppliers
  3. Business-rule errors - Insufficient stock, price guard, delete guard
  4. Uniqueness errors - Duplicate supplier email or supplier link

USAGE:
  entry, err := engine.RecordSale(ctx, productID, supplierID, 100, price, "")
  var short *inventory.InsufficientStockError
  if errors.As(err, &short) {
      retryQty := short.Available
  }

SEE ALSO:
  - engine.go: Returns these errors from the mutation path
  - validate.go: Produces ValidationError for malformed fields
*/
package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced product, supplier, or link
	// does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInactiveEntity is returned when an operation requires an active
	// product or supplier and the referenced one is not.
	ErrInactiveEntity = errors.New("entity not active")

	// ErrInsufficientStock is returned when a sale would drive stock below
	// zero. The requested quantity is never silently clamped.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrExcessivePriceChange is returned when a repricing exceeds the
	// guard ratio in either direction.
	ErrExcessivePriceChange = errors.New("price change exceeds guard")

	// ErrReferentialIntegrity is returned when deleting a product that has
	// ledger history. The block is permanent, not advisory.
	ErrReferentialIntegrity = errors.New("ledger entries reference product")

	// ErrDuplicateEmail is returned when a supplier write would reuse
	// another supplier's email address.
	ErrDuplicateEmail = errors.New("duplicate supplier email")

	// ErrDuplicateLink is returned when a link write would create a second
	// link for the same (product, supplier, state) combination.
	ErrDuplicateLink = errors.New("duplicate supplier link")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string // "product", "supplier", "link"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InactiveEntityError reports a referenced entity in the wrong lifecycle
// state for the attempted operation.
type InactiveEntityError struct {
	Entity string
	ID     string
	State  string
}

func (e *InactiveEntityError) Error() string {
	return fmt.Sprintf("%s %s is %s, operation requires active", e.Entity, e.ID, e.State)
}

func (e *InactiveEntityError) Unwrap() error {
	return ErrInactiveEntity
}

// InsufficientStockError provides details about a stock shortage so the
// caller can retry with an adjusted quantity.
type InsufficientStockError struct {
	ProductID ProductID
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Shortfall is how many units short the sale came up.
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

// ExcessivePriceChangeError reports a repricing rejected by the guard.
// Changes beyond MaxRatio require an out-of-band authorization path.
type ExcessivePriceChangeError struct {
	ProductID      ProductID
	CurrentPrice   decimal.Decimal
	RequestedPrice decimal.Decimal
	MaxRatio       decimal.Decimal
}

func (e *ExcessivePriceChangeError) Error() string {
	return fmt.Sprintf("price change for product %s from %s to %s exceeds allowed ratio %s",
		e.ProductID, e.CurrentPrice, e.RequestedPrice, e.MaxRatio)
}

func (e *ExcessivePriceChangeError) Unwrap() error {
	return ErrExcessivePriceChange
}

// Ratio is the relative magnitude of the requested change.
func (e *ExcessivePriceChangeError) Ratio() decimal.Decimal {
	if e.CurrentPrice.IsZero() {
		return decimal.Zero
	}
	return e.RequestedPrice.Sub(e.CurrentPrice).Abs().Div(e.CurrentPrice)
}

// ReferentialIntegrityError reports a blocked product deletion.
type ReferentialIntegrityError struct {
	ProductID  ProductID
	References int64 // ledger entries referencing the product
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete product %s: %d ledger entries reference it",
		e.ProductID, e.References)
}

func (e *ReferentialIntegrityError) Unwrap() error {
	return ErrReferentialIntegrity
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error reflects a state conflict the caller
// may resolve by changing the request (quantity, email, link) rather than a
// malformed one.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrReferentialIntegrity) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicateLink)
}

// IsClientError returns true if the error is due to the caller's input or
// the current business state, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInactiveEntity) ||
		errors.Is(err, ErrExcessivePriceChange) ||
		IsConflict(err)
}
