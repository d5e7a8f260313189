// validate.go - Deterministic write-time validation for catalog entities.
//
// The stores call these on every insert and update, so a record that
// violates a field rule never reaches persistence regardless of which
// entry path produced it. All failures unwrap to ErrValidation.
package inventory

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// Local-part@domain.tld shape. Deliberately strict about requiring a
	// dotted TLD; this matches what the suppliers directory accepts.
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

	// Digits plus the punctuation found in international phone numbers.
	phonePattern = regexp.MustCompile(`^[0-9+\-(). ]*$`)
)

// ValidateProduct checks a product's fields ahead of a write.
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if !p.UnitPrice.IsPositive() {
		return &ValidationError{Field: "unit_price", Reason: "must be positive"}
	}
	if p.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	if p.MinimumStock < 0 {
		return &ValidationError{Field: "minimum_stock", Reason: "must not be negative"}
	}
	if !p.State.IsValid() {
		return &ValidationError{Field: "state", Reason: "unknown product state"}
	}
	return nil
}

// ValidateSupplier checks a supplier's fields ahead of a write. Email shape
// is enforced on insert and update alike; uniqueness is the store's job.
func ValidateSupplier(s Supplier) error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if !emailPattern.MatchString(s.Email) {
		return &ValidationError{Field: "email", Reason: "must look like local@domain.tld"}
	}
	if !phonePattern.MatchString(s.Phone) {
		return &ValidationError{Field: "phone", Reason: "may contain only digits and + - ( ) . space"}
	}
	if !s.State.IsValid() {
		return &ValidationError{Field: "state", Reason: "unknown supplier state"}
	}
	return nil
}

// ValidateLink checks a supplier link's fields ahead of a write.
func ValidateLink(l SupplierLink) error {
	if l.ProductID == "" {
		return &ValidationError{Field: "product_id", Reason: "required"}
	}
	if l.SupplierID == "" {
		return &ValidationError{Field: "supplier_id", Reason: "required"}
	}
	if !l.UnitPrice.IsPositive() {
		return &ValidationError{Field: "unit_price", Reason: "must be positive"}
	}
	if l.LeadTimeDays != nil && *l.LeadTimeDays <= 0 {
		return &ValidationError{Field: "lead_time_days", Reason: "must be positive when set"}
	}
	if l.ValidFrom.IsZero() {
		return &ValidationError{Field: "valid_from", Reason: "required"}
	}
	if l.ValidTo != nil && l.ValidTo.Before(l.ValidFrom) {
		return &ValidationError{Field: "valid_to", Reason: "must not precede valid_from"}
	}
	if !l.State.IsValid() {
		return &ValidationError{Field: "state", Reason: "unknown link state"}
	}
	return nil
}

func validateQuantity(q int64) error {
	if q <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	return nil
}

func validatePrice(field string, p decimal.Decimal) error {
	if !p.IsPositive() {
		return &ValidationError{Field: field, Reason: "must be positive"}
	}
	return nil
}
