/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Prices are decimal.Decimal end to end and marshal as JSON strings
  ("850000"), never floats. Clients must send them as strings too.

TIMESTAMPS:
  RFC3339 strings in responses; requests accepting a timestamp take the
  same format.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind/stock-engine/inventory"
)

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Stock        int64           `json:"stock"`
	InitialStock int64           `json:"initial_stock"`
	MinimumStock int64           `json:"minimum_stock"`
	LowStock     bool            `json:"low_stock"`
	State        string          `json:"state"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// CreateProductRequest is the request to register a product. Stock is
// the opening quantity and becomes the product's baseline.
type CreateProductRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Stock        int64           `json:"stock"`
	MinimumStock int64           `json:"minimum_stock"`
}

// UpdateProductRequest edits product metadata. Stock and price have
// their own endpoints.
type UpdateProductRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	MinimumStock int64  `json:"minimum_stock"`
}

// SetStateRequest moves a product, supplier, or link to a new state.
type SetStateRequest struct {
	State string `json:"state"`
}

// UpdatePriceRequest reprices a product. The actor comes from the
// X-Actor header, not the body.
type UpdatePriceRequest struct {
	NewPrice decimal.Decimal `json:"new_price"`
}

// =============================================================================
// SUPPLIERS
// =============================================================================

// SupplierDTO represents a supplier in API responses.
type SupplierDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Contact   string `json:"contact,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email"`
	Address   string `json:"address,omitempty"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SupplierRequest creates or updates a supplier.
type SupplierRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// =============================================================================
// PRODUCT-SUPPLIER LINKS
// =============================================================================

// LinkDTO represents a product-supplier link in API responses.
type LinkDTO struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	SupplierID   string          `json:"supplier_id"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LeadTimeDays *int            `json:"lead_time_days,omitempty"`
	ValidFrom    string          `json:"valid_from"`
	ValidTo      *string         `json:"valid_to,omitempty"`
	State        string          `json:"state"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// CreateLinkRequest links a supplier to the product in the URL. An empty
// valid_from defaults to now.
type CreateLinkRequest struct {
	SupplierID   string          `json:"supplier_id"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LeadTimeDays *int            `json:"lead_time_days,omitempty"`
	ValidFrom    string          `json:"valid_from,omitempty"`
	ValidTo      string          `json:"valid_to,omitempty"`
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

// TransactionDTO represents a ledger entry in API responses.
type TransactionDTO struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	SupplierID string          `json:"supplier_id"`
	Kind       string          `json:"kind"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt string          `json:"occurred_at"`
	Note       string          `json:"note,omitempty"`
	TransferID string          `json:"transfer_id,omitempty"`
	CreatedAt  string          `json:"created_at,omitempty"`
}

// MovementRequest records a purchase or a sale.
type MovementRequest struct {
	ProductID  string          `json:"product_id"`
	SupplierID string          `json:"supplier_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Note       string          `json:"note"`
}

// TransferRequest rebooks stock from one supplier to another.
type TransferRequest struct {
	ProductID      string          `json:"product_id"`
	FromSupplierID string          `json:"from_supplier_id"`
	ToSupplierID   string          `json:"to_supplier_id"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

// TransferDTO carries both legs of a completed transfer.
type TransferDTO struct {
	TransferID  string         `json:"transfer_id"`
	SaleLeg     TransactionDTO `json:"sale_leg"`
	PurchaseLeg TransactionDTO `json:"purchase_leg"`
}

// PriceChangeDTO represents one repricing audit record.
type PriceChangeDTO struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
	ChangedBy string          `json:"changed_by"`
	ChangedAt string          `json:"changed_at"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toProductDTO(p inventory.Product) ProductDTO {
	return ProductDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice,
		Stock:        p.Stock,
		InitialStock: p.InitialStock,
		MinimumStock: p.MinimumStock,
		LowStock:     p.LowOnStock(),
		State:        string(p.State),
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

func toProductDTOs(products []inventory.Product) []ProductDTO {
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	return dtos
}

func toSupplierDTO(s inventory.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:        string(s.ID),
		Name:      s.Name,
		Contact:   s.Contact,
		Phone:     s.Phone,
		Email:     s.Email,
		Address:   s.Address,
		State:     string(s.State),
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

func toSupplierDTOs(suppliers []inventory.Supplier) []SupplierDTO {
	dtos := make([]SupplierDTO, 0, len(suppliers))
	for _, s := range suppliers {
		dtos = append(dtos, toSupplierDTO(s))
	}
	return dtos
}

func toLinkDTO(l inventory.SupplierLink) LinkDTO {
	dto := LinkDTO{
		ID:           string(l.ID),
		ProductID:    string(l.ProductID),
		SupplierID:   string(l.SupplierID),
		UnitPrice:    l.UnitPrice,
		LeadTimeDays: l.LeadTimeDays,
		ValidFrom:    l.ValidFrom.Format(time.RFC3339),
		State:        string(l.State),
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
	}
	if l.ValidTo != nil {
		s := l.ValidTo.Format(time.RFC3339)
		dto.ValidTo = &s
	}
	return dto
}

func toLinkDTOs(links []inventory.SupplierLink) []LinkDTO {
	dtos := make([]LinkDTO, 0, len(links))
	for _, l := range links {
		dtos = append(dtos, toLinkDTO(l))
	}
	return dtos
}

func toTransactionDTO(t inventory.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:         string(t.ID),
		ProductID:  string(t.ProductID),
		SupplierID: string(t.SupplierID),
		Kind:       string(t.Kind),
		Quantity:   t.Quantity,
		UnitPrice:  t.UnitPrice,
		Total:      t.Total(),
		OccurredAt: t.OccurredAt.Format(time.RFC3339),
		Note:       t.Note,
		TransferID: t.TransferID,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []inventory.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, t := range txs {
		dtos = append(dtos, toTransactionDTO(t))
	}
	return dtos
}

func toTransferDTO(tr inventory.TransferResult) TransferDTO {
	return TransferDTO{
		TransferID:  tr.TransferID,
		SaleLeg:     toTransactionDTO(*tr.SaleLeg),
		PurchaseLeg: toTransactionDTO(*tr.PurchaseLeg),
	}
}

func toPriceChangeDTO(pc inventory.PriceChange) PriceChangeDTO {
	return PriceChangeDTO{
		ID:        string(pc.ID),
		ProductID: string(pc.ProductID),
		OldPrice:  pc.OldPrice,
		NewPrice:  pc.NewPrice,
		ChangedBy: pc.ChangedBy,
		ChangedAt: pc.ChangedAt.Format(time.RFC3339),
	}
}

func toPriceChangeDTOs(changes []inventory.PriceChange) []PriceChangeDTO {
	dtos := make([]PriceChangeDTO, 0, len(changes))
	for _, pc := range changes {
		dtos = append(dtos, toPriceChangeDTO(pc))
	}
	return dtos
}
