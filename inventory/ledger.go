/*
ledger.go - Read-side facade over the transaction ledger

PURPOSE:
  Convenience layer for querying the append-only ledger and deriving
  movement figures from it. All numbers here are recomputed from the
  entries themselves, never from the cached stock column, which makes this
  the authoritative view when the two are compared.

USAGE:
  ledger := inventory.NewLedger(store)
  entries, err := ledger.Entries(ctx, inventory.TransactionFilter{ProductID: &id})
  summary, err := ledger.Summary(ctx, id)

SEE ALSO:
  - integrity.go: Compares ledger-derived stock against the cached column
  - store.go: TransactionFilter semantics
*/
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger reads and aggregates transaction history.
type Ledger struct {
	store Store
}

// NewLedger creates a ledger view over a store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Entries returns transactions matching the filter, oldest first.
func (l *Ledger) Entries(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	return l.store.Transactions(ctx, f)
}

// PriceHistory returns price-change audit records matching the filter,
// oldest first.
func (l *Ledger) PriceHistory(ctx context.Context, f PriceChangeFilter) ([]PriceChange, error) {
	return l.store.PriceChanges(ctx, f)
}

// NetMovement returns the signed quantity sum for a product: purchases
// count positive, sales negative. For a product created with zero stock
// this equals its current stock when the ledger is consistent.
func (l *Ledger) NetMovement(ctx context.Context, id ProductID) (int64, error) {
	entries, err := l.store.Transactions(ctx, TransactionFilter{ProductID: &id})
	if err != nil {
		return 0, err
	}
	var net int64
	for _, t := range entries {
		net += t.SignedQuantity()
	}
	return net, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

// LedgerSummary aggregates a product's movement history.
type LedgerSummary struct {
	ProductID ProductID       `json:"product_id"`
	Entries   int64           `json:"entries"`
	Purchased int64           `json:"purchased"`
	Sold      int64           `json:"sold"`
	Net       int64           `json:"net"`
	Spent     decimal.Decimal `json:"spent"`  // purchase quantity x unit price, summed
	Earned    decimal.Decimal `json:"earned"` // sale quantity x unit price, summed
}

// Summary walks a product's full history and totals quantities and money
// per direction.
func (l *Ledger) Summary(ctx context.Context, id ProductID) (*LedgerSummary, error) {
	entries, err := l.store.Transactions(ctx, TransactionFilter{ProductID: &id})
	if err != nil {
		return nil, err
	}

	s := &LedgerSummary{
		ProductID: id,
		Spent:     decimal.Zero,
		Earned:    decimal.Zero,
	}
	for _, t := range entries {
		s.Entries++
		switch t.Kind {
		case KindPurchase:
			s.Purchased += t.Quantity
			s.Spent = s.Spent.Add(t.Total())
		case KindSale:
			s.Sold += t.Quantity
			s.Earned = s.Earned.Add(t.Total())
		}
	}
	s.Net = s.Purchased - s.Sold
	return s, nil
}
