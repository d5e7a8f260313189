/*
integrity.go - Ledger vs cached stock consistency checking

PURPOSE:
  The stock column on a product is a cache; the ledger is the record.
  This file recomputes what the stock should be from the ledger and the
  product's opening baseline, and reports any drift.

THE INVARIANT:
  stock == initial_stock + sum(purchases) - sum(sales)

  For a product created with zero opening stock this reduces to
  stock == net ledger movement. A product seeded with stock keeps that
  baseline for life; only ledger entries move it.

USAGE:
  checker := inventory.NewIntegrityChecker(store)
  report, err := checker.CheckProduct(ctx, id)
  if !report.Consistent {
      // report.Drift() is the cached-minus-expected delta
  }

SEE ALSO:
  - ledger.go: Movement aggregation this builds on
  - engine.go: The writer whose updates this audits
*/
package inventory

import "context"

// IntegrityReport compares a product's cached stock with the value the
// ledger implies.
type IntegrityReport struct {
	ProductID    ProductID    `json:"product_id"`
	Name         string       `json:"name"`
	State        ProductState `json:"state"`
	Stock        int64        `json:"stock"`
	InitialStock int64        `json:"initial_stock"`
	Purchased    int64        `json:"purchased"`
	Sold         int64        `json:"sold"`
	Expected     int64        `json:"expected"`
	Consistent   bool         `json:"consistent"`
}

// Drift returns cached stock minus ledger-expected stock. Zero when
// consistent; positive means the cache overstates what the ledger supports.
func (r IntegrityReport) Drift() int64 {
	return r.Stock - r.Expected
}

// IntegrityChecker recomputes stock from the ledger.
type IntegrityChecker struct {
	store TxStore
}

// NewIntegrityChecker creates a checker over a transactional store.
func NewIntegrityChecker(store TxStore) *IntegrityChecker {
	return &IntegrityChecker{store: store}
}

// CheckProduct audits one product against its full ledger history. The
// product and its entries are read in one transaction, so a movement
// committing mid-audit can never surface as drift.
func (c *IntegrityChecker) CheckProduct(ctx context.Context, id ProductID) (*IntegrityReport, error) {
	var report *IntegrityReport
	err := c.store.WithTx(ctx, func(s Store) error {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		report, err = auditProduct(ctx, s, *p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// CheckAll audits every product, whatever its state. Inactive and
// discontinued products keep their history and can still drift. The whole
// catalog is read in one transaction, one consistent picture of the books.
func (c *IntegrityChecker) CheckAll(ctx context.Context) ([]IntegrityReport, error) {
	var reports []IntegrityReport
	err := c.store.WithTx(ctx, func(s Store) error {
		products, err := s.ListProducts(ctx)
		if err != nil {
			return err
		}
		reports = make([]IntegrityReport, 0, len(products))
		for _, p := range products {
			r, err := auditProduct(ctx, s, p)
			if err != nil {
				return err
			}
			reports = append(reports, *r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func auditProduct(ctx context.Context, s Store, p Product) (*IntegrityReport, error) {
	entries, err := s.Transactions(ctx, TransactionFilter{ProductID: &p.ID})
	if err != nil {
		return nil, err
	}

	r := &IntegrityReport{
		ProductID:    p.ID,
		Name:         p.Name,
		State:        p.State,
		Stock:        p.Stock,
		InitialStock: p.InitialStock,
	}
	for _, t := range entries {
		switch t.Kind {
		case KindPurchase:
			r.Purchased += t.Quantity
		case KindSale:
			r.Sold += t.Quantity
		}
	}
	r.Expected = r.InitialStock + r.Purchased - r.Sold
	r.Consistent = r.Stock == r.Expected
	return r, nil
}
