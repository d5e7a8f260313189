/*
engine.go - The consistency engine: all stock-mutating operations

PURPOSE:
  The ONLY code path that changes a product's stock or price. Every
  operation is an atomic unit: the ledger entry and the derived stock
  update land in the same store transaction, or neither does.

KEY CONCEPTS:
  Per-product locking: each operation takes the product's exclusive lock
  before reading stock and releases it as soon as the commit returns; log
  writes happen outside the lock. Sufficiency is decided on the stock
  read AFTER the lock, never on a stale value.

  Symmetric atomicity: purchases and sales run the identical
  lock -> read -> check -> append+update -> commit shape. Neither path
  leans on database side effects for the stock write.

  Typed failures: every precondition violation surfaces as a structured
  error from errors.go. Callers branch with errors.As / errors.Is, not
  string matching.

OPERATIONS:
  RecordPurchase: stock in from a supplier (product and supplier Active)
  RecordSale:     stock out (sufficiency under lock; supplier may be any state)
  Transfer:       sale leg + purchase leg, one lock hold, net stock zero
  UpdatePrice:    guarded repricing, audit record appended with the change
  DeleteProduct:  removal, refused while ledger entries reference it

USAGE:
  eng := inventory.NewEngine(store, logger)
  tx, err := eng.RecordSale(ctx, productID, supplierID, 2, price, "walk-in")
  var insufficient *inventory.InsufficientStockError
  if errors.As(err, &insufficient) {
      // insufficient.Available, insufficient.Requested
  }

SEE ALSO:
  - locks.go: Lock acquisition and context-expiry behavior
  - store.go: The WithTx contract each operation relies on
  - integrity.go: Audits that these operations kept the books straight
*/
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxPriceChangeRatio caps a single repricing at 20% in either direction,
// measured against the current price. Exactly 20% passes.
var MaxPriceChangeRatio = decimal.NewFromFloat(0.20)

// Engine executes stock-mutating operations against a transactional store.
type Engine struct {
	store  TxStore
	locks  *LockTable
	logger *zap.Logger
	clock  func() time.Time
}

// NewEngine creates an engine. A nil logger is replaced with a no-op one.
func NewEngine(store TxStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		locks:  NewLockTable(),
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall clock used to stamp ledger entries and
// price changes. Tests pin it; production keeps the UTC default.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// =============================================================================
// PURCHASE - stock in
// =============================================================================

// RecordPurchase appends a purchase entry and raises stock by quantity.
// The product and the supplier must both exist and be Active. The entry
// and the stock update commit together.
func (e *Engine) RecordPurchase(ctx context.Context, productID ProductID, supplierID SupplierID, quantity int64, unitPrice decimal.Decimal, note string) (*Transaction, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := validatePrice("unit_price", unitPrice); err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		entry      Transaction
		stockAfter int64
	)
	err = e.store.WithTx(ctx, func(s Store) error {
		p, err := s.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p.State != ProductActive {
			return &InactiveEntityError{Entity: "product", ID: string(p.ID), State: string(p.State)}
		}
		sup, err := s.GetSupplier(ctx, supplierID)
		if err != nil {
			return err
		}
		if sup.State != SupplierActive {
			return &InactiveEntityError{Entity: "supplier", ID: string(sup.ID), State: string(sup.State)}
		}

		entry = NewTransaction(productID, supplierID, KindPurchase, quantity, unitPrice, e.clock())
		entry.Note = note
		stockAfter = p.Stock + quantity

		if err := s.AppendTransaction(ctx, entry); err != nil {
			return err
		}
		return s.UpdateProductStock(ctx, productID, stockAfter)
	})
	release()
	if err != nil {
		return nil, err
	}

	e.logger.Info("purchase recorded",
		zap.String("product_id", string(productID)),
		zap.String("supplier_id", string(supplierID)),
		zap.Int64("quantity", quantity),
		zap.Int64("stock_after", stockAfter))
	return &entry, nil
}

// =============================================================================
// SALE - stock out
// =============================================================================

// RecordSale appends a sale entry and lowers stock by quantity. The stock
// check happens on the value read under the product lock: if it cannot
// cover the quantity the operation fails with *InsufficientStockError and
// nothing is written. The supplier must exist but may be in any state.
func (e *Engine) RecordSale(ctx context.Context, productID ProductID, supplierID SupplierID, quantity int64, unitPrice decimal.Decimal, note string) (*Transaction, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := validatePrice("unit_price", unitPrice); err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		entry      Transaction
		stockAfter int64
	)
	err = e.store.WithTx(ctx, func(s Store) error {
		p, err := s.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p.State != ProductActive {
			return &InactiveEntityError{Entity: "product", ID: string(p.ID), State: string(p.State)}
		}
		if _, err := s.GetSupplier(ctx, supplierID); err != nil {
			return err
		}
		if p.Stock < quantity {
			return &InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: quantity}
		}

		entry = NewTransaction(productID, supplierID, KindSale, quantity, unitPrice, e.clock())
		entry.Note = note
		stockAfter = p.Stock - quantity

		if err := s.AppendTransaction(ctx, entry); err != nil {
			return err
		}
		return s.UpdateProductStock(ctx, productID, stockAfter)
	})
	release()
	if err != nil {
		var short *InsufficientStockError
		if errors.As(err, &short) {
			e.logger.Warn("sale refused, insufficient stock",
				zap.String("product_id", string(productID)),
				zap.Int64("available", short.Available),
				zap.Int64("requested", short.Requested))
		}
		return nil, err
	}

	e.logger.Info("sale recorded",
		zap.String("product_id", string(productID)),
		zap.String("supplier_id", string(supplierID)),
		zap.Int64("quantity", quantity),
		zap.Int64("stock_after", stockAfter))
	return &entry, nil
}

// =============================================================================
// TRANSFER - move stock between suppliers
// =============================================================================

// TransferResult carries the two ledger entries of a supplier transfer.
// Both share the same TransferID.
type TransferResult struct {
	TransferID  string       `json:"transfer_id"`
	SaleLeg     *Transaction `json:"sale_leg"`
	PurchaseLeg *Transaction `json:"purchase_leg"`
}

// Transfer rebooks quantity from one supplier to another as a sale leg
// against from and a purchase leg against to, committed together under a
// single hold of the product lock. Stock is unchanged; the ledger gains
// exactly two entries tagged with the same transfer ID. The target
// supplier must be Active (it is a purchase); the source only has to
// exist. Stock must cover the quantity, same as a plain sale.
func (e *Engine) Transfer(ctx context.Context, productID ProductID, from, to SupplierID, quantity int64, unitPrice decimal.Decimal) (*TransferResult, error) {
	if from == to {
		return nil, &ValidationError{Field: "to_supplier", Reason: "must differ from the source supplier"}
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := validatePrice("unit_price", unitPrice); err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer release()

	var result TransferResult
	err = e.store.WithTx(ctx, func(s Store) error {
		p, err := s.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p.State != ProductActive {
			return &InactiveEntityError{Entity: "product", ID: string(p.ID), State: string(p.State)}
		}
		if _, err := s.GetSupplier(ctx, from); err != nil {
			return err
		}
		target, err := s.GetSupplier(ctx, to)
		if err != nil {
			return err
		}
		if target.State != SupplierActive {
			return &InactiveEntityError{Entity: "supplier", ID: string(target.ID), State: string(target.State)}
		}
		if p.Stock < quantity {
			return &InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: quantity}
		}

		now := e.clock()
		transferID := uuid.NewString()

		saleLeg := NewTransaction(productID, from, KindSale, quantity, unitPrice, now)
		saleLeg.TransferID = transferID
		purchaseLeg := NewTransaction(productID, to, KindPurchase, quantity, unitPrice, now)
		purchaseLeg.TransferID = transferID

		if err := s.AppendTransaction(ctx, saleLeg); err != nil {
			return err
		}
		if err := s.AppendTransaction(ctx, purchaseLeg); err != nil {
			return err
		}

		// Net movement is zero, so the cached stock needs no write.
		result = TransferResult{
			TransferID:  transferID,
			SaleLeg:     &saleLeg,
			PurchaseLeg: &purchaseLeg,
		}
		return nil
	})
	release()
	if err != nil {
		return nil, err
	}

	e.logger.Info("supplier transfer recorded",
		zap.String("product_id", string(productID)),
		zap.String("from_supplier", string(from)),
		zap.String("to_supplier", string(to)),
		zap.Int64("quantity", quantity),
		zap.String("transfer_id", result.TransferID))
	return &result, nil
}

// =============================================================================
// REPRICING - guarded, audited
// =============================================================================

// UpdatePrice changes a product's unit price and appends one PriceChange
// audit record, atomically. A change of more than 20% against the current
// price in either direction is refused with *ExcessivePriceChangeError
// and leaves no audit trace. Setting the price it already has succeeds
// and returns (nil, nil) with no audit record. A blank actor is recorded
// as "system".
func (e *Engine) UpdatePrice(ctx context.Context, productID ProductID, newPrice decimal.Decimal, actor string) (*PriceChange, error) {
	if err := validatePrice("new_price", newPrice); err != nil {
		return nil, err
	}
	if actor == "" {
		actor = "system"
	}

	release, err := e.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer release()

	var change *PriceChange
	err = e.store.WithTx(ctx, func(s Store) error {
		p, err := s.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p.State != ProductActive {
			return &InactiveEntityError{Entity: "product", ID: string(p.ID), State: string(p.State)}
		}
		if p.UnitPrice.Equal(newPrice) {
			return nil
		}

		ratio := newPrice.Sub(p.UnitPrice).Abs().Div(p.UnitPrice)
		if ratio.GreaterThan(MaxPriceChangeRatio) {
			return &ExcessivePriceChangeError{
				ProductID:      productID,
				CurrentPrice:   p.UnitPrice,
				RequestedPrice: newPrice,
				MaxRatio:       MaxPriceChangeRatio,
			}
		}

		pc := NewPriceChange(productID, p.UnitPrice, newPrice, actor, e.clock())
		if err := s.UpdateProductPrice(ctx, productID, newPrice); err != nil {
			return err
		}
		if err := s.AppendPriceChange(ctx, pc); err != nil {
			return err
		}
		change = &pc
		return nil
	})
	release()
	if err != nil {
		return nil, err
	}

	if change != nil {
		e.logger.Info("price updated",
			zap.String("product_id", string(productID)),
			zap.String("old_price", change.OldPrice.String()),
			zap.String("new_price", change.NewPrice.String()),
			zap.String("actor", change.ChangedBy))
	}
	return change, nil
}

// =============================================================================
// DELETION - guarded by ledger references
// =============================================================================

// DeleteProduct removes a product and its supplier links. It refuses with
// *ReferentialIntegrityError while any ledger entry references the
// product; history is never orphaned and never deleted to make room.
func (e *Engine) DeleteProduct(ctx context.Context, productID ProductID) error {
	release, err := e.locks.Acquire(ctx, productID)
	if err != nil {
		return err
	}
	defer release()

	err = e.store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetProduct(ctx, productID); err != nil {
			return err
		}
		refs, err := s.CountByProduct(ctx, productID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return &ReferentialIntegrityError{ProductID: productID, References: refs}
		}
		return s.DeleteProduct(ctx, productID)
	})
	release()
	if err != nil {
		return err
	}

	e.logger.Info("product deleted", zap.String("product_id", string(productID)))
	return nil
}
