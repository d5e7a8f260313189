/*
locks.go - Per-product exclusive locks

PURPOSE:
  Serializes stock mutations per product. Two operations on the same
  product never interleave between reading the stock and writing it back;
  operations on different products proceed in parallel.

KEY CONCEPTS:
  Each product gets a one-slot channel acting as a semaphore. Acquire
  sends a token (blocking while another holder has it) and returns a
  release function that drains it. Acquisition honors the caller's
  context, so a deadline turns a long wait into a clean typed error with
  nothing written.

USAGE:
  release, err := locks.Acquire(ctx, productID)
  if err != nil {
      return err // lock wait timed out or ctx canceled
  }
  defer release()
  // read stock, check, write

SEE ALSO:
  - engine.go: Acquires the product lock before every read-check-write span
*/
package inventory

import (
	"context"
	"sync"
)

// LockTable hands out one exclusive lock per product.
type LockTable struct {
	mu   sync.Mutex
	sems map[ProductID]chan struct{}
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{sems: make(map[ProductID]chan struct{})}
}

// sem returns the product's semaphore, creating it on first use. Semaphores
// are never removed; the table grows with the distinct products touched,
// which stays small next to the ledger itself.
func (lt *LockTable) sem(id ProductID) chan struct{} {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	s, ok := lt.sems[id]
	if !ok {
		s = make(chan struct{}, 1)
		lt.sems[id] = s
	}
	return s
}

// Acquire takes the product's exclusive lock, waiting until it is free or
// the context ends. On success it returns a release function that is safe
// to call more than once. On context expiry it returns the cancel cause
// and the caller must not touch the product.
func (lt *LockTable) Acquire(ctx context.Context, id ProductID) (func(), error) {
	s := lt.sem(id)

	// A select with both cases ready picks randomly; check the context
	// first so an already-expired caller never wins the lock.
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	select {
	case s <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() { <-s })
		}
		return release, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}
