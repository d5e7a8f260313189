/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements inventory.Store and inventory.TxStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  products:          Catalog rows carrying the cached stock quantity
  suppliers:         Supplier records (email unique, case-insensitive)
  product_suppliers: Who furnishes what, one link per (product, supplier, state)
  transactions:      Immutable ledger of purchases and sales
  price_changes:     Immutable repricing audit trail

APPEND-ONLY ENFORCEMENT:
  transactions and price_changes have INSERT and SELECT paths only. No
  UPDATE or DELETE statement in this file touches either table.

DB-LEVEL GUARDS:
  Constraints back up the checks the domain layer already makes:
  - CHECK (stock >= 0) rejects any write that would take stock negative
  - UNIQUE email on suppliers, COLLATE NOCASE
  - UNIQUE (product_id, supplier_id, state) on links
  - Foreign keys from transactions block deleting a referenced product
  price_changes deliberately has NO foreign key: the audit trail must
  survive product deletion.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Every read/write helper takes a
  dbtx (either the *sql.DB or an open *sql.Tx), so code running inside
  WithTx reuses the helpers against its own transaction without touching
  the store mutex again.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := inventory.NewEngine(store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tradewind/stock-engine/inventory"
)

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each :memory: connection is its own empty database, so the pool
	// must never grow past one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Products (stock is the cached quantity; the ledger is the record)
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		unit_price TEXT NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		initial_stock INTEGER NOT NULL DEFAULT 0,
		minimum_stock INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	-- Suppliers
	CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact TEXT,
		phone TEXT,
		email TEXT NOT NULL COLLATE NOCASE UNIQUE,
		address TEXT,
		state TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	-- Product-supplier links
	CREATE TABLE IF NOT EXISTS product_suppliers (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		supplier_id TEXT NOT NULL REFERENCES suppliers(id),
		unit_price TEXT NOT NULL,
		lead_time_days INTEGER,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		state TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		UNIQUE(product_id, supplier_id, state)
	);

	CREATE INDEX IF NOT EXISTS idx_product_suppliers_product
		ON product_suppliers(product_id);
	CREATE INDEX IF NOT EXISTS idx_product_suppliers_supplier
		ON product_suppliers(supplier_id);

	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		supplier_id TEXT NOT NULL REFERENCES suppliers(id),
		kind TEXT NOT NULL CHECK (kind IN ('purchase', 'sale')),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		note TEXT,
		transfer_id TEXT,
		created_at TEXT NOT NULL
	);

	-- Per-product history and the integrity recomputation (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_product
		ON transactions(product_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_supplier
		ON transactions(supplier_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_kind
		ON transactions(kind);

	-- For pairing the two legs of a transfer
	CREATE INDEX IF NOT EXISTS idx_transactions_transfer
		ON transactions(transfer_id) WHERE transfer_id IS NOT NULL;

	-- Price changes (append-only audit; no FK so the trail survives
	-- product deletion)
	CREATE TABLE IF NOT EXISTS price_changes (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		old_price TEXT NOT NULL,
		new_price TEXT NOT NULL,
		changed_by TEXT NOT NULL,
		changed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_changes_product
		ON price_changes(product_id, changed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every helper below
// works inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PRODUCTS (inventory.CatalogStore)
// =============================================================================

// SaveProduct inserts a product. Stock at save time becomes the opening
// baseline whatever the caller put in InitialStock.
func (s *Store) SaveProduct(ctx context.Context, p inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertProduct(ctx, s.db, p)
}

func (s *Store) insertProduct(ctx context.Context, q dbtx, p inventory.Product) error {
	if err := inventory.ValidateProduct(p); err != nil {
		return err
	}

	query := `
		INSERT INTO products
		(id, name, description, unit_price, stock, initial_stock, minimum_stock, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		string(p.ID),
		p.Name,
		nullString(p.Description),
		p.UnitPrice.String(),
		p.Stock,
		p.Stock, // opening baseline
		p.MinimumStock,
		string(p.State),
		p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProduct(ctx, s.db, id)
}

func (s *Store) getProduct(ctx context.Context, q dbtx, id inventory.ProductID) (*inventory.Product, error) {
	query := `
		SELECT id, name, description, unit_price, stock, initial_stock, minimum_stock, state, created_at
		FROM products WHERE id = ?
	`
	p, err := scanProduct(q.QueryRowContext(ctx, query, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &inventory.NotFoundError{Entity: "product", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProducts(ctx, s.db)
}

func (s *Store) listProducts(ctx context.Context, q dbtx) ([]inventory.Product, error) {
	query := `
		SELECT id, name, description, unit_price, stock, initial_stock, minimum_stock, state, created_at
		FROM products ORDER BY name ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]inventory.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProductInfo writes name, description, minimum stock, and state.
// Stock, price, and the opening baseline keep their stored values.
func (s *Store) UpdateProductInfo(ctx context.Context, p inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProductInfo(ctx, s.db, p)
}

func (s *Store) updateProductInfo(ctx context.Context, q dbtx, p inventory.Product) error {
	cur, err := s.getProduct(ctx, q, p.ID)
	if err != nil {
		return err
	}
	next := *cur
	next.Name = p.Name
	next.Description = p.Description
	next.MinimumStock = p.MinimumStock
	next.State = p.State
	if err := inventory.ValidateProduct(next); err != nil {
		return err
	}

	query := `UPDATE products SET name = ?, description = ?, minimum_stock = ?, state = ? WHERE id = ?`
	_, err = q.ExecContext(ctx, query,
		next.Name, nullString(next.Description), next.MinimumStock, string(next.State), string(next.ID))
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (s *Store) UpdateProductStock(ctx context.Context, id inventory.ProductID, stock int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProductStock(ctx, s.db, id, stock)
}

func (s *Store) updateProductStock(ctx context.Context, q dbtx, id inventory.ProductID, stock int64) error {
	if stock < 0 {
		return &inventory.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	res, err := q.ExecContext(ctx, `UPDATE products SET stock = ? WHERE id = ?`, stock, string(id))
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return oneRowOr(res, &inventory.NotFoundError{Entity: "product", ID: string(id)})
}

func (s *Store) UpdateProductPrice(ctx context.Context, id inventory.ProductID, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProductPrice(ctx, s.db, id, price)
}

func (s *Store) updateProductPrice(ctx context.Context, q dbtx, id inventory.ProductID, price decimal.Decimal) error {
	if !price.IsPositive() {
		return &inventory.ValidationError{Field: "unit_price", Reason: "must be greater than zero"}
	}
	res, err := q.ExecContext(ctx, `UPDATE products SET unit_price = ? WHERE id = ?`, price.String(), string(id))
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	return oneRowOr(res, &inventory.NotFoundError{Entity: "product", ID: string(id)})
}

// DeleteProduct removes the product and its links. Ledger references are
// the engine's guard; the transactions foreign key backs it up.
func (s *Store) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteProduct(ctx, s.db, id)
}

func (s *Store) deleteProduct(ctx context.Context, q dbtx, id inventory.ProductID) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM product_suppliers WHERE product_id = ?`, string(id)); err != nil {
		return fmt.Errorf("failed to delete product links: %w", err)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return oneRowOr(res, &inventory.NotFoundError{Entity: "product", ID: string(id)})
}

func scanProduct(row interface{ Scan(...any) error }) (*inventory.Product, error) {
	var (
		p           inventory.Product
		id          string
		description sql.NullString
		unitPrice   string
		state       string
		createdAt   string
	)
	err := row.Scan(&id, &p.Name, &description, &unitPrice,
		&p.Stock, &p.InitialStock, &p.MinimumStock, &state, &createdAt)
	if err != nil {
		return nil, err
	}

	p.ID = inventory.ProductID(id)
	p.Description = description.String
	p.State = inventory.ProductState(state)
	p.UnitPrice, err = parsePrice(unitPrice)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// SUPPLIERS (inventory.CatalogStore)
// =============================================================================

func (s *Store) SaveSupplier(ctx context.Context, sup inventory.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSupplier(ctx, s.db, sup)
}

func (s *Store) insertSupplier(ctx context.Context, q dbtx, sup inventory.Supplier) error {
	if err := inventory.ValidateSupplier(sup); err != nil {
		return err
	}

	query := `
		INSERT INTO suppliers
		(id, name, contact, phone, email, address, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		string(sup.ID),
		sup.Name,
		nullString(sup.Contact),
		nullString(sup.Phone),
		sup.Email,
		nullString(sup.Address),
		string(sup.State),
		sup.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert supplier: %w", err)
	}
	return nil
}

func (s *Store) GetSupplier(ctx context.Context, id inventory.SupplierID) (*inventory.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSupplier(ctx, s.db, id)
}

func (s *Store) getSupplier(ctx context.Context, q dbtx, id inventory.SupplierID) (*inventory.Supplier, error) {
	query := `
		SELECT id, name, contact, phone, email, address, state, created_at
		FROM suppliers WHERE id = ?
	`
	sup, err := scanSupplier(q.QueryRowContext(ctx, query, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &inventory.NotFoundError{Entity: "supplier", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSuppliers(ctx, s.db)
}

func (s *Store) listSuppliers(ctx context.Context, q dbtx) ([]inventory.Supplier, error) {
	query := `
		SELECT id, name, contact, phone, email, address, state, created_at
		FROM suppliers ORDER BY name ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]inventory.Supplier, 0)
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, *sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) UpdateSupplier(ctx context.Context, sup inventory.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSupplier(ctx, s.db, sup)
}

func (s *Store) updateSupplier(ctx context.Context, q dbtx, sup inventory.Supplier) error {
	if err := inventory.ValidateSupplier(sup); err != nil {
		return err
	}

	query := `
		UPDATE suppliers SET name = ?, contact = ?, phone = ?, email = ?, address = ?, state = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		sup.Name,
		nullString(sup.Contact),
		nullString(sup.Phone),
		sup.Email,
		nullString(sup.Address),
		string(sup.State),
		string(sup.ID),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update supplier: %w", err)
	}
	return oneRowOr(res, &inventory.NotFoundError{Entity: "supplier", ID: string(sup.ID)})
}

func scanSupplier(row interface{ Scan(...any) error }) (*inventory.Supplier, error) {
	var (
		sup       inventory.Supplier
		id        string
		contact   sql.NullString
		phone     sql.NullString
		address   sql.NullString
		state     string
		createdAt string
	)
	err := row.Scan(&id, &sup.Name, &contact, &phone, &sup.Email, &address, &state, &createdAt)
	if err != nil {
		return nil, err
	}

	sup.ID = inventory.SupplierID(id)
	sup.Contact = contact.String
	sup.Phone = phone.String
	sup.Address = address.String
	sup.State = inventory.SupplierState(state)
	sup.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &sup, nil
}

// =============================================================================
// PRODUCT-SUPPLIER LINKS (inventory.CatalogStore)
// =============================================================================

func (s *Store) SaveLink(ctx context.Context, l inventory.SupplierLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLink(ctx, s.db, l)
}

func (s *Store) insertLink(ctx context.Context, q dbtx, l inventory.SupplierLink) error {
	if err := inventory.ValidateLink(l); err != nil {
		return err
	}

	query := `
		INSERT INTO product_suppliers
		(id, product_id, supplier_id, unit_price, lead_time_days, valid_from, valid_to, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		string(l.ID),
		string(l.ProductID),
		string(l.SupplierID),
		l.UnitPrice.String(),
		nullInt(l.LeadTimeDays),
		l.ValidFrom.Format(time.RFC3339),
		nullTime(l.ValidTo),
		string(l.State),
		l.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

func (s *Store) GetLink(ctx context.Context, id inventory.LinkID) (*inventory.SupplierLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLink(ctx, s.db, id)
}

func (s *Store) getLink(ctx context.Context, q dbtx, id inventory.LinkID) (*inventory.SupplierLink, error) {
	query := `
		SELECT id, product_id, supplier_id, unit_price, lead_time_days, valid_from, valid_to, state, created_at
		FROM product_suppliers WHERE id = ?
	`
	l, err := scanLink(q.QueryRowContext(ctx, query, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &inventory.NotFoundError{Entity: "link", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) LinksByProduct(ctx context.Context, id inventory.ProductID) ([]inventory.SupplierLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLinks(ctx, s.db, "product_id", string(id))
}

func (s *Store) LinksBySupplier(ctx context.Context, id inventory.SupplierID) ([]inventory.SupplierLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLinks(ctx, s.db, "supplier_id", string(id))
}

func (s *Store) queryLinks(ctx context.Context, q dbtx, column, id string) ([]inventory.SupplierLink, error) {
	query := fmt.Sprintf(`
		SELECT id, product_id, supplier_id, unit_price, lead_time_days, valid_from, valid_to, state, created_at
		FROM product_suppliers WHERE %s = ? ORDER BY created_at ASC, rowid ASC
	`, column)
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	links := make([]inventory.SupplierLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (s *Store) UpdateLink(ctx context.Context, l inventory.SupplierLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLink(ctx, s.db, l)
}

func (s *Store) updateLink(ctx context.Context, q dbtx, l inventory.SupplierLink) error {
	if err := inventory.ValidateLink(l); err != nil {
		return err
	}

	query := `
		UPDATE product_suppliers
		SET unit_price = ?, lead_time_days = ?, valid_from = ?, valid_to = ?, state = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		l.UnitPrice.String(),
		nullInt(l.LeadTimeDays),
		l.ValidFrom.Format(time.RFC3339),
		nullTime(l.ValidTo),
		string(l.State),
		string(l.ID),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update link: %w", err)
	}
	return oneRowOr(res, &inventory.NotFoundError{Entity: "link", ID: string(l.ID)})
}

func (s *Store) DeleteLink(ctx context.Context, id inventory.LinkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLink(ctx, s.db, id)
}

func (s *Store) deleteLink(ctx context.Context, q dbtx, id inventory.LinkID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM product_suppliers WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return oneRowOr(res, &inventory.NotFoundError{Entity: "link", ID: string(id)})
}

func scanLink(row interface{ Scan(...any) error }) (*inventory.SupplierLink, error) {
	var (
		l          inventory.SupplierLink
		id         string
		productID  string
		supplierID string
		unitPrice  string
		leadTime   sql.NullInt64
		validFrom  string
		validTo    sql.NullString
		state      string
		createdAt  string
	)
	err := row.Scan(&id, &productID, &supplierID, &unitPrice,
		&leadTime, &validFrom, &validTo, &state, &createdAt)
	if err != nil {
		return nil, err
	}

	l.ID = inventory.LinkID(id)
	l.ProductID = inventory.ProductID(productID)
	l.SupplierID = inventory.SupplierID(supplierID)
	l.State = inventory.LinkState(state)
	l.UnitPrice, err = parsePrice(unitPrice)
	if err != nil {
		return nil, err
	}
	if leadTime.Valid {
		days := int(leadTime.Int64)
		l.LeadTimeDays = &days
	}
	l.ValidFrom, _ = time.Parse(time.RFC3339, validFrom)
	if validTo.Valid {
		t, _ := time.Parse(time.RFC3339, validTo.String)
		l.ValidTo = &t
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &l, nil
}

// =============================================================================
// LEDGER (inventory.LedgerStore) - append-only
// =============================================================================

// AppendTransaction adds one entry to the ledger.
func (s *Store) AppendTransaction(ctx context.Context, t inventory.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendTransaction(ctx, s.db, t)
}

func (s *Store) appendTransaction(ctx context.Context, q dbtx, t inventory.Transaction) error {
	if !t.Kind.IsValid() {
		return &inventory.ValidationError{Field: "kind", Reason: "unknown transaction kind"}
	}
	if t.Quantity <= 0 {
		return &inventory.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if !t.UnitPrice.IsPositive() {
		return &inventory.ValidationError{Field: "unit_price", Reason: "must be greater than zero"}
	}

	query := `
		INSERT INTO transactions
		(id, product_id, supplier_id, kind, quantity, unit_price, occurred_at, note, transfer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		string(t.ID),
		string(t.ProductID),
		string(t.SupplierID),
		string(t.Kind),
		t.Quantity,
		t.UnitPrice.String(),
		t.OccurredAt.Format(time.RFC3339),
		nullString(t.Note),
		nullString(t.TransferID),
		t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Transactions returns ledger entries matching the filter, oldest first.
// Entries stamped in the same second keep insertion order via rowid.
func (s *Store) Transactions(ctx context.Context, f inventory.TransactionFilter) ([]inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryTransactions(ctx, s.db, f)
}

func (s *Store) queryTransactions(ctx context.Context, q dbtx, f inventory.TransactionFilter) ([]inventory.Transaction, error) {
	query := `
		SELECT id, product_id, supplier_id, kind, quantity, unit_price, occurred_at, note, transfer_id, created_at
		FROM transactions
	`
	var (
		where []string
		args  []any
	)
	if f.ProductID != nil {
		where = append(where, "product_id = ?")
		args = append(args, string(*f.ProductID))
	}
	if f.SupplierID != nil {
		where = append(where, "supplier_id = ?")
		args = append(args, string(*f.SupplierID))
	}
	if f.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, string(*f.Kind))
	}
	if f.TransferID != nil {
		where = append(where, "transfer_id = ?")
		args = append(args, *f.TransferID)
	}
	if f.From != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		where = append(where, "occurred_at <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at ASC, rowid ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]inventory.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// CountByProduct returns how many ledger entries reference a product.
func (s *Store) CountByProduct(ctx context.Context, id inventory.ProductID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countByProduct(ctx, s.db, id)
}

func (s *Store) countByProduct(ctx context.Context, q dbtx, id inventory.ProductID) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE product_id = ?`, string(id)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(rows *sql.Rows) (*inventory.Transaction, error) {
	var (
		t          inventory.Transaction
		id         string
		productID  string
		supplierID string
		kind       string
		unitPrice  string
		occurredAt string
		note       sql.NullString
		transferID sql.NullString
		createdAt  string
	)
	err := rows.Scan(&id, &productID, &supplierID, &kind, &t.Quantity,
		&unitPrice, &occurredAt, &note, &transferID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.ID = inventory.TransactionID(id)
	t.ProductID = inventory.ProductID(productID)
	t.SupplierID = inventory.SupplierID(supplierID)
	t.Kind = inventory.TransactionKind(kind)
	t.Note = note.String
	t.TransferID = transferID.String
	t.UnitPrice, err = parsePrice(unitPrice)
	if err != nil {
		return nil, err
	}
	t.OccurredAt, _ = time.Parse(time.RFC3339, occurredAt)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// =============================================================================
// PRICE LOG (inventory.PriceLog) - append-only
// =============================================================================

// AppendPriceChange adds one audit record. No existence check on the
// product: the trail outlives deletion.
func (s *Store) AppendPriceChange(ctx context.Context, pc inventory.PriceChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendPriceChange(ctx, s.db, pc)
}

func (s *Store) appendPriceChange(ctx context.Context, q dbtx, pc inventory.PriceChange) error {
	query := `
		INSERT INTO price_changes
		(id, product_id, old_price, new_price, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		string(pc.ID),
		string(pc.ProductID),
		pc.OldPrice.String(),
		pc.NewPrice.String(),
		pc.ChangedBy,
		pc.ChangedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append price change: %w", err)
	}
	return nil
}

func (s *Store) PriceChanges(ctx context.Context, f inventory.PriceChangeFilter) ([]inventory.PriceChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryPriceChanges(ctx, s.db, f)
}

func (s *Store) queryPriceChanges(ctx context.Context, q dbtx, f inventory.PriceChangeFilter) ([]inventory.PriceChange, error) {
	query := `
		SELECT id, product_id, old_price, new_price, changed_by, changed_at
		FROM price_changes
	`
	var (
		where []string
		args  []any
	)
	if f.ProductID != nil {
		where = append(where, "product_id = ?")
		args = append(args, string(*f.ProductID))
	}
	if f.From != nil {
		where = append(where, "changed_at >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		where = append(where, "changed_at <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY changed_at ASC, rowid ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price changes: %w", err)
	}
	defer rows.Close()

	changes := make([]inventory.PriceChange, 0)
	for rows.Next() {
		var (
			pc        inventory.PriceChange
			id        string
			productID string
			oldPrice  string
			newPrice  string
			changedAt string
		)
		if err := rows.Scan(&id, &productID, &oldPrice, &newPrice, &pc.ChangedBy, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price change: %w", err)
		}
		pc.ID = inventory.PriceChangeID(id)
		pc.ProductID = inventory.ProductID(productID)
		if pc.OldPrice, err = parsePrice(oldPrice); err != nil {
			return nil, err
		}
		if pc.NewPrice, err = parsePrice(newPrice); err != nil {
			return nil, err
		}
		pc.ChangedAt, _ = time.Parse(time.RFC3339, changedAt)
		changes = append(changes, pc)
	}
	return changes, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (inventory.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The store
// mutex is held for the whole span, so the commit is the only writer.
func (s *Store) WithTx(ctx context.Context, fn func(store inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every Store call through the open transaction. It never
// takes the parent mutex; WithTx already holds it.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) SaveProduct(ctx context.Context, p inventory.Product) error {
	return ts.parent.insertProduct(ctx, ts.tx, p)
}

func (ts *txStore) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	return ts.parent.getProduct(ctx, ts.tx, id)
}

func (ts *txStore) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	return ts.parent.listProducts(ctx, ts.tx)
}

func (ts *txStore) UpdateProductInfo(ctx context.Context, p inventory.Product) error {
	return ts.parent.updateProductInfo(ctx, ts.tx, p)
}

func (ts *txStore) UpdateProductStock(ctx context.Context, id inventory.ProductID, stock int64) error {
	return ts.parent.updateProductStock(ctx, ts.tx, id, stock)
}

func (ts *txStore) UpdateProductPrice(ctx context.Context, id inventory.ProductID, price decimal.Decimal) error {
	return ts.parent.updateProductPrice(ctx, ts.tx, id, price)
}

func (ts *txStore) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	return ts.parent.deleteProduct(ctx, ts.tx, id)
}

func (ts *txStore) SaveSupplier(ctx context.Context, sup inventory.Supplier) error {
	return ts.parent.insertSupplier(ctx, ts.tx, sup)
}

func (ts *txStore) GetSupplier(ctx context.Context, id inventory.SupplierID) (*inventory.Supplier, error) {
	return ts.parent.getSupplier(ctx, ts.tx, id)
}

func (ts *txStore) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	return ts.parent.listSuppliers(ctx, ts.tx)
}

func (ts *txStore) UpdateSupplier(ctx context.Context, sup inventory.Supplier) error {
	return ts.parent.updateSupplier(ctx, ts.tx, sup)
}

func (ts *txStore) SaveLink(ctx context.Context, l inventory.SupplierLink) error {
	return ts.parent.insertLink(ctx, ts.tx, l)
}

func (ts *txStore) GetLink(ctx context.Context, id inventory.LinkID) (*inventory.SupplierLink, error) {
	return ts.parent.getLink(ctx, ts.tx, id)
}

func (ts *txStore) LinksByProduct(ctx context.Context, id inventory.ProductID) ([]inventory.SupplierLink, error) {
	return ts.parent.queryLinks(ctx, ts.tx, "product_id", string(id))
}

func (ts *txStore) LinksBySupplier(ctx context.Context, id inventory.SupplierID) ([]inventory.SupplierLink, error) {
	return ts.parent.queryLinks(ctx, ts.tx, "supplier_id", string(id))
}

func (ts *txStore) UpdateLink(ctx context.Context, l inventory.SupplierLink) error {
	return ts.parent.updateLink(ctx, ts.tx, l)
}

func (ts *txStore) DeleteLink(ctx context.Context, id inventory.LinkID) error {
	return ts.parent.deleteLink(ctx, ts.tx, id)
}

func (ts *txStore) AppendTransaction(ctx context.Context, t inventory.Transaction) error {
	return ts.parent.appendTransaction(ctx, ts.tx, t)
}

func (ts *txStore) Transactions(ctx context.Context, f inventory.TransactionFilter) ([]inventory.Transaction, error) {
	return ts.parent.queryTransactions(ctx, ts.tx, f)
}

func (ts *txStore) CountByProduct(ctx context.Context, id inventory.ProductID) (int64, error) {
	return ts.parent.countByProduct(ctx, ts.tx, id)
}

func (ts *txStore) AppendPriceChange(ctx context.Context, pc inventory.PriceChange) error {
	return ts.parent.appendPriceChange(ctx, ts.tx, pc)
}

func (ts *txStore) PriceChanges(ctx context.Context, f inventory.PriceChangeFilter) ([]inventory.PriceChange, error) {
	return ts.parent.queryPriceChanges(ctx, ts.tx, f)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse stored price %q: %w", s, err)
	}
	return d, nil
}

// oneRowOr returns notFound when the statement touched no rows.
func oneRowOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// mapUniqueError converts SQLite unique-constraint violations into the
// typed errors the memory store returns for the same collisions. Returns
// nil for anything else. The product_suppliers cases must come first:
// "suppliers.id" is a substring of "product_suppliers.id".
func mapUniqueError(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "product_suppliers.id"):
		return &inventory.ValidationError{Field: "id", Reason: "link already exists"}
	case strings.Contains(msg, "product_suppliers."):
		return inventory.ErrDuplicateLink
	case strings.Contains(msg, "products.id"):
		return &inventory.ValidationError{Field: "id", Reason: "product already exists"}
	case strings.Contains(msg, "suppliers.email"):
		return inventory.ErrDuplicateEmail
	case strings.Contains(msg, "suppliers.id"):
		return &inventory.ValidationError{Field: "id", Reason: "supplier already exists"}
	}
	return nil
}
