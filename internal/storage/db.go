package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"optika/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  categoryId TEXT,
  retailPrice REAL NOT NULL DEFAULT 0,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(categoryId);

CREATE TABLE IF NOT EXISTS purchase_orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  productId TEXT NOT NULL,
  rowsJson TEXT NOT NULL,
  stockInAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_purchase_orders_product ON purchase_orders(productId);

CREATE TABLE IF NOT EXISTS refraction_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customerId TEXT NOT NULL,
  examUid TEXT,
  rightJson TEXT NOT NULL,
  leftJson TEXT NOT NULL,
  pdBinocular TEXT,
  pdRight TEXT,
  pdLeft TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(customerId, examUid)
);
CREATE INDEX IF NOT EXISTS idx_refraction_customer ON refraction_records(customerId);

CREATE TABLE IF NOT EXISTS sales_orders (
  id TEXT PRIMARY KEY,
  orderNo TEXT NOT NULL UNIQUE,
  orderDate TEXT NOT NULL,
  customerId TEXT,
  customerName TEXT,
  totalAmount REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sales_order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  orderId TEXT NOT NULL,
  productId TEXT NOT NULL,
  productName TEXT NOT NULL,
  spec TEXT,
  quantity INTEGER NOT NULL,
  salesPrice REAL NOT NULL,
  FOREIGN KEY(orderId) REFERENCES sales_orders(id)
);
CREATE INDEX IF NOT EXISTS idx_sales_order_items_order ON sales_order_items(orderId);

CREATE TABLE IF NOT EXISTS fulfillments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  kind TEXT NOT NULL,
  orderId TEXT NOT NULL,
  orderNo TEXT NOT NULL,
  productId TEXT NOT NULL,
  productName TEXT NOT NULL,
  spec TEXT,
  quantity INTEGER NOT NULL,
  salesPrice REAL NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(orderId) REFERENCES sales_orders(id)
);
CREATE INDEX IF NOT EXISTS idx_fulfillments_kind ON fulfillments(kind);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertCategories(categories []internal.ProductCategory) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range categories {
		if _, err := tx.Exec(`
INSERT INTO categories (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name
`, c.ID, c.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) UpsertProducts(products []internal.Product) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (id, name, categoryId, retailPrice, lastSeenAt)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  categoryId=excluded.categoryId,
  retailPrice=excluded.retailPrice,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.Exec(p.ID, p.Name, p.CategoryID, p.RetailPrice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListProducts() ([]internal.Product, error) {
	rows, err := d.conn.Query(`
SELECT p.id, p.name, COALESCE(p.categoryId, ''), COALESCE(c.name, ''), p.retailPrice
FROM products p LEFT JOIN categories c ON c.id = p.categoryId
ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Product
	for rows.Next() {
		var p internal.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.RetailPrice); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) GetProduct(id string) (*internal.Product, error) {
	var p internal.Product
	err := d.conn.QueryRow(`
SELECT p.id, p.name, COALESCE(p.categoryId, ''), COALESCE(c.name, ''), p.retailPrice
FROM products p LEFT JOIN categories c ON c.id = p.categoryId
WHERE p.id = ?`, id).Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.RetailPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) InsertPurchaseOrder(lot internal.PurchaseListOrder) (int64, error) {
	rowsJSON, err := json.Marshal(lot.Rows)
	if err != nil {
		return 0, err
	}
	result, err := d.conn.Exec(`
INSERT INTO purchase_orders (productId, rowsJson, stockInAt)
VALUES (?, ?, ?)
`, lot.ProductID, string(rowsJSON), lot.StockInAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// MarkStockIn stamps a lot as received, from which point it
// participates in sellable stock.
func (d *DB) MarkStockIn(lotID int64, at string) error {
	_, err := d.conn.Exec(`UPDATE purchase_orders SET stockInAt = ? WHERE id = ?`, at, lotID)
	return err
}

func (d *DB) listLots(query string, args ...any) ([]*internal.PurchaseListOrder, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*internal.PurchaseListOrder
	for rows.Next() {
		var lot internal.PurchaseListOrder
		var rowsJSON string
		if err := rows.Scan(&lot.ID, &lot.ProductID, &rowsJSON, &lot.StockInAt, &lot.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rowsJSON), &lot.Rows); err != nil {
			return nil, fmt.Errorf("decode lot %d rows: %w", lot.ID, err)
		}
		out = append(out, &lot)
	}
	return out, rows.Err()
}

func (d *DB) ListLotsByProduct(productID string) ([]*internal.PurchaseListOrder, error) {
	return d.listLots(`
SELECT id, productId, rowsJson, stockInAt, createdAt
FROM purchase_orders WHERE productId = ?
ORDER BY stockInAt IS NULL, stockInAt ASC, id ASC`, productID)
}

// ListReceivedLots returns a product's received lots in stock-in
// order, the working set of the deduction engine.
func (d *DB) ListReceivedLots(productID string) ([]*internal.PurchaseListOrder, error) {
	return d.listLots(`
SELECT id, productId, rowsJson, stockInAt, createdAt
FROM purchase_orders WHERE productId = ? AND stockInAt IS NOT NULL
ORDER BY stockInAt ASC, id ASC`, productID)
}

func (d *DB) ListAllReceivedLots() ([]*internal.PurchaseListOrder, error) {
	return d.listLots(`
SELECT id, productId, rowsJson, stockInAt, createdAt
FROM purchase_orders WHERE stockInAt IS NOT NULL
ORDER BY stockInAt ASC, id ASC`)
}

// ReplaceLotRows persists a lot's mutated row list. Deduction calls
// this only for lots that actually changed.
func (d *DB) ReplaceLotRows(lotID int64, rows []internal.LensPurchaseRow) error {
	if rows == nil {
		rows = []internal.LensPurchaseRow{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`UPDATE purchase_orders SET rowsJson = ? WHERE id = ?`, string(rowsJSON), lotID)
	return err
}

func (d *DB) InsertRefractionRecord(rec internal.RefractionRecord) (int64, error) {
	rightJSON, err := json.Marshal(rec.Right)
	if err != nil {
		return 0, err
	}
	leftJSON, err := json.Marshal(rec.Left)
	if err != nil {
		return 0, err
	}

	// Re-imported registry exams collide on (customerId, examUid) and
	// are silently kept as the original record.
	result, err := d.conn.Exec(`
INSERT OR IGNORE INTO refraction_records
  (customerId, examUid, rightJson, leftJson, pdBinocular, pdRight, pdLeft)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, rec.CustomerID, rec.ExamUID, string(rightJSON), string(leftJSON), rec.PDBinocular, rec.PDRight, rec.PDLeft)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

func (d *DB) ListRefractionRecords(customerID string) ([]internal.RefractionRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, customerId, examUid, rightJson, leftJson,
       COALESCE(pdBinocular,''), COALESCE(pdRight,''), COALESCE(pdLeft,''), createdAt
FROM refraction_records WHERE customerId = ?
ORDER BY createdAt DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RefractionRecord
	for rows.Next() {
		var rec internal.RefractionRecord
		var rightJSON, leftJSON string
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.ExamUID, &rightJSON, &leftJSON,
			&rec.PDBinocular, &rec.PDRight, &rec.PDLeft, &rec.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(rightJSON), &rec.Right)
		_ = json.Unmarshal([]byte(leftJSON), &rec.Left)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertSalesOrder writes the order header and its immutable line
// snapshots in one transaction.
func (d *DB) InsertSalesOrder(order internal.SalesOrder) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO sales_orders (id, orderNo, orderDate, customerId, customerName, totalAmount, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, order.ID, order.OrderNo, order.OrderDate, order.CustomerID, order.CustomerName, order.TotalAmount, order.CreatedAt); err != nil {
		return err
	}

	for _, item := range order.Items {
		if _, err := tx.Exec(`
INSERT INTO sales_order_items (orderId, productId, productName, spec, quantity, salesPrice)
VALUES (?, ?, ?, ?, ?, ?)
`, order.ID, item.ProductID, item.ProductName, item.SpecDisplay, item.Quantity, item.SalesPrice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListSalesOrders() ([]internal.SalesOrder, error) {
	rows, err := d.conn.Query(`
SELECT id, orderNo, orderDate, COALESCE(customerId,''), COALESCE(customerName,''), totalAmount, createdAt
FROM sales_orders ORDER BY createdAt DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SalesOrder
	for rows.Next() {
		var o internal.SalesOrder
		if err := rows.Scan(&o.ID, &o.OrderNo, &o.OrderDate, &o.CustomerID, &o.CustomerName, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := d.listOrderItems(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (d *DB) listOrderItems(orderID string) ([]internal.SalesOrderItem, error) {
	rows, err := d.conn.Query(`
SELECT productId, productName, COALESCE(spec,''), quantity, salesPrice
FROM sales_order_items WHERE orderId = ? ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SalesOrderItem
	for rows.Next() {
		var item internal.SalesOrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.SpecDisplay, &item.Quantity, &item.SalesPrice); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) InsertFulfillment(kind internal.FulfillmentKind, rec internal.FulfillmentRecord) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO fulfillments (kind, orderId, orderNo, productId, productName, spec, quantity, salesPrice, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, string(kind), rec.SalesOrderID, rec.OrderNo, rec.ProductID, rec.ProductName, rec.SpecDisplay, rec.Quantity, rec.SalesPrice, rec.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) ListFulfillments(kind internal.FulfillmentKind, orderID string) ([]internal.FulfillmentRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, orderId, orderNo, productId, productName, COALESCE(spec,''), quantity, salesPrice, createdAt
FROM fulfillments WHERE kind = ? AND (? = '' OR orderId = ?)
ORDER BY id ASC`, string(kind), orderID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.FulfillmentRecord
	for rows.Next() {
		var rec internal.FulfillmentRecord
		if err := rows.Scan(&rec.ID, &rec.SalesOrderID, &rec.OrderNo, &rec.ProductID, &rec.ProductName, &rec.SpecDisplay, &rec.Quantity, &rec.SalesPrice, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListCustomerSaleSpecs returns a customer's historical line specs,
// newest first, for the refraction import candidate list.
func (d *DB) ListCustomerSaleSpecs(customerID string) ([]string, error) {
	rows, err := d.conn.Query(`
SELECT COALESCE(i.spec, '')
FROM sales_order_items i
JOIN sales_orders o ON o.id = i.orderId
WHERE o.customerId = ?
ORDER BY o.createdAt DESC, i.id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var spec string
		if err := rows.Scan(&spec); err != nil {
			return nil, err
		}
		if spec != "" {
			out = append(out, spec)
		}
	}
	return out, rows.Err()
}

// ListCustomerIDs returns every customer the store knows of, from
// sales orders and refraction records alike.
func (d *DB) ListCustomerIDs(limit int) ([]string, error) {
	rows, err := d.conn.Query(`
SELECT customerId FROM (
  SELECT customerId FROM sales_orders WHERE COALESCE(customerId,'') <> ''
  UNION
  SELECT customerId FROM refraction_records WHERE COALESCE(customerId,'') <> ''
) ORDER BY customerId LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) GetSalesExportRows(fromDate, toDate string) ([]internal.SalesExportRow, error) {
	rows, err := d.conn.Query(`
SELECT o.orderNo, o.orderDate, COALESCE(o.customerName,''), f.kind,
       f.productId, f.productName, COALESCE(f.spec,''), f.quantity,
       f.salesPrice, f.createdAt
FROM fulfillments f
JOIN sales_orders o ON o.id = f.orderId
WHERE (? = '' OR o.orderDate >= ?) AND (? = '' OR o.orderDate <= ?)
ORDER BY o.orderDate ASC, o.orderNo ASC, f.id ASC
`, fromDate, fromDate, toDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SalesExportRow
	for rows.Next() {
		var row internal.SalesExportRow
		if err := rows.Scan(&row.OrderNo, &row.OrderDate, &row.CustomerName, &row.Kind,
			&row.ProductID, &row.ProductName, &row.Spec, &row.Quantity, &row.SalesPrice, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
