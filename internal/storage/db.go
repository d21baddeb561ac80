package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"quotescribe/internal"
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
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  productCode TEXT NOT NULL,
  brand TEXT,
  unitPrice REAL NOT NULL DEFAULT 0,
  gstRate REAL NOT NULL DEFAULT 0,
  category TEXT,
  minQuantity INTEGER,
  maxQuantity INTEGER,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
CREATE INDEX IF NOT EXISTS idx_products_code ON products(productCode);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS classifications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER NOT NULL UNIQUE,
  isQuoteRequest INTEGER NOT NULL,
  confidence TEXT NOT NULL,
  productName TEXT,
  productCode TEXT,
  reasoning TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS quotes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER NOT NULL UNIQUE,
  customerName TEXT NOT NULL,
  emailAddress TEXT,
  overallConfidence TEXT NOT NULL,
  totalPrice REAL NOT NULL,
  totalGst REAL NOT NULL,
  grandTotal REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS quote_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  quoteId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  product TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  confidence TEXT NOT NULL,
  unitPrice REAL NOT NULL,
  subtotal REAL NOT NULL,
  gstRate REAL NOT NULL,
  gstAmount REAL NOT NULL,
  unpriced INTEGER NOT NULL DEFAULT 0,
  UNIQUE(quoteId, lineNo),
  FOREIGN KEY(quoteId) REFERENCES quotes(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  emailId INTEGER,
  totalMs REAL NOT NULL,
  detected INTEGER NOT NULL,
  priced INTEGER NOT NULL,
  unpriced INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceProducts swaps in a fresh catalog snapshot. Row IDs follow sheet
// order, which is also bracket lookup order.
func (d *DB) ReplaceProducts(products []internal.Product) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM products`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO products (id, name, productCode, brand, unitPrice, gstRate, category, minQuantity, maxQuantity, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.Exec(
			p.ID, p.Name, p.ProductCode, p.Brand, p.UnitPrice, p.GSTRate,
			p.Category, p.MinQuantity, p.MaxQuantity,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListProducts() ([]internal.Product, error) {
	rows, err := d.conn.Query(`
SELECT id, name, productCode, brand, unitPrice, gstRate, category, minQuantity, maxQuantity
FROM products ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Product
	for rows.Next() {
		var p internal.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.ProductCode, &p.Brand, &p.UnitPrice, &p.GSTRate,
			&p.Category, &p.MinQuantity, &p.MaxQuantity,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

// ClearEmailProcessing removes any prior classification and quote for the
// email so reprocessing starts clean.
func (d *DB) ClearEmailProcessing(emailID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
DELETE FROM quote_lines WHERE quoteId IN (SELECT id FROM quotes WHERE emailId = ?)`, emailID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM quotes WHERE emailId = ?`, emailID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM classifications WHERE emailId = ?`, emailID); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) InsertClassification(emailID int, c internal.EmailClassification) error {
	var productName, productCode *string
	if c.DetectedProduct != nil {
		productName = &c.DetectedProduct.Name
		productCode = &c.DetectedProduct.Code
	}

	_, err := d.conn.Exec(`
INSERT INTO classifications (emailId, isQuoteRequest, confidence, productName, productCode, reasoning)
VALUES (?, ?, ?, ?, ?, ?)
`, emailID, c.IsQuoteRequest, string(c.Confidence), productName, productCode, c.Reasoning)
	return err
}

func (d *DB) InsertQuote(emailID int, info internal.MultiProductParsedInfo, summary internal.QuoteSummary) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
INSERT INTO quotes (emailId, customerName, emailAddress, overallConfidence, totalPrice, totalGst, grandTotal)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, emailID, info.CustomerName, info.EmailAddress, string(info.OverallConfidence), summary.TotalPrice, summary.TotalGST, summary.GrandTotal)
	if err != nil {
		return 0, err
	}
	quoteID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
INSERT INTO quote_lines (quoteId, lineNo, product, quantity, confidence, unitPrice, subtotal, gstRate, gstAmount, unpriced)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, line := range summary.ItemBreakdown {
		if _, err := stmt.Exec(
			quoteID, i+1, line.Product, line.Quantity, string(line.Confidence),
			line.UnitPrice, line.Subtotal, line.GSTRate, line.GSTAmount, line.Unpriced,
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return quoteID, nil
}

func (d *DB) InsertRun(traceID string, emailID int, totalMs float64, detected, priced, unpriced int) error {
	_, err := d.conn.Exec(`
INSERT INTO runs (traceId, emailId, totalMs, detected, priced, unpriced)
VALUES (?, ?, ?, ?, ?, ?)
`, traceID, emailID, totalMs, detected, priced, unpriced)
	return err
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

// GetQuoteExportRows flattens an email's quote into export rows, priced
// lines first.
func (d *DB) GetQuoteExportRows(emailID int) ([]internal.QuoteExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  l.lineNo,
  l.product,
  l.quantity,
  l.confidence,
  l.unitPrice,
  l.subtotal,
  l.gstRate,
  l.gstAmount,
  l.unpriced,
  q.customerName,
  q.emailAddress
FROM quote_lines l
JOIN quotes q ON q.id = l.quoteId
WHERE q.emailId = ?
ORDER BY l.unpriced ASC, l.lineNo ASC
`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.QuoteExportRow
	for rows.Next() {
		var row internal.QuoteExportRow
		if err := rows.Scan(
			&row.LineNo,
			&row.Product,
			&row.Quantity,
			&row.Confidence,
			&row.UnitPrice,
			&row.Subtotal,
			&row.GSTRate,
			&row.GSTAmount,
			&row.Unpriced,
			&row.CustomerName,
			&row.EmailAddress,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
