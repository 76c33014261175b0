package receipt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// processed_at is stored in UTC with fixed-width nanoseconds so that text
// ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS receipts (
  id TEXT PRIMARY KEY,
  date TEXT NOT NULL,
  vendor TEXT NOT NULL,
  total TEXT NOT NULL,
  source_locator TEXT NOT NULL,
  processed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_receipts_source ON receipts(source_locator);

CREATE TABLE IF NOT EXISTS receipt_items (
  receipt_id TEXT NOT NULL,
  line_no INTEGER NOT NULL,
  name TEXT NOT NULL,
  price TEXT,
  quantity TEXT,
  PRIMARY KEY (receipt_id, line_no)
);
`

// SQLiteDB implements the DB interface on a SQLite file
type SQLiteDB struct {
	conn *sql.DB
}

// NewSQLiteDB opens (and creates if needed) a SQLite database
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("configuring sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteDB{conn: conn}, nil
}

// SaveReceipt replaces the receipt row and its items in one transaction
func (d *SQLiteDB) SaveReceipt(ctx context.Context, receipt *Receipt) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO receipts (id, date, vendor, total, source_locator, processed_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  date = excluded.date,
  vendor = excluded.vendor,
  total = excluded.total,
  source_locator = excluded.source_locator,
  processed_at = excluded.processed_at`,
		receipt.ID, receipt.Date, receipt.Vendor, receipt.Total, receipt.SourceLocator,
		receipt.ProcessedAt.UTC().Format(sqliteTimeLayout),
	); err != nil {
		return fmt.Errorf("inserting receipt: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_items WHERE receipt_id = ?`, receipt.ID); err != nil {
		return fmt.Errorf("clearing receipt items: %w", err)
	}
	for i, item := range receipt.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO receipt_items (receipt_id, line_no, name, price, quantity) VALUES (?, ?, ?, ?, ?)`,
			receipt.ID, i, item.Name, nullString(item.Price), nullString(item.Quantity),
		); err != nil {
			return fmt.Errorf("inserting receipt item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt and its items by ID
func (d *SQLiteDB) GetReceipt(ctx context.Context, id string) (*Receipt, error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT id, date, vendor, total, source_locator, processed_at FROM receipts WHERE id = ?`, id)
	receipt, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	items, err := d.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	receipt.Items = items
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (d *SQLiteDB) ListReceipts(ctx context.Context) ([]*Receipt, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, date, vendor, total, source_locator, processed_at FROM receipts ORDER BY processed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]*Receipt, 0)
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating receipts: %w", err)
	}

	for _, receipt := range receipts {
		items, err := d.listItems(ctx, receipt.ID)
		if err != nil {
			return nil, err
		}
		receipt.Items = items
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its items
func (d *SQLiteDB) DeleteReceipt(ctx context.Context, id string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_items WHERE receipt_id = ?`, id); err != nil {
		return fmt.Errorf("deleting receipt items: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection
func (d *SQLiteDB) Close() error {
	return d.conn.Close()
}

func (d *SQLiteDB) listItems(ctx context.Context, receiptID string) ([]Item, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT name, price, quantity FROM receipt_items WHERE receipt_id = ? ORDER BY line_no`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("querying receipt items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var (
			item            Item
			price, quantity sql.NullString
		)
		if err := rows.Scan(&item.Name, &price, &quantity); err != nil {
			return nil, fmt.Errorf("scanning receipt item: %w", err)
		}
		item.Price = stringPtr(price)
		item.Quantity = stringPtr(quantity)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating receipt items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*Receipt, error) {
	var (
		receipt     Receipt
		processedAt string
	)
	if err := row.Scan(&receipt.ID, &receipt.Date, &receipt.Vendor, &receipt.Total, &receipt.SourceLocator, &processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}
	t, err := time.Parse(sqliteTimeLayout, processedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing processed_at: %w", err)
	}
	receipt.ProcessedAt = t
	return &receipt, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
