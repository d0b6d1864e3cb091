// Package storage persists the last merged working set per scope in a
// local SQLite database, so the CLI can render a view while the ledger
// server is unreachable. It is a convenience cache, not a source of
// truth: every snapshot is replaced wholesale after a successful fetch.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SnapshotStore is the local offline snapshot database.
type SnapshotStore struct {
	db     *sql.DB
	dbPath string
}

// NewSnapshotStore opens (or creates) the snapshot database.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath must not be empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SnapshotStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the stored rows for one account/period scope.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, account string, period model.StatementPeriod, rows []model.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshot_rows WHERE scope_account = ? AND statement_period = ?`,
		account, string(period)); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	fetchedAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (scope_account, statement_period, fetched_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(scope_account, statement_period) DO UPDATE SET fetched_at = excluded.fetched_at`,
		account, string(period), fetchedAt); err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_rows (
			scope_account, statement_period, position,
			id, account, name, amount, category, criticality,
			payment_method, memo, transaction_date, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			account, string(period), i,
			row.ID, row.Account, row.Name, row.Amount.String(),
			row.Category, row.Criticality, row.PaymentMethod, row.Memo,
			row.Date.UTC(), string(row.Source)); err != nil {
			return fmt.Errorf("failed to insert row %s: %w", row.ID, err)
		}
	}

	return tx.Commit()
}

// GetSnapshot returns the stored rows for one scope in their saved
// order, along with when they were fetched.
func (s *SnapshotStore) GetSnapshot(ctx context.Context, account string, period model.StatementPeriod) ([]model.Transaction, time.Time, error) {
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM snapshots WHERE scope_account = ? AND statement_period = ?`,
		account, string(period)).Scan(&fetchedAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	rowsIter, err := s.db.QueryContext(ctx,
		`SELECT id, account, name, amount, category, criticality,
			payment_method, memo, transaction_date, source
		 FROM snapshot_rows
		 WHERE scope_account = ? AND statement_period = ?
		 ORDER BY position`,
		account, string(period))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer func() { _ = rowsIter.Close() }()

	var out []model.Transaction
	for rowsIter.Next() {
		var txn model.Transaction
		var amount, source string
		if err := rowsIter.Scan(
			&txn.ID, &txn.Account, &txn.Name, &amount,
			&txn.Category, &txn.Criticality, &txn.PaymentMethod, &txn.Memo,
			&txn.Date, &source); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan row: %w", err)
		}
		txn.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("corrupt amount %q for row %s: %w", amount, txn.ID, err)
		}
		txn.StatementPeriod = period
		txn.Source = model.Source(source)
		out = append(out, txn)
	}
	if err := rowsIter.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return out, fetchedAt, nil
}
