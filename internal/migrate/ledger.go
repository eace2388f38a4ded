package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LedgerTable is the table recording applied scripts.
const LedgerTable = "migrations"

const createLedger = `
CREATE TABLE IF NOT EXISTS migrations (
    id          INTEGER PRIMARY KEY,
    filename    TEXT UNIQUE NOT NULL,
    executed_at TEXT NOT NULL
)`

// ledgerTimeLayout matches the fixed-width layout used by the entity store.
const ledgerTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensureLedger(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createLedger); err != nil {
		return fmt.Errorf("creating migrations ledger: %w", err)
	}
	return nil
}

// appliedScripts returns the recorded filenames with their execution time.
func appliedScripts(ctx context.Context, db *sql.DB) (map[string]time.Time, error) {
	rows, err := db.QueryContext(ctx, "SELECT filename, executed_at FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations ledger: %w", err)
	}
	defer rows.Close()

	done := make(map[string]time.Time)
	for rows.Next() {
		var name, at string
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("scanning migrations ledger: %w", err)
		}
		t, err := time.Parse(ledgerTimeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parsing executed_at of %s: %w", name, err)
		}
		done[name] = t
	}
	return done, rows.Err()
}

func isRecorded(ctx context.Context, q execer, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking migrations ledger: %w", err)
	}
	return n > 0, nil
}

func record(ctx context.Context, q execer, name string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO migrations (filename, executed_at) VALUES (?, ?)",
		name, at.UTC().Format(ledgerTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}
