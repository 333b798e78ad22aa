// Package sqlite persists the activity log to a single SQLite file using the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/signalsfoundry/stowage/internal/activity"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store is an activity.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ activity.Store = (*Store)(nil)

// Open creates (if needed) and opens the log database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "activity.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; the state layer already serialises mutations.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS activity (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		ts INTEGER NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		item_id TEXT NOT NULL DEFAULT '',
		details BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create activity table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS activity_ts ON activity (ts)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create activity index: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Append writes all entries in one transaction.
func (s *Store) Append(ctx context.Context, entries ...activity.Entry) (retErr error) {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO activity (id, ts, user_id, action, item_id, details) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode details for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Timestamp.UTC().UnixNano(), e.UserID, string(e.Action), e.ItemID, details); err != nil {
			return fmt.Errorf("insert %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Query returns matching entries ordered by timestamp, then insertion.
func (s *Store) Query(ctx context.Context, f activity.Filter) ([]activity.Entry, error) {
	var (
		where []string
		args  []any
	)
	if !f.Start.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, f.Start.UTC().UnixNano())
	}
	if !f.End.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, f.End.UTC().UnixNano())
	}
	if f.ItemID != "" {
		where = append(where, "item_id = ?")
		args = append(args, f.ItemID)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(f.Action))
	}

	query := `SELECT id, ts, user_id, action, item_id, details FROM activity`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts, seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []activity.Entry
	for rows.Next() {
		var (
			e       activity.Entry
			ts      int64
			action  string
			details []byte
		)
		if err := rows.Scan(&e.ID, &ts, &e.UserID, &action, &e.ItemID, &details); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Action = activity.Action(action)
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode details for %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}
