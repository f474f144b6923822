package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/hulysync/beads-bridge/internal/types"
)

// ErrInvalidRecord is returned when a record cannot be stored.
var ErrInvalidRecord = errors.New("invalid record")

// DB is a SQLite-backed Store.
//
// The caller MUST call Close() when done.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the mapping database at path and
// ensures the schema exists.
//
// Example:
//
//	db, err := store.Open(".beads/hbsync.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	return OpenContext(context.Background(), path)
}

// OpenContext is Open with context support.
func OpenContext(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := db.InitSchemaContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchemaContext creates the mapping table if it doesn't exist. Idempotent.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS issues (
		identifier TEXT PRIMARY KEY,
		beads_issue_id TEXT,
		parent_huly_id TEXT,
		parent_beads_id TEXT,
		title TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_issues_beads ON issues(beads_issue_id);
	CREATE INDEX IF NOT EXISTS idx_issues_parent_huly ON issues(parent_huly_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// GetIssue implements Store.
func (db *DB) GetIssue(ctx context.Context, identifier string) (*types.DbRecord, error) {
	query := `
	SELECT identifier, beads_issue_id, parent_huly_id, parent_beads_id, title, updated_at
	FROM issues WHERE identifier = ?
	`

	rec, err := scanRecord(db.conn.QueryRowContext(ctx, query, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", identifier, err)
	}
	return rec, nil
}

// GetAllIssues implements Store.
func (db *DB) GetAllIssues(ctx context.Context) ([]types.DbRecord, error) {
	query := `
	SELECT identifier, beads_issue_id, parent_huly_id, parent_beads_id, title, updated_at
	FROM issues ORDER BY identifier
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var out []types.DbRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issues: %w", err)
	}
	return out, nil
}

// UpsertIssue implements Store. Empty optional fields are stored as NULL.
func (db *DB) UpsertIssue(ctx context.Context, rec types.DbRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO issues (identifier, beads_issue_id, parent_huly_id, parent_beads_id, title, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(identifier) DO UPDATE SET
		beads_issue_id = excluded.beads_issue_id,
		parent_huly_id = excluded.parent_huly_id,
		parent_beads_id = excluded.parent_beads_id,
		title = excluded.title,
		updated_at = excluded.updated_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		rec.Identifier,
		nullString(rec.BeadsIssueID),
		nullString(rec.ParentHulyID),
		nullString(rec.ParentBeadsID),
		nullString(rec.Title),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert issue %s: %w", rec.Identifier, err)
	}
	return nil
}

// Count returns the number of mapping rows.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count issues: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.DbRecord, error) {
	var (
		rec                                 types.DbRecord
		beadsID, parentHuly, parentBeads, t sql.NullString
		updatedAt                           string
	)
	if err := row.Scan(&rec.Identifier, &beadsID, &parentHuly, &parentBeads, &t, &updatedAt); err != nil {
		return nil, err
	}
	rec.BeadsIssueID = beadsID.String
	rec.ParentHulyID = parentHuly.String
	rec.ParentBeadsID = parentBeads.String
	rec.Title = t.String
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = ts
	}
	return &rec, nil
}

func validateRecord(rec types.DbRecord) error {
	if rec.Identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidRecord)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
