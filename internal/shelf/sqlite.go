package shelf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shelf (
    site TEXT NOT NULL,
    rule TEXT NOT NULL,
    context BLOB NOT NULL,
    PRIMARY KEY (site, rule)
);
`

// SQLite is the default shelf backend: one local transactional file with
// a single table keyed by the composite (site, rule).
type SQLite struct {
	db    *sql.DB
	diags *diag.Collector
}

// OpenSQLite opens (or creates) the shelf database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string, dc *diag.Collector) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("shelf: open sqlite %s: %w", path, err)
	}

	// Serialize writers at the connection level; readers still never see
	// a partial row because each write is a single transaction.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("shelf: configure sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("shelf: init schema: %w", err)
	}

	return &SQLite{db: db, diags: dc}, nil
}

// Get implements Shelf.
func (s *SQLite) Get(ctx context.Context, site, rule string) (routes.Context, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT context FROM shelf WHERE site = ? AND rule = ?", site, rule,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Site: site, Rule: rule}
	}
	if err != nil {
		return nil, fmt.Errorf("shelf: get (%s, %s): %w", site, rule, err)
	}
	return decodeContext(site, rule, blob)
}

// Put implements Shelf. The upsert runs in its own transaction.
func (s *SQLite) Put(ctx context.Context, site, rule string, v routes.Context) error {
	blob, err := encodeContext(site, rule, v, s.diags)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("shelf: begin put: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO shelf (site, rule, context) VALUES (?, ?, ?)
		ON CONFLICT (site, rule) DO UPDATE SET context = excluded.context`,
		site, rule, blob)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("shelf: put (%s, %s): %w", site, rule, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("shelf: commit put (%s, %s): %w", site, rule, err)
	}
	return nil
}

// List implements Shelf. Enumeration is ordered by rule, which keeps it
// stable within one store instance.
func (s *SQLite) List(ctx context.Context, site, rule string) ([]Key, error) {
	query := "SELECT site, rule FROM shelf WHERE site = ? ORDER BY rule"
	args := []any{site}
	if rule != "" {
		query = "SELECT site, rule FROM shelf WHERE site = ? AND rule = ? ORDER BY rule"
		args = append(args, rule)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("shelf: list %s: %w", site, err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Site, &k.Rule); err != nil {
			return nil, fmt.Errorf("shelf: list %s: %w", site, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shelf: list %s: %w", site, err)
	}
	return keys, nil
}

// Drop implements Shelf. An empty rule drops every entry for the site.
func (s *SQLite) Drop(ctx context.Context, site, rule string) error {
	query := "DELETE FROM shelf WHERE site = ?"
	args := []any{site}
	if rule != "" {
		query = "DELETE FROM shelf WHERE site = ? AND rule = ?"
		args = append(args, rule)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("shelf: begin drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("shelf: drop (%s, %s): %w", site, rule, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("shelf: commit drop (%s, %s): %w", site, rule, err)
	}
	return nil
}

// Close implements Shelf.
func (s *SQLite) Close() error {
	return s.db.Close()
}
