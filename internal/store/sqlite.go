package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/wcatz/dashboard-grid/internal/grid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS widgets (
	id         TEXT PRIMARY KEY,
	seq        INTEGER NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	grid_col   INTEGER NOT NULL,
	grid_row   INTEGER NOT NULL,
	width      INTEGER NOT NULL,
	height     INTEGER NOT NULL,
	min_width  INTEGER,
	min_height INTEGER,
	max_width  INTEGER,
	max_height INTEGER,
	updated_at INTEGER NOT NULL
);`

// SQLite stores widgets in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// sqliteDBString builds a connection string with WAL and a busy timeout.
func sqliteDBString(file string) string {
	params := make(url.Values)
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_txlock", "immediate")
	return "file:" + file + "?" + params.Encode()
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", sqliteDBString(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// single connection serializes writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Load returns the widgets in insertion order.
func (s *SQLite) Load(ctx context.Context) ([]grid.Widget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, grid_col, grid_row, width, height, min_width, min_height, max_width, max_height
		FROM widgets ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying widgets: %w", err)
	}
	defer rows.Close()

	var out []grid.Widget
	for rows.Next() {
		var w grid.Widget
		var minW, minH, maxW, maxH sql.NullInt64
		if err := rows.Scan(&w.ID, &w.Kind, &w.Position.Column, &w.Position.Row,
			&w.Size.Width, &w.Size.Height, &minW, &minH, &maxW, &maxH); err != nil {
			return nil, fmt.Errorf("scanning widget: %w", err)
		}
		w.MinSize = sizeFromNull(minW, minH)
		w.MaxSize = sizeFromNull(maxW, maxH)
		out = append(out, w)
	}
	return out, rows.Err()
}

// Save upserts w, keeping its original position in the order.
func (s *SQLite) Save(ctx context.Context, w grid.Widget) error {
	minW, minH := sizeToNull(w.MinSize)
	maxW, maxH := sizeToNull(w.MaxSize)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO widgets (id, seq, kind, grid_col, grid_row, width, height, min_width, min_height, max_width, max_height, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM widgets), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			grid_col = excluded.grid_col,
			grid_row = excluded.grid_row,
			width = excluded.width,
			height = excluded.height,
			min_width = excluded.min_width,
			min_height = excluded.min_height,
			max_width = excluded.max_width,
			max_height = excluded.max_height,
			updated_at = excluded.updated_at`,
		w.ID, w.Kind, w.Position.Column, w.Position.Row, w.Size.Width, w.Size.Height,
		minW, minH, maxW, maxH, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving widget '%s': %w", w.ID, err)
	}
	return nil
}

// Delete removes id, returning ErrNotFound if no row matched.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM widgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting widget '%s': %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting widget '%s': %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func sizeFromNull(w, h sql.NullInt64) *grid.Size {
	if !w.Valid || !h.Valid {
		return nil
	}
	return &grid.Size{Width: int(w.Int64), Height: int(h.Int64)}
}

func sizeToNull(s *grid.Size) (sql.NullInt64, sql.NullInt64) {
	if s == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(s.Width), Valid: true}, sql.NullInt64{Int64: int64(s.Height), Valid: true}
}
