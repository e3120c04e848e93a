package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storevec/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads the initial list from an sqlite file. Rows are returned
// in position order.
type SQLiteSource struct {
	Path string
}

func (s SQLiteSource) FetchItems(ctx context.Context) ([]model.Item, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, value FROM items ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("loader: query items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var rawID, value string
		if err := rows.Scan(&rawID, &value); err != nil {
			return nil, err
		}
		id, err := model.ParseItemID(rawID)
		if err != nil {
			return nil, fmt.Errorf("loader: row %q: %w", rawID, err)
		}
		items = append(items, model.Item{ID: id, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Seed replaces the stored list with items.
func (s SQLiteSource) Seed(ctx context.Context, items []model.Item) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items(position, id, value) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, i, it.ID.String(), it.Value); err != nil {
			return fmt.Errorf("loader: seed %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

func (s SQLiteSource) open(ctx context.Context) (*sql.DB, error) {
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return nil, errors.New("loader: sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS items (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		value TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
