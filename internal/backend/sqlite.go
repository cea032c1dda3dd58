package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"git.uuxo.net/uuxo/mimedb/internal/mimestore"
)

// SQLiteBackend keeps the database in a SQLite table, one row per MIME type
// with its extensions space-joined.
type SQLiteBackend struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// OpenSQLite opens (and if needed creates) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteBackend, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, dbPath: dbPath}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	log.Infof("SQLite backend initialized at %s", dbPath)
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	_, err := b.db.Exec(`
	CREATE TABLE IF NOT EXISTS mime_types (
		mime       TEXT PRIMARY KEY,
		extensions TEXT NOT NULL DEFAULT ''
	);`)
	if err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

// Load rebuilds a store from the table. Rows are fed through Add, so
// duplicate or empty extensions in hand-edited rows are dropped.
func (b *SQLiteBackend) Load(ctx context.Context) (*mimestore.Store, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.db.QueryContext(ctx, "SELECT mime, extensions FROM mime_types ORDER BY mime")
	if err != nil {
		return nil, fmt.Errorf("failed to query mime types: %w", err)
	}
	defer rows.Close()

	s := mimestore.NewEmpty(nil)
	for rows.Next() {
		var mime, exts string
		if err := rows.Scan(&mime, &exts); err != nil {
			return nil, fmt.Errorf("failed to scan mime type row: %w", err)
		}
		for _, ext := range strings.Fields(exts) {
			s.Add(ext, mime)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mime types: %w", err)
	}

	log.Debugf("Loaded %d MIME types from %s", s.Len(), b.dbPath)
	return s, nil
}

// Save replaces the table contents with s in one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, s *mimestore.Store) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM mime_types"); err != nil {
		return fmt.Errorf("failed to clear mime types: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO mime_types (mime, extensions) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, mime := range s.Types() {
		if _, err := stmt.ExecContext(ctx, mime, strings.Join(s.Extensions(mime), " ")); err != nil {
			return fmt.Errorf("failed to insert %s: %w", mime, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mime types: %w", err)
	}
	log.Debugf("Saved %d MIME types to %s", s.Len(), b.dbPath)
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
