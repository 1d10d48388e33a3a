package secrets

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/eugenenazirov/strata/internal/handler"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS secrets (
	path       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLStore keeps secrets as JSON documents in a SQLite table. It suits local
// development and air-gapped hosts where running Vault is not an option.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (creating if needed) the SQLite database at dsn.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open secret database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store, err := NewSQLStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an existing database handle and ensures the schema.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("initialize secret schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the secret at path.
func (s *SQLStore) Put(path string, data map[string]any) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode secret %s: %w", p, err)
	}

	_, err = s.db.Exec(`
INSERT INTO secrets (path, data) VALUES (?, ?)
ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`, p, string(encoded))
	if err != nil {
		return fmt.Errorf("store secret %s: %w", p, err)
	}
	return nil
}

// Read implements Store.
func (s *SQLStore) Read(path string) (any, bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, false, err
	}

	var raw string
	err = s.db.QueryRow(`SELECT data FROM secrets WHERE path = ?`, p).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query secret %s: %w", p, err)
	}

	parsed, err := handler.ParseJSON([]byte(raw))
	if err != nil {
		return nil, false, fmt.Errorf("decode secret %s: %w", p, err)
	}
	if _, ok := parsed.(map[string]any); !ok {
		return nil, false, fmt.Errorf("decode secret %s: %w", p, ErrInvalidSecret)
	}
	return parsed, true, nil
}

// List implements Store.
func (s *SQLStore) List(prefix string) ([]string, error) {
	prefix = strings.Trim(prefix, "/")
	pattern := "%"
	if prefix != "" {
		pattern = escapeLike(prefix) + "/%"
	}

	rows, err := s.db.Query(`SELECT path FROM secrets WHERE path LIKE ? ESCAPE '\' ORDER BY path`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list secrets under %s: %w", prefix, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan secret path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list secrets under %s: %w", prefix, err)
	}
	return childEntries(paths, prefix), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
