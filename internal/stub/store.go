// Package stub implements a development emulation of the admin backend: a
// chi-served REST API over a SQLite fixture store. It deliberately answers
// list queries with the same zoo of envelope shapes the real backend has, so
// the client layer is exercised end to end without network access to
// production.
package stub

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/record"
)

// ErrNotFound is returned for lookups of absent records.
var ErrNotFound = errors.New("stub: record not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	resource   TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (resource, id)
);

CREATE INDEX IF NOT EXISTS idx_records_resource ON records(resource);
`

// Store is the SQLite-backed fixture store.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the fixture database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("stub: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("stub: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("stub: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// ListFilter is the subset of list-query parameters the stub honors.
type ListFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// List returns one page of a resource's records plus the filtered total.
// Filtering is done in memory; fixture datasets are small by construction.
func (s *Store) List(resource string, f ListFilter) ([]record.Record, int, error) {
	rows, err := s.conn.Query(`SELECT id, data FROM records WHERE resource = ? ORDER BY id`, resource)
	if err != nil {
		return nil, 0, fmt.Errorf("stub: list %s: %w", resource, err)
	}
	defer rows.Close()

	var all []record.Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, 0, err
		}
		var rec record.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		if matches(rec, f) {
			all = append(all, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	total := len(all)
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []record.Record{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// Get returns one record or ErrNotFound.
func (s *Store) Get(resource, id string) (record.Record, error) {
	var data string
	err := s.conn.QueryRow(`SELECT data FROM records WHERE resource = ? AND id = ?`, resource, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stub: get %s/%s: %w", resource, id, err)
	}
	var rec record.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("stub: decode %s/%s: %w", resource, id, err)
	}
	return rec, nil
}

// Put inserts or replaces a record.
func (s *Store) Put(resource, id string, rec record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("stub: encode %s/%s: %w", resource, id, err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO records (resource, id, data) VALUES (?, ?, ?)
		ON CONFLICT(resource, id) DO UPDATE SET data = excluded.data
	`, resource, id, string(data))
	if err != nil {
		return fmt.Errorf("stub: put %s/%s: %w", resource, id, err)
	}
	return nil
}

// Delete removes a record; deleting an absent record returns ErrNotFound.
func (s *Store) Delete(resource, id string) error {
	res, err := s.conn.Exec(`DELETE FROM records WHERE resource = ? AND id = ?`, resource, id)
	if err != nil {
		return fmt.Errorf("stub: delete %s/%s: %w", resource, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of records stored for a resource.
func (s *Store) Count(resource string) (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM records WHERE resource = ?`, resource).Scan(&n); err != nil {
		return 0, fmt.Errorf("stub: count %s: %w", resource, err)
	}
	return n, nil
}

// matches applies the supported filters: status equality against the usual
// status field names, and case-insensitive substring search across string
// values.
func matches(rec record.Record, f ListFilter) bool {
	if f.Status != "" {
		st, _ := rec["status"].(string)
		if st == "" {
			st, _ = rec["state"].(string)
		}
		if !strings.EqualFold(st, f.Status) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		found := false
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if sv, ok := rec[k].(string); ok && strings.Contains(strings.ToLower(sv), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
