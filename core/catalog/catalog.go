// Package catalog caches inferred schemas in a SQLite database so repeated
// conversions against the same template skip re-inference.
//
// Entries are keyed by a BLAKE3 fingerprint of the template document bytes
// and the inference options; any change to either yields a fresh key.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
package catalog

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/zeebo/blake3"

	"github.com/xmlflat/xmlflat/core/errors"
	"github.com/xmlflat/xmlflat/core/schema"
)

// DriverType returns "purego" or "cgo" depending on the build mode.
func DriverType() string {
	return driverType
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schemas (
	fingerprint TEXT PRIMARY KEY,
	fields      INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	created_at  TEXT NOT NULL
);`

// Catalog is an open schema cache.
type Catalog struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the cache database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening schema catalog %s: %w", path, err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema catalog %s: %w", path, err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Fingerprint derives the cache key for a template document parsed with the
// given options.
func Fingerprint(template []byte, opts schema.Options) string {
	h := blake3.New()
	h.Write(template)
	threshold := opts.CatalystThreshold
	if threshold <= 0 {
		threshold = schema.DefaultCatalystThreshold
	}
	fmt.Fprintf(h, "|attrs=%t|ns=%t|catalyst=%t|k=%d",
		opts.WithAttributes, opts.WithNamespaces, opts.Catalyst, threshold)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

// Lookup returns the cached schema for a fingerprint, or ErrNotFound.
func (c *Catalog) Lookup(fingerprint string) (*schema.Schema, error) {
	var payload []byte
	err := c.db.QueryRow(
		`SELECT payload FROM schemas WHERE fingerprint = ?`, fingerprint,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying schema catalog: %w", err)
	}
	var s schema.Schema
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decoding cached schema: %w", err)
	}
	return &s, nil
}

// Store inserts or refreshes the cached schema for a fingerprint.
func (c *Catalog) Store(fingerprint string, s *schema.Schema) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO schemas (fingerprint, fields, payload, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			fields = excluded.fields,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		fingerprint, len(s.Fields), payload, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing schema: %w", err)
	}
	return nil
}
