// Package pgstore persists subdivision documents in PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/core/observability"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/store"
	"github.com/AbdulRahmanNour1/Point-Location-and-Trapezoidal-Method-Slab-Method/internal/subdivision"
)

const schema = `CREATE TABLE IF NOT EXISTS subdivisions (
	name       TEXT PRIMARY KEY,
	revision   BIGINT NOT NULL,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	upsertSQL = `INSERT INTO subdivisions (name, revision, document, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (name) DO UPDATE
SET revision = EXCLUDED.revision, document = EXCLUDED.document, updated_at = now()`
	deleteSQL = `DELETE FROM subdivisions WHERE name = $1`
	listSQL   = `SELECT name, document FROM subdivisions ORDER BY name`
)

type Store struct {
	db *sql.DB
}

var _ store.Interface = (*Store)(nil)

// Open connects with the lib/pq driver and creates the table if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore open: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, schema)
	observability.ObserveStoreOp("schema", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("pgstore schema: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, doc subdivision.Document) error {
	b, err := encode(doc)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = s.db.ExecContext(ctx, upsertSQL, doc.Name, int64(doc.Revision), b)
	observability.ObserveStoreOp("put", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("pgstore upsert %q: %w", doc.Name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, deleteSQL, name)
	observability.ObserveStoreOp("delete", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("pgstore delete %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgstore delete %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", name, store.ErrNotFound)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]subdivision.Document, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, listSQL)
	observability.ObserveStoreOp("list", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("pgstore list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []subdivision.Document
	var bad []error
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("pgstore list scan: %w", err)
		}
		doc, err := decode(name, raw)
		if err != nil {
			bad = append(bad, err)
			continue
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore list rows: %w", err)
	}
	return out, errors.Join(bad...)
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("pgstore close: %w", err)
	}
	return nil
}
