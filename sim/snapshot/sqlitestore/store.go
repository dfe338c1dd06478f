// Package sqlitestore keeps snapshots in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/devskit/sim/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS bundles (
	name         TEXT PRIMARY KEY,
	kernel       TEXT NOT NULL,
	time         REAL NOT NULL,
	input_ports  TEXT NOT NULL,
	output_ports TEXT NOT NULL,
	models       TEXT NOT NULL,
	relations    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bundle_blobs (
	bundle TEXT NOT NULL,
	model  TEXT NOT NULL,
	blob   BLOB NOT NULL,
	PRIMARY KEY (bundle, model)
);
CREATE TABLE IF NOT EXISTS model_snapshots (
	point TEXT NOT NULL,
	model TEXT NOT NULL,
	blob  BLOB NOT NULL,
	PRIMARY KEY (point, model)
);
`

// Store implements snapshot.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	s, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewWithDB creates the tables in an open database.
func NewWithDB(db *sql.DB) (*Store, error) {
	_, err := db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBundle replaces the bundle with the same name in one transaction.
func (s *Store) SaveBundle(ctx context.Context, b *snapshot.Bundle) error {
	fields, err := encodeFields(b.InputPorts, b.OutputPorts, b.Models, b.Relations)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM bundle_blobs WHERE bundle = ?`, b.Name)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO bundles VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Kernel, b.Time,
		fields[0], fields[1], fields[2], fields[3])
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bundle_blobs VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range b.Models {
		_, err = stmt.ExecContext(ctx, b.Name, m, b.Blobs[m])
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func encodeFields(values ...any) ([]string, error) {
	out := make([]string, len(values))

	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		out[i] = string(data)
	}

	return out, nil
}

// LoadBundle reads a bundle and its blobs.
func (s *Store) LoadBundle(
	ctx context.Context,
	name string,
) (*snapshot.Bundle, error) {
	b := &snapshot.Bundle{Name: name, Blobs: make(map[string][]byte)}

	var inputs, outputs, models, relations string

	err := s.db.QueryRowContext(ctx,
		`SELECT kernel, time, input_ports, output_ports, models, relations
		FROM bundles WHERE name = ?`, name).
		Scan(&b.Kernel, &b.Time, &inputs, &outputs, &models, &relations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrNotFound, name)
	}

	if err != nil {
		return nil, err
	}

	decoded := []struct {
		raw string
		v   any
	}{
		{inputs, &b.InputPorts},
		{outputs, &b.OutputPorts},
		{models, &b.Models},
		{relations, &b.Relations},
	}
	for _, d := range decoded {
		if err := json.Unmarshal([]byte(d.raw), d.v); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", name, err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT model, blob FROM bundle_blobs WHERE bundle = ?`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			model string
			blob  []byte
		)

		if err := rows.Scan(&model, &blob); err != nil {
			return nil, err
		}

		b.Blobs[model] = blob
	}

	return b, rows.Err()
}

// ListBundles returns the bundle names in lexical order.
func (s *Store) ListBundles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM bundles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// SaveModel writes a per-model snapshot, replacing any earlier one under
// the same key.
func (s *Store) SaveModel(
	ctx context.Context,
	key snapshot.ModelKey,
	blob []byte,
) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO model_snapshots VALUES (?, ?, ?)`,
		string(key.Point), key.Model, blob)

	return err
}

// LoadModel reads a per-model snapshot.
func (s *Store) LoadModel(
	ctx context.Context,
	key snapshot.ModelKey,
) ([]byte, error) {
	var blob []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM model_snapshots WHERE point = ? AND model = ?`,
		string(key.Point), key.Model).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrNotFound, key)
	}

	return blob, err
}

// ListModels returns the keys of the per-model snapshots.
func (s *Store) ListModels(ctx context.Context) ([]snapshot.ModelKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT point, model FROM model_snapshots ORDER BY point, model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []snapshot.ModelKey

	for rows.Next() {
		var point, model string
		if err := rows.Scan(&point, &model); err != nil {
			return nil, err
		}

		keys = append(keys, snapshot.ModelKey{
			Point: snapshot.Point(point),
			Model: model,
		})
	}

	return keys, rows.Err()
}

var _ snapshot.Store = (*Store)(nil)
