package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"crateworks/internal/app/ports"
	"crateworks/internal/domain/world"
)

// Store keeps pending deliveries and banked keys in a local sqlite file for
// single node deployments.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pending_deliveries (
			id TEXT PRIMARY KEY,
			observer TEXT NOT NULL,
			crate TEXT NOT NULL,
			items TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS pending_deliveries_observer ON pending_deliveries(observer, created_at);`,
		`CREATE TABLE IF NOT EXISTS banked_keys (
			observer TEXT NOT NULL,
			key_name TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (observer, key_name)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ListPending(ctx context.Context) ([]ports.DeliveryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, observer, crate, items, created_at FROM pending_deliveries ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.DeliveryRecord
	for rows.Next() {
		var (
			rec      ports.DeliveryRecord
			observer string
			items    string
			created  int64
		)
		if err := rows.Scan(&rec.ID, &observer, &rec.Crate, &items, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
			return nil, fmt.Errorf("delivery %s: decode items: %w", rec.ID, err)
		}
		rec.Observer = world.ObserverID(observer)
		rec.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Append(ctx context.Context, rec ports.DeliveryRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_deliveries (id, observer, crate, items, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		rec.ID, string(rec.Observer), rec.Crate, string(items), rec.CreatedAt.UnixNano())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_deliveries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]ports.BankedKeys, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT observer, key_name, count FROM banked_keys WHERE count > 0 ORDER BY observer, key_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.BankedKeys
	for rows.Next() {
		var (
			row      ports.BankedKeys
			observer string
		)
		if err := rows.Scan(&observer, &row.Key, &row.Count); err != nil {
			return nil, err
		}
		row.Observer = world.ObserverID(observer)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Upsert writes every row in one transaction. A zero count deletes the row.
func (s *Store) Upsert(ctx context.Context, rows []ports.BankedKeys) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rows {
		if r.Count <= 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM banked_keys WHERE observer = ? AND key_name = ?`, string(r.Observer), r.Key); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO banked_keys (observer, key_name, count) VALUES (?, ?, ?)
			 ON CONFLICT(observer, key_name) DO UPDATE SET count = excluded.count`,
			string(r.Observer), r.Key, r.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}
