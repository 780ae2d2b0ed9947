// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ManuGH/relay247/internal/persistence/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ingest_registration (
	key        TEXT PRIMARY KEY,
	stream_id  TEXT NOT NULL,
	rtmp_url   TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);`

// SQLite stores the registration as a row keyed by name.
type SQLite struct {
	db  *sql.DB
	key string
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(ctx context.Context, path, key string) (*SQLite, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{db: db, key: key}, nil
}

func (s *SQLite) Load(ctx context.Context) (Registration, bool, error) {
	var reg Registration
	err := s.db.QueryRowContext(ctx,
		`SELECT stream_id, rtmp_url FROM ingest_registration WHERE key = ?`, s.key).
		Scan(&reg.StreamID, &reg.RTMPURL)
	if errors.Is(err, sql.ErrNoRows) {
		return Registration{}, false, nil
	}
	if err != nil {
		return Registration{}, false, fmt.Errorf("store: sqlite load: %w", err)
	}
	if reg.Validate() != nil {
		return Registration{}, false, nil
	}
	return reg, true, nil
}

func (s *SQLite) Save(ctx context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_registration (key, stream_id, rtmp_url, updated_at)
		VALUES (?, ?, ?, strftime('%s','now'))
		ON CONFLICT(key) DO UPDATE SET
			stream_id = excluded.stream_id,
			rtmp_url = excluded.rtmp_url,
			updated_at = excluded.updated_at`,
		s.key, reg.StreamID, reg.RTMPURL)
	if err != nil {
		return fmt.Errorf("store: sqlite save: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
