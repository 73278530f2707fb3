// internal/writer/sqlite/store.go

// Package sqlite records drained samples in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/force-daq/internal/poller"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT    NOT NULL,
	channel  TEXT    NOT NULL,
	kind     TEXT    NOT NULL,
	at_ns    INTEGER NOT NULL,
	text     TEXT    NOT NULL,
	value    REAL
);
CREATE INDEX IF NOT EXISTS samples_run_channel ON samples (run_id, channel, id);
`

const insertSample = `INSERT INTO samples (run_id, channel, kind, at_ns, text, value) VALUES (?, ?, ?, ?, ?, ?)`

type Config struct {
	Path string
}

// Store is a Writer that appends every sample to the samples table.
// Each process run is identified by a fresh run id.
type Store struct {
	db    *sql.DB
	runID string
	log   *slog.Logger
}

// Record is one stored row.
type Record struct {
	Channel string
	Kind    string
	At      time.Time
	Text    string
	Value   sql.NullFloat64
}

// Open opens (or creates) the database and its schema.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("writer sqlite: path required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("writer sqlite: open %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("writer sqlite: ping %s: %w", cfg.Path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("writer sqlite: schema: %w", err)
	}

	s := &Store{db: db, runID: uuid.NewString()}
	s.log = logger.With("sink", "sqlite", "path", cfg.Path, "run_id", s.runID)
	s.log.Info("sqlite sink opened")
	return s, nil
}

// RunID identifies the rows written by this store.
func (s *Store) RunID() string { return s.runID }

// Write inserts all samples of the drained batches in one transaction.
func (s *Store) Write(channel string, batches []poller.Batch) error {
	samples := poller.Flatten(batches)
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("writer sqlite: begin: %w", err)
	}
	stmt, err := tx.Prepare(insertSample)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("writer sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		var v sql.NullFloat64
		if smp.Numeric {
			v = sql.NullFloat64{Float64: smp.Value, Valid: true}
		}
		if _, err := stmt.Exec(s.runID, channel, smp.Kind.String(), smp.At.UnixNano(), smp.Text, v); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("writer sqlite: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("writer sqlite: commit: %w", err)
	}
	return nil
}

// Records returns the rows of this run for one channel in insert order.
func (s *Store) Records(ctx context.Context, channel string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, kind, at_ns, text, value FROM samples WHERE run_id = ? AND channel = ? ORDER BY id`,
		s.runID, channel)
	if err != nil {
		return nil, fmt.Errorf("writer sqlite: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ns int64
		if err := rows.Scan(&r.Channel, &r.Kind, &ns, &r.Text, &r.Value); err != nil {
			return nil, fmt.Errorf("writer sqlite: scan: %w", err)
		}
		r.At = time.Unix(0, ns)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
