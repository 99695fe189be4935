package sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
)

// PGSink aggregates attempts into a plain keyed-counter table: one row per
// (domain, technique) pair with a running count and last-seen timestamp.
type PGSink struct {
	DSN   string
	Table string

	db *sql.DB
}

func NewPGSink(dsn, table string) *PGSink {
	if table == "" {
		table = "attempt_counts"
	}
	return &PGSink{DSN: dsn, Table: table}
}

// tableNameRe matches valid unquoted Postgres identifiers.
var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName rejects anything that could smuggle SQL through the
// interpolated table name.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("table name exceeds 63 characters")
	}
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func (s *PGSink) Start(ctx context.Context) error {
	if err := validateTableName(s.Table); err != nil {
		return err
	}

	db, err := sql.Open("postgres", s.DSN)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		domain     TEXT NOT NULL,
		technique  TEXT NOT NULL,
		count      BIGINT NOT NULL DEFAULT 0,
		last_seen  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (domain, technique)
	)`, s.Table)
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		db.Close()
		return fmt.Errorf("failed to create counter table: %w", err)
	}

	s.db = db
	return nil
}

func (s *PGSink) Enqueue(a attemptlog.Attempt) error {
	if s.db == nil {
		return fmt.Errorf("pg sink not started")
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (domain, technique, count, last_seen)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (domain, technique)
		DO UPDATE SET count = %s.count + 1, last_seen = EXCLUDED.last_seen`,
		s.Table, s.Table)

	seen := time.UnixMilli(a.TimestampMillis).UTC()
	if _, err := s.db.Exec(stmt, a.Domain, a.Technique, seen); err != nil {
		return fmt.Errorf("failed to upsert attempt counter: %w", err)
	}
	return nil
}

func (s *PGSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PGSink) Name() string { return "postgres" }
