// Package sqlite implements the persistence store on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/example/meetgrid/internal/persistence"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Storage is the SQLite-backed persistence.Store.
type Storage struct {
	queries
	db *sql.DB
}

var _ persistence.Store = (*Storage)(nil)

// Open connects to the database at dsn. Connection pragmas for foreign keys,
// a busy timeout and immediate write transactions are added when the DSN does
// not set them.
func Open(dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", withDefaultPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Storage{queries: queries{q: db}, db: db}, nil
}

func withDefaultPragmas(dsn string) string {
	params := make([]string, 0, 3)
	if !strings.Contains(dsn, "foreign_keys") {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Close releases the database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema when it does not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		for i, stmt := range splitStatements(schemaSQL) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// WithTransaction runs fn against a transaction-scoped view of the store.
func (s *Storage) WithTransaction(ctx context.Context, fn persistence.TxFunc) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(queries{q: tx})
	})
}

// DeleteRoom removes the room and its memberships atomically.
func (s *Storage) DeleteRoom(ctx context.Context, uid string) error {
	return s.WithTransaction(ctx, func(q persistence.Queries) error {
		return q.DeleteRoom(ctx, uid)
	})
}

// DeleteExpiredRooms removes expired rooms and their memberships atomically.
func (s *Storage) DeleteExpiredRooms(ctx context.Context, reference time.Time) (uids []string, err error) {
	err = s.WithTransaction(ctx, func(q persistence.Queries) error {
		uids, err = q.DeleteExpiredRooms(ctx, reference)
		return err
	})
	return uids, err
}

// queries implements persistence.Queries over either the pool or a transaction.
type queries struct {
	q      queryer
	mapper errorMapper
}
