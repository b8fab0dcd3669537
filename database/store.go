// backend/database/store.go
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/models"
)

// MySQL server error numbers the store distinguishes.
const (
	errNoSuchTable = 1146
	errBadDB       = 1049
)

// Store owns the draw and weather tables. Writes are serialised through mu so the
// scheduler and on-demand triggers never interleave upserts.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore wraps an open connection pool.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// classify wraps a database error in the matching store failure kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == errNoSuchTable || myErr.Number == errBadDB {
			return fmt.Errorf("%s: %w: %v", op, models.ErrNoSchema, err)
		}
		return fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnreachable, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnreachable, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnreachable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrStore, err)
}
