// Package sqlite implements storage.Store on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"
	"github.com/louisbranch/emberforge/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/emberforge/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Default and maximum page sizes for list queries.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Store is the sqlite-backed storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens or creates the database at path and applies migrations.
// sqlite allows a single writer, so the pool is pinned to one connection
// rather than surfacing busy errors to callers.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := sqlitemigrate.Apply(ctx, db, migrationsFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// nextID advances a named sequence and returns the allocated id. It runs
// inside the transaction that consumes the id, so allocation and insert
// commit or fail together.
func nextID(ctx context.Context, tx *sql.Tx, name string) (uint64, error) {
	var allocated int64
	err := tx.QueryRowContext(ctx,
		"UPDATE sequences SET next = next + 1 WHERE name = ? RETURNING next - 1",
		name,
	).Scan(&allocated)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", name, err)
	}
	return uint64(allocated), nil
}

// cardState is the in-transaction snapshot used to gate card writes.
type cardState struct {
	owner    string
	burned   bool
	escrowed bool
}

func loadCardState(ctx context.Context, tx *sql.Tx, cardID uint64) (cardState, error) {
	var state cardState
	var burned sql.NullInt64
	var escrowed sql.NullInt64
	err := tx.QueryRowContext(ctx, `
SELECT c.owner, c.burned_at, e.card_id
FROM cards c
LEFT JOIN escrow e ON e.card_id = c.id
WHERE c.id = ?`, int64(cardID)).Scan(&state.owner, &burned, &escrowed)
	if err == sql.ErrNoRows {
		return state, notFoundCard(cardID)
	}
	if err != nil {
		return state, fmt.Errorf("load card %d: %w", cardID, err)
	}
	state.burned = burned.Valid
	state.escrowed = escrowed.Valid
	return state, nil
}

// requireOwned gates a write on the card being live, owned by owner, and
// outside escrow. It runs inside the writing transaction so the check and
// the write commit together.
func requireOwned(ctx context.Context, tx *sql.Tx, cardID uint64, owner string) error {
	state, err := loadCardState(ctx, tx, cardID)
	if err != nil {
		return err
	}
	if state.burned {
		return notFoundCard(cardID)
	}
	if state.owner != owner {
		return apperrors.WithMetadata(apperrors.CodeNotOwner, "card owned by another player", cardMeta(cardID))
	}
	if state.escrowed {
		return apperrors.WithMetadata(apperrors.CodeInEscrow, "card held in escrow", cardMeta(cardID))
	}
	return nil
}

func notFoundCard(cardID uint64) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, "card not found", cardMeta(cardID))
}

func cardMeta(cardID uint64) map[string]string {
	return map[string]string{"card_id": strconv.FormatUint(cardID, 10)}
}

func normalizePageSize(size int) int {
	if size <= 0 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

func parsePageToken(token string) (int64, error) {
	before, err := strconv.ParseInt(token, 10, 64)
	if err != nil || before <= 0 {
		return 0, apperrors.Newf(apperrors.CodePageTokenInvalid, "malformed page token %q", token)
	}
	return before, nil
}

func isConstraintViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}
