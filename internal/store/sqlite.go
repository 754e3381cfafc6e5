package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalid is returned for field values outside their allowed set
var ErrInvalid = errors.New("invalid value")

// ErrAmbiguousID is returned when an id prefix matches several rows
var ErrAmbiguousID = errors.New("ambiguous id prefix")

// Store handles database operations
type Store struct {
	db    *sqlx.DB
	now   func() time.Time
	newID func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for created/updated timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens the SQLite database at dbPath and applies the schema.
// ":memory:" gives a private in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &Store{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// resolveID maps an id or unique id prefix to a full id in table
func (s *Store) resolveID(ctx context.Context, table, idOrPrefix string) (string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		fmt.Sprintf(`SELECT id FROM %s WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`, table),
		idOrPrefix, escapeLike(idOrPrefix)+"%",
	)
	if err != nil {
		return "", fmt.Errorf("resolve id: %w", err)
	}
	switch {
	case len(ids) == 0 || idOrPrefix == "":
		return "", ErrNotFound
	case len(ids) == 1:
		return ids[0], nil
	}
	for _, id := range ids {
		if id == idOrPrefix {
			return id, nil
		}
	}
	return "", ErrAmbiguousID
}

// deleteRow removes the row of table matching idOrPrefix
func (s *Store) deleteRow(ctx context.Context, table, idOrPrefix string) error {
	id, err := s.resolveID(ctx, table, idOrPrefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// getRow loads the row of table with the exact id into dst
func getRow(ctx context.Context, q sqlx.QueryerContext, dst any, table, columns, id string) error {
	err := sqlx.GetContext(ctx, q, dst, fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", columns, table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get from %s: %w", table, err)
	}
	return nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
