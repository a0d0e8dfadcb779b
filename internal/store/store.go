// Package store is the Postgres-backed persistence layer for Agency OS.
// It owns the serializable try_assign transaction that enforces the Lead
// Pool exclusivity invariant, plus CRUD and append-only writers for every
// other domain aggregate.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/keiracom/agencyos/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup by id/key matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrNoEligibleLead is returned by TryAssign when the candidate
	// pool_lead_id matches no pool_leads row.
	ErrNoEligibleLead = errors.New("store: no eligible lead in pool")
	// ErrAlreadyAssigned is returned by TryAssign when a concurrent
	// transaction has already claimed the candidate lead.
	ErrAlreadyAssigned = errors.New("store: lead already assigned")
)

// Store wraps a *sql.DB with the Agency OS schema's operations. Every
// method takes a context and is safe for concurrent use, matching the
// teacher's repository style (one struct per aggregate wrapping *sql.DB).
type Store struct {
	db *sql.DB
}

// New opens a Postgres connection pool per cfg and verifies connectivity.
func New(ctx context.Context, databaseURL string, maxOpen, maxIdle int, connMaxLifetime time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open *sql.DB, used by tests with go-sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying pool for packages that need raw access
// (e.g. a migrations runner). Business packages should prefer the typed
// methods below.
func (s *Store) DB() *sql.DB { return s.db }

func scanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
