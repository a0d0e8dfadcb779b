// Package reporting implements the tenant-facing KPI dashboard
// (spec.md §6 "GET /reports/dashboard"). It reads from a Snowflake
// mirror of the OLTP activity/assignment tables rather than querying
// Postgres directly, keeping analytics load off the serving path the
// same way the teacher's own Snowflake integration does.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // registers the "snowflake" sql driver

	"github.com/keiracom/agencyos/internal/config"
)

// Client wraps a Snowflake connection pool.
type Client struct {
	db *sql.DB
}

// NewClient opens a pooled Snowflake connection from cfg.
func NewClient(cfg config.ReportingConfig) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s", cfg.User, cfg.Password, cfg.Account, cfg.Database, cfg.Schema)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{db: db}, nil
}

// NewWithDB wraps an already-open *sql.DB, used by tests with go-sqlmock.
func NewWithDB(db *sql.DB) *Client { return &Client{db: db} }

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
