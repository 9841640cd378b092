package vectordb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Connector creates database handles for an Index.
// Connect is called once at startup and again whenever the current
// handle fails its liveness probe.
type Connector interface {
	Connect(ctx context.Context) (*sqlx.DB, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (*sqlx.DB, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context) (*sqlx.DB, error) {
	return f(ctx)
}

// DSNConnector opens handles from a driver name and data source name.
type DSNConnector struct {
	DriverName   string
	DSN          string
	MaxOpenConns int // 0 leaves the driver default
}

var _ Connector = (*DSNConnector)(nil)

// Connect opens a new handle and verifies it with a ping.
func (c *DSNConnector) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, c.DriverName, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.DriverName, err)
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	return db, nil
}

// NewPostgresConnector returns a connector for a lib/pq DSN.
func NewPostgresConnector(dsn string) *DSNConnector {
	return &DSNConnector{DriverName: "postgres", DSN: dsn}
}

// NewSQLiteConnector returns a connector for a SQLite database file.
// The file is opened in WAL mode with a busy timeout, through a single
// connection so that writers never contend with each other.
func NewSQLiteConnector(path string) *DSNConnector {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return &DSNConnector{DriverName: "sqlite", DSN: dsn, MaxOpenConns: 1}
}
