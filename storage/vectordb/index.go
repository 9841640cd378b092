package vectordb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

const (
	// DefaultDimension is the vector size used when none is configured.
	DefaultDimension = 768

	// DefaultBatchSize is the number of rows written per INSERT statement.
	DefaultBatchSize = 20

	// DefaultSearchLimit applies when a search is given a non-positive limit.
	DefaultSearchLimit = 5

	probeQuery = "SELECT 1 + 1"
)

// Index is a storage.VectorIndex backed by a SQL table.
type Index struct {
	connector Connector
	dialect   Dialect
	table     string
	dimension int
	batchSize int
	logger    *slog.Logger

	mu sync.Mutex
	db *sqlx.DB
}

var _ storage.VectorIndex = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithTable sets the table name. Default is vectors_<dimension>.
func WithTable(name string) Option {
	return func(i *Index) error {
		if err := core.ValidateIdentifier(name); err != nil {
			return err
		}
		i.table = name
		return nil
	}
}

// WithDimension sets the vector size. Default is DefaultDimension.
func WithDimension(n int) Option {
	return func(i *Index) error {
		if n < 1 {
			return fmt.Errorf("%w: dimension %d", storage.ErrInvalidConfig, n)
		}
		i.dimension = n
		return nil
	}
}

// WithBatchSize sets how many rows each INSERT carries.
func WithBatchSize(n int) Option {
	return func(i *Index) error {
		if n < 1 {
			n = 1
		}
		i.batchSize = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// New connects through connector and creates the schema if it is missing.
func New(ctx context.Context, connector Connector, dialect Dialect, opts ...Option) (*Index, error) {
	if connector == nil {
		return nil, fmt.Errorf("%w: connector is nil", storage.ErrInvalidConfig)
	}
	if dialect == nil {
		return nil, fmt.Errorf("%w: dialect is nil", storage.ErrInvalidConfig)
	}

	idx := &Index{
		connector: connector,
		dialect:   dialect,
		dimension: DefaultDimension,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	if idx.table == "" {
		idx.table = fmt.Sprintf("vectors_%d", idx.dimension)
	}
	idx.logger = idx.logger.With("component", "vectordb", "table", idx.table)

	if err := idx.CreateSchemaIfAbsent(ctx); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// Table returns the name of the backing table.
func (i *Index) Table() string {
	return i.table
}

// Dimension returns the configured vector size.
func (i *Index) Dimension() int {
	return i.dimension
}

// Close releases the current handle.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.db == nil {
		return nil
	}
	err := i.db.Close()
	i.db = nil
	return err
}

// handle returns a live database handle. The current handle is probed
// first; if the probe fails a fresh handle is connected and swapped in
// before the old one is closed. Statements still running on the old
// handle fail with its connection error. A failed reconnect leaves the
// old handle in place so the next call probes and retries.
func (i *Index) handle(ctx context.Context) (*sqlx.DB, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.db != nil {
		var n int
		err := i.db.QueryRowContext(ctx, probeQuery).Scan(&n)
		if err == nil {
			return i.db, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		i.logger.Warn("database probe failed, reconnecting", "error", err)
	}

	db, err := i.connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStorageConnectivity, err)
	}
	stale := i.db
	i.db = db
	if stale != nil {
		if err := stale.Close(); err != nil {
			i.logger.Debug("failed to close stale handle", "error", err)
		}
	}
	return db, nil
}

// CreateSchemaIfAbsent creates the vector table and its index.
func (i *Index) CreateSchemaIfAbsent(ctx context.Context) error {
	db, err := i.handle(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range i.dialect.SchemaStatements(i.table, i.dimension) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// DropTable removes the vector table and every row in it.
func (i *Index) DropTable(ctx context.Context) error {
	db, err := i.handle(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+i.table); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	return nil
}
