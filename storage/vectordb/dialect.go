package vectordb

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/poiesic/docvec/storage"
)

// Dialect abstracts the SQL that differs between database engines.
type Dialect interface {
	// Name identifies the dialect in configuration.
	Name() string

	// SchemaStatements returns idempotent DDL creating table for vectors
	// of the given dimension.
	SchemaStatements(table string, dimension int) []string

	// Distance returns an expression computing the cosine distance between
	// column and a single bind parameter.
	Distance(column string) string
}

// Dialect names accepted by DialectByName.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DialectByName resolves a configured dialect name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case DialectPostgres, "postgresql", "pgvector":
		return Postgres, nil
	case DialectSQLite, "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedDialect, name)
}

// Postgres stores vectors in a pgvector column.
var Postgres Dialect = postgresDialect{}

// SQLite stores vectors as pgvector text literals.
var SQLite Dialect = sqliteDialect{}

type postgresDialect struct{}

func (postgresDialect) Name() string { return DialectPostgres }

func (postgresDialect) SchemaStatements(table string, dimension int) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			namespace VARCHAR(255) NOT NULL,
			document VARCHAR(255) NOT NULL,
			vector_id VARCHAR(255) NOT NULL UNIQUE,
			batch_id VARCHAR(64) NOT NULL DEFAULT '',
			metadata TEXT,
			vector vector(%d),
			status VARCHAR(20) NOT NULL
		)`, table, dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_ns_doc_idx ON %s (namespace, document)", table, table),
	}
}

func (postgresDialect) Distance(column string) string {
	return fmt.Sprintf("(%s <=> CAST(? AS vector))", column)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return DialectSQLite }

func (sqliteDialect) SchemaStatements(table string, _ int) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace VARCHAR(255) NOT NULL,
			document VARCHAR(255) NOT NULL,
			vector_id VARCHAR(255) NOT NULL UNIQUE,
			batch_id VARCHAR(64) NOT NULL DEFAULT '',
			metadata TEXT,
			vector TEXT,
			status VARCHAR(20) NOT NULL
		)`, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_ns_doc_idx ON %s (namespace, document)", table, table),
	}
}

func (sqliteDialect) Distance(column string) string {
	return fmt.Sprintf("cosine_distance(%s, ?)", column)
}
