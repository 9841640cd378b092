// Package config loads the application configuration from YAML.
//
// Values may reference environment variables as ${NAME}; they are expanded
// before the document is decoded. A missing file yields the defaults.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/storage/minio"
	"github.com/poiesic/docvec/storage/vectordb"
	"gopkg.in/yaml.v3"
)

// Blob store types.
const (
	BlobStoreBolt  = "bolt"
	BlobStoreMinIO = "minio"
)

// DefaultNamespace is used by commands that are not given a namespace.
const DefaultNamespace = "default"

// ErrInvalidConfig is returned when a loaded configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// VectorIndexConfig selects the SQL backend holding passage vectors.
type VectorIndexConfig struct {
	// Dialect is "sqlite" or "postgres".
	Dialect string `yaml:"dialect"`
	// DSN is the Postgres connection string or the SQLite file path.
	// An empty SQLite path places vectors.db in the data directory.
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// BlobStoreConfig selects where original document bytes are kept.
type BlobStoreConfig struct {
	Type   string       `yaml:"type"`
	Path   string       `yaml:"path"`
	Bucket string       `yaml:"bucket"`
	MinIO  minio.Config `yaml:"minio"`
}

// ParserConfig configures document parsing.
type ParserConfig struct {
	// Endpoint is the Unstructured API base URL. Empty restricts uploads
	// to plain text.
	Endpoint       string   `yaml:"endpoint"`
	APIKey         string   `yaml:"api_key"`
	TimeoutSecs    int      `yaml:"timeout_secs"`
	SupportedTypes []string `yaml:"supported_types,omitempty"`
}

// IngestionConfig tunes the ingestion pipeline.
type IngestionConfig struct {
	SplitLength   int  `yaml:"split_length"`
	MaxClusters   int  `yaml:"max_clusters"`
	Workers       int  `yaml:"workers"`
	PoolSize      int  `yaml:"pool_size"`
	MaxAttempts   int  `yaml:"max_attempts"`
	SkipUnchanged bool `yaml:"skip_unchanged"`
}

// AppConfig is the root application configuration.
type AppConfig struct {
	// DataDir holds the document database and local files.
	DataDir     string            `yaml:"data_dir"`
	Namespace   string            `yaml:"namespace"`
	AI          ai.Config         `yaml:"ai"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	BlobStore   BlobStoreConfig   `yaml:"blob_store"`
	Parser      ParserConfig      `yaml:"parser"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
}

// Default returns the configuration used when no file exists: everything
// local under ./docvec-data with an OpenAI-compatible server on localhost.
func Default() *AppConfig {
	cfg := &AppConfig{AI: *ai.DefaultConfig()}
	applyDefaults(cfg)
	return cfg
}

// Load reads a config from path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document after expanding ${VAR} references.
func Parse(data []byte) (*AppConfig, error) {
	cfg := &AppConfig{AI: *ai.DefaultConfig()}
	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = "docvec-data"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	cfg.AI.Normalize()

	if cfg.VectorIndex.Dialect == "" {
		cfg.VectorIndex.Dialect = vectordb.DialectSQLite
	}
	if cfg.VectorIndex.Dialect == vectordb.DialectSQLite && cfg.VectorIndex.DSN == "" {
		cfg.VectorIndex.DSN = filepath.Join(cfg.DataDir, "vectors.db")
	}
	if cfg.VectorIndex.Dimension == 0 {
		cfg.VectorIndex.Dimension = vectordb.DefaultDimension
	}

	if cfg.BlobStore.Type == "" {
		cfg.BlobStore.Type = BlobStoreBolt
	}
	if cfg.BlobStore.Path == "" {
		cfg.BlobStore.Path = filepath.Join(cfg.DataDir, "blobs.db")
	}
	if cfg.BlobStore.MinIO.Bucket == "" {
		cfg.BlobStore.MinIO.Bucket = cmp.Or(cfg.BlobStore.Bucket, minio.DefaultBucket)
	}

	if cfg.Parser.TimeoutSecs == 0 {
		cfg.Parser.TimeoutSecs = 120
	}
}

// DocumentsPath is the directory of the document database.
func (c *AppConfig) DocumentsPath() string {
	return filepath.Join(c.DataDir, "documents")
}

// Validate checks values that have no usable default.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.AI.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := vectordb.DialectByName(c.VectorIndex.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.VectorIndex.DSN == "" {
		errs = append(errs, errors.New("vector_index.dsn is required"))
	}
	if c.VectorIndex.Dimension < 0 {
		errs = append(errs, errors.New("vector_index.dimension cannot be negative"))
	}
	switch strings.ToLower(c.BlobStore.Type) {
	case BlobStoreBolt:
	case BlobStoreMinIO:
		if err := c.BlobStore.MinIO.Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob_store.type %q", c.BlobStore.Type))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
