// Package config provides the configuration system for arrowload.
// A single BaseConfig structure carries every tunable of a load, so the
// loader, the destinations and the CLI agree on names and defaults.
//
// The configuration is organized into logical sections:
//   - Performance: chunk size, encoding workers, source read batch size
//   - Timeouts: per-statement and connection timeouts
//   - Reliability: bounded retry around opening the destination
//   - Observability: logging, metrics, tracing
//   - Loader: strategy selection, type mapping, transaction and drop policy
//   - Destination: per-engine connection settings
//   - Source: object store access for remote sources
//
// Example usage:
//
//	cfg := config.NewBaseConfig("nightly-events")
//	cfg.Performance.ChunkSize = 5000
//	cfg.Loader.Strategy = config.StrategyInsert
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Strategy names accepted by Loader.Strategy.
const (
	StrategyAuto   = "auto"
	StrategyInsert = "insert"
	StrategyAppend = "append"
)

// Type mapping modes accepted by Loader.TypeMapping.
const (
	// TypeMappingStrict maps only boolean, integer, float and text columns.
	TypeMappingStrict = "strict"
	// TypeMappingExtended adds temporal, binary and list columns.
	TypeMappingExtended = "extended"
)

// DefaultChunkSize is the number of rows embedded in one INSERT statement.
const DefaultChunkSize = 10000

// BaseConfig is the configuration of one load.
type BaseConfig struct {
	// Name identifies the load in logs and metrics
	Name string `yaml:"name" json:"name"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Performance settings control throughput and resource usage
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Timeouts define various timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Reliability settings for error handling and resilience
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Loader selects how batches reach the destination
	Loader LoaderConfig `yaml:"loader" json:"loader"`

	// Destination holds engine specific connection settings
	Destination DestinationConfig `yaml:"destination" json:"destination"`

	// Source holds object store settings for s3:// and gs:// sources
	Source SourceConfig `yaml:"source" json:"source"`
}

// PerformanceConfig contains all performance-related settings.
type PerformanceConfig struct {
	// ChunkSize is the maximum number of rows per INSERT statement
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// Workers bounds the goroutines encoding columns in parallel
	Workers int `yaml:"workers" json:"workers"`
	// ReadBatchSize is the row count per batch when decoding Parquet
	ReadBatchSize int64 `yaml:"read_batch_size" json:"read_batch_size"`
	// ProgressInterval sets how often load progress is logged (0 disables)
	ProgressInterval time.Duration `yaml:"progress_interval" json:"progress_interval"`
}

// TimeoutConfig contains all timeout-related settings.
// Timeouts apply per statement, never to a whole load.
type TimeoutConfig struct {
	// Statement bounds each DDL statement, INSERT chunk or append call (0 = none)
	Statement time.Duration `yaml:"statement" json:"statement"`
	// Connection bounds establishing the destination connection
	Connection time.Duration `yaml:"connection" json:"connection"`
}

// ReliabilityConfig contains reliability and error handling settings.
// Retries only ever wrap opening the destination.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum attempts for opening the destination
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryMultiplier increases delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// MaxRetryDelay caps the maximum retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat selects json or console output
	LogFormat string `yaml:"log_format" json:"log_format"`
	// EnableMetrics activates prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsAddr is the listen address of the /metrics endpoint
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// EnableTracing activates OpenTelemetry spans exported to stdout
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
}

// LoaderConfig controls how a load runs.
type LoaderConfig struct {
	// Strategy is auto, insert or append
	Strategy string `yaml:"strategy" json:"strategy"`
	// TypeMapping is strict or extended
	TypeMapping string `yaml:"type_mapping" json:"type_mapping"`
	// Transactional wraps the insert path in one transaction
	Transactional bool `yaml:"transactional" json:"transactional"`
	// DropExisting drops the table before creating it
	DropExisting bool `yaml:"drop_existing" json:"drop_existing"`
}

// DestinationConfig contains per-engine settings that do not fit in a
// destination URL.
type DestinationConfig struct {
	// SQLiteDriver selects the database/sql driver: "sqlite" (pure Go) or "sqlite3" (cgo)
	SQLiteDriver string `yaml:"sqlite_driver" json:"sqlite_driver"`
	// SQLiteJournalMode is applied with PRAGMA journal_mode when set
	SQLiteJournalMode string `yaml:"sqlite_journal_mode" json:"sqlite_journal_mode"`
	// DuckDBThreads sets the duckdb threads option when positive
	DuckDBThreads int `yaml:"duckdb_threads" json:"duckdb_threads"`
	// Credentials are passed to engines that take them out of band
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// SourceConfig configures access to remote sources. Empty fields fall back
// to the SDK default credential chains.
type SourceConfig struct {
	// Region is the S3 region
	Region string `yaml:"region" json:"region"`
	// Endpoint overrides the S3 or GCS endpoint, e.g. for MinIO or an emulator
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// AccessKeyID and SecretAccessKey are static S3 credentials
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	// CredentialsFile is a GCS service account key file
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	// TempDir receives downloaded objects; defaults to the OS temp dir
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
}

// NewBaseConfig creates a new BaseConfig with defaults suitable for
// multi-million row loads.
func NewBaseConfig(name string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Version: "1.0.0",
		Performance: PerformanceConfig{
			ChunkSize:        DefaultChunkSize,
			Workers:          runtime.NumCPU(),
			ReadBatchSize:    64 * 1024,
			ProgressInterval: 10 * time.Second,
		},
		Timeouts: TimeoutConfig{
			Statement:  0,
			Connection: 10 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			RetryMultiplier: 2.0,
			MaxRetryDelay:   30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsAddr: ":9090",
		},
		Loader: LoaderConfig{
			Strategy:      StrategyAuto,
			TypeMapping:   TypeMappingStrict,
			Transactional: true,
		},
		Destination: DestinationConfig{
			SQLiteDriver: "sqlite",
			Credentials:  make(map[string]string),
		},
	}
}

// Validate validates the configuration for correctness.
func (bc *BaseConfig) Validate() error {
	if bc.Performance.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if bc.Performance.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if bc.Performance.ReadBatchSize < 0 {
		return fmt.Errorf("read_batch_size cannot be negative")
	}
	if bc.Timeouts.Statement < 0 {
		return fmt.Errorf("statement timeout cannot be negative")
	}
	if bc.Reliability.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts cannot be negative")
	}
	switch bc.Loader.Strategy {
	case StrategyAuto, StrategyInsert, StrategyAppend:
	default:
		return fmt.Errorf("unknown strategy %q", bc.Loader.Strategy)
	}
	switch bc.Loader.TypeMapping {
	case TypeMappingStrict, TypeMappingExtended:
	default:
		return fmt.Errorf("unknown type_mapping %q", bc.Loader.TypeMapping)
	}
	switch bc.Destination.SQLiteDriver {
	case "", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unknown sqlite_driver %q", bc.Destination.SQLiteDriver)
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (p *PerformanceConfig) GetWorkers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}
