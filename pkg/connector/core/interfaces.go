package core

import (
	"context"
	"time"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// Schema is the target table layout derived from the first batch of a load.
// It is stable for the lifetime of the load.
type Schema struct {
	Name   string
	Fields []Field
}

// Field represents a column of the target table
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// ColumnNames returns the field names in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldType is the storage type of a column, independent of the engine.
// A Dialect renders it into engine DDL.
type FieldType string

const (
	FieldTypeBool      FieldType = "BOOL"
	FieldTypeInt       FieldType = "INT"
	FieldTypeFloat     FieldType = "FLOAT"
	FieldTypeVarchar   FieldType = "VARCHAR"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeTimestamp FieldType = "TIMESTAMP"
	FieldTypeTime      FieldType = "TIME"
	FieldTypeBlob      FieldType = "BLOB"
	FieldTypeJSON      FieldType = "JSON"
)

// Dialect describes how an engine spells identifiers, types and literals.
// Implementations must be safe for concurrent use; column encoding calls
// them from several goroutines.
type Dialect interface {
	// Name returns the engine name, e.g. "sqlite"
	Name() string
	// QuoteIdentifier returns name quoted for use as a table or column name
	QuoteIdentifier(name string) string
	// ColumnType returns the DDL type for t
	ColumnType(t FieldType) string
	// StringLiteral returns s as a quoted literal that round-trips exactly
	StringLiteral(s string) string
	// BoolLiteral returns the literal for v
	BoolLiteral(v bool) string
	// NonFiniteFloat returns the literal for NaN or an infinity, or an error
	// when the engine cannot store one
	NonFiniteFloat(f float64) (string, error)
	// BinaryLiteral returns data as a blob literal
	BinaryLiteral(data []byte) string
	// NullLiteral returns the NULL token
	NullLiteral() string
}

// Transaction represents a database transaction pinned to one connection
type Transaction interface {
	// ExecDML executes a data statement and returns the affected row count
	ExecDML(ctx context.Context, stmt string) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Destination is the interface that all destination connectors must implement.
// A destination is exclusively owned by one load; no two statements are in
// flight on it at once.
type Destination interface {
	// Name returns the engine name used in logs and metric labels
	Name() string
	// Dialect returns the SQL dialect of the engine
	Dialect() Dialect

	// ExecDDL executes a schema statement
	ExecDDL(ctx context.Context, stmt string) error
	// ExecDML executes a data statement in autocommit mode and returns the
	// affected row count
	ExecDML(ctx context.Context, stmt string) (int64, error)

	// Capabilities
	SupportsTransactions() bool
	BeginTransaction(ctx context.Context) (Transaction, error)

	// Health checks the connection
	Health(ctx context.Context) error
	Close(ctx context.Context) error
}

// BulkAppender is implemented by destinations with a native bulk path that
// bypasses statement text.
type BulkAppender interface {
	// BeginAppend opens a session writing rows into table, which must exist
	// with the given schema.
	BeginAppend(ctx context.Context, table string, schema *Schema) (AppendSession, error)
}

// AppendSession receives rows of native Go values in schema column order.
// Nothing is visible to other connections before Finish succeeds.
type AppendSession interface {
	// Append buffers or sends rows and returns how many the engine accepted.
	// A rejected call leaves the session unusable; the caller must Abort.
	Append(ctx context.Context, rows [][]interface{}) (int64, error)
	// Finish flushes and commits, returning the number of rows accepted
	Finish(ctx context.Context) (int64, error)
	// Abort discards everything appended so far
	Abort(ctx context.Context) error
}

// HealthStatus represents the health status of a connector
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Latency   time.Duration          `json:"latency"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ConnectorMetadata provides metadata about a connector
type ConnectorMetadata struct {
	Name         string        `json:"name"`
	Type         ConnectorType `json:"type"`
	Description  string        `json:"description"`
	Schemes      []string      `json:"schemes"`
	Capabilities []string      `json:"capabilities"`
}
