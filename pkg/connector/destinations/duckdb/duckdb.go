// Package duckdb implements the DuckDB destination. Statements go through a
// database/sql pool; the bulk append path opens a native connection from
// the same connector and streams rows through the DuckDB Appender inside an
// explicit transaction.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	duckdb "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
	"github.com/ajitpratap0/arrowload/pkg/errors"
)

// Name is the registered destination name
const Name = "duckdb"

var dialect = func() *base.StandardDialect {
	d := base.DefaultDialect(Name)
	d.Types[core.FieldTypeFloat] = "DOUBLE"
	d.NaN = "'nan'::DOUBLE"
	d.PosInf = "'inf'::DOUBLE"
	d.NegInf = "'-inf'::DOUBLE"
	d.BinaryPrefix = "from_hex('"
	d.BinarySuffix = "')"
	return d
}()

// Dialect returns the DuckDB SQL dialect.
func Dialect() core.Dialect {
	return dialect
}

// Destination is a DuckDB database file or in-memory database
type Destination struct {
	*base.SQLDestination
	connector *duckdb.Connector
	path      string
}

var _ core.BulkAppender = (*Destination)(nil)

// Open opens target.Path; ":memory:" or an empty path is an in-memory
// database.
func Open(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (*Destination, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig("")
	}
	path := target.Path
	if path == ":memory:" {
		path = ""
	}

	threads := cfg.Destination.DuckDBThreads
	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		if threads <= 0 {
			return nil
		}
		_, err := execer.ExecContext(context.Background(), fmt.Sprintf("SET threads = %d", threads), nil)
		return err
	})
	if err != nil {
		return nil, base.LocalFile(errors.Wrap(err, errors.ErrorTypeConnection, "failed to open duckdb"), path)
	}

	sd, err := base.NewSQLDestination(ctx, Name, sql.OpenDB(connector), dialect, cfg)
	if err != nil {
		connector.Close()
		return nil, base.LocalFile(err, path)
	}
	sd.Logger().Debug("opened database", zap.String("path", target.Path))
	return &Destination{SQLDestination: sd, connector: connector, path: path}, nil
}

// Close closes the pool and the database.
func (d *Destination) Close(ctx context.Context) error {
	err := d.SQLDestination.Close(ctx)
	if cerr := d.connector.Close(); err == nil {
		err = cerr
	}
	return err
}

// BeginAppend opens a native connection, begins a transaction and attaches
// an Appender to table.
func (d *Destination) BeginAppend(ctx context.Context, table string, schema *core.Schema) (core.AppendSession, error) {
	conn, err := d.connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open native connection: %w", err)
	}
	native, ok := conn.(*duckdb.Conn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("unexpected duckdb connection type %T", conn)
	}

	if _, err := native.ExecContext(ctx, "BEGIN TRANSACTION", nil); err != nil {
		native.Close()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	appender, err := duckdb.NewAppenderFromConn(native, "", table)
	if err != nil {
		native.ExecContext(ctx, "ROLLBACK", nil) //nolint:errcheck // connection is discarded
		native.Close()
		return nil, fmt.Errorf("failed to create appender for %s: %w", table, err)
	}

	return &appendSession{
		conn:     native,
		appender: appender,
		columns:  len(schema.Fields),
		logger:   d.Logger().With(zap.String("table", table)),
	}, nil
}

type appendSession struct {
	conn     *duckdb.Conn
	appender *duckdb.Appender
	columns  int
	rows     int64
	logger   *zap.Logger
	closed   bool
}

// Append appends rows and flushes them so a rejected batch is reported
// by the call that carried it.
func (s *appendSession) Append(ctx context.Context, rows [][]interface{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	args := make([]driver.Value, s.columns)
	for i, row := range rows {
		if len(row) != s.columns {
			return 0, fmt.Errorf("row %d has %d values, table has %d columns", i, len(row), s.columns)
		}
		for c, v := range row {
			args[c] = v
		}
		if err := s.appender.AppendRow(args...); err != nil {
			return 0, fmt.Errorf("row %d rejected: %w", i, err)
		}
	}
	if err := s.appender.Flush(); err != nil {
		return 0, err
	}
	s.rows += int64(len(rows))
	return int64(len(rows)), nil
}

func (s *appendSession) Finish(ctx context.Context) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("append session already closed")
	}
	s.closed = true
	defer s.conn.Close()

	if err := s.appender.Close(); err != nil {
		s.conn.ExecContext(ctx, "ROLLBACK", nil) //nolint:errcheck // reporting the appender error
		return 0, err
	}
	if _, err := s.conn.ExecContext(ctx, "COMMIT", nil); err != nil {
		return 0, fmt.Errorf("failed to commit append: %w", err)
	}
	s.logger.Debug("append committed", zap.Int64("rows", s.rows))
	return s.rows, nil
}

func (s *appendSession) Abort(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.conn.Close()

	// Close flushes buffered rows, which the rollback then discards.
	s.appender.Close() //nolint:errcheck // rolled back below
	_, err := s.conn.ExecContext(ctx, "ROLLBACK", nil)
	return err
}

func init() {
	_ = registry.RegisterDestination(core.ConnectorMetadata{
		Name:         Name,
		Description:  "DuckDB file, native Appender bulk path",
		Schemes:      []string{"duckdb"},
		Capabilities: []string{"transactions", "bulk_append"},
	}, func(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (core.Destination, error) {
		return Open(ctx, target, cfg)
	})
}
