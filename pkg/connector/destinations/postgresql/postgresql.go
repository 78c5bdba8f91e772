// Package postgresql implements the PostgreSQL destination on pgx. The
// insert path runs through pgx's database/sql adapter; the bulk append path
// streams rows with COPY FROM inside one transaction on the same pool.
package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
	"github.com/ajitpratap0/arrowload/pkg/errors"
)

// Name is the registered destination name
const Name = "postgresql"

var dialect = func() *base.StandardDialect {
	d := base.DefaultDialect(Name)
	d.Types[core.FieldTypeVarchar] = "TEXT"
	d.Types[core.FieldTypeBlob] = "BYTEA"
	d.Types[core.FieldTypeJSON] = "JSONB"
	d.NaN = "'NaN'"
	d.PosInf = "'Infinity'"
	d.NegInf = "'-Infinity'"
	d.BinaryPrefix = `'\x`
	d.BinarySuffix = "'"
	return d
}()

// Dialect returns the PostgreSQL SQL dialect.
func Dialect() core.Dialect {
	return dialect
}

// Destination is a PostgreSQL database
type Destination struct {
	*base.SQLDestination
	pool *pgxpool.Pool
}

var _ core.BulkAppender = (*Destination)(nil)

// Open connects with the postgres:// URL of target.
func Open(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (*Destination, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig("")
	}
	poolConfig, err := pgxpool.ParseConfig(target.Raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse connection string")
	}
	if poolConfig.ConnConfig.Password == "" {
		poolConfig.ConnConfig.Password = cfg.Destination.Credentials["password"]
	}
	// one connection for statements, one for a COPY session
	poolConfig.MaxConns = 2
	poolConfig.MinConns = 0
	if cfg.Timeouts.Connection > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.Timeouts.Connection
	}
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool")
	}

	sd, err := base.NewSQLDestination(ctx, Name, stdlib.OpenDBFromPool(pool), dialect, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sd.Logger().Debug("connected to postgresql",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database))
	return &Destination{SQLDestination: sd, pool: pool}, nil
}

// Close closes the database/sql adapter and the pool.
func (d *Destination) Close(ctx context.Context) error {
	err := d.SQLDestination.Close(ctx)
	d.pool.Close()
	return err
}

// BeginAppend starts a transaction that receives rows through COPY.
func (d *Destination) BeginAppend(ctx context.Context, table string, schema *core.Schema) (core.AppendSession, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &copySession{
		tx:      tx,
		table:   pgx.Identifier{table},
		columns: schema.ColumnNames(),
		types:   fieldTypes(schema),
		logger:  d.Logger().With(zap.String("table", table)),
	}, nil
}

func fieldTypes(schema *core.Schema) []core.FieldType {
	out := make([]core.FieldType, len(schema.Fields))
	for i, f := range schema.Fields {
		out[i] = f.Type
	}
	return out
}

type copySession struct {
	tx      pgx.Tx
	table   pgx.Identifier
	columns []string
	types   []core.FieldType
	rows    int64
	logger  *zap.Logger
	done    bool
}

func (s *copySession) Append(ctx context.Context, rows [][]interface{}) (int64, error) {
	for _, row := range rows {
		s.adapt(row)
	}
	n, err := s.tx.CopyFrom(ctx, s.table, s.columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, err
	}
	s.rows += n
	return n, nil
}

// adapt converts values pgx cannot encode directly for their column type.
func (s *copySession) adapt(row []interface{}) {
	for i, v := range row {
		if i >= len(s.types) || s.types[i] != core.FieldTypeTime {
			continue
		}
		if t, ok := v.(time.Time); ok {
			sinceMidnight := time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second +
				time.Duration(t.Nanosecond())
			row[i] = pgtype.Time{Microseconds: sinceMidnight.Microseconds(), Valid: true}
		}
	}
}

func (s *copySession) Finish(ctx context.Context) (int64, error) {
	if s.done {
		return 0, fmt.Errorf("append session already closed")
	}
	s.done = true
	if err := s.tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit copy: %w", err)
	}
	s.logger.Debug("copy committed", zap.Int64("rows", s.rows))
	return s.rows, nil
}

func (s *copySession) Abort(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback(ctx)
}

func init() {
	_ = registry.RegisterDestination(core.ConnectorMetadata{
		Name:         Name,
		Description:  "PostgreSQL through pgx, COPY bulk path",
		Schemes:      []string{"postgres", "postgresql"},
		Capabilities: []string{"transactions", "bulk_append"},
	}, func(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (core.Destination, error) {
		return Open(ctx, target, cfg)
	})
}
