// Package base provides the building blocks shared by arrowload destinations:
// a database/sql backed destination, a table driven SQL dialect, the retry
// policy used around opening connections, a health probe and the progress
// reporter used by long loads.
//
// # Usage
//
// Engines backed by database/sql embed SQLDestination and supply a dialect:
//
//	type Destination struct {
//	    *base.SQLDestination
//	}
//
//	func Open(ctx context.Context, dsn string, cfg *config.BaseConfig) (*Destination, error) {
//	    sd, err := base.OpenSQL(ctx, "sqlite", "sqlite", dsn, dialect, cfg)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Destination{SQLDestination: sd}, nil
//	}
//
// SQLDestination pins a single connection, so statements never run
// concurrently against one load's table.
package base

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/logger"
)

// SQLDestination implements core.Destination over a *sql.DB.
type SQLDestination struct {
	name    string
	dialect core.Dialect
	db      *sql.DB
	logger  *zap.Logger

	statementTimeout time.Duration
}

// OpenSQL opens driverName with dsn and verifies the connection. A failed
// ping is reported as a connection error so the caller may retry it.
func OpenSQL(ctx context.Context, name, driverName, dsn string, dialect core.Dialect, cfg *config.BaseConfig) (*SQLDestination, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid "+name+" data source")
	}
	return NewSQLDestination(ctx, name, db, dialect, cfg)
}

// LocalFile reclassifies an open failure of a file backed engine as a
// configuration error. A missing directory or unwritable file does not
// recover between attempts, so it is never retried.
func LocalFile(err error, path string) error {
	if err == nil || errors.IsType(err, errors.ErrorTypeConfig) {
		return err
	}
	return errors.Wrap(err, errors.ErrorTypeConfig, "cannot open database file").WithDetail("path", path)
}

// NewSQLDestination adopts db, which the destination closes on Close.
func NewSQLDestination(ctx context.Context, name string, db *sql.DB, dialect core.Dialect, cfg *config.BaseConfig) (*SQLDestination, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig(name)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx := ctx
	if cfg.Timeouts.Connection > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Connection)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		if pingCtx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "connecting to "+name+" timed out")
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to "+name)
	}

	return &SQLDestination{
		name:             name,
		dialect:          dialect,
		db:               db,
		logger:           logger.Get().With(zap.String("destination", name)),
		statementTimeout: cfg.Timeouts.Statement,
	}, nil
}

func (d *SQLDestination) Name() string {
	return d.name
}

func (d *SQLDestination) Dialect() core.Dialect {
	return d.dialect
}

// DB exposes the pool for engine specific statements.
func (d *SQLDestination) DB() *sql.DB {
	return d.db
}

// Logger returns the destination's logger.
func (d *SQLDestination) Logger() *zap.Logger {
	return d.logger
}

// StatementContext bounds one statement by the configured statement timeout.
func (d *SQLDestination) StatementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.statementTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.statementTimeout)
}

func (d *SQLDestination) ExecDDL(ctx context.Context, stmt string) error {
	ctx, cancel := d.StatementContext(ctx)
	defer cancel()

	d.logger.Debug("executing ddl", zap.String("statement", stmt))
	_, err := d.db.ExecContext(ctx, stmt)
	return err
}

func (d *SQLDestination) ExecDML(ctx context.Context, stmt string) (int64, error) {
	ctx, cancel := d.StatementContext(ctx)
	defer cancel()
	return execAffected(ctx, d.db, stmt)
}

func (d *SQLDestination) SupportsTransactions() bool {
	return true
}

func (d *SQLDestination) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTransaction{tx: tx, dest: d}, nil
}

func (d *SQLDestination) Health(ctx context.Context) error {
	ctx, cancel := d.StatementContext(ctx)
	defer cancel()
	return d.db.PingContext(ctx)
}

func (d *SQLDestination) Close(_ context.Context) error {
	return d.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execAffected(ctx context.Context, db execer, stmt string) (int64, error) {
	res, err := db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// sqlTransaction implements core.Transaction over *sql.Tx
type sqlTransaction struct {
	tx   *sql.Tx
	dest *SQLDestination
}

func (t *sqlTransaction) ExecDML(ctx context.Context, stmt string) (int64, error) {
	ctx, cancel := t.dest.StatementContext(ctx)
	defer cancel()
	return execAffected(ctx, t.tx, stmt)
}

func (t *sqlTransaction) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTransaction) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}
