// Package sqlite implements the SQLite destination, the default target of
// arrowload. The pure Go modernc.org/sqlite driver is used unless the cgo
// mattn/go-sqlite3 driver is selected with ?driver=sqlite3 or
// destination.sqlite_driver.
//
// SQLite has no literal for NaN, so NaN is stored as NULL; infinities use
// the overflowing literal 9e999.
package sqlite

import (
	"context"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
	"github.com/ajitpratap0/arrowload/pkg/errors"
)

// Name is the registered destination name
const Name = "sqlite"

// Driver names accepted for the database/sql driver
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

var dialect = func() *base.StandardDialect {
	d := base.DefaultDialect(Name)
	d.Types[core.FieldTypeBool] = "BOOL"
	d.Types[core.FieldTypeInt] = "INT"
	d.Types[core.FieldTypeFloat] = "FLOAT"
	d.Types[core.FieldTypeJSON] = "TEXT"
	d.NaN = "NULL"
	d.PosInf = "9e999"
	d.NegInf = "-9e999"
	return d
}()

// Dialect returns the SQLite SQL dialect.
func Dialect() core.Dialect {
	return dialect
}

// Destination is a SQLite database file
type Destination struct {
	*base.SQLDestination
	path   string
	driver string
}

// Open opens or creates the database at target.Path.
func Open(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (*Destination, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig("")
	}
	driver := target.Option("driver")
	if driver == "" {
		driver = cfg.Destination.SQLiteDriver
	}
	switch driver {
	case "", DriverModernc:
		driver = DriverModernc
	case DriverMattn:
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown sqlite driver %q", driver)
	}

	path := target.Path
	if path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sqlite destination needs a file path")
	}

	sd, err := base.OpenSQL(ctx, Name, driver, path, dialect, cfg)
	if err != nil {
		return nil, base.LocalFile(err, path)
	}
	d := &Destination{SQLDestination: sd, path: path, driver: driver}

	if mode := journalMode(target, cfg); mode != "" {
		if err := d.ExecDDL(ctx, "PRAGMA journal_mode="+mode); err != nil {
			d.Close(ctx)
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to set journal mode")
		}
	}
	d.Logger().Debug("opened database", zap.String("path", path), zap.String("driver", driver))
	return d, nil
}

func journalMode(target *registry.Target, cfg *config.BaseConfig) string {
	mode := target.Option("journal_mode")
	if mode == "" {
		mode = cfg.Destination.SQLiteJournalMode
	}
	switch strings.ToUpper(mode) {
	case "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
		return strings.ToUpper(mode)
	default:
		return ""
	}
}

// Path returns the database file.
func (d *Destination) Path() string {
	return d.path
}

// Driver returns the database/sql driver in use.
func (d *Destination) Driver() string {
	return d.driver
}

func init() {
	_ = registry.RegisterDestination(core.ConnectorMetadata{
		Name:         Name,
		Description:  "SQLite file, default for bare paths (modernc.org/sqlite or mattn/go-sqlite3)",
		Schemes:      []string{"sqlite"},
		Capabilities: []string{"transactions"},
	}, func(ctx context.Context, target *registry.Target, cfg *config.BaseConfig) (core.Destination, error) {
		return Open(ctx, target, cfg)
	})
}
