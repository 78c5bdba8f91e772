// Package loader converts columnar batch streams into relational tables.
//
// A load derives the table schema from the first batch, creates the table
// and moves every batch through one of two strategies:
//
//   - insert: cells are encoded as dialect literals, transposed into rows and
//     sent as multi-row INSERT statements of bounded size inside a single
//     transaction.
//   - append: batches are handed to the destination's native bulk path
//     (DuckDB Appender, PostgreSQL COPY).
//
// Either way the rows the destination confirms must equal the rows read
// before anything is committed.
//
// # Basic Usage
//
//	summary, err := loader.LoadTable(ctx, "events.parquet", "events", "out.db", true)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(summary.Rows)
package loader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	_ "github.com/ajitpratap0/arrowload/pkg/connector/destinations" // register destination engines
	"github.com/ajitpratap0/arrowload/pkg/connector/registry"
	"github.com/ajitpratap0/arrowload/pkg/connector/sources"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
	"github.com/ajitpratap0/arrowload/pkg/logger"
	"github.com/ajitpratap0/arrowload/pkg/metrics"
	"github.com/ajitpratap0/arrowload/pkg/observability"
)

// Loader runs loads with one configuration.
type Loader struct {
	cfg       *config.BaseConfig
	logger    *zap.Logger
	strategy  Strategy
	chunkSize int
}

// Option configures a Loader.
type Option func(*Loader)

// WithConfig replaces the configuration.
func WithConfig(cfg *config.BaseConfig) Option {
	return func(l *Loader) {
		if cfg != nil {
			l.cfg = cfg
		}
	}
}

// WithLogger sets the base logger; the global logger is used otherwise.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.logger = log }
}

// WithStrategy forces a strategy regardless of loader.strategy.
func WithStrategy(s Strategy) Option {
	return func(l *Loader) { l.strategy = s }
}

// WithChunkSize overrides performance.chunk_size.
func WithChunkSize(n int) Option {
	return func(l *Loader) { l.chunkSize = n }
}

// New creates a loader. A nil cfg uses the defaults.
func New(cfg *config.BaseConfig, opts ...Option) *Loader {
	if cfg == nil {
		cfg = config.NewBaseConfig("arrowload")
	}
	l := &Loader{cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get()
	}
	return l
}

// Config returns the loader configuration.
func (l *Loader) Config() *config.BaseConfig {
	return l.cfg
}

// Load moves every batch of src into table on dest. The caller keeps
// ownership of both. On failure the returned summary, when non-nil,
// reports the partial progress of the load.
func (l *Loader) Load(ctx context.Context, src columnar.Reader, dest core.Destination, table string, dropExisting bool) (*LoadSummary, error) {
	if table == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "table name is empty")
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	strategy := l.strategy
	if strategy == nil {
		var err error
		if strategy, err = SelectStrategy(l.cfg.Loader.Strategy, dest); err != nil {
			return nil, err
		}
	}

	loadID := uuid.NewString()
	ctx = logger.ContextWithLoad(ctx, loadID, table)
	ctx = logger.ContextWithStrategy(ctx, strategy.Name())
	log := logger.FromContext(ctx, l.logger).With(
		zap.String("component", "loader"),
		zap.String("destination", dest.Name()))

	ctx, span := observability.StartSpan(ctx, "arrowload.load")
	span.SetAttribute("load_id", loadID)
	span.SetAttribute("table", table)
	span.SetAttribute("destination", dest.Name())
	span.SetAttribute("strategy", strategy.Name())

	collector := metrics.NewCollector(dest.Name(), strategy.Name())
	progress := base.NewProgressReporter(log,
		metrics.NewThroughputTracker(dest.Name(), strategy.Name()),
		l.cfg.Performance.ProgressInterval)

	chunkSize := l.cfg.Performance.ChunkSize
	if l.chunkSize > 0 {
		chunkSize = l.chunkSize
	}
	plan := &Plan{
		Table:         table,
		DropExisting:  dropExisting,
		TypeMapping:   TypeMapping(l.cfg.Loader.TypeMapping),
		ChunkSize:     chunkSize,
		Workers:       l.cfg.Performance.GetWorkers(),
		Transactional: l.cfg.Loader.Transactional,
		Logger:        log,
		Metrics:       collector,
		Progress:      progress,
	}

	log.Info("load started",
		zap.String("format", string(src.Format())),
		zap.Int("chunk_size", chunkSize),
		zap.Bool("drop_existing", dropExisting))

	start := time.Now()
	progress.Start()
	res, err := strategy.Load(ctx, src, dest, plan)
	progress.Stop()
	elapsed := time.Since(start)

	collector.ObserveLoad(elapsed, err, string(errors.TypeOf(err)))
	span.Finish(err)

	summary := &LoadSummary{
		LoadID:      loadID,
		Table:       table,
		Destination: dest.Name(),
		Strategy:    strategy.Name(),
		Elapsed:     elapsed,
		Result:      res,
	}
	if res != nil {
		summary.Batches = res.Batches
		summary.Statements = res.ChunksSucceeded
		if res.Committed {
			summary.Rows = res.RowsInserted
		}
	}

	if err != nil {
		log.Error("load failed",
			zap.String("kind", string(errors.TypeOf(err))),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return summary, err
	}

	collector.AddRows(summary.Rows)
	log.Info("load complete",
		zap.Int64("rows", summary.Rows),
		zap.Int("batches", summary.Batches),
		zap.Int("statements", summary.Statements),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rows_per_second", summary.RowsPerSecond()))
	return summary, nil
}

// LoadTable reads the columnar source at sourcePath and loads it into
// tableName at destinationPath, which may be a file path or a URL of any
// registered destination. Pass WithConfig to tune the load.
func LoadTable(ctx context.Context, sourcePath, tableName, destinationPath string, dropExisting bool, opts ...Option) (*LoadSummary, error) {
	l := New(nil, opts...)

	src, err := sources.Open(ctx, sourcePath, l.cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dest, err := registry.OpenDestination(ctx, destinationPath, l.cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := dest.Close(context.WithoutCancel(ctx)); err != nil {
			l.logger.Warn("closing destination failed", zap.Error(err))
		}
	}()

	return l.Load(ctx, src, dest, tableName, dropExisting)
}
