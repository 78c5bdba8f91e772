package loader

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
	"github.com/ajitpratap0/arrowload/pkg/metrics"
)

// Strategy moves every batch of a source into one destination table.
type Strategy interface {
	Name() string
	// Load returns a Result even when it fails.
	Load(ctx context.Context, src columnar.Reader, dest core.Destination, plan *Plan) (*Result, error)
}

// Plan carries the per-load settings shared by strategies.
type Plan struct {
	Table         string
	DropExisting  bool
	TypeMapping   TypeMapping
	ChunkSize     int
	Workers       int
	Transactional bool

	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Progress *base.ProgressReporter
}

// withDefaults returns a copy of p with unset collaborators filled in.
func (p *Plan) withDefaults(dest core.Destination, strategy string) *Plan {
	out := *p
	if out.TypeMapping == "" {
		out.TypeMapping = Strict
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = DefaultChunkSize
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	if out.Metrics == nil {
		out.Metrics = metrics.NewCollector(dest.Name(), strategy)
	}
	if out.Progress == nil {
		out.Progress = base.NewProgressReporter(out.Logger, nil, 0)
	}
	return &out
}

// SelectStrategy resolves a strategy name against what dest supports.
func SelectStrategy(name string, dest core.Destination) (Strategy, error) {
	_, canAppend := dest.(core.BulkAppender)
	switch name {
	case config.StrategyAuto, "":
		if canAppend {
			return &AppendStrategy{}, nil
		}
		return &InsertStrategy{}, nil
	case config.StrategyInsert:
		return &InsertStrategy{}, nil
	case config.StrategyAppend:
		if !canAppend {
			return nil, errors.Newf(errors.ErrorTypeCapability, "destination %s has no bulk append path", dest.Name())
		}
		return &AppendStrategy{}, nil
	}
	return nil, errors.Newf(errors.ErrorTypeConfig, "unknown strategy %q", name)
}

// batchStream yields source batches, enforcing that every batch has the
// schema of the first one.
type batchStream struct {
	src    columnar.Reader
	schema *arrow.Schema
	first  arrow.Record
	index  int
}

// openStream reads ahead one batch to learn the schema. An empty source
// falls back to the schema the reader declares.
func openStream(ctx context.Context, src columnar.Reader) (*batchStream, error) {
	s := &batchStream{src: src, index: -1}
	rec, err := s.read(ctx)
	switch {
	case err == io.EOF:
		s.schema = src.Schema()
	case err != nil:
		return nil, err
	default:
		s.first = rec
		s.schema = rec.Schema()
	}
	if s.schema == nil {
		return nil, errors.New(errors.ErrorTypeSourceFormat, "source declares no schema")
	}
	return s, nil
}

func (s *batchStream) read(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}
	rec, err := s.src.Next(ctx)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Canceled(ctx.Err())
		}
		var typed *errors.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeSourceFormat, "cannot read batch")
	}
	return rec, nil
}

// next returns the next batch and its index, or io.EOF. The caller
// releases the record.
func (s *batchStream) next(ctx context.Context) (arrow.Record, int, error) {
	var rec arrow.Record
	if s.first != nil {
		rec, s.first = s.first, nil
		if err := ctx.Err(); err != nil {
			rec.Release()
			return nil, 0, errors.Canceled(err)
		}
	} else {
		var err error
		if rec, err = s.read(ctx); err != nil {
			return nil, 0, err
		}
	}
	s.index++

	if !SameSchema(s.schema, rec.Schema()) {
		got := rec.Schema().String()
		rec.Release()
		return nil, s.index, errors.SchemaDrift(s.index, s.schema.String(), got)
	}
	return rec, s.index, nil
}

func (s *batchStream) close() {
	if s.first != nil {
		s.first.Release()
		s.first = nil
	}
}

// prepareTable derives the target schema and creates the table. A failed
// drop is logged and the load continues.
func prepareTable(ctx context.Context, dest core.Destination, plan *Plan, schema *arrow.Schema) (*core.Schema, error) {
	target, err := DeriveSchema(plan.Table, schema, plan.TypeMapping)
	if err != nil {
		return nil, err
	}
	d := dest.Dialect()

	if plan.DropExisting {
		plan.Logger.Debug("dropping table")
		if err := dest.ExecDDL(ctx, DropTableStatement(d, plan.Table)); err != nil {
			plan.Logger.Warn("drop table failed, continuing", zap.Error(errors.TableDrop(plan.Table, err)))
		}
	}

	stmt := CreateTableStatement(d, target)
	plan.Logger.Debug("creating table", zap.String("statement", stmt))
	if err := dest.ExecDDL(ctx, stmt); err != nil {
		return nil, errors.TableCreation(plan.Table, stmt, err)
	}
	return target, nil
}

// reconcile compares rows read with rows the destination confirmed.
func reconcile(observed, inserted int64) error {
	switch {
	case inserted < observed:
		return errors.PartialInsert(observed, inserted)
	case inserted > observed:
		return errors.InvariantViolation(observed, inserted)
	}
	return nil
}

// canceledOr reports a cancellation in place of err when ctx is done.
func canceledOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Canceled(ctxErr)
	}
	return err
}
