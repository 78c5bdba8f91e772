package loader

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
	"github.com/ajitpratap0/arrowload/pkg/metrics"
	"github.com/ajitpratap0/arrowload/pkg/observability"
)

// execer is satisfied by both a destination and an open transaction.
type execer interface {
	ExecDML(ctx context.Context, stmt string) (int64, error)
}

// InsertStrategy loads batches as multi-row INSERT statements of at most
// Plan.ChunkSize rows, inside one transaction when the destination has them.
type InsertStrategy struct{}

// Name implements Strategy.
func (s *InsertStrategy) Name() string { return config.StrategyInsert }

// Load implements Strategy.
func (s *InsertStrategy) Load(ctx context.Context, src columnar.Reader, dest core.Destination, plan *Plan) (*Result, error) {
	plan = plan.withDefaults(dest, s.Name())
	log := plan.Logger
	res := &Result{Strategy: s.Name()}

	stream, err := openStream(ctx, src)
	if err != nil {
		return res, err
	}
	defer stream.close()

	target, err := prepareTable(ctx, dest, plan, stream.schema)
	if err != nil {
		return res, err
	}

	var (
		exec execer = dest
		tx   core.Transaction
	)
	if plan.Transactional && dest.SupportsTransactions() {
		if tx, err = dest.BeginTransaction(ctx); err != nil {
			return res, canceledOr(ctx, errors.Wrap(err, errors.ErrorTypeStatementExecution, "cannot begin transaction"))
		}
		exec = tx
	}

	fail := func(err error) (*Result, error) {
		if tx != nil {
			// the load context may already be canceled
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				log.Warn("rollback failed", zap.Error(rbErr))
			} else {
				log.Debug("transaction rolled back", zap.Int("chunks_discarded", res.ChunksSucceeded))
			}
		}
		return res, err
	}

	enc := NewEncoder(dest.Dialect(), plan.TypeMapping, plan.Workers)
	columns := target.ColumnNames()
	for {
		rec, batch, err := stream.next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}
		err = s.loadBatch(ctx, exec, enc, plan, columns, rec, batch, res)
		rec.Release()
		if err != nil {
			return fail(err)
		}
	}

	if err := reconcile(res.RowsObserved, res.RowsInserted); err != nil {
		log.Error("row count mismatch",
			zap.Int64("observed", res.RowsObserved),
			zap.Int64("inserted", res.RowsInserted))
		return fail(err)
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return fail(canceledOr(ctx, errors.Wrap(err, errors.ErrorTypeStatementExecution, "commit failed")))
		}
	}
	res.Committed = true
	return res, nil
}

func (s *InsertStrategy) loadBatch(ctx context.Context, exec execer, enc *Encoder, plan *Plan,
	columns []string, rec arrow.Record, batch int, res *Result,
) (err error) {
	ctx, span := observability.StartSpan(ctx, "arrowload.batch")
	defer func() { span.Finish(err) }()
	span.SetAttribute("batch", batch)
	span.SetAttribute("rows", rec.NumRows())

	res.Batches++
	res.RowsObserved += rec.NumRows()
	plan.Progress.AddBatch()
	if rec.NumRows() == 0 {
		return nil
	}

	cols, err := enc.EncodeBatch(ctx, rec)
	if err != nil {
		return canceledOr(ctx, errors.Wrap(err, errors.ErrorTypeData, "cannot encode batch").WithDetail("batch", batch))
	}
	chunks := PlanChunks(Transpose(cols), plan.ChunkSize)
	res.ChunksPlanned += len(chunks)

	d := enc.dialect
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return errors.Canceled(err)
		}
		stmt := InsertStatement(d, plan.Table, columns, chunk)
		plan.Logger.Debug("inserting rows", zap.Int("rows", len(chunk)), zap.Int("batch", batch), zap.Int("chunk", i))

		n, err := s.execChunk(ctx, exec, plan.Metrics, stmt, batch, i)
		if err != nil {
			return err
		}
		res.RowsInserted += n
		res.ChunksSucceeded++
		plan.Progress.AddRows(n)
	}
	return nil
}

func (s *InsertStrategy) execChunk(ctx context.Context, exec execer, collector *metrics.Collector,
	stmt string, batch, chunk int,
) (n int64, err error) {
	ctx, span := observability.StartSpan(ctx, "arrowload.chunk")
	defer func() { span.Finish(err) }()
	span.SetAttribute("chunk", chunk)

	timer := metrics.NewTimer("chunk")
	n, err = exec.ExecDML(ctx, stmt)
	collector.ObserveStatement(timer.Stop(), err)
	if err != nil {
		if ctx.Err() != nil {
			return 0, errors.Canceled(ctx.Err())
		}
		return 0, errors.StatementExecution(batch, chunk, stmt, err)
	}
	span.SetAttribute("rows_affected", n)
	return n, nil
}
