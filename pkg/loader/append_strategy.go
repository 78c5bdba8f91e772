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

// AppendStrategy streams batches into a destination's native bulk append
// session, one Append call per batch. The session commits once, after every
// batch has been accepted and the row counts agree.
type AppendStrategy struct{}

// Name implements Strategy.
func (s *AppendStrategy) Name() string { return config.StrategyAppend }

// Load implements Strategy.
func (s *AppendStrategy) Load(ctx context.Context, src columnar.Reader, dest core.Destination, plan *Plan) (*Result, error) {
	plan = plan.withDefaults(dest, s.Name())
	log := plan.Logger
	res := &Result{Strategy: s.Name()}

	appender, ok := dest.(core.BulkAppender)
	if !ok {
		return res, errors.Newf(errors.ErrorTypeCapability, "destination %s has no bulk append path", dest.Name())
	}

	stream, err := openStream(ctx, src)
	if err != nil {
		return res, err
	}
	defer stream.close()

	target, err := prepareTable(ctx, dest, plan, stream.schema)
	if err != nil {
		return res, err
	}

	session, err := appender.BeginAppend(ctx, plan.Table, target)
	if err != nil {
		return res, canceledOr(ctx, errors.Wrap(err, errors.ErrorTypeStatementExecution, "cannot begin append session"))
	}
	abort := func(err error) (*Result, error) {
		if abortErr := session.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			log.Warn("append abort failed", zap.Error(abortErr))
		} else {
			log.Debug("append session aborted", zap.Int("batches_discarded", res.ChunksSucceeded))
		}
		return res, err
	}

	enc := NewEncoder(dest.Dialect(), plan.TypeMapping, plan.Workers)
	for {
		rec, batch, err := stream.next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return abort(err)
		}
		err = s.appendBatch(ctx, session, enc, plan, rec, batch, res)
		rec.Release()
		if err != nil {
			return abort(err)
		}
	}

	if err := reconcile(res.RowsObserved, res.RowsInserted); err != nil {
		log.Error("row count mismatch",
			zap.Int64("observed", res.RowsObserved),
			zap.Int64("inserted", res.RowsInserted))
		return abort(err)
	}

	total, err := session.Finish(ctx)
	if err != nil {
		return res, canceledOr(ctx, errors.Wrap(err, errors.ErrorTypeStatementExecution, "append commit failed"))
	}
	res.Committed = true
	if total != res.RowsInserted {
		// already committed; report the disagreement without hiding it
		return res, reconcile(res.RowsObserved, total)
	}
	return res, nil
}

func (s *AppendStrategy) appendBatch(ctx context.Context, session core.AppendSession, enc *Encoder, plan *Plan,
	rec arrow.Record, batch int, res *Result,
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

	cols, err := enc.NativeBatch(ctx, rec)
	if err != nil {
		return canceledOr(ctx, errors.Wrap(err, errors.ErrorTypeData, "cannot convert batch").WithDetail("batch", batch))
	}
	rows := Transpose(cols)
	res.ChunksPlanned++
	plan.Logger.Debug("appending rows", zap.Int("rows", len(rows)), zap.Int("batch", batch))

	timer := metrics.NewTimer("append")
	n, err := session.Append(ctx, rows)
	plan.Metrics.ObserveStatement(timer.Stop(), err)
	if err != nil {
		return canceledOr(ctx, errors.StatementExecution(batch, 0, "APPEND "+plan.Table, err))
	}
	res.RowsInserted += n
	res.ChunksSucceeded++
	plan.Progress.AddRows(n)
	return nil
}
