package loader_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
)

// fakeDestination records statements and derives the affected row count
// from the number of VALUES tuples. onDML can rewrite the reported count or
// fail a call.
type fakeDestination struct {
	mu sync.Mutex

	ddl []string
	dml []string

	noTransactions bool
	failDrop       bool
	begun          int
	committed      int
	rolledBack     int

	onDML func(call int, rows int64) (int64, error)
}

var _ core.Destination = (*fakeDestination)(nil)

func (f *fakeDestination) Name() string { return "fake" }

func (f *fakeDestination) Dialect() core.Dialect { return base.DefaultDialect("fake") }

func (f *fakeDestination) ExecDDL(_ context.Context, stmt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ddl = append(f.ddl, stmt)
	if f.failDrop && strings.HasPrefix(stmt, "DROP") {
		return fmt.Errorf("permission denied")
	}
	return nil
}

func (f *fakeDestination) ExecDML(_ context.Context, stmt string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.dml)
	f.dml = append(f.dml, stmt)
	rows := int64(strings.Count(stmt, "),(") + 1)
	if f.onDML != nil {
		return f.onDML(call, rows)
	}
	return rows, nil
}

func (f *fakeDestination) SupportsTransactions() bool { return !f.noTransactions }

func (f *fakeDestination) BeginTransaction(context.Context) (core.Transaction, error) {
	if f.noTransactions {
		return nil, fmt.Errorf("transactions not supported")
	}
	f.begun++
	return &fakeTx{f: f}, nil
}

func (f *fakeDestination) Health(context.Context) error { return nil }

func (f *fakeDestination) Close(context.Context) error { return nil }

type fakeTx struct {
	f    *fakeDestination
	done bool
}

func (tx *fakeTx) ExecDML(ctx context.Context, stmt string) (int64, error) {
	return tx.f.ExecDML(ctx, stmt)
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.done = true
	tx.f.committed++
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.f.rolledBack++
	return nil
}

// fakeAppender adds a bulk append path to fakeDestination.
type fakeAppender struct {
	fakeDestination

	rejectBatch int // 1-based; 0 accepts everything
	underReport bool
	sessions    []*fakeSession
}

var _ core.BulkAppender = (*fakeAppender)(nil)

func (f *fakeAppender) BeginAppend(_ context.Context, table string, schema *core.Schema) (core.AppendSession, error) {
	s := &fakeSession{parent: f, table: table, columns: schema.ColumnNames()}
	f.sessions = append(f.sessions, s)
	return s, nil
}

type fakeSession struct {
	parent  *fakeAppender
	table   string
	columns []string

	rows     [][]interface{}
	calls    int
	finished bool
	aborted  bool
}

func (s *fakeSession) Append(_ context.Context, rows [][]interface{}) (int64, error) {
	s.calls++
	if s.calls == s.parent.rejectBatch {
		return 0, fmt.Errorf("conversion error in row 0")
	}
	// copy, the loader may reuse its buffers
	for _, r := range rows {
		s.rows = append(s.rows, append([]interface{}(nil), r...))
	}
	n := int64(len(rows))
	if s.parent.underReport {
		n--
	}
	return n, nil
}

func (s *fakeSession) Finish(context.Context) (int64, error) {
	s.finished = true
	return int64(len(s.rows)), nil
}

func (s *fakeSession) Abort(context.Context) error {
	s.aborted = true
	return nil
}
