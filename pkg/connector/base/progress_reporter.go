package base

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/metrics"
)

// ProgressReporter periodically logs rows loaded, throughput and the
// process resident set size while a load runs.
type ProgressReporter struct {
	logger     *zap.Logger
	throughput *metrics.ThroughputTracker
	proc       *process.Process

	processedRows int64
	batches       int64
	startTime     time.Time
	interval      time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProgressReporter creates a reporter. A non-positive interval disables
// periodic reports; the final summary is still logged by Stop.
func NewProgressReporter(logger *zap.Logger, tracker *metrics.ThroughputTracker, interval time.Duration) *ProgressReporter {
	pr := &ProgressReporter{
		logger:     logger,
		throughput: tracker,
		startTime:  time.Now(),
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
	// best effort, RSS is omitted when the process cannot be inspected
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits in int32
		pr.proc = p
	}
	return pr
}

// Start begins periodic progress reporting
func (pr *ProgressReporter) Start() {
	if pr.interval <= 0 {
		return
	}
	pr.wg.Add(1)
	go func() {
		defer pr.wg.Done()
		ticker := time.NewTicker(pr.interval)
		defer ticker.Stop()

		for {
			select {
			case <-pr.stopCh:
				return
			case <-ticker.C:
				pr.report("progress update")
			}
		}
	}()
}

// Stop ends periodic reporting and logs the final summary. Safe to call
// more than once.
func (pr *ProgressReporter) Stop() {
	pr.stopOnce.Do(func() {
		close(pr.stopCh)
		pr.wg.Wait()
		pr.report("load progress final")
	})
}

// AddRows records rows confirmed by the destination.
func (pr *ProgressReporter) AddRows(n int64) {
	atomic.AddInt64(&pr.processedRows, n)
	if pr.throughput != nil {
		pr.throughput.Increment(n)
	}
}

// AddBatch records one consumed source batch.
func (pr *ProgressReporter) AddBatch() {
	atomic.AddInt64(&pr.batches, 1)
}

// Rows returns the rows recorded so far.
func (pr *ProgressReporter) Rows() int64 {
	return atomic.LoadInt64(&pr.processedRows)
}

// Snapshot returns a point-in-time view of the load.
func (pr *ProgressReporter) Snapshot() ProgressSnapshot {
	rows := atomic.LoadInt64(&pr.processedRows)
	elapsed := time.Since(pr.startTime)
	snap := ProgressSnapshot{
		Timestamp: time.Now(),
		Rows:      rows,
		Batches:   atomic.LoadInt64(&pr.batches),
		Elapsed:   elapsed,
	}
	if s := elapsed.Seconds(); s > 0 {
		snap.RowsPerSecond = float64(rows) / s
	}
	if pr.proc != nil {
		if mem, err := pr.proc.MemoryInfo(); err == nil {
			snap.RSSBytes = mem.RSS
		}
	}
	return snap
}

func (pr *ProgressReporter) report(msg string) {
	snap := pr.Snapshot()
	fields := []zap.Field{
		zap.Int64("rows", snap.Rows),
		zap.Int64("batches", snap.Batches),
		zap.Float64("rows_per_second", snap.RowsPerSecond),
		zap.Duration("elapsed", snap.Elapsed),
	}
	if snap.RSSBytes > 0 {
		fields = append(fields, zap.Uint64("rss_bytes", snap.RSSBytes))
	}
	if pr.throughput != nil {
		fields = append(fields, zap.Float64("interval_rows_per_second", pr.throughput.GetAndReset()))
	}
	pr.logger.Info(msg, fields...)
}

// ProgressSnapshot represents a point-in-time progress snapshot
type ProgressSnapshot struct {
	Timestamp     time.Time
	Rows          int64
	Batches       int64
	RowsPerSecond float64
	Elapsed       time.Duration
	RSSBytes      uint64
}
