// Package metrics provides load telemetry for arrowload using Prometheus
// metrics.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("sqlite", "insert")
//	timer := metrics.NewTimer("chunk")
//	n, err := dest.ExecDML(ctx, stmt)
//	collector.ObserveStatement(timer.Stop(), err)
//	collector.AddRows(n)
//
// All vectors are registered with the default Prometheus registry; the CLI
// exposes them through promhttp when --metrics-addr is set.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsLoaded counts rows confirmed persisted by the destination.
	// Labels: destination, strategy
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arrowload_rows_loaded_total",
			Help: "Rows confirmed persisted by the destination",
		},
		[]string{"destination", "strategy"},
	)

	// BatchesRead counts batches consumed from sources.
	// Labels: format
	BatchesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arrowload_batches_read_total",
			Help: "Columnar batches consumed from sources",
		},
		[]string{"format"},
	)

	// StatementsExecuted counts INSERT chunks and append calls.
	// Labels: destination, status (success/error)
	StatementsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arrowload_statements_executed_total",
			Help: "Insert statements and append calls executed",
		},
		[]string{"destination", "status"},
	)

	// StatementLatency tracks per-statement latency in seconds.
	StatementLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "arrowload_statement_latency_seconds",
			Help: "Latency of one insert statement or append call",
			Buckets: []float64{
				0.001, // small chunks on local sqlite
				0.01,
				0.1,
				1, // 10k-row chunks on remote engines
				10,
				60,
			},
		},
		[]string{"destination"},
	)

	// LoadDuration tracks whole-load wall time in seconds.
	// Labels: destination, strategy, status
	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arrowload_load_duration_seconds",
			Help:    "Wall time of one load",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"destination", "strategy", "status"},
	)

	// LoadFailures counts failed loads by error kind.
	LoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arrowload_load_failures_total",
			Help: "Failed loads by error kind",
		},
		[]string{"kind"},
	)

	// Throughput tracks rows per second over the last progress interval.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arrowload_throughput_rows_per_second",
			Help: "Current throughput in rows per second",
		},
		[]string{"destination", "strategy"},
	)
)

// Collector binds the metric vectors to one destination and strategy so
// call sites do not repeat label values.
type Collector struct {
	destination string
	strategy    string

	rows       prometheus.Counter
	statements map[string]prometheus.Counter
	latency    prometheus.Observer
}

// NewCollector creates a collector for loads into destination using strategy.
func NewCollector(destination, strategy string) *Collector {
	return &Collector{
		destination: destination,
		strategy:    strategy,
		rows:        RowsLoaded.WithLabelValues(destination, strategy),
		statements: map[string]prometheus.Counter{
			"success": StatementsExecuted.WithLabelValues(destination, "success"),
			"error":   StatementsExecuted.WithLabelValues(destination, "error"),
		},
		latency: StatementLatency.WithLabelValues(destination),
	}
}

// AddRows records rows confirmed persisted.
func (c *Collector) AddRows(n int64) {
	if n > 0 {
		c.rows.Add(float64(n))
	}
}

// ObserveStatement records one statement outcome and its latency.
func (c *Collector) ObserveStatement(d time.Duration, err error) {
	c.statements[status(err)].Inc()
	c.latency.Observe(d.Seconds())
}

// ObserveLoad records the end of a load. kind is the error kind of a
// failed load and ignored on success.
func (c *Collector) ObserveLoad(d time.Duration, err error, kind string) {
	LoadDuration.WithLabelValues(c.destination, c.strategy, status(err)).Observe(d.Seconds())
	if err != nil {
		LoadFailures.WithLabelValues(kind).Inc()
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It may be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks rows per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu          sync.Mutex
	count       int64     // Rows since last reset
	lastReset   time.Time // Time of last reset
	destination string
	strategy    string
}

// NewThroughputTracker creates a new throughput tracker for a load.
func NewThroughputTracker(destination, strategy string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset:   time.Now(),
		destination: destination,
		strategy:    strategy,
	}
}

// Increment adds n to the row count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (rows/second),
// updates the Prometheus gauge, resets the counter, and returns
// the calculated throughput. Safe for concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.destination, t.strategy).Set(throughput)

	return throughput
}
