package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/logger"
	"github.com/ajitpratap0/arrowload/pkg/loader"
)

// loadFlags maps config keys to the load command's flags.
var loadFlags = map[string]string{
	"performance.chunk_size":       "chunk-size",
	"performance.workers":          "workers",
	"performance.read_batch_size":  "read-batch-size",
	"timeouts.statement":           "statement-timeout",
	"loader.strategy":              "strategy",
	"loader.type_mapping":          "type-mapping",
	"loader.transactional":         "transactional",
	"loader.drop_existing":         "drop",
	"observability.enable_metrics": "enable-metrics",
	"observability.metrics_addr":   "metrics-addr",
	"observability.enable_tracing": "enable-tracing",
}

func newLoadCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "load SOURCE TABLE DESTINATION",
		Short: "Load a columnar file into a table",
		Long: `Load every batch of SOURCE into TABLE at DESTINATION and print a JSON summary.

SOURCE is a local Arrow IPC, Parquet or Avro file (optionally .zst/.lz4) or an
s3://bucket/key or gs://bucket/object location. DESTINATION is a SQLite file
path or a sqlite://, duckdb://, postgres://, mysql://, snowflake:// or
bigquery:// URL.

Example:
  arrowload load events.parquet events out.db --drop
  arrowload load s3://lake/events.arrow events postgres://localhost/db --strategy append`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			binds := make(map[string]string, len(loadFlags))
			for k, v := range loadFlags {
				binds[k] = v
			}
			cfg, err := loadSettings(cmd, binds)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			stop, err := startTelemetry(ctx, cfg)
			if err != nil {
				return err
			}
			defer stop()
			defer func() { _ = logger.Sync() }()

			logger.Info("starting load",
				zap.String("source", args[0]),
				zap.String("table", args[1]),
				zap.String("strategy", cfg.Loader.Strategy))

			summary, err := loader.LoadTable(ctx, args[0], args[1], args[2], cfg.Loader.DropExisting,
				loader.WithConfig(cfg))
			if summary != nil {
				if werr := writeJSON(cmd, summary); werr != nil && err == nil {
					err = fmt.Errorf("failed to write summary: %w", werr)
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.Int("chunk-size", 0, "Rows per INSERT statement (default 10000)")
	f.Int("workers", 0, "Columns encoded in parallel (default NumCPU)")
	f.Int("read-batch-size", 0, "Rows per batch read from Parquet sources")
	f.Duration("statement-timeout", 0, "Per-statement timeout (0 disables)")
	f.String("strategy", "", "Load strategy: auto, insert or append")
	f.String("type-mapping", "", "Type mapping: strict or extended")
	f.Bool("transactional", true, "Wrap the load in one transaction")
	f.Bool("drop", false, "Drop the table before creating it")
	f.Bool("enable-metrics", false, "Serve prometheus metrics while loading")
	f.String("metrics-addr", "", "Listen address of the /metrics endpoint")
	f.Bool("enable-tracing", false, "Export OpenTelemetry spans to stderr")
	f.DurationVar(&timeout, "timeout", 0, "Abort the load after this duration")
	return cmd
}
