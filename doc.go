// Package arrowload loads columnar batch streams into relational tables.
//
// Sources are Arrow IPC files and streams, Parquet or Avro files, optionally
// wrapped in zstd or lz4 and optionally fetched from S3 or GCS. Destinations
// are SQLite, DuckDB, PostgreSQL, MySQL, Snowflake and BigQuery, resolved
// from a path or URL by the connector registry.
//
// # Quick Start
//
//	summary, err := loader.LoadTable(ctx, "events.parquet", "events", "events.db", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("loaded %d rows\n", summary.Rows)
//
// A load derives the table from the first batch and moves every row through
// either multi-row INSERT statements inside one transaction or the
// destination's bulk append path. The rows the destination confirms must
// equal the rows read, otherwise nothing is committed.
//
// # Packages
//
//   - pkg/loader: schema mapping, value encoding, chunk planning, strategies
//   - pkg/formats/columnar: Arrow, Parquet and Avro readers
//   - pkg/connector: destination interfaces, engines, registry, remote sources
//   - pkg/config, pkg/logger, pkg/errors, pkg/metrics, pkg/observability:
//     configuration, logging, typed errors and telemetry
//
// The arrowload command in cmd/arrowload wraps LoadTable with load, inspect,
// list and health subcommands.
package arrowload
