// Package connector groups the destination side of a load.
//
//   - core: the Destination, Transaction, BulkAppender and Dialect interfaces
//   - base: shared database/sql plumbing, the standard dialect, retries,
//     health checks and progress reporting
//   - destinations: SQLite, DuckDB, PostgreSQL, MySQL, Snowflake and BigQuery
//     engines, registered on import
//   - registry: resolves a path or URL to a destination engine
//   - sources: opens local or object store columnar sources
//
// Destinations register themselves in init:
//
//	func init() {
//	    _ = registry.RegisterDestination(core.ConnectorMetadata{
//	        Name:    Name,
//	        Type:    core.ConnectorTypeDestination,
//	        Schemes: []string{"sqlite"},
//	    }, open)
//	}
package connector
