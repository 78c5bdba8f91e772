// Package destinations registers every built-in destination with the
// connector registry. Import it for its side effects:
//
//	import _ "github.com/ajitpratap0/arrowload/pkg/connector/destinations"
package destinations

import (
	// Import all destination connectors to trigger init() registration
	_ "github.com/ajitpratap0/arrowload/pkg/connector/destinations/bigquery"
	_ "github.com/ajitpratap0/arrowload/pkg/connector/destinations/duckdb"
	_ "github.com/ajitpratap0/arrowload/pkg/connector/destinations/mysql"
	_ "github.com/ajitpratap0/arrowload/pkg/connector/destinations/postgresql"
	_ "github.com/ajitpratap0/arrowload/pkg/connector/destinations/snowflake"
	_ "github.com/ajitpratap0/arrowload/pkg/connector/destinations/sqlite"
)
