package loader

import (
	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	stringpool "github.com/ajitpratap0/arrowload/pkg/strings"
)

// DefaultChunkSize is the maximum number of rows per INSERT statement.
const DefaultChunkSize = config.DefaultChunkSize

// PlanChunks splits rows into ceil(len(rows)/size) consecutive chunks of at
// most size rows, preserving order. A non-positive size uses DefaultChunkSize.
func PlanChunks[T any](rows []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(rows) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end:end])
	}
	return chunks
}

// InsertStatement renders one multi-row INSERT of already encoded literals.
func InsertStatement(d core.Dialect, table string, columns []string, rows [][]string) string {
	estimate := 32 + len(table) + 8*len(columns)
	if len(rows) > 0 {
		for _, lit := range rows[0] {
			estimate += (len(lit) + 1) * len(rows)
		}
		estimate += 4 * len(rows)
	}

	sb := stringpool.NewSQLBuilder(estimate)
	defer sb.Close()

	sb.WriteQuery("INSERT INTO ").WriteQuery(d.QuoteIdentifier(table)).WriteQuery(" (")
	for i, c := range columns {
		if i > 0 {
			sb.WriteChar(',')
		}
		sb.WriteQuery(d.QuoteIdentifier(c))
	}
	sb.WriteQuery(") VALUES ")
	for r, row := range rows {
		if r > 0 {
			sb.WriteChar(',')
		}
		sb.WriteChar('(')
		for i, lit := range row {
			if i > 0 {
				sb.WriteChar(',')
			}
			sb.WriteQuery(lit)
		}
		sb.WriteChar(')')
	}
	return sb.String()
}

// CreateTableStatement renders CREATE TABLE IF NOT EXISTS for schema.
func CreateTableStatement(d core.Dialect, schema *core.Schema) string {
	sb := stringpool.NewSQLBuilder(64 + 24*len(schema.Fields))
	defer sb.Close()

	sb.WriteQuery("CREATE TABLE IF NOT EXISTS ").WriteQuery(d.QuoteIdentifier(schema.Name)).WriteQuery(" (")
	for i, f := range schema.Fields {
		if i > 0 {
			sb.WriteQuery(", ")
		}
		sb.WriteQuery(d.QuoteIdentifier(f.Name)).WriteSpace().WriteQuery(d.ColumnType(f.Type))
	}
	sb.WriteChar(')')
	return sb.String()
}

// DropTableStatement renders DROP TABLE IF EXISTS.
func DropTableStatement(d core.Dialect, table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdentifier(table)
}
