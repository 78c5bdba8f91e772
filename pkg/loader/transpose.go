package loader

import "fmt"

// Transpose turns N columns of M values into M rows of N values, with
// rows[r][c] == columns[c][r]. Each row is filled by index, so callers may
// split the work across goroutines. It panics on zero or ragged columns.
func Transpose[T any](columns [][]T) [][]T {
	if len(columns) == 0 {
		panic("loader: transpose of zero columns")
	}
	m := len(columns[0])
	for c, col := range columns {
		if len(col) != m {
			panic(fmt.Sprintf("loader: column %d has %d values, column 0 has %d", c, len(col), m))
		}
	}

	n := len(columns)
	// one backing array keeps the rows contiguous
	cells := make([]T, m*n)
	rows := make([][]T, m)
	for r := range rows {
		row := cells[r*n : (r+1)*n : (r+1)*n]
		for c := range columns {
			row[c] = columns[c][r]
		}
		rows[r] = row
	}
	return rows
}
