package loader

import "time"

// Result counts what a strategy did. It is returned with failures too, so
// callers can see how far a load got before it stopped.
type Result struct {
	Strategy string `json:"strategy"`
	// RowsObserved is the number of rows read from the source
	RowsObserved int64 `json:"rows_observed"`
	// RowsInserted is the sum of row counts confirmed by the destination
	RowsInserted int64 `json:"rows_inserted"`
	Batches      int   `json:"batches"`
	// ChunksPlanned counts INSERT statements or append calls planned
	ChunksPlanned   int  `json:"chunks_planned"`
	ChunksSucceeded int  `json:"chunks_succeeded"`
	Committed       bool `json:"committed"`
}

// LoadSummary describes a finished load.
type LoadSummary struct {
	LoadID      string        `json:"load_id"`
	Table       string        `json:"table"`
	Destination string        `json:"destination"`
	Strategy    string        `json:"strategy"`
	Rows        int64         `json:"rows"`
	Batches     int           `json:"batches"`
	Statements  int           `json:"statements"`
	Elapsed     time.Duration `json:"elapsed"`
	Result      *Result       `json:"result"`
}

// RowsPerSecond returns the average load throughput.
func (s *LoadSummary) RowsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Rows) / s.Elapsed.Seconds()
}
