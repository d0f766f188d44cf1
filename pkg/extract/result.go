package extract

import (
	"github.com/bioetl/chembl-extract/pkg/record"
)

// Result is the outcome of one extraction run: one row per distinct
// requested identifier (real or fallback), the deterministically assembled
// table, and aggregate counters.
type Result struct {
	// Rows holds one record per distinct requested identifier, in final
	// assembled order.
	Rows []record.Record

	// Table is the assembled output with the guaranteed column contract.
	Table Table

	// SuccessCount is the number of real records.
	SuccessCount int

	// FallbackCount is the number of fallback rows of any reason.
	FallbackCount int

	// ErrorCount is the number of chunks that failed at the transport
	// level (exception or open breaker).
	ErrorCount int

	// APICalls is the number of HTTP page requests issued.
	APICalls int

	// CacheHits is the number of identifiers served from cache.
	CacheHits int
}

// Len returns the number of result rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// add accumulates chunk records into the result.
func (r *Result) add(records []record.Record) {
	for _, rec := range records {
		if rec.IsFallback() {
			r.FallbackCount++
		} else {
			r.SuccessCount++
		}
	}
	r.Rows = append(r.Rows, records...)
}
