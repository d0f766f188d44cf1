package extract

import (
	"sort"

	"github.com/bioetl/chembl-extract/pkg/descriptor"
	"github.com/bioetl/chembl-extract/pkg/record"
)

// Table is the assembled output: a fixed column set and one row per record,
// with nil marking a missing (null) value. Consumers never observe a ragged
// schema.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Assemble merges chunk records into one ordered table. Rows sort by the
// entity identifier, then by provenance (real records before fallbacks),
// using a stable sort so equal keys preserve insertion order; re-running
// assembly on differently-ordered chunk results yields the same row order.
//
// The column set is the requested field list (or the descriptor defaults) in
// caller order, followed by any extra columns present in the data in sorted
// order, followed by the ordering fields when not already included.
func Assemble(records []record.Record, d descriptor.Descriptor, requestedFields []string) Table {
	rows := append([]record.Record(nil), records...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ID != rows[j].ID {
			return rows[i].ID < rows[j].ID
		}
		return provenance(rows[i]) < provenance(rows[j])
	})

	flats := make([]map[string]any, len(rows))
	for i, rec := range rows {
		flats[i] = rec.Flat()
	}

	columns := assembleColumns(flats, d, requestedFields)

	table := Table{Columns: columns, Rows: make([][]any, len(flats))}
	for i, flat := range flats {
		row := make([]any, len(columns))
		for c, col := range columns {
			row[c] = flat[col] // missing keys yield nil (typed null)
		}
		table.Rows[i] = row
	}
	return table
}

// sortRecords returns the records in final assembled order without building
// the table. Used by the orchestrator so Result.Rows and Table agree.
func sortRecords(records []record.Record) []record.Record {
	rows := append([]record.Record(nil), records...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ID != rows[j].ID {
			return rows[i].ID < rows[j].ID
		}
		return provenance(rows[i]) < provenance(rows[j])
	})
	return rows
}

// provenance ranks real records before fallbacks for equal identifiers.
func provenance(r record.Record) int {
	if r.IsFallback() {
		return 1
	}
	return 0
}

// assembleColumns builds the guaranteed column set.
func assembleColumns(flats []map[string]any, d descriptor.Descriptor, requestedFields []string) []string {
	base := requestedFields
	if len(base) == 0 {
		base = d.DefaultFields
	}

	columns := make([]string, 0, len(base)+8)
	seen := make(map[string]bool, len(base)+8)
	for _, col := range base {
		if !seen[col] {
			columns = append(columns, col)
			seen[col] = true
		}
	}

	var extras []string
	for _, flat := range flats {
		for key := range flat {
			if !seen[key] {
				extras = append(extras, key)
				seen[key] = true
			}
		}
	}
	sort.Strings(extras)
	columns = append(columns, extras...)

	for _, col := range d.OrderingFields {
		if !seen[col] {
			columns = append(columns, col)
			seen[col] = true
		}
	}
	return columns
}
