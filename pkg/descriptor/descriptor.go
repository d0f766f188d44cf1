// Package descriptor defines the static per-entity metadata driving the
// extraction engine: endpoint paths, bulk-lookup filter parameters, response
// envelope keys, chunking ceilings, and field contracts.
package descriptor

import (
	"fmt"
)

// Descriptor holds the immutable metadata for one entity type. Construct once
// at startup, either via Lookup for the built-in ChEMBL entities or directly
// for custom endpoints, and call Validate before use.
type Descriptor struct {
	// Name is the entity type name, used as the cache namespace
	// (e.g. "activity", "molecule").
	Name string

	// Endpoint is the API endpoint path (e.g. "/activity.json").
	Endpoint string

	// FilterParam is the query parameter for bulk identifier lookup
	// (e.g. "molecule_chembl_id__in"). Identifiers are comma-joined.
	FilterParam string

	// ItemsKey is the array field in the paginated response envelope
	// (e.g. "activities").
	ItemsKey string

	// IDField is the record field carrying the entity identifier.
	IDField string

	// ChunkSizeCeiling is the maximum number of identifiers per chunk.
	ChunkSizeCeiling int

	// MaxPageSize is the page size requested from the upstream API
	// (0 means the extractor default applies).
	MaxPageSize int

	// URLLengthEnforced enables the encoded-URL-length budget during
	// chunking. When true a positive max URL length must be supplied.
	URLLengthEnforced bool

	// DefaultFields are the columns requested from the API and guaranteed
	// in the assembled output, in this order.
	DefaultFields []string

	// OrderingFields are the final sort key fields, appended to the
	// assembled column set when not already present.
	OrderingFields []string

	// NumericFields is the allow-list of fields re-sanitized on cache
	// read: values that fail to coerce to a non-negative number are reset
	// to null.
	NumericFields []string
}

// Validate checks the descriptor for setup defects. A failure here is a
// programming error, not a runtime condition, and is surfaced immediately.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor: name is required")
	}
	if d.Endpoint == "" {
		return fmt.Errorf("descriptor %q: endpoint is required", d.Name)
	}
	if d.FilterParam == "" {
		return fmt.Errorf("descriptor %q: filter param is required", d.Name)
	}
	if d.ItemsKey == "" {
		return fmt.Errorf("descriptor %q: items key is required", d.Name)
	}
	if d.IDField == "" {
		return fmt.Errorf("descriptor %q: id field is required", d.Name)
	}
	if d.ChunkSizeCeiling <= 0 {
		return fmt.Errorf("descriptor %q: chunk size ceiling must be > 0 (got %d)", d.Name, d.ChunkSizeCeiling)
	}
	if d.MaxPageSize < 0 {
		return fmt.Errorf("descriptor %q: max page size must be >= 0 (got %d)", d.Name, d.MaxPageSize)
	}
	return nil
}
