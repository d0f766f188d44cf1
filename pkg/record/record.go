// Package record models the engine's record sum type: a resolved upstream
// record or a synthesized fallback carrying a structured failure reason.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is either a real upstream record (Fallback == nil) or a synthesized
// placeholder for an identifier that could not be resolved (Fallback != nil).
// The invariant that real records carry no fallback fields is enforced by the
// type rather than by null-filled keys.
type Record struct {
	// ID is the canonical identifier this record answers for.
	ID string

	// Fields is the loosely-typed field map as returned by the upstream
	// API (or the minimal identifier-only map for fallbacks).
	Fields map[string]any

	// Fallback is non-nil exactly when this record is a placeholder.
	Fallback *Fallback
}

// IsFallback reports whether this record is a synthesized placeholder.
func (r Record) IsFallback() bool {
	return r.Fallback != nil
}

// Flat returns the record as a single flat map, the shape persisted in cache
// files: upstream fields plus, for fallbacks, the fallback_* keys.
func (r Record) Flat() map[string]any {
	out := make(map[string]any, len(r.Fields)+8)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.Fallback != nil {
		r.Fallback.flatten(out)
	}
	return out
}

// FromFlat reconstructs a Record from a flat map, detecting fallbacks via a
// non-null fallback_reason key. idField names the identifier field.
func FromFlat(m map[string]any, idField string) (Record, error) {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		if !strings.HasPrefix(k, fallbackKeyPrefix) {
			fields[k] = v
		}
	}

	id := CanonicalID(fields[idField])
	if id == "" {
		return Record{}, fmt.Errorf("record: missing identifier field %q", idField)
	}

	fb, err := fallbackFromFlat(m)
	if err != nil {
		return Record{}, err
	}

	return Record{ID: id, Fields: fields, Fallback: fb}, nil
}

// CanonicalID renders an identifier value as its canonical trimmed string
// form. JSON numbers that are integral render without a fraction so that
// cache round-trips and live responses agree on the key.
func CanonicalID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
