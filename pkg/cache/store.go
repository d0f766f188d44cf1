// Package cache persists raw chunk results on disk, partitioned by entity
// and data release. Entries are JSON arrays of flat record objects under
// <root>/<entity>/<release>/<fingerprint>.json.
//
// Writes are atomic (temp file + rename), so concurrent writers racing on
// the same key produce an intact last-writer-wins file rather than a torn
// one. The store provides no cross-process locking for identical keys;
// disjoint keys never contend.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bioetl/chembl-extract/pkg/record"
)

// Store is a release-scoped disk cache for chunk results.
type Store struct {
	root   string
	logger zerolog.Logger
}

// NewStore creates a cache store rooted at the given directory.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("cache: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root: %w", err)
	}
	return &Store{
		root:   root,
		logger: log.With().Str("component", "cache").Logger(),
	}, nil
}

// Lookup returns the cached records for a key, or ok=false on a miss. A
// structurally invalid payload (non-array, non-object element, record
// missing its identifier) is logged, deleted, and treated as a miss rather
// than an error. Numeric fields from the allow-list are re-sanitized: values
// that fail to coerce to a non-negative number are reset to null.
func (s *Store) Lookup(key Key, idField string, numericFields []string) ([]record.Record, bool) {
	path := key.Path(s.root)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			CacheErrors.WithLabelValues("read").Inc()
			s.logger.Warn().Err(err).Str("path", path).Msg("Cache read error")
		}
		CacheMisses.Inc()
		return nil, false
	}

	var flats []map[string]any
	if err := json.Unmarshal(data, &flats); err != nil {
		s.discardCorrupt(path, err)
		return nil, false
	}

	records := make([]record.Record, 0, len(flats))
	for _, flat := range flats {
		if flat == nil {
			s.discardCorrupt(path, fmt.Errorf("null record in payload"))
			return nil, false
		}
		rec, err := record.FromFlat(flat, idField)
		if err != nil {
			s.discardCorrupt(path, err)
			return nil, false
		}
		s.sanitize(&rec, numericFields, key)
		records = append(records, rec)
	}

	CacheHits.WithLabelValues("disk").Inc()
	s.logger.Debug().
		Str("entity", key.Entity).
		Str("fingerprint", key.Fingerprint()).
		Int("records", len(records)).
		Msg("Cache hit")

	return records, true
}

// Write persists a complete chunk result. Invoked only after a chunk's fetch
// (success or fallback) completes, never for partial chunks.
func (s *Store) Write(key Key, records []record.Record) error {
	path := key.Path(s.root)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		CacheErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("cache: create partition: %w", err)
	}

	flats := make([]map[string]any, len(records))
	for i, rec := range records {
		flats[i] = rec.Flat()
	}

	data, err := json.Marshal(flats)
	if err != nil {
		CacheErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("cache: marshal entry: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		CacheErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		CacheErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("cache: write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		CacheErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		CacheErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("cache: rename entry: %w", err)
	}

	s.logger.Debug().
		Str("entity", key.Entity).
		Str("fingerprint", key.Fingerprint()).
		Int("records", len(records)).
		Msg("Cache write")

	return nil
}

// Delete removes a cache entry. Missing entries are not an error.
func (s *Store) Delete(key Key) error {
	if err := os.Remove(key.Path(s.root)); err != nil && !os.IsNotExist(err) {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("cache: delete entry: %w", err)
	}
	return nil
}

// discardCorrupt removes a structurally invalid cache file so the entry is
// refetched on the next lookup.
func (s *Store) discardCorrupt(path string, cause error) {
	s.logger.Warn().
		Err(cause).
		Str("path", path).
		Msg("Corrupt cache file discarded")

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		CacheErrors.WithLabelValues("delete").Inc()
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove corrupt cache file")
	}
	CorruptDiscarded.Inc()
	CacheMisses.Inc()
}

// sanitize resets allow-listed numeric fields that fail to coerce to a
// non-negative number. Guards against entries written before a stricter
// validation rule existed.
func (s *Store) sanitize(rec *record.Record, numericFields []string, key Key) {
	if rec.IsFallback() {
		return
	}
	for _, field := range numericFields {
		value, ok := rec.Fields[field]
		if !ok || value == nil {
			continue
		}
		if _, valid := coerceNonNegative(value); valid {
			continue
		}
		rec.Fields[field] = nil
		SanitizedFields.Inc()
		s.logger.Warn().
			Str("entity", key.Entity).
			Str("identifier", rec.ID).
			Str("field", field).
			Msg("Cached numeric field failed re-sanitization, reset to null")
	}
}

// coerceNonNegative attempts to read a value as a non-negative number.
func coerceNonNegative(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 0 {
		return 0, false
	}
	return f, true
}
