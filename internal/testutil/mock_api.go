// Package testutil provides testing utilities for the extraction engine.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/bioetl/chembl-extract/pkg/descriptor"
)

// MockAPI is a configurable mock ChEMBL-style server for testing. It serves
// paginated envelopes from seeded entity data and supports per-path handler
// overrides for failure injection.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	data     map[string][]map[string]any // endpoint -> seeded items

	// Tracking
	RequestCount int
	LastQuery    map[string][]string
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		data:     make(map[string][]map[string]any),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.envelopeHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = nil
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// FailWith makes a path respond with a fixed status code.
func (m *MockAPI) FailWith(path string, statusCode int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write([]byte(`{"error": "injected failure"}`))
	})
}

// ClearHandler removes a custom handler so the default envelope handler
// serves the path again.
func (m *MockAPI) ClearHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, path)
}

// Seed registers items served for an entity's endpoint. The descriptor
// supplies endpoint, filter parameter, items key, and identifier field used
// to answer filtered lookups.
func (m *MockAPI) Seed(d descriptor.Descriptor, items []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[d.Endpoint] = items
	m.handlers[d.Endpoint] = m.entityHandler(d)
}

// entityHandler serves filtered, paginated envelopes for one entity.
func (m *MockAPI) entityHandler(d descriptor.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		m.mu.RLock()
		items := m.data[d.Endpoint]
		m.mu.RUnlock()

		// Filter by the comma-joined identifier list when present.
		if filter := query.Get(d.FilterParam); filter != "" {
			wanted := make(map[string]bool)
			for _, id := range strings.Split(filter, ",") {
				wanted[strings.TrimSpace(id)] = true
			}
			var filtered []map[string]any
			for _, item := range items {
				if wanted[toString(item[d.IDField])] {
					filtered = append(filtered, item)
				}
			}
			items = filtered
		}

		limit := intQuery(query.Get("limit"), 20)
		offset := intQuery(query.Get("offset"), 0)

		end := offset + limit
		if offset > len(items) {
			offset = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		page := items[offset:end]

		meta := map[string]any{
			"limit":       limit,
			"offset":      offset,
			"total_count": len(items),
			"previous":    nil,
			"next":        nil,
		}
		if end < len(items) {
			meta["next"] = d.Endpoint + "?offset=" + strconv.Itoa(end)
		}

		envelope := map[string]any{
			d.ItemsKey:  emptyAsArray(page),
			"page_meta": meta,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(envelope)
	}
}

// envelopeHandler provides a default response for unconfigured paths.
func (m *MockAPI) envelopeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/status.json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"chembl_db_version":   "ChEMBL_34",
			"chembl_release_date": "2024-03-28",
			"api_version":         "2.0",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": "not found"}`))
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// emptyAsArray keeps empty pages encoded as [] rather than null.
func emptyAsArray(items []map[string]any) []map[string]any {
	if items == nil {
		return []map[string]any{}
	}
	return items
}
