// Package extract drives the end-to-end batched extraction flow per entity
// type: identifier chunking, cache lookup, paginated network fetch, fallback
// synthesis for unresolved identifiers, write-through caching, and
// deterministic assembly into one ordered table.
//
// Chunks are processed sequentially in input order. A single chunk's failure
// never aborts the run: the whole chunk degrades to fallback records and
// later chunks proceed. Output ordering is a function of the final assembly
// step, not of fetch order.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bioetl/chembl-extract/pkg/breaker"
	"github.com/bioetl/chembl-extract/pkg/cache"
	"github.com/bioetl/chembl-extract/pkg/chunker"
	"github.com/bioetl/chembl-extract/pkg/client"
	"github.com/bioetl/chembl-extract/pkg/descriptor"
	"github.com/bioetl/chembl-extract/pkg/paginator"
	"github.com/bioetl/chembl-extract/pkg/record"
)

// Prometheus metrics for extraction runs.
var (
	extractRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chembl_extract_records_total",
		Help: "Total extracted records by entity and outcome",
	}, []string{"entity", "outcome"}) // "success", "fallback"

	extractChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chembl_extract_chunks_total",
		Help: "Total processed chunks by entity and outcome",
	}, []string{"entity", "outcome"}) // "cached", "fetched", "exception", "breaker_open"

	extractDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chembl_extract_duration_seconds",
		Help:    "Extraction run duration in seconds by entity",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"entity"})
)

// Parser converts one raw API item into the entity's record shape. Supplied
// per entity type by the caller and treated as opaque; nil means identity.
type Parser func(item map[string]any) map[string]any

// Config holds extractor configuration.
type Config struct {
	// Client is the upstream API client (required).
	Client *client.Client

	// Cache is the release-scoped disk cache. Optional; nil disables
	// caching.
	Cache *cache.Store

	// Release is the data release tag partitioning the cache. Empty maps
	// to the "unknown" partition.
	Release string

	// MaxURLLength is the encoded-URL-length budget for chunking
	// (default 4000).
	MaxURLLength int

	// PageSize overrides the per-descriptor page size when > 0.
	PageSize int

	// Parser converts raw API items. Optional; nil means identity.
	Parser Parser
}

// Extractor owns the lifetime of extraction runs and their intermediate
// chunk results.
type Extractor struct {
	client  *client.Client
	cache   *cache.Store
	release string
	maxURL  int
	pgSize  int
	parser  Parser
	logger  zerolog.Logger
}

// New creates an extractor. Configuration defects fail immediately.
func New(cfg Config) (*Extractor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("extract: client is required")
	}
	if cfg.MaxURLLength == 0 {
		cfg.MaxURLLength = 4000
	}
	if cfg.MaxURLLength < 0 {
		return nil, fmt.Errorf("extract: max URL length must be >= 0 (got %d)", cfg.MaxURLLength)
	}

	return &Extractor{
		client:  cfg.Client,
		cache:   cfg.Cache,
		release: cfg.Release,
		maxURL:  cfg.MaxURLLength,
		pgSize:  cfg.PageSize,
		parser:  cfg.Parser,
		logger:  log.With().Str("component", "extractor").Logger(),
	}, nil
}

// Extract fetches records for the given identifiers using the descriptor's
// default field list. See ExtractFields.
func (e *Extractor) Extract(ctx context.Context, d descriptor.Descriptor, ids []string) (*Result, error) {
	return e.ExtractFields(ctx, d, ids, nil)
}

// ExtractFields fetches records for the given identifiers with an explicit
// field selection (nil means the descriptor defaults). Every distinct
// identifier yields exactly one row, real or fallback; the caller always
// receives a complete Result and can inspect FallbackCount/ErrorCount to
// judge the run. The returned error is non-nil only for configuration
// defects or run cancellation; in the latter case the partial result built
// so far is returned alongside ctx.Err().
func (e *Extractor) ExtractFields(ctx context.Context, d descriptor.Descriptor, ids []string, fields []string) (*Result, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = d.DefaultFields
	}

	startTime := time.Now()
	defer func() {
		extractDuration.WithLabelValues(d.Name).Observe(time.Since(startTime).Seconds())
	}()

	distinct := dedupe(ids)

	ch, err := chunker.New(d, requestFields(d, fields), e.maxURL)
	if err != nil {
		return nil, err
	}

	res := &Result{}

	for chunk := range ch.Chunks(distinct) {
		// Cancellation is honored at chunk boundaries; the partial
		// result is still assembled so far-completed chunks are not
		// lost.
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.finalize(res, d, fields)
			return res, ctxErr
		}
		e.processChunk(ctx, d, chunk, fields, res)
	}

	e.finalize(res, d, fields)

	e.logger.Info().
		Str("entity", d.Name).
		Int("identifiers", len(distinct)).
		Int("success", res.SuccessCount).
		Int("fallback", res.FallbackCount).
		Int("chunk_errors", res.ErrorCount).
		Int("api_calls", res.APICalls).
		Int("cache_hits", res.CacheHits).
		Dur("duration", time.Since(startTime)).
		Msg("Extraction run complete")

	return res, nil
}

// processChunk resolves one chunk: cache, then network, then fallback fill.
func (e *Extractor) processChunk(ctx context.Context, d descriptor.Descriptor, chunk []string, fields []string, res *Result) {
	key := cache.Key{Entity: d.Name, Release: e.release, Identifiers: chunk}

	if e.cache != nil {
		if cached, ok := e.cache.Lookup(key, d.IDField, d.NumericFields); ok {
			// Count what the entry actually holds, not the request size,
			// so the counter stays honest if a stored entry diverges from
			// the chunk that keyed it.
			res.CacheHits += len(cached)
			res.add(cached)
			countRecords(d.Name, cached)
			extractChunksTotal.WithLabelValues(d.Name, "cached").Inc()
			return
		}
	}

	items, err := e.fetchChunk(ctx, d, chunk, fields, res)
	if err != nil {
		e.failChunk(d, chunk, err, res)
		return
	}

	records := e.resolveChunk(d, chunk, items)

	if e.cache != nil {
		if err := e.cache.Write(key, records); err != nil {
			e.logger.Warn().Err(err).
				Str("entity", d.Name).
				Str("fingerprint", key.Fingerprint()).
				Msg("Cache write failed")
		}
	}

	res.add(records)
	countRecords(d.Name, records)
	extractChunksTotal.WithLabelValues(d.Name, "fetched").Inc()
}

// fetchChunk issues the batched, paginated request for one chunk.
func (e *Extractor) fetchChunk(ctx context.Context, d descriptor.Descriptor, chunk []string, fields []string, res *Result) ([]map[string]any, error) {
	params := url.Values{}
	params.Set(d.FilterParam, strings.Join(chunk, ","))
	params.Set("only", strings.Join(requestFields(d, fields), ","))

	pageSize := e.pgSize
	if pageSize <= 0 {
		pageSize = d.MaxPageSize
	}

	pager := paginator.New(&countingFetcher{fetcher: e.client, calls: &res.APICalls}, pageSize)
	return pager.Collect(ctx, d.Endpoint, params, d.ItemsKey)
}

// failChunk converts a whole chunk to fallback records. Breaker-open chunks
// are distinguished from generic exceptions and neither outcome is cached: a
// transient failure must not poison the cache for a later retry.
func (e *Extractor) failChunk(d descriptor.Descriptor, chunk []string, err error, res *Result) {
	reason := record.ReasonException
	cause := record.Cause{Err: err}

	var openErr *breaker.OpenError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &openErr):
		reason = record.ReasonBreakerOpen
		cause.RetryAfter = openErr.RetryAfter
	case errors.As(err, &apiErr):
		cause.HTTPStatus = apiErr.StatusCode
	}

	records := make([]record.Record, len(chunk))
	for i, id := range chunk {
		records[i] = record.NewFallback(d.IDField, id, reason, cause)
	}

	res.ErrorCount++
	res.add(records)
	countRecords(d.Name, records)

	outcome := "exception"
	if reason == record.ReasonBreakerOpen {
		outcome = "breaker_open"
	}
	extractChunksTotal.WithLabelValues(d.Name, outcome).Inc()

	e.logger.Warn().
		Err(err).
		Str("entity", d.Name).
		Int("chunk_size", len(chunk)).
		Str("fallback_reason", string(reason)).
		Msg("Chunk converted to fallback records")
}

// resolveChunk classifies each requested identifier of a successful fetch:
// present items become real records, absent identifiers become
// not_in_response fallbacks. Classification is per-identifier, not
// per-chunk.
func (e *Extractor) resolveChunk(d descriptor.Descriptor, chunk []string, items []map[string]any) []record.Record {
	byID := make(map[string]record.Record, len(items))
	for _, item := range items {
		parsed := item
		if e.parser != nil {
			parsed = e.parser(item)
		}
		id := record.CanonicalID(parsed[d.IDField])
		if id == "" {
			e.logger.Warn().
				Str("entity", d.Name).
				Str("id_field", d.IDField).
				Msg("Response item missing identifier field, skipped")
			continue
		}
		// First resolution wins; later duplicates are ignored.
		if _, exists := byID[id]; !exists {
			byID[id] = record.Record{ID: id, Fields: parsed}
		}
	}

	records := make([]record.Record, 0, len(chunk))
	for _, id := range chunk {
		if rec, ok := byID[id]; ok {
			records = append(records, rec)
		} else {
			records = append(records, record.NewFallback(d.IDField, id, record.ReasonNotInResponse, record.Cause{}))
		}
	}
	return records
}

// finalize sorts rows and builds the assembled table.
func (e *Extractor) finalize(res *Result, d descriptor.Descriptor, fields []string) {
	res.Rows = sortRecords(res.Rows)
	res.Table = Assemble(res.Rows, d, fields)
}

// requestFields returns the field selection sent upstream, always including
// the identifier field so responses can be mapped back to the request.
func requestFields(d descriptor.Descriptor, fields []string) []string {
	for _, f := range fields {
		if f == d.IDField {
			return fields
		}
	}
	out := make([]string, 0, len(fields)+1)
	out = append(out, fields...)
	return append(out, d.IDField)
}

// dedupe drops duplicate and empty identifiers, preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// countRecords updates the per-entity outcome counters.
func countRecords(entity string, records []record.Record) {
	for _, rec := range records {
		outcome := "success"
		if rec.IsFallback() {
			outcome = "fallback"
		}
		extractRecordsTotal.WithLabelValues(entity, outcome).Inc()
	}
}

// countingFetcher wraps the client to count HTTP page requests per run.
type countingFetcher struct {
	fetcher paginator.PageFetcher
	calls   *int
}

func (f *countingFetcher) GetJSON(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	envelope, err := f.fetcher.GetJSON(ctx, endpoint, params)
	if !errors.Is(err, breaker.ErrOpen) {
		// Breaker denials never reach the network and are not API calls.
		*f.calls++
	}
	return envelope, err
}
