// Package paginator iterates paginated JSON envelopes from the upstream API.
//
// The upstream returns pages shaped as
//
//	{ "<items_key>": [ {...}, ... ], "page_meta": { "limit": n, "offset": n, "next": ..., "total_count": n } }
//
// The paginator advances an offset by the number of items actually returned
// and stops when a page returns fewer items than requested or the envelope
// carries no next page. It is schema-agnostic beyond the envelope shape and
// performs no retries; transport and decode errors propagate to the caller
// unmodified. Each range over Items re-issues requests from the start
// (restartable).
package paginator

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// pageMetaKey is the envelope field holding pagination metadata.
const pageMetaKey = "page_meta"

// PageFetcher fetches one page of a paginated endpoint. *client.Client
// implements this interface.
type PageFetcher interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) (map[string]any, error)
}

// Pager iterates all items of a paginated endpoint. It holds no state across
// Items calls.
type Pager struct {
	fetcher  PageFetcher
	pageSize int
	logger   zerolog.Logger
}

// New creates a pager fetching pageSize items per request.
func New(fetcher PageFetcher, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Pager{
		fetcher:  fetcher,
		pageSize: pageSize,
		logger:   log.With().Str("component", "paginator").Logger(),
	}
}

// Items yields every raw record under itemsKey across all pages, in page
// order. Errors stop iteration and are yielded once as the second value.
func (p *Pager) Items(ctx context.Context, endpoint string, params url.Values, itemsKey string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		offset := 0

		for {
			pageParams := clone(params)
			pageParams.Set("limit", strconv.Itoa(p.pageSize))
			pageParams.Set("offset", strconv.Itoa(offset))

			envelope, err := p.fetcher.GetJSON(ctx, endpoint, pageParams)
			if err != nil {
				yield(nil, err)
				return
			}

			rawItems, ok := envelope[itemsKey]
			if !ok {
				yield(nil, fmt.Errorf("paginator: envelope from %s missing items key %q", endpoint, itemsKey))
				return
			}
			items, ok := rawItems.([]any)
			if !ok {
				yield(nil, fmt.Errorf("paginator: items key %q in %s is %T, not an array", itemsKey, endpoint, rawItems))
				return
			}

			p.logger.Debug().
				Str("endpoint", endpoint).
				Int("offset", offset).
				Int("items", len(items)).
				Msg("Fetched page")

			for _, raw := range items {
				item, ok := raw.(map[string]any)
				if !ok {
					yield(nil, fmt.Errorf("paginator: item in %s is %T, not an object", endpoint, raw))
					return
				}
				if !yield(item, nil) {
					return
				}
			}

			if len(items) < p.pageSize {
				return
			}
			if !hasNextPage(envelope) {
				return
			}
			offset += len(items)
		}
	}
}

// Collect gathers all items eagerly.
func (p *Pager) Collect(ctx context.Context, endpoint string, params url.Values, itemsKey string) ([]map[string]any, error) {
	var items []map[string]any
	for item, err := range p.Items(ctx, endpoint, params, itemsKey) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// hasNextPage inspects page_meta for an explicit no-more-pages signal.
// Absent or malformed metadata is not treated as a stop signal; the
// fewer-than-limit check remains authoritative.
func hasNextPage(envelope map[string]any) bool {
	meta, ok := envelope[pageMetaKey].(map[string]any)
	if !ok {
		return true
	}
	next, present := meta["next"]
	if !present {
		return true
	}
	return next != nil
}

func clone(params url.Values) url.Values {
	out := make(url.Values, len(params)+2)
	for k, vs := range params {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
