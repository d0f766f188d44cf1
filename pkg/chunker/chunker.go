// Package chunker splits ordered identifier lists into chunks that satisfy
// both a maximum count ceiling and an encoded-URL-length budget, computed
// incrementally as identifiers are appended.
package chunker

import (
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/bioetl/chembl-extract/pkg/descriptor"
)

// escapedCommaLen is the encoded length of the comma joining identifiers in
// the filter value ("," escapes to "%2C").
const escapedCommaLen = len("%2C")

// Chunker plans identifier chunks for one entity descriptor and field
// selection. It holds no state across Chunks calls.
type Chunker struct {
	ceiling   int
	enforce   bool
	maxURLLen int

	// baseLen is the encoded length of the query string without any
	// identifiers: the field-selection parameter plus the filter
	// parameter name and "=".
	baseLen int
}

// New creates a chunker for the given descriptor and requested fields.
// When the descriptor enforces the URL-length budget a positive maxURLLen is
// required; a violation is a setup defect and fails immediately.
func New(d descriptor.Descriptor, fields []string, maxURLLen int) (*Chunker, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.URLLengthEnforced && maxURLLen <= 0 {
		return nil, fmt.Errorf("chunker: descriptor %q enforces URL length but no max URL length supplied", d.Name)
	}

	base := len(d.FilterParam) + len("=")
	if len(fields) > 0 {
		v := url.Values{}
		v.Set("only", strings.Join(fields, ","))
		base += len("&") + len(v.Encode())
	}

	return &Chunker{
		ceiling:   d.ChunkSizeCeiling,
		enforce:   d.URLLengthEnforced,
		maxURLLen: maxURLLen,
		baseLen:   base,
	}, nil
}

// Chunks lazily yields chunks of the given identifiers in input order. The
// sequence is a single pass over the input; do not range over it twice with
// the expectation of independent state. Empty input yields no chunks.
//
// A single identifier whose encoded length alone exceeds the URL budget is
// still yielded in its own chunk: identifiers are isolated, never dropped.
func (c *Chunker) Chunks(ids []string) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		var (
			buf    []string
			escLen int
		)

		for _, id := range ids {
			esc := len(url.QueryEscape(id))

			if len(buf) > 0 {
				wouldBe := c.baseLen + escLen + escapedCommaLen + esc
				if len(buf) >= c.ceiling || (c.enforce && wouldBe > c.maxURLLen) {
					if !yield(buf) {
						return
					}
					buf = nil
					escLen = 0
				}
			}

			if len(buf) > 0 {
				escLen += escapedCommaLen
			}
			buf = append(buf, id)
			escLen += esc
		}

		if len(buf) > 0 {
			yield(buf)
		}
	}
}

// EncodedQueryLen returns the encoded query length the given chunk would
// produce, using the same accounting as Chunks. Exposed for tests and for
// callers that want to audit the budget.
func (c *Chunker) EncodedQueryLen(chunk []string) int {
	n := c.baseLen
	for i, id := range chunk {
		if i > 0 {
			n += escapedCommaLen
		}
		n += len(url.QueryEscape(id))
	}
	return n
}
