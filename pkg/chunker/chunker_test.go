package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bioetl/chembl-extract/pkg/descriptor"
)

func testDescriptor(ceiling int, enforce bool) descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:              "molecule",
		Endpoint:          "/molecule.json",
		FilterParam:       "molecule_chembl_id__in",
		ItemsKey:          "molecules",
		IDField:           "molecule_chembl_id",
		ChunkSizeCeiling:  ceiling,
		URLLengthEnforced: enforce,
	}
}

func collect(c *Chunker, ids []string) [][]string {
	var chunks [][]string
	for chunk := range c.Chunks(ids) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestNew_RequiresURLBudgetWhenEnforced(t *testing.T) {
	if _, err := New(testDescriptor(10, true), nil, 0); err == nil {
		t.Error("New() should fail when URL length is enforced without a budget")
	}
	if _, err := New(testDescriptor(10, false), nil, 0); err != nil {
		t.Errorf("New() = %v, want nil when URL length is not enforced", err)
	}
}

func TestNew_InvalidDescriptor(t *testing.T) {
	d := testDescriptor(0, false)
	if _, err := New(d, nil, 0); err == nil {
		t.Error("New() should reject a descriptor with zero chunk ceiling")
	}
}

func TestChunks_EmptyInput(t *testing.T) {
	c, err := New(testDescriptor(10, false), nil, 0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if chunks := collect(c, nil); len(chunks) != 0 {
		t.Errorf("Expected zero chunks for empty input, got %d", len(chunks))
	}
}

func TestChunks_CountCeiling(t *testing.T) {
	c, err := New(testDescriptor(2, false), nil, 0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	chunks := collect(c, []string{"A1", "A2", "A3", "A4", "A5"})

	want := [][]string{{"A1", "A2"}, {"A3", "A4"}, {"A5"}}
	if len(chunks) != len(want) {
		t.Fatalf("Got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if strings.Join(chunks[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("Chunk %d = %v, want %v", i, chunks[i], want[i])
		}
	}
}

func TestChunks_PreservesInputOrder(t *testing.T) {
	c, err := New(testDescriptor(3, false), nil, 0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ids := []string{"Z9", "A1", "M5", "B2"}
	var flattened []string
	for _, chunk := range collect(c, ids) {
		flattened = append(flattened, chunk...)
	}

	if strings.Join(flattened, ",") != strings.Join(ids, ",") {
		t.Errorf("Flattened chunks = %v, want input order %v", flattened, ids)
	}
}

func TestChunks_URLBudgetRespected(t *testing.T) {
	// Generate identifiers long enough that the URL budget, not the count
	// ceiling, drives the chunk boundaries.
	var ids []string
	for i := 0; i < 60; i++ {
		ids = append(ids, fmt.Sprintf("CHEMBL%07d", i))
	}

	const maxURLLen = 300
	c, err := New(testDescriptor(1000, true), []string{"molecule_chembl_id", "pref_name"}, maxURLLen)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	chunks := collect(c, ids)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks under a %d-char budget, got %d", maxURLLen, len(chunks))
	}

	var total int
	for i, chunk := range chunks {
		total += len(chunk)
		if len(chunk) == 1 {
			continue // singletons are exempt from the budget
		}
		if got := c.EncodedQueryLen(chunk); got > maxURLLen {
			t.Errorf("Chunk %d encoded query length %d exceeds budget %d", i, got, maxURLLen)
		}
	}
	if total != len(ids) {
		t.Errorf("Chunks cover %d identifiers, want %d", total, len(ids))
	}
}

func TestChunks_OversizeIdentifierIsolated(t *testing.T) {
	huge := strings.Repeat("X", 500)
	c, err := New(testDescriptor(100, true), nil, 100)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	chunks := collect(c, []string{"A1", huge, "A2"})

	// The oversize identifier must land alone in its own chunk, never be
	// dropped or truncated.
	if len(chunks) != 3 {
		t.Fatalf("Got %d chunks, want 3: %v", len(chunks), chunkSizes(chunks))
	}
	if len(chunks[1]) != 1 || chunks[1][0] != huge {
		t.Errorf("Oversize identifier not isolated in its own chunk")
	}
}

func TestChunks_SingleChunkWhenUnderBudget(t *testing.T) {
	c, err := New(testDescriptor(100, true), nil, 4000)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	chunks := collect(c, []string{"CHEMBL25", "CHEMBL192", "CHEMBL941"})
	if len(chunks) != 1 {
		t.Errorf("Got %d chunks, want 1", len(chunks))
	}
}

func TestEncodedQueryLen_MatchesEncoding(t *testing.T) {
	c, err := New(testDescriptor(100, true), nil, 4000)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// "," escapes to "%2C": two ids of 8 chars plus one separator plus
	// "molecule_chembl_id__in=".
	got := c.EncodedQueryLen([]string{"CHEMBL25", "CHEMBL26"})
	want := len("molecule_chembl_id__in=") + 8 + len("%2C") + 8
	if got != want {
		t.Errorf("EncodedQueryLen = %d, want %d", got, want)
	}
}

func chunkSizes(chunks [][]string) []int {
	sizes := make([]int, len(chunks))
	for i, c := range chunks {
		sizes[i] = len(c)
	}
	return sizes
}
