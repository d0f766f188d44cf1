package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"
)

// unknownRelease is the directory partition used when no release tag is set.
const unknownRelease = "unknown"

// Key identifies one cached chunk: entity namespace, data release, and the
// identifier set of the chunk.
type Key struct {
	// Entity is the entity type name (cache namespace).
	Entity string

	// Release is the data release tag. Empty maps to the "unknown"
	// partition; a release change therefore never serves stale entries.
	Release string

	// Identifiers is the chunk's identifier set. Order does not affect
	// the fingerprint.
	Identifiers []string
}

// Fingerprint returns the stable batch fingerprint: a truncated SHA-256 over
// the sorted identifier set. Not used for security, only for collision-free
// file naming.
func (k Key) Fingerprint() string {
	sorted := append([]string(nil), k.Identifiers...)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])[:16]
}

// Path returns the cache file path under root:
// <root>/<entity>/<release or "unknown">/<fingerprint>.json
func (k Key) Path(root string) string {
	release := k.Release
	if release == "" {
		release = unknownRelease
	}
	return filepath.Join(root, k.Entity, release, k.Fingerprint()+".json")
}
