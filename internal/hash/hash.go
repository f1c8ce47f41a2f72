// Package hash implements the Content Hasher (§4.B): a stable, non-
// cryptographic fingerprint of an archive path key plus its requested
// extraction pattern. Collisions only ever cause a cache miss — the
// Extraction Engine always re-checks file size and mtime before honoring
// a hit — so xxhash's speed is worth more here than cryptographic
// strength.
package hash

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the opaque 20-byte value returned by Sum.
type Fingerprint [20]byte

// SortPattern returns a new sorted, lowercased copy of an extraction
// pattern (a list of file extensions), the canonical form stored in a
// Cache Record and compared against on every needs_extraction check.
func SortPattern(pattern []string) []string {
	sorted := make([]string, len(pattern))
	for i, p := range pattern {
		sorted[i] = strings.ToLower(strings.TrimPrefix(p, "."))
	}
	sort.Strings(sorted)
	return sorted
}

// Sum computes a deterministic fingerprint of an archive key and its
// extraction pattern. The pattern is sorted internally, so callers need
// not pre-sort it.
func Sum(archiveKey string, pattern []string) Fingerprint {
	joined := strings.Join(SortPattern(pattern), ",")
	input := archiveKey + "\x00" + joined

	var out Fingerprint
	h1 := xxhash.Sum64String(input)
	h2 := xxhash.Sum64String(input + "\x01")
	h3 := xxhash.Sum64String(input + "\x02")

	binary.BigEndian.PutUint64(out[0:8], h1)
	binary.BigEndian.PutUint64(out[8:16], h2)
	binary.BigEndian.PutUint32(out[16:20], uint32(h3))
	return out
}
