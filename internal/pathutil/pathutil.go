// Package pathutil implements the Path Normalizer (§4.A): the single
// deterministic transform every other subsystem relies on to turn a
// filesystem path into a stable cache key.
package pathutil

import "strings"

// Normalize converts backslashes to forward slashes and lowercases the
// result per ASCII. It does no unicode case folding, and non-ASCII bytes
// pass through unchanged — two paths that differ only in non-ASCII
// casing are NOT considered equal.
//
// Normalize is idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(path string) string {
	b := []byte(strings.ReplaceAll(path, `\`, "/"))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Key is a normalized path used as a lookup key throughout the cache and
// class stores. It exists as a distinct type so callers can't accidentally
// pass an un-normalized path where a Key is expected.
type Key string

// NewKey normalizes path and wraps it as a Key.
func NewKey(path string) Key {
	return Key(Normalize(path))
}
