// Package glob implements the Extraction Engine's pattern matcher (§4.E.1):
// a minimal glob grammar over normalized forward-slash paths, layered on
// doublestar the same way the rest of the corpus reaches for it for
// include/exclude filtering rather than hand-rolling path matching.
package glob

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a precompiled filter. Malformed patterns never fail to
// compile — they fall back to substring matching at Match time — a
// filter that degrades rather than aborts extraction.
type Pattern struct {
	raw        string
	expanded   []string // brace-expanded alternatives, doublestar-ready
	compileErr bool
}

// Compile precompiles pattern, expanding `{a,b,c}` brace alternatives into
// the union of patterns they represent.
func Compile(pattern string) *Pattern {
	p := &Pattern{raw: pattern}
	alts, err := expandBraces(pattern)
	if err != nil {
		p.compileErr = true
		return p
	}
	for _, a := range alts {
		if !doublestar.ValidatePattern(a) {
			p.compileErr = true
			return p
		}
	}
	p.expanded = alts
	return p
}

// Match reports whether path (already forward-slash normalized) matches
// the pattern. A compile-time-malformed pattern falls back to a
// case-insensitive substring match, per §4.E.1.
func (p *Pattern) Match(path string) bool {
	if p == nil {
		return false
	}
	if p.compileErr {
		return strings.Contains(strings.ToLower(path), strings.ToLower(p.raw))
	}
	for _, alt := range p.expanded {
		if ok, err := doublestar.Match(alt, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Warning returns a non-empty diagnostic when the pattern fell back to
// substring matching, for the caller to surface as a PatternWarning.
func (p *Pattern) Warning() string {
	if p == nil || !p.compileErr {
		return ""
	}
	return fmt.Sprintf("malformed glob pattern %q: falling back to substring match", p.raw)
}

// CompileSet compiles every pattern in patterns, returning the compiled
// patterns in the same order. A set matches a path when any member
// matches (MatchAny).
func CompileSet(patterns []string) []*Pattern {
	out := make([]*Pattern, len(patterns))
	for i, pat := range patterns {
		out[i] = Compile(pat)
	}
	return out
}

// MatchAny reports whether path matches any pattern in the set.
func MatchAny(patterns []*Pattern, path string) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// ExtensionPatterns converts a bare extension list (e.g. {"cpp","hpp"})
// into the doublestar-compatible glob form ("**/*.cpp") the Extraction
// Engine's default extraction pattern is expressed in (§6.F).
func ExtensionPatterns(extensions []string) []string {
	out := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.TrimPrefix(strings.ToLower(ext), ".")
		out[i] = "**/*." + ext
	}
	return out
}

// expandBraces expands a single level of `{a,b,c}` alternation into the
// set of patterns produced by substituting each trimmed alternative into
// the enclosing context. Unbalanced braces are reported as an error so
// Compile can fall back to substring matching.
func expandBraces(pattern string) ([]string, error) {
	open := strings.IndexByte(pattern, '{')
	if open < 0 {
		return []string{pattern}, nil
	}
	closeIdx := strings.IndexByte(pattern[open:], '}')
	if closeIdx < 0 {
		return nil, errUnbalancedBrace
	}
	closeIdx += open

	prefix := pattern[:open]
	suffix := pattern[closeIdx+1:]
	alternatives := strings.Split(pattern[open+1:closeIdx], ",")

	var out []string
	for _, alt := range alternatives {
		combined := prefix + strings.TrimSpace(alt) + suffix
		rest, err := expandBraces(combined)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

var errUnbalancedBrace = &globError{"unbalanced brace in pattern"}

type globError struct{ msg string }

func (e *globError) Error() string { return e.msg }
