package depscan

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// callPattern matches `verbName arg1...` and `verbName [...]` call forms
// found in SQF scripts: a bare identifier, whitespace, then either a
// quoted string, a bracketed array, or a variable reference.
var callPattern = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_]*)\s+(\[[^\]]*\]|"[^"]*"|'[^']*'|_[A-Za-z0-9_]*)`)

// privateArrayPattern matches `private _var = [ ... ]` bindings so a
// variable-reference call argument can be resolved back to its literal
// contents.
var privateArrayPattern = regexp.MustCompile(`(?i)private\s+(_[A-Za-z0-9_]*)\s*=\s*\[([^\]]*)\]`)

var stringLiteralPattern = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)

// ScanSQF scans one .sqf script for equipment-assignment verb calls
// (§4.I) and returns the references found.
func ScanSQF(path string) ([]Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)

	// Build the private-array binding table for this file up front so a
	// call can reference a binding defined either above or below it —
	// SQF has no forward-declaration requirement for locals.
	bindings := make(map[string][]string)
	for _, m := range privateArrayPattern.FindAllStringSubmatch(text, -1) {
		bindings[strings.ToLower(m[1])] = extractStringLiterals(m[2])
	}

	var refs []Reference
	lineOf := newLineIndex(text)

	for _, m := range callPattern.FindAllStringSubmatchIndex(text, -1) {
		verb := text[m[2]:m[3]]
		arg := text[m[4]:m[5]]
		line := lineOf(m[0])

		switch {
		case equalsFold(verb, equipmentVerbs):
			for _, id := range argIdentifiers(arg, bindings) {
				refs = append(refs, Reference{
					Identifier: id,
					SourceFile: path,
					Line:       line,
					Kind:       KindDirectUsage,
					Context:    "Verb call: " + verb,
				})
			}
		case equalsFold(verb, containerInitVerbs):
			for _, id := range argIdentifiers(arg, bindings) {
				refs = append(refs, Reference{
					Identifier: id,
					SourceFile: path,
					Line:       line,
					Kind:       KindDirectUsage,
					Context:    "Container init: " + verb,
				})
			}
		}
	}

	return refs, nil
}

// equalsFold reports whether verb matches a key in roster under
// case-insensitive comparison; SQF identifiers are case-insensitive.
func equalsFold(verb string, roster map[string]bool) bool {
	for k := range roster {
		if strings.EqualFold(k, verb) {
			return true
		}
	}
	return false
}

// argIdentifiers resolves a call argument to the equipment identifiers
// it denotes: a quoted literal yields itself, a bracketed array yields
// every string literal inside it, and a bare variable reference walks
// back to its private-array binding (§4.I).
func argIdentifiers(arg string, bindings map[string][]string) []string {
	arg = strings.TrimSpace(arg)
	switch {
	case strings.HasPrefix(arg, "["):
		inner := strings.TrimSuffix(strings.TrimPrefix(arg, "["), "]")
		return extractStringLiterals(inner)
	case strings.HasPrefix(arg, `"`) || strings.HasPrefix(arg, "'"):
		return extractStringLiterals(arg)
	case strings.HasPrefix(arg, "_"):
		if ids, ok := bindings[strings.ToLower(arg)]; ok {
			return ids
		}
		return nil
	default:
		return nil
	}
}

func extractStringLiterals(s string) []string {
	var out []string
	for _, m := range stringLiteralPattern.FindAllStringSubmatch(s, -1) {
		if m[1] != "" || (len(m) > 2 && m[2] != "") {
			val := m[1]
			if val == "" {
				val = m[2]
			}
			if looksLikeClassName(val) {
				out = append(out, val)
			}
		}
	}
	return out
}

// looksLikeClassName rejects strings that are clearly not equipment
// class identifiers: containing spaces, empty, or carrying characters
// outside alphanumeric/underscore.
func looksLikeClassName(s string) bool {
	if s == "" || strings.Contains(s, " ") {
		return false
	}
	for _, c := range s {
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// newLineIndex returns a function mapping a byte offset in text to its
// 1-based line number, built once per file to keep per-match lookups
// cheap on large scripts.
func newLineIndex(text string) func(offset int) int {
	offsets := []int{0}
	scanner := bufio.NewScanner(strings.NewReader(text))
	pos := 0
	for scanner.Scan() {
		pos += len(scanner.Text()) + 1
		offsets = append(offsets, pos)
	}
	return func(offset int) int {
		lo, hi := 0, len(offsets)-1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if offsets[mid] <= offset {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo + 1
	}
}
