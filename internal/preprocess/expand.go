package preprocess

import "strings"

// maxExpansionPasses bounds macro recursion; a macro that expands to
// itself (directly or through a cycle) stops growing rather than
// looping forever.
const maxExpansionPasses = 32

// expandMacros performs whole-identifier substitution of every macro
// known at this point in the file, repeatedly until a pass makes no
// further change or the pass ceiling is hit.
func (p *preprocessor) expandMacros(line string) string {
	out := line
	for i := 0; i < maxExpansionPasses; i++ {
		next, changed := p.expandOnePass(out)
		if !changed {
			return next
		}
		out = next
	}
	return out
}

func (p *preprocessor) expandOnePass(line string) (string, bool) {
	var b strings.Builder
	changed := false
	i := 0
	for i < len(line) {
		c := line[i]
		if !isIdentStart(c) {
			b.WriteByte(c)
			i++
			continue
		}

		j := i
		for j < len(line) && isIdentChar(line[j]) {
			j++
		}
		name := line[i:j]

		def, ok := p.macros[name]
		if !ok {
			b.WriteString(name)
			i = j
			continue
		}

		if def.isFnLike {
			k := j
			for k < len(line) && (line[k] == ' ' || line[k] == '\t') {
				k++
			}
			if k >= len(line) || line[k] != '(' {
				// Function-like macro used without a call: leave as-is.
				b.WriteString(name)
				i = j
				continue
			}
			args, after, ok := parseArgs(line, k)
			if !ok {
				b.WriteString(name)
				i = j
				continue
			}
			expansion := expandFunctionLike(def, args)
			b.WriteString(expansion)
			i = after
			changed = true
			continue
		}

		b.WriteString(def.body)
		i = j
		changed = true
	}
	return b.String(), changed
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseArgs parses a balanced-paren argument list starting at
// line[openParenIdx] == '('. Returns the split arguments, the index
// just past the closing paren, and whether parsing succeeded.
func parseArgs(line string, openParenIdx int) ([]string, int, bool) {
	depth := 0
	start := openParenIdx + 1
	var args []string
	argStart := start

	for i := openParenIdx; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				args = append(args, line[argStart:i])
				return trimArgs(args), i + 1, true
			}
		case ',':
			if depth == 1 {
				args = append(args, line[argStart:i])
				argStart = i + 1
			}
		}
	}
	return nil, 0, false
}

func trimArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.TrimSpace(a)
	}
	return out
}

// expandFunctionLike substitutes def's parameters into its body,
// honoring `#param` (stringize) and `a ## b` (token concatenation)
// before returning the raw replacement text for the caller's identifier
// occurrence.
func expandFunctionLike(def macroDef, args []string) string {
	argByParam := make(map[string]string, len(def.params))
	for i, p := range def.params {
		if i < len(args) {
			argByParam[p] = args[i]
		} else {
			argByParam[p] = ""
		}
	}

	body := def.body

	// Stringize: `#param` -> `"arg"`.
	var stringized strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '#' && i+1 < len(body) && body[i+1] == '#' {
			stringized.WriteString("##")
			i++
			continue
		}
		if body[i] == '#' {
			j := i + 1
			for j < len(body) && isIdentChar(body[j]) {
				j++
			}
			name := body[i+1 : j]
			if val, ok := argByParam[name]; ok {
				stringized.WriteString(`"` + val + `"`)
				i = j - 1
				continue
			}
		}
		stringized.WriteByte(body[i])
	}
	body = stringized.String()

	// Parameter substitution (whole-word).
	body = substituteWholeWords(body, argByParam)

	// Concatenate: `a ## b` -> `ab`, with surrounding whitespace removed.
	body = strings.ReplaceAll(body, " ## ", "")
	body = strings.ReplaceAll(body, "##", "")

	return body
}

func substituteWholeWords(s string, replacements map[string]string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if !isIdentStart(s[i]) {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && isIdentChar(s[j]) {
			j++
		}
		word := s[i:j]
		if repl, ok := replacements[word]; ok {
			b.WriteString(repl)
		} else {
			b.WriteString(word)
		}
		i = j
	}
	return b.String()
}
