package preprocess

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/a3scan/internal/errors"
)

// maxIncludeDepth guards against include cycles; the grammar has no
// legitimate use for deep nesting, so a generous ceiling is enough to
// turn a cycle into a diagnostic instead of a stack overflow.
const maxIncludeDepth = 64

type macroDef struct {
	params   []string // nil for an object-like macro
	body     string
	isFnLike bool
}

type preprocessor struct {
	ws     Workspace
	macros map[string]macroDef

	lines   []string
	origins []Origin
	diags   []errors.ParseDiagnostic
}

// Preprocess flattens path and everything it transitively includes into
// one logical text stream (§4.F).
func Preprocess(path string, ws Workspace) (Result, error) {
	p := &preprocessor{ws: ws, macros: make(map[string]macroDef)}
	if err := p.process(path, 0); err != nil {
		return Result{}, err
	}
	return Result{
		Text:        strings.Join(p.lines, "\n"),
		Origins:     p.origins,
		Diagnostics: p.diags,
	}, nil
}

// condFrame tracks one level of #if/#ifdef/#ifndef nesting: whether this
// branch is currently emitting output, and whether any branch in this
// frame has already been taken (so a later #else knows whether to fire).
type condFrame struct {
	active      bool
	branchTaken bool
}

func (p *preprocessor) process(path string, depth int) error {
	if depth > maxIncludeDepth {
		p.warn(errors.KindParseWarning, errors.SeverityWarning, CodeIncludeNotFound,
			fmt.Sprintf("include depth exceeded at %s, likely a cycle", path), path, 0)
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var stack []condFrame
	lineNo := 0

	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		active := allActive(stack)

		if strings.HasPrefix(trimmed, "#") {
			directive := strings.TrimSpace(trimmed[1:])
			switch {
			case startsWith(directive, "include"):
				if !active {
					continue
				}
				if err := p.handleInclude(directive, path, lineNo, depth); err != nil {
					return err
				}
				continue
			case startsWith(directive, "ifdef"):
				name := strings.TrimSpace(directive[len("ifdef"):])
				_, defined := p.macros[name]
				stack = append(stack, condFrame{active: defined, branchTaken: defined})
				continue
			case startsWith(directive, "ifndef"):
				name := strings.TrimSpace(directive[len("ifndef"):])
				_, defined := p.macros[name]
				stack = append(stack, condFrame{active: !defined, branchTaken: !defined})
				continue
			case startsWith(directive, "if"):
				cond := evalIfCondition(strings.TrimSpace(directive[len("if"):]), p.macros)
				stack = append(stack, condFrame{active: cond, branchTaken: cond})
				continue
			case directive == "else":
				if len(stack) > 0 {
					top := &stack[len(stack)-1]
					top.active = !top.branchTaken
					top.branchTaken = true
				}
				continue
			case directive == "endif":
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				continue
			case startsWith(directive, "define"):
				if !active {
					continue
				}
				p.handleDefine(directive, path, lineNo)
				continue
			case startsWith(directive, "undef"):
				if !active {
					continue
				}
				name := strings.TrimSpace(directive[len("undef"):])
				delete(p.macros, name)
				continue
			default:
				// Unknown directive: pass through unexpanded rather than
				// guessing at its meaning.
			}
		}

		if !active {
			continue
		}

		expanded := p.expandMacros(line)
		p.lines = append(p.lines, expanded)
		p.origins = append(p.origins, Origin{File: path, Line: lineNo})
	}

	return scanner.Err()
}

func allActive(stack []condFrame) bool {
	for _, f := range stack {
		if !f.active {
			return false
		}
	}
	return true
}

func startsWith(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	rest := s[len(prefix):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '('
}

// evalIfCondition handles the only arithmetic-free forms supported:
// `defined(X)` and its negation.
func evalIfCondition(cond string, macros map[string]macroDef) bool {
	negate := false
	cond = strings.TrimSpace(cond)
	if strings.HasPrefix(cond, "!") {
		negate = true
		cond = strings.TrimSpace(cond[1:])
	}
	if strings.HasPrefix(cond, "defined(") && strings.HasSuffix(cond, ")") {
		name := strings.TrimSpace(cond[len("defined(") : len(cond)-1])
		_, ok := macros[name]
		if negate {
			return !ok
		}
		return ok
	}
	// Bare identifier: treat like #ifdef.
	_, ok := macros[cond]
	if negate {
		return !ok
	}
	return ok
}

func (p *preprocessor) handleInclude(directive, fromFile string, fromLine, depth int) error {
	rest := strings.TrimSpace(directive[len("include"):])
	var target string
	var system bool
	switch {
	case strings.HasPrefix(rest, `"`):
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			p.warn(errors.KindParseWarning, errors.SeverityWarning, CodeIncludeNotFound,
				"malformed include directive", fromFile, fromLine)
			return nil
		}
		target = rest[1 : end+1]
	case strings.HasPrefix(rest, "<"):
		end := strings.Index(rest, ">")
		if end < 0 {
			p.warn(errors.KindParseWarning, errors.SeverityWarning, CodeIncludeNotFound,
				"malformed include directive", fromFile, fromLine)
			return nil
		}
		target = rest[1:end]
		system = true
	default:
		p.warn(errors.KindParseWarning, errors.SeverityWarning, CodeIncludeNotFound,
			"malformed include directive", fromFile, fromLine)
		return nil
	}

	resolved := p.resolveInclude(target, fromFile, system)
	if resolved == "" {
		p.warn(errors.KindParseWarning, errors.SeverityWarning, CodeIncludeNotFound,
			fmt.Sprintf("include not found: %s", target), fromFile, fromLine)
		return nil
	}

	return p.process(resolved, depth+1)
}

func (p *preprocessor) resolveInclude(target, fromFile string, system bool) string {
	candidates := make([]string, 0, len(p.ws.SearchRoots)+1)
	candidates = append(candidates, filepath.Join(filepath.Dir(fromFile), target))
	for _, root := range p.ws.SearchRoots {
		candidates = append(candidates, filepath.Join(root, target))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func (p *preprocessor) handleDefine(directive, file string, line int) {
	rest := strings.TrimSpace(directive[len("define"):])
	if rest == "" {
		return
	}

	name, paramsPart, hasParen := splitDefineHead(rest)
	if name == "" {
		return
	}

	var def macroDef
	if hasParen {
		params := strings.Split(paramsPart, ",")
		for i := range params {
			params[i] = strings.TrimSpace(params[i])
		}
		def = macroDef{params: params, isFnLike: true, body: strings.TrimSpace(rest[strings.Index(rest, ")")+1:])}
	} else {
		parts := strings.SplitN(rest, " ", 2)
		body := ""
		if len(parts) == 2 {
			body = strings.TrimSpace(parts[1])
		}
		def = macroDef{body: body}
	}

	if existing, ok := p.macros[name]; ok && existing.body != def.body {
		p.warn(errors.KindParseWarning, errors.SeverityWarning, CodeMacroRedefinition,
			fmt.Sprintf("macro %q redefined", name), file, line)
	}
	p.macros[name] = def
}

// splitDefineHead splits "NAME(a,b) body" into ("NAME", "a,b", true), or
// "NAME body" into ("NAME", "", false).
func splitDefineHead(rest string) (name, params string, fnLike bool) {
	i := 0
	for i < len(rest) && (isIdentChar(rest[i]) || (i == 0 && rest[i] == '_')) {
		i++
	}
	name = rest[:i]
	if i < len(rest) && rest[i] == '(' {
		end := strings.Index(rest[i:], ")")
		if end < 0 {
			return name, "", false
		}
		return name, rest[i+1 : i+end], true
	}
	return name, "", false
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (p *preprocessor) warn(kind errors.Kind, sev errors.Severity, code, msg, file string, line int) {
	p.diags = append(p.diags, errors.ParseDiagnostic{
		Code: code, Severity: sev, Message: msg, File: file, Line: line,
	})
}
