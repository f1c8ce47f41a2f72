package classlang

import (
	"strconv"
	"strings"

	"github.com/standardbeagle/a3scan/internal/errors"
	"github.com/standardbeagle/a3scan/internal/preprocess"
)

// Result is the Config Parser's output: every Class Record seen, in
// declaration order, plus accumulated warnings (§4.G).
type Result struct {
	Records     []Record
	Diagnostics []errors.ParseDiagnostic
}

type parser struct {
	tokens     []token
	pos        int
	origins    []preprocess.Origin
	sourceFile string
	diags      []errors.ParseDiagnostic
	out        []Record
}

// Parse consumes preprocessed text and its origin map, producing the
// Config Parser's Result (§4.G).
func Parse(text string, origins []preprocess.Origin, sourceFile string) Result {
	lx := newLexer(text)
	var toks []token
	for {
		t := lx.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}

	p := &parser{tokens: toks, origins: origins, sourceFile: sourceFile}
	p.parseClassBody("", 0)

	return Result{Records: p.out, Diagnostics: p.diags}
}

func (p *parser) peek() token  { return p.tokens[p.pos] }
func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) origin(line int) (string, int) {
	idx := line - 1
	if idx >= 0 && idx < len(p.origins) {
		o := p.origins[idx]
		return o.File, o.Line
	}
	return p.sourceFile, line
}

func (p *parser) errorf(line int, format string) {
	file, origLine := p.origin(line)
	p.diags = append(p.diags, errors.ParseDiagnostic{
		Severity: errors.SeverityError,
		Message:  format,
		File:     file,
		Line:     origLine,
	})
}

// parseClassBody parses `(class-decl | property-decl | ';')*` until a
// closing brace or EOF, attributing every record found to container.
func (p *parser) parseClassBody(container string, depth int) {
	for {
		switch p.peek().kind {
		case tokEOF, tokRBrace:
			return
		case tokSemi:
			p.advance()
			continue
		case tokIdent:
			if p.peek().text == "class" {
				p.parseClassDecl(container, depth)
				continue
			}
			p.parsePropertyDecl(container)
			continue
		default:
			p.errorf(p.peek().line, "unexpected token in class body")
			p.recover()
		}
	}
}

func (p *parser) parseClassDecl(container string, depth int) {
	startLine := p.peek().line
	p.advance() // 'class'

	if p.peek().kind != tokIdent {
		p.errorf(startLine, "expected class name after 'class'")
		p.recover()
		return
	}
	name := p.advance().text

	rec := Record{Name: name, Container: container, SourceFile: p.sourceFile, Line: startLine}

	if p.peek().kind == tokColon {
		p.advance()
		if p.peek().kind != tokIdent {
			p.errorf(p.peek().line, "expected parent class name after ':'")
			p.recover()
			return
		}
		rec.Parent = p.advance().text
	}

	if p.peek().kind == tokLBrace {
		p.advance()
		idx := len(p.out)
		p.out = append(p.out, rec) // attachProperty fills in its properties while the body is parsed
		p.parseClassBody(qualify(container, name), depth+1)
		if p.peek().kind != tokRBrace {
			p.errorf(p.peek().line, "expected '}' to close class body")
			p.recover()
			return
		}
		p.advance()
		if p.peek().kind == tokSemi {
			p.advance()
		} else {
			p.errorf(p.peek().line, "expected ';' after class body")
		}
		_ = idx
		return
	}

	// Forward declaration: `class Foo;` with no body.
	rec.ForwardDecl = true
	p.out = append(p.out, rec)

	if p.peek().kind == tokSemi {
		p.advance()
	} else {
		p.errorf(p.peek().line, "expected ';' after forward declaration")
		p.recover()
	}
}

func qualify(container, name string) string {
	if container == "" {
		return name
	}
	return container + "/" + name
}

func (p *parser) parsePropertyDecl(container string) {
	startLine := p.peek().line
	name := p.advance().text

	isArray := false
	if p.peek().kind == tokLBracket {
		p.advance()
		if p.peek().kind != tokRBracket {
			p.errorf(p.peek().line, "expected ']' in array property declaration")
			p.recover()
			return
		}
		p.advance()
		isArray = true
	}

	if p.peek().kind != tokEquals {
		p.errorf(p.peek().line, "expected '=' in property declaration")
		p.recover()
		return
	}
	p.advance()

	val := p.parseValue()

	if p.peek().kind == tokSemi {
		p.advance()
	} else {
		p.errorf(p.peek().line, "expected ';' after property value")
		p.recover()
	}

	p.attachProperty(container, Property{Name: name, Value: val, IsArray: isArray, Line: startLine})
}

// attachProperty appends prop to the most recently opened Record whose
// qualified name equals container, since nested class bodies are parsed
// before their own closing brace is consumed.
func (p *parser) attachProperty(container string, prop Property) {
	for i := len(p.out) - 1; i >= 0; i-- {
		if qualify(p.out[i].Container, p.out[i].Name) == container {
			p.out[i].Properties = append(p.out[i].Properties, prop)
			return
		}
	}
	// Top-level property with no enclosing class (rare but tolerated):
	// attribute it to a synthetic top-level record so it isn't lost.
	if container == "" {
		p.out = append(p.out, Record{Name: "", Properties: []Property{prop}})
	}
}

func (p *parser) parseValue() Value {
	switch p.peek().kind {
	case tokString:
		return Value{Kind: ValueString, Str: p.advance().text}
	case tokNumber:
		text := p.advance().text
		if isIntegerLiteral(text) {
			n, err := strconv.ParseInt(text, 10, 64)
			if err == nil {
				return Value{Kind: ValueInt, Int: n}
			}
		}
		f, _ := strconv.ParseFloat(text, 64)
		return Value{Kind: ValueFloat, Float: f}
	case tokIdent:
		name := p.advance().text
		if name == "class" {
			// Inline nested class-as-value: parse it, drop it into the
			// record table under a synthetic container, and surface a
			// class-name reference value pointing at it.
			p.pos--
			p.parseClassDecl("", 0)
			return Value{Kind: ValueClassRef, Str: p.out[len(p.out)-1].Name}
		}
		return Value{Kind: ValueClassRef, Str: name}
	case tokLBrace:
		return p.parseArray()
	default:
		p.errorf(p.peek().line, "expected a value")
		return Value{Kind: ValueRawMacro, Str: ""}
	}
}

func (p *parser) parseArray() Value {
	p.advance() // '{'
	var items []Value
	for p.peek().kind != tokRBrace && p.peek().kind != tokEOF {
		items = append(items, p.parseValue())
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if p.peek().kind == tokRBrace {
		p.advance()
	} else {
		p.errorf(p.peek().line, "expected '}' to close array")
	}
	return Value{Kind: ValueArray, Array: items}
}

func isIntegerLiteral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

// recover implements the error policy in §4.G: truncate the current
// declaration and resume at the next ';' at brace depth zero relative to
// where recovery started.
func (p *parser) recover() {
	depth := 0
	for {
		t := p.peek()
		switch t.kind {
		case tokEOF:
			return
		case tokLBrace:
			depth++
			p.advance()
		case tokRBrace:
			if depth == 0 {
				return
			}
			depth--
			p.advance()
		case tokSemi:
			p.advance()
			if depth == 0 {
				return
			}
		default:
			p.advance()
		}
	}
}
