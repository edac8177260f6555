package scss

import (
	"strconv"
	"strings"
)

type tokKind int

const (
	tEOF tokKind = iota
	tNumber
	tColor
	tString
	tIdent
	tVar
	tFunc
	tRaw
	tOp
	tLParen
	tRParen
	tComma
	tColon
	tEllipsis
)

// part is a piece of an interpolated string or identifier: either literal
// text or the source of an embedded expression.
type part struct {
	text   string
	isExpr bool
}

type token struct {
	kind   tokKind
	text   string
	num    float64
	unit   string
	quoted bool
	parts  []part

	spaceBefore bool
	spaceAfter  bool
}

// rawFunctions keep their arguments as written, apart from interpolation.
var rawFunctions = map[string]bool{
	"calc":       true,
	"var":        true,
	"env":        true,
	"element":    true,
	"expression": true,
	"url":        true,
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		if n := len(l.toks); n > 0 {
			l.toks[n-1].spaceAfter = t.spaceBefore
		}
		l.toks = append(l.toks, t)
		if t.kind == tEOF {
			return l.toks, nil
		}
	}
}

type lexer struct {
	src  string
	i    int
	toks []token
}

func (l *lexer) peek(off int) byte {
	if l.i+off < len(l.src) {
		return l.src[l.i+off]
	}
	return 0
}

func (l *lexer) next() (token, error) {
	start := l.i
	for l.i < len(l.src) && isSpace(l.src[l.i]) {
		l.i++
	}
	t := token{spaceBefore: l.i > start}
	if l.i >= len(l.src) {
		t.kind = tEOF
		return t, nil
	}

	c := l.src[l.i]
	switch {
	case isDigit(c) || c == '.' && isDigit(l.peek(1)):
		return l.number(t)

	case c == '#' && l.peek(1) == '{':
		return l.ident(t)

	case c == '#':
		j := l.i + 1
		for j < len(l.src) && isHex(l.src[j]) {
			j++
		}
		hex := l.src[l.i+1 : j]
		if n := len(hex); n != 3 && n != 4 && n != 6 && n != 8 || j < len(l.src) && isIdentChar(l.src[j]) {
			return t, errorf(Pos{}, "invalid colour %q", l.src[l.i:j])
		}
		t.kind, t.text = tColor, l.src[l.i:j]
		l.i = j
		return t, nil

	case c == '"' || c == '\'':
		parts, err := l.quoted()
		if err != nil {
			return t, err
		}
		t.kind, t.quoted, t.parts = tString, true, parts
		return t, nil

	case c == '$':
		l.i++
		name := l.readIdentChars()
		if name == "" {
			return t, errorf(Pos{}, `expected variable name after "$"`)
		}
		t.kind, t.text = tVar, normalizeName(name)
		return t, nil

	case c == '!':
		l.i++
		name := l.readIdentChars()
		if name == "" {
			if l.peek(0) == '=' {
				l.i++
				t.kind, t.text = tOp, "!="
				return t, nil
			}
			return t, errorf(Pos{}, `unexpected "!"`)
		}
		t.kind, t.parts = tIdent, []part{{text: "!" + strings.ToLower(name)}}
		return t, nil

	case c == '(':
		l.i++
		t.kind = tLParen
		return t, nil
	case c == ')':
		l.i++
		t.kind = tRParen
		return t, nil
	case c == ',':
		l.i++
		t.kind = tComma
		return t, nil
	case c == ':':
		l.i++
		t.kind = tColon
		return t, nil
	case c == '.' && l.peek(1) == '.' && l.peek(2) == '.':
		l.i += 3
		t.kind = tEllipsis
		return t, nil

	case c == '=' && l.peek(1) == '=',
		c == '<' && l.peek(1) == '=',
		c == '>' && l.peek(1) == '=':
		t.kind, t.text = tOp, l.src[l.i:l.i+2]
		l.i += 2
		return t, nil
	case c == '<' || c == '>' || c == '+' || c == '*' || c == '/' || c == '%':
		t.kind, t.text = tOp, string(c)
		l.i++
		return t, nil

	case c == '-':
		if n := l.peek(1); isIdentStart(n) || n == '-' || n == '#' && l.peek(2) == '{' {
			return l.ident(t)
		}
		t.kind, t.text = tOp, "-"
		l.i++
		return t, nil

	case isIdentStart(c) || c == '\\':
		return l.ident(t)
	}
	return t, errorf(Pos{}, "unexpected %q", string(c))
}

func (l *lexer) number(t token) (token, error) {
	j := l.i
	for j < len(l.src) && isDigit(l.src[j]) {
		j++
	}
	if j < len(l.src) && l.src[j] == '.' && j+1 < len(l.src) && isDigit(l.src[j+1]) {
		j++
		for j < len(l.src) && isDigit(l.src[j]) {
			j++
		}
	}
	v, err := strconv.ParseFloat(l.src[l.i:j], 64)
	if err != nil {
		return t, errorf(Pos{}, "invalid number %q", l.src[l.i:j])
	}
	l.i = j

	unit := ""
	switch {
	case l.peek(0) == '%':
		unit = "%"
		l.i++
	case isLetter(l.peek(0)):
		k := l.i
		for k < len(l.src) {
			if isLetter(l.src[k]) {
				k++
				continue
			}
			if l.src[k] == '-' && k+1 < len(l.src) && isLetter(l.src[k+1]) {
				k++
				continue
			}
			break
		}
		unit = l.src[l.i:k]
		l.i = k
	}
	t.kind, t.num, t.unit = tNumber, v, unit
	return t, nil
}

// ident reads an identifier made of name characters and interpolations.
// An identifier immediately followed by "(" is a function call.
func (l *lexer) ident(t token) (token, error) {
	var parts []part
	var lit strings.Builder
	for l.i < len(l.src) {
		c := l.src[l.i]
		switch {
		case c == '#' && l.peek(1) == '{':
			if lit.Len() > 0 {
				parts = append(parts, part{text: lit.String()})
				lit.Reset()
			}
			inner, err := l.interpolation()
			if err != nil {
				return t, err
			}
			parts = append(parts, part{text: inner, isExpr: true})
			continue
		case c == '\\' && l.i+1 < len(l.src):
			lit.WriteString(l.src[l.i : l.i+2])
			l.i += 2
			continue
		case c == '-' && !l.dashContinues():
		case isIdentChar(c):
			lit.WriteByte(c)
			l.i++
			continue
		}
		break
	}
	if lit.Len() > 0 {
		parts = append(parts, part{text: lit.String()})
	}

	if l.peek(0) == '(' && len(parts) == 1 && !parts[0].isExpr {
		name := parts[0].text
		if rawFunctions[strings.ToLower(name)] && !(strings.EqualFold(name, "url") && l.urlIsExpression()) {
			return l.raw(t, name)
		}
		t.kind, t.text = tFunc, name
		return t, nil
	}
	t.kind, t.parts = tIdent, parts
	return t, nil
}

// urlIsExpression reports whether url( is followed by a quoted string or a
// variable, in which case it is evaluated like any function.
func (l *lexer) urlIsExpression() bool {
	j := l.i + 1
	for j < len(l.src) && isSpace(l.src[j]) {
		j++
	}
	return j < len(l.src) && (l.src[j] == '"' || l.src[j] == '\'' || l.src[j] == '$')
}

// raw reads name(...) verbatim, keeping interpolations as expressions.
func (l *lexer) raw(t token, name string) (token, error) {
	parts := []part{{text: name + "("}}
	var lit strings.Builder
	depth := 0
	l.i++
	for l.i < len(l.src) {
		c := l.src[l.i]
		switch {
		case c == '#' && l.peek(1) == '{':
			parts = append(parts, part{text: lit.String()})
			lit.Reset()
			inner, err := l.interpolation()
			if err != nil {
				return t, err
			}
			parts = append(parts, part{text: inner, isExpr: true})
			continue
		case c == '"' || c == '\'':
			end := strings.IndexByte(l.src[l.i+1:], c)
			if end < 0 {
				return t, errorf(Pos{}, "unterminated string")
			}
			lit.WriteString(l.src[l.i : l.i+end+2])
			l.i += end + 2
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				l.i++
				lit.WriteByte(')')
				parts = append(parts, part{text: lit.String()})
				t.kind, t.parts = tRaw, parts
				return t, nil
			}
			depth--
		}
		lit.WriteByte(c)
		l.i++
	}
	return t, errorf(Pos{}, "unterminated %s(", name)
}

// interpolation reads "#{...}" and returns the inner source.
func (l *lexer) interpolation() (string, error) {
	start := l.i + 2
	depth := 0
	for j := start; j < len(l.src); j++ {
		switch l.src[j] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				l.i = j + 1
				inner := strings.TrimSpace(l.src[start:j])
				if inner == "" {
					return "", errorf(Pos{}, "expected expression in interpolation")
				}
				return inner, nil
			}
			depth--
		case '"', '\'':
			if end := strings.IndexByte(l.src[j+1:], l.src[j]); end >= 0 {
				j += end + 1
			}
		}
	}
	return "", errorf(Pos{}, `expected "}" to close interpolation`)
}

// quoted reads a quoted string into literal and interpolated parts.
func (l *lexer) quoted() ([]part, error) {
	q := l.src[l.i]
	l.i++
	var parts []part
	var lit strings.Builder
	for l.i < len(l.src) {
		c := l.src[l.i]
		switch {
		case c == q:
			l.i++
			if lit.Len() > 0 || len(parts) == 0 {
				parts = append(parts, part{text: lit.String()})
			}
			return parts, nil
		case c == '\\' && l.i+1 < len(l.src):
			next := l.src[l.i+1]
			if next == q || next == '\\' {
				lit.WriteByte(next)
			} else if next != '\n' {
				lit.WriteString(l.src[l.i : l.i+2])
			}
			l.i += 2
		case c == '#' && l.peek(1) == '{':
			if lit.Len() > 0 {
				parts = append(parts, part{text: lit.String()})
				lit.Reset()
			}
			inner, err := l.interpolation()
			if err != nil {
				return nil, err
			}
			parts = append(parts, part{text: inner, isExpr: true})
		case c == '\n':
			return nil, errorf(Pos{}, "unterminated string")
		default:
			lit.WriteByte(c)
			l.i++
		}
	}
	return nil, errorf(Pos{}, "unterminated string")
}

func (l *lexer) readIdentChars() string {
	start := l.i
	for l.i < len(l.src) && isIdentChar(l.src[l.i]) {
		if l.src[l.i] == '-' && !l.dashContinues() {
			break
		}
		l.i++
	}
	return l.src[start:l.i]
}

// dashContinues reports whether the "-" at the cursor belongs to the name
// being read, as in "grid-width", rather than starting an operator.
func (l *lexer) dashContinues() bool {
	n := l.peek(1)
	return isIdentChar(n) || n == '#' && l.peek(2) == '{'
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
