package scss

import (
	"sort"
	"strings"
)

type parser struct {
	file       string
	src        string
	pos        int
	lineStarts []int
}

// parse splits an SCSS source into statements.
func parse(file, src string) ([]stmt, error) {
	p := &parser{file: file, src: src, lineStarts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}
	return p.parseBlockBody(false)
}

func (p *parser) posAt(off int) Pos {
	line := sort.Search(len(p.lineStarts), func(i int) bool { return p.lineStarts[i] > off })
	return Pos{File: p.file, Line: line, Col: off - p.lineStarts[line-1] + 1}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) rest() string { return p.src[p.pos:] }

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

// skipSpaceAndSilent skips whitespace and // comments.
func (p *parser) skipSpaceAndSilent() {
	for {
		p.skipSpace()
		if !strings.HasPrefix(p.rest(), "//") {
			return
		}
		p.skipLine()
	}
}

func (p *parser) skipLine() {
	if i := strings.IndexByte(p.rest(), '\n'); i >= 0 {
		p.pos += i + 1
		return
	}
	p.pos = len(p.src)
}

func (p *parser) parseBlockBody(nested bool) ([]stmt, error) {
	var out []stmt
	for {
		p.skipSpace()
		if p.eof() {
			if nested {
				return nil, errorf(p.posAt(p.pos), `expected "}"`)
			}
			return out, nil
		}

		start := p.pos
		switch c := p.src[p.pos]; {
		case c == '}':
			if !nested {
				return nil, errorf(p.posAt(p.pos), `unexpected "}"`)
			}
			p.pos++
			return out, nil
		case c == ';':
			p.pos++
		case strings.HasPrefix(p.rest(), "//"):
			p.skipLine()
		case strings.HasPrefix(p.rest(), "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return nil, errorf(p.posAt(p.pos), "unterminated comment")
			}
			text := p.src[p.pos : p.pos+2+end+2]
			p.pos += 2 + end + 2
			out = append(out, &commentStmt{base: base{p.posAt(start)}, text: text})
		case c == '@':
			s, err := p.parseAtRule()
			if err != nil {
				return nil, err
			}
			if s != nil {
				out = append(out, s)
			}
		default:
			s, err := p.parseRuleOrDecl()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
}

// readChunk reads up to the next top-level "{", ";" or "}". The "{" and
// ";" terminators are consumed, a "}" is left for the enclosing block.
// Comments are dropped from the returned text.
func (p *parser) readChunk() (string, byte, error) {
	var b strings.Builder
	parens, interp := 0, 0
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '"' || c == '\'':
			end, err := p.skipString(p.pos)
			if err != nil {
				return "", 0, err
			}
			b.WriteString(p.src[p.pos:end])
			p.pos = end
			continue
		case c == '#' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			interp++
			b.WriteString("#{")
			p.pos += 2
			continue
		case c == '{':
			if interp == 0 && parens == 0 {
				p.pos++
				return b.String(), '{', nil
			}
		case c == '}':
			if interp > 0 {
				interp--
			} else {
				return b.String(), '}', nil
			}
		case c == '(':
			parens++
		case c == ')':
			if parens > 0 {
				parens--
			}
		case c == ';' && parens == 0 && interp == 0:
			p.pos++
			return b.String(), ';', nil
		case strings.HasPrefix(p.rest(), "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return "", 0, errorf(p.posAt(p.pos), "unterminated comment")
			}
			p.pos += 2 + end + 2
			b.WriteByte(' ')
			continue
		case strings.HasPrefix(p.rest(), "//") && parens == 0 && interp == 0:
			p.skipLine()
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	return b.String(), 0, nil
}

// skipString returns the offset just past the quoted string starting at off.
func (p *parser) skipString(off int) (int, error) {
	q := p.src[off]
	for i := off + 1; i < len(p.src); i++ {
		switch p.src[i] {
		case '\\':
			i++
		case q:
			return i + 1, nil
		case '\n':
			return 0, errorf(p.posAt(off), "unterminated string")
		}
	}
	return 0, errorf(p.posAt(off), "unterminated string")
}

func (p *parser) parseRuleOrDecl() (stmt, error) {
	start := p.pos
	pos := p.posAt(start)
	text, term, err := p.readChunk()
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "$") {
		return parseVariable(pos, text)
	}

	if term == '{' {
		body, err := p.parseBlockBody(true)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, errorf(pos, "expected selector")
		}
		return &ruleStmt{base: base{pos}, selector: text, body: body}, nil
	}

	idx := indexTopLevel(text, ':')
	if idx <= 0 {
		return nil, errorf(pos, `expected ":" in declaration %q`, text)
	}
	name := strings.TrimSpace(text[:idx])
	value := strings.TrimSpace(text[idx+1:])
	if value == "" {
		return nil, errorf(pos, "expected expression for property %q", name)
	}
	return &declStmt{base: base{pos}, name: name, value: value}, nil
}

func parseVariable(pos Pos, text string) (stmt, error) {
	idx := strings.IndexByte(text, ':')
	if idx < 0 {
		return nil, errorf(pos, `expected ":" after variable name`)
	}
	name := strings.TrimSpace(text[1:idx])
	if name == "" || !isIdent(name) {
		return nil, errorf(pos, "invalid variable name %q", text[:idx])
	}
	v := &varStmt{base: base{pos}, name: normalizeName(name), value: strings.TrimSpace(text[idx+1:])}
	for {
		switch {
		case hasFlag(v.value, "!default"):
			v.defaultFlag = true
			v.value = strings.TrimSpace(v.value[:len(v.value)-len("!default")])
			continue
		case hasFlag(v.value, "!global"):
			v.globalFlag = true
			v.value = strings.TrimSpace(v.value[:len(v.value)-len("!global")])
			continue
		}
		break
	}
	if v.value == "" {
		return nil, errorf(pos, "expected expression for variable $%s", name)
	}
	return v, nil
}

func hasFlag(s, flag string) bool {
	return len(s) >= len(flag) && strings.EqualFold(s[len(s)-len(flag):], flag)
}

func (p *parser) readIdent() string {
	start := p.pos
	for !p.eof() && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) parseAtRule() (stmt, error) {
	start := p.pos
	pos := p.posAt(start)
	p.pos++
	name := strings.ToLower(p.readIdent())
	if name == "" {
		return nil, errorf(pos, "expected at-rule name")
	}

	text, term, err := p.readChunk()
	if err != nil {
		return nil, err
	}
	prelude := strings.TrimSpace(text)
	block := term == '{'
	var body []stmt
	if block {
		if body, err = p.parseBlockBody(true); err != nil {
			return nil, err
		}
	}
	b := base{pos}

	needBlock := func() error {
		if !block {
			return errorf(pos, `expected "{" after @%s`, name)
		}
		return nil
	}
	noBlock := func() error {
		if block {
			return errorf(pos, "@%s may not have a block", name)
		}
		return nil
	}

	switch name {
	case "mixin", "function":
		if err := needBlock(); err != nil {
			return nil, err
		}
		fname, params, err := parseSignature(pos, prelude)
		if err != nil {
			return nil, err
		}
		if name == "mixin" {
			return &mixinStmt{base: b, name: fname, params: params, body: body}, nil
		}
		return &functionStmt{base: b, name: fname, params: params, body: body}, nil

	case "include":
		iname, args := splitCall(prelude)
		if iname == "" {
			return nil, errorf(pos, "expected mixin name")
		}
		return &includeStmt{base: b, name: normalizeName(iname), args: args, content: body, hasContent: block}, nil

	case "content":
		return &contentStmt{base: b}, noBlock()

	case "return":
		if prelude == "" {
			return nil, errorf(pos, "expected expression after @return")
		}
		return &returnStmt{base: b, value: prelude}, noBlock()

	case "if":
		if err := needBlock(); err != nil {
			return nil, err
		}
		s := &ifStmt{base: b, cond: prelude, body: body}
		if err := p.parseElse(s); err != nil {
			return nil, err
		}
		return s, nil

	case "else":
		return nil, errorf(pos, "@else must come after @if")

	case "each":
		if err := needBlock(); err != nil {
			return nil, err
		}
		idx := indexWord(prelude, "in")
		if idx < 0 {
			return nil, errorf(pos, `expected "in" in @each`)
		}
		var vars []string
		for _, v := range strings.Split(prelude[:idx], ",") {
			v = strings.TrimSpace(v)
			if !strings.HasPrefix(v, "$") {
				return nil, errorf(pos, "expected variable in @each, got %q", v)
			}
			vars = append(vars, normalizeName(v[1:]))
		}
		return &eachStmt{base: b, vars: vars, list: strings.TrimSpace(prelude[idx+2:]), body: body}, nil

	case "for":
		if err := needBlock(); err != nil {
			return nil, err
		}
		return parseFor(b, prelude, body)

	case "while":
		if err := needBlock(); err != nil {
			return nil, err
		}
		return &whileStmt{base: b, cond: prelude, body: body}, nil

	case "extend":
		sel := prelude
		optional := false
		if hasFlag(sel, "!optional") {
			optional = true
			sel = strings.TrimSpace(sel[:len(sel)-len("!optional")])
		}
		return &extendStmt{base: b, selector: sel, optional: optional}, noBlock()

	case "import":
		return &importStmt{base: b, args: prelude}, noBlock()

	case "debug", "warn", "error":
		return &messageStmt{base: b, kind: name, value: prelude}, noBlock()

	case "charset":
		return nil, nil

	case "use", "forward":
		return nil, errorf(pos, "@%s is not supported, use @import", name)
	}

	return &atStmt{base: b, name: name, prelude: prelude, body: body, block: block}, nil
}

func (p *parser) parseElse(s *ifStmt) error {
	save := p.pos
	p.skipSpaceAndSilent()
	if !strings.HasPrefix(p.rest(), "@else") || (len(p.rest()) > 5 && isIdentChar(p.rest()[5])) {
		p.pos = save
		return nil
	}
	pos := p.posAt(p.pos)
	p.pos += len("@else")

	text, term, err := p.readChunk()
	if err != nil {
		return err
	}
	if term != '{' {
		return errorf(pos, `expected "{" after @else`)
	}
	body, err := p.parseBlockBody(true)
	if err != nil {
		return err
	}

	prelude := strings.TrimSpace(text)
	if prelude == "" {
		s.elseBody = body
		return nil
	}
	if prelude != "if" && !strings.HasPrefix(prelude, "if ") && !strings.HasPrefix(prelude, "if(") {
		return errorf(pos, "expected \"if\" or \"{\" after @else")
	}
	nested := &ifStmt{base: base{pos}, cond: strings.TrimSpace(prelude[2:]), body: body}
	if nested.cond == "" {
		return errorf(pos, "expected condition after @else if")
	}
	s.elseBody = []stmt{nested}
	return p.parseElse(nested)
}

func parseFor(b base, prelude string, body []stmt) (stmt, error) {
	fromIdx := indexWord(prelude, "from")
	if fromIdx < 0 {
		return nil, errorf(b.pos, `expected "from" in @for`)
	}
	variable := strings.TrimSpace(prelude[:fromIdx])
	if !strings.HasPrefix(variable, "$") {
		return nil, errorf(b.pos, "expected variable in @for, got %q", variable)
	}
	rest := prelude[fromIdx+len("from"):]

	s := &forStmt{base: b, variable: normalizeName(variable[1:]), body: body}
	if idx := indexWord(rest, "through"); idx >= 0 {
		s.from, s.to, s.inclusive = rest[:idx], rest[idx+len("through"):], true
	} else if idx := indexWord(rest, "to"); idx >= 0 {
		s.from, s.to = rest[:idx], rest[idx+len("to"):]
	} else {
		return nil, errorf(b.pos, `expected "through" or "to" in @for`)
	}
	s.from, s.to = strings.TrimSpace(s.from), strings.TrimSpace(s.to)
	return s, nil
}

// parseSignature splits "name($a, $b: 1, $rest...)" into its parts.
func parseSignature(pos Pos, prelude string) (string, []param, error) {
	name, args := splitCall(prelude)
	if name == "" || !isIdent(name) {
		return "", nil, errorf(pos, "invalid name %q", prelude)
	}
	var params []param
	for _, raw := range splitTopLevel(args, ',') {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var pr param
		if strings.HasSuffix(raw, "...") {
			pr.variadic = true
			raw = strings.TrimSpace(strings.TrimSuffix(raw, "..."))
		}
		if idx := indexTopLevel(raw, ':'); idx >= 0 {
			pr.def = strings.TrimSpace(raw[idx+1:])
			pr.hasDef = true
			raw = strings.TrimSpace(raw[:idx])
		}
		if !strings.HasPrefix(raw, "$") || !isIdent(raw[1:]) {
			return "", nil, errorf(pos, "invalid parameter %q", raw)
		}
		pr.name = normalizeName(raw[1:])
		params = append(params, pr)
	}
	return normalizeName(name), params, nil
}

// splitCall splits "name(args)" into name and the text between the outer
// parentheses.
func splitCall(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, '(')
	if idx < 0 {
		return s, ""
	}
	name := strings.TrimSpace(s[:idx])
	end := strings.LastIndexByte(s, ')')
	if end < idx {
		return name, s[idx+1:]
	}
	return name, s[idx+1 : end]
}

// splitTopLevel splits s at sep outside of quotes, parentheses, brackets
// and interpolation.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	var quote byte
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			out = append(out, s[last:i])
			last = i + 1
		}
	}
	return append(out, s[last:])
}

// indexTopLevel finds the first sep outside of nesting and quotes.
func indexTopLevel(s string, sep byte) int {
	parts := splitTopLevel(s, sep)
	if len(parts) < 2 {
		return -1
	}
	return len(parts[0])
}

// indexWord finds word surrounded by whitespace outside of nesting.
func indexWord(s, word string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '"' || c == '\'':
			quote = c
			continue
		case c == '(' || c == '[':
			depth++
			continue
		case c == ')' || c == ']':
			depth--
			continue
		}
		if depth != 0 || !strings.HasPrefix(s[i:], word) {
			continue
		}
		before := i == 0 || isSpace(s[i-1])
		end := i + len(word)
		after := end == len(s) || isSpace(s[end])
		if before && after && i > 0 {
			return i
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '-' || c >= '0' && c <= '9'
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// normalizeName treats "_" and "-" as equivalent in names, as Sass does.
func normalizeName(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}
