package scss

import (
	"fmt"
	"strings"
)

type expr interface{}

type numberLit struct{ n Number }

type colorLit struct{ text string }

// stringExpr is a quoted string or an identifier, possibly interpolated.
type stringExpr struct {
	parts  []part
	quoted bool
}

// rawExpr is a function call kept verbatim, such as calc() or url().
type rawExpr struct{ parts []part }

type varRef struct{ name string }

type argExpr struct {
	name   string
	value  expr
	spread bool
}

type callExpr struct {
	name string
	args []argExpr
}

type binaryExpr struct {
	op   string
	l, r expr
	// slash marks a "/" between literal numbers outside parentheses, which
	// CSS uses as a separator (font: 12px/1.5).
	slash bool
}

type unaryExpr struct {
	op string
	x  expr
}

type listExpr struct {
	items []expr
	comma bool
}

type parenExpr struct{ x expr }

type exprParser struct {
	toks []token
	i    int
	// slashDepth counts constructs (parentheses, arguments) inside which
	// "/" always divides.
	slashDepth int
}

// parseExpr parses a full expression. When keepSlash is set, "/" between
// literal numbers is kept as a separator.
func parseExpr(src string, keepSlash bool) (expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	if !keepSlash {
		p.slashDepth = 1
	}
	e, err := p.commaList()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tEOF {
		return nil, fmt.Errorf("unexpected %s in expression %q", describe(t), src)
	}
	return e, nil
}

func describe(t token) string {
	switch t.kind {
	case tEOF:
		return "end of expression"
	case tRParen:
		return `")"`
	case tLParen:
		return `"("`
	case tComma:
		return `","`
	case tColon:
		return `":"`
	case tEllipsis:
		return `"..."`
	case tOp:
		return fmt.Sprintf("%q", t.text)
	}
	return "token"
}

func (p *exprParser) peek() token { return p.toks[p.i] }

func (p *exprParser) advance() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *exprParser) isWord(t token, word string) bool {
	return t.kind == tIdent && len(t.parts) == 1 && !t.parts[0].isExpr && t.parts[0].text == word
}

func (p *exprParser) commaList() (expr, error) {
	first, err := p.spaceList()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tComma {
		return first, nil
	}
	items := []expr{first}
	for p.peek().kind == tComma {
		p.advance()
		if !p.startsValue(p.peek()) {
			break
		}
		e, err := p.spaceList()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return &listExpr{items: items, comma: true}, nil
}

// startsValue reports whether t can begin a list element.
func (p *exprParser) startsValue(t token) bool {
	switch t.kind {
	case tEOF, tRParen, tComma, tColon, tEllipsis:
		return false
	case tOp:
		return t.text == "-" || t.text == "+"
	}
	return true
}

func (p *exprParser) spaceList() (expr, error) {
	first, err := p.or()
	if err != nil {
		return nil, err
	}
	items := []expr{first}
	for p.startsValue(p.peek()) {
		e, err := p.or()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if len(items) == 1 {
		return first, nil
	}
	return &listExpr{items: items}, nil
}

func (p *exprParser) or() (expr, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.isWord(p.peek(), "or") {
		p.advance()
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{op: "or", l: l, r: r}
	}
	return l, nil
}

func (p *exprParser) and() (expr, error) {
	l, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.isWord(p.peek(), "and") {
		p.advance()
		r, err := p.equality()
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{op: "and", l: l, r: r}
	}
	return l, nil
}

func (p *exprParser) equality() (expr, error) {
	l, err := p.relational()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t.kind == tOp && (t.text == "==" || t.text == "!="); t = p.peek() {
		p.advance()
		r, err := p.relational()
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{op: t.text, l: l, r: r}
	}
	return l, nil
}

func (p *exprParser) relational() (expr, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t.kind == tOp && strings.ContainsAny(t.text, "<>"); t = p.peek() {
		p.advance()
		r, err := p.additive()
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{op: t.text, l: l, r: r}
	}
	return l, nil
}

func (p *exprParser) additive() (expr, error) {
	l, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tOp || t.text != "+" && t.text != "-" {
			return l, nil
		}
		// "a -b" starts a new list element rather than subtracting.
		if t.spaceBefore && !t.spaceAfter {
			return l, nil
		}
		p.advance()
		r, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{op: t.text, l: l, r: r}
	}
}

func (p *exprParser) multiplicative() (expr, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tOp || t.text != "*" && t.text != "/" && t.text != "%" {
			return l, nil
		}
		p.advance()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		b := &binaryExpr{op: t.text, l: l, r: r}
		if t.text == "/" && p.slashDepth == 0 && isLiteralNumber(l) && isLiteralNumber(r) {
			b.slash = true
		}
		l = b
	}
}

func isLiteralNumber(e expr) bool {
	switch x := e.(type) {
	case *numberLit:
		return true
	case *unaryExpr:
		return x.op == "-" && isLiteralNumber(x.x)
	case *binaryExpr:
		return x.slash
	}
	return false
}

func (p *exprParser) unary() (expr, error) {
	t := p.peek()
	switch {
	case t.kind == tOp && (t.text == "-" || t.text == "+"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if n, ok := x.(*numberLit); ok && t.text == "-" {
			return &numberLit{n: Number{V: -n.n.V, Unit: n.n.Unit}}, nil
		}
		return &unaryExpr{op: t.text, x: x}, nil
	case p.isWord(t, "not"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "not", x: x}, nil
	}
	return p.primary()
}

func (p *exprParser) primary() (expr, error) {
	t := p.advance()
	switch t.kind {
	case tNumber:
		return &numberLit{n: Number{V: t.num, Unit: t.unit}}, nil
	case tColor:
		return &colorLit{text: t.text}, nil
	case tString:
		return &stringExpr{parts: t.parts, quoted: true}, nil
	case tIdent:
		return &stringExpr{parts: t.parts}, nil
	case tRaw:
		return &rawExpr{parts: t.parts}, nil
	case tVar:
		return &varRef{name: t.text}, nil
	case tFunc:
		return p.call(t.text)
	case tLParen:
		p.slashDepth++
		defer func() { p.slashDepth-- }()
		if p.peek().kind == tRParen {
			p.advance()
			return &listExpr{}, nil
		}
		inner, err := p.commaList()
		if err != nil {
			return nil, err
		}
		if p.peek().kind == tColon {
			return nil, fmt.Errorf("maps are not supported")
		}
		if p.advance().kind != tRParen {
			return nil, fmt.Errorf(`expected ")"`)
		}
		return &parenExpr{x: inner}, nil
	}
	return nil, fmt.Errorf("unexpected %s", describe(t))
}

func (p *exprParser) call(name string) (expr, error) {
	if p.advance().kind != tLParen {
		return nil, fmt.Errorf(`expected "(" after %s`, name)
	}
	p.slashDepth++
	defer func() { p.slashDepth-- }()

	c := &callExpr{name: name}
	for p.peek().kind != tRParen {
		var a argExpr
		if t := p.peek(); t.kind == tVar && p.toks[p.i+1].kind == tColon {
			p.advance()
			p.advance()
			a.name = t.text
		}
		v, err := p.spaceList()
		if err != nil {
			return nil, err
		}
		a.value = v
		if p.peek().kind == tEllipsis {
			p.advance()
			a.spread = true
		}
		c.args = append(c.args, a)

		switch p.peek().kind {
		case tComma:
			p.advance()
		case tRParen:
		default:
			return nil, fmt.Errorf("unexpected %s in arguments to %s()", describe(p.peek()), name)
		}
	}
	p.advance()
	return c, nil
}
