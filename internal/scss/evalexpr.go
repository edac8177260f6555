package scss

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

func (c *compiler) parse(src string, keepSlash bool) (expr, error) {
	key := src
	if keepSlash {
		key = "/" + src
	}
	if x, ok := c.exprCache[key]; ok {
		return x, nil
	}
	x, err := parseExpr(src, keepSlash)
	if err != nil {
		return nil, err
	}
	c.exprCache[key] = x
	return x, nil
}

// evalExpr parses and evaluates src. Errors are reported at pos.
func (c *compiler) evalExpr(e *env, src string, keepSlash bool, pos Pos) (Value, error) {
	x, err := c.parse(src, keepSlash)
	if err != nil {
		return nil, wrap(pos, err)
	}
	v, err := c.eval(e, x)
	if err != nil {
		return nil, wrap(pos, err)
	}
	return v, nil
}

func (c *compiler) eval(e *env, x expr) (Value, error) {
	switch x := x.(type) {
	case *numberLit:
		return x.n, nil

	case *colorLit:
		return parseHexColor(x.text)

	case *stringExpr:
		s, err := c.joinParts(e, x.parts)
		if err != nil {
			return nil, err
		}
		if !x.quoted && len(x.parts) == 1 && !x.parts[0].isExpr {
			switch s {
			case "true":
				return Bool(true), nil
			case "false":
				return Bool(false), nil
			case "null":
				return Null{}, nil
			}
			if col, ok := namedColor(s); ok {
				return col, nil
			}
		}
		return String{S: s, Quoted: x.quoted}, nil

	case *rawExpr:
		s, err := c.joinParts(e, x.parts)
		if err != nil {
			return nil, err
		}
		return String{S: s}, nil

	case *varRef:
		v, ok := e.scope.get(x.name)
		if !ok {
			return nil, fmt.Errorf("undefined variable $%s", x.name)
		}
		return v, nil

	case *callExpr:
		return c.call(e, x)

	case *unaryExpr:
		v, err := c.eval(e, x.x)
		if err != nil {
			return nil, err
		}
		switch x.op {
		case "not":
			return Bool(!truthy(v)), nil
		case "-":
			if n, ok := v.(Number); ok {
				return Number{V: -n.V, Unit: n.Unit}, nil
			}
			return String{S: "-" + c.format.css(v)}, nil
		default:
			if n, ok := v.(Number); ok {
				return plain(n), nil
			}
			return String{S: "+" + c.format.css(v)}, nil
		}

	case *binaryExpr:
		return c.evalBinary(e, x)

	case *listExpr:
		items := make([]Value, 0, len(x.items))
		for _, it := range x.items {
			v, err := c.eval(e, it)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return List{Items: items, Comma: x.comma}, nil

	case *parenExpr:
		return c.eval(e, x.x)
	}
	return nil, fmt.Errorf("cannot evaluate %T", x)
}

func (c *compiler) joinParts(e *env, parts []part) (string, error) {
	if len(parts) == 1 && !parts[0].isExpr {
		return parts[0].text, nil
	}
	var b strings.Builder
	for _, p := range parts {
		if !p.isExpr {
			b.WriteString(p.text)
			continue
		}
		x, err := c.parse(p.text, false)
		if err != nil {
			return "", err
		}
		v, err := c.eval(e, x)
		if err != nil {
			return "", err
		}
		b.WriteString(c.format.plain(v))
	}
	return b.String(), nil
}

func (c *compiler) evalBinary(e *env, x *binaryExpr) (Value, error) {
	l, err := c.eval(e, x.l)
	if err != nil {
		return nil, err
	}

	switch x.op {
	case "and":
		if !truthy(l) {
			return l, nil
		}
		return c.eval(e, x.r)
	case "or":
		if truthy(l) {
			return l, nil
		}
		return c.eval(e, x.r)
	}

	r, err := c.eval(e, x.r)
	if err != nil {
		return nil, err
	}

	switch x.op {
	case "==":
		return Bool(equal(l, r)), nil
	case "!=":
		return Bool(!equal(l, r)), nil
	case "<", ">", "<=", ">=":
		ln, ok1 := l.(Number)
		rn, ok2 := r.(Number)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("undefined operation %q", c.format.css(l)+" "+x.op+" "+c.format.css(r))
		}
		cmp, err := compareNumbers(ln, rn)
		if err != nil {
			return nil, err
		}
		switch x.op {
		case "<":
			return Bool(cmp < 0), nil
		case ">":
			return Bool(cmp > 0), nil
		case "<=":
			return Bool(cmp <= 0), nil
		}
		return Bool(cmp >= 0), nil
	}

	if x.slash {
		ln, ok1 := l.(Number)
		rn, ok2 := r.(Number)
		if ok1 && ok2 {
			q, err := divNumbers(ln, rn)
			if err != nil {
				q = Number{V: math.NaN()}
			}
			q.Slash = &[2]Number{ln, rn}
			return q, nil
		}
	}
	return c.arith(x.op, dropSlash(l), dropSlash(r))
}

func (c *compiler) arith(op string, l, r Value) (Value, error) {
	ln, lNum := l.(Number)
	rn, rNum := r.(Number)
	if lNum && rNum {
		switch op {
		case "+", "-", "%":
			return addNumbers(op, ln, rn)
		case "*":
			return mulNumbers(ln, rn)
		case "/":
			return divNumbers(ln, rn)
		}
	}

	ls, lStr := l.(String)
	rs, rStr := r.(String)
	switch op {
	case "+":
		if lStr {
			return String{S: ls.S + c.format.plain(r), Quoted: ls.Quoted}, nil
		}
		if rStr {
			return String{S: c.format.css(l) + rs.S, Quoted: rs.Quoted}, nil
		}
	case "-", "/":
		if lStr || rStr {
			return String{S: c.format.css(l) + op + c.format.css(r)}, nil
		}
	}
	return nil, fmt.Errorf("undefined operation %q", c.format.css(l)+" "+op+" "+c.format.css(r))
}

func (c *compiler) call(e *env, x *callExpr) (Value, error) {
	name := normalizeName(x.name)
	positional, named, err := c.evalCallArgs(e, x)
	if err != nil {
		return nil, err
	}

	if fn, ok := e.scope.function(name); ok {
		return c.invoke(e, fn, positional, named)
	}
	if b, ok := builtins[name]; ok {
		args, err := b.bind(name, positional, named)
		if err != nil {
			return nil, err
		}
		if b.cssFallback != nil && b.cssFallback(args) {
			return c.cssFunction(x.name, positional, named)
		}
		return b.fn(c, args)
	}
	return c.cssFunction(x.name, positional, named)
}

// cssFunction renders an unknown function as a plain CSS function call.
func (c *compiler) cssFunction(name string, positional []Value, named map[string]Value) (Value, error) {
	if len(named) > 0 {
		keys := make([]string, 0, len(named))
		for k := range named {
			keys = append(keys, "$"+k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("plain CSS function %s() doesn't support keyword arguments (%s)", name, strings.Join(keys, ", "))
	}
	args := make([]string, len(positional))
	for i, a := range positional {
		args[i] = c.format.css(a)
	}
	return String{S: name + "(" + strings.Join(args, ", ") + ")"}, nil
}

func (c *compiler) invoke(e *env, fn *callable, positional []Value, named map[string]Value) (Value, error) {
	if c.depth >= maxCallDepth {
		return nil, fmt.Errorf("stack level too deep")
	}
	c.depth++
	defer func() { c.depth-- }()

	bound, err := c.bind(e, fn, positional, named, fn.pos)
	if err != nil {
		return nil, err
	}
	child := &env{
		scope:     bound,
		file:      e.file,
		container: e.container,
		outer:     e.outer,
		inFunc:    true,
	}
	v, err := c.evalStmts(child, fn.body)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("function %s finished without @return", fn.name)
	}
	return v, nil
}

func parseHexColor(text string) (Color, error) {
	hex := strings.TrimPrefix(text, "#")
	expand := func(s string) string {
		var b strings.Builder
		for i := 0; i < len(s); i++ {
			b.WriteByte(s[i])
			b.WriteByte(s[i])
		}
		return b.String()
	}
	switch len(hex) {
	case 3, 4:
		hex = expand(hex)
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid colour %q", text)
	}
	ch := func(i int) float64 {
		v, _ := strconv.ParseUint(hex[i:i+2], 16, 8)
		return float64(v)
	}
	col := Color{R: ch(0), G: ch(2), B: ch(4), A: 1, Orig: text}
	if len(hex) == 8 {
		col.A = ch(6) / 255
	}
	return col, nil
}
