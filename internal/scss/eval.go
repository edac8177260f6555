package scss

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path"
	"sort"
	"strings"
)

const maxCallDepth = 100

type contentBlock struct {
	body []stmt
	env  *env
}

// env is the evaluation state at one point of the stylesheet.
type env struct {
	scope *scope
	file  string
	// selectors are the resolved selectors of the enclosing style rule.
	selectors []string
	// decls receives declarations; nil where declarations are not allowed.
	decls *cssNode
	// container receives rules, outer receives bubbling @media.
	container *cssNode
	outer     *cssNode
	media     string
	content   *contentBlock
	inFunc    bool
}

type extendReq struct {
	target    string
	extenders []string
	optional  bool
	pos       Pos
	matched   bool
}

type compiler struct {
	opts      Options
	fsys      fs.FS
	root      *cssNode
	imports   []*cssNode
	extends   []*extendReq
	loading   []string
	loaded    []string
	depth     int
	exprCache map[string]expr
	format    formatter
}

// wrap attaches pos to errors that lack a location.
func wrap(pos Pos, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Pos.Line != 0 {
			return se
		}
		return &Error{Pos: pos, Msg: se.Msg}
	}
	return &Error{Pos: pos, Msg: err.Error()}
}

func (c *compiler) evalStmts(e *env, stmts []stmt) (Value, error) {
	for _, s := range stmts {
		v, err := c.evalStmt(e, s)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

func (c *compiler) evalStmt(e *env, s stmt) (Value, error) {
	pos := s.position()
	if e.inFunc {
		switch s.(type) {
		case *varStmt, *ifStmt, *eachStmt, *forStmt, *whileStmt, *returnStmt, *messageStmt:
		case *commentStmt:
			return nil, nil
		default:
			return nil, errorf(pos, "this at-rule or style is not allowed in a function")
		}
	}

	switch x := s.(type) {
	case *ruleStmt:
		return nil, c.evalRule(e, x)

	case *declStmt:
		return nil, c.evalDecl(e, x)

	case *varStmt:
		return nil, c.evalVar(e, x)

	case *commentStmt:
		n := &cssNode{kind: nodeComment, value: x.text}
		if e.decls != nil {
			e.decls.add(n)
		} else {
			e.container.add(n)
		}
		return nil, nil

	case *atStmt:
		return nil, c.evalAtRule(e, x)

	case *mixinStmt:
		e.scope.mixins[x.name] = &callable{name: x.name, params: x.params, body: x.body, closure: e.scope, pos: pos}
		return nil, nil

	case *functionStmt:
		e.scope.functions[x.name] = &callable{name: x.name, params: x.params, body: x.body, closure: e.scope, pos: pos}
		return nil, nil

	case *includeStmt:
		return nil, c.evalInclude(e, x)

	case *contentStmt:
		if e.content == nil {
			return nil, nil
		}
		cb := e.content
		child := *e
		child.scope = newScope(cb.env.scope, false)
		child.content = cb.env.content
		_, err := c.evalStmts(&child, cb.body)
		return nil, err

	case *returnStmt:
		if !e.inFunc {
			return nil, errorf(pos, "@return may only be used within a function")
		}
		v, err := c.evalExpr(e, x.value, false, pos)
		if err != nil {
			return nil, err
		}
		return dropSlash(v), nil

	case *ifStmt:
		cond, err := c.evalExpr(e, x.cond, false, pos)
		if err != nil {
			return nil, err
		}
		body := x.elseBody
		if truthy(cond) {
			body = x.body
		}
		child := *e
		child.scope = newScope(e.scope, true)
		return c.evalStmts(&child, body)

	case *eachStmt:
		return c.evalEach(e, x)

	case *forStmt:
		return c.evalFor(e, x)

	case *whileStmt:
		for i := 0; ; i++ {
			if i > 100000 {
				return nil, errorf(pos, "@while loop did not terminate")
			}
			cond, err := c.evalExpr(e, x.cond, false, pos)
			if err != nil {
				return nil, err
			}
			if !truthy(cond) {
				return nil, nil
			}
			child := *e
			child.scope = newScope(e.scope, true)
			if v, err := c.evalStmts(&child, x.body); err != nil || v != nil {
				return v, err
			}
		}

	case *extendStmt:
		if e.selectors == nil {
			return nil, errorf(pos, "@extend may only be used within style rules")
		}
		text, err := c.interpolate(e, x.selector, pos)
		if err != nil {
			return nil, err
		}
		for _, target := range parseSelectorList(text) {
			if strings.ContainsAny(target, " >+~") {
				return nil, errorf(pos, "complex selectors may not be extended: %q", target)
			}
			c.extends = append(c.extends, &extendReq{
				target:    target,
				extenders: e.selectors,
				optional:  x.optional,
				pos:       pos,
			})
		}
		return nil, nil

	case *importStmt:
		return nil, c.evalImport(e, x)

	case *messageStmt:
		v, err := c.evalExpr(e, x.value, false, pos)
		if err != nil {
			return nil, err
		}
		msg := c.format.plain(v)
		if x.kind == "error" {
			return nil, errorf(pos, "%s", msg)
		}
		if c.opts.Warn != nil {
			c.opts.Warn(fmt.Sprintf("%s: @%s: %s", pos, x.kind, msg))
		}
		return nil, nil
	}
	return nil, errorf(pos, "unsupported statement %T", s)
}

func (c *compiler) evalRule(e *env, x *ruleStmt) error {
	text, err := c.interpolate(e, x.selector, x.pos)
	if err != nil {
		return err
	}
	resolved, err := resolveSelectors(e.selectors, parseSelectorList(text))
	if err != nil {
		return wrap(x.pos, err)
	}

	r := &cssNode{kind: nodeRule, selectors: resolved}
	e.container.add(r)

	child := *e
	child.selectors = resolved
	child.decls = r
	child.scope = newScope(e.scope, false)
	_, err = c.evalStmts(&child, x.body)
	return err
}

func (c *compiler) evalDecl(e *env, x *declStmt) error {
	if e.decls == nil {
		return errorf(x.pos, "declarations may only be used within style rules")
	}
	name, err := c.interpolate(e, x.name, x.pos)
	if err != nil {
		return err
	}

	if strings.HasPrefix(name, "--") {
		value, err := c.interpolate(e, x.value, x.pos)
		if err != nil {
			return err
		}
		e.decls.add(&cssNode{kind: nodeDecl, prop: name, value: strings.TrimSpace(value)})
		return nil
	}

	v, err := c.evalExpr(e, x.value, true, x.pos)
	if err != nil {
		return err
	}
	value := c.format.css(v)
	if isNull(v) || value == "" {
		return nil
	}
	if n, ok := v.(Number); ok && n.Slash == nil && math.IsNaN(n.V) {
		return errorf(x.pos, "%s isn't a valid CSS value", value)
	}
	e.decls.add(&cssNode{kind: nodeDecl, prop: name, value: value})
	return nil
}

func (c *compiler) evalVar(e *env, x *varStmt) error {
	if x.defaultFlag {
		var existing Value
		var ok bool
		if x.globalFlag {
			existing, ok = e.scope.root().vars[x.name]
		} else {
			existing, ok = e.scope.get(x.name)
		}
		if ok && !isNull(existing) {
			return nil
		}
	}
	v, err := c.evalExpr(e, x.value, false, x.pos)
	if err != nil {
		return err
	}
	v = dropSlash(v)
	if x.globalFlag {
		e.scope.root().declare(x.name, v)
		return nil
	}
	e.scope.set(x.name, v)
	return nil
}

func dropSlash(v Value) Value {
	if n, ok := v.(Number); ok && n.Slash != nil {
		return Number{V: n.V, Unit: n.Unit}
	}
	return v
}

func (c *compiler) evalAtRule(e *env, x *atStmt) error {
	prelude, err := c.interpolate(e, x.prelude, x.pos)
	if err != nil {
		return err
	}
	prelude = collapseSpace(prelude)

	if !x.block {
		e.container.add(&cssNode{kind: nodeAt, name: x.name, prelude: prelude})
		return nil
	}

	child := *e
	child.scope = newScope(e.scope, false)

	switch {
	case x.name == "media":
		if e.media != "" {
			prelude = e.media + " and " + prelude
		}
		m := &cssNode{kind: nodeAt, name: x.name, prelude: prelude, block: true}
		e.outer.add(m)
		child.media = prelude
		child.container = m
		child.decls = nil
		if e.selectors != nil {
			r := &cssNode{kind: nodeRule, selectors: e.selectors}
			m.add(r)
			child.decls = r
		}

	case x.name == "supports":
		m := &cssNode{kind: nodeAt, name: x.name, prelude: prelude, block: true}
		e.outer.add(m)
		child.container = m
		child.outer = m
		child.decls = nil
		if e.selectors != nil {
			r := &cssNode{kind: nodeRule, selectors: e.selectors}
			m.add(r)
			child.decls = r
		}

	default:
		m := &cssNode{kind: nodeAt, name: x.name, prelude: prelude, block: true}
		if e.selectors != nil {
			e.outer.add(m)
		} else {
			e.container.add(m)
		}
		child.selectors = nil
		child.container = m
		child.outer = m
		child.decls = m
		child.media = ""
	}

	_, err = c.evalStmts(&child, x.body)
	return err
}

func (c *compiler) evalInclude(e *env, x *includeStmt) error {
	m, ok := e.scope.mixin(x.name)
	if !ok {
		return errorf(x.pos, "undefined mixin %q", x.name)
	}
	if c.depth >= maxCallDepth {
		return errorf(x.pos, "stack level too deep")
	}
	c.depth++
	defer func() { c.depth-- }()

	positional, named, err := c.evalArgs(e, x.args, x.pos)
	if err != nil {
		return err
	}
	bound, err := c.bind(e, m, positional, named, x.pos)
	if err != nil {
		return err
	}

	caller := *e
	child := *e
	child.scope = bound
	child.content = nil
	if x.hasContent {
		child.content = &contentBlock{body: x.content, env: &caller}
	}
	_, err = c.evalStmts(&child, m.body)
	return err
}

// evalArgs evaluates an argument list written as source text.
func (c *compiler) evalArgs(e *env, src string, pos Pos) ([]Value, map[string]Value, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil, nil
	}
	x, err := c.parse("_args("+src+")", false)
	if err != nil {
		return nil, nil, wrap(pos, err)
	}
	call, ok := x.(*callExpr)
	if !ok {
		return nil, nil, errorf(pos, "invalid arguments %q", src)
	}
	p, n, err := c.evalCallArgs(e, call)
	return p, n, wrap(pos, err)
}

func (c *compiler) evalCallArgs(e *env, call *callExpr) ([]Value, map[string]Value, error) {
	var positional []Value
	named := make(map[string]Value)
	for _, a := range call.args {
		v, err := c.eval(e, a.value)
		if err != nil {
			return nil, nil, err
		}
		v = dropSlash(v)
		switch {
		case a.spread:
			positional = append(positional, asList(v).Items...)
		case a.name != "":
			named[a.name] = v
		default:
			if len(named) > 0 {
				return nil, nil, fmt.Errorf("positional arguments must come before keyword arguments")
			}
			positional = append(positional, v)
		}
	}
	return positional, named, nil
}

// bind creates the scope of a mixin or function call.
func (c *compiler) bind(e *env, fn *callable, positional []Value, named map[string]Value, pos Pos) (*scope, error) {
	s := newScope(fn.closure, false)
	rest := make(map[string]Value, len(named))
	for k, v := range named {
		rest[k] = v
	}

	variadic := false
	for i, p := range fn.params {
		if p.variadic {
			var items []Value
			if i < len(positional) {
				items = positional[i:]
			}
			s.declare(p.name, List{Items: items, Comma: true})
			variadic = true
			break
		}
		var v Value
		switch {
		case i < len(positional):
			v = positional[i]
			if _, dup := rest[p.name]; dup {
				return nil, errorf(pos, "argument $%s was passed both by position and by name", p.name)
			}
		case rest[p.name] != nil:
			v = rest[p.name]
			delete(rest, p.name)
		case p.hasDef:
			defEnv := *e
			defEnv.scope = s
			dv, err := c.evalExpr(&defEnv, p.def, false, fn.pos)
			if err != nil {
				return nil, err
			}
			v = dv
		default:
			return nil, errorf(pos, "missing argument $%s for %s", p.name, fn.name)
		}
		s.declare(p.name, v)
	}

	if !variadic && len(positional) > len(fn.params) {
		return nil, errorf(pos, "only %d arguments allowed for %s, but %d were passed", len(fn.params), fn.name, len(positional))
	}
	if len(rest) > 0 {
		names := make([]string, 0, len(rest))
		for name := range rest {
			names = append(names, "$"+name)
		}
		sort.Strings(names)
		return nil, errorf(pos, "no argument named %s for %s", strings.Join(names, ", "), fn.name)
	}
	return s, nil
}

func (c *compiler) evalEach(e *env, x *eachStmt) (Value, error) {
	v, err := c.evalExpr(e, x.list, false, x.pos)
	if err != nil {
		return nil, err
	}
	for _, item := range asList(v).Items {
		child := *e
		child.scope = newScope(e.scope, true)
		if len(x.vars) == 1 {
			child.scope.declare(x.vars[0], item)
		} else {
			parts := asList(item).Items
			for i, name := range x.vars {
				var pv Value = Null{}
				if i < len(parts) {
					pv = parts[i]
				}
				child.scope.declare(name, pv)
			}
		}
		if r, err := c.evalStmts(&child, x.body); err != nil || r != nil {
			return r, err
		}
	}
	return nil, nil
}

func (c *compiler) evalFor(e *env, x *forStmt) (Value, error) {
	fromV, err := c.evalExpr(e, x.from, false, x.pos)
	if err != nil {
		return nil, err
	}
	toV, err := c.evalExpr(e, x.to, false, x.pos)
	if err != nil {
		return nil, err
	}
	from, ok1 := fromV.(Number)
	to, ok2 := toV.(Number)
	if !ok1 || !ok2 {
		return nil, errorf(x.pos, "@for bounds must be numbers")
	}
	toVal, ok := convert(to, from.Unit)
	if !ok {
		return nil, errorf(x.pos, "incompatible units %s and %s", from.Unit, to.Unit)
	}
	unit := from.Unit
	if unit == "" {
		unit = to.Unit
	}

	start, end := int(math.Round(from.V)), int(math.Round(toVal))
	step := 1
	if end < start {
		step = -1
	}
	if x.inclusive {
		end += step
	}
	for i := start; i != end; i += step {
		child := *e
		child.scope = newScope(e.scope, true)
		child.scope.declare(x.variable, Number{V: float64(i), Unit: unit})
		if r, err := c.evalStmts(&child, x.body); err != nil || r != nil {
			return r, err
		}
	}
	return nil, nil
}

func (c *compiler) evalImport(e *env, x *importStmt) error {
	for _, raw := range splitTopLevel(x.args, ',') {
		arg := strings.TrimSpace(raw)
		if arg == "" {
			continue
		}
		if isPlainImport(arg) {
			text, err := c.interpolate(e, arg, x.pos)
			if err != nil {
				return err
			}
			c.imports = append(c.imports, &cssNode{kind: nodeAt, name: "import", prelude: text})
			continue
		}
		if len(arg) < 2 || (arg[0] != '"' && arg[0] != '\'') || arg[len(arg)-1] != arg[0] {
			return errorf(x.pos, "expected a quoted string in @import, got %s", arg)
		}
		if err := c.importFile(e, arg[1:len(arg)-1], x.pos); err != nil {
			return err
		}
	}
	return nil
}

// isPlainImport reports whether an @import argument stays a CSS import.
func isPlainImport(arg string) bool {
	if strings.HasPrefix(arg, "url(") {
		return true
	}
	if len(arg) < 2 || arg[0] != '"' && arg[0] != '\'' {
		return true
	}
	end := strings.IndexByte(arg[1:], arg[0])
	if end < 0 {
		return false
	}
	target := arg[1 : end+1]
	if strings.TrimSpace(arg[end+2:]) != "" {
		return true
	}
	return strings.HasSuffix(target, ".css") ||
		strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "//")
}

func (c *compiler) importFile(e *env, target string, pos Pos) error {
	file, err := c.resolveImport(e.file, target)
	if err != nil {
		return errorf(pos, "%v", err)
	}
	for _, f := range c.loading {
		if f == file {
			return errorf(pos, "this file is already being loaded: %s", file)
		}
	}

	data, err := fs.ReadFile(c.fsys, file)
	if err != nil {
		return errorf(pos, "reading %s: %v", file, err)
	}
	stmts, err := parse(file, string(data))
	if err != nil {
		return err
	}

	c.loading = append(c.loading, file)
	c.loaded = append(c.loaded, file)
	defer func() { c.loading = c.loading[:len(c.loading)-1] }()

	child := *e
	child.file = file
	_, err = c.evalStmts(&child, stmts)
	return err
}

// resolveImport finds the file an @import refers to, looking next to the
// importing file first and then in each load path.
func (c *compiler) resolveImport(from, target string) (string, error) {
	if c.fsys == nil {
		return "", fmt.Errorf("cannot import %q without a filesystem", target)
	}
	target = strings.TrimSuffix(target, ".scss")
	dirs := []string{path.Dir(from)}
	dirs = append(dirs, c.opts.LoadPaths...)

	dir, base := path.Split(target)
	for _, d := range dirs {
		for _, candidate := range []string{
			path.Join(d, dir, "_"+base+".scss"),
			path.Join(d, target+".scss"),
			path.Join(d, target, "_index.scss"),
			path.Join(d, target, "index.scss"),
		} {
			candidate = strings.TrimPrefix(candidate, "/")
			if info, err := fs.Stat(c.fsys, candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("can't find stylesheet to import: %q", target)
}

// interpolate replaces every #{...} in text by its evaluated value.
func (c *compiler) interpolate(e *env, text string, pos Pos) (string, error) {
	if !strings.Contains(text, "#{") {
		return text, nil
	}
	var b strings.Builder
	for {
		start := strings.Index(text, "#{")
		if start < 0 {
			b.WriteString(text)
			return b.String(), nil
		}
		b.WriteString(text[:start])

		depth, end := 0, -1
		for i := start + 2; i < len(text) && end < 0; i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				if depth == 0 {
					end = i
				}
				depth--
			}
		}
		if end < 0 {
			return "", errorf(pos, `expected "}" to close interpolation`)
		}
		v, err := c.evalExpr(e, text[start+2:end], false, pos)
		if err != nil {
			return "", err
		}
		b.WriteString(c.format.plain(v))
		text = text[end+1:]
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
