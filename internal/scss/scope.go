package scss

type callable struct {
	name    string
	params  []param
	body    []stmt
	closure *scope
	pos     Pos
}

type scope struct {
	vars      map[string]Value
	mixins    map[string]*callable
	functions map[string]*callable
	parent    *scope
	// control scopes belong to @if, @each, @for and @while: assignments in
	// them update an existing variable of the enclosing scope.
	control bool
}

func newScope(parent *scope, control bool) *scope {
	return &scope{
		vars:      make(map[string]Value),
		mixins:    make(map[string]*callable),
		functions: make(map[string]*callable),
		parent:    parent,
		control:   control,
	}
}

func (s *scope) root() *scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func (s *scope) get(name string) (Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// declare defines name in this very scope.
func (s *scope) declare(name string, v Value) {
	s.vars[name] = v
}

// set assigns name following Sass scoping: flow control scopes are
// transparent, a nested block updates a variable of an enclosing block, and
// otherwise the variable is local to the nearest block.
func (s *scope) set(name string, v Value) {
	sc := s
	for sc.control && sc.parent != nil {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
		sc = sc.parent
	}
	if sc.parent != nil {
		for up := sc; up.parent != nil; up = up.parent {
			if _, ok := up.vars[name]; ok {
				up.vars[name] = v
				return
			}
		}
	}
	sc.vars[name] = v
}

func (s *scope) mixin(name string) (*callable, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if m, ok := sc.mixins[name]; ok {
			return m, true
		}
	}
	return nil, false
}

func (s *scope) function(name string) (*callable, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if f, ok := sc.functions[name]; ok {
			return f, true
		}
	}
	return nil, false
}
