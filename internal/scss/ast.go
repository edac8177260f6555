package scss

// stmt is a parsed SCSS statement.
type stmt interface {
	position() Pos
}

type base struct{ pos Pos }

func (b base) position() Pos { return b.pos }

// ruleStmt is a style rule; the selector may contain interpolation.
type ruleStmt struct {
	base
	selector string
	body     []stmt
}

// declStmt is a property declaration.
type declStmt struct {
	base
	name  string
	value string
}

// varStmt assigns a variable.
type varStmt struct {
	base
	name        string
	value       string
	defaultFlag bool
	globalFlag  bool
}

// commentStmt is a /* */ comment. Silent // comments are dropped while
// parsing.
type commentStmt struct {
	base
	text string
}

// atStmt is any at-rule without dedicated handling. body is nil for
// statements without a block.
type atStmt struct {
	base
	name    string
	prelude string
	body    []stmt
	block   bool
}

type param struct {
	name     string
	def      string
	hasDef   bool
	variadic bool
}

type mixinStmt struct {
	base
	name   string
	params []param
	body   []stmt
}

type includeStmt struct {
	base
	name    string
	args    string
	content []stmt
	// hasContent distinguishes an empty content block from none.
	hasContent bool
}

type contentStmt struct{ base }

type functionStmt struct {
	base
	name   string
	params []param
	body   []stmt
}

type returnStmt struct {
	base
	value string
}

type ifStmt struct {
	base
	cond string
	body []stmt
	// elseBody holds the @else branch; an "@else if" is a nested ifStmt.
	elseBody []stmt
}

type eachStmt struct {
	base
	vars []string
	list string
	body []stmt
}

type forStmt struct {
	base
	variable  string
	from      string
	to        string
	inclusive bool
	body      []stmt
}

type whileStmt struct {
	base
	cond string
	body []stmt
}

type extendStmt struct {
	base
	selector string
	optional bool
}

type importStmt struct {
	base
	args string
}

type messageStmt struct {
	base
	kind  string
	value string
}
