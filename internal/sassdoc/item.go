package sassdoc

// Kind is the type of a documented declaration.
type Kind string

const (
	KindFunction    Kind = "function"
	KindMixin       Kind = "mixin"
	KindPlaceholder Kind = "placeholder"
	KindVariable    Kind = "variable"
)

// Kinds lists kinds in display order.
var Kinds = []Kind{KindFunction, KindMixin, KindPlaceholder, KindVariable}

// Item is one documented declaration.
type Item struct {
	Kind Kind
	Name string
	// Value is the initial value of a variable.
	Value string
	File  string
	Line  int
	// Code is the declaration line, such as "@mixin button($bg)".
	Code string

	Description string
	Groups      []string
	Access      string

	Params     []Param
	Props      []Param
	Return     *Return
	Examples   []Example
	See        []string
	Since      []Since
	Deprecated bool
	// DeprecatedNote is the optional message of @deprecated.
	DeprecatedNote string
	Authors    []string
	Todos      []string
	Links      []Link
	Type       string
	Requires   []string
	Throws     []string
	Content    string
	Output     string
	Aliases    []string

	accessSet bool
}

// Param documents an argument of a function or mixin, or a property of a
// map variable.
type Param struct {
	Type        string
	Name        string
	Default     string
	Description string
}

// Return documents a function result.
type Return struct {
	Type        string
	Description string
}

// Example is a usage snippet.
type Example struct {
	Type        string
	Description string
	Code        string
}

// Since records the version an item appeared or changed in.
type Since struct {
	Version     string
	Description string
}

// Link is an external reference.
type Link struct {
	URL     string
	Caption string
}

// Anchor is the HTML fragment identifier of the item.
func (it *Item) Anchor() string {
	return string(it.Kind) + "-" + it.Name
}

// Private reports whether the item is hidden unless private items are
// requested.
func (it *Item) Private() bool {
	return it.Access == "private"
}
