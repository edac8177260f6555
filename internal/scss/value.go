package scss

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is an evaluated SassScript value.
type Value interface {
	typeName() string
}

// Number is a number with an optional unit. Slash holds the operands of a
// literal "a/b" that is printed as written rather than divided.
type Number struct {
	V     float64
	Unit  string
	Slash *[2]Number
}

// Color is an RGBA colour. Orig keeps the literal spelling until the colour
// is modified.
type Color struct {
	R, G, B float64
	A       float64
	Orig    string
}

// String is a quoted or unquoted string.
type String struct {
	S      string
	Quoted bool
}

// List is a space or comma separated list.
type List struct {
	Items []Value
	Comma bool
}

// Bool is true or false.
type Bool bool

// Null is the absence of a value.
type Null struct{}

func (Number) typeName() string { return "number" }
func (Color) typeName() string  { return "color" }
func (String) typeName() string { return "string" }
func (List) typeName() string   { return "list" }
func (Bool) typeName() string   { return "bool" }
func (Null) typeName() string   { return "null" }

func truthy(v Value) bool {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case Null:
		return false
	case nil:
		return false
	}
	return true
}

func isNull(v Value) bool {
	_, ok := v.(Null)
	return ok || v == nil
}

// formatter renders values as CSS text.
type formatter struct {
	precision int
}

func (f formatter) number(n Number) string {
	if n.Slash != nil {
		return f.number(n.Slash[0]) + "/" + f.number(n.Slash[1])
	}
	return formatFloat(n.V, f.precision) + n.Unit
}

func formatFloat(v float64, precision int) string {
	if math.IsInf(v, 0) {
		if v > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

func (f formatter) color(c Color) string {
	if c.Orig != "" {
		return c.Orig
	}
	r, g, b := clampByte(c.R), clampByte(c.G), clampByte(c.B)
	if c.A < 1 {
		if c.A <= 0 && r == 0 && g == 0 && b == 0 {
			return "transparent"
		}
		return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatFloat(c.A, f.precision))
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func clampByte(v float64) int {
	return int(math.Round(math.Max(0, math.Min(255, v))))
}

// css renders v as it appears in a declaration value.
func (f formatter) css(v Value) string {
	switch x := v.(type) {
	case Number:
		return f.number(x)
	case Color:
		return f.color(x)
	case String:
		if x.Quoted {
			return quoteString(x.S)
		}
		return x.S
	case List:
		return f.list(x, f.css)
	case Bool:
		if x {
			return "true"
		}
		return "false"
	}
	return ""
}

// plain renders v for interpolation: strings lose their quotes.
func (f formatter) plain(v Value) string {
	switch x := v.(type) {
	case String:
		return x.S
	case List:
		return f.list(x, f.plain)
	}
	return f.css(v)
}

func (f formatter) list(l List, item func(Value) string) string {
	sep := " "
	if l.Comma {
		sep = ", "
	}
	parts := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		if isNull(it) {
			continue
		}
		s := item(it)
		if inner, ok := it.(List); ok && inner.Comma && !l.Comma {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep)
}

func quoteString(s string) string {
	if strings.Contains(s, `"`) && !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Unit conversion tables; units in the same table are compatible.
var unitGroups = []map[string]float64{
	{"px": 1, "in": 96, "cm": 96 / 2.54, "mm": 96 / 25.4, "q": 96 / 101.6, "pt": 96.0 / 72, "pc": 16},
	{"s": 1000, "ms": 1},
	{"deg": 1, "grad": 0.9, "rad": 180 / math.Pi, "turn": 360},
	{"hz": 1, "khz": 1000},
	{"dpi": 1, "dpcm": 2.54, "dppx": 96},
}

// convert expresses n in unit, reporting whether that is possible.
func convert(n Number, unit string) (float64, bool) {
	if n.Unit == unit || n.Unit == "" || unit == "" {
		return n.V, true
	}
	from, to := strings.ToLower(n.Unit), strings.ToLower(unit)
	for _, g := range unitGroups {
		fa, ok1 := g[from]
		ta, ok2 := g[to]
		if ok1 && ok2 {
			return n.V * fa / ta, true
		}
	}
	return 0, false
}

func plain(n Number) Number { return Number{V: n.V, Unit: n.Unit} }

func addNumbers(op string, a, b Number) (Number, error) {
	unit := a.Unit
	if unit == "" {
		unit = b.Unit
	}
	bv, ok := convert(b, unit)
	if !ok {
		return Number{}, fmt.Errorf("incompatible units %s and %s", a.Unit, b.Unit)
	}
	av, _ := convert(a, unit)
	switch op {
	case "+":
		return Number{V: av + bv, Unit: unit}, nil
	case "-":
		return Number{V: av - bv, Unit: unit}, nil
	default:
		if bv == 0 {
			return Number{V: math.NaN(), Unit: unit}, nil
		}
		return Number{V: math.Mod(av, bv), Unit: unit}, nil
	}
}

func mulNumbers(a, b Number) (Number, error) {
	if a.Unit != "" && b.Unit != "" {
		return Number{}, fmt.Errorf("%s*%s isn't a valid CSS value", a.Unit, b.Unit)
	}
	unit := a.Unit
	if unit == "" {
		unit = b.Unit
	}
	return Number{V: a.V * b.V, Unit: unit}, nil
}

func divNumbers(a, b Number) (Number, error) {
	switch {
	case b.Unit == "":
		return Number{V: a.V / b.V, Unit: a.Unit}, nil
	case a.Unit == "":
		return Number{}, fmt.Errorf("%s isn't a valid CSS value", "1/"+b.Unit)
	}
	bv, ok := convert(b, a.Unit)
	if !ok {
		return Number{}, fmt.Errorf("incompatible units %s and %s", a.Unit, b.Unit)
	}
	return Number{V: a.V / bv}, nil
}

func compareNumbers(a, b Number) (int, error) {
	bv, ok := convert(b, a.Unit)
	if !ok {
		return 0, fmt.Errorf("incompatible units %s and %s", a.Unit, b.Unit)
	}
	switch {
	case fuzzyEqual(a.V, bv):
		return 0, nil
	case a.V < bv:
		return -1, nil
	}
	return 1, nil
}

func fuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-10
}

// equal implements SassScript ==.
func equal(a, b Value) bool {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		if !ok {
			return false
		}
		if (x.Unit == "") != (y.Unit == "") {
			return false
		}
		c, err := compareNumbers(x, y)
		return err == nil && c == 0
	case Color:
		y, ok := b.(Color)
		return ok && clampByte(x.R) == clampByte(y.R) && clampByte(x.G) == clampByte(y.G) &&
			clampByte(x.B) == clampByte(y.B) && fuzzyEqual(x.A, y.A)
	case String:
		y, ok := b.(String)
		return ok && x.S == y.S
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Null:
		return isNull(b)
	case List:
		y, ok := b.(List)
		if !ok || len(x.Items) != len(y.Items) || (x.Comma != y.Comma && len(x.Items) > 1) {
			return false
		}
		for i := range x.Items {
			if !equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// asList views any value as a list.
func asList(v Value) List {
	switch x := v.(type) {
	case List:
		return x
	case Null:
		return List{}
	}
	return List{Items: []Value{v}}
}
