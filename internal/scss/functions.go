package scss

import (
	"fmt"
	"math"
	"strings"
)

type builtinFunc func(c *compiler, args []Value) (Value, error)

type builtin struct {
	params   []string
	required int
	// variadic collects every positional argument into args[0].
	variadic bool
	fn       builtinFunc
	// cssFallback reports arguments for which the call is a plain CSS
	// function of the same name, such as the grayscale() filter.
	cssFallback func(args []Value) bool
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"rgb":  {params: []string{"red", "green", "blue"}, required: 1, fn: fnRGB},
		"rgba": {params: []string{"red", "green", "blue", "alpha"}, required: 1, fn: fnRGB},
		"hsl":  {params: []string{"hue", "saturation", "lightness"}, required: 3, fn: fnHSL},
		"hsla": {params: []string{"hue", "saturation", "lightness", "alpha"}, required: 3, fn: fnHSL},

		"red":   {params: []string{"color"}, required: 1, fn: channel(func(c Color) float64 { return math.Round(c.R) })},
		"green": {params: []string{"color"}, required: 1, fn: channel(func(c Color) float64 { return math.Round(c.G) })},
		"blue":  {params: []string{"color"}, required: 1, fn: channel(func(c Color) float64 { return math.Round(c.B) })},
		"alpha": {params: []string{"color"}, required: 1, fn: channel(func(c Color) float64 { return c.A }),
			cssFallback: notColor},
		"opacity": {params: []string{"color"}, required: 1, fn: channel(func(c Color) float64 { return c.A }),
			cssFallback: notColor},

		"lighten":    {params: []string{"color", "amount"}, required: 2, fn: adjustHSL(0, 0, 1)},
		"darken":     {params: []string{"color", "amount"}, required: 2, fn: adjustHSL(0, 0, -1)},
		"saturate":   {params: []string{"color", "amount"}, required: 1, fn: adjustHSL(0, 1, 0), cssFallback: notColor},
		"desaturate": {params: []string{"color", "amount"}, required: 2, fn: adjustHSL(0, -1, 0)},
		"adjust-hue": {params: []string{"color", "degrees"}, required: 2, fn: adjustHSL(1, 0, 0)},
		"complement": {params: []string{"color"}, required: 1, fn: fnComplement},
		"grayscale":  {params: []string{"color"}, required: 1, fn: fnGrayscale, cssFallback: notColor},
		"invert":     {params: []string{"color", "weight"}, required: 1, fn: fnInvert, cssFallback: notColor},
		"mix":        {params: []string{"color1", "color2", "weight"}, required: 2, fn: fnMix},

		"opacify":       {params: []string{"color", "amount"}, required: 2, fn: adjustAlpha(1)},
		"fade-in":       {params: []string{"color", "amount"}, required: 2, fn: adjustAlpha(1)},
		"transparentize": {params: []string{"color", "amount"}, required: 2, fn: adjustAlpha(-1)},
		"fade-out":      {params: []string{"color", "amount"}, required: 2, fn: adjustAlpha(-1)},

		"percentage": {params: []string{"number"}, required: 1, fn: fnPercentage},
		"round":      {params: []string{"number"}, required: 1, fn: mathFn(math.Round)},
		"ceil":       {params: []string{"number"}, required: 1, fn: mathFn(math.Ceil)},
		"floor":      {params: []string{"number"}, required: 1, fn: mathFn(math.Floor)},
		"abs":        {params: []string{"number"}, required: 1, fn: mathFn(math.Abs)},
		"min":        {params: []string{"numbers"}, variadic: true, fn: extremum(-1), cssFallback: notComparable},
		"max":        {params: []string{"numbers"}, variadic: true, fn: extremum(1), cssFallback: notComparable},

		"if": {params: []string{"condition", "if-true", "if-false"}, required: 3, fn: func(_ *compiler, a []Value) (Value, error) {
			if truthy(a[0]) {
				return a[1], nil
			}
			return a[2], nil
		}},

		"unquote":  {params: []string{"string"}, required: 1, fn: fnUnquote},
		"quote":    {params: []string{"string"}, required: 1, fn: fnQuote},
		"type-of":  {params: []string{"value"}, required: 1, fn: fnTypeOf},
		"unit":     {params: []string{"number"}, required: 1, fn: fnUnit},
		"unitless": {params: []string{"number"}, required: 1, fn: fnUnitless},
		"comparable": {params: []string{"number1", "number2"}, required: 2, fn: fnComparable},

		"length": {params: []string{"list"}, required: 1, fn: fnLength},
		"nth":    {params: []string{"list", "n"}, required: 2, fn: fnNth},
		"join":   {params: []string{"list1", "list2", "separator"}, required: 2, fn: fnJoin},
		"append": {params: []string{"list", "val", "separator"}, required: 2, fn: fnAppend},
		"index":  {params: []string{"list", "value"}, required: 2, fn: fnIndex},
	}
}

// bind maps positional and keyword arguments onto the parameter list.
// Missing optional parameters are nil.
func (b builtin) bind(name string, positional []Value, named map[string]Value) ([]Value, error) {
	if b.variadic {
		if len(named) > 0 {
			return nil, fmt.Errorf("%s() doesn't support keyword arguments", name)
		}
		return []Value{List{Items: positional, Comma: true}}, nil
	}
	if len(positional) > len(b.params) {
		return nil, fmt.Errorf("only %d arguments allowed for %s(), but %d were passed", len(b.params), name, len(positional))
	}
	args := make([]Value, len(b.params))
	copy(args, positional)
	for k, v := range named {
		idx := -1
		for i, p := range b.params {
			if p == k {
				idx = i
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("no argument named $%s for %s()", k, name)
		}
		if args[idx] != nil {
			return nil, fmt.Errorf("argument $%s was passed both by position and by name", k)
		}
		args[idx] = v
	}
	for i := 0; i < b.required; i++ {
		if args[i] == nil {
			return nil, fmt.Errorf("missing argument $%s for %s()", b.params[i], name)
		}
	}
	return args, nil
}

func notColor(args []Value) bool {
	_, ok := args[0].(Color)
	return !ok
}

func notComparable(args []Value) bool {
	items := asList(args[0]).Items
	if len(items) == 0 {
		return true
	}
	first, ok := items[0].(Number)
	if !ok {
		return true
	}
	for _, it := range items[1:] {
		n, ok := it.(Number)
		if !ok {
			return true
		}
		if _, err := compareNumbers(first, n); err != nil {
			return true
		}
	}
	return false
}

func argColor(v Value, name string) (Color, error) {
	c, ok := v.(Color)
	if !ok {
		return Color{}, fmt.Errorf("$%s: %s is not a color", name, typeOf(v))
	}
	return c, nil
}

func argNumber(v Value, name string) (Number, error) {
	n, ok := v.(Number)
	if !ok {
		return Number{}, fmt.Errorf("$%s: %s is not a number", name, typeOf(v))
	}
	return n, nil
}

// percent reads an amount written as 10% or 10.
func percent(v Value, name string) (float64, error) {
	n, err := argNumber(v, name)
	if err != nil {
		return 0, err
	}
	if n.Unit != "" && n.Unit != "%" {
		return 0, fmt.Errorf("$%s: expected a percentage, got %s%s", name, formatFloat(n.V, 10), n.Unit)
	}
	return n.V, nil
}

// channelValue reads an rgb() channel, allowing percentages.
func channelValue(v Value, name string) (float64, error) {
	n, err := argNumber(v, name)
	if err != nil {
		return 0, err
	}
	if n.Unit == "%" {
		return n.V * 255 / 100, nil
	}
	return n.V, nil
}

func alphaValue(v Value) (float64, error) {
	n, err := argNumber(v, "alpha")
	if err != nil {
		return 0, err
	}
	a := n.V
	if n.Unit == "%" {
		a /= 100
	}
	return math.Max(0, math.Min(1, a)), nil
}

func fnRGB(_ *compiler, a []Value) (Value, error) {
	if col, ok := a[0].(Color); ok {
		col.Orig = ""
		alphaArg := a[1]
		if alphaArg == nil && len(a) > 3 {
			alphaArg = a[3]
		}
		if alphaArg != nil {
			alpha, err := alphaValue(alphaArg)
			if err != nil {
				return nil, err
			}
			col.A = alpha
		}
		return col, nil
	}
	if a[1] == nil || a[2] == nil {
		return nil, fmt.Errorf("missing argument $green or $blue")
	}
	var ch [3]float64
	for i, name := range []string{"red", "green", "blue"} {
		v, err := channelValue(a[i], name)
		if err != nil {
			return nil, err
		}
		ch[i] = v
	}
	col := Color{R: ch[0], G: ch[1], B: ch[2], A: 1}
	if len(a) > 3 && a[3] != nil {
		alpha, err := alphaValue(a[3])
		if err != nil {
			return nil, err
		}
		col.A = alpha
	}
	return col, nil
}

func fnHSL(_ *compiler, a []Value) (Value, error) {
	h, err := argNumber(a[0], "hue")
	if err != nil {
		return nil, err
	}
	s, err := percent(a[1], "saturation")
	if err != nil {
		return nil, err
	}
	l, err := percent(a[2], "lightness")
	if err != nil {
		return nil, err
	}
	alpha := 1.0
	if len(a) > 3 && a[3] != nil {
		if alpha, err = alphaValue(a[3]); err != nil {
			return nil, err
		}
	}
	return fromHSL(h.V, s, l, alpha), nil
}

func channel(get func(Color) float64) builtinFunc {
	return func(_ *compiler, a []Value) (Value, error) {
		col, err := argColor(a[0], "color")
		if err != nil {
			return nil, err
		}
		return Number{V: get(col)}, nil
	}
}

// adjustHSL returns a function shifting hue, saturation or lightness by
// the amount argument times the given signs.
func adjustHSL(hueSign, satSign, lightSign float64) builtinFunc {
	return func(_ *compiler, a []Value) (Value, error) {
		col, err := argColor(a[0], "color")
		if err != nil {
			return nil, err
		}
		var amount float64
		if hueSign != 0 {
			n, err := argNumber(a[1], "degrees")
			if err != nil {
				return nil, err
			}
			amount = n.V
		} else {
			if amount, err = percent(a[1], "amount"); err != nil {
				return nil, err
			}
			if amount < 0 || amount > 100 {
				return nil, fmt.Errorf("$amount: expected a value between 0%% and 100%%, got %s%%", formatFloat(amount, 10))
			}
		}
		h, s, l := toHSL(col)
		h += hueSign * amount
		s = clamp(s+satSign*amount, 0, 100)
		l = clamp(l+lightSign*amount, 0, 100)
		return fromHSL(h, s, l, col.A), nil
	}
}

func fnComplement(_ *compiler, a []Value) (Value, error) {
	col, err := argColor(a[0], "color")
	if err != nil {
		return nil, err
	}
	h, s, l := toHSL(col)
	return fromHSL(h+180, s, l, col.A), nil
}

func fnGrayscale(_ *compiler, a []Value) (Value, error) {
	col, err := argColor(a[0], "color")
	if err != nil {
		return nil, err
	}
	h, _, l := toHSL(col)
	return fromHSL(h, 0, l, col.A), nil
}

func fnInvert(_ *compiler, a []Value) (Value, error) {
	col, err := argColor(a[0], "color")
	if err != nil {
		return nil, err
	}
	inv := Color{R: 255 - col.R, G: 255 - col.G, B: 255 - col.B, A: col.A}
	weight := 100.0
	if a[1] != nil {
		if weight, err = percent(a[1], "weight"); err != nil {
			return nil, err
		}
	}
	return mixColors(inv, col, weight/100), nil
}

func fnMix(_ *compiler, a []Value) (Value, error) {
	c1, err := argColor(a[0], "color1")
	if err != nil {
		return nil, err
	}
	c2, err := argColor(a[1], "color2")
	if err != nil {
		return nil, err
	}
	weight := 50.0
	if a[2] != nil {
		if weight, err = percent(a[2], "weight"); err != nil {
			return nil, err
		}
	}
	return mixColors(c1, c2, weight/100), nil
}

// mixColors blends two colours, weighting c1 by p and taking alpha into
// account.
func mixColors(c1, c2 Color, p float64) Color {
	w := p*2 - 1
	a := c1.A - c2.A
	var w1 float64
	if w*a == -1 {
		w1 = (w + 1) / 2
	} else {
		w1 = ((w+a)/(1+w*a) + 1) / 2
	}
	w2 := 1 - w1
	return Color{
		R: c1.R*w1 + c2.R*w2,
		G: c1.G*w1 + c2.G*w2,
		B: c1.B*w1 + c2.B*w2,
		A: c1.A*p + c2.A*(1-p),
	}
}

func adjustAlpha(sign float64) builtinFunc {
	return func(_ *compiler, a []Value) (Value, error) {
		col, err := argColor(a[0], "color")
		if err != nil {
			return nil, err
		}
		n, err := argNumber(a[1], "amount")
		if err != nil {
			return nil, err
		}
		amount := n.V
		if n.Unit == "%" {
			amount /= 100
		}
		col.Orig = ""
		col.A = clamp(col.A+sign*amount, 0, 1)
		return col, nil
	}
}

func fnPercentage(_ *compiler, a []Value) (Value, error) {
	n, err := argNumber(a[0], "number")
	if err != nil {
		return nil, err
	}
	if n.Unit != "" {
		return nil, fmt.Errorf("$number: expected %s%s to have no units", formatFloat(n.V, 10), n.Unit)
	}
	return Number{V: n.V * 100, Unit: "%"}, nil
}

func mathFn(f func(float64) float64) builtinFunc {
	return func(_ *compiler, a []Value) (Value, error) {
		n, err := argNumber(a[0], "number")
		if err != nil {
			return nil, err
		}
		return Number{V: f(n.V), Unit: n.Unit}, nil
	}
}

func extremum(sign int) builtinFunc {
	return func(_ *compiler, a []Value) (Value, error) {
		items := asList(a[0]).Items
		best := items[0].(Number)
		for _, it := range items[1:] {
			n := it.(Number)
			cmp, err := compareNumbers(n, best)
			if err != nil {
				return nil, err
			}
			if cmp == sign {
				best = n
			}
		}
		return plain(best), nil
	}
}

func fnUnquote(_ *compiler, a []Value) (Value, error) {
	if s, ok := a[0].(String); ok {
		return String{S: s.S}, nil
	}
	return a[0], nil
}

func fnQuote(c *compiler, a []Value) (Value, error) {
	if s, ok := a[0].(String); ok {
		return String{S: s.S, Quoted: true}, nil
	}
	return String{S: c.format.css(a[0]), Quoted: true}, nil
}

func typeOf(v Value) string {
	if v == nil {
		return "null"
	}
	return v.typeName()
}

func fnTypeOf(_ *compiler, a []Value) (Value, error) {
	return String{S: typeOf(a[0])}, nil
}

func fnUnit(_ *compiler, a []Value) (Value, error) {
	n, err := argNumber(a[0], "number")
	if err != nil {
		return nil, err
	}
	return String{S: n.Unit, Quoted: true}, nil
}

func fnUnitless(_ *compiler, a []Value) (Value, error) {
	n, err := argNumber(a[0], "number")
	if err != nil {
		return nil, err
	}
	return Bool(n.Unit == ""), nil
}

func fnComparable(_ *compiler, a []Value) (Value, error) {
	n1, err := argNumber(a[0], "number1")
	if err != nil {
		return nil, err
	}
	n2, err := argNumber(a[1], "number2")
	if err != nil {
		return nil, err
	}
	_, err = compareNumbers(n1, n2)
	return Bool(err == nil), nil
}

func fnLength(_ *compiler, a []Value) (Value, error) {
	return Number{V: float64(len(asList(a[0]).Items))}, nil
}

func fnNth(_ *compiler, a []Value) (Value, error) {
	items := asList(a[0]).Items
	n, err := argNumber(a[1], "n")
	if err != nil {
		return nil, err
	}
	idx := int(n.V)
	if idx < 0 {
		idx = len(items) + idx + 1
	}
	if idx < 1 || idx > len(items) {
		return nil, fmt.Errorf("$n: invalid index %d for a list with %d elements", int(n.V), len(items))
	}
	return items[idx-1], nil
}

func separator(v Value, fallback bool) (bool, error) {
	if v == nil {
		return fallback, nil
	}
	s, ok := v.(String)
	if !ok {
		return false, fmt.Errorf("$separator: must be a string")
	}
	switch strings.ToLower(s.S) {
	case "comma":
		return true, nil
	case "space":
		return false, nil
	case "auto":
		return fallback, nil
	}
	return false, fmt.Errorf(`$separator: must be "space", "comma" or "auto"`)
}

func fnJoin(_ *compiler, a []Value) (Value, error) {
	l1, l2 := asList(a[0]), asList(a[1])
	fallback := l1.Comma
	if len(l1.Items) < 2 {
		fallback = l2.Comma
	}
	comma, err := separator(a[2], fallback)
	if err != nil {
		return nil, err
	}
	items := append(append([]Value{}, l1.Items...), l2.Items...)
	return List{Items: items, Comma: comma}, nil
}

func fnAppend(_ *compiler, a []Value) (Value, error) {
	l := asList(a[0])
	comma, err := separator(a[2], l.Comma)
	if err != nil {
		return nil, err
	}
	items := append(append([]Value{}, l.Items...), a[1])
	return List{Items: items, Comma: comma}, nil
}

func fnIndex(_ *compiler, a []Value) (Value, error) {
	for i, it := range asList(a[0]).Items {
		if equal(it, a[1]) {
			return Number{V: float64(i + 1)}, nil
		}
	}
	return Null{}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// toHSL returns hue in degrees and saturation and lightness in percent.
func toHSL(c Color) (float64, float64, float64) {
	r, g, b := c.R/255, c.G/255, c.B/255
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC
	l := (maxC + minC) / 2

	var h, s float64
	if delta != 0 {
		switch maxC {
		case r:
			h = math.Mod((g-b)/delta, 6)
		case g:
			h = (b-r)/delta + 2
		default:
			h = (r-g)/delta + 4
		}
		h *= 60
		if h < 0 {
			h += 360
		}
		s = delta / (1 - math.Abs(2*l-1))
	}
	return h, s * 100, l * 100
}

func fromHSL(h, s, l, alpha float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s, l = clamp(s, 0, 100)/100, clamp(l, 0, 100)/100

	cc := (1 - math.Abs(2*l-1)) * s
	x := cc * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - cc/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = cc, x, 0
	case h < 120:
		r, g, b = x, cc, 0
	case h < 180:
		r, g, b = 0, cc, x
	case h < 240:
		r, g, b = 0, x, cc
	case h < 300:
		r, g, b = x, 0, cc
	default:
		r, g, b = cc, 0, x
	}
	return Color{R: (r + m) * 255, G: (g + m) * 255, B: (b + m) * 255, A: alpha}
}

var colorNames = map[string][3]float64{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"green":   {0, 128, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
	"gray":    {128, 128, 128},
	"grey":    {128, 128, 128},
	"silver":  {192, 192, 192},
	"maroon":  {128, 0, 0},
	"navy":    {0, 0, 128},
	"teal":    {0, 128, 128},
	"olive":   {128, 128, 0},
	"lime":    {0, 255, 0},
	"aqua":    {0, 255, 255},
	"fuchsia": {255, 0, 255},
}

func namedColor(name string) (Color, bool) {
	lower := strings.ToLower(name)
	if lower == "transparent" {
		return Color{A: 0, Orig: name}, true
	}
	rgb, ok := colorNames[lower]
	if !ok {
		return Color{}, false
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2], A: 1, Orig: name}, true
}
