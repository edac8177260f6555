package hcl

import (
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// EvalContext builds the expression context of one task invocation. Besides
// vars, expressions can read `pkg` (the package manifest) and `env` (the
// process environment).
func (c *Converter) EvalContext(pkg cty.Value, vars map[string]cty.Value) *hcl.EvalContext {
	if pkg.IsNull() {
		pkg = cty.EmptyObjectVal
	}
	variables := map[string]cty.Value{
		"pkg": pkg,
		"env": environment(),
	}
	for k, v := range vars {
		variables[k] = v
	}
	return &hcl.EvalContext{
		Variables: variables,
		Functions: Functions(c.now),
	}
}

// Functions is the function table available to Gridfile expressions.
func Functions(now func() time.Time) map[string]function.Function {
	return map[string]function.Function{
		"concat":     stdlib.ConcatFunc,
		"format":     stdlib.FormatFunc,
		"formatdate": stdlib.FormatDateFunc,
		"join":       stdlib.JoinFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"length":     stdlib.LengthFunc,
		"lower":      stdlib.LowerFunc,
		"replace":    stdlib.ReplaceFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"upper":      stdlib.UpperFunc,
		"timestamp":  timestampFunc(now),
		"today":      todayFunc(now),
	}
}

// todayFunc formats the current local date with a dateformat mask, e.g.
// today("yyyy-mm-dd"). Without a mask it uses "yyyy-mm-dd".
func todayFunc(now func() time.Time) function.Function {
	return function.New(&function.Spec{
		Description: "Formats the current date using a dateformat mask.",
		VarParam: &function.Parameter{
			Name: "mask",
			Type: cty.String,
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			mask := "yyyy-mm-dd"
			if len(args) > 0 {
				mask = args[0].AsString()
			}
			return cty.StringVal(FormatDate(now(), mask)), nil
		},
	})
}

// timestampFunc returns the current time in RFC 3339 format, UTC.
func timestampFunc(now func() time.Time) function.Function {
	return function.New(&function.Spec{
		Description: "Returns the current UTC time in RFC 3339 format.",
		Params:      []function.Parameter{},
		Type:        function.StaticReturnType(cty.String),
		Impl: func(_ []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.StringVal(now().UTC().Format(time.RFC3339)), nil
		},
	})
}

func environment() cty.Value {
	vars := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	if len(vars) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	return cty.MapVal(vars)
}
