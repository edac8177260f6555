package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific data binding and type
// conversion implementation. It acts as the bridge between the raw configuration
// and the Go types used by task modules.
type Converter interface {
	// DecodeAttributes evaluates the given attribute expressions and binds
	// them onto the tagged fields of a target Go struct. Attributes without a
	// matching field are rejected.
	DecodeAttributes(
		ctx context.Context,
		target any,
		attrs map[string]hcl.Expression,
		evalCtx *hcl.EvalContext,
	) error

	// EvalContext builds the expression context for a single task invocation.
	// The package value is exposed as `pkg`; vars are added verbatim.
	EvalContext(pkg cty.Value, vars map[string]cty.Value) *hcl.EvalContext

	// RenderTemplate evaluates free text as a template within evalCtx.
	RenderTemplate(src string, evalCtx *hcl.EvalContext) (string, error)
}
