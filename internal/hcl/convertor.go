package hcl

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// tagName is the struct tag binding Go fields to HCL attribute names. A
// second element "required" makes the attribute mandatory.
const tagName = "grid"

var ctyValueType = reflect.TypeOf(cty.Value{})

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	now func() time.Time
}

// NewConverter creates a new HCL converter using the wall clock.
func NewConverter() *Converter {
	return &Converter{now: time.Now}
}

// NewConverterWithClock creates a converter whose date functions use now.
func NewConverterWithClock(now func() time.Time) *Converter {
	return &Converter{now: now}
}

type boundField struct {
	index    int
	required bool
}

// DecodeAttributes evaluates HCL expressions and populates the tagged fields
// of the provided Go struct using reflection. Fields keep their current value
// when the attribute is absent, so callers pre-populate defaults.
func (c *Converter) DecodeAttributes(
	ctx context.Context,
	target any,
	attrs map[string]hcl.Expression,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL attribute decoding.", "attributes", len(attrs))

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer")
	}
	structVal = structVal.Elem()
	if structVal.Kind() != reflect.Struct {
		return fmt.Errorf("decode target must point to a struct, got %s", structVal.Kind())
	}
	fields := bindFields(structVal.Type())

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags hcl.Diagnostics
	for _, name := range names {
		expr := attrs[name]
		f, ok := fields[name]
		if !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported argument",
				Detail:   fmt.Sprintf("An argument named %q is not expected here.", name),
				Subject:  expr.Range().Ptr(),
			})
			continue
		}

		val, valDiags := expr.Value(evalCtx)
		if valDiags.HasErrors() {
			diags = append(diags, valDiags...)
			continue
		}
		if val.IsNull() {
			continue
		}

		fieldVal := structVal.Field(f.index)
		if err := c.decode(ctx, val, fieldVal.Addr().Interface()); err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Incorrect attribute value type",
				Detail:   fmt.Sprintf("Inappropriate value for attribute %q: %s.", name, err),
				Subject:  expr.Range().Ptr(),
			})
		}
	}

	for name, f := range fields {
		if _, ok := attrs[name]; !ok && f.required {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing required argument",
				Detail:   fmt.Sprintf("The argument %q is required, but no definition was found.", name),
			})
		}
	}

	if diags.HasErrors() {
		return diags
	}
	logger.Debug("Finished HCL attribute decoding successfully.")
	return nil
}

// bindFields maps attribute names to the exported, tagged fields of t.
func bindFields(t reflect.Type) map[string]boundField {
	fields := make(map[string]boundField)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		fields[parts[0]] = boundField{
			index:    i,
			required: len(parts) > 1 && parts[1] == "required",
		}
	}
	return fields
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func (c *Converter) decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)
	if valPtr.Kind() != reflect.Ptr {
		return fmt.Errorf("target for decoding must be a pointer, got %T", goVal)
	}

	if valPtr.Elem().Type() == ctyValueType {
		valPtr.Elem().Set(reflect.ValueOf(val))
		return nil
	}

	impliedType, err := gocty.ImpliedType(valPtr.Elem().Interface())
	if err != nil {
		logger.Debug("Could not imply cty.Type from Go type, attempting direct decoding.", "go_type", valPtr.Elem().Type().String(), "error", err)
		return gocty.FromCtyValue(val, goVal)
	}

	convertedVal, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}

	if !val.Type().Equals(convertedVal.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", convertedVal.Type().FriendlyName(),
		)
	}

	return gocty.FromCtyValue(convertedVal, goVal)
}

// RenderTemplate evaluates src as an HCL template ("${...}" interpolations
// and "%{...}" directives) and returns the resulting string.
func (c *Converter) RenderTemplate(src string, evalCtx *hcl.EvalContext) (string, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(src), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return "", diags
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diags
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("template result: %w", err)
	}
	if val.IsNull() {
		return "", nil
	}
	return val.AsString(), nil
}
