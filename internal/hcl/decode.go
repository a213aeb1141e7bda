package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional attributes with zero-width
// placeholder expressions, so a nil check is insufficient.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// evalStrings evaluates a list attribute. A plain string is split on
// whitespace, so `rhs = "id E"` and `rhs = ["id", "E"]` are equivalent.
// An omitted attribute yields nil; an explicit empty list yields an empty,
// non-nil slice.
func evalStrings(ctx context.Context, evalCtx *hcl.EvalContext, expr hcl.Expression, attr string) ([]string, error) {
	if !isExprDefined(expr) {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", attr, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if val.Type() == cty.String {
		return strings.Fields(val.AsString()), nil
	}
	out := []string{}
	if err := decode(ctx, val, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", attr, err)
	}
	return out, nil
}

// evalString evaluates a string attribute.
func evalString(ctx context.Context, evalCtx *hcl.EvalContext, expr hcl.Expression, attr string) (string, error) {
	if !isExprDefined(expr) {
		return "", nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", fmt.Errorf("%s: %w", attr, diags)
	}
	if val.IsNull() {
		return "", nil
	}
	var out string
	if err := decode(ctx, val, &out); err != nil {
		return "", fmt.Errorf("%s: %w", attr, err)
	}
	return out, nil
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)
	if valPtr.Kind() != reflect.Ptr {
		return fmt.Errorf("target for decoding must be a pointer, got %T", goVal)
	}

	impliedType, err := gocty.ImpliedType(valPtr.Elem().Interface())
	if err != nil {
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
