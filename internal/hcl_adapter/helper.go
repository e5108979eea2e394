package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// isExprDefined checks if an HCL expression was actually present in the
// source. gohcl fills omitted optional expressions with zero-width
// placeholders, so a nil check is not enough: a real attribute occupies
// bytes in the file.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName, "hcl_range", r.String(), "is_defined", defined)
	return defined
}

// extractBodyAttributes converts an arguments block into a map of expressions.
func extractBodyAttributes(args *schema.NodeArgs) map[string]hcl.Expression {
	if args == nil || args.Body == nil {
		return nil
	}
	attrs, _ := args.Body.JustAttributes()
	if len(attrs) == 0 {
		return nil
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}

// evalConstant evaluates an expression that may not reference anything.
func evalConstant(expr hcl.Expression) (cty.Value, error) {
	if vars := expr.Variables(); len(vars) > 0 {
		return cty.NilVal, fmt.Errorf("must be a constant, but references %s", vars[0].RootName())
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return val, nil
}

// typeExprToCtyType converts an HCL type expression (`string`,
// `list(number)`, `object({...})`, `any`) into its cty.Type.
func typeExprToCtyType(expr hcl.Expression) (cty.Type, error) {
	ty, diags := typeexpr.TypeConstraint(expr)
	if diags.HasErrors() {
		return cty.DynamicPseudoType, diags
	}
	return ty, nil
}

// translateInputDefinition processes a single tool input block, handling
// its type and default value. An input with a default is optional.
func translateInputDefinition(ctx context.Context, in *schema.InputDefinition, tool string) (*config.InputDefinition, error) {
	def := &config.InputDefinition{
		Name:        in.Name,
		Type:        cty.DynamicPseudoType,
		Description: in.Description,
		Optional:    in.Optional,
	}

	if isExprDefined(ctx, in.Type, "type") {
		parsedType, err := typeExprToCtyType(in.Type)
		if err != nil {
			return nil, fmt.Errorf("in tool '%s', input '%s': %w", tool, in.Name, err)
		}
		def.Type = parsedType
	}

	if isExprDefined(ctx, in.Default, "default") {
		val, err := evalConstant(in.Default)
		if err != nil {
			return nil, fmt.Errorf("invalid default value for input '%s' in tool '%s': %w", in.Name, tool, err)
		}
		if !val.IsNull() {
			def.Default = &val
			def.Optional = true
		}
	}
	return def, nil
}
