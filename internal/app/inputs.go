package app

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// parseInputs converts command line input values. A value that parses as a
// constant HCL expression (a number, a bool, a list, a quoted string) takes
// that value; anything else is taken as a plain string, so file names need
// no quoting.
func parseInputs(raw map[string]string) (map[string]cty.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]cty.Value, len(raw))
	for _, name := range names {
		if !hclsyntax.ValidIdentifier(name) {
			return nil, fmt.Errorf("invalid input name %q", name)
		}
		out[name] = parseInputValue(raw[name])
	}
	return out, nil
}

func parseInputValue(s string) cty.Value {
	expr, diags := hclsyntax.ParseExpression([]byte(s), "<input>", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() || len(expr.Variables()) > 0 {
		return cty.StringVal(s)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() || !v.IsWhollyKnown() || v.IsNull() {
		return cty.StringVal(s)
	}
	return v
}
