package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// DecodeParams fills the `cty` tagged fields of target from params. A param
// without a matching field is an error; a field without a param keeps its
// zero value.
func (c *Converter) DecodeParams(ctx context.Context, target any, params map[string]cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting params decoding.", "count", len(params))

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() || structVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params target must be a non-nil pointer to a struct, got %T", target)
	}
	structVal = structVal.Elem()

	fields := ParamFields(structVal.Type())
	var unknown []string
	for name := range params {
		if _, ok := fields[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unsupported params: %s", strings.Join(unknown, ", "))
	}

	for name, idx := range fields {
		val, ok := params[name]
		if !ok {
			continue
		}
		fieldVal := structVal.Field(idx)
		if err := c.decode(ctx, val, val.Type(), fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("failed to decode param '%s': %w", name, err)
		}
	}
	logger.Debug("Finished params decoding successfully.")
	return nil
}

// ParamFields maps the `cty` tag names of a struct type to field indexes.
func ParamFields(t reflect.Type) map[string]int {
	out := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("cty"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		out[name] = i
	}
	return out
}
