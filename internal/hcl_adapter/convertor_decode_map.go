package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// decodeMap decodes a map or object into a Go map with string keys.
func (c *Converter) decodeMap(ctx context.Context, val cty.Value, manifestType cty.Type, goPtr reflect.Value) error {
	ty := val.Type()
	if !ty.IsMapType() && !ty.IsObjectType() {
		return fmt.Errorf("type mismatch: cannot decode %s into Go map %s", ty.FriendlyName(), goPtr.Type().String())
	}

	// map[string]any needs no per-element typing.
	if goPtr.Type() == reflect.TypeOf((map[string]any)(nil)) {
		native, err := ctyToNative(val)
		if err != nil {
			return err
		}
		if native != nil {
			goPtr.Set(reflect.ValueOf(native))
		}
		return nil
	}

	logger := ctxlog.FromContext(ctx).With("go_type", goPtr.Type().String(), "cty_type", ty.FriendlyName())
	logger.Debug("Decoding into typed Go map.")

	newMap := reflect.MakeMapWithSize(goPtr.Type(), val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		key, elem := it.Element()
		elemType := elem.Type()
		if manifestType.IsMapType() {
			elemType = manifestType.ElementType()
		}

		ptr := reflect.New(goPtr.Type().Elem())
		if err := c.decode(ctx, elem, elemType, ptr.Interface()); err != nil {
			return fmt.Errorf("failed to decode map element '%s': %w", key.AsString(), err)
		}
		newMap.SetMapIndex(reflect.ValueOf(key.AsString()), ptr.Elem())
	}
	goPtr.Set(newMap)
	return nil
}
