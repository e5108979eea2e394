package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// decode populates goVal, a pointer, from val. manifestType is the type the
// value must conform to; pass val.Type() when there is no declared type.
func (c *Converter) decode(ctx context.Context, val cty.Value, manifestType cty.Type, goVal any) error {
	goPtr := reflect.ValueOf(goVal).Elem()
	goType := goPtr.Type()
	logger := ctxlog.FromContext(ctx).With("go_kind", goType.Kind().String())

	// cty.Value fields take the value as is.
	if goType == reflect.TypeOf(cty.Value{}) {
		if val.IsKnown() {
			goPtr.Set(reflect.ValueOf(val))
		}
		return nil
	}
	if !val.IsKnown() || val.IsNull() {
		logger.Debug("Skipping decode for null or unknown value.")
		return nil
	}

	switch goType.Kind() {
	case reflect.Struct:
		return c.decodeStruct(ctx, val, manifestType, goPtr)
	case reflect.Interface:
		native, err := ctyToNative(val)
		if err != nil {
			return err
		}
		if native != nil {
			goPtr.Set(reflect.ValueOf(native))
		}
		return nil
	case reflect.Map:
		return c.decodeMap(ctx, val, manifestType, goPtr)
	case reflect.Slice:
		return c.decodeSlice(ctx, val, goPtr)
	default:
		converted, err := convert.Convert(val, manifestType)
		if err != nil {
			return fmt.Errorf("cannot convert value of type %s to %s: %w", val.Type().FriendlyName(), manifestType.FriendlyName(), err)
		}
		return gocty.FromCtyValue(converted, goVal)
	}
}

// decodeStruct decodes an object into the `cty` tagged fields of a struct.
func (c *Converter) decodeStruct(ctx context.Context, val cty.Value, manifestType cty.Type, goPtr reflect.Value) error {
	goType := goPtr.Type()
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return fmt.Errorf("type mismatch: cannot decode %s into Go struct %s", val.Type().FriendlyName(), goType.String())
	}

	attrs := val.AsValueMap()
	for name, idx := range ParamFields(goType) {
		attr, ok := attrs[name]
		if !ok {
			continue
		}
		attrType := attr.Type()
		if manifestType.IsObjectType() && manifestType.HasAttribute(name) {
			attrType = manifestType.AttributeType(name)
		}
		if err := c.decode(ctx, attr, attrType, goPtr.Field(idx).Addr().Interface()); err != nil {
			return fmt.Errorf("in attribute '%s': %w", name, err)
		}
	}
	return nil
}

// decodeSlice decodes a list or tuple into a Go slice. Tuples are first
// unified into a list of the slice's implied element type.
func (c *Converter) decodeSlice(ctx context.Context, val cty.Value, goPtr reflect.Value) error {
	goType := goPtr.Type()
	ty := val.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return fmt.Errorf("type mismatch: cannot decode cty.%s into Go slice %s", ty.FriendlyName(), goType.String())
	}

	if !ty.IsListType() {
		elemType := cty.DynamicPseudoType
		if goType.Elem() != reflect.TypeOf(cty.Value{}) && goType.Elem().Kind() != reflect.Interface {
			implied, err := gocty.ImpliedType(reflect.Zero(goType.Elem()).Interface())
			if err != nil {
				return fmt.Errorf("cannot imply cty type for slice element %s: %w", goType.Elem().String(), err)
			}
			elemType = implied
		}
		if !elemType.Equals(cty.DynamicPseudoType) {
			listVal, err := convert.Convert(val, cty.List(elemType))
			if err != nil {
				return fmt.Errorf("cannot convert %s to a uniform list for slice %s: %w", ty.FriendlyName(), goType.String(), err)
			}
			val = listVal
		}
	}

	newSlice := reflect.MakeSlice(goType, val.LengthInt(), val.LengthInt())
	it := val.ElementIterator()
	for i := 0; it.Next(); i++ {
		_, elemVal := it.Element()
		if err := c.decode(ctx, elemVal, elemVal.Type(), newSlice.Index(i).Addr().Interface()); err != nil {
			return fmt.Errorf("in slice element %d: %w", i, err)
		}
	}
	goPtr.Set(newSlice)
	return nil
}
