package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads every configuration file found under the given paths
	// (files or directories), merges them into one Model and returns a
	// matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter binds cty values to the Go types used by handlers.
type Converter interface {
	// DecodeParams populates target, a pointer to a struct whose fields
	// carry `cty:"name"` tags, from a tool's params.
	DecodeParams(ctx context.Context, target any, params map[string]cty.Value) error

	// ToCtyValue converts a native Go value (like a map[string]any) into its
	// equivalent cty.Value.
	ToCtyValue(v any) (cty.Value, error)
}
