// Package config defines the format-agnostic configuration model: tool
// manifests and the pipeline (inputs, nodes, outputs) built from them,
// along with the Loader interface implemented per file format.
//
// The `config.Model` is the single source of truth for the `builder`
// package. Concrete loaders, such as the HCL one, live in separate packages.
package config
