// Package registry provides the central "glue" for the module system.
//
// The Registry maps the handler names used in tool manifests (e.g.
// "RunCommand") to the compiled Go code that carries a tool out, and holds
// the tool definitions themselves. Modules register their handlers, and
// may register built-in tool definitions, at startup; manifests loaded from
// disk add or replace definitions.
//
// ValidateRegistry then checks that the manifests and the Go code are in
// sync, so a pipeline never fails at run time because of a misnamed
// handler or an unsupported param.
package registry
