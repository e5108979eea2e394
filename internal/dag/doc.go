// Package dag holds the pipeline graph: nodes wrapping task descriptors,
// edges carrying one node's named output (optionally refined by a selector)
// into another node's named input, literal bindings, and the set of requested
// outputs.
//
// A Graph is built explicitly with AddNode, Connect, BindLiteral and
// MarkOutput, then finalized with Validate before any execution. Construction
// mistakes surface immediately as configuration errors; cycles and missing
// bindings surface from Validate.
package dag
