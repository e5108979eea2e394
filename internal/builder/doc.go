/*
Package builder turns a loaded pipeline model into a validated dag.Graph.

Construction runs in two passes:

 1. Node Creation: every `node` block becomes a graph node whose descriptor
    comes from the registry. Pipeline `input` blocks become the fields of a
    single input boundary node named "input", and `output` blocks the fields
    of an output boundary node named "output".

 2. Linking: every argument expression is classified. A reference such as
    `node.tmean.out_file` or `input.realigned_epi` becomes an edge. A call to
    a built-in selector, `second(node.antsreg.forward_transforms)`, becomes an
    edge carrying that selector; an indexed reference, `node.x.files[1]`, is
    shorthand for `index(node.x.files, 1)`. Anything without references is
    evaluated once and bound as a literal.

Input defaults and caller supplied values are bound to the input boundary,
output fields are marked as requested outputs, and the graph is validated
before it is returned.
*/
package builder
