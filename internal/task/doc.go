// Package task defines the unit of work executed by the pipeline graph.
//
// A Descriptor is the immutable specification of one node's work: the tool it
// wraps, the named input slots it accepts, the named outputs it promises, and
// the Invoker that performs it. External tools, in-process transform
// functions, and the input/output boundary nodes all share this one shape, so
// the executor treats them uniformly for resolution, fingerprinting and
// caching.
package task
