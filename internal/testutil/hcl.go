package testutil

import (
	"fmt"
	"sort"
	"strings"
)

// Manifest renders a tool block. inputs and outputs map slot names to HCL
// type expressions.
func Manifest(tool, handler string, inputs, outputs map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tool %q {\n  handler = %q\n", tool, handler)
	for _, name := range sortedKeys(inputs) {
		fmt.Fprintf(&b, "  input %q { type = %s }\n", name, inputs[name])
	}
	for _, name := range sortedKeys(outputs) {
		fmt.Fprintf(&b, "  output %q { type = %s }\n", name, outputs[name])
	}
	b.WriteString("}\n")
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
