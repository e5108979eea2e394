package command

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

const (
	formatString  = "string"
	formatLines   = "lines"
	formatNumbers = "numbers"
)

// expand substitutes placeholders in the argv template. An element that is
// exactly one list placeholder expands to one argument per element; a null
// optional input drops such an element.
func (r *Runner) expand(req *task.Request) ([]string, error) {
	var argv []string
	for _, arg := range r.params.Argv {
		if m := placeholder.FindStringSubmatch(arg); m != nil && m[0] == arg {
			words, err := r.words(req, m[1])
			if err != nil {
				return nil, err
			}
			argv = append(argv, words...)
			continue
		}

		var expandErr error
		out := placeholder.ReplaceAllStringFunc(arg, func(s string) string {
			words, err := r.words(req, s[1:len(s)-1])
			if err != nil && expandErr == nil {
				expandErr = err
			}
			return strings.Join(words, " ")
		})
		if expandErr != nil {
			return nil, expandErr
		}
		argv = append(argv, out)
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("command line expands to nothing")
	}
	return argv, nil
}

func (r *Runner) words(req *task.Request, name string) ([]string, error) {
	switch {
	case name == "workdir":
		return []string{req.WorkDir}, nil
	case strings.HasPrefix(name, "out."):
		slot := strings.TrimPrefix(name, "out.")
		file, ok := r.params.Files[slot]
		if !ok {
			return nil, fmt.Errorf("placeholder {%s}: output '%s' has no file", name, slot)
		}
		if filepath.IsAbs(file) {
			return []string{file}, nil
		}
		return []string{filepath.Join(req.WorkDir, file)}, nil
	}

	v, ok := req.Inputs[name]
	if !ok {
		return nil, fmt.Errorf("placeholder {%s} names no input", name)
	}
	return toWords(v)
}

func toWords(v cty.Value) ([]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		var words []string
		for _, elem := range v.AsValueSlice() {
			w, err := toWords(elem)
			if err != nil {
				return nil, err
			}
			words = append(words, w...)
		}
		return words, nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return nil, fmt.Errorf("cannot use %s value on a command line: %w", ty.FriendlyName(), err)
	}
	return []string{s.AsString()}, nil
}

// parseStdout converts captured stdout according to format.
func parseStdout(out, format string) (cty.Value, error) {
	switch format {
	case formatLines:
		var vals []cty.Value
		for _, line := range strings.Split(out, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				vals = append(vals, cty.StringVal(line))
			}
		}
		if len(vals) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		return cty.ListVal(vals), nil
	case formatNumbers:
		fields := strings.Fields(out)
		if len(fields) == 0 {
			return cty.NilVal, fmt.Errorf("expected numbers, got empty output")
		}
		vals := make([]cty.Value, len(fields))
		for i, f := range fields {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return cty.NilVal, fmt.Errorf("field %d: %w", i, err)
			}
			vals[i] = cty.NumberFloatVal(n)
		}
		return cty.ListVal(vals), nil
	default:
		return cty.StringVal(strings.TrimRight(out, "\n")), nil
	}
}
