package app

import (
	"errors"
	"io"

	json "github.com/goccy/go-json"
	"github.com/vk/dagflow/internal/executor"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// report is the machine readable summary printed after a run.
type report struct {
	RunID     string                             `json:"run_id"`
	Pipeline  string                             `json:"pipeline"`
	Status    string                             `json:"status"`
	Outputs   map[string]ctyjson.SimpleJSONValue `json:"outputs"`
	Executed  []string                           `json:"executed"`
	CacheHits []string                           `json:"cache_hits"`
	// FirstFailure names the node that failed first; Failures keep that order.
	FirstFailure string          `json:"first_failure,omitempty"`
	Failures     []reportFailure `json:"failures,omitempty"`
	Skipped      []string        `json:"skipped,omitempty"`
}

type reportFailure struct {
	Node  string `json:"node"`
	Slot  string `json:"slot,omitempty"`
	Error string `json:"error"`
}

func newReport(runID, pipeline string, res *executor.Result, runErr error) *report {
	rep := &report{
		RunID:     runID,
		Pipeline:  pipeline,
		Status:    "completed",
		Outputs:   make(map[string]ctyjson.SimpleJSONValue, len(res.Outputs)),
		Executed:  nonNil(res.Executed),
		CacheHits: nonNil(res.CacheHits),
	}
	for name, v := range res.Outputs {
		rep.Outputs[name] = ctyjson.SimpleJSONValue{Value: jsonSafe(v)}
	}

	var re *executor.RunError
	if errors.As(runErr, &re) {
		rep.Status = "failed"
		if len(re.Failures) == 0 {
			rep.Status = "canceled"
		}
		for _, f := range re.Failures {
			rep.Failures = append(rep.Failures, reportFailure{Node: f.Node, Slot: f.Slot, Error: f.Err.Error()})
		}
		if first := re.First(); first != nil {
			rep.FirstFailure = first.Node
		}
		rep.Skipped = re.Skipped
	}
	return rep
}

func writeReport(w io.Writer, runID, pipeline string, res *executor.Result, runErr error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newReport(runID, pipeline, res, runErr))
}

// jsonSafe replaces unknown values, which have no JSON form, with null.
func jsonSafe(v cty.Value) cty.Value {
	if v.IsWhollyKnown() {
		return v
	}
	return cty.NullVal(v.Type())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
