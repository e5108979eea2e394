package cache

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/resultstore"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

const entryVersion = 1

// entry is the persisted form of a record. Complete is the completion marker;
// only successful runs are ever written.
type entry struct {
	Version     int                     `json:"version"`
	Fingerprint string                  `json:"fingerprint"`
	Node        string                  `json:"node"`
	CompletedAt time.Time               `json:"completed_at"`
	Complete    bool                    `json:"complete"`
	Outputs     map[string]encodedValue `json:"outputs"`
}

type encodedValue struct {
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
}

func encodeRecord(rec *resultstore.Record) ([]byte, error) {
	e := entry{
		Version:     entryVersion,
		Fingerprint: rec.Fingerprint.String(),
		Node:        rec.Node,
		CompletedAt: rec.CompletedAt.UTC(),
		Complete:    true,
		Outputs:     make(map[string]encodedValue, len(rec.Outputs)),
	}
	for name, v := range rec.Outputs {
		ty, err := ctyjson.MarshalType(v.Type())
		if err != nil {
			return nil, fmt.Errorf("encode output %q type: %w", name, err)
		}
		val, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return nil, fmt.Errorf("encode output %q: %w", name, err)
		}
		e.Outputs[name] = encodedValue{Type: ty, Value: val}
	}
	return json.Marshal(e)
}

// decodeRecord parses data and checks that it belongs to fp.
func decodeRecord(fp fingerprint.Fingerprint, data []byte) (*resultstore.Record, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, &CorruptionError{Fingerprint: fp, Reason: "undecodable entry", Err: err}
	}
	if e.Version != entryVersion {
		return nil, &CorruptionError{Fingerprint: fp, Reason: fmt.Sprintf("unsupported entry version %d", e.Version)}
	}
	if e.Fingerprint != fp.String() {
		return nil, &CorruptionError{Fingerprint: fp, Reason: "entry fingerprint does not match its key"}
	}
	if !e.Complete {
		return nil, &CorruptionError{Fingerprint: fp, Reason: "entry is not marked complete"}
	}

	outputs := make(map[string]cty.Value, len(e.Outputs))
	for name, ev := range e.Outputs {
		ty, err := ctyjson.UnmarshalType(ev.Type)
		if err != nil {
			return nil, &CorruptionError{Fingerprint: fp, Reason: fmt.Sprintf("output %q has an invalid type", name), Err: err}
		}
		v, err := ctyjson.Unmarshal(ev.Value, ty)
		if err != nil {
			return nil, &CorruptionError{Fingerprint: fp, Reason: fmt.Sprintf("output %q has an invalid value", name), Err: err}
		}
		outputs[name] = v
	}

	return &resultstore.Record{
		Node:        e.Node,
		Outputs:     outputs,
		Fingerprint: fp,
		CompletedAt: e.CompletedAt,
	}, nil
}
