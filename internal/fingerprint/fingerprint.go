// Package fingerprint computes the cache key of a node execution.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"

	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// formatVersion is mixed into every digest. Changing the layout below must
// bump it so old persisted entries stop matching.
const formatVersion = "dagflow-fp-v1"

// Fingerprint is the hex encoded SHA-256 digest identifying one execution.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Short returns the first 12 characters, for logs.
func (f Fingerprint) Short() string {
	if len(f) > 12 {
		return string(f[:12])
	}
	return string(f)
}

// Option adds context outside the descriptor to a fingerprint.
type Option func(*options)

type options struct {
	workDir string
}

// WithWorkDir binds the fingerprint to the directory the node writes its
// files into. Records replayed from it name paths under that directory.
func WithWorkDir(dir string) Option {
	return func(o *options) { o.workDir = dir }
}

// Compute digests the node identity, the descriptor's tool, version, kind,
// params and declared outputs, and the resolved inputs. Params and inputs
// are hashed in sorted name order, so declaration order never matters.
func Compute(node string, desc *task.Descriptor, inputs map[string]cty.Value, opts ...Option) (Fingerprint, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	h := sha256.New()
	w := writer{h: h}

	w.field([]byte(formatVersion))
	w.field([]byte(node))
	w.field([]byte(desc.Kind.String()))
	w.field([]byte(desc.Tool))
	w.field([]byte(desc.Version))

	if err := w.values("param", desc.Params); err != nil {
		return "", err
	}

	outputs := append([]string(nil), desc.Outputs...)
	sort.Strings(outputs)
	w.count(len(outputs))
	for _, o := range outputs {
		w.field([]byte(o))
	}

	if err := w.values("input", inputs); err != nil {
		return "", err
	}
	if o.workDir != "" {
		w.field([]byte("workdir"))
		w.field([]byte(o.workDir))
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

type writer struct {
	h hash.Hash
}

// field writes data prefixed by its length, so adjacent fields can never be
// confused with each other.
func (w writer) field(data []byte) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(data)))
	w.h.Write(prefix[:])
	w.h.Write(data)
}

func (w writer) count(n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	w.field(b[:])
}

func (w writer) values(what string, values map[string]cty.Value) error {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	w.count(len(names))
	for _, name := range names {
		data, err := Canonical(values[name])
		if err != nil {
			return fmt.Errorf("fingerprint %s %q: %w", what, name, err)
		}
		w.field([]byte(name))
		w.field(data)
	}
	return nil
}

// Canonical renders a value as its type followed by its JSON encoding.
// Value-equal inputs always produce the same bytes.
func Canonical(v cty.Value) ([]byte, error) {
	if v.Type() == cty.NilType {
		return nil, fmt.Errorf("value is nil")
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not fully known")
	}
	ty, err := ctyjson.MarshalType(v.Type())
	if err != nil {
		return nil, err
	}
	val, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ty)+len(val)+1)
	out = append(out, ty...)
	out = append(out, 0)
	out = append(out, val...)
	return out, nil
}
