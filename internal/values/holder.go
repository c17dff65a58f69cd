package values

import (
	"bytes"
	"reflect"

	"github.com/clay-lang/claycore/internal/types"
)

// ValueHolder stores a compile-time constant: its type plus its raw byte
// representation. Equality is by type identity plus byte equality; hash
// mixes a byte-sum with the type's identity (spec.md §3). The compile-time
// evaluator (an external collaborator) and internal/literals both produce
// ValueHolders.
type ValueHolder struct {
	Type  *types.Type
	Bytes []byte
}

// NewValueHolder copies data into a fresh holder.
func NewValueHolder(typ *types.Type, data []byte) ValueHolder {
	cp := make([]byte, len(data))
	copy(cp, data)
	return ValueHolder{Type: typ, Bytes: cp}
}

// Equals implements the spec's "equality is by type identity + byte
// equality" rule. Type identity is Go pointer identity (types.Type is
// always hash-consed).
func (h ValueHolder) Equals(o ValueHolder) bool {
	return h.Type == o.Type && bytes.Equal(h.Bytes, o.Bytes)
}

// Hash mixes a byte-sum with the type's identity, as spec.md §3 specifies.
func (h ValueHolder) Hash() uint64 {
	var sum uint64
	for _, b := range h.Bytes {
		sum = sum*31 + uint64(b)
	}
	return sum ^ uint64(reflect.ValueOf(h.Type).Pointer())
}
