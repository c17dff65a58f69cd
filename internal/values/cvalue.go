package values

import "github.com/clay-lang/claycore/internal/types"

// Handle is an opaque backend SSA value — concretely a pointer-to-value
// handle from internal/backend's llir/llvm adapter. It is declared as `any`
// here so the value-descriptor model stays independent of any one backend
// (spec.md §3: "CValue... where backend_handle denotes an SSA pointer-to-
// value in the lowered IR").
type Handle any

// CValue is the lowering driver's per-position result: a type plus the
// backend handle holding it, plus the forwarded-rvalue bit the forwarding
// discipline (§5, §4.4) uses to decide whether a temporary can be moved
// instead of copied.
type CValue struct {
	Type            *types.Type
	Backend         Handle
	ForwardedRValue bool
}

// MultiCValue is the multi-position form of CValue.
type MultiCValue []CValue

// Types extracts the type list of a MultiCValue.
func (m MultiCValue) Types() []*types.Type {
	out := make([]*types.Type, len(m))
	for i, c := range m {
		out[i] = c.Type
	}
	return out
}
