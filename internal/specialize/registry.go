package specialize

import (
	"fmt"
	"strings"

	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// Registry is the process-wide table of InvokeEntry objects keyed by
// (callable, args_key, temp_key) (spec.md §3 "Ownership": InvokeEntrys
// live in a global registry keyed as above; monotonic, never evicted
// within a compilation).
type Registry struct {
	entries map[string]*InvokeEntry
}

// NewRegistry creates an empty table.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*InvokeEntry)}
}

func entryKey(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%p/", callable)
	for _, t := range argsKey {
		fmt.Fprintf(&b, "%p,", t)
	}
	b.WriteByte('/')
	for _, tm := range tempKey {
		fmt.Fprintf(&b, "%d,", tm)
	}
	return b.String()
}

// LookupOrCreate returns the existing entry for this key, or installs and
// returns a fresh unanalyzed one. The bool reports whether the entry
// already existed (and so may already be analyzed).
func (r *Registry) LookupOrCreate(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) (*InvokeEntry, bool) {
	key := entryKey(callable, argsKey, tempKey)
	if e, ok := r.entries[key]; ok {
		return e, true
	}
	e := &InvokeEntry{Callable: callable, ArgsKey: argsKey, TempKey: tempKey}
	r.entries[key] = e
	return e, false
}

// All returns every entry currently in the table, for the lowering driver
// to walk (spec.md §4.4: "For each InvokeEntry not call_by_name, emit a
// function...").
func (r *Registry) All() []*InvokeEntry {
	out := make([]*InvokeEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}
