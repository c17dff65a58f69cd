// Package values implements the analysis-time and lowering-time value
// descriptor model of spec.md §3: PValue/MultiPValue (what the analyzer
// produces) and CValue/MultiCValue (what the lowering driver produces),
// plus the compile-time constant holder shared by both.
package values

import "github.com/clay-lang/claycore/internal/types"

// Tempness classifies how a call site wants an argument position bound:
// as an lvalue, as an rvalue, or without caring (spec.md §3 InvokeEntry).
type Tempness int

const (
	Lvalue Tempness = iota
	Rvalue
	DontCare
)

func (t Tempness) String() string {
	switch t {
	case Lvalue:
		return "lvalue"
	case Rvalue:
		return "rvalue"
	default:
		return "dontcare"
	}
}

// PValue is the analyzer's per-position result: a type plus an is-temp
// flag. IsTemp=true means rvalue (the site owns its storage); false means
// lvalue (a borrow into existing storage).
type PValue struct {
	Type   *types.Type
	IsTemp bool
}

// Tempness reports this value's tempness as the specialization engine's key
// type: IsTemp maps to Rvalue, otherwise Lvalue. PValue never carries
// DontCare — that tempness only appears as a formal-parameter declaration.
func (p PValue) Tempness() Tempness {
	if p.IsTemp {
		return Rvalue
	}
	return Lvalue
}

// MultiPValue is an ordered sequence of PValues, e.g. the result of
// analyzing a multi-return call site.
type MultiPValue []PValue

// Types extracts the args_key a MultiPValue would contribute to an
// InvokeEntry lookup.
func (m MultiPValue) Types() []*types.Type {
	out := make([]*types.Type, len(m))
	for i, p := range m {
		out[i] = p.Type
	}
	return out
}

// TempKey extracts the temp_key a MultiPValue would contribute to an
// InvokeEntry lookup.
func (m MultiPValue) TempKey() []Tempness {
	out := make([]Tempness, len(m))
	for i, p := range m {
		out[i] = p.Tempness()
	}
	return out
}
