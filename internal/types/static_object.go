package types

import "fmt"

// StaticKind discriminates the four shapes a resolved static object can
// take when it appears as a Record/Variant instantiation parameter
// (spec.md §3: "a sequence of resolved static objects (types, integer/bool
// value holders, identifiers, or procedure refs)").
type StaticKind int

const (
	StaticKindType StaticKind = iota
	StaticKindInt
	StaticKindBool
	StaticKindIdent
	StaticKindProc
)

// StaticObject is a comparable value so it can key interner buckets and
// back object_equals/object_hash (§4.1) with plain `==` — every field it
// carries (a *Type, which is itself interned and therefore pointer-
// comparable, or a primitive) is comparable.
type StaticObject struct {
	Kind  StaticKind
	Type  *Type  // StaticKindType
	Int   int64  // StaticKindInt
	Bool  bool   // StaticKindBool
	Ident string // StaticKindIdent
	Proc  string // StaticKindProc: an opaque procedure handle name
}

// NewStaticType wraps a type as a static object.
func NewStaticType(t *Type) StaticObject { return StaticObject{Kind: StaticKindType, Type: t} }

// NewStaticInt wraps an integer constant as a static object.
func NewStaticInt(v int64) StaticObject { return StaticObject{Kind: StaticKindInt, Int: v} }

// NewStaticBool wraps a boolean constant as a static object.
func NewStaticBool(v bool) StaticObject { return StaticObject{Kind: StaticKindBool, Bool: v} }

// NewStaticIdent wraps an identifier as a static object.
func NewStaticIdent(name string) StaticObject {
	return StaticObject{Kind: StaticKindIdent, Ident: name}
}

// NewStaticProc wraps a procedure reference as a static object.
func NewStaticProc(name string) StaticObject { return StaticObject{Kind: StaticKindProc, Proc: name} }

// Equals implements object_equals for a single static object (§4.1). Two
// StaticObjects with matching Kind and matching payload field are equal;
// this is exactly Go's `==` since every field is comparable, but the
// explicit method documents the spec's object_equals contract by name.
func (o StaticObject) Equals(other StaticObject) bool { return o == other }

// String renders a debug form, used by record/variant name mangling in
// Type.String().
func (o StaticObject) String() string {
	switch o.Kind {
	case StaticKindType:
		return o.Type.String()
	case StaticKindInt:
		return fmt.Sprintf("%d", o.Int)
	case StaticKindBool:
		return fmt.Sprintf("%t", o.Bool)
	case StaticKindIdent:
		return "#" + o.Ident
	case StaticKindProc:
		return "@" + o.Proc
	default:
		return "?"
	}
}
