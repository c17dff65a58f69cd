// Package types implements the type universe described in spec.md §3/§4.1:
// a hash-consed set of type descriptors plus the layout engine that queries
// a backend data layout for size/alignment and detects illegal by-value
// recursion. The interner is the sole constructor of *Type — two calls with
// equal structural arguments always return the same pointer (spec.md
// Testable Property 1).
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the tagged union of type descriptors (spec.md §3).
type Kind int

const (
	KindBool Kind = iota
	KindInteger
	KindFloat
	KindComplex
	KindPointer
	KindCodePointer
	KindCCodePointer
	KindArray
	KindVec
	KindTuple
	KindUnion
	KindRecord
	KindVariant
	KindStatic
	KindEnum
	KindNewType
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindComplex:
		return "Complex"
	case KindPointer:
		return "Pointer"
	case KindCodePointer:
		return "CodePointer"
	case KindCCodePointer:
		return "CCodePointer"
	case KindArray:
		return "Array"
	case KindVec:
		return "Vec"
	case KindTuple:
		return "Tuple"
	case KindUnion:
		return "Union"
	case KindRecord:
		return "Record"
	case KindVariant:
		return "Variant"
	case KindStatic:
		return "Static"
	case KindEnum:
		return "Enum"
	case KindNewType:
		return "NewType"
	default:
		return "?"
	}
}

// CallingConv names a C-ABI calling convention usable by a CCodePointer.
type CallingConv int

const (
	CCDefault CallingConv = iota
	CCStdCall
	CCFastCall
	CCThisCall
)

func (c CallingConv) String() string {
	switch c {
	case CCStdCall:
		return "stdcall"
	case CCFastCall:
		return "fastcall"
	case CCThisCall:
		return "thiscall"
	default:
		return "ccall"
	}
}

// Type is a single hash-consed type descriptor. Only the interner
// constructs these; every field below is set once at construction and
// never mutated except the lazily-materialized fields/layout, which are
// populated at most once (guarded by the *Ready flags since the driver is
// single-threaded, per spec.md §5).
type Type struct {
	kind Kind

	// Integer / Float / Complex
	bits      int
	signed    bool
	imaginary bool

	// Pointer
	pointee *Type

	// CodePointer
	argTypes    []*Type
	returnIsRef []bool
	returnTypes []*Type

	// CCodePointer
	cc          CallingConv
	hasVarArgs  bool
	cReturnType *Type // nil means void

	// Array / Vec
	elem *Type
	n    int64

	// Tuple / Union
	members []*Type

	// Record / Variant / Enum / NewType
	declRef     any // *hir.RecordDecl / *hir.VariantDecl / *hir.EnumDecl / *hir.NewTypeDecl
	newTypeBase *Type
	name        string
	params      []StaticObject

	// lazily materialized
	fieldsReady    bool
	fields         []Field
	variantReady   bool
	variantMembers []*Type

	layoutReady bool
	layout      Layout
	recursion   recursionState
}

type recursionState int

const (
	recursionUnchecked recursionState = iota
	recursionInProgress
	recursionOK
)

// Kind returns the discriminant of this descriptor.
func (t *Type) Kind() Kind { return t.kind }

// Equals holds by construction: interned descriptors with equal structural
// arguments are pointer-identical, so equality is always identity.
func (t *Type) Equals(o *Type) bool { return t == o }

// Pointee returns the pointed-to type. Valid for KindPointer only.
func (t *Type) Pointee() *Type { return t.pointee }

// Bits returns the bit width. Valid for KindInteger, KindFloat, KindComplex.
func (t *Type) Bits() int { return t.bits }

// Signed reports signedness. Valid for KindInteger.
func (t *Type) Signed() bool { return t.signed }

// Imaginary reports whether a KindFloat is the imaginary-unit flavor.
func (t *Type) Imaginary() bool { return t.imaginary }

// Elem returns the element type. Valid for KindArray, KindVec.
func (t *Type) Elem() *Type { return t.elem }

// Len returns the element count. Valid for KindArray, KindVec.
func (t *Type) Len() int64 { return t.n }

// Members returns the tuple element types or union member types.
func (t *Type) Members() []*Type { return t.members }

// ArgTypes returns a CodePointer's parameter types.
func (t *Type) ArgTypes() []*Type { return t.argTypes }

// ReturnIsRef returns a CodePointer's per-position return-by-ref flags.
func (t *Type) ReturnIsRef() []bool { return t.returnIsRef }

// ReturnTypes returns a CodePointer's return types.
func (t *Type) ReturnTypes() []*Type { return t.returnTypes }

// CallingConvention returns the C calling convention. Valid for KindCCodePointer.
func (t *Type) CallingConvention() CallingConv { return t.cc }

// HasVarArgs reports whether a CCodePointer accepts C varargs.
func (t *Type) HasVarArgs() bool { return t.hasVarArgs }

// CReturnType returns a CCodePointer's return type, or nil for void.
func (t *Type) CReturnType() *Type { return t.cReturnType }

// NewTypeBase returns the wrapped type. Valid for KindNewType.
func (t *Type) NewTypeBase() *Type { return t.newTypeBase }

// Name returns the declared name for Record/Variant/Enum/NewType/Static.
func (t *Type) Name() string { return t.name }

// Params returns the resolved static-object parameter sequence for a
// Record or Variant instantiation.
func (t *Type) Params() []StaticObject { return t.params }

// String renders a debug/snapshot form of the type, grounded on the
// teacher's Type.String() idiom (integers render as e.g. "Int32" or
// "UInt8").
func (t *Type) String() string {
	switch t.kind {
	case KindBool:
		return "Bool"
	case KindInteger:
		sign := "Int"
		if !t.signed {
			sign = "UInt"
		}
		return fmt.Sprintf("%s%d", sign, t.bits)
	case KindFloat:
		if t.imaginary {
			return fmt.Sprintf("Imag%d", t.bits)
		}
		return fmt.Sprintf("Float%d", t.bits)
	case KindComplex:
		return fmt.Sprintf("Complex%d", t.bits)
	case KindPointer:
		return "Pointer[" + t.pointee.String() + "]"
	case KindCodePointer:
		return "CodePointer" + argList(t.argTypes)
	case KindCCodePointer:
		return "CCodePointer(" + t.cc.String() + ")" + argList(t.argTypes)
	case KindArray:
		return fmt.Sprintf("Array[%s,%d]", t.elem.String(), t.n)
	case KindVec:
		return fmt.Sprintf("Vec[%s,%d]", t.elem.String(), t.n)
	case KindTuple:
		return "Tuple" + argList(t.members)
	case KindUnion:
		return "Union" + argList(t.members)
	case KindRecord:
		return t.name + argList(typesOfParams(t.params))
	case KindVariant:
		return t.name + argList(typesOfParams(t.params))
	case KindEnum:
		return t.name
	case KindStatic:
		return "Static[" + t.name + "]"
	case KindNewType:
		return t.name
	default:
		return "?"
	}
}

func argList(ts []*Type) string {
	if len(ts) == 0 {
		return "[]"
	}
	names := make([]string, len(ts))
	for i, x := range ts {
		names[i] = x.String()
	}
	return "[" + strings.Join(names, ",") + "]"
}

func typesOfParams(params []StaticObject) []*Type {
	out := make([]*Type, 0, len(params))
	for _, p := range params {
		if p.Kind == StaticKindType {
			out = append(out, p.Type)
		}
	}
	return out
}

// DeclRef returns the originating declaration node for Record, Variant,
// Enum, and NewType kinds (an *hir.RecordDecl and friends); callers type-
// assert to the shape they expect. Returns nil for all other kinds.
func (t *Type) DeclRef() any { return t.declRef }
