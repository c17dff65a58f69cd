package types

import (
	"fmt"
	"strings"

	"github.com/clay-lang/claycore/internal/hir"
)

// Interner is the single constructor of *Type descriptors (spec.md §4.1
// Invariants: "the interner is the only constructor"). It is a per-
// compilation singleton; nothing evicts an entry once it is built.
//
// Each kind gets its own bucket keyed by a canonical string built from the
// kind's structural arguments. Subcomponent *Type pointers are already
// interned by the time they participate in a key, so keying on their
// pointer value ("%p") is sound: two structurally equal composite types
// always resolve to the same subcomponent pointers and therefore the same
// key.
type Interner struct {
	bools    *Type
	integers map[string]*Type
	floats   map[string]*Type
	complex  map[string]*Type
	pointers map[string]*Type
	codePtrs map[string]*Type
	cCodePtrs map[string]*Type
	arrays   map[string]*Type
	vecs     map[string]*Type
	tuples   map[string]*Type
	unions   map[string]*Type
	records  map[string]*Type
	variants map[string]*Type
	enums    map[string]*Type
	newTypes map[string]*Type
	statics  map[string]*Type

	resolver FieldResolver
}

// NewInterner creates an empty type universe.
func NewInterner() *Interner {
	return &Interner{
		integers:  make(map[string]*Type),
		floats:    make(map[string]*Type),
		complex:   make(map[string]*Type),
		pointers:  make(map[string]*Type),
		codePtrs:  make(map[string]*Type),
		cCodePtrs: make(map[string]*Type),
		arrays:    make(map[string]*Type),
		vecs:      make(map[string]*Type),
		tuples:    make(map[string]*Type),
		unions:    make(map[string]*Type),
		records:   make(map[string]*Type),
		variants:  make(map[string]*Type),
		enums:     make(map[string]*Type),
		newTypes:  make(map[string]*Type),
		statics:   make(map[string]*Type),
	}
}

// SetFieldResolver installs the callback used to materialize record fields
// and variant members on first query (§4.1). Must be called before any
// Fields/VariantMembers query; the analyzer package supplies the concrete
// resolver since evaluating a computed record body needs full expression
// analysis and the interner itself must stay a leaf component.
func (in *Interner) SetFieldResolver(r FieldResolver) { in.resolver = r }

func ptrKey(t *Type) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%p", t)
}

func ptrListKey(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = ptrKey(t)
	}
	return strings.Join(parts, ",")
}

func boolListKey(bs []bool) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		if b {
			parts[i] = "1"
		} else {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, ",")
}

func staticListKey(params []StaticObject) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%d:%s:%p", p.Kind, p.String(), p.Type)
	}
	return strings.Join(parts, "|")
}

// InternBool returns the sole Bool descriptor.
func (in *Interner) InternBool() *Type {
	if in.bools == nil {
		in.bools = &Type{kind: KindBool}
	}
	return in.bools
}

// InternInteger returns the Integer{bits,signed} descriptor.
func (in *Interner) InternInteger(bits int, signed bool) *Type {
	key := fmt.Sprintf("%d:%t", bits, signed)
	if t, ok := in.integers[key]; ok {
		return t
	}
	t := &Type{kind: KindInteger, bits: bits, signed: signed}
	in.integers[key] = t
	return t
}

// InternFloat returns the Float{bits,imaginary} descriptor.
func (in *Interner) InternFloat(bits int, imaginary bool) *Type {
	key := fmt.Sprintf("%d:%t", bits, imaginary)
	if t, ok := in.floats[key]; ok {
		return t
	}
	t := &Type{kind: KindFloat, bits: bits, imaginary: imaginary}
	in.floats[key] = t
	return t
}

// InternComplex returns the Complex{bits} descriptor.
func (in *Interner) InternComplex(bits int) *Type {
	key := fmt.Sprintf("%d", bits)
	if t, ok := in.complex[key]; ok {
		return t
	}
	t := &Type{kind: KindComplex, bits: bits}
	in.complex[key] = t
	return t
}

// InternPointer returns the Pointer{pointee} descriptor.
func (in *Interner) InternPointer(pointee *Type) *Type {
	key := ptrKey(pointee)
	if t, ok := in.pointers[key]; ok {
		return t
	}
	t := &Type{kind: KindPointer, pointee: pointee}
	in.pointers[key] = t
	return t
}

// InternCodePointer returns the CodePointer{argTypes,returnIsRef,returnTypes} descriptor.
func (in *Interner) InternCodePointer(argTypes []*Type, returnIsRef []bool, returnTypes []*Type) *Type {
	key := ptrListKey(argTypes) + "/" + boolListKey(returnIsRef) + "/" + ptrListKey(returnTypes)
	if t, ok := in.codePtrs[key]; ok {
		return t
	}
	t := &Type{kind: KindCodePointer, argTypes: argTypes, returnIsRef: returnIsRef, returnTypes: returnTypes}
	in.codePtrs[key] = t
	return t
}

// InternCCodePointer returns the CCodePointer{cc,argTypes,hasVarArgs,returnType?} descriptor.
func (in *Interner) InternCCodePointer(cc CallingConv, argTypes []*Type, hasVarArgs bool, cReturnType *Type) *Type {
	key := fmt.Sprintf("%d/%s/%t/%s", cc, ptrListKey(argTypes), hasVarArgs, ptrKey(cReturnType))
	if t, ok := in.cCodePtrs[key]; ok {
		return t
	}
	t := &Type{kind: KindCCodePointer, cc: cc, argTypes: argTypes, hasVarArgs: hasVarArgs, cReturnType: cReturnType}
	in.cCodePtrs[key] = t
	return t
}

// InternArray returns the Array{elem,n} descriptor.
func (in *Interner) InternArray(elem *Type, n int64) *Type {
	key := fmt.Sprintf("%s:%d", ptrKey(elem), n)
	if t, ok := in.arrays[key]; ok {
		return t
	}
	t := &Type{kind: KindArray, elem: elem, n: n}
	in.arrays[key] = t
	return t
}

// InternVec returns the Vec{elem,n} descriptor. The element must be
// Integer or Float (§3 Invariants); any other element kind is rejected
// with a *BadVecElementError before anything is interned.
func (in *Interner) InternVec(elem *Type, n int64) (*Type, error) {
	if elem.Kind() != KindInteger && elem.Kind() != KindFloat {
		return nil, &BadVecElementError{Elem: elem}
	}
	key := fmt.Sprintf("%s:%d", ptrKey(elem), n)
	if t, ok := in.vecs[key]; ok {
		return t, nil
	}
	t := &Type{kind: KindVec, elem: elem, n: n}
	in.vecs[key] = t
	return t, nil
}

// InternTuple returns the Tuple{elems} descriptor.
func (in *Interner) InternTuple(elems []*Type) *Type {
	key := ptrListKey(elems)
	if t, ok := in.tuples[key]; ok {
		return t
	}
	t := &Type{kind: KindTuple, members: elems}
	in.tuples[key] = t
	return t
}

// InternUnion returns the Union{members} descriptor.
func (in *Interner) InternUnion(members []*Type) *Type {
	key := ptrListKey(members)
	if t, ok := in.unions[key]; ok {
		return t
	}
	t := &Type{kind: KindUnion, members: members}
	in.unions[key] = t
	return t
}

// InternRecord returns the Record{decl,params} descriptor, checking arity
// against the declaration's var-param flag (§4.1 ArityMismatch).
func (in *Interner) InternRecord(decl *hir.RecordDecl, params []StaticObject) (*Type, error) {
	if decl.VarParam == "" && len(params) != len(decl.Params) {
		return nil, &ArityMismatchError{Name: decl.Name, Want: len(decl.Params), Got: len(params)}
	}
	if decl.VarParam != "" && len(params) < len(decl.Params) {
		return nil, &ArityMismatchError{Name: decl.Name, Want: len(decl.Params), Got: len(params), AtLeast: true}
	}
	key := decl.Name + "/" + staticListKey(params)
	if t, ok := in.records[key]; ok {
		return t, nil
	}
	t := &Type{kind: KindRecord, declRef: decl, name: decl.Name, params: params}
	in.records[key] = t
	return t, nil
}

// InternVariant returns the Variant{decl,params} descriptor.
func (in *Interner) InternVariant(decl *hir.VariantDecl, params []StaticObject) (*Type, error) {
	if len(params) != len(decl.Params) {
		return nil, &ArityMismatchError{Name: decl.Name, Want: len(decl.Params), Got: len(params)}
	}
	key := decl.Name + "/" + staticListKey(params)
	if t, ok := in.variants[key]; ok {
		return t, nil
	}
	t := &Type{kind: KindVariant, declRef: decl, name: decl.Name, params: params}
	in.variants[key] = t
	return t, nil
}

// InternEnum returns the Enum{decl} descriptor.
func (in *Interner) InternEnum(decl *hir.EnumDecl) *Type {
	if t, ok := in.enums[decl.Name]; ok {
		return t
	}
	t := &Type{kind: KindEnum, declRef: decl, name: decl.Name}
	in.enums[decl.Name] = t
	return t
}

// InternNewType returns the NewType{decl} descriptor wrapping base.
func (in *Interner) InternNewType(decl *hir.NewTypeDecl, base *Type) *Type {
	key := decl.Name + "/" + ptrKey(base)
	if t, ok := in.newTypes[key]; ok {
		return t
	}
	t := &Type{kind: KindNewType, declRef: decl, name: decl.Name, newTypeBase: base}
	in.newTypes[key] = t
	return t
}

// InternStatic returns a Static{object} descriptor wrapping a resolved
// static object (used for the type of a pattern-matched static value).
func (in *Interner) InternStatic(obj StaticObject) *Type {
	key := obj.String()
	if t, ok := in.statics[key]; ok {
		return t
	}
	t := &Type{kind: KindStatic, name: key, params: []StaticObject{obj}}
	in.statics[key] = t
	return t
}
