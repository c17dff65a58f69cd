package types

// DataLayout is the subset of the external Backend collaborator (spec.md
// §6) the layout engine needs: primitive sizes/alignments and the native
// pointer width. The concrete adapter lives in internal/backend and wraps
// github.com/llir/llvm's target data layout; defining the interface here
// (rather than importing internal/backend) keeps the type interner a leaf
// component per the system overview in spec.md §2.
type DataLayout interface {
	PointerSize() int64
	IntLayout(bits int) (size, align int64)
	FloatLayout(bits int) (size, align int64)
}

// Layout is the cached result of a layout query: overall size/alignment,
// plus per-element byte offsets for the aggregate kinds that have them
// (Tuple, Record, Complex).
type Layout struct {
	Size    int64
	Align   int64
	Offsets []int64
}

func alignUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// Layout computes (and caches) t's size, alignment, and field offsets,
// first verifying t contains no illegal by-value recursion (§4.1). The
// check and the computation both materialize record fields / variant
// members lazily, as required.
func (in *Interner) Layout(t *Type, dl DataLayout) (Layout, error) {
	if t.layoutReady {
		return t.layout, nil
	}
	if err := in.checkRecursion(t, nil); err != nil {
		return Layout{}, err
	}
	l, err := in.computeLayout(t, dl)
	if err != nil {
		return Layout{}, err
	}
	t.layout = l
	t.layoutReady = true
	return l, nil
}

// checkRecursion walks t's by-value-contained children, failing if t
// reappears on its own current DFS path (§4.1, §8 invariant 3). Pointer,
// CodePointer, and CCodePointer do not count as by-value containment — a
// pointer breaks the cycle, exactly like a pointer field in any systems
// language layout algorithm.
func (in *Interner) checkRecursion(t *Type, path []*Type) error {
	switch t.recursion {
	case recursionOK:
		return nil
	case recursionInProgress:
		return &InvalidRecursionError{Type: t, Path: append(append([]*Type{}, path...), t)}
	}
	t.recursion = recursionInProgress
	path = append(path, t)

	children, err := in.valueChildren(t)
	if err != nil {
		t.recursion = recursionUnchecked
		return err
	}
	for _, c := range children {
		if err := in.checkRecursion(c, path); err != nil {
			t.recursion = recursionUnchecked
			return err
		}
	}
	t.recursion = recursionOK
	return nil
}

func (in *Interner) valueChildren(t *Type) ([]*Type, error) {
	switch t.kind {
	case KindArray, KindVec:
		return []*Type{t.elem}, nil
	case KindTuple, KindUnion:
		return t.members, nil
	case KindRecord:
		fields, err := in.Fields(t)
		if err != nil {
			return nil, err
		}
		out := make([]*Type, len(fields))
		for i, f := range fields {
			out[i] = f.Type
		}
		return out, nil
	case KindVariant:
		return in.VariantMembers(t)
	case KindNewType:
		return []*Type{t.newTypeBase}, nil
	default:
		return nil, nil
	}
}

func (in *Interner) computeLayout(t *Type, dl DataLayout) (Layout, error) {
	switch t.kind {
	case KindBool:
		size, align := dl.IntLayout(8)
		return Layout{Size: size, Align: align}, nil

	case KindInteger:
		size, align := dl.IntLayout(t.bits)
		return Layout{Size: size, Align: align}, nil

	case KindFloat:
		size, align := dl.FloatLayout(t.bits)
		return Layout{Size: size, Align: align}, nil

	case KindComplex:
		compSize, compAlign := dl.FloatLayout(t.bits / 2)
		return Layout{Size: compSize * 2, Align: compAlign, Offsets: []int64{0, compSize}}, nil

	case KindPointer, KindCodePointer, KindCCodePointer:
		ps := dl.PointerSize()
		return Layout{Size: ps, Align: ps}, nil

	case KindArray, KindVec:
		elemLayout, err := in.Layout(t.elem, dl)
		if err != nil {
			return Layout{}, err
		}
		size := alignUp(t.n*elemLayout.Size, elemLayout.Align)
		return Layout{Size: size, Align: elemLayout.Align}, nil

	case KindTuple:
		return in.layoutSequence(t.members, dl)

	case KindRecord:
		fields, err := in.Fields(t)
		if err != nil {
			return Layout{}, err
		}
		fieldTypes := make([]*Type, len(fields))
		for i, f := range fields {
			fieldTypes[i] = f.Type
		}
		return in.layoutSequence(fieldTypes, dl)

	case KindUnion:
		return in.layoutAlternatives(t.members, dl)

	case KindVariant:
		members, err := in.VariantMembers(t)
		if err != nil {
			return Layout{}, err
		}
		payload, err := in.layoutAlternatives(members, dl)
		if err != nil {
			return Layout{}, err
		}
		tagSize, tagAlign := dl.IntLayout(32)
		align := payload.Align
		if tagAlign > align {
			align = tagAlign
		}
		size := alignUp(tagSize+payload.Size, align)
		return Layout{Size: size, Align: align, Offsets: []int64{0, alignUp(tagSize, payload.Align)}}, nil

	case KindEnum:
		size, align := dl.IntLayout(32)
		return Layout{Size: size, Align: align}, nil

	case KindStatic:
		return Layout{Size: 0, Align: 1}, nil

	case KindNewType:
		return in.Layout(t.newTypeBase, dl)

	default:
		panic("types: computeLayout: unknown kind " + t.kind.String())
	}
}

// layoutSequence lays out members sequentially with natural alignment
// padding, as a struct would (used for Tuple and Record): offset_i =
// align_up(cursor, align(member_i)); size = align_up(cursor, maxAlign).
func (in *Interner) layoutSequence(members []*Type, dl DataLayout) (Layout, error) {
	var cursor, maxAlign int64 = 0, 1
	offsets := make([]int64, len(members))
	for i, m := range members {
		ml, err := in.Layout(m, dl)
		if err != nil {
			return Layout{}, err
		}
		offset := alignUp(cursor, ml.Align)
		offsets[i] = offset
		cursor = offset + ml.Size
		if ml.Align > maxAlign {
			maxAlign = ml.Align
		}
	}
	return Layout{Size: alignUp(cursor, maxAlign), Align: maxAlign, Offsets: offsets}, nil
}

// layoutAlternatives lays out members as overlapping alternatives (used for
// Union and for a variant's payload): size/align is the max across members.
func (in *Interner) layoutAlternatives(members []*Type, dl DataLayout) (Layout, error) {
	var size, align int64 = 0, 1
	for _, m := range members {
		ml, err := in.Layout(m, dl)
		if err != nil {
			return Layout{}, err
		}
		if ml.Size > size {
			size = ml.Size
		}
		if ml.Align > align {
			align = ml.Align
		}
	}
	return Layout{Size: alignUp(size, align), Align: align}, nil
}
