package types

import "testing"

// fakeDataLayout is a minimal stand-in for the backend's target data
// layout, sized the way a typical 64-bit ABI would report it.
type fakeDataLayout struct{}

func (fakeDataLayout) PointerSize() int64 { return 8 }

func (fakeDataLayout) IntLayout(bits int) (int64, int64) {
	size := int64(bits) / 8
	if size < 1 {
		size = 1
	}
	align := size
	if align > 8 {
		align = 8
	}
	return size, align
}

func (fakeDataLayout) FloatLayout(bits int) (int64, int64) {
	size := int64(bits) / 8
	return size, size
}

func TestTupleInterningAndLayout(t *testing.T) {
	in := NewInterner()
	dl := fakeDataLayout{}
	i32 := in.InternInteger(32, true)

	a := in.InternTuple([]*Type{i32, i32})
	b := in.InternTuple([]*Type{i32, i32})

	if a != b {
		t.Fatalf("expected interned tuples to be pointer-equal")
	}

	layout, err := in.Layout(a, dl)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if layout.Size != 8 {
		t.Errorf("Size = %d, want 8", layout.Size)
	}
	if layout.Align != 4 {
		t.Errorf("Align = %d, want 4", layout.Align)
	}
}

func TestIntegerInterningDistinguishesSignedness(t *testing.T) {
	in := NewInterner()
	s32 := in.InternInteger(32, true)
	u32 := in.InternInteger(32, false)
	s32b := in.InternInteger(32, true)

	if s32 == u32 {
		t.Fatal("Int32 and UInt32 must not be the same descriptor")
	}
	if s32 != s32b {
		t.Fatal("two Int32 constructions must be pointer-equal")
	}
}

func TestArrayLayoutAlignsToElement(t *testing.T) {
	in := NewInterner()
	dl := fakeDataLayout{}
	i8 := in.InternInteger(8, true)

	arr := in.InternArray(i8, 5)
	l, err := in.Layout(arr, dl)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if l.Size != 5 || l.Align != 1 {
		t.Errorf("got size=%d align=%d, want size=5 align=1", l.Size, l.Align)
	}
}

func TestVecRejectsNonNumericElement(t *testing.T) {
	in := NewInterner()
	i32 := in.InternInteger(32, true)
	ptr := in.InternPointer(i32)

	if _, err := in.InternVec(ptr, 4); err == nil {
		t.Fatal("expected BadVecElementError for a pointer element")
	} else if _, ok := err.(*BadVecElementError); !ok {
		t.Fatalf("expected *BadVecElementError, got %T", err)
	}
}

func TestPointerBreaksRecursion(t *testing.T) {
	in := NewInterner()
	dl := fakeDataLayout{}

	// A pointer to a tuple containing itself is fine: the pointer is not a
	// by-value containment edge.
	i32 := in.InternInteger(32, true)
	selfPtrTuple := in.InternTuple([]*Type{i32})
	ptrToSelf := in.InternPointer(selfPtrTuple)
	wrapper := in.InternTuple([]*Type{ptrToSelf, i32})

	if _, err := in.Layout(wrapper, dl); err != nil {
		t.Fatalf("pointer-mediated structure should not be flagged recursive: %v", err)
	}
}

func TestDirectByValueRecursionFails(t *testing.T) {
	in := NewInterner()
	dl := fakeDataLayout{}
	i32 := in.InternInteger(32, true)

	// Tuple containing itself by value is only representable through a
	// resolver-backed record in real code; here we fabricate the situation
	// directly against a Union (whose members slice we can self-reference)
	// to exercise checkRecursion without needing a FieldResolver.
	u := &Type{kind: KindUnion}
	u.members = []*Type{u, i32}

	if _, err := in.Layout(u, dl); err == nil {
		t.Fatal("expected InvalidRecursionError")
	} else if _, ok := err.(*InvalidRecursionError); !ok {
		t.Fatalf("expected *InvalidRecursionError, got %T (%v)", err, err)
	}
}
