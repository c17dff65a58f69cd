package primops

import (
	"testing"

	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

func TestComputeTypeIntegerArithmetic(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)

	t.Run("integerAddChecked returns operand type", func(t *testing.T) {
		out, err := ComputeType(in, PrimIntegerAddChecked, values.MultiPValue{
			{Type: i32, IsTemp: true}, {Type: i32, IsTemp: true},
		})
		if err != nil {
			t.Fatalf("ComputeType: %v", err)
		}
		if len(out) != 1 || out[0].Type != i32 || !out[0].IsTemp {
			t.Errorf("unexpected result: %+v", out)
		}
	})

	t.Run("wrong arity fails", func(t *testing.T) {
		if _, err := ComputeType(in, PrimIntegerAddChecked, values.MultiPValue{{Type: i32}}); err == nil {
			t.Fatal("expected ArgCountError")
		}
	})

	t.Run("non-integer operand fails", func(t *testing.T) {
		f64 := in.InternFloat(64, false)
		if _, err := ComputeType(in, PrimIntegerBitwiseAnd, values.MultiPValue{{Type: f64}, {Type: f64}}); err == nil {
			t.Fatal("expected OperandTypeError")
		}
	})
}

func TestComputeTypeComparisonsYieldBool(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	out, err := ComputeType(in, PrimIntegerEqualsP, values.MultiPValue{{Type: i32}, {Type: i32}})
	if err != nil {
		t.Fatalf("ComputeType: %v", err)
	}
	if out[0].Type != in.InternBool() {
		t.Errorf("expected Bool, got %v", out[0].Type)
	}
}

func TestComputeTypePointerDereferenceAndOffset(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	ptr := in.InternPointer(i32)

	deref, err := ComputeType(in, PrimPointerDereference, values.MultiPValue{{Type: ptr, IsTemp: true}})
	if err != nil {
		t.Fatalf("ComputeType(deref): %v", err)
	}
	if deref[0].Type != i32 || deref[0].IsTemp {
		t.Errorf("expected an Int32 lvalue, got %+v", deref[0])
	}

	off, err := ComputeType(in, PrimPointerOffset, values.MultiPValue{{Type: ptr}, {Type: i32}})
	if err != nil {
		t.Fatalf("ComputeType(offset): %v", err)
	}
	if off[0].Type != ptr {
		t.Errorf("pointerOffset should preserve pointer type, got %v", off[0].Type)
	}

	if _, err := ComputeType(in, PrimPointerDereference, values.MultiPValue{{Type: i32}}); err == nil {
		t.Fatal("expected OperandTypeError for non-pointer deref")
	}
}

func TestComputeTypeTupleRef(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	f64 := in.InternFloat(64, false)
	tup := in.InternTuple([]*types.Type{i32, f64})
	idx := in.InternStatic(types.NewStaticInt(1))

	out, err := ComputeType(in, PrimTupleRef, values.MultiPValue{{Type: tup}, {Type: idx}})
	if err != nil {
		t.Fatalf("ComputeType: %v", err)
	}
	if out[0].Type != f64 {
		t.Errorf("expected element 1 (Float64), got %v", out[0].Type)
	}

	oob := in.InternStatic(types.NewStaticInt(5))
	if _, err := ComputeType(in, PrimTupleRef, values.MultiPValue{{Type: tup}, {Type: oob}}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestComputeTypeArrayElements(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	arr := in.InternArray(i32, 3)

	out, err := ComputeType(in, PrimArrayElements, values.MultiPValue{{Type: arr}})
	if err != nil {
		t.Fatalf("ComputeType: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(out))
	}
	for _, p := range out {
		if p.Type != i32 || p.IsTemp {
			t.Errorf("unexpected element: %+v", p)
		}
	}
}

func TestComputeTypeVoidReturningOps(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	ptr := in.InternPointer(i32)

	for _, op := range []PrimOpCode{PrimMemcpy, PrimMemmove, PrimBitcopy} {
		out, err := ComputeType(in, op, values.MultiPValue{{Type: ptr}, {Type: ptr}})
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if out[0].Type.Kind() != types.KindTuple || len(out[0].Type.Members()) != 0 {
			t.Errorf("%s: expected Void (empty Tuple), got %v", op, out[0].Type)
		}
	}
}

func TestCheckedPrimOpsDelegateToUserProcedure(t *testing.T) {
	name, ok := PrimIntegerAddChecked.DelegatesTo()
	if !ok || name != "doIntegerAddChecked" {
		t.Errorf("expected integerAddChecked to delegate, got %q, %v", name, ok)
	}
	if _, ok := PrimIntegerBitwiseAnd.DelegatesTo(); ok {
		t.Error("integerBitwiseAnd should not delegate")
	}
}

func TestPrimOpCodeString(t *testing.T) {
	if got := PrimIntegerAddChecked.String(); got != "integerAddChecked" {
		t.Errorf("String() = %q", got)
	}
}
