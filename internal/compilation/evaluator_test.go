package compilation

import (
	"testing"

	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/primops"
	"github.com/clay-lang/claycore/internal/types"
)

func primOpScope(interner *types.Interner) *env.Env {
	scope := env.New()
	for i := 0; i < primops.Count(); i++ {
		code := primops.PrimOpCode(i)
		scope.Define(code.String(), env.Entry{Kind: env.EntryPrimOp, PrimOp: i})
	}
	return scope
}

func TestEvalTypeResolvesBareTypeName(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	scope := env.New()
	scope.Define("Int32", env.Entry{Kind: env.EntryType, Type: i32})

	ev := &Evaluator{Interner: in}
	got, err := ev.EvalType(&hir.Identifier{Name: "Int32"}, scope)
	if err != nil {
		t.Fatal(err)
	}
	if got != i32 {
		t.Errorf("expected Int32, got %v", got)
	}
}

func TestEvalTypePointerPrimitive(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	scope := primOpScope(in)
	scope.Define("Int32", env.Entry{Kind: env.EntryType, Type: i32})

	ev := &Evaluator{Interner: in}
	call := &hir.Call{Callable: &hir.Identifier{Name: "Pointer"}, Args: []hir.Expr{&hir.Identifier{Name: "Int32"}}}
	got, err := ev.EvalType(call, scope)
	if err != nil {
		t.Fatal(err)
	}
	want := in.InternPointer(i32)
	if got != want {
		t.Errorf("expected Pointer(Int32), got %v", got)
	}
}

func TestEvalTypeArrayPrimitiveViaIndex(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	scope := primOpScope(in)
	scope.Define("Int32", env.Entry{Kind: env.EntryType, Type: i32})

	ev := &Evaluator{Interner: in}
	idx := &hir.Index{
		Base: &hir.Identifier{Name: "Array"},
		Args: []hir.Expr{&hir.Identifier{Name: "Int32"}, &hir.IntLiteral{Text: "4"}},
	}
	got, err := ev.EvalType(idx, scope)
	if err != nil {
		t.Fatal(err)
	}
	want := in.InternArray(i32, 4)
	if got != want {
		t.Errorf("expected Array(Int32, 4), got %v", got)
	}
}

func TestEvalBoolShortCircuitsAnd(t *testing.T) {
	in := types.NewInterner()
	scope := env.New()
	ev := &Evaluator{Interner: in}

	and := &hir.And{
		Left:  &hir.Identifier{Name: "nope"}, // would error if evaluated
		Right: &hir.Identifier{Name: "nope"},
	}
	// Left isn't bound as a static bool, so evaluating it should fail —
	// proving this path does reach resolve() rather than short-circuiting
	// incorrectly to true.
	if _, err := ev.EvalBool(and, scope); err == nil {
		t.Error("expected an error resolving an unbound identifier")
	}
}

func TestEvalTypeRejectsNonType(t *testing.T) {
	in := types.NewInterner()
	scope := env.New()
	ev := &Evaluator{Interner: in}

	_, err := ev.EvalType(&hir.IntLiteral{Text: "1"}, scope)
	if err == nil {
		t.Error("expected a NotATypeError for a static int in type position")
	}
}
