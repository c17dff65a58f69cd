package specialize

import (
	"testing"

	"github.com/clay-lang/claycore/internal/analyzer"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

type stubEvaluator struct{}

func (stubEvaluator) EvalBool(e hir.Expr, scope *env.Env) (bool, error) { return true, nil }
func (stubEvaluator) EvalType(e hir.Expr, scope *env.Env) (*types.Type, error) {
	return nil, nil
}
func (stubEvaluator) EvaluateMultiStatic(e hir.Expr, scope *env.Env) ([]types.StaticObject, error) {
	return nil, nil
}

func newTestEngine() (*Engine, *analyzer.Analyzer, *types.Interner) {
	in := types.NewInterner()
	an := analyzer.New(in)
	an.SetEvaluator(stubEvaluator{})
	reg := NewRegistry()
	eng := NewEngine(reg, an)
	an.SetInvoker(eng)
	return eng, an, in
}

func TestSpecializationUniqueness(t *testing.T) {
	// Testable Property 5: safe_analyze_callable(f, K, T) returns the same
	// InvokeEntry object for equal (f, K, T) triples.
	eng, _, in := newTestEngine()
	i32 := in.InternInteger(32, true)

	callable := &hir.Callable{
		Name: "identity",
		Overloads: []*hir.Overload{{
			Pattern: []hir.Param{{Name: "x"}},
			Body:    []hir.Stmt{&hir.Return{Kind: hir.ReturnByValue, Values: []hir.Expr{&hir.Identifier{Name: "x"}}}},
		}},
	}

	e1, err := eng.SafeAnalyzeCallable(callable, []*types.Type{i32}, []values.Tempness{values.Rvalue})
	if err != nil {
		t.Fatalf("first SafeAnalyzeCallable: %v", err)
	}
	e2, err := eng.SafeAnalyzeCallable(callable, []*types.Type{i32}, []values.Tempness{values.Rvalue})
	if err != nil {
		t.Fatalf("second SafeAnalyzeCallable: %v", err)
	}
	if e1 != e2 {
		t.Fatal("expected the same InvokeEntry object for equal (callable, args_key, temp_key)")
	}
	if len(e1.ReturnTypes()) != 1 || e1.ReturnTypes()[0] != i32 {
		t.Errorf("unexpected return types: %+v", e1.ReturnTypes())
	}
}

func TestNoMatchingOverloadFails(t *testing.T) {
	eng, _, in := newTestEngine()
	i32 := in.InternInteger(32, true)

	callable := &hir.Callable{Name: "nothing", Overloads: nil}
	if _, err := eng.SafeAnalyzeCallable(callable, []*types.Type{i32}, []values.Tempness{values.Rvalue}); err == nil {
		t.Fatal("expected NoMatchingOverloadError")
	}
}

func TestCallByNameDepthBound(t *testing.T) {
	eng, _, in := newTestEngine()
	i32 := in.InternInteger(32, true)
	eng.DepthLimit = 2

	var callable *hir.Callable
	callable = &hir.Callable{
		Name: "loopy",
		Overloads: []*hir.Overload{{
			Pattern:      []hir.Param{{Name: "x"}},
			ReturnByName: true,
			Body: []hir.Stmt{&hir.Return{
				Kind:   hir.ReturnByValue,
				Values: []hir.Expr{&hir.Call{Callable: &hir.Identifier{Name: "loopy"}, Args: []hir.Expr{&hir.Identifier{Name: "x"}}}},
			}},
		}},
	}
	_ = callable

	// A call-by-name overload whose own body calls itself must eventually
	// hit the depth bound rather than recursing unboundedly; we simulate
	// this directly by driving analyzeCallByName past the limit.
	eng.callByNameDepth = eng.DepthLimit
	ov := callable.Overloads[0]
	scope := env.New()
	if _, err := eng.analyzeCallByName(&InvokeEntry{Callable: callable}, ov, scope); err == nil {
		t.Fatal("expected CallByNameDepthExceededError")
	} else if _, ok := err.(*CallByNameDepthExceededError); !ok {
		t.Fatalf("expected *CallByNameDepthExceededError, got %T", err)
	}
	_ = i32
}
