package analyzer

import (
	"testing"

	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/primops"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// fakeEvaluator is a minimal StaticEvaluator stand-in for analyzer unit
// tests; integration tests against a real compile-time evaluator live in
// internal/compilation.
type fakeEvaluator struct {
	boolResult bool
}

func (f fakeEvaluator) EvalBool(e hir.Expr, scope *env.Env) (bool, error) { return f.boolResult, nil }
func (f fakeEvaluator) EvalType(e hir.Expr, scope *env.Env) (*types.Type, error) {
	return nil, nil
}
func (f fakeEvaluator) EvaluateMultiStatic(e hir.Expr, scope *env.Env) ([]types.StaticObject, error) {
	return nil, nil
}

func TestAnalyzeIdentifierResolvesEnvValue(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	a := New(in)

	scope := env.New()
	scope.Define("x", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: i32, IsTemp: false}})

	id := &hir.Identifier{Name: "x"}
	p, err := a.AnalyzeOne(id, scope)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if p.Type != i32 || p.IsTemp {
		t.Errorf("unexpected PValue: %+v", p)
	}
}

func TestAnalyzeIdentifierUndefined(t *testing.T) {
	a := New(types.NewInterner())
	id := &hir.Identifier{Name: "missing"}
	if _, err := a.AnalyzeOne(id, env.New()); err == nil {
		t.Fatal("expected an undefined-identifier error")
	}
}

func TestAnalyzerIdempotence(t *testing.T) {
	// Testable Property 4: analyze_one called twice on a fixed (expr, env)
	// returns an equal PValue, barring an active caching disabler.
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	a := New(in)

	scope := env.New()
	scope.Define("x", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: i32, IsTemp: true}})
	id := &hir.Identifier{Name: "x"}

	p1, err := a.AnalyzeOne(id, scope)
	if err != nil {
		t.Fatalf("first AnalyzeOne: %v", err)
	}
	p2, err := a.AnalyzeOne(id, scope)
	if err != nil {
		t.Fatalf("second AnalyzeOne: %v", err)
	}
	if p1 != p2 {
		t.Errorf("analyzer is not idempotent: %+v != %+v", p1, p2)
	}
}

func TestCachingDisablerSuppressesCaching(t *testing.T) {
	in := types.NewInterner()
	a := New(in)
	scope := env.New()

	i32 := in.InternInteger(32, true)
	u32 := in.InternInteger(32, false)
	id := &hir.Identifier{Name: "x"}

	scope.Define("x", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: i32}})
	d := a.PushCachingDisabler()
	p1, _ := a.AnalyzeOne(id, scope)

	scope.Define("x", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: u32}})
	p2, _ := a.AnalyzeOne(id, scope)
	d.Close()

	if p1.Type == p2.Type {
		t.Fatal("expected different results under a caching disabler after rebinding x")
	}
}

func TestAnalyzeAndRequiresBoolOperands(t *testing.T) {
	in := types.NewInterner()
	a := New(in)
	i32 := in.InternInteger(32, true)

	scope := env.New()
	scope.Define("n", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: i32, IsTemp: true}})
	scope.Define("b", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: in.InternBool(), IsTemp: true}})

	bad := &hir.And{Left: &hir.Identifier{Name: "n"}, Right: &hir.Identifier{Name: "b"}}
	if _, err := a.AnalyzeOne(bad, scope); err == nil {
		t.Fatal("expected TypeMismatchError for non-Bool left operand")
	}

	good := &hir.And{Left: &hir.Identifier{Name: "b"}, Right: &hir.Identifier{Name: "b"}}
	p, err := a.AnalyzeOne(good, scope)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if p.Type != in.InternBool() || !p.IsTemp {
		t.Errorf("unexpected `and` result: %+v", p)
	}
}

func TestAnalyzeFieldRefOnRecord(t *testing.T) {
	in := types.NewInterner()
	f64 := in.InternFloat(64, false)
	a := New(in)

	in.SetFieldResolver(fixedFieldsResolver{fields: []types.Field{{Name: "x", Type: f64}}})
	decl := &hir.RecordDecl{Name: "Point"}
	rt, err := in.InternRecord(decl, nil)
	if err != nil {
		t.Fatalf("InternRecord: %v", err)
	}

	scope := env.New()
	scope.Define("p", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: rt, IsTemp: false}})

	ref := &hir.FieldRef{Base: &hir.Identifier{Name: "p"}, Name: "x"}
	pv, err := a.AnalyzeOne(ref, scope)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if pv.Type != f64 || pv.IsTemp {
		t.Errorf("unexpected field-ref result: %+v", pv)
	}
}

type fixedFieldsResolver struct{ fields []types.Field }

func (r fixedFieldsResolver) ResolveRecordFields(t *types.Type) ([]types.Field, error) {
	return r.fields, nil
}
func (r fixedFieldsResolver) ResolveVariantMembers(t *types.Type) ([]*types.Type, error) {
	return nil, nil
}

func TestThrowValueRequiresExceptionScope(t *testing.T) {
	a := New(types.NewInterner())
	scope := env.New()

	bareRethrow := &hir.ThrowValue{}
	if _, err := a.AnalyzeOne(bareRethrow, scope); err == nil {
		t.Fatal("expected error for bare rethrow outside a catch scope")
	}

	catchScope := env.NewEnclosed(scope).WithException()
	if _, err := a.AnalyzeOne(bareRethrow, catchScope); err != nil {
		t.Fatalf("bare rethrow inside exception scope should analyze cleanly: %v", err)
	}
}

func TestAnalyzeCallDispatchesPrimOp(t *testing.T) {
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)
	a := New(in)

	scope := env.New()
	scope.Define("x", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: i32, IsTemp: true}})
	scope.Define("y", env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: i32, IsTemp: true}})
	scope.Define("integerAddChecked", env.Entry{Kind: env.EntryPrimOp, PrimOp: int(primops.PrimIntegerAddChecked)})

	call := &hir.Call{
		Callable: &hir.Identifier{Name: "integerAddChecked"},
		Args:     []hir.Expr{&hir.Identifier{Name: "x"}, &hir.Identifier{Name: "y"}},
	}
	p, err := a.AnalyzeOne(call, scope)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if p.Type != i32 || !p.IsTemp {
		t.Errorf("unexpected result: %+v", p)
	}
}
