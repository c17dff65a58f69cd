package lower

import (
	"testing"

	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/specialize"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

type fakeLiterals struct{}

func (fakeLiterals) DecodeInt(text, suffix string, defaultIntType *types.Type) (values.ValueHolder, *types.Type, error) {
	it := types.NewInterner()
	t := it.InternInteger(32, true)
	return values.NewValueHolder(t, []byte{42, 0, 0, 0}), t, nil
}

func (fakeLiterals) DecodeFloat(text, suffix string) (values.ValueHolder, *types.Type, error) {
	it := types.NewInterner()
	t := it.InternFloat(64, false)
	return values.NewValueHolder(t, make([]byte, 8)), t, nil
}

type fakeInvoker struct {
	entry *specialize.InvokeEntry
}

func (f fakeInvoker) Invoke(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) (*specialize.InvokeEntry, error) {
	return f.entry, nil
}

func newExprTestLowerer(it *types.Interner) (*Lowerer, *Context, *fakeBackend) {
	ctx, fb := newCallTestContext()
	return &Lowerer{Interner: it, Literals: fakeLiterals{}}, ctx, fb
}

func TestLowerIntLiteralMaterializesConst(t *testing.T) {
	it := types.NewInterner()
	lo, ctx, _ := newExprTestLowerer(it)
	result, err := lo.LowerRef(ctx, &hir.IntLiteral{Text: "42"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Values) != 1 {
		t.Fatalf("expected one value, got %d", len(result.Values))
	}
	if !result.Values[0].ForwardedRValue {
		t.Error("expected a literal to be a forwarded rvalue")
	}
}

func TestLowerIdentifierResolvesBoundLocal(t *testing.T) {
	it := types.NewInterner()
	lo, ctx, _ := newExprTestLowerer(it)
	i32 := it.InternInteger(32, true)
	ctx.Bind("x", values.CValue{Type: i32, Backend: "x.slot"})

	result, err := lo.LowerRef(ctx, &hir.Identifier{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Values) != 1 || result.Values[0].Backend != "x.slot" {
		t.Errorf("got %v", result.Values)
	}
}

func TestLowerFieldRefEmitsGEP(t *testing.T) {
	it := types.NewInterner()
	i32 := it.InternInteger(32, true)
	it.SetFieldResolver(fakeFieldResolver{fields: []types.Field{{Name: "x", Type: i32}, {Name: "y", Type: i32}}})
	lo, ctx, _ := newExprTestLowerer(it)
	recordType, err := it.InternRecord(&hir.RecordDecl{Name: "Point"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx.Bind("p", values.CValue{Type: recordType, Backend: "p.slot"})
	result, err := lo.LowerRef(ctx, &hir.FieldRef{Base: &hir.Identifier{Name: "p"}, Name: "y"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Values) != 1 {
		t.Fatalf("expected one value, got %d", len(result.Values))
	}
	if result.Values[0].Type != i32 {
		t.Errorf("expected field type i32, got %v", result.Values[0].Type)
	}
}

type fakeFieldResolver struct {
	fields []types.Field
}

func (f fakeFieldResolver) ResolveRecordFields(t *types.Type) ([]types.Field, error) {
	return f.fields, nil
}
func (f fakeFieldResolver) ResolveVariantMembers(t *types.Type) ([]*types.Type, error) {
	return nil, nil
}

func TestLowerAndShortCircuits(t *testing.T) {
	it := types.NewInterner()
	lo, ctx, fb := newExprTestLowerer(it)
	boolT := it.InternBool()
	ctx.Bind("a", values.CValue{Type: boolT, Backend: "a.slot"})
	ctx.Bind("b", values.CValue{Type: boolT, Backend: "b.slot"})

	h, err := lo.LowerBool(ctx, &hir.And{
		Left:  &hir.Identifier{Name: "a"},
		Right: &hir.Identifier{Name: "b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if h == nil {
		t.Error("expected a non-nil merged bool handle")
	}
	sawRightBlock := false
	for _, tr := range fb.trace {
		if tr == "insert:logic.rhs#2" {
			sawRightBlock = true
		}
	}
	if !sawRightBlock {
		t.Errorf("expected the rhs block to be entered in the trace: %v", fb.trace)
	}
}

func TestLowerCallDirectEmitsCallAndExceptionCheck(t *testing.T) {
	it := types.NewInterner()
	i32 := it.InternInteger(32, true)
	entry := &specialize.InvokeEntry{
		Callable:        &hir.Callable{Name: "f"},
		ReturnTypesList: []*types.Type{i32},
		LoweredFn:       values.Handle("f.fn"),
	}
	lo, ctx, fb := newExprTestLowerer(it)
	lo.Invoke = fakeInvoker{entry: entry}
	ctx.Env.Define("f", env.Entry{Kind: env.EntryCallable, Callable: entry.Callable})
	ctx.Bind("x", values.CValue{Type: i32, Backend: "x.slot", ForwardedRValue: true})

	result, err := lo.LowerRef(ctx, &hir.Call{
		Callable: &hir.Identifier{Name: "f"},
		Args:     []hir.Expr{&hir.Identifier{Name: "x"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Values) != 1 || result.Values[0].Type != i32 {
		t.Errorf("got %v", result.Values)
	}
	sawCall, sawCheck := false, false
	for _, tr := range fb.trace {
		if tr == `call(f.fn,[x.slot alloca])` {
			sawCall = true
		}
		if tr == `condbr(icmp(1,sentinel,null),exn.raise#2,call.cont#1)` {
			sawCheck = true
		}
	}
	if !sawCall {
		t.Errorf("expected the direct call in the trace; trace=%v", fb.trace)
	}
	if !sawCheck {
		t.Errorf("expected an exception check on the call's sentinel; trace=%v", fb.trace)
	}
}
