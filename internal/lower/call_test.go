package lower

import (
	"fmt"
	"testing"

	"github.com/clay-lang/claycore/internal/backend"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/specialize"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// fakeBackend is a minimal in-memory backend.Backend double: blocks and
// values are just labeled strings, and control flow is recorded as a trace
// instead of actually being emitted, so call-lowering orchestration can be
// tested without github.com/llir/llvm.
type fakeBackend struct {
	trace   []string
	blockN  int
	cur     string
}

func (f *fakeBackend) PointerSize() int64                          { return 8 }
func (f *fakeBackend) IntLayout(bits int) (int64, int64)           { return int64(bits / 8), 8 }
func (f *fakeBackend) FloatLayout(bits int) (int64, int64)         { return int64(bits / 8), 8 }
func (f *fakeBackend) DeclareFunction(name string, p []*types.Type) values.Handle { return name }
func (f *fakeBackend) Param(fn values.Handle, i int) values.Handle  { return fmt.Sprintf("%v.p%d", fn, i) }
func (f *fakeBackend) NewBlock(fn values.Handle, name string) values.Handle {
	f.blockN++
	return fmt.Sprintf("%s#%d", name, f.blockN)
}
func (f *fakeBackend) SetInsertPoint(b values.Handle) {
	f.cur = b.(string)
	f.trace = append(f.trace, "insert:"+f.cur)
}
func (f *fakeBackend) Alloca(t *types.Type) values.Handle { return "alloca" }
func (f *fakeBackend) Load(t *types.Type, ptr values.Handle) values.Handle {
	return fmt.Sprintf("load(%v)", ptr)
}
func (f *fakeBackend) Store(val, ptr values.Handle) {
	f.trace = append(f.trace, fmt.Sprintf("store(%v,%v)", val, ptr))
}
func (f *fakeBackend) GEP(elemType *types.Type, ptr, index values.Handle) values.Handle {
	return fmt.Sprintf("gep(%v,%v)", ptr, index)
}
func (f *fakeBackend) Br(target values.Handle) {
	f.trace = append(f.trace, "br:"+target.(string))
}
func (f *fakeBackend) CondBr(cond values.Handle, then, els values.Handle) {
	f.trace = append(f.trace, fmt.Sprintf("condbr(%v,%v,%v)", cond, then, els))
}
func (f *fakeBackend) Ret(vals []values.Handle) { f.trace = append(f.trace, "ret") }
func (f *fakeBackend) Unreachable()             { f.trace = append(f.trace, "unreachable") }
func (f *fakeBackend) Call(fn values.Handle, args []values.Handle) values.Handle {
	f.trace = append(f.trace, fmt.Sprintf("call(%v,%v)", fn, args))
	return "sentinel"
}
func (f *fakeBackend) CallExternal(conv types.CallingConv, fn values.Handle, args []values.Handle, retType *types.Type) values.Handle {
	return "extresult"
}
func (f *fakeBackend) Bitcast(val values.Handle, to *types.Type) values.Handle { return val }
func (f *fakeBackend) BinOp(op backend.BinOp, x, y values.Handle) values.Handle {
	return fmt.Sprintf("binop(%v,%v)", x, y)
}
func (f *fakeBackend) ICmp(pred backend.Pred, x, y values.Handle) values.Handle {
	r := fmt.Sprintf("icmp(%v,%v,%v)", pred, x, y)
	f.trace = append(f.trace, r)
	return r
}
func (f *fakeBackend) FCmp(pred backend.Pred, x, y values.Handle) values.Handle { return "fcmp" }
func (f *fakeBackend) Not(x values.Handle) values.Handle                       { return "not" }
func (f *fakeBackend) ConstInt(t *types.Type, bytes []byte) values.Handle {
	return fmt.Sprintf("const(%v)", bytes)
}
func (f *fakeBackend) ConstFloat(t *types.Type, bytes []byte) values.Handle { return "constf" }
func (f *fakeBackend) ConstNull(t *types.Type) values.Handle               { return "null" }
func (f *fakeBackend) DeclareGlobal(name string, t *types.Type) values.Handle { return name }
func (f *fakeBackend) RegisterCtor(fn values.Handle, priority int) bool      { return true }
func (f *fakeBackend) RegisterDtor(fn values.Handle, priority int) bool      { return true }
func (f *fakeBackend) EmitAtExitCall(fn values.Handle)                       {}
func (f *fakeBackend) ParseFunctionBody(fn values.Handle, text string) error { return nil }

var _ backend.Backend = (*fakeBackend)(nil)

func newCallTestContext() (*Context, *fakeBackend) {
	fb := &fakeBackend{}
	ctx := NewContext(fb, nil, "fn")
	ctx.ExceptionBlock = "exn.fn"
	return ctx, fb
}

func TestDetermineCallKindPriority(t *testing.T) {
	cases := []struct {
		name string
		e    *specialize.InvokeEntry
		want CallKind
	}{
		{"llvm body wins", &specialize.InvokeEntry{LLVMBody: "ret void"}, CallLLVMBody},
		{"external wins over inline", &specialize.InvokeEntry{ExternalName: "puts", IsInline: hir.InlineForce}, CallCABI},
		{"force inline", &specialize.InvokeEntry{IsInline: hir.InlineForce}, CallForceInline},
		{"ordinary direct", &specialize.InvokeEntry{}, CallDirect},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetermineCallKind(c.e, false); got != c.want {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestDetermineCallKindDispatchedArg(t *testing.T) {
	if got := DetermineCallKind(&specialize.InvokeEntry{}, true); got != CallDispatch {
		t.Errorf("got %v, want CallDispatch", got)
	}
}

func TestEmitExceptionCheckBranchesOnNonNull(t *testing.T) {
	ctx, fb := newCallTestContext()
	cont := fb.NewBlock(ctx.Fn, "cont")
	it := types.NewInterner()
	ptrType := it.InternPointer(it.InternInteger(8, true))

	if err := ctx.EmitExceptionCheck("sentinel", ptrType, cont); err != nil {
		t.Fatal(err)
	}
	if ctx.ExceptionValue != "sentinel" {
		t.Errorf("ExceptionValue = %v, want sentinel", ctx.ExceptionValue)
	}
	foundCondBr := false
	for _, e := range fb.trace {
		if e == "condbr(icmp(1,sentinel,null),exn.raise#2,cont#1)" {
			foundCondBr = true
		}
	}
	if !foundCondBr {
		t.Errorf("expected a condbr referencing the raise block; trace=%v", fb.trace)
	}
}

func TestEmitExceptionCheckSkippedWhenDisabled(t *testing.T) {
	ctx, fb := newCallTestContext()
	ctx.CheckExceptions = false
	cont := fb.NewBlock(ctx.Fn, "cont")
	it := types.NewInterner()
	ptrType := it.InternPointer(it.InternInteger(8, true))

	if err := ctx.EmitExceptionCheck("sentinel", ptrType, cont); err != nil {
		t.Fatal(err)
	}
	if ctx.ExceptionValue != nil {
		t.Errorf("ExceptionValue should stay unset, got %v", ctx.ExceptionValue)
	}
}

func TestEmitExceptionCheckUnwindsToNearestTryTarget(t *testing.T) {
	ctx, fb := newCallTestContext()
	var destroyed []string
	ctx.Destroy = func(ctx *Context, v values.CValue) error {
		destroyed = append(destroyed, v.Backend.(string))
		return nil
	}
	ctx.PushLocal(values.CValue{Backend: "a"})
	tryBlock := fb.NewBlock(ctx.Fn, "try.catch")
	ctx.PushExceptionTarget(tryBlock)
	ctx.PushLocal(values.CValue{Backend: "b"})

	it := types.NewInterner()
	ptrType := it.InternPointer(it.InternInteger(8, true))
	cont := fb.NewBlock(ctx.Fn, "cont")
	if err := ctx.EmitExceptionCheck("sentinel", ptrType, cont); err != nil {
		t.Fatal(err)
	}
	if len(destroyed) != 1 || destroyed[0] != "b" {
		t.Errorf("expected only 'b' destroyed (marker from try target), got %v", destroyed)
	}
}

func TestLowerDispatchCascadeVisitsEachArm(t *testing.T) {
	ctx, _ := newCallTestContext()
	it := types.NewInterner()
	i32 := it.InternInteger(32, true)
	f64 := it.InternFloat(64, false)

	steps := []DispatchStep{{Tag: 0, MemberType: i32}, {Tag: 1, MemberType: f64}}
	var visited []string
	err := ctx.LowerDispatchCascade("tag", i32, steps,
		func(step DispatchStep) (values.Handle, error) { return "narrowed", nil },
		func(step DispatchStep, narrowed values.Handle) error {
			visited = append(visited, step.MemberType.String())
			return nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if len(visited) != 2 {
		t.Errorf("expected both arms visited, got %v", visited)
	}
}
