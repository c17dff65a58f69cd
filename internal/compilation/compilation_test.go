package compilation

import (
	"fmt"
	"testing"

	"github.com/clay-lang/claycore/internal/backend"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// fakeBackend is a minimal in-memory backend.Backend double, mirroring
// internal/lower's own test double of the same name (kept package-local
// since that one is unexported): blocks/values are labeled strings and
// control flow is recorded as a trace instead of really being emitted.
type fakeBackend struct {
	trace  []string
	blockN int
}

func (f *fakeBackend) PointerSize() int64                { return 8 }
func (f *fakeBackend) IntLayout(bits int) (int64, int64) { return int64(bits / 8), 8 }
func (f *fakeBackend) FloatLayout(bits int) (int64, int64) {
	return int64(bits / 8), 8
}
func (f *fakeBackend) DeclareFunction(name string, p []*types.Type) values.Handle { return name }
func (f *fakeBackend) Param(fn values.Handle, i int) values.Handle {
	return fmt.Sprintf("%v.p%d", fn, i)
}
func (f *fakeBackend) NewBlock(fn values.Handle, name string) values.Handle {
	f.blockN++
	return fmt.Sprintf("%s#%d", name, f.blockN)
}
func (f *fakeBackend) SetInsertPoint(b values.Handle) {
	f.trace = append(f.trace, fmt.Sprintf("insert:%v", b))
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
	f.trace = append(f.trace, fmt.Sprintf("br:%v", target))
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
	return fmt.Sprintf("icmp(%v,%v,%v)", pred, x, y)
}
func (f *fakeBackend) FCmp(pred backend.Pred, x, y values.Handle) values.Handle { return "fcmp" }
func (f *fakeBackend) Not(x values.Handle) values.Handle                       { return "not" }
func (f *fakeBackend) ConstInt(t *types.Type, bytes []byte) values.Handle {
	return fmt.Sprintf("const(%v)", bytes)
}
func (f *fakeBackend) ConstFloat(t *types.Type, bytes []byte) values.Handle { return "constf" }
func (f *fakeBackend) ConstNull(t *types.Type) values.Handle               { return "null" }
func (f *fakeBackend) DeclareGlobal(name string, t *types.Type) values.Handle {
	return "@" + name
}
func (f *fakeBackend) RegisterCtor(fn values.Handle, priority int) bool      { return true }
func (f *fakeBackend) RegisterDtor(fn values.Handle, priority int) bool      { return true }
func (f *fakeBackend) EmitAtExitCall(fn values.Handle)                       {}
func (f *fakeBackend) ParseFunctionBody(fn values.Handle, text string) error { return nil }

var _ backend.Backend = (*fakeBackend)(nil)

func TestInitTypesInstallsPrimitiveAliasesAndPrimOps(t *testing.T) {
	fb := &fakeBackend{}
	c := New(fb)
	c.InitTypes(fb)

	ent, err := c.RootEnv.Require("Int32")
	if err != nil {
		t.Fatal(err)
	}
	if ent.Type != c.Interner.InternInteger(32, true) {
		t.Errorf("Int32 did not resolve to the interned Int32 type")
	}

	if _, err := c.RootEnv.Require("Pointer"); err != nil {
		t.Errorf("expected Pointer primop binding: %v", err)
	}
}

// simpleModule builds a module with one global `answer` and a zero-arg
// `main` callable that returns the literal 0 by value (it does not read
// `answer`).
func simpleModule() *hir.Module {
	global := &hir.GlobalVar{Name: "answer", Init: &hir.IntLiteral{Text: "42", Suffix: "i"}}
	main := &hir.Callable{
		Name: "main",
		Overloads: []*hir.Overload{{
			Body: []hir.Stmt{
				&hir.Return{Kind: hir.ReturnByValue, Values: []hir.Expr{&hir.IntLiteral{Text: "0", Suffix: "i"}}},
			},
		}},
	}
	return &hir.Module{
		Name:         "m",
		Globals:      []*hir.GlobalVar{global},
		Callables:    []*hir.Callable{main},
		MainCallable: "main",
	}
}

func TestAnalyzeAndLowerEntryPointsRoundTrip(t *testing.T) {
	fb := &fakeBackend{}
	c := New(fb)
	c.InitTypes(fb)

	m := simpleModule()
	if err := c.AnalyzeEntry(m); err != nil {
		t.Fatalf("AnalyzeEntry: %v", err)
	}
	if err := c.LowerEntryPoints(m, false); err != nil {
		t.Fatalf("LowerEntryPoints: %v", err)
	}

	entries := c.Engine.Registry.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one registered entry, got %d", len(entries))
	}
	if entries[0].LoweredFn == nil {
		t.Error("expected main's entry to be lowered")
	}

	if _, err := c.CodegenMain(m); err != nil {
		t.Fatalf("CodegenMain: %v", err)
	}
}

func TestAnalyzeEntryRejectsUnknownMainCallable(t *testing.T) {
	fb := &fakeBackend{}
	c := New(fb)
	c.InitTypes(fb)

	m := &hir.Module{Name: "m", MainCallable: "doesNotExist"}
	if err := c.AnalyzeEntry(m); err == nil {
		t.Error("expected an error for a missing MainCallable")
	}
}
