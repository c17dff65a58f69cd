package lower

import (
	"testing"

	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

func TestEmitModuleInitRunsGlobalsInOrderAndRegistersCtorDtor(t *testing.T) {
	fb := &fakeBackend{}
	it := types.NewInterner()
	i32 := it.InternInteger(32, true)

	lo := &Lowerer{Interner: it, Literals: fakeLiterals{}}
	sl := &StmtLowerer{Expr: lo}

	var destroyed []string
	mi := &ModuleInit{
		Backend: fb,
		Stmt:    sl,
		Destroy: func(ctx *Context, v values.CValue) error {
			destroyed = append(destroyed, v.Backend.(string))
			return nil
		},
		SentinelType: it.InternPointer(it.InternInteger(8, true)),
	}

	bindings := []GlobalBinding{
		{Decl: &hir.GlobalVar{Name: "a", Init: &hir.IntLiteral{Text: "1"}}, Type: i32, Global: "g.a"},
		{Decl: &hir.GlobalVar{Name: "b", Init: &hir.IntLiteral{Text: "2"}}, Type: i32, Global: "g.b"},
	}

	ctorFn, dtorFn, err := mi.EmitModuleInit("m", bindings)
	if err != nil {
		t.Fatal(err)
	}
	if ctorFn == nil || dtorFn == nil {
		t.Fatal("expected non-nil ctor/dtor function handles")
	}
	if len(destroyed) != 2 || destroyed[0] != "g.b" || destroyed[1] != "g.a" {
		t.Errorf("expected reverse-order destruction [g.b g.a], got %v", destroyed)
	}

	sawCtorInit := false
	for _, tr := range fb.trace {
		if tr == "insert:entry#1" {
			sawCtorInit = true
		}
	}
	if !sawCtorInit {
		t.Errorf("expected the destructor's entry block to be built first, got trace %v", fb.trace)
	}
}

func TestEmitModuleInitFallsBackToAtExitWhenDtorArrayUnsupported(t *testing.T) {
	fb := &fakeBackendNoDtor{fakeBackend: &fakeBackend{}}
	it := types.NewInterner()
	i32 := it.InternInteger(32, true)
	lo := &Lowerer{Interner: it, Literals: fakeLiterals{}}
	sl := &StmtLowerer{Expr: lo}

	mi := &ModuleInit{
		Backend:      fb,
		Stmt:         sl,
		SentinelType: it.InternPointer(it.InternInteger(8, true)),
	}
	bindings := []GlobalBinding{
		{Decl: &hir.GlobalVar{Name: "a", Init: &hir.IntLiteral{Text: "1"}}, Type: i32, Global: "g.a"},
	}
	_, dtorFn, err := mi.EmitModuleInit("m", bindings)
	if err != nil {
		t.Fatal(err)
	}
	if !fb.atExitCalled {
		t.Error("expected EmitAtExitCall fallback since RegisterDtor reports unsupported")
	}
	if fb.atExitFn != dtorFn {
		t.Errorf("expected atexit registered with the destructor function, got %v", fb.atExitFn)
	}
}

// fakeBackendNoDtor reports no destructor-array support, exercising the
// atexit fallback path.
type fakeBackendNoDtor struct {
	*fakeBackend
	atExitCalled bool
	atExitFn     values.Handle
}

func (f *fakeBackendNoDtor) RegisterDtor(fn values.Handle, priority int) bool { return false }
func (f *fakeBackendNoDtor) EmitAtExitCall(fn values.Handle) {
	f.atExitCalled = true
	f.atExitFn = fn
}
