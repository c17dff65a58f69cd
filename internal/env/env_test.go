package env

import (
	"testing"

	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/types"
)

func TestNewEnvIsEmptyWithNoOuter(t *testing.T) {
	e := New()
	if e.Outer() != nil {
		t.Error("root environment should have no outer environment")
	}
	if _, ok := e.Lookup("x"); ok {
		t.Error("fresh environment should not resolve any name")
	}
}

func TestDefineAndLookup(t *testing.T) {
	e := New()
	in := types.NewInterner()
	i32 := in.InternInteger(32, true)

	e.Define("x", Entry{Kind: EntryType, Type: i32})

	ent, ok := e.Lookup("x")
	if !ok {
		t.Fatal("x not found after Define")
	}
	if ent.Kind != EntryType || ent.Type != i32 {
		t.Errorf("unexpected entry: %+v", ent)
	}
}

func TestLookupSearchesOuterChain(t *testing.T) {
	root := New()
	root.Define("outer", Entry{Kind: EntryValue, Value: 1})

	inner := NewEnclosed(root)
	if _, ok := inner.Lookup("outer"); !ok {
		t.Error("inner scope should see outer binding")
	}

	inner.Define("inner", Entry{Kind: EntryValue, Value: 2})
	if _, ok := root.Lookup("inner"); ok {
		t.Error("outer scope must not see inner bindings")
	}
}

func TestInnerShadowsOuter(t *testing.T) {
	root := New()
	root.Define("x", Entry{Kind: EntryValue, Value: "outer"})

	inner := NewEnclosed(root)
	inner.Define("x", Entry{Kind: EntryValue, Value: "inner"})

	ent, _ := inner.Lookup("x")
	if ent.Value != "inner" {
		t.Errorf("expected shadowed value %q, got %q", "inner", ent.Value)
	}

	outerEnt, _ := root.Lookup("x")
	if outerEnt.Value != "outer" {
		t.Errorf("outer binding must be unaffected by shadowing, got %q", outerEnt.Value)
	}
}

func TestLookupLocalDoesNotSearchOuter(t *testing.T) {
	root := New()
	root.Define("x", Entry{Kind: EntryValue, Value: 1})
	inner := NewEnclosed(root)

	if _, ok := inner.LookupLocal("x"); ok {
		t.Error("LookupLocal must not see outer bindings")
	}
}

func TestRequireReturnsNotFoundError(t *testing.T) {
	e := New()
	if _, err := e.Require("missing"); err == nil {
		t.Fatal("expected NotFoundError")
	} else if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
}

func TestExceptionAvailablePropagatesThroughChain(t *testing.T) {
	root := New()
	tryScope := NewEnclosed(root).WithException()
	inner := NewEnclosed(tryScope)

	if root.ExceptionAvailable() {
		t.Error("root scope should not report an exception target")
	}
	if !inner.ExceptionAvailable() {
		t.Error("scope nested inside a try frame should report exception availability")
	}
}

func TestCallByNameHeadIsFoundThroughChain(t *testing.T) {
	root := New()
	head := hir.Position{Line: 7, Column: 1}
	cbn := NewEnclosed(root).WithCallByNameHead(head)
	inner := NewEnclosed(cbn)

	if _, ok := root.CallByNameHead(); ok {
		t.Error("root scope should have no call-by-name head")
	}
	got, ok := inner.CallByNameHead()
	if !ok || got != head {
		t.Errorf("CallByNameHead() = %+v, %v; want %+v, true", got, ok, head)
	}
}

func TestEnvRefRoundTrip(t *testing.T) {
	e := New()
	ref := Ref(e)

	got, ok := Unref(ref)
	if !ok || got != e {
		t.Fatalf("Unref(Ref(e)) did not recover e")
	}

	if _, ok := Unref(nil); ok {
		t.Error("Unref(nil) should report not-ok")
	}
}
