package lower

import (
	"reflect"
	"testing"

	"github.com/clay-lang/claycore/internal/values"
)

func newTestContext(destroyed *[]string) *Context {
	destroy := func(ctx *Context, v values.CValue) error {
		*destroyed = append(*destroyed, v.Backend.(string))
		return nil
	}
	return NewContext(nil, destroy, "fn")
}

func TestUnwindToDestroysLIFO(t *testing.T) {
	var destroyed []string
	ctx := newTestContext(&destroyed)

	marker := ctx.Marker()
	ctx.PushLocal(values.CValue{Backend: "a"})
	ctx.PushLocal(values.CValue{Backend: "b"})
	ctx.PushLocal(values.CValue{Backend: "c"})

	if err := ctx.UnwindTo(marker, false); err != nil {
		t.Fatalf("UnwindTo: %v", err)
	}
	want := []string{"c", "b", "a"}
	if !reflect.DeepEqual(destroyed, want) {
		t.Errorf("destruction order = %v, want %v", destroyed, want)
	}
	if ctx.Marker() != marker {
		t.Errorf("stack not truncated to marker: depth %d, want %d", ctx.Marker(), marker)
	}
}

func TestUnwindToNestedScopesLeavesOuterUntouched(t *testing.T) {
	var destroyed []string
	ctx := newTestContext(&destroyed)

	ctx.PushLocal(values.CValue{Backend: "outer"})
	inner := ctx.Marker()
	ctx.PushLocal(values.CValue{Backend: "inner1"})
	ctx.PushLocal(values.CValue{Backend: "inner2"})

	if err := ctx.UnwindTo(inner, false); err != nil {
		t.Fatalf("UnwindTo: %v", err)
	}
	if !reflect.DeepEqual(destroyed, []string{"inner2", "inner1"}) {
		t.Errorf("got %v", destroyed)
	}
	if ctx.Marker() != inner {
		t.Errorf("marker mismatch: %d vs %d", ctx.Marker(), inner)
	}
}

func TestFinallyRunsOnBothPaths(t *testing.T) {
	var destroyed []string
	ctx := newTestContext(&destroyed)
	marker := ctx.Marker()

	var ran []bool
	ctx.PushPending(FinallyStatement, func(ctx *Context, exceptional bool) error {
		ran = append(ran, exceptional)
		return nil
	})

	if err := ctx.UnwindTo(marker, false); err != nil {
		t.Fatal(err)
	}
	if err := ctx.UnwindTo(marker, false); err != nil {
		t.Fatal(err)
	}
	ctx.PushPending(FinallyStatement, func(ctx *Context, exceptional bool) error {
		ran = append(ran, exceptional)
		return nil
	})
	if err := ctx.UnwindTo(marker, true); err != nil {
		t.Fatal(err)
	}
	want := []bool{false, true}
	if !reflect.DeepEqual(ran, want) {
		t.Errorf("finally ran with exceptional=%v, want %v", ran, want)
	}
}

func TestOnErrorRunsOnlyOnExceptionalPath(t *testing.T) {
	var destroyed []string
	ctx := newTestContext(&destroyed)
	marker := ctx.Marker()

	ran := false
	ctx.PushPending(OnErrorStatement, func(ctx *Context, exceptional bool) error {
		ran = true
		return nil
	})
	if err := ctx.UnwindTo(marker, false); err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Fatal("onerror ran on normal exit")
	}

	ctx.PushPending(OnErrorStatement, func(ctx *Context, exceptional bool) error {
		ran = true
		return nil
	})
	if err := ctx.UnwindTo(marker, true); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("onerror did not run on exceptional exit")
	}
}

func TestJumpTargetMarkerCapturesStackDepthAtPush(t *testing.T) {
	var destroyed []string
	ctx := newTestContext(&destroyed)

	ctx.PushLocal(values.CValue{Backend: "outer"})
	ctx.PushLoopTargets("break-block", "continue-block")
	if ctx.BreakTarget().Marker != 1 {
		t.Errorf("break target marker = %d, want 1", ctx.BreakTarget().Marker)
	}
	ctx.PushLocal(values.CValue{Backend: "loop-local"})
	if err := ctx.UnwindTo(ctx.BreakTarget().Marker, false); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(destroyed, []string{"loop-local"}) {
		t.Errorf("got %v", destroyed)
	}
	ctx.PopLoopTargets()
}

func TestAllocSlotReusesDiscarded(t *testing.T) {
	var destroyed []string
	ctx := newTestContext(&destroyed)

	var built int
	fresh := func() values.Handle { built++; return built }

	h1 := ctx.AllocSlot("Int32*", fresh)
	ctx.DiscardSlot("Int32*", h1)
	h2 := ctx.AllocSlot("Int32*", fresh)
	if h1 != h2 {
		t.Errorf("expected slot reuse, got h1=%v h2=%v", h1, h2)
	}
	if built != 1 {
		t.Errorf("fresh() called %d times, want 1", built)
	}

	h3 := ctx.AllocSlot("Int32*", fresh)
	if h3 == h2 {
		t.Error("expected a fresh slot when none discarded")
	}
	if built != 2 {
		t.Errorf("fresh() called %d times, want 2", built)
	}
}
