package lower

import "testing"

type fakeInterp struct{}

func (fakeInterp) ResolveName(name string) (string, error) {
	switch name {
	case "T":
		return "i32", nil
	case "n":
		return "42", nil
	}
	return "", errUnresolved(name)
}

func (fakeInterp) ResolveExpr(expr string) (string, error) {
	switch expr {
	case "n + 1":
		return "43", nil
	case "T":
		return "i32", nil
	}
	return "", errUnresolved(expr)
}

type errUnresolved string

func (e errUnresolved) Error() string { return "unresolved: " + string(e) }

func TestInterpolateName(t *testing.T) {
	got, err := Interpolate("define void @f(${T} %x) { call @g($n) }", fakeInterp{})
	if err != nil {
		t.Fatal(err)
	}
	want := "define void @f(i32 %x) { call @g(42) }"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterpolateExpression(t *testing.T) {
	got, err := Interpolate("ret i32 ${n + 1}", fakeInterp{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ret i32 43" {
		t.Errorf("got %q", got)
	}
}

func TestInterpolateEscapedDollar(t *testing.T) {
	got, err := Interpolate("cost: $$5", fakeInterp{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "cost: $5" {
		t.Errorf("got %q", got)
	}
}

func TestInterpolateUnterminatedBraceFails(t *testing.T) {
	if _, err := Interpolate("${n", fakeInterp{}); err == nil {
		t.Fatal("expected error for unterminated '${'")
	}
}

func TestInterpolateDanglingDollarFails(t *testing.T) {
	if _, err := Interpolate("abc$", fakeInterp{}); err == nil {
		t.Fatal("expected error for dangling '$'")
	}
}
