package env

import "github.com/clay-lang/claycore/internal/hir"

// Ref wraps e as an hir.EnvRef, for stashing a captured environment inside
// an hir.Overload/RecordDecl/VariantDecl/GlobalVar without hir importing
// this package.
func Ref(e *Env) *hir.EnvRef {
	return &hir.EnvRef{Any: e}
}

// Unref recovers the *Env a Ref call previously wrapped. A nil ref or a
// non-Env payload both yield (nil, false) — callers treat either as "no
// captured environment".
func Unref(ref *hir.EnvRef) (*Env, bool) {
	if ref == nil {
		return nil, false
	}
	e, ok := ref.Any.(*Env)
	return e, ok
}
