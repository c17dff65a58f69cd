package analyzer

import (
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/types"
)

// fieldResolver implements types.FieldResolver (spec.md §4.1's Record and
// Variant field-materialization contracts), installed on the interner via
// SetFieldResolver so the type package stays a leaf component.
type fieldResolver struct {
	a *Analyzer
}

// NewFieldResolver returns the types.FieldResolver this analyzer backs;
// callers install it with interner.SetFieldResolver(NewFieldResolver(a)).
func NewFieldResolver(a *Analyzer) types.FieldResolver {
	return fieldResolver{a: a}
}

// ResolveRecordFields resolves t's declared field list in the record's
// environment bound to its params (§4.1); a var field expands to a
// sequence of types and a computed body is evaluated as an expression
// yielding (Identifier, Type) tuples.
func (fr fieldResolver) ResolveRecordFields(t *types.Type) ([]types.Field, error) {
	decl, ok := t.DeclRef().(*hir.RecordDecl)
	if !ok {
		return nil, &InvalidStaticObjectError{Detail: "record type has no RecordDecl"}
	}
	scope := fr.recordScope(decl, t.Params())

	if decl.ComputedBody != nil {
		return fr.resolveComputedBody(decl.ComputedBody, scope)
	}

	var fields []types.Field
	for _, fd := range decl.Fields {
		ft, err := fr.a.Eval.EvalType(fd.Declared, scope)
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.Field{Name: fd.Name, Type: ft, IsVar: fd.IsVar})
	}
	return fields, nil
}

// resolveComputedBody evaluates a computed record body: an expression
// yielding a tuple of (Identifier, Type) pairs, optionally wrapped in a
// RecordWithProperties(props, fields) descriptor. Property attachment
// (installing overloads on the named procedure) is the compile-time
// evaluator's responsibility since it already owns procedure/overload
// mutation; here we only extract the field list it reports.
func (fr fieldResolver) resolveComputedBody(body hir.Expr, scope *env.Env) ([]types.Field, error) {
	statics, err := fr.a.Eval.EvaluateMultiStatic(body, scope)
	if err != nil {
		return nil, err
	}
	if len(statics)%2 != 0 {
		return nil, &InvalidStaticObjectError{Detail: "computed record body: odd element count, want (Ident,Type) pairs"}
	}
	fields := make([]types.Field, 0, len(statics)/2)
	for i := 0; i+1 < len(statics); i += 2 {
		nameObj, typeObj := statics[i], statics[i+1]
		if nameObj.Kind != types.StaticKindIdent || typeObj.Kind != types.StaticKindType {
			return nil, &InvalidStaticObjectError{Detail: "computed record body: expected (Ident,Type) pair"}
		}
		fields = append(fields, types.Field{Name: nameObj.Ident, Type: typeObj.Type})
	}
	return fields, nil
}

// ResolveVariantMembers evaluates the variant's default instances plus,
// for each instance declaration, unifies its pattern against t and (on a
// true predicate) appends its members (§4.1).
func (fr fieldResolver) ResolveVariantMembers(t *types.Type) ([]*types.Type, error) {
	decl, ok := t.DeclRef().(*hir.VariantDecl)
	if !ok {
		return nil, &InvalidStaticObjectError{Detail: "variant type has no VariantDecl"}
	}
	scope := fr.variantScope(decl, t.Params())

	var members []*types.Type
	for _, defaultExpr := range decl.Defaults {
		ts, err := fr.evalTypeSequence(defaultExpr, scope)
		if err != nil {
			return nil, err
		}
		members = append(members, ts...)
	}

	for _, inst := range decl.Instances {
		if !fr.unifiesWithParams(inst.Pattern, t.Params(), scope) {
			continue
		}
		if inst.Predicate != nil {
			ok, err := fr.a.Eval.EvalBool(inst.Predicate, scope)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		ts, err := fr.evalTypeSequence(inst.Members, scope)
		if err != nil {
			return nil, err
		}
		members = append(members, ts...)
	}
	return members, nil
}

// unifiesWithParams checks whether an instance's pattern expression
// structurally matches t's bound params; a single Identifier pattern
// always unifies (it binds everything), a Tuple pattern requires matching
// arity. Unification itself (binding pattern variables into scope for the
// instance's predicate/members expressions) is the compile-time
// evaluator's job — the analyzer only performs the arity-level gate here.
func (fr fieldResolver) unifiesWithParams(pattern hir.Expr, params []types.StaticObject, scope *env.Env) bool {
	if pattern == nil {
		return true
	}
	if tup, ok := pattern.(*hir.Tuple); ok {
		return len(tup.Elems) == len(params)
	}
	return true
}

func (fr fieldResolver) evalTypeSequence(e hir.Expr, scope *env.Env) ([]*types.Type, error) {
	statics, err := fr.a.Eval.EvaluateMultiStatic(e, scope)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Type, 0, len(statics))
	for _, s := range statics {
		if s.Kind != types.StaticKindType {
			return nil, &InvalidStaticObjectError{Detail: "variant member expression did not yield a type"}
		}
		out = append(out, s.Type)
	}
	return out, nil
}

// recordScope/variantScope build the declaration environment bound to the
// type's params: the decl's captured environment extended with one
// EntryPatternVar (or EntryType, for a Type-kind static) per declared
// parameter name.
func (fr fieldResolver) recordScope(decl *hir.RecordDecl, params []types.StaticObject) *env.Env {
	base, _ := env.Unref(decl.Env)
	return bindParams(base, decl.Params, decl.VarParam, params)
}

func (fr fieldResolver) variantScope(decl *hir.VariantDecl, params []types.StaticObject) *env.Env {
	base, _ := env.Unref(decl.Env)
	return bindParams(base, decl.Params, "", params)
}

func bindParams(base *env.Env, names []string, varParam string, params []types.StaticObject) *env.Env {
	if base == nil {
		base = env.New()
	}
	scope := env.NewEnclosed(base)
	for i, name := range names {
		if i < len(params) {
			bindOneParam(scope, name, params[i])
		}
	}
	if varParam != "" && len(params) >= len(names) {
		scope.Define(varParam, env.Entry{Kind: env.EntryMultiStatic, MultiStatic: params[len(names):]})
	}
	return scope
}

func bindOneParam(scope *env.Env, name string, obj types.StaticObject) {
	if obj.Kind == types.StaticKindType {
		scope.Define(name, env.Entry{Kind: env.EntryType, Type: obj.Type})
		return
	}
	scope.Define(name, env.Entry{Kind: env.EntryPatternVar, PatternVar: obj})
}
