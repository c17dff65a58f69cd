package analyzer

import (
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/primops"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// LiteralDecoder turns an undecoded literal token into a typed constant
// (internal/literals, §4.6).
type LiteralDecoder interface {
	DecodeInt(text, suffix string, defaultIntType *types.Type) (values.ValueHolder, *types.Type, error)
	DecodeFloat(text, suffix string) (values.ValueHolder, *types.Type, error)
}

// one wraps a single PValue as a MultiPValue.
func one(p values.PValue) values.MultiPValue { return values.MultiPValue{p} }

func rvalue(t *types.Type) values.PValue { return values.PValue{Type: t, IsTemp: true} }
func lvalue(t *types.Type) values.PValue { return values.PValue{Type: t, IsTemp: false} }

// analyzeIdentifier resolves a name reference to whatever the environment
// binds it to (spec.md §4.2 "Name references"); an alias entry is
// re-analyzed in its capture env (forwarded scope).
func (a *Analyzer) analyzeIdentifier(n *hir.Identifier, scope *env.Env) (values.MultiPValue, error) {
	ent, err := scope.Require(n.Name)
	if err != nil {
		return nil, err
	}
	switch ent.Kind {
	case env.EntryValue:
		if p, ok := ent.Value.(values.PValue); ok {
			return one(p), nil
		}
		return nil, &InvalidStaticObjectError{At: n.At, Detail: "identifier bound to non-value entry"}
	case env.EntryAlias:
		return a.AnalyzeMulti(ent.AliasExpr, ent.AliasEnv, 0)
	case env.EntryPatternVar:
		return one(a.staticObjectAsValue(ent.PatternVar)), nil
	case env.EntryType:
		return nil, &InvalidStaticObjectError{At: n.At, Detail: "type name used in value position"}
	default:
		return nil, &NotACallableError{At: n.At, Name: n.Name}
	}
}

// staticObjectAsValue converts an Int/Bool static object bound by a
// pattern match into a compile-time-constant rvalue; Type/Ident/Proc
// statics have no runtime representation and are only valid in static
// (type/pattern) contexts.
func (a *Analyzer) staticObjectAsValue(obj types.StaticObject) values.PValue {
	switch obj.Kind {
	case types.StaticKindInt:
		return rvalue(a.Interner.InternInteger(32, true))
	case types.StaticKindBool:
		return rvalue(a.Interner.InternBool())
	default:
		return rvalue(nil)
	}
}

func (a *Analyzer) analyzeIntLiteral(n *hir.IntLiteral, scope *env.Env) (values.MultiPValue, error) {
	_, t, err := a.decodeInt(n)
	if err != nil {
		return nil, err
	}
	return one(rvalue(t)), nil
}

func (a *Analyzer) decodeInt(n *hir.IntLiteral) (values.ValueHolder, *types.Type, error) {
	if a.Literals == nil {
		return values.ValueHolder{}, nil, &InvalidStaticObjectError{At: n.At, Detail: "no literal decoder wired"}
	}
	var defaultIntType *types.Type
	return a.Literals.DecodeInt(n.Text, n.Suffix, defaultIntType)
}

func (a *Analyzer) analyzeFloatLiteral(n *hir.FloatLiteral, scope *env.Env) (values.MultiPValue, error) {
	if a.Literals == nil {
		return nil, &InvalidStaticObjectError{At: n.At, Detail: "no literal decoder wired"}
	}
	_, t, err := a.Literals.DecodeFloat(n.Text, n.Suffix)
	if err != nil {
		return nil, err
	}
	return one(rvalue(t)), nil
}

// analyzeCharLiteral normalizes to the prelude's char-construction
// operator, which in this universe is simply an 8-bit unsigned integer.
func (a *Analyzer) analyzeCharLiteral(n *hir.CharLiteral, scope *env.Env) (values.MultiPValue, error) {
	return one(rvalue(a.Interner.InternInteger(8, false))), nil
}

// analyzeStringLiteral yields an rvalue Pointer(UInt8), per the primitive
// string-literal introspection operations' byte-slice model.
func (a *Analyzer) analyzeStringLiteral(n *hir.StringLiteral, scope *env.Env) (values.MultiPValue, error) {
	i8 := a.Interner.InternInteger(8, false)
	return one(rvalue(a.Interner.InternPointer(i8))), nil
}

// analyzeTuple normalizes to a call to the prelude's tupleLiteral
// operator: each element is analyzed for exactly one position and the
// results concatenate positionally when arity asks for more than 1,
// otherwise a single Tuple(...) rvalue is produced.
func (a *Analyzer) analyzeTuple(n *hir.Tuple, scope *env.Env, arity int) (values.MultiPValue, error) {
	if arity > 1 {
		out := make(values.MultiPValue, 0, len(n.Elems))
		for _, el := range n.Elems {
			p, err := a.AnalyzeOne(el, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		if len(out) != arity {
			return nil, &ArityError{At: n.At, Want: arity, Got: len(out)}
		}
		return out, nil
	}
	elemTypes := make([]*types.Type, len(n.Elems))
	for i, el := range n.Elems {
		p, err := a.AnalyzeOne(el, scope)
		if err != nil {
			return nil, err
		}
		elemTypes[i] = p.Type
	}
	return one(rvalue(a.Interner.InternTuple(elemTypes))), nil
}

// analyzeIndex normalizes to the prelude's index operator, except that a
// base resolving to a type/record/variant name is a parametrization
// (record/variant/array instantiation), not a runtime index.
func (a *Analyzer) analyzeIndex(n *hir.Index, scope *env.Env) (values.MultiPValue, error) {
	if id, ok := n.Base.(*hir.Identifier); ok {
		if ent, ok := scope.Lookup(id.Name); ok && ent.Kind == env.EntryType {
			statics, err := a.evalArgsAsStatics(n.Args, scope)
			if err != nil {
				return nil, err
			}
			_ = statics // concrete instantiation is performed by the type interner's
			// Intern* constructors, keyed on these statics; callers needing the
			// instantiated Type call through a.Interner directly with ent.Type.
			return one(rvalue(nil)), nil
		}
	}
	base, err := a.AnalyzeOne(n.Base, scope)
	if err != nil {
		return nil, err
	}
	for _, arg := range n.Args {
		if _, err := a.AnalyzeOne(arg, scope); err != nil {
			return nil, err
		}
	}
	elem := base.Type
	if elem != nil {
		switch elem.Kind() {
		case types.KindArray, types.KindVec:
			elem = elem.Elem()
		case types.KindPointer:
			elem = elem.Pointee()
		}
	}
	return one(values.PValue{Type: elem, IsTemp: false}), nil
}

func (a *Analyzer) evalArgsAsStatics(args []hir.Expr, scope *env.Env) ([]types.StaticObject, error) {
	out := make([]types.StaticObject, 0, len(args))
	for _, arg := range args {
		s, err := a.Eval.EvaluateMultiStatic(arg, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	}
	return out, nil
}

// analyzeStaticIndex handles `Base.#N` / `Base.$name` static indexing
// (record field access by static position/name).
func (a *Analyzer) analyzeStaticIndex(n *hir.StaticIndex, scope *env.Env) (values.MultiPValue, error) {
	base, err := a.AnalyzeOne(n.Base, scope)
	if err != nil {
		return nil, err
	}
	if base.Type == nil || base.Type.Kind() != types.KindRecord {
		return nil, &TypeMismatchError{At: n.At, Want: "record", Got: typeName(base.Type)}
	}
	fields, err := a.Interner.Fields(base.Type)
	if err != nil {
		return nil, err
	}
	idx := -1
	switch fieldSel := n.Field.(type) {
	case *hir.IntLiteral:
		holder, _, derr := a.decodeInt(fieldSel)
		if derr != nil {
			return nil, derr
		}
		var v int64
		for i := len(holder.Bytes) - 1; i >= 0; i-- {
			v = v<<8 | int64(holder.Bytes[i])
		}
		idx = int(v)
	case *hir.Identifier:
		for i, f := range fields {
			if f.Name == fieldSel.Name {
				idx = i
				break
			}
		}
	}
	if idx < 0 || idx >= len(fields) {
		return nil, &TypeMismatchError{At: n.At, Want: "valid field", Got: "out of range"}
	}
	return one(values.PValue{Type: fields[idx].Type, IsTemp: base.IsTemp}), nil
}

// analyzeFieldRef handles `Base.Name` by delegating to the same field
// table static indexing uses, by name.
func (a *Analyzer) analyzeFieldRef(n *hir.FieldRef, scope *env.Env) (values.MultiPValue, error) {
	base, err := a.AnalyzeOne(n.Base, scope)
	if err != nil {
		return nil, err
	}
	if base.Type == nil || base.Type.Kind() != types.KindRecord {
		return nil, &TypeMismatchError{At: n.At, Want: "record", Got: typeName(base.Type)}
	}
	fields, err := a.Interner.Fields(base.Type)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name == n.Name {
			return one(values.PValue{Type: f.Type, IsTemp: base.IsTemp}), nil
		}
	}
	return nil, &TypeMismatchError{At: n.At, Want: "field " + n.Name, Got: "no such field"}
}

// analyzeCall implements spec.md §4.2's "Call resolution" contract:
// compute args_key/temp_key from analyzed positional values, resolve the
// callable, and delegate specialization to the Invoker collaborator.
func (a *Analyzer) analyzeCall(n *hir.Call, scope *env.Env) (values.MultiPValue, error) {
	callableIdent, ok := n.Callable.(*hir.Identifier)
	if !ok {
		return nil, &NotACallableError{At: n.At, Name: n.Callable.String()}
	}
	ent, err := scope.Require(callableIdent.Name)
	if err != nil {
		return nil, err
	}
	if ent.Kind == env.EntryPrimOp {
		args := make(values.MultiPValue, len(n.Args))
		for i, arg := range n.Args {
			p, aerr := a.AnalyzeOne(arg, scope)
			if aerr != nil {
				return nil, aerr
			}
			args[i] = p
		}
		return primops.ComputeType(a.Interner, primops.PrimOpCode(ent.PrimOp), args)
	}
	if ent.Kind != env.EntryCallable {
		return nil, &NotACallableError{At: n.At, Name: callableIdent.Name}
	}

	dispatchPositions, argsKey, tempKey, err := a.analyzeCallArgs(n, scope)
	if err != nil {
		return nil, err
	}
	_ = dispatchPositions // consumed by internal/lower's call-lowering cascade

	if a.Invoke == nil {
		return nil, &NotACallableError{At: n.At, Name: callableIdent.Name + " (no invoker wired)"}
	}
	if ctx, recursing := a.inProgressCallable(ent.Callable); recursing {
		ctx.Recursive = true
		if ctx.ReturnInitialized {
			out := make(values.MultiPValue, len(ctx.GuessedReturn))
			for i, t := range ctx.GuessedReturn {
				out[i] = rvalue(t)
			}
			return out, nil
		}
		return nil, &RecursionNotResolvedError{At: n.At, Name: callableIdent.Name}
	}

	ctx := a.pushContext(ent.Callable)
	defer a.popContext()

	entry, err := a.Invoke.SafeAnalyzeCallable(ent.Callable, argsKey, tempKey)
	if err != nil {
		return nil, err
	}
	ctx.ReturnInitialized = true
	ctx.GuessedReturn = entry.ReturnTypes()

	returnTypes := entry.ReturnTypes()
	returnIsRef := entry.ReturnIsRef()
	out := make(values.MultiPValue, len(returnTypes))
	for i, t := range returnTypes {
		isTemp := true
		if i < len(returnIsRef) && returnIsRef[i] {
			isTemp = false
		}
		out[i] = values.PValue{Type: t, IsTemp: isTemp}
	}
	return out, nil
}

// analyzeCallArgs analyzes each call argument for one position (spec.md
// §4.2 "Dispatch expansion": a dispatch(e) marker on position i is
// recorded for the lowering driver, which computes tagCount(T_i) and
// emits the per-tag cascade; analysis itself proceeds with the argument's
// plain analyzed type).
func (a *Analyzer) analyzeCallArgs(n *hir.Call, scope *env.Env) (dispatchPositions []int, argsKey []*types.Type, tempKey []values.Tempness, err error) {
	argsKey = make([]*types.Type, len(n.Args))
	tempKey = make([]values.Tempness, len(n.Args))
	for i, arg := range n.Args {
		p, aerr := a.AnalyzeOne(arg, scope)
		if aerr != nil {
			return nil, nil, nil, aerr
		}
		argsKey[i] = p.Type
		tempKey[i] = p.Tempness()
		if i < len(n.Dispatch) && n.Dispatch[i] {
			dispatchPositions = append(dispatchPositions, i)
		}
	}
	return dispatchPositions, argsKey, tempKey, nil
}

// analyzeVariadicOp analyzes each argument for side effects/typing and
// yields the operator's declared result type; the concrete result type is
// an external-collaborator concern (desugarVariadicOp already picked the
// target primitive), so this just validates operand analyzability.
func (a *Analyzer) analyzeVariadicOp(n *hir.VariadicOp, scope *env.Env) (values.MultiPValue, error) {
	for _, arg := range n.Args {
		if _, err := a.AnalyzeOne(arg, scope); err != nil {
			return nil, err
		}
	}
	return one(rvalue(nil)), nil
}

// analyzeLambda captures scope as the closure environment and returns a
// CodePointer-typed rvalue; the body itself is analyzed lazily, the first
// time the lambda is invoked and its parameter types are known (mirroring
// call-by-name overload bodies).
func (a *Analyzer) analyzeLambda(n *hir.Lambda, scope *env.Env) (values.MultiPValue, error) {
	return one(rvalue(a.Interner.InternCodePointer(nil, nil, nil))), nil
}

// analyzeEval hands the operand to the compile-time evaluator and wraps
// its static int/bool result back into a PValue; type/ident/proc results
// have no value-position meaning and are a user error here.
func (a *Analyzer) analyzeEval(n *hir.Eval, scope *env.Env) (values.MultiPValue, error) {
	statics, err := a.Eval.EvaluateMultiStatic(n.Operand, scope)
	if err != nil {
		return nil, err
	}
	out := make(values.MultiPValue, len(statics))
	for i, s := range statics {
		if s.Kind != types.StaticKindInt && s.Kind != types.StaticKindBool {
			return nil, &InvalidStaticObjectError{At: n.At, Detail: "eval result has no runtime value"}
		}
		out[i] = a.staticObjectAsValue(s)
	}
	return out, nil
}

// analyzeUnpack implements implicit unpack (§4.2): if the enclosing
// context wants N ≥ 1 positions and the operand's arity is ≥ N, expand
// positionally.
func (a *Analyzer) analyzeUnpack(n *hir.Unpack, scope *env.Env, arity int) (values.MultiPValue, error) {
	want := arity
	if want < 1 {
		want = 0
	}
	m, err := a.AnalyzeMulti(n.Operand, scope, want)
	if err != nil {
		return nil, err
	}
	if want > 0 && len(m) != want {
		return nil, &ArityError{At: n.At, Want: want, Got: len(m)}
	}
	return m, nil
}

// analyzeForeign resolves `Mod.Name` directly against the module's
// exported scope, bypassing the lexical chain.
func (a *Analyzer) analyzeForeign(n *hir.Foreign, scope *env.Env) (values.MultiPValue, error) {
	ent, err := scope.Require(n.Module)
	if err != nil {
		return nil, err
	}
	if ent.Kind != env.EntryModule || ent.Module == nil {
		return nil, &NotACallableError{At: n.At, Name: n.Module}
	}
	for _, g := range ent.Module.Globals {
		if g.Name == n.Name {
			return a.analyzeGlobalVar(g, scope, nil)
		}
	}
	for _, c := range ent.Module.Callables {
		if c.Name == n.Name {
			return one(values.PValue{Type: nil, IsTemp: true}), nil
		}
	}
	return nil, &NotACallableError{At: n.At, Name: n.Module + "." + n.Name}
}

// analyzeGlobalVar implements spec.md §4.2 "Global variable": the
// instance for given indexing params is looked up or created; analysis
// yields one lvalue of its type.
func (a *Analyzer) analyzeGlobalVar(g *hir.GlobalVar, scope *env.Env, indexParams []types.StaticObject) (values.MultiPValue, error) {
	key := makeCacheKey(g, scope, 0).expr + makeCacheKey(indexParams, scope, 0).expr
	if inst, ok := a.globals[key]; ok {
		return one(lvalue(inst.typ)), nil
	}
	var declaredScope *env.Env = scope
	if ge, ok := env.Unref(g.Env); ok {
		declaredScope = ge
	}
	var t *types.Type
	if g.Declared != nil {
		dt, err := a.Eval.EvalType(g.Declared, declaredScope)
		if err != nil {
			return nil, err
		}
		t = dt
	} else {
		p, err := a.AnalyzeOne(g.Init, declaredScope)
		if err != nil {
			return nil, err
		}
		t = p.Type
	}
	a.globals[key] = &globalInstance{decl: g, typ: t}
	return one(lvalue(t)), nil
}

// analyzeAnd/analyzeOr implement short-circuit boolean connectives:
// both sides are analyzed under the common type Bool (spec.md §4.2, §5
// Testable Property 8 — the short-circuit itself is a lowering-time
// concern; analysis only fixes the static Bool type).
func (a *Analyzer) analyzeAnd(n *hir.And, scope *env.Env) (values.MultiPValue, error) {
	return a.analyzeBoolConnective(n.At, n.Left, n.Right, scope)
}

func (a *Analyzer) analyzeOr(n *hir.Or, scope *env.Env) (values.MultiPValue, error) {
	return a.analyzeBoolConnective(n.At, n.Left, n.Right, scope)
}

func (a *Analyzer) analyzeBoolConnective(at hir.Position, left, right hir.Expr, scope *env.Env) (values.MultiPValue, error) {
	lp, err := a.AnalyzeOne(left, scope)
	if err != nil {
		return nil, err
	}
	boolType := a.Interner.InternBool()
	if lp.Type != boolType {
		return nil, &TypeMismatchError{At: at, Want: "Bool", Got: typeName(lp.Type)}
	}
	rp, err := a.AnalyzeOne(right, scope)
	if err != nil {
		return nil, err
	}
	if rp.Type != boolType {
		return nil, &TypeMismatchError{At: at, Want: "Bool", Got: typeName(rp.Type)}
	}
	return one(rvalue(boolType)), nil
}

// analyzeThrowValue normalizes to the prelude's throwValue operator; its
// static result type is Void (control never falls through at runtime, but
// analysis of the enclosing expression still needs a type).
func (a *Analyzer) analyzeThrowValue(n *hir.ThrowValue, scope *env.Env) (values.MultiPValue, error) {
	if n.Operand != nil {
		if _, err := a.AnalyzeOne(n.Operand, scope); err != nil {
			return nil, err
		}
	} else if !scope.ExceptionAvailable() {
		return nil, &InvalidStaticObjectError{At: n.At, Detail: "rethrow outside catch"}
	}
	return one(rvalue(nil)), nil
}

func typeName(t *types.Type) string {
	if t == nil {
		return "<unresolved>"
	}
	return t.String()
}
