// Package analyzer implements spec.md §4.2: the pass that turns a
// resolved AST expression or statement, under an Env and a wanted arity,
// into a MultiPValue — a type plus an lvalue/rvalue flag per position.
package analyzer

import (
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// StaticEvaluator is the compile-time evaluator the spec treats as an
// external oracle: any sub-expression required as a type or static value
// is evaluated here and must yield a typed ValueHolder, an identifier, a
// type, or a procedure.
type StaticEvaluator interface {
	EvalBool(e hir.Expr, scope *env.Env) (bool, error)
	EvalType(e hir.Expr, scope *env.Env) (*types.Type, error)
	EvaluateMultiStatic(e hir.Expr, scope *env.Env) ([]types.StaticObject, error)
}

// InvokeResult is the return-shape subset of a specialized call the
// analyzer needs back from the specialization engine; specialize's
// concrete InvokeEntry type implements this interface so that package can
// depend on analyzer (to analyze call-by-name bodies) without analyzer
// needing to import it back.
type InvokeResult interface {
	ReturnTypes() []*types.Type
	ReturnIsRef() []bool
	Analyzed() bool
}

// Invoker resolves a call site to a monomorphized entry, ranking and
// binding overloads (spec.md §4.3). Implemented by internal/specialize.
type Invoker interface {
	SafeAnalyzeCallable(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) (InvokeResult, error)
}

// AnalysisContext tracks the recursion-fixed-point state of one callable
// body under analysis (spec.md §4.2 "Recursion propagation").
type AnalysisContext struct {
	Callable          *hir.Callable
	Recursive         bool
	ReturnInitialized bool
	GuessedReturn     []*types.Type
	CallByNameDepth   int
}

// CallByNameDepthLimit bounds call-by-name recursion (spec.md §9, "a magic
// constant (100 in source)" — preserved here as the package default; the
// compilation-wide override lives on internal/compilation.Compilation).
const CallByNameDepthLimit = 100

// Analyzer holds the process-wide collaborators and per-compilation
// memoization state for analyze_one/analyze_multi.
type Analyzer struct {
	Interner *types.Interner
	Eval     StaticEvaluator
	Invoke   Invoker
	Literals LiteralDecoder

	cache    *cache
	ctxStack []*AnalysisContext

	// globals indexes instantiated GlobalVar instances by (decl pointer,
	// indexing-params key), spec.md §4.2 "Global variable" contract: an
	// instance for given indexing params is looked up or created.
	globals map[string]*globalInstance
}

type globalInstance struct {
	decl *hir.GlobalVar
	typ  *types.Type
}

// New creates an Analyzer. eval and invoke are supplied by the
// compile-time evaluator and the specialization engine respectively; both
// are constructed after the Analyzer (they depend on it), so callers
// typically wire them in with SetEvaluator/SetInvoker once all three
// collaborators exist.
func New(interner *types.Interner) *Analyzer {
	return &Analyzer{
		Interner: interner,
		cache:    newCache(),
		globals:  make(map[string]*globalInstance),
	}
}

// SetEvaluator wires the compile-time evaluator collaborator.
func (a *Analyzer) SetEvaluator(ev StaticEvaluator) { a.Eval = ev }

// SetInvoker wires the specialization engine collaborator.
func (a *Analyzer) SetInvoker(inv Invoker) { a.Invoke = inv }

// SetLiteralDecoder wires the literal-decoding collaborator.
func (a *Analyzer) SetLiteralDecoder(ld LiteralDecoder) { a.Literals = ld }

// pushContext/popContext track the recursion-fixed-point stack used while
// analyzing a callable's body.
func (a *Analyzer) pushContext(c *hir.Callable) *AnalysisContext {
	ctx := &AnalysisContext{Callable: c}
	a.ctxStack = append(a.ctxStack, ctx)
	return ctx
}

func (a *Analyzer) popContext() {
	a.ctxStack = a.ctxStack[:len(a.ctxStack)-1]
}

func (a *Analyzer) currentContext() *AnalysisContext {
	if len(a.ctxStack) == 0 {
		return nil
	}
	return a.ctxStack[len(a.ctxStack)-1]
}

// inProgressCallable reports whether c is already on the analysis stack
// (a self-recursive call), and its context if so.
func (a *Analyzer) inProgressCallable(c *hir.Callable) (*AnalysisContext, bool) {
	for _, ctx := range a.ctxStack {
		if ctx.Callable == c {
			return ctx, true
		}
	}
	return nil, false
}

// AnalyzeOne analyzes e under scope and returns exactly one PValue,
// requiring arity 1 (spec.md §4.2 "Implicit unpack": otherwise require
// positional arity equality).
func (a *Analyzer) AnalyzeOne(e hir.Expr, scope *env.Env) (values.PValue, error) {
	m, err := a.AnalyzeMulti(e, scope, 1)
	if err != nil {
		return values.PValue{}, err
	}
	if len(m) != 1 {
		return values.PValue{}, &ArityError{At: e.Pos(), Want: 1, Got: len(m)}
	}
	return m[0], nil
}

// AnalyzeMulti analyzes e under scope wanting `arity` positions (0 means
// "no specific arity constraint" — used at statement-level expression
// contexts that discard the result).
func (a *Analyzer) AnalyzeMulti(e hir.Expr, scope *env.Env, arity int) (values.MultiPValue, error) {
	key := makeCacheKey(e, scope, arity)
	if v, ok := a.cache.Get(key); ok {
		return v, nil
	}

	v, err := a.analyzeDispatch(e, scope, arity)
	if err != nil {
		return nil, err
	}
	a.cache.Put(key, v)
	return v, nil
}

// analyzeDispatch is the exhaustive switch over hir.Expr kinds spec.md
// §4.2 requires ("Every expression kind is handled explicitly; unknown
// kinds are a compiler bug."). Most kinds normalize to an operator call
// conceptually (tupleLiteral, index, call, fieldRef…) — here that
// normalization and its evaluation are the same Go function, since Go has
// no separate "build then evaluate" step for a closed switch.
func (a *Analyzer) analyzeDispatch(e hir.Expr, scope *env.Env, arity int) (values.MultiPValue, error) {
	switch n := e.(type) {
	case *hir.Identifier:
		return a.analyzeIdentifier(n, scope)
	case *hir.IntLiteral:
		return a.analyzeIntLiteral(n, scope)
	case *hir.FloatLiteral:
		return a.analyzeFloatLiteral(n, scope)
	case *hir.CharLiteral:
		return a.analyzeCharLiteral(n, scope)
	case *hir.StringLiteral:
		return a.analyzeStringLiteral(n, scope)
	case *hir.Tuple:
		return a.analyzeTuple(n, scope, arity)
	case *hir.Index:
		return a.analyzeIndex(n, scope)
	case *hir.StaticIndex:
		return a.analyzeStaticIndex(n, scope)
	case *hir.FieldRef:
		return a.analyzeFieldRef(n, scope)
	case *hir.Call:
		return a.analyzeCall(n, scope)
	case *hir.VariadicOp:
		return a.analyzeVariadicOp(n, scope)
	case *hir.Lambda:
		return a.analyzeLambda(n, scope)
	case *hir.Eval:
		return a.analyzeEval(n, scope)
	case *hir.Unpack:
		return a.analyzeUnpack(n, scope, arity)
	case *hir.Foreign:
		return a.analyzeForeign(n, scope)
	case *hir.And:
		return a.analyzeAnd(n, scope)
	case *hir.Or:
		return a.analyzeOr(n, scope)
	case *hir.ThrowValue:
		return a.analyzeThrowValue(n, scope)
	default:
		panic(&UnknownExprKindError{At: e.Pos(), Kind: n})
	}
}

// UnknownExprKindError is the compiler-bug panic spec.md §7 requires for
// an unhandled expression kind.
type UnknownExprKindError struct {
	At   hir.Position
	Kind any
}

func (e *UnknownExprKindError) Error() string {
	return "internal error: unhandled expression kind"
}
