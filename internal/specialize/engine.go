package specialize

import (
	"github.com/clay-lang/claycore/internal/analyzer"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// Engine is the specialization/invoke engine of spec.md §4.3. It holds
// the global entry registry and a reference back to the analyzer so it
// can analyze overload bodies; Engine implements analyzer.Invoker, and
// *InvokeEntry implements analyzer.InvokeResult, closing the mutual
// dependency the same way internal/types closes it with FieldResolver.
type Engine struct {
	Registry *Registry
	Analyze  *analyzer.Analyzer

	// callByNameDepth is the current call-by-name recursion depth, bounded
	// by DepthLimit (spec.md §9 Open Question: "preserve the limit but
	// expose it as a configurable bound").
	callByNameDepth int
	DepthLimit      int
}

// NewEngine creates an Engine bound to reg and an — the analyzer must
// already exist (SetInvoker(engine) is called after this to close the
// cycle).
func NewEngine(reg *Registry, an *analyzer.Analyzer) *Engine {
	return &Engine{Registry: reg, Analyze: an, DepthLimit: analyzer.CallByNameDepthLimit}
}

// SafeAnalyzeCallable implements analyzer.Invoker (spec.md §4.3).
func (e *Engine) SafeAnalyzeCallable(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) (analyzer.InvokeResult, error) {
	entry, existed := e.Registry.LookupOrCreate(callable, argsKey, tempKey)
	if existed && entry.Analyzed() {
		return entry, nil
	}
	if existed && entry.CallByName {
		// Call-by-name overloads are analyzed per call site, never cached
		// as "already analyzed" — re-run the per-site analysis below.
	}

	ov, bound, err := e.rankAndBind(callable, argsKey, tempKey)
	if err != nil {
		return nil, err
	}

	if ov.ReturnByName {
		return e.analyzeCallByName(entry, ov, bound)
	}
	return e.analyzeOverloadBody(entry, ov, bound)
}

// Invoke re-resolves callable the same way SafeAnalyzeCallable does, but
// returns the concrete *InvokeEntry rather than the narrower
// analyzer.InvokeResult view — internal/lower needs LoweredFn,
// ExternalName/ExternalConv, and LLVMBody, none of which that interface
// exposes. The type assertion always succeeds: every analyzer.InvokeResult
// this Engine ever hands out is one of its own *InvokeEntry values.
func (e *Engine) Invoke(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) (*InvokeEntry, error) {
	res, err := e.SafeAnalyzeCallable(callable, argsKey, tempKey)
	if err != nil {
		return nil, err
	}
	return res.(*InvokeEntry), nil
}

// rankAndBind picks the best-matching overload (declared specificity,
// satisfied predicate, tempness match; ties broken by textual order —
// later declarations shadow earlier ones, so we scan head-first order and
// keep the last match) and returns its bound environment.
func (e *Engine) rankAndBind(callable *hir.Callable, argsKey []*types.Type, tempKey []values.Tempness) (*hir.Overload, *env.Env, error) {
	var best *hir.Overload
	var bestScope *env.Env
	bestScore := -1

	for _, ov := range callable.Overloads {
		scope, score, ok := e.tryBind(ov, argsKey, tempKey)
		if !ok {
			continue
		}
		if score >= bestScore {
			best, bestScope, bestScore = ov, scope, score
		}
	}
	if best == nil {
		return nil, nil, &analyzer.NoMatchingOverloadError{Name: callable.Name}
	}
	return best, bestScope, nil
}

// tryBind checks arity, binds each fixed parameter's PValue and (when
// declared) checks its type against args_key, then evaluates the
// overload's predicate. Pattern-variable unification beyond per-position
// type equality is delegated to the compile-time evaluator collaborator
// (spec.md §6, "Static evaluation ... external collaborator").
func (e *Engine) tryBind(ov *hir.Overload, argsKey []*types.Type, tempKey []values.Tempness) (*env.Env, int, bool) {
	n := len(ov.Pattern)
	if ov.VarArgName == "" {
		if len(argsKey) != n {
			return nil, 0, false
		}
	} else if len(argsKey) < n {
		return nil, 0, false
	}

	declEnv, _ := env.Unref(ov.Env)
	if declEnv == nil {
		declEnv = env.New()
	}
	scope := env.NewEnclosed(declEnv)

	specificity := 0
	for i, p := range ov.Pattern {
		scope.Define(p.Name, env.Entry{Kind: env.EntryValue, Value: values.PValue{
			Type:   argsKey[i],
			IsTemp: tempKey[i] == values.Rvalue,
		}})
		if p.Declared != nil {
			declaredType, err := e.Analyze.Eval.EvalType(p.Declared, scope)
			if err != nil || (declaredType != nil && declaredType != argsKey[i]) {
				return nil, 0, false
			}
			specificity++
		}
	}
	if ov.VarArgName != "" {
		scope.Define(ov.VarArgName, env.Entry{Kind: env.EntryMultiStatic})
	}

	if ov.Predicate != nil {
		ok, err := e.Analyze.Eval.EvalBool(ov.Predicate, scope)
		if err != nil || !ok {
			return nil, 0, false
		}
		specificity++
	}
	return scope, specificity, true
}

// analyzeOverloadBody analyzes ov.Body once, fills entry's return shape,
// and marks it analyzed (spec.md §4.3).
func (e *Engine) analyzeOverloadBody(entry *InvokeEntry, ov *hir.Overload, scope *env.Env) (*InvokeEntry, error) {
	entry.FixedArgNames = paramNames(ov.Pattern)
	entry.VarArgName = ov.VarArgName
	entry.Env = scope
	entry.Body = ov.Body
	entry.IsInline = ov.Inline
	entry.ExternalName = ov.ExternalName
	entry.ExternalConv = ov.ExternalConv
	entry.LLVMBody = ov.LLVMBody

	returnTypes, returnIsRef, err := e.analyzeReturns(ov.Body, scope)
	if err != nil {
		return nil, err
	}
	entry.ReturnTypesList = returnTypes
	entry.ReturnIsRefFlags = returnIsRef
	entry.analyzed = true
	return entry, nil
}

// analyzeCallByName re-analyzes ov.Body at every call (it is never marked
// analyzed, so SafeAnalyzeCallable always re-enters here for it), bounded
// by DepthLimit (spec.md §7 "alias-function stack overflow (depth > 100)").
func (e *Engine) analyzeCallByName(entry *InvokeEntry, ov *hir.Overload, scope *env.Env) (*InvokeEntry, error) {
	if e.callByNameDepth >= e.DepthLimit {
		return nil, &CallByNameDepthExceededError{Name: entry.Callable.Name, Limit: e.DepthLimit}
	}
	e.callByNameDepth++
	defer func() { e.callByNameDepth-- }()

	entry.CallByName = true
	entry.FixedArgNames = paramNames(ov.Pattern)
	entry.VarArgName = ov.VarArgName
	entry.Env = scope
	entry.Body = ov.Body
	entry.IsInline = ov.Inline

	returnTypes, returnIsRef, err := e.analyzeReturns(ov.Body, scope)
	if err != nil {
		return nil, err
	}
	entry.ReturnTypesList = returnTypes
	entry.ReturnIsRefFlags = returnIsRef
	return entry, nil
}

// analyzeReturns walks a body's statements under scope, collecting the
// analyzed types of the first top-level Return statement; later or nested
// Returns are not consulted. By-ref flags follow ReturnKind.
func (e *Engine) analyzeReturns(body []hir.Stmt, scope *env.Env) ([]*types.Type, []bool, error) {
	var returnTypes []*types.Type
	var returnIsRef []bool
	bodyScope := env.NewEnclosed(scope)
	for _, s := range body {
		if err := e.Analyze.AnalyzeStmt(s, bodyScope); err != nil {
			return nil, nil, err
		}
		if ret, ok := s.(*hir.Return); ok && returnTypes == nil {
			for _, v := range ret.Values {
				p, err := e.Analyze.AnalyzeOne(v, bodyScope)
				if err != nil {
					return nil, nil, err
				}
				returnTypes = append(returnTypes, p.Type)
				returnIsRef = append(returnIsRef, ret.Kind == hir.ReturnByRef)
			}
		}
	}
	return returnTypes, returnIsRef, nil
}

func paramNames(pattern []hir.Param) []string {
	out := make([]string, len(pattern))
	for i, p := range pattern {
		out[i] = p.Name
	}
	return out
}

// CallByNameDepthExceededError reports a call-by-name chain deeper than
// the configured bound (spec.md §7, §9).
type CallByNameDepthExceededError struct {
	Name  string
	Limit int
}

func (err *CallByNameDepthExceededError) Error() string {
	return "call-by-name recursion depth exceeded for " + err.Name
}
