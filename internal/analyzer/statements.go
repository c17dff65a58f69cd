package analyzer

import (
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/values"
)

// AnalyzeBlock type-checks stmts in order under a fresh scope enclosed by
// outer, returning that scope (spec.md §4.4 "Block": the lowering driver
// reuses the same traversal to open the matching backend scope).
func (a *Analyzer) AnalyzeBlock(b *hir.Block, outer *env.Env) (*env.Env, error) {
	scope := env.NewEnclosed(outer)
	for _, s := range b.Stmts {
		if err := a.AnalyzeStmt(s, scope); err != nil {
			return nil, err
		}
	}
	return scope, nil
}

// AnalyzeStmt dispatches over every hir.Stmt kind. As with expressions,
// an unhandled kind is a compiler bug (§4.4/§7).
func (a *Analyzer) AnalyzeStmt(s hir.Stmt, scope *env.Env) error {
	switch n := s.(type) {
	case *hir.Block:
		_, err := a.AnalyzeBlock(n, scope)
		return err
	case *hir.Binding:
		return a.analyzeBinding(n, scope)
	case *hir.Assignment:
		return a.analyzeAssignment(n, scope)
	case *hir.Return:
		return a.analyzeReturn(n, scope)
	case *hir.If:
		return a.analyzeIf(n, scope)
	case *hir.While:
		return a.analyzeWhile(n, scope)
	case *hir.Break, *hir.Continue:
		return nil
	case *hir.Try:
		return a.analyzeTry(n, scope)
	case *hir.Throw:
		return a.analyzeThrow(n, scope)
	case *hir.StaticFor:
		return a.analyzeStaticFor(n, scope)
	case *hir.Pending:
		_, err := a.AnalyzeBlock(n.Body, scope)
		return err
	case *hir.Unreachable:
		return nil
	case *hir.StaticAssert:
		return a.analyzeStaticAssert(n, scope)
	case *hir.ExprStmt:
		_, err := a.AnalyzeMulti(n.X, scope, 0)
		return err
	default:
		panic(&UnknownExprKindError{At: s.Pos(), Kind: n})
	}
}

// analyzeBinding implements spec.md §4.4's four binding flavors at the
// type-checking level (storage allocation/destructor scheduling are
// internal/lower concerns): var/forward analyze each RHS as an rvalue
// contributor, ref requires an lvalue RHS, alias stores the expression
// itself rather than a value.
func (a *Analyzer) analyzeBinding(b *hir.Binding, scope *env.Env) error {
	if b.Kind == hir.BindAlias {
		for i, name := range b.Names {
			rhs := b.RHS[0]
			if i < len(b.RHS) {
				rhs = b.RHS[i]
			}
			scope.Define(name, env.Entry{Kind: env.EntryAlias, AliasExpr: rhs, AliasEnv: scope})
		}
		return nil
	}

	vals, err := a.analyzeRHSList(b.RHS, scope, len(b.Names))
	if err != nil {
		return err
	}
	for i, name := range b.Names {
		v := vals[i]
		if b.Kind == hir.BindRef && v.IsTemp {
			return &TypeMismatchError{At: b.At, Want: "lvalue", Got: "rvalue"}
		}
		scope.Define(name, env.Entry{Kind: env.EntryValue, Value: v})
	}
	return nil
}

// analyzeRHSList applies the implicit-unpack rule (§4.2) across a
// binding/assignment's RHS expression list against a wanted arity.
func (a *Analyzer) analyzeRHSList(rhs []hir.Expr, scope *env.Env, want int) (values.MultiPValue, error) {
	if len(rhs) == 1 && want != 1 {
		return a.AnalyzeMulti(rhs[0], scope, want)
	}
	out := make(values.MultiPValue, 0, len(rhs))
	for _, e := range rhs {
		p, err := a.AnalyzeOne(e, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) != want {
		return nil, &ArityError{At: rhs[0].Pos(), Want: want, Got: len(out)}
	}
	return out, nil
}

// analyzeAssignment implements the four assignment shapes of §4.4 at the
// type-checking level; the indexed/field-ref routing to
// indexAssign/staticIndexAssign/fieldRefAssign is a lowering-time
// dispatch on the same analyzed LHS, so here every shape reduces to
// "analyze LHS, analyze RHS, check compatibility".
func (a *Analyzer) analyzeAssignment(asg *hir.Assignment, scope *env.Env) error {
	lhsVals := make(values.MultiPValue, len(asg.LHS))
	for i, l := range asg.LHS {
		p, err := a.AnalyzeOne(l, scope)
		if err != nil {
			return err
		}
		if p.IsTemp {
			return &TypeMismatchError{At: asg.At, Want: "lvalue", Got: "rvalue"}
		}
		lhsVals[i] = p
	}

	rhsVals, err := a.analyzeRHSList(asg.RHS, scope, len(asg.LHS))
	if err != nil {
		return err
	}

	if asg.Kind == hir.AssignInit {
		for i := range lhsVals {
			if lhsVals[i].Type != rhsVals[i].Type {
				return &TypeMismatchError{At: asg.At, Want: typeName(lhsVals[i].Type), Got: typeName(rhsVals[i].Type)}
			}
		}
	}
	return nil
}

// analyzeReturn implements the three return flavors of §4.4: value/ref
// both require the analyzed expressions to match a previously fixed
// return shape tracked on the current AnalysisContext; forward simply
// forwards tempness per position.
func (a *Analyzer) analyzeReturn(r *hir.Return, scope *env.Env) error {
	for _, v := range r.Values {
		if r.Kind == hir.ReturnByRef {
			p, err := a.AnalyzeOne(v, scope)
			if err != nil {
				return err
			}
			if p.IsTemp {
				return &TypeMismatchError{At: r.At, Want: "lvalue", Got: "rvalue"}
			}
			continue
		}
		if _, err := a.AnalyzeOne(v, scope); err != nil {
			return err
		}
	}
	return nil
}

// analyzeIf implements the compile-time-true/false/runtime trichotomy of
// §4.4: a Bool condition that the compile-time evaluator can decide
// statically only emits the taken branch; otherwise both branches are
// analyzed (their divergent typing is still meaningful to the lowering
// driver's runtime branch).
func (a *Analyzer) analyzeIf(n *hir.If, scope *env.Env) error {
	condVal, err := a.AnalyzeOne(n.Cond, scope)
	if err != nil {
		return err
	}
	boolType := a.Interner.InternBool()
	if condVal.Type != boolType {
		return &TypeMismatchError{At: n.At, Want: "Bool", Got: typeName(condVal.Type)}
	}
	if a.Eval != nil {
		if isStatic, berr := a.Eval.EvalBool(n.Cond, scope); berr == nil {
			if isStatic {
				_, err := a.AnalyzeBlock(n.Then, scope)
				return err
			}
			if n.Else != nil {
				_, err := a.AnalyzeBlock(n.Else, scope)
				return err
			}
			return nil
		}
	}
	if _, err := a.AnalyzeBlock(n.Then, scope); err != nil {
		return err
	}
	if n.Else != nil {
		if _, err := a.AnalyzeBlock(n.Else, scope); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeWhile(n *hir.While, scope *env.Env) error {
	condVal, err := a.AnalyzeOne(n.Cond, scope)
	if err != nil {
		return err
	}
	if condVal.Type != a.Interner.InternBool() {
		return &TypeMismatchError{At: n.At, Want: "Bool", Got: typeName(condVal.Type)}
	}
	_, err = a.AnalyzeBlock(n.Body, scope)
	return err
}

// analyzeTry pushes an exception-available scope around each catch body,
// per §4.4 ("the catch block runs with an 'exception available' env
// flag").
func (a *Analyzer) analyzeTry(n *hir.Try, scope *env.Env) error {
	if _, err := a.AnalyzeBlock(n.Body, scope); err != nil {
		return err
	}
	for _, c := range n.Catches {
		catchScope := env.NewEnclosed(scope).WithException()
		if c.ExceptionType != nil {
			if _, err := a.Eval.EvalType(c.ExceptionType, catchScope); err != nil {
				return err
			}
		}
		if c.ExceptionVar != "" {
			catchScope.Define(c.ExceptionVar, env.Entry{Kind: env.EntryValue, Value: values.PValue{Type: nil, IsTemp: false}})
		}
		for _, s := range c.Body.Stmts {
			if err := a.AnalyzeStmt(s, catchScope); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) analyzeThrow(n *hir.Throw, scope *env.Env) error {
	if n.Value != nil {
		_, err := a.AnalyzeOne(n.Value, scope)
		return err
	}
	if !scope.ExceptionAvailable() {
		return &InvalidStaticObjectError{At: n.At, Detail: "rethrow outside catch"}
	}
	return nil
}

// analyzeStaticFor evaluates the compile-time sequence once and
// type-checks the body once per element under a pattern-var binding of
// the loop variable, mirroring the clone-per-element lowering it drives
// (§4.4). Each element's analysis runs under a caching disabler since the
// same body expression yields a different result per element.
func (a *Analyzer) analyzeStaticFor(n *hir.StaticFor, scope *env.Env) error {
	elems, err := a.Eval.EvaluateMultiStatic(n.Sequence, scope)
	if err != nil {
		return err
	}
	for _, elem := range elems {
		d := a.PushCachingDisabler()
		iterScope := env.NewEnclosed(scope)
		iterScope.Define(n.Var, env.Entry{Kind: env.EntryPatternVar, PatternVar: elem})
		_, berr := a.AnalyzeBlock(n.Body, iterScope)
		d.Close()
		if berr != nil {
			return berr
		}
	}
	return nil
}

func (a *Analyzer) analyzeStaticAssert(n *hir.StaticAssert, scope *env.Env) error {
	ok, err := a.Eval.EvalBool(n.Predicate, scope)
	if err != nil {
		return err
	}
	if !ok {
		return &InvalidStaticObjectError{At: n.At, Detail: "static assertion failed"}
	}
	return nil
}
