package compilation

import (
	"fmt"
	"strconv"

	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/primops"
	"github.com/clay-lang/claycore/internal/types"
)

// Evaluator implements analyzer.StaticEvaluator (spec.md §6's "compile-time
// evaluator" collaborator). It resolves the subset of hir.Expr that appears
// in declared-type positions and record/variant instantiation argument
// lists to a types.StaticObject: bare type names, and the fixed
// type-constructor primitives (Pointer/Array/Vec/Tuple/Union) that
// internal/primops's PrimOpCode enumerates but deliberately leaves
// uncomputed by ComputeType (those primitives only make sense statically,
// never as an ordinary runtime call's PValue).
type Evaluator struct {
	Interner *types.Interner
}

// EvalType implements analyzer.StaticEvaluator.
func (ev *Evaluator) EvalType(e hir.Expr, scope *env.Env) (*types.Type, error) {
	obj, err := ev.resolve(e, scope)
	if err != nil {
		return nil, err
	}
	if obj.Kind != types.StaticKindType {
		return nil, &NotATypeError{Expr: e}
	}
	return obj.Type, nil
}

// EvalBool implements analyzer.StaticEvaluator. And/Or are evaluated
// directly (rather than falling through to resolve) so a predicate like
// `T == Int32 and S == Int64` short-circuits the same way at evaluation
// time that lowering later will at runtime (spec.md §5, §8 Testable
// Property 8 — mirrored here for the compile-time case).
func (ev *Evaluator) EvalBool(e hir.Expr, scope *env.Env) (bool, error) {
	switch n := e.(type) {
	case *hir.And:
		l, err := ev.EvalBool(n.Left, scope)
		if err != nil || !l {
			return false, err
		}
		return ev.EvalBool(n.Right, scope)
	case *hir.Or:
		l, err := ev.EvalBool(n.Left, scope)
		if err != nil || l {
			return l, err
		}
		return ev.EvalBool(n.Right, scope)
	}

	obj, err := ev.resolve(e, scope)
	if err != nil {
		return false, err
	}
	if obj.Kind != types.StaticKindBool {
		return false, &NotABoolError{Expr: e}
	}
	return obj.Bool, nil
}

// EvaluateMultiStatic implements analyzer.StaticEvaluator. Unpack expands
// its operand's statics; everything else resolves to exactly one.
func (ev *Evaluator) EvaluateMultiStatic(e hir.Expr, scope *env.Env) ([]types.StaticObject, error) {
	if u, ok := e.(*hir.Unpack); ok {
		return ev.EvaluateMultiStatic(u.Operand, scope)
	}
	obj, err := ev.resolve(e, scope)
	if err != nil {
		return nil, err
	}
	return []types.StaticObject{obj}, nil
}

// resolve is the recursive core: Identifier looks up a bound type/pattern
// var/static directly; Call and Index both normalize to the same
// "callable applied to arguments" shape for the fixed type-constructor
// primitives, since `Array[Int32, 4]` and `Array(Int32, 4)` are two
// surface spellings of the same static application (spec.md §4.2's
// Index-as-parametrization rule).
func (ev *Evaluator) resolve(e hir.Expr, scope *env.Env) (types.StaticObject, error) {
	switch n := e.(type) {
	case *hir.Identifier:
		return ev.resolveIdentifier(n, scope)
	case *hir.IntLiteral:
		v, err := strconv.ParseInt(n.Text, 0, 64)
		if err != nil {
			return types.StaticObject{}, fmt.Errorf("compilation: invalid static integer %q: %w", n.Text, err)
		}
		return types.NewStaticInt(v), nil
	case *hir.Call:
		return ev.resolvePrimApplication(n.Callable, n.Args, scope)
	case *hir.Index:
		return ev.resolvePrimApplication(n.Base, n.Args, scope)
	default:
		return types.StaticObject{}, &NotStaticError{Expr: e}
	}
}

func (ev *Evaluator) resolveIdentifier(n *hir.Identifier, scope *env.Env) (types.StaticObject, error) {
	ent, err := scope.Require(n.Name)
	if err != nil {
		return types.StaticObject{}, err
	}
	switch ent.Kind {
	case env.EntryType:
		return types.NewStaticType(ent.Type), nil
	case env.EntryPatternVar:
		return ent.PatternVar, nil
	case env.EntryMultiStatic:
		if len(ent.MultiStatic) != 1 {
			return types.StaticObject{}, fmt.Errorf("compilation: %s is a multi-static capture, not a single static object", n.Name)
		}
		return ent.MultiStatic[0], nil
	default:
		return types.StaticObject{}, &NotStaticError{Expr: n}
	}
}

// resolvePrimApplication dispatches the fixed set of type-constructor
// primitives (spec.md §4.5, grounded on internal/primops's naming table)
// this evaluator can fully compute; any other primitive or ordinary
// callable in static-argument position is out of scope for this pass.
func (ev *Evaluator) resolvePrimApplication(callable hir.Expr, args []hir.Expr, scope *env.Env) (types.StaticObject, error) {
	id, ok := callable.(*hir.Identifier)
	if !ok {
		return types.StaticObject{}, &NotStaticError{Expr: callable}
	}
	ent, err := scope.Require(id.Name)
	if err != nil {
		return types.StaticObject{}, err
	}
	if ent.Kind != env.EntryPrimOp {
		return types.StaticObject{}, &NotStaticError{Expr: callable}
	}

	switch primops.PrimOpCode(ent.PrimOp) {
	case primops.PrimPointer:
		pointee, err := ev.typeArg(args, 0, scope)
		if err != nil {
			return types.StaticObject{}, err
		}
		return types.NewStaticType(ev.Interner.InternPointer(pointee)), nil

	case primops.PrimArray:
		elem, err := ev.typeArg(args, 0, scope)
		if err != nil {
			return types.StaticObject{}, err
		}
		n, err := ev.intArg(args, 1, scope)
		if err != nil {
			return types.StaticObject{}, err
		}
		return types.NewStaticType(ev.Interner.InternArray(elem, n)), nil

	case primops.PrimVec:
		elem, err := ev.typeArg(args, 0, scope)
		if err != nil {
			return types.StaticObject{}, err
		}
		n, err := ev.intArg(args, 1, scope)
		if err != nil {
			return types.StaticObject{}, err
		}
		t, err := ev.Interner.InternVec(elem, n)
		if err != nil {
			return types.StaticObject{}, err
		}
		return types.NewStaticType(t), nil

	case primops.PrimTuple:
		members, err := ev.typeArgs(args, scope)
		if err != nil {
			return types.StaticObject{}, err
		}
		return types.NewStaticType(ev.Interner.InternTuple(members)), nil

	case primops.PrimUnion:
		members, err := ev.typeArgs(args, scope)
		if err != nil {
			return types.StaticObject{}, err
		}
		return types.NewStaticType(ev.Interner.InternUnion(members)), nil

	default:
		return types.StaticObject{}, fmt.Errorf("compilation: static evaluation of %s is not wired (needs a dedicated collaborator beyond type construction)", primops.PrimOpCode(ent.PrimOp))
	}
}

func (ev *Evaluator) typeArg(args []hir.Expr, i int, scope *env.Env) (*types.Type, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("compilation: missing argument %d", i)
	}
	return ev.EvalType(args[i], scope)
}

func (ev *Evaluator) intArg(args []hir.Expr, i int, scope *env.Env) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("compilation: missing argument %d", i)
	}
	obj, err := ev.resolve(args[i], scope)
	if err != nil {
		return 0, err
	}
	if obj.Kind != types.StaticKindInt {
		return 0, fmt.Errorf("compilation: argument %d is not a static integer", i)
	}
	return obj.Int, nil
}

func (ev *Evaluator) typeArgs(args []hir.Expr, scope *env.Env) ([]*types.Type, error) {
	out := make([]*types.Type, len(args))
	for i, a := range args {
		t, err := ev.EvalType(a, scope)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// NotStaticError reports an expression that does not reduce to a static
// object this evaluator can compute.
type NotStaticError struct{ Expr hir.Expr }

func (err *NotStaticError) Error() string {
	return fmt.Sprintf("compilation: %s is not a static expression", err.Expr)
}

// NotATypeError reports a static object of the wrong kind where a type was
// required (a declared-type position, or a type-constructor argument).
type NotATypeError struct{ Expr hir.Expr }

func (err *NotATypeError) Error() string {
	return fmt.Sprintf("compilation: %s does not evaluate to a type", err.Expr)
}

// NotABoolError reports a static object of the wrong kind where a predicate
// result was required.
type NotABoolError struct{ Expr hir.Expr }

func (err *NotABoolError) Error() string {
	return fmt.Sprintf("compilation: %s does not evaluate to a bool", err.Expr)
}
