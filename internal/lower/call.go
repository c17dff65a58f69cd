package lower

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/backend"
	"github.com/clay-lang/claycore/internal/hir"
	"github.com/clay-lang/claycore/internal/specialize"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// CallKind names one of the five call-lowering shapes of spec.md §4.4.
type CallKind int

const (
	CallDirect CallKind = iota
	CallDispatch
	CallCABI
	CallForceInline
	CallLLVMBody
)

func (k CallKind) String() string {
	switch k {
	case CallDirect:
		return "direct"
	case CallDispatch:
		return "dispatch"
	case CallCABI:
		return "c-abi"
	case CallForceInline:
		return "force-inline"
	case CallLLVMBody:
		return "llvm-body"
	default:
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
}

// DetermineCallKind picks entry's call-lowering kind. anyArgDispatched is
// true when at least one call-site argument carries a `dispatch(...)`
// marker (hir.Call.Dispatch); LLVM-body and C-ABI take priority over
// dispatch and force-inline since they describe how the callee itself is
// defined, not how this particular call site invokes it.
func DetermineCallKind(entry *specialize.InvokeEntry, anyArgDispatched bool) CallKind {
	switch {
	case entry.LLVMBody != "":
		return CallLLVMBody
	case entry.ExternalName != "":
		return CallCABI
	case anyArgDispatched:
		return CallDispatch
	case entry.IsInline == hir.InlineForce:
		return CallForceInline
	default:
		return CallDirect
	}
}

// EmitExceptionCheck implements the exception protocol of spec.md §4.4: if
// sentinel is non-null, store it into ExceptionValue, unwind the value
// stack to the nearest exception target (running finally/onerror entries
// with exceptional=true), and branch there; otherwise fall through to
// continueBlock. Skipped entirely when ctx.CheckExceptions is false (the
// unwinder's own calls run with check_exceptions=false per spec.md §7).
func (ctx *Context) EmitExceptionCheck(sentinel values.Handle, sentinelType *types.Type, continueBlock values.Handle) error {
	if !ctx.CheckExceptions {
		ctx.Backend.Br(continueBlock)
		ctx.Backend.SetInsertPoint(continueBlock)
		return nil
	}

	raiseBlock := ctx.Backend.NewBlock(ctx.Fn, "exn.raise")
	notNull := ctx.Backend.ICmp(backend.PredNE, sentinel, ctx.Backend.ConstNull(sentinelType))
	ctx.Backend.CondBr(notNull, raiseBlock, continueBlock)

	ctx.Backend.SetInsertPoint(raiseBlock)
	ctx.ExceptionValue = sentinel
	ctx.Backend.Store(sentinel, ctx.ExceptionSlot(sentinelType))
	target := ctx.nearestExceptionTarget()
	if err := ctx.UnwindTo(target.Marker, true); err != nil {
		return err
	}
	ctx.Backend.Br(target.Block)

	ctx.Backend.SetInsertPoint(continueBlock)
	return nil
}

// nearestExceptionTarget falls back to the function-level exception block
// (unwinding the entire stack) when no `try` is in scope.
func (ctx *Context) nearestExceptionTarget() JumpTarget {
	if ctx.HasExceptionTarget() {
		return *ctx.ExceptionTarget()
	}
	return JumpTarget{Block: ctx.ExceptionBlock, Marker: 0}
}

// LowerDirectCall implements the Direct shape: args are already backend
// pointers to Pointer(args_key[i]); outs are pre-allocated destination
// pointers for each return position. It issues the call, then runs the
// exception protocol, returning the block lowering should continue in.
func (ctx *Context) LowerDirectCall(fn values.Handle, args, outs []values.Handle, sentinelType *types.Type) (values.Handle, error) {
	allArgs := append(append([]values.Handle{}, args...), outs...)
	sentinel := ctx.Backend.Call(fn, allArgs)
	cont := ctx.Backend.NewBlock(ctx.Fn, "call.cont")
	if err := ctx.EmitExceptionCheck(sentinel, sentinelType, cont); err != nil {
		return nil, err
	}
	return cont, nil
}

// LowerCABICall implements the C-ABI shape: ext computes the real backend
// parameter list for conv, the caller bitcasts/loads accordingly, and the
// call is emitted with that calling convention annotated (spec.md §4.4).
// C-ABI calls do not participate in the sentinel-return exception protocol
// — a foreign function has no sentinel to check.
func (ctx *Context) LowerCABICall(ext backend.ExternalTarget, conv types.CallingConv, fn values.Handle, argTypes, returnTypes []*types.Type, args []values.Handle) (values.Handle, bool) {
	_, hiddenReturn := ext.LowerSignature(conv, argTypes, returnTypes)
	return ctx.Backend.CallExternal(conv, fn, args, firstOrNil(returnTypes)), hiddenReturn
}

func firstOrNil(ts []*types.Type) *types.Type {
	if len(ts) == 0 {
		return nil
	}
	return ts[0]
}

// LowerLLVMBodyCall interpolates entry's textual body against interp and
// installs it as fn's definition, once (ParseFunctionBody is idempotent
// from the caller's point of view — repeated calls simply re-parse the
// same text into the same function).
func (ctx *Context) LowerLLVMBodyCall(fn values.Handle, body string, interp Interpolator) error {
	text, err := Interpolate(body, interp)
	if err != nil {
		return fmt.Errorf("lower: interpolating llvm-body: %w", err)
	}
	return ctx.Backend.ParseFunctionBody(fn, text)
}

// DispatchStep is one arm of a Dispatch call-lowering cascade: the backend
// handle of the reinterpreted value for memberType, guarded by an equality
// check against tag.
type DispatchStep struct {
	Tag        int64
	MemberType *types.Type
}

// LowerDispatchCascade implements the Dispatch shape of spec.md §4.4: query
// tagHandle (already the result of a dispatchTag(x) primop lowering), then
// branch to one block per reachable tag, each calling reinterpret to
// obtain the narrowed value before invoking body for that step.
func (ctx *Context) LowerDispatchCascade(tagHandle values.Handle, tagType *types.Type, steps []DispatchStep, reinterpret func(step DispatchStep) (values.Handle, error), body func(step DispatchStep, narrowed values.Handle) error) error {
	mergeBlock := ctx.Backend.NewBlock(ctx.Fn, "dispatch.merge")
	for i, step := range steps {
		armBlock := ctx.Backend.NewBlock(ctx.Fn, fmt.Sprintf("dispatch.arm%d", i))
		var nextBlock values.Handle
		if i == len(steps)-1 {
			nextBlock = mergeBlock // a tag that misses the last arm branches straight to merge
		} else {
			nextBlock = ctx.Backend.NewBlock(ctx.Fn, fmt.Sprintf("dispatch.test%d", i+1))
		}
		tagConst := ctx.Backend.ConstInt(tagType, encodeTag(step.Tag))
		eq := ctx.Backend.ICmp(backend.PredEQ, tagHandle, tagConst)
		ctx.Backend.CondBr(eq, armBlock, nextBlock)

		ctx.Backend.SetInsertPoint(armBlock)
		narrowed, err := reinterpret(step)
		if err != nil {
			return err
		}
		if err := body(step, narrowed); err != nil {
			return err
		}
		ctx.Backend.Br(mergeBlock)

		ctx.Backend.SetInsertPoint(nextBlock)
	}
	ctx.Backend.SetInsertPoint(mergeBlock)
	return nil
}

func encodeTag(tag int64) []byte {
	return []byte{byte(tag), byte(tag >> 8), byte(tag >> 16), byte(tag >> 24)}
}
