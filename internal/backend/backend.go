// Package backend is the external code-generation collaborator spec.md §6
// names: the boundary between the lowering driver (internal/lower) and a
// concrete instruction-emitting target. Backend is deliberately narrow —
// just the operations internal/lower's statement/call lowering and
// internal/primops's lowering-time counterpart need — so a second adapter
// (a textual-IR printer, a test double) can stand in for the llir/llvm one
// in llvm.go without internal/lower noticing.
package backend

import (
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// Pred names a comparison predicate, kept backend-neutral so callers don't
// need to import llir/llvm's enum package directly.
type Pred int

const (
	PredEQ Pred = iota
	PredNE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
	PredULT
	PredULE
	PredUGT
	PredUGE
	// Unordered float predicates per IEEE 754 (a NaN operand makes these
	// true); the Ordered* variants are false on any NaN operand instead.
	PredOEQ
	PredONE
	PredOLT
	PredOLE
	PredOGT
	PredOGE
	PredUEQ
	PredUNE
	PredULTF
	PredULEF
	PredUGTF
	PredUGEF
)

// BinOp names an arithmetic or bitwise binary operation.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpFDiv
	OpURem
	OpSRem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor
)

// Backend is the instruction-emitting target internal/lower drives. All
// methods operate on opaque values.Handle so internal/lower stays free of
// any one backend's concrete SSA-value type (spec.md §3's CValue.Backend).
type Backend interface {
	types.DataLayout

	// DeclareFunction creates (or finds, if already declared) a function
	// named name with the given parameter and sentinel-return-carrying
	// signature; paramTypes are already pointer types per §4.4 ("one
	// pointer per input... then... a pointer to Pointer(T)").
	DeclareFunction(name string, paramTypes []*types.Type) values.Handle
	// Param returns the i'th formal parameter of fn as a Handle.
	Param(fn values.Handle, i int) values.Handle

	NewBlock(fn values.Handle, name string) values.Handle
	SetInsertPoint(block values.Handle)

	Alloca(t *types.Type) values.Handle
	Load(t *types.Type, ptr values.Handle) values.Handle
	Store(val, ptr values.Handle)
	GEP(elemType *types.Type, ptr, index values.Handle) values.Handle

	Br(target values.Handle)
	CondBr(cond values.Handle, thenBlock, elseBlock values.Handle)
	Ret(vals []values.Handle)
	Unreachable()

	Call(fn values.Handle, args []values.Handle) values.Handle
	CallExternal(conv types.CallingConv, fn values.Handle, args []values.Handle, retType *types.Type) values.Handle
	Bitcast(val values.Handle, to *types.Type) values.Handle

	BinOp(op BinOp, x, y values.Handle) values.Handle
	ICmp(pred Pred, x, y values.Handle) values.Handle
	FCmp(pred Pred, x, y values.Handle) values.Handle
	Not(x values.Handle) values.Handle

	ConstInt(t *types.Type, bytes []byte) values.Handle
	ConstFloat(t *types.Type, bytes []byte) values.Handle
	ConstNull(t *types.Type) values.Handle

	DeclareGlobal(name string, t *types.Type) values.Handle
	// RegisterCtor/RegisterDtor add fn to the module's global constructor
	// or destructor array, if the target supports one (§4.4's "hosts where
	// the backend supports global-ctor/dtor arrays"); ok is false when the
	// caller must fall back to an explicit atexit call instead.
	RegisterCtor(fn values.Handle, priority int) (ok bool)
	RegisterDtor(fn values.Handle, priority int) (ok bool)
	EmitAtExitCall(fn values.Handle)

	// ParseFunctionBody parses a textual backend-IR snippet (already
	// interpolated by internal/lower, §4.4's "LLVM-body" call lowering
	// kind) and installs it as fn's body.
	ParseFunctionBody(fn values.Handle, text string) error
}

// ExternalTarget computes the C-ABI lowering for a foreign calling
// convention: how a given argument/return type sequence is actually
// passed (by value, by hidden pointer, split across registers, ...) for
// a target triple. A real implementation consults the platform's ABI
// rules; internal/lower only needs the shape below to emit the
// bitcast/attribute-annotated call §4.4 describes.
type ExternalTarget interface {
	// LowerSignature returns the backend parameter types a call with the
	// given Clay argument/return types actually takes under conv, plus
	// whether the return value is passed via a hidden first pointer
	// argument instead of the function's return slot.
	LowerSignature(conv types.CallingConv, argTypes, returnTypes []*types.Type) (paramTypes []*types.Type, hiddenReturn bool)
}
