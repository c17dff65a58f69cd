package backend

import (
	"fmt"
	"math"

	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// LLVM is the llir/llvm-backed Backend/ExternalTarget/types.DataLayout
// implementation. A single LLVM carries one module; claycore compiles one
// backend module per Clay module (spec.md §5, "one native object per
// compiled module").
type LLVM struct {
	Module *ir.Module

	cur   *ir.Block
	sizes wordSizes

	ctors []*ir.Func
	dtors []*ir.Func
}

// wordSizes is the fixed x86-64 System V layout claycore targets; a future
// multi-target backend would thread a target triple through here instead.
type wordSizes struct {
	pointer int64
}

// NewLLVM creates an empty module named name, targeting x86-64 System V
// (pointer width 8, standard int/float layouts).
func NewLLVM(name string) *LLVM {
	m := ir.NewModule()
	m.SourceFilename = name
	return &LLVM{Module: m, sizes: wordSizes{pointer: 8}}
}

// --- types.DataLayout ---

func (b *LLVM) PointerSize() int64 { return b.sizes.pointer }

func (b *LLVM) IntLayout(bits int) (size, align int64) {
	size = int64((bits + 7) / 8)
	switch {
	case bits <= 8:
		align = 1
	case bits <= 16:
		align = 2
	case bits <= 32:
		align = 4
	default:
		align = 8
	}
	return size, align
}

func (b *LLVM) FloatLayout(bits int) (size, align int64) {
	switch bits {
	case 32:
		return 4, 4
	case 64:
		return 8, 8
	case 80:
		// x87 extended occupies 16 bytes in memory (10 used, 6 padding) under
		// the System V ABI.
		return 16, 16
	default:
		return 8, 8
	}
}

// llType maps a Clay *types.Type to its backend representation. Aggregate
// kinds materialize an anonymous LLVM struct; Record/Variant bodies are
// computed from their already-resolved field/member layout, never
// recomputed here (internal/types owns the authoritative layout decision).
func (b *LLVM) llType(t *types.Type) lltypes.Type {
	switch t.Kind() {
	case types.KindBool:
		return lltypes.I1
	case types.KindInteger:
		return lltypes.NewInt(uint64(t.Bits()))
	case types.KindFloat:
		switch t.Bits() {
		case 32:
			return lltypes.Float
		case 80:
			return lltypes.X86_FP80
		default:
			return lltypes.Double
		}
	case types.KindComplex:
		var elem lltypes.Type = lltypes.Double
		if t.Bits()/2 == 32 {
			elem = lltypes.Float
		} else if t.Bits()/2 == 80 {
			elem = lltypes.X86_FP80
		}
		return lltypes.NewStruct(elem, elem)
	case types.KindPointer, types.KindCodePointer, types.KindCCodePointer:
		return lltypes.NewPointer(lltypes.I8)
	case types.KindArray, types.KindVec:
		return lltypes.NewArray(uint64(t.Len()), b.llType(t.Elem()))
	case types.KindTuple, types.KindRecord:
		return b.sequenceStruct(t)
	case types.KindUnion, types.KindVariant:
		return b.alternativesStruct(t)
	case types.KindEnum:
		return lltypes.I32
	case types.KindNewType:
		return b.llType(t.NewTypeBase())
	case types.KindStatic:
		return lltypes.Void
	default:
		panic(fmt.Sprintf("backend: llType: unhandled kind %v", t.Kind()))
	}
}

func (b *LLVM) sequenceStruct(t *types.Type) *lltypes.StructType {
	members := t.Members()
	fields := make([]lltypes.Type, len(members))
	for i, m := range members {
		fields[i] = b.llType(m)
	}
	return lltypes.NewStruct(fields...)
}

// alternativesStruct lays a Union/Variant out as {tag?, max-sized payload
// bytes}; the actual per-member field-offset math lives in
// internal/types.Layout, so this only needs to be big enough to hold it.
func (b *LLVM) alternativesStruct(t *types.Type) *lltypes.StructType {
	return lltypes.NewStruct(lltypes.NewArray(0, lltypes.I8))
}

// --- Backend ---

func (b *LLVM) DeclareFunction(name string, paramTypes []*types.Type) values.Handle {
	for _, f := range b.Module.Funcs {
		if f.Name() == name {
			return f
		}
	}
	params := make([]*ir.Param, len(paramTypes))
	for i, pt := range paramTypes {
		params[i] = ir.NewParam(fmt.Sprintf("p%d", i), b.llType(pt))
	}
	fn := b.Module.NewFunc(name, lltypes.NewPointer(lltypes.I8), params...)
	return fn
}

func (b *LLVM) Param(fn values.Handle, i int) values.Handle {
	return fn.(*ir.Func).Params[i]
}

func (b *LLVM) NewBlock(fn values.Handle, name string) values.Handle {
	return fn.(*ir.Func).NewBlock(name)
}

func (b *LLVM) SetInsertPoint(block values.Handle) {
	b.cur = block.(*ir.Block)
}

func (b *LLVM) Alloca(t *types.Type) values.Handle {
	return b.cur.NewAlloca(b.llType(t))
}

func (b *LLVM) Load(t *types.Type, ptr values.Handle) values.Handle {
	return b.cur.NewLoad(b.llType(t), ptr.(value.Value))
}

func (b *LLVM) Store(val, ptr values.Handle) {
	b.cur.NewStore(val.(value.Value), ptr.(value.Value))
}

func (b *LLVM) GEP(elemType *types.Type, ptr, index values.Handle) values.Handle {
	return b.cur.NewGetElementPtr(b.llType(elemType), ptr.(value.Value), index.(value.Value))
}

func (b *LLVM) Br(target values.Handle) {
	b.cur.NewBr(target.(*ir.Block))
}

func (b *LLVM) CondBr(cond values.Handle, thenBlock, elseBlock values.Handle) {
	b.cur.NewCondBr(cond.(value.Value), thenBlock.(*ir.Block), elseBlock.(*ir.Block))
}

func (b *LLVM) Ret(vals []values.Handle) {
	switch len(vals) {
	case 0:
		b.cur.NewRet(nil)
	case 1:
		b.cur.NewRet(vals[0].(value.Value))
	default:
		// Multiple return values are already packed into the caller-supplied
		// out-pointers per the ABI (§4.4); the native return itself stays void.
		b.cur.NewRet(nil)
	}
}

func (b *LLVM) Unreachable() {
	b.cur.NewUnreachable()
}

func (b *LLVM) Call(fn values.Handle, args []values.Handle) values.Handle {
	return b.cur.NewCall(fn.(value.Value), toValues(args)...)
}

func (b *LLVM) CallExternal(conv types.CallingConv, fn values.Handle, args []values.Handle, retType *types.Type) values.Handle {
	call := b.cur.NewCall(fn.(value.Value), toValues(args)...)
	call.CallingConv = llCallingConv(conv)
	return call
}

func (b *LLVM) Bitcast(val values.Handle, to *types.Type) values.Handle {
	return b.cur.NewBitCast(val.(value.Value), b.llType(to))
}

func (b *LLVM) BinOp(op BinOp, x, y values.Handle) values.Handle {
	xv, yv := x.(value.Value), y.(value.Value)
	switch op {
	case OpAdd:
		if isFloatValue(xv) {
			return b.cur.NewFAdd(xv, yv)
		}
		return b.cur.NewAdd(xv, yv)
	case OpSub:
		if isFloatValue(xv) {
			return b.cur.NewFSub(xv, yv)
		}
		return b.cur.NewSub(xv, yv)
	case OpMul:
		if isFloatValue(xv) {
			return b.cur.NewFMul(xv, yv)
		}
		return b.cur.NewMul(xv, yv)
	case OpUDiv:
		return b.cur.NewUDiv(xv, yv)
	case OpSDiv:
		return b.cur.NewSDiv(xv, yv)
	case OpFDiv:
		return b.cur.NewFDiv(xv, yv)
	case OpURem:
		return b.cur.NewURem(xv, yv)
	case OpSRem:
		return b.cur.NewSRem(xv, yv)
	case OpShl:
		return b.cur.NewShl(xv, yv)
	case OpLShr:
		return b.cur.NewLShr(xv, yv)
	case OpAShr:
		return b.cur.NewAShr(xv, yv)
	case OpAnd:
		return b.cur.NewAnd(xv, yv)
	case OpOr:
		return b.cur.NewOr(xv, yv)
	case OpXor:
		return b.cur.NewXor(xv, yv)
	default:
		panic("backend: unhandled BinOp")
	}
}

func isFloatValue(v value.Value) bool {
	switch v.Type().(type) {
	case *lltypes.FloatType:
		return true
	default:
		return false
	}
}

func (b *LLVM) ICmp(pred Pred, x, y values.Handle) values.Handle {
	return b.cur.NewICmp(llIPred(pred), x.(value.Value), y.(value.Value))
}

func (b *LLVM) FCmp(pred Pred, x, y values.Handle) values.Handle {
	return b.cur.NewFCmp(llFPred(pred), x.(value.Value), y.(value.Value))
}

func (b *LLVM) Not(x values.Handle) values.Handle {
	xv := x.(value.Value)
	return b.cur.NewXor(xv, constant.NewInt(xv.Type().(*lltypes.IntType), -1))
}

func (b *LLVM) ConstInt(t *types.Type, bytes []byte) values.Handle {
	var u uint64
	for i := len(bytes) - 1; i >= 0; i-- {
		u = u<<8 | uint64(bytes[i])
	}
	it := b.llType(t).(*lltypes.IntType)
	return constant.NewInt(it, int64(u))
}

func (b *LLVM) ConstFloat(t *types.Type, bytes []byte) values.Handle {
	ft, ok := b.llType(t).(*lltypes.FloatType)
	if !ok {
		ft = lltypes.Double
	}
	var u uint64
	for i := len(bytes) - 1; i >= 0 && i < 8; i-- {
		u = u<<8 | uint64(bytes[i])
	}
	var f float64
	if ft == lltypes.Float {
		f = float64(math.Float32frombits(uint32(u)))
	} else {
		f = math.Float64frombits(u)
	}
	return constant.NewFloat(ft, f)
}

func (b *LLVM) ConstNull(t *types.Type) values.Handle {
	pt := b.llType(t)
	ptr, ok := pt.(*lltypes.PointerType)
	if !ok {
		ptr = lltypes.NewPointer(lltypes.I8)
	}
	return constant.NewNull(ptr)
}

func (b *LLVM) DeclareGlobal(name string, t *types.Type) values.Handle {
	for _, g := range b.Module.Globals {
		if g.Name() == name {
			return g
		}
	}
	return b.Module.NewGlobalDef(name, constant.NewZeroInitializer(b.llType(t)))
}

func (b *LLVM) RegisterCtor(fn values.Handle, priority int) bool {
	b.ctors = append(b.ctors, fn.(*ir.Func))
	return true
}

func (b *LLVM) RegisterDtor(fn values.Handle, priority int) bool {
	b.dtors = append(b.dtors, fn.(*ir.Func))
	return true
}

func (b *LLVM) EmitAtExitCall(fn values.Handle) {
	var atexit *ir.Func
	for _, f := range b.Module.Funcs {
		if f.Name() == "atexit" {
			atexit = f
			break
		}
	}
	if atexit == nil {
		atexit = b.Module.NewFunc("atexit", lltypes.I32, ir.NewParam("", lltypes.NewPointer(lltypes.NewFunc(lltypes.Void))))
	}
	b.cur.NewCall(atexit, fn.(value.Value))
}

// ParseFunctionBody parses text as a standalone LLVM IR function definition
// and replaces fn's blocks with the parsed ones; text has already had its
// `$name`/`${expr}` interpolation resolved by internal/lower.
func (b *LLVM) ParseFunctionBody(fn values.Handle, text string) error {
	m, err := asm.ParseString("<llvm-body>", text)
	if err != nil {
		return fmt.Errorf("backend: parsing llvm-body: %w", err)
	}
	if len(m.Funcs) == 0 {
		return fmt.Errorf("backend: llvm-body snippet defines no function")
	}
	f := fn.(*ir.Func)
	f.Blocks = m.Funcs[0].Blocks
	return nil
}

// --- ExternalTarget ---

// LowerSignature passes every Clay argument type through unchanged
// (claycore's uniform "pointer per value" convention) and reports a hidden
// return pointer whenever there is more than one return type. conv is not
// consulted, and return sizes play no part in the decision.
func (b *LLVM) LowerSignature(conv types.CallingConv, argTypes, returnTypes []*types.Type) (paramTypes []*types.Type, hiddenReturn bool) {
	paramTypes = append(paramTypes, argTypes...)
	hiddenReturn = len(returnTypes) > 1
	return paramTypes, hiddenReturn
}

func toValues(hs []values.Handle) []value.Value {
	out := make([]value.Value, len(hs))
	for i, h := range hs {
		out[i] = h.(value.Value)
	}
	return out
}

func llCallingConv(c types.CallingConv) enum.CallingConv {
	switch c {
	case types.CCStdCall:
		return enum.CallingConvX86StdCall
	default:
		return enum.CallingConvC
	}
}

func llIPred(p Pred) enum.IPred {
	switch p {
	case PredEQ:
		return enum.IPredEQ
	case PredNE:
		return enum.IPredNE
	case PredSLT:
		return enum.IPredSLT
	case PredSLE:
		return enum.IPredSLE
	case PredSGT:
		return enum.IPredSGT
	case PredSGE:
		return enum.IPredSGE
	case PredULT:
		return enum.IPredULT
	case PredULE:
		return enum.IPredULE
	case PredUGT:
		return enum.IPredUGT
	case PredUGE:
		return enum.IPredUGE
	default:
		return enum.IPredEQ
	}
}

func llFPred(p Pred) enum.FPred {
	switch p {
	case PredOEQ:
		return enum.FPredOEQ
	case PredONE:
		return enum.FPredONE
	case PredOLT:
		return enum.FPredOLT
	case PredOLE:
		return enum.FPredOLE
	case PredOGT:
		return enum.FPredOGT
	case PredOGE:
		return enum.FPredOGE
	case PredUEQ:
		return enum.FPredUEQ
	case PredUNE:
		return enum.FPredUNE
	case PredULTF:
		return enum.FPredULT
	case PredULEF:
		return enum.FPredULE
	case PredUGTF:
		return enum.FPredUGT
	case PredUGEF:
		return enum.FPredUGE
	default:
		return enum.FPredOEQ
	}
}
