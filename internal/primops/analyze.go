package primops

import (
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// ComputeType implements the value-producing half of spec.md §4.5's fixed
// dispatch table — compiler/analyzer.hpp's analyzePrimOp(PrimOpPtr,
// MultiPValuePtr): given already-analyzed argument PValues, it returns the
// primitive's result shape without any overload ranking.
//
// The type-constructor primitives (Array, Vec, Tuple, Pointer, CodePointer,
// ExternalCodePointer, Static, BaseType, ByRef and the Type/Static/Module/
// Operator/Lambda/RecordP family introspection predicates) are a distinct
// path in the original source: they are evaluated by the compile-time
// evaluator when resolving a type expression, not by analyzePrimOp, so they
// are not handled here — see analyzer.StaticEvaluator.
func ComputeType(in *types.Interner, op PrimOpCode, args values.MultiPValue) (values.MultiPValue, error) {
	switch op {
	case PrimIntegerEqualsP, PrimIntegerLesserP,
		PrimFloatOrderedP, PrimFloatOrderedEqualsP, PrimFloatOrderedLesserP, PrimFloatOrderedLesserEqualsP,
		PrimFloatOrderedGreaterP, PrimFloatOrderedGreaterEqualsP, PrimFloatOrderedNotEqualsP,
		PrimFloatUnorderedP, PrimFloatUnorderedEqualsP, PrimFloatUnorderedLesserP, PrimFloatUnorderedLesserEqualsP,
		PrimFloatUnorderedGreaterP, PrimFloatUnorderedGreaterEqualsP, PrimFloatUnorderedNotEqualsP:
		return rvalue1(in.InternBool()), nil

	case PrimBoolNot:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternBool()), nil

	case PrimIntegerAddChecked, PrimIntegerSubtractChecked, PrimIntegerMultiplyChecked,
		PrimIntegerQuotientChecked, PrimIntegerRemainderChecked, PrimIntegerShiftLeftChecked,
		PrimIntegerQuotient, PrimIntegerRemainder, PrimIntegerShiftLeft, PrimIntegerShiftRight,
		PrimIntegerBitwiseAnd, PrimIntegerBitwiseOr, PrimIntegerBitwiseXor:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		t := args[0].Type
		if !isInteger(t) {
			return nil, &OperandTypeError{Op: op, Detail: "first operand must be an Integer type"}
		}
		return rvalue1(t), nil

	case PrimIntegerBitwiseNot, PrimIntegerNegateChecked:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if !isInteger(args[0].Type) {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be an Integer type"}
		}
		return rvalue1(args[0].Type), nil

	case PrimIntegerConvertChecked:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		dest, ok := staticType(args[0].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "first argument must be a static destination type"}
		}
		return rvalue1(dest), nil

	case PrimNumericAdd, PrimNumericSubtract, PrimNumericMultiply:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		if !isNumeric(args[0].Type) {
			return nil, &OperandTypeError{Op: op, Detail: "operands must be numeric"}
		}
		return rvalue1(args[0].Type), nil

	case PrimNumericNegate:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if !isNumeric(args[0].Type) {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be numeric"}
		}
		return rvalue1(args[0].Type), nil

	case PrimFloatDivide:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		if !isFloat(args[0].Type) {
			return nil, &OperandTypeError{Op: op, Detail: "operands must be Float"}
		}
		return rvalue1(args[0].Type), nil

	case PrimNumericConvert:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		dest, ok := staticType(args[0].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "first argument must be a static destination type"}
		}
		return rvalue1(dest), nil

	case PrimAddressOf:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternPointer(args[0].Type)), nil

	case PrimPointerDereference:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		pointee, err := pointeeOf(op, args[0].Type)
		if err != nil {
			return nil, err
		}
		return values.MultiPValue{{Type: pointee, IsTemp: false}}, nil

	case PrimPointerOffset:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindPointer {
			return nil, &OperandTypeError{Op: op, Detail: "first operand must be a Pointer"}
		}
		return rvalue1(args[0].Type), nil

	case PrimPointerToInt:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		dest, ok := staticType(args[0].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "first argument must be a static Integer type"}
		}
		return rvalue1(dest), nil

	case PrimIntToPointer:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		dest, ok := staticType(args[0].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "first argument must be a static Pointer type"}
		}
		return rvalue1(dest), nil

	case PrimNullPointer:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		dest, ok := staticType(args[0].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "argument must be a static Pointer type"}
		}
		return rvalue1(dest), nil

	case PrimArrayRef:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindArray {
			return nil, &OperandTypeError{Op: op, Detail: "first operand must be an Array"}
		}
		return values.MultiPValue{{Type: args[0].Type.Elem(), IsTemp: false}}, nil

	case PrimArrayElements:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindArray {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be an Array"}
		}
		n := int(args[0].Type.Len())
		out := make(values.MultiPValue, n)
		for i := range out {
			out[i] = values.PValue{Type: args[0].Type.Elem(), IsTemp: false}
		}
		return out, nil

	case PrimTupleRef:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		idx, ok := staticInt(args[1].Type)
		if !ok || args[0].Type == nil || args[0].Type.Kind() != types.KindTuple {
			return nil, &OperandTypeError{Op: op, Detail: "expected a Tuple and a static index"}
		}
		members := args[0].Type.Members()
		if idx < 0 || int(idx) >= len(members) {
			return nil, &OperandTypeError{Op: op, Detail: "tuple index out of range"}
		}
		return values.MultiPValue{{Type: members[idx], IsTemp: args[0].IsTemp}}, nil

	case PrimTupleElements:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindTuple {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be a Tuple"}
		}
		members := args[0].Type.Members()
		out := make(values.MultiPValue, len(members))
		for i, m := range members {
			out[i] = values.PValue{Type: m, IsTemp: args[0].IsTemp}
		}
		return out, nil

	case PrimTupleElementCount:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternInteger(64, false)), nil

	case PrimRecordFieldRef:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		idx, ok := staticInt(args[1].Type)
		if !ok || args[0].Type == nil || args[0].Type.Kind() != types.KindRecord {
			return nil, &OperandTypeError{Op: op, Detail: "expected a Record and a static index"}
		}
		fields, err := in.Fields(args[0].Type)
		if err != nil {
			return nil, err
		}
		if idx < 0 || int(idx) >= len(fields) {
			return nil, &OperandTypeError{Op: op, Detail: "field index out of range"}
		}
		return values.MultiPValue{{Type: fields[idx].Type, IsTemp: args[0].IsTemp}}, nil

	case PrimRecordFieldRefByName:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		name, ok := staticIdent(args[1].Type)
		if !ok || args[0].Type == nil || args[0].Type.Kind() != types.KindRecord {
			return nil, &OperandTypeError{Op: op, Detail: "expected a Record and a static field name"}
		}
		fields, err := in.Fields(args[0].Type)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			if f.Name == name {
				return values.MultiPValue{{Type: f.Type, IsTemp: args[0].IsTemp}}, nil
			}
		}
		return nil, &OperandTypeError{Op: op, Detail: "no such field: " + name}

	case PrimStaticFieldRef:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		name, ok := staticIdent(args[1].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "second argument must be a static field name"}
		}
		_ = name
		return nil, &UnsupportedPrimOpError{Op: op}

	case PrimRecordFields:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindRecord {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be a Record"}
		}
		fields, err := in.Fields(args[0].Type)
		if err != nil {
			return nil, err
		}
		out := make(values.MultiPValue, len(fields))
		for i, f := range fields {
			out[i] = values.PValue{Type: f.Type, IsTemp: args[0].IsTemp}
		}
		return out, nil

	case PrimRecordVariadicField:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindRecord {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be a Record"}
		}
		fields, err := in.Fields(args[0].Type)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, &OperandTypeError{Op: op, Detail: "record has no variadic field"}
		}
		last := fields[len(fields)-1]
		return values.MultiPValue{{Type: last.Type, IsTemp: args[0].IsTemp}}, nil

	case PrimRecordFieldCount:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternInteger(64, false)), nil

	case PrimVariantMemberCount, PrimUnionMemberCount, PrimEnumMemberCount:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternInteger(64, false)), nil

	case PrimVariantMemberIndex:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternInteger(64, false)), nil

	case PrimVariantMembers:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindVariant {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be a Variant"}
		}
		members, err := in.VariantMembers(args[0].Type)
		if err != nil {
			return nil, err
		}
		out := make(values.MultiPValue, len(members))
		for i, m := range members {
			out[i] = rvalue(in.InternStatic(types.NewStaticType(m)))
		}
		return out, nil

	case PrimEnumToInt:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		if args[0].Type == nil || args[0].Type.Kind() != types.KindEnum {
			return nil, &OperandTypeError{Op: op, Detail: "operand must be an Enum"}
		}
		return rvalue1(in.InternInteger(32, true)), nil

	case PrimIntToEnum:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		dest, ok := staticType(args[0].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "first argument must be a static Enum type"}
		}
		return rvalue1(dest), nil

	case PrimBitcast:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		dest, ok := staticType(args[0].Type)
		if !ok {
			return nil, &OperandTypeError{Op: op, Detail: "first argument must be a static destination type"}
		}
		return values.MultiPValue{{Type: dest, IsTemp: false}}, nil

	case PrimBitcopy, PrimMemcpy, PrimMemmove, PrimAtomicStore, PrimAtomicFence:
		return rvalue1(in.InternTuple(nil)), nil

	case PrimAtomicLoad:
		if len(args) < 1 {
			return nil, &ArgCountError{Op: op, WantText: "≥1", Got: len(args)}
		}
		pointee, err := pointeeOf(op, args[0].Type)
		if err != nil {
			return nil, err
		}
		return rvalue1(pointee), nil

	case PrimAtomicRMW:
		if len(args) < 2 {
			return nil, &ArgCountError{Op: op, WantText: "≥2", Got: len(args)}
		}
		pointee, err := pointeeOf(op, args[1].Type)
		if err != nil {
			return nil, err
		}
		return rvalue1(pointee), nil

	case PrimAtomicCompareExchange:
		if len(args) < 3 {
			return nil, &ArgCountError{Op: op, WantText: "≥3", Got: len(args)}
		}
		pointee, err := pointeeOf(op, args[0].Type)
		if err != nil {
			return nil, err
		}
		return rvalue1(pointee), nil

	case PrimStringLiteralByteIndex:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		return rvalue1(in.InternInteger(8, false)), nil

	case PrimStringLiteralByteSize, PrimTypeSize, PrimTypeAlignment:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternInteger(64, false)), nil

	case PrimStringLiteralBytes:
		if err := requireArgs(op, args, 1); err != nil {
			return nil, err
		}
		return rvalue1(in.InternPointer(in.InternInteger(8, false))), nil

	case PrimStringLiteralByteSlice:
		if err := requireArgs(op, args, 3); err != nil {
			return nil, err
		}
		return rvalue1(in.InternPointer(in.InternInteger(8, false))), nil

	case PrimStringLiteralConcat:
		return rvalue1(in.InternPointer(in.InternInteger(8, false))), nil

	case PrimStringLiteralFromBytes, PrimStringTableConstant:
		return rvalue1(in.InternPointer(in.InternInteger(8, false))), nil

	case PrimCountValues:
		return rvalue1(in.InternInteger(64, false)), nil

	case PrimNthValue:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		idx, ok := staticInt(args[1].Type)
		if !ok || int(idx) >= len(args)-1 {
			return nil, &OperandTypeError{Op: op, Detail: "second argument must be a valid static index"}
		}
		return values.MultiPValue{args[0]}, nil

	case PrimWithoutNthValue, PrimTakeValues, PrimDropValues:
		return args[1:], nil

	case PrimUsuallyEquals:
		if err := requireArgs(op, args, 2); err != nil {
			return nil, err
		}
		return rvalue1(in.InternBool()), nil

	case PrimActiveException:
		return rvalue1(in.InternPointer(in.InternInteger(8, false))), nil

	case PrimMakeCodePointer, PrimMakeExternalCodePointer, PrimCallExternalCodePointer:
		return nil, &UnsupportedPrimOpError{Op: op}

	default:
		return nil, &UnsupportedPrimOpError{Op: op}
	}
}

func rvalue(t *types.Type) values.PValue { return values.PValue{Type: t, IsTemp: true} }

func rvalue1(t *types.Type) values.MultiPValue { return values.MultiPValue{rvalue(t)} }

func requireArgs(op PrimOpCode, args values.MultiPValue, n int) error {
	if len(args) != n {
		return &ArgCountError{Op: op, Want: n, Got: len(args)}
	}
	return nil
}

func isInteger(t *types.Type) bool { return t != nil && t.Kind() == types.KindInteger }
func isFloat(t *types.Type) bool   { return t != nil && t.Kind() == types.KindFloat }
func isNumeric(t *types.Type) bool {
	return t != nil && (t.Kind() == types.KindInteger || t.Kind() == types.KindFloat || t.Kind() == types.KindComplex)
}

func pointeeOf(op PrimOpCode, t *types.Type) (*types.Type, error) {
	if t == nil || t.Kind() != types.KindPointer {
		return nil, &OperandTypeError{Op: op, Detail: "operand must be a Pointer"}
	}
	return t.Pointee(), nil
}

func staticPayload(t *types.Type) (types.StaticObject, bool) {
	if t == nil || t.Kind() != types.KindStatic || len(t.Params()) == 0 {
		return types.StaticObject{}, false
	}
	return t.Params()[0], true
}

func staticType(t *types.Type) (*types.Type, bool) {
	obj, ok := staticPayload(t)
	if !ok || obj.Kind != types.StaticKindType {
		return nil, false
	}
	return obj.Type, true
}

func staticInt(t *types.Type) (int64, bool) {
	obj, ok := staticPayload(t)
	if !ok || obj.Kind != types.StaticKindInt {
		return 0, false
	}
	return obj.Int, true
}

func staticIdent(t *types.Type) (string, bool) {
	obj, ok := staticPayload(t)
	if !ok || obj.Kind != types.StaticKindIdent {
		return "", false
	}
	return obj.Ident, true
}
