// Package primops implements spec.md §4.5: the fixed dispatch table of
// primitive operations. A PrimOpCode is bound directly in an environment
// frame (env.EntryPrimOp) and resolved without overload ranking — contrast
// internal/specialize, which ranks and binds ordinary overloaded callables.
// Integer checked-arithmetic primitives are an exception: the
// original source routes them to a named user procedure
// (operator_doIntegerAddChecked and friends) rather than lowering them
// directly, so they carry a DelegatesTo name instead of being computed here.
package primops

// PrimOpCode enumerates every primitive operation recognized by the
// compiler, grounded on compiler/codegen_op.cpp's PRIM_* switch.
type PrimOpCode int

const (
	PrimArray PrimOpCode = iota
	PrimVec
	PrimTuple
	PrimUnion
	PrimPointer
	PrimCodePointer
	PrimExternalCodePointer
	PrimBaseType
	PrimByRef

	PrimTypeP
	PrimTypeSize
	PrimTypeAlignment

	PrimSymbolP
	PrimStatic
	PrimStaticName
	PrimStaticModule
	PrimMainModule
	PrimStaticCallDefinedP
	PrimStaticCallOutputTypes
	PrimStaticMonoP
	PrimStaticMonoInputTypes
	PrimStaticIntegers
	PrimModuleName
	PrimModuleMemberNames
	PrimStaticFieldRef

	PrimOperatorP
	PrimGetOverload

	PrimRecordP
	PrimRecordWithFieldP
	PrimRecordFieldCount
	PrimRecordFieldName
	PrimRecordFields
	PrimRecordVariadicField
	PrimRecordFieldRef
	PrimRecordFieldRefByName
	PrimRecordWithProperties

	PrimTupleElementCount
	PrimTupleRef
	PrimTupleElements

	PrimUnionMemberCount

	PrimVariantP
	PrimVariantMemberCount
	PrimVariantMemberIndex
	PrimVariantMembers

	PrimEnumP
	PrimEnumMemberCount
	PrimEnumMemberName
	PrimEnumToInt
	PrimIntToEnum

	PrimLambdaRecordP
	PrimLambdaSymbolP
	PrimLambdaMonoP
	PrimLambdaMonoInputTypes

	PrimFlag
	PrimFlagP

	PrimIntegers
	PrimIntegerEqualsP
	PrimIntegerLesserP
	PrimIntegerAddChecked
	PrimIntegerSubtractChecked
	PrimIntegerMultiplyChecked
	PrimIntegerQuotientChecked
	PrimIntegerRemainderChecked
	PrimIntegerShiftLeftChecked
	PrimIntegerNegateChecked
	PrimIntegerConvertChecked
	PrimIntegerQuotient
	PrimIntegerRemainder
	PrimIntegerShiftLeft
	PrimIntegerShiftRight
	PrimIntegerBitwiseAnd
	PrimIntegerBitwiseOr
	PrimIntegerBitwiseXor
	PrimIntegerBitwiseNot

	PrimNumericAdd
	PrimNumericSubtract
	PrimNumericMultiply
	PrimNumericNegate
	PrimNumericConvert
	PrimFloatDivide

	PrimFloatOrderedP
	PrimFloatOrderedEqualsP
	PrimFloatOrderedLesserP
	PrimFloatOrderedLesserEqualsP
	PrimFloatOrderedGreaterP
	PrimFloatOrderedGreaterEqualsP
	PrimFloatOrderedNotEqualsP
	PrimFloatUnorderedP
	PrimFloatUnorderedEqualsP
	PrimFloatUnorderedLesserP
	PrimFloatUnorderedLesserEqualsP
	PrimFloatUnorderedGreaterP
	PrimFloatUnorderedGreaterEqualsP
	PrimFloatUnorderedNotEqualsP

	PrimBoolNot

	PrimPointerOffset
	PrimPointerToInt
	PrimIntToPointer
	PrimPointerDereference
	PrimAddressOf
	PrimNullPointer

	PrimMakeCodePointer
	PrimMakeExternalCodePointer
	PrimCallExternalCodePointer

	PrimArrayElements
	PrimArrayRef

	PrimStringLiteralP
	PrimStringLiteralByteIndex
	PrimStringLiteralBytes
	PrimStringLiteralByteSize
	PrimStringLiteralByteSlice
	PrimStringLiteralConcat
	PrimStringLiteralFromBytes
	PrimStringTableConstant

	PrimBitcast
	PrimBitcopy
	PrimMemcpy
	PrimMemmove

	PrimCountValues
	PrimNthValue
	PrimWithoutNthValue
	PrimTakeValues
	PrimDropValues

	PrimUsuallyEquals

	PrimActiveException

	PrimAtomicFence
	PrimAtomicLoad
	PrimAtomicStore
	PrimAtomicRMW
	PrimAtomicCompareExchange

	// PrimDispatchTag/PrimDispatchIndex back the Dispatch call-lowering kind
	// (§4.4): dispatchTag(x) yields an Int in [0, tagCount(T)) for a
	// variant-like value; dispatchIndex(x, tag) reinterprets x as the
	// chosen member type.
	PrimDispatchTag
	PrimDispatchIndex

	primOpCodeCount
)

var names = [...]string{
	PrimArray:                      "Array",
	PrimVec:                        "Vec",
	PrimTuple:                      "Tuple",
	PrimUnion:                      "Union",
	PrimPointer:                    "Pointer",
	PrimCodePointer:                "CodePointer",
	PrimExternalCodePointer:        "ExternalCodePointer",
	PrimBaseType:                   "BaseType",
	PrimByRef:                      "ByRef",
	PrimTypeP:                      "TypeP",
	PrimTypeSize:                   "TypeSize",
	PrimTypeAlignment:              "TypeAlignment",
	PrimSymbolP:                    "SymbolP",
	PrimStatic:                     "Static",
	PrimStaticName:                 "StaticName",
	PrimStaticModule:               "StaticModule",
	PrimMainModule:                 "MainModule",
	PrimStaticCallDefinedP:         "StaticCallDefinedP",
	PrimStaticCallOutputTypes:      "StaticCallOutputTypes",
	PrimStaticMonoP:                "StaticMonoP",
	PrimStaticMonoInputTypes:       "StaticMonoInputTypes",
	PrimStaticIntegers:             "staticIntegers",
	PrimModuleName:                 "ModuleName",
	PrimModuleMemberNames:          "ModuleMemberNames",
	PrimStaticFieldRef:             "staticFieldRef",
	PrimOperatorP:                  "OperatorP",
	PrimGetOverload:                "GetOverload",
	PrimRecordP:                    "RecordP",
	PrimRecordWithFieldP:           "RecordWithFieldP",
	PrimRecordFieldCount:           "RecordFieldCount",
	PrimRecordFieldName:            "RecordFieldName",
	PrimRecordFields:               "recordFields",
	PrimRecordVariadicField:        "recordVariadicField",
	PrimRecordFieldRef:             "recordFieldRef",
	PrimRecordFieldRefByName:       "recordFieldRefByName",
	PrimRecordWithProperties:       "RecordWithProperties",
	PrimTupleElementCount:          "TupleElementCount",
	PrimTupleRef:                   "tupleRef",
	PrimTupleElements:              "tupleElements",
	PrimUnionMemberCount:           "UnionMemberCount",
	PrimVariantP:                   "VariantP",
	PrimVariantMemberCount:         "VariantMemberCount",
	PrimVariantMemberIndex:         "VariantMemberIndex",
	PrimVariantMembers:             "VariantMembers",
	PrimEnumP:                      "EnumP",
	PrimEnumMemberCount:            "EnumMemberCount",
	PrimEnumMemberName:             "EnumMemberName",
	PrimEnumToInt:                  "enumToInt",
	PrimIntToEnum:                  "intToEnum",
	PrimLambdaRecordP:              "LambdaRecordP",
	PrimLambdaSymbolP:              "LambdaSymbolP",
	PrimLambdaMonoP:                "LambdaMonoP",
	PrimLambdaMonoInputTypes:       "LambdaMonoInputTypes",
	PrimFlag:                       "Flag",
	PrimFlagP:                      "FlagP",
	PrimIntegers:                   "integers",
	PrimIntegerEqualsP:             "integerEqualsP",
	PrimIntegerLesserP:             "integerLesserP",
	PrimIntegerAddChecked:          "integerAddChecked",
	PrimIntegerSubtractChecked:     "integerSubtractChecked",
	PrimIntegerMultiplyChecked:     "integerMultiplyChecked",
	PrimIntegerQuotientChecked:     "integerQuotientChecked",
	PrimIntegerRemainderChecked:    "integerRemainderChecked",
	PrimIntegerShiftLeftChecked:    "integerShiftLeftChecked",
	PrimIntegerNegateChecked:       "integerNegateChecked",
	PrimIntegerConvertChecked:      "integerConvertChecked",
	PrimIntegerQuotient:            "integerQuotient",
	PrimIntegerRemainder:           "integerRemainder",
	PrimIntegerShiftLeft:           "integerShiftLeft",
	PrimIntegerShiftRight:          "integerShiftRight",
	PrimIntegerBitwiseAnd:          "integerBitwiseAnd",
	PrimIntegerBitwiseOr:           "integerBitwiseOr",
	PrimIntegerBitwiseXor:          "integerBitwiseXor",
	PrimIntegerBitwiseNot:          "integerBitwiseNot",
	PrimNumericAdd:                 "numericAdd",
	PrimNumericSubtract:            "numericSubtract",
	PrimNumericMultiply:            "numericMultiply",
	PrimNumericNegate:              "numericNegate",
	PrimNumericConvert:             "numericConvert",
	PrimFloatDivide:                "floatDivide",
	PrimFloatOrderedP:              "floatOrderedP",
	PrimFloatOrderedEqualsP:        "floatOrderedEqualsP",
	PrimFloatOrderedLesserP:        "floatOrderedLesserP",
	PrimFloatOrderedLesserEqualsP:  "floatOrderedLesserEqualsP",
	PrimFloatOrderedGreaterP:       "floatOrderedGreaterP",
	PrimFloatOrderedGreaterEqualsP: "floatOrderedGreaterEqualsP",
	PrimFloatOrderedNotEqualsP:     "floatOrderedNotEqualsP",
	PrimFloatUnorderedP:            "floatUnorderedP",
	PrimFloatUnorderedEqualsP:      "floatUnorderedEqualsP",
	PrimFloatUnorderedLesserP:      "floatUnorderedLesserP",
	PrimFloatUnorderedLesserEqualsP: "floatUnorderedLesserEqualsP",
	PrimFloatUnorderedGreaterP:      "floatUnorderedGreaterP",
	PrimFloatUnorderedGreaterEqualsP: "floatUnorderedGreaterEqualsP",
	PrimFloatUnorderedNotEqualsP:    "floatUnorderedNotEqualsP",
	PrimBoolNot:                     "boolNot",
	PrimPointerOffset:               "pointerOffset",
	PrimPointerToInt:                "pointerToInt",
	PrimIntToPointer:                "intToPointer",
	PrimPointerDereference:          "pointerDereference",
	PrimAddressOf:                   "addressOf",
	PrimNullPointer:                 "nullPointer",
	PrimMakeCodePointer:             "makeCodePointer",
	PrimMakeExternalCodePointer:     "makeExternalCodePointer",
	PrimCallExternalCodePointer:     "callExternalCodePointer",
	PrimArrayElements:               "arrayElements",
	PrimArrayRef:                    "arrayRef",
	PrimStringLiteralP:              "StringLiteralP",
	PrimStringLiteralByteIndex:      "stringLiteralByteIndex",
	PrimStringLiteralBytes:          "stringLiteralBytes",
	PrimStringLiteralByteSize:       "stringLiteralByteSize",
	PrimStringLiteralByteSlice:      "stringLiteralByteSlice",
	PrimStringLiteralConcat:         "stringLiteralConcat",
	PrimStringLiteralFromBytes:      "stringLiteralFromBytes",
	PrimStringTableConstant:         "stringTableConstant",
	PrimBitcast:                     "bitcast",
	PrimBitcopy:                     "bitcopy",
	PrimMemcpy:                      "memcpy",
	PrimMemmove:                     "memmove",
	PrimCountValues:                 "countValues",
	PrimNthValue:                    "nthValue",
	PrimWithoutNthValue:             "withoutNthValue",
	PrimTakeValues:                  "takeValues",
	PrimDropValues:                  "dropValues",
	PrimUsuallyEquals:               "usuallyEquals",
	PrimActiveException:             "activeException",
	PrimAtomicFence:                 "atomicFence",
	PrimAtomicLoad:                  "atomicLoad",
	PrimAtomicStore:                 "atomicStore",
	PrimAtomicRMW:                   "atomicRMW",
	PrimAtomicCompareExchange:       "atomicCompareExchange",
	PrimDispatchTag:                 "dispatchTag",
	PrimDispatchIndex:               "dispatchIndex",
}

func (p PrimOpCode) String() string {
	if int(p) >= 0 && int(p) < len(names) && names[p] != "" {
		return names[p]
	}
	return "?"
}

// Count is the number of distinct primitive operation codes.
func Count() int { return int(primOpCodeCount) }

// checkedDelegates maps a checked-arithmetic primitive to the named
// overloadable user procedure the lowering driver calls instead of
// computing it directly (compiler/codegen_op.cpp: PRIM_integerAddChecked
// et al. call operator_doIntegerAddChecked() rather than emitting an add).
var checkedDelegates = map[PrimOpCode]string{
	PrimIntegerAddChecked:       "doIntegerAddChecked",
	PrimIntegerSubtractChecked:  "doIntegerSubtractChecked",
	PrimIntegerMultiplyChecked:  "doIntegerMultiplyChecked",
	PrimIntegerQuotientChecked:  "doIntegerQuotientChecked",
	PrimIntegerRemainderChecked: "doIntegerRemainderChecked",
	PrimIntegerShiftLeftChecked: "doIntegerShiftLeftChecked",
	PrimIntegerNegateChecked:    "doIntegerNegateChecked",
	PrimIntegerConvertChecked:   "doIntegerConvertChecked",
}

// DelegatesTo returns the overloadable operator name this primitive
// forwards to at lowering time, and true, if it is a checked-arithmetic
// delegate rather than a directly-lowered primitive.
func (p PrimOpCode) DelegatesTo() (string, bool) {
	name, ok := checkedDelegates[p]
	return name, ok
}
