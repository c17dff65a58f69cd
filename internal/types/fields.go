package types

// Field is one materialized record field.
type Field struct {
	Name  string
	Type  *Type
	IsVar bool // expands to a sequence of types (the trailing var field)
}

// FieldResolver evaluates record field declarations and variant instance
// predicates against a fully-parametrized Record/Variant type. It is
// implemented by the analyzer package and installed via
// Interner.SetFieldResolver; the interner stays a leaf component and only
// calls into it lazily, at most once per descriptor (§4.1).
type FieldResolver interface {
	// ResolveRecordFields resolves t's declared field list (or evaluates its
	// computed body) in the record's declaration environment bound to t's
	// params. For a computed body it also attaches any RecordWithProperties
	// overloads as a side effect.
	ResolveRecordFields(t *Type) ([]Field, error)

	// ResolveVariantMembers evaluates each instance declaration's predicate
	// against t's bound params and appends the members of every instance
	// whose predicate holds, on top of the variant's default instances.
	ResolveVariantMembers(t *Type) ([]*Type, error)
}

// Fields materializes and returns t's record fields, resolving them on
// first call and caching the result (§4.1, §8 invariant: "at most once per
// descriptor"). Panics if t is not a Record — callers are expected to check
// Kind() first, matching the teacher's "unknown kind is a compiler bug"
// posture (spec.md §7).
func (in *Interner) Fields(t *Type) ([]Field, error) {
	if t.Kind() != KindRecord {
		panic("types: Fields called on non-record type " + t.String())
	}
	if t.fieldsReady {
		return t.fields, nil
	}
	if in.resolver == nil {
		panic("types: no FieldResolver installed")
	}
	fields, err := in.resolver.ResolveRecordFields(t)
	if err != nil {
		return nil, err
	}
	t.fields = fields
	t.fieldsReady = true
	return fields, nil
}

// VariantMembers materializes and returns t's variant member types.
// Requires at least one member (§4.1 EmptyVariant).
func (in *Interner) VariantMembers(t *Type) ([]*Type, error) {
	if t.Kind() != KindVariant {
		panic("types: VariantMembers called on non-variant type " + t.String())
	}
	if t.variantReady {
		return t.variantMembers, nil
	}
	if in.resolver == nil {
		panic("types: no FieldResolver installed")
	}
	members, err := in.resolver.ResolveVariantMembers(t)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, &EmptyVariantError{Name: t.Name()}
	}
	t.variantMembers = members
	t.variantReady = true
	return members, nil
}

// TagCount returns the number of dispatchable members of t: a variant's
// member count, or 1 for any other type (used by dispatch expansion, §4.2).
func (in *Interner) TagCount(t *Type) (int, error) {
	if t.Kind() != KindVariant {
		return 1, nil
	}
	members, err := in.VariantMembers(t)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// VariantMemberIndex returns the position of member within t's materialized
// member list, or -1 if member does not appear.
func (in *Interner) VariantMemberIndex(t *Type, member *Type) (int, error) {
	members, err := in.VariantMembers(t)
	if err != nil {
		return -1, err
	}
	for i, m := range members {
		if m == member {
			return i, nil
		}
	}
	return -1, nil
}
