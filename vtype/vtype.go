// Package vtype models the target-side value type lattice the signature
// synthesizer joins over: unboxed numeric value types plus a nominal
// struct lattice with supertype chains and a join.
package vtype

import "fmt"

// Kind discriminates a ValueType's representation.
type Kind int

const (
	KindI32 Kind = iota
	KindI64
	KindF32
	KindF64
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// IsPrimitive reports whether k is an unboxed numeric kind.
func (k Kind) IsPrimitive() bool {
	return k == KindI32 || k == KindI64 || k == KindF32 || k == KindF64
}

// Struct is a nominal heap type with a supertype chain. Depth is the
// distance from the lattice top (top has depth 0).
type Struct struct {
	Super *Struct
	Name  string
	Depth int
}

// ValueType is a target-level value type: either an unboxed primitive or a
// (possibly nullable) reference to a Struct.
type ValueType struct {
	Struct   *Struct
	Kind     Kind
	Nullable bool
}

func (t ValueType) String() string {
	n := ""
	if t.Nullable {
		n = "?"
	}
	if t.Kind == KindStruct && t.Struct != nil {
		return t.Struct.Name + n
	}
	return t.Kind.String() + n
}

// EqualIgnoringNull reports structural equality, ignoring nullability.
func (t ValueType) EqualIgnoringNull(o ValueType) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == KindStruct {
		return t.Struct == o.Struct
	}
	return true
}

// Lattice is the minimal set of operations signature synthesis needs:
// translating source types, the top nullable type, boxing a primitive into
// its struct equivalent, struct depth, and the immediate supertype of a
// struct.
type Lattice interface {
	TranslateType(sourceType string) (ValueType, error)
	TopNullable() ValueType
	BoxedStructFor(primitive ValueType) ValueType
	StructDepth(t ValueType) int
	SuperTypeOf(t ValueType) (ValueType, bool)
}

// StaticLattice is a concrete, in-memory Lattice: a fixed table of named
// source types mapped to ValueTypes, plus a registered struct hierarchy.
type StaticLattice struct {
	byName      map[string]ValueType
	boxedOf     map[Kind]*Struct
	topNullable ValueType
}

// NewStaticLattice creates an empty lattice with a synthetic top struct
// ("#Top", the nullable top-nullable reference type used as a placeholder
// for unreachable slots).
func NewStaticLattice() *StaticLattice {
	top := &Struct{Name: "#Top", Depth: 0}
	return &StaticLattice{
		byName:      make(map[string]ValueType),
		boxedOf:     make(map[Kind]*Struct),
		topNullable: ValueType{Kind: KindStruct, Struct: top, Nullable: true},
	}
}

// RegisterStruct adds a named struct type with the given (already
// registered) supertype, or nil for a type rooted directly under #Top.
func (l *StaticLattice) RegisterStruct(name string, super *Struct) *Struct {
	depth := 1
	if super != nil {
		depth = super.Depth + 1
	} else {
		super = l.topNullable.Struct
		depth = super.Depth + 1
	}
	s := &Struct{Name: name, Super: super, Depth: depth}
	return s
}

// RegisterSourceType associates a source-level type name with a ValueType,
// so TranslateType can resolve it later.
func (l *StaticLattice) RegisterSourceType(name string, v ValueType) {
	l.byName[name] = v
}

// RegisterBoxedEquivalent records the struct used to box an unboxed
// primitive kind (e.g. "int" -> boxed "_BoxedInt" struct).
func (l *StaticLattice) RegisterBoxedEquivalent(primitive Kind, s *Struct) {
	l.boxedOf[primitive] = s
}

func (l *StaticLattice) TranslateType(sourceType string) (ValueType, error) {
	v, ok := l.byName[sourceType]
	if !ok {
		return ValueType{}, fmt.Errorf("vtype: unknown source type %q", sourceType)
	}
	return v, nil
}

func (l *StaticLattice) TopNullable() ValueType {
	return l.topNullable
}

func (l *StaticLattice) BoxedStructFor(primitive ValueType) ValueType {
	s, ok := l.boxedOf[primitive.Kind]
	if !ok {
		return l.topNullable
	}
	return ValueType{Kind: KindStruct, Struct: s, Nullable: primitive.Nullable}
}

func (l *StaticLattice) StructDepth(t ValueType) int {
	if t.Kind != KindStruct || t.Struct == nil {
		return 0
	}
	return t.Struct.Depth
}

func (l *StaticLattice) SuperTypeOf(t ValueType) (ValueType, bool) {
	if t.Kind != KindStruct || t.Struct == nil || t.Struct.Super == nil {
		return ValueType{}, false
	}
	return ValueType{Kind: KindStruct, Struct: t.Struct.Super, Nullable: t.Nullable}, true
}

// LeastUpperBound computes the common ancestor of a and b in the struct
// lattice by walking the deeper one up until both are at equal depth, then
// walking both in lockstep until they coincide. Mirrors the walk-to-common-
// ancestor shape used for type joins elsewhere in the retrieval pack.
func (l *StaticLattice) LeastUpperBound(a, b ValueType) ValueType {
	if a.Kind != KindStruct || b.Kind != KindStruct || a.Struct == nil || b.Struct == nil {
		return l.topNullable
	}
	sa, sb := a.Struct, b.Struct
	for sa.Depth > sb.Depth {
		sa = sa.Super
	}
	for sb.Depth > sa.Depth {
		sb = sb.Super
	}
	for sa != sb {
		if sa.Super == nil || sb.Super == nil {
			return l.topNullable
		}
		sa, sb = sa.Super, sb.Super
	}
	return ValueType{Kind: KindStruct, Struct: sa, Nullable: a.Nullable || b.Nullable}
}
