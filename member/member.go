// Package member models instance members and the opaque Reference handles
// the dispatch table builder dispatches to. Fields and procedures are an
// explicit tagged variant inspected by exhaustive switch.
package member

import "github.com/wippyai/vtable/vtype"

// RefKind distinguishes the four shapes of dispatchable reference.
type RefKind int

const (
	RefMethod RefKind = iota
	RefGetter
	RefSetter
	RefTearOff
)

func (k RefKind) String() string {
	switch k {
	case RefMethod:
		return "method"
	case RefGetter:
		return "getter"
	case RefSetter:
		return "setter"
	case RefTearOff:
		return "tearoff"
	default:
		return "unknown"
	}
}

// ParameterInfo is the normalized parameter schema carried by a Reference
// and merged across all targets of a selector.
type ParameterInfo struct {
	// NameIndex maps a named parameter to its slot index.
	NameIndex map[string]int
	// DefaultSentinel flags, per positional+named slot index, whether some
	// target requires a default-value sentinel in that slot.
	DefaultSentinel map[int]bool
	PositionalArity int
	TypeParamCount  int
}

// Clone returns a deep copy suitable for mutation during merge.
func (p ParameterInfo) Clone() ParameterInfo {
	c := ParameterInfo{
		PositionalArity: p.PositionalArity,
		TypeParamCount:  p.TypeParamCount,
	}
	if p.NameIndex != nil {
		c.NameIndex = make(map[string]int, len(p.NameIndex))
		for k, v := range p.NameIndex {
			c.NameIndex[k] = v
		}
	}
	if p.DefaultSentinel != nil {
		c.DefaultSentinel = make(map[int]bool, len(p.DefaultSentinel))
		for k, v := range p.DefaultSentinel {
			c.DefaultSentinel[k] = v
		}
	}
	return c
}

// MergeInto widens p with other: arities widen to the max, name maps union,
// and a slot's sentinel flag becomes true if either side requires it.
func (p *ParameterInfo) MergeInto(other ParameterInfo) {
	if other.PositionalArity > p.PositionalArity {
		p.PositionalArity = other.PositionalArity
	}
	if other.TypeParamCount > p.TypeParamCount {
		p.TypeParamCount = other.TypeParamCount
	}
	if len(other.NameIndex) > 0 {
		if p.NameIndex == nil {
			p.NameIndex = make(map[string]int, len(other.NameIndex))
		}
		for name, idx := range other.NameIndex {
			if _, exists := p.NameIndex[name]; !exists {
				p.NameIndex[name] = idx
			}
		}
	}
	for slot, flag := range other.DefaultSentinel {
		if !flag {
			continue
		}
		if p.DefaultSentinel == nil {
			p.DefaultSentinel = make(map[int]bool)
		}
		p.DefaultSentinel[slot] = true
	}
}

// Reference is an opaque handle to a target member: a method body, implicit
// getter, implicit setter, or tear-off thunk. The builder never inspects
// member bodies, only the front-end facts carried here.
type Reference struct {
	Params           ParameterInfo
	ReturnType       vtype.ValueType
	ParamType        vtype.ValueType // setter's single input; zero value for getters
	// ParamTypes carries a procedure's per-slot input types, covering
	// positional slots then named slots at their NameIndex positions.
	ParamTypes       []vtype.ValueType
	Name             string
	ID               uint32
	SelectorID       uint32
	EnclosingClassID uint32
	Kind             RefKind
	Abstract         bool
	StaticDispatch   bool // "static-dispatch" pragma
	DynamicallyCalled bool
	HasTearOffUses   bool
	HasNonThisUses   bool
}

func (r *Reference) IsGetter() bool   { return r.Kind == RefGetter }
func (r *Reference) IsSetter() bool   { return r.Kind == RefSetter }
func (r *Reference) IsTearOff() bool  { return r.Kind == RefTearOff }
func (r *Reference) IsAbstract() bool { return r.Abstract }

// MemberKind distinguishes the two subclasses the source language uses for
// instance members.
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberProcedure
)

// ProcKind further discriminates a Procedure member.
type ProcKind int

const (
	ProcMethod ProcKind = iota
	ProcGetter
	ProcSetter
)

// Member is one declared instance member: a Field contributes a getter
// and an optional setter; a Procedure contributes itself and an optional
// tear-off.
type Member struct {
	Name             string
	EnclosingClassID uint32
	Kind             MemberKind

	// Field members.
	FieldGetter *Reference
	FieldSetter *Reference // nil if final / no setter

	// Procedure members.
	ProcRef    *Reference
	ProcKind   ProcKind
	TearOffRef *Reference // nil unless front-end marks tear-off uses
}

// References returns up to two references for this member: fields
// contribute getter + optional setter; procedures contribute themselves +
// optional tear-off.
func (m *Member) References() []*Reference {
	switch m.Kind {
	case MemberField:
		refs := make([]*Reference, 0, 2)
		if m.FieldGetter != nil {
			refs = append(refs, m.FieldGetter)
		}
		if m.FieldSetter != nil {
			refs = append(refs, m.FieldSetter)
		}
		return refs
	case MemberProcedure:
		refs := make([]*Reference, 0, 2)
		if m.ProcRef != nil {
			refs = append(refs, m.ProcRef)
		}
		if m.TearOffRef != nil {
			refs = append(refs, m.TearOffRef)
		}
		return refs
	default:
		return nil
	}
}

// CallOperatorName is the language's canonical callable member name, the
// function-call operator's textual name. A member named this is indexed for
// dynamic dispatch regardless of its dynamically-called flag.
const CallOperatorName = "call"
