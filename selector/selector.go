// Package selector interns selector records by selector id, merges
// parameter metadata and usage flags across targets, and indexes selectors
// by member name for dynamic dispatch.
package selector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wippyai/vtable/errors"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/vtype"
)

// ParamSlot is one input slot of a FunctionType: a joined value type plus
// whether any merged target required a default-value sentinel there.
type ParamSlot struct {
	Type        vtype.ValueType
	EnsureBoxed bool
}

// FunctionType is the uniform call signature computed by
// signature.Synthesizer for one selector: a receiver slot, a run of
// type-parameter reflection slots, positional/named parameter slots, and an
// optional return slot.
type FunctionType struct {
	Receiver   vtype.ValueType
	TypeParams []vtype.ValueType
	Params     []ParamSlot
	Returns    []vtype.ValueType
}

// Kind mirrors the selector's dispatch shape, derived from the first
// member that created it.
type Kind int

const (
	KindMethod Kind = iota
	KindGetter
	KindSetter
)

// Range is an inclusive class-id interval, start <= end.
type Range struct {
	Start, End uint32
}

// Len returns the number of class-ids the range covers.
func (r Range) Len() uint32 { return r.End - r.Start + 1 }

// TargetRange pairs a Range with the Reference every class-id in it
// dispatches to.
type TargetRange struct {
	Target *member.Reference
	Range  Range
}

// Info is the central entity: one equivalence class of dispatchable
// members sharing a selector id.
type Info struct {
	Signature             *FunctionType
	ID                    uint32
	Name                  string
	Kind                  Kind
	CallCount             uint32
	Params                member.ParameterInfo
	HasTearOffUses        bool
	HasNonThisUses        bool
	IsNoSuchMethod        bool
	TargetRanges          []TargetRange
	StaticDispatchRanges  []TargetRange
	ConcreteClasses       uint32
	// Offset is the selector's row displacement into the packed table, set
	// only for participating selectors. It can be negative when the row's
	// first class-id exceeds the cursor at placement time; every absolute
	// index Offset+classID is still non-negative.
	Offset                *int32
	rangesFinalized       bool
	signatureComputed     bool
}

// RangesFinalized reports whether the range builder has finished with
// this selector; signatures may only be computed afterwards.
func (s *Info) RangesFinalized() bool { return s.rangesFinalized }

// MarkRangesFinalized is called exactly once by rangebuild.Builder.
func (s *Info) MarkRangesFinalized() { s.rangesFinalized = true }

// SignatureComputed reports whether the signature has already been set;
// signature.Synthesizer uses this to enforce the "at most once" rule.
func (s *Info) SignatureComputed() bool { return s.signatureComputed }

// SetSignature stores the computed signature and marks it immutable.
// Returns a StructuralAssertion error if called twice.
func (s *Info) SetSignature(sig *FunctionType) error {
	if s.signatureComputed {
		return errors.New(errors.PhaseSignature, errors.KindStructuralAssertion).
			Path("selector", fmt.Sprint(s.ID)).
			Detail("signature computed more than once").
			Build()
	}
	s.Signature = sig
	s.signatureComputed = true
	return nil
}

// IsEntirelyStaticallyDispatched reports whether every target range is also
// a static-dispatch range.
func (s *Info) IsEntirelyStaticallyDispatched() bool {
	return len(s.StaticDispatchRanges) == len(s.TargetRanges)
}

// Registry interns Info by selector id and indexes by member name for
// dynamic dispatch.
type Registry struct {
	byID            map[uint32]*Info
	dynamicGetters  map[string]map[uint32]*Info
	dynamicSetters  map[string]map[uint32]*Info
	dynamicMethods  map[string]map[uint32]*Info
	mu              sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:           make(map[uint32]*Info),
		dynamicGetters: make(map[string]map[uint32]*Info),
		dynamicSetters: make(map[string]map[uint32]*Info),
		dynamicMethods: make(map[string]map[uint32]*Info),
	}
}

func kindFor(r *member.Reference) (Kind, error) {
	switch r.Kind {
	case member.RefGetter, member.RefTearOff:
		return KindGetter, nil
	case member.RefSetter:
		return KindSetter, nil
	case member.RefMethod:
		return KindMethod, nil
	default:
		return 0, errors.New(errors.PhaseRegistry, errors.KindMissingMetadata).
			Detail("reference %q has unrecognized kind", r.Name).Build()
	}
}

// GetOrCreate derives the selector id from the reference's front-end
// metadata (r.SelectorID — getter-selector-id for getters/tear-offs,
// method-or-setter-selector-id otherwise) and either creates the Info the
// first time that id is seen, or merges this target's metadata into the
// existing one. skipDynamicIndex is true when r's enclosing class is the
// low-level wasm-base class; the caller (rangebuild.Builder, which owns the
// class hierarchy) determines this.
func (reg *Registry) GetOrCreate(r *member.Reference, skipDynamicIndex bool) (*Info, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	kind, err := kindFor(r)
	if err != nil {
		return nil, err
	}

	info, exists := reg.byID[r.SelectorID]
	if !exists {
		info = &Info{
			ID:     r.SelectorID,
			Name:   r.Name,
			Kind:   kind,
			Params: r.Params.Clone(),
		}
		reg.byID[r.SelectorID] = info
	} else {
		if (kind == KindSetter) != (info.Kind == KindSetter) {
			return nil, errors.SetterDisagreement(r.SelectorID)
		}
		info.Params.MergeInto(r.Params)
	}

	info.HasTearOffUses = info.HasTearOffUses || r.HasTearOffUses
	info.HasNonThisUses = info.HasNonThisUses || r.HasNonThisUses

	if !skipDynamicIndex {
		reg.indexDynamic(r, info)
	}

	return info, nil
}

// indexDynamic indexes a target under its member name iff it was marked
// dynamically callable, or its name is the call operator's name. Excluding
// the wasm-base class is the caller's job, via skipDynamicIndex.
func (reg *Registry) indexDynamic(r *member.Reference, info *Info) {
	if !r.DynamicallyCalled && r.Name != member.CallOperatorName {
		return
	}
	var bucket map[string]map[uint32]*Info
	switch info.Kind {
	case KindGetter:
		bucket = reg.dynamicGetters
	case KindSetter:
		bucket = reg.dynamicSetters
	case KindMethod:
		bucket = reg.dynamicMethods
	}
	set, ok := bucket[r.Name]
	if !ok {
		set = make(map[uint32]*Info)
		bucket[r.Name] = set
	}
	set[info.ID] = info
}

// SelectorForTarget is the lookup-only variant: it fails with
// UnknownSelector if the id was never created via GetOrCreate.
func (reg *Registry) SelectorForTarget(r *member.Reference) (*Info, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	info, ok := reg.byID[r.SelectorID]
	if !ok {
		return nil, errors.UnknownSelector(r.Name)
	}
	return info, nil
}

// ByID returns the selector with the given id, or nil.
func (reg *Registry) ByID(id uint32) *Info {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.byID[id]
}

// All returns every interned selector, sorted by id for deterministic
// iteration.
func (reg *Registry) All() []*Info {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Info, 0, len(reg.byID))
	for _, info := range reg.byID {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func dynamicSelectors(bucket map[string]map[uint32]*Info, name string) []*Info {
	set, ok := bucket[name]
	if !ok {
		return nil
	}
	out := make([]*Info, 0, len(set))
	for _, info := range set {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DynamicGetterSelectors returns the (possibly empty) set of getter
// selectors reachable dynamically under name.
func (reg *Registry) DynamicGetterSelectors(name string) []*Info {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return dynamicSelectors(reg.dynamicGetters, name)
}

// DynamicSetterSelectors returns the (possibly empty) set of setter
// selectors reachable dynamically under name.
func (reg *Registry) DynamicSetterSelectors(name string) []*Info {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return dynamicSelectors(reg.dynamicSetters, name)
}

// DynamicMethodSelectors returns the (possibly empty) set of method
// selectors reachable dynamically under name.
func (reg *Registry) DynamicMethodSelectors(name string) []*Info {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return dynamicSelectors(reg.dynamicMethods, name)
}
