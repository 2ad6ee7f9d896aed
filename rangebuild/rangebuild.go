// Package rangebuild walks classes super-first, assigning each selector
// the innermost concrete override per class-id, then coalescing contiguous
// equal-target ids into ranges.
package rangebuild

import (
	"sort"

	"github.com/wippyai/vtable/classes"
	"github.com/wippyai/vtable/errors"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/selector"
)

// Builder walks a classes.Hierarchy and fills in every selector's
// TargetRanges and StaticDispatchRanges.
type Builder struct {
	hierarchy *classes.Hierarchy
	registry  *selector.Registry
	// perClass[c] maps selector id -> reference currently inherited or
	// overridden at class c.
	perClass map[uint32]map[uint32]*member.Reference
	// polymorphicSpecializationEnabled makes every range statically dispatchable.
	polymorphicSpecializationEnabled bool
}

// NewBuilder creates a TargetRangeBuilder over hierarchy, registering
// targets into registry as it walks.
func NewBuilder(hierarchy *classes.Hierarchy, registry *selector.Registry, polymorphicSpecializationEnabled bool) *Builder {
	return &Builder{
		hierarchy:                         hierarchy,
		registry:                          registry,
		perClass:                          make(map[uint32]map[uint32]*member.Reference),
		polymorphicSpecializationEnabled: polymorphicSpecializationEnabled,
	}
}

// rawEntry is one (selectorID, classID, reference) triple collected during
// the walk, before grouping/sorting/coalescing.
type rawEntry struct {
	ref        *member.Reference
	selectorID uint32
	classID    uint32
}

// Build walks every class super-first, then emits, groups, sorts, and
// coalesces target ranges for every selector encountered. It must run
// after every reachable reference's selector has been registered (it does
// the registering itself, via Registry.GetOrCreate) and before any
// selector's ranges are considered final.
func (b *Builder) Build() error {
	var raw []rawEntry

	for _, c := range b.hierarchy.SuperFirstOrder {
		selectorsForC := make(map[uint32]*member.Reference)
		// The low-level base class starts empty even when it has a super
		// pointer; its members never mix into the object hierarchy.
		if super := b.hierarchy.SuperOf(c); super != nil && !c.IsWasmBase {
			if parentMap, ok := b.perClass[super.ID]; ok {
				for sid, ref := range parentMap {
					selectorsForC[sid] = ref
				}
			}
		}

		for _, m := range c.Members {
			for _, r := range m.References() {
				info, err := b.registry.GetOrCreate(r, c.IsWasmBase)
				if err != nil {
					return err
				}

				if r.Abstract {
					if _, exists := selectorsForC[info.ID]; !exists {
						selectorsForC[info.ID] = r
					}
					continue
				}

				selectorsForC[info.ID] = r
			}
		}

		b.perClass[c.ID] = selectorsForC

		if c.IsAbstract {
			// Abstract classes participate in inheritance (their map was
			// copied above by their subclasses) but emit no rows of their
			// own — they have no instances.
			continue
		}
		for sid, ref := range selectorsForC {
			if ref.Abstract {
				continue
			}
			raw = append(raw, rawEntry{selectorID: sid, classID: c.ID, ref: ref})
		}
	}

	return b.groupSortCoalesce(raw)
}

func (b *Builder) groupSortCoalesce(raw []rawEntry) error {
	bySelector := make(map[uint32][]rawEntry)
	for _, e := range raw {
		bySelector[e.selectorID] = append(bySelector[e.selectorID], e)
	}

	for sid, entries := range bySelector {
		info := b.registry.ByID(sid)
		if info == nil {
			return errors.New(errors.PhaseRangeBuild, errors.KindStructuralAssertion).
				Detail("selector %d has target entries but was never registered", sid).Build()
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].classID < entries[j].classID })

		var ranges []selector.TargetRange
		for _, e := range entries {
			if n := len(ranges); n > 0 {
				last := &ranges[n-1]
				if last.Range.End+1 == e.classID && last.Target == e.ref {
					last.Range.End = e.classID
					continue
				}
				if last.Range.End >= e.classID {
					return errors.RangeOverlap(sid, [2]uint32{last.Range.Start, last.Range.End}, [2]uint32{e.classID, e.classID})
				}
			}
			ranges = append(ranges, selector.TargetRange{
				Range:  selector.Range{Start: e.classID, End: e.classID},
				Target: e.ref,
			})
		}

		info.TargetRanges = ranges
		info.StaticDispatchRanges = b.staticDispatchRanges(info)
		var concrete uint32
		for _, tr := range ranges {
			concrete += tr.Range.Len()
		}
		info.ConcreteClasses = concrete
		info.MarkRangesFinalized()
	}

	// Selectors with zero concrete implementors (e.g. abstract-only, or
	// isNoSuchMethod never overridden) still need MarkRangesFinalized so
	// the signature synthesizer can run over them.
	for _, info := range b.registry.All() {
		if !info.RangesFinalized() {
			info.StaticDispatchRanges = b.staticDispatchRanges(info)
			info.MarkRangesFinalized()
		}
	}

	return nil
}

// staticDispatchRanges: if whole-program polymorphic specialization is
// enabled, or the selector has a single range, it's every range; otherwise
// it's the subset whose target carries the static-dispatch pragma.
func (b *Builder) staticDispatchRanges(info *selector.Info) []selector.TargetRange {
	if b.polymorphicSpecializationEnabled || len(info.TargetRanges) == 1 {
		return info.TargetRanges
	}
	var out []selector.TargetRange
	for _, tr := range info.TargetRanges {
		if tr.Target.StaticDispatch {
			out = append(out, tr)
		}
	}
	return out
}
