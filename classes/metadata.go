package classes

// SelectorMetadata is the front end's per-selector call-site summary.
type SelectorMetadata struct {
	CallCount uint32
}

// Metadata bundles the front-end tables the builder consumes alongside the
// hierarchy: the dense selector metadata array and the whole-program flags
// that steer static-dispatch range computation.
type Metadata struct {
	// TableSelectors is indexed by selector id. An id outside the array is
	// a reachable member with no front-end metadata, a fatal fault.
	TableSelectors []SelectorMetadata
	// PolymorphicSpecialization makes every target range statically
	// dispatchable regardless of pragmas.
	PolymorphicSpecialization bool
}

// CallCountFor returns the call count recorded for selector id, or false
// if the front end produced no entry for it.
func (m *Metadata) CallCountFor(id uint32) (uint32, bool) {
	if m == nil || id >= uint32(len(m.TableSelectors)) {
		return 0, false
	}
	return m.TableSelectors[id].CallCount, true
}

// NoSuchMethodName is the root class's dynamic-failure hook. The selector
// created from the root's override of this member stays in the packed
// table even when its call count is zero.
const NoSuchMethodName = "noSuchMethod"

// Root returns the hierarchy's root class: the one with no superclass that
// is not the low-level wasm-base class.
func (h *Hierarchy) Root() *Info {
	for _, c := range h.SuperFirstOrder {
		if c.Super == nil && !c.IsWasmBase {
			return c
		}
	}
	return nil
}
