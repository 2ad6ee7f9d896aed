// Package classes models the closed-world class hierarchy the dispatch
// table builder walks. There is no separate front-end module in this
// repository, so Hierarchy is a concrete, constructible value rather than
// an interface over one.
package classes

import (
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/vtype"
)

// ClassID is the dense integer identifying a concrete (or, for the root and
// the synthetic #Top class, possibly abstract) class.
type ClassID = uint32

// Info describes one class: its super-first position, its super pointer,
// and the instance members it declares directly (inherited members are not
// repeated here; TargetRangeBuilder walks the super chain instead).
type Info struct {
	Name       string
	Super      *uint32 // nil for the root; the wasm-base class may have one but inherits nothing
	Members    []*member.Member
	// InstanceType is the non-nullable target value type of the class's
	// instances, used as the receiver type when joining signatures.
	InstanceType vtype.ValueType
	ID           uint32
	IsAbstract   bool
	// IsWasmBase marks the special low-level base class whose members are
	// never indexed for dynamic dispatch and which inherits no selector
	// map from its super.
	IsWasmBase bool
}

// Hierarchy is the full closed-world class set, numbered densely and
// ordered super-first (every class appears after its superclass).
type Hierarchy struct {
	byID               map[uint32]*Info
	SuperFirstOrder     []*Info
	MaxConcreteClassID uint32
}

// NewHierarchy builds a Hierarchy from classes already in super-first
// order. It is the caller's responsibility (here: package program) to
// produce that ordering; the builder does not re-sort.
func NewHierarchy(superFirst []*Info, maxConcreteClassID uint32) *Hierarchy {
	h := &Hierarchy{
		SuperFirstOrder:    superFirst,
		MaxConcreteClassID: maxConcreteClassID,
		byID:               make(map[uint32]*Info, len(superFirst)),
	}
	for _, c := range superFirst {
		h.byID[c.ID] = c
	}
	return h
}

// ByID looks up a class by id, or nil if absent.
func (h *Hierarchy) ByID(id uint32) *Info {
	return h.byID[id]
}

// SuperOf returns the direct superclass of c, or nil when c has no super
// pointer (the root, or a wasm-base class declared without one).
func (h *Hierarchy) SuperOf(c *Info) *Info {
	if c.Super == nil {
		return nil
	}
	return h.byID[*c.Super]
}

// IsWasmBase reports whether id names the low-level wasm-base class, whose
// members are excluded from dynamic dispatch indexing.
func (h *Hierarchy) IsWasmBase(id uint32) bool {
	c := h.byID[id]
	return c != nil && c.IsWasmBase
}
