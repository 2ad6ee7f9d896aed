package classes

import "testing"

func u32(v uint32) *uint32 { return &v }

func TestHierarchy_Lookup(t *testing.T) {
	root := &Info{Name: "Object", ID: 0}
	base := &Info{Name: "_WasmBase", ID: 1, Super: u32(0), IsWasmBase: true}
	sub := &Info{Name: "A", ID: 2, Super: u32(0)}
	h := NewHierarchy([]*Info{root, base, sub}, 2)

	if got := h.ByID(2); got != sub {
		t.Errorf("ByID(2) = %v", got)
	}
	if got := h.ByID(9); got != nil {
		t.Errorf("ByID(9) = %v, want nil", got)
	}
	if got := h.SuperOf(sub); got != root {
		t.Errorf("SuperOf(A) = %v", got)
	}
	if got := h.SuperOf(root); got != nil {
		t.Errorf("SuperOf(root) = %v, want nil", got)
	}
	if !h.IsWasmBase(1) {
		t.Error("IsWasmBase(1) = false")
	}
	if h.IsWasmBase(2) {
		t.Error("IsWasmBase(2) = true")
	}
}

func TestHierarchy_Root(t *testing.T) {
	base := &Info{Name: "_WasmBase", ID: 0, IsWasmBase: true}
	root := &Info{Name: "Object", ID: 1}
	h := NewHierarchy([]*Info{base, root}, 1)

	if got := h.Root(); got != root {
		t.Errorf("Root() = %v, want Object (wasm base skipped)", got)
	}

	empty := NewHierarchy(nil, 0)
	if got := empty.Root(); got != nil {
		t.Errorf("Root() of empty hierarchy = %v", got)
	}
}

func TestMetadata_CallCountFor(t *testing.T) {
	m := &Metadata{TableSelectors: []SelectorMetadata{{CallCount: 3}, {CallCount: 0}}}
	if count, ok := m.CallCountFor(0); !ok || count != 3 {
		t.Errorf("CallCountFor(0) = %d, %v", count, ok)
	}
	if count, ok := m.CallCountFor(1); !ok || count != 0 {
		t.Errorf("CallCountFor(1) = %d, %v", count, ok)
	}
	if _, ok := m.CallCountFor(2); ok {
		t.Error("out-of-range selector id must report missing metadata")
	}
	var nilMeta *Metadata
	if _, ok := nilMeta.CallCountFor(0); ok {
		t.Error("nil metadata reports nothing")
	}
}
