package signature

import (
	"testing"

	"github.com/wippyai/vtable/classes"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/selector"
	"github.com/wippyai/vtable/vtype"
)

// testWorld is a small lattice: #Top > Object > {A > B, BoxedInt}.
type testWorld struct {
	lattice  *vtype.StaticLattice
	object   *vtype.Struct
	a        *vtype.Struct
	b        *vtype.Struct
	boxedInt *vtype.Struct
}

func newWorld() *testWorld {
	l := vtype.NewStaticLattice()
	obj := l.RegisterStruct("Object", nil)
	a := l.RegisterStruct("A", obj)
	b := l.RegisterStruct("B", a)
	boxed := l.RegisterStruct("BoxedInt", obj)
	l.RegisterBoxedEquivalent(vtype.KindI64, boxed)
	return &testWorld{lattice: l, object: obj, a: a, b: b, boxedInt: boxed}
}

func structType(s *vtype.Struct, nullable bool) vtype.ValueType {
	return vtype.ValueType{Kind: vtype.KindStruct, Struct: s, Nullable: nullable}
}

func intType() vtype.ValueType {
	return vtype.ValueType{Kind: vtype.KindI64}
}

func hierarchyFor(w *testWorld, instanceTypes map[uint32]*vtype.Struct) *classes.Hierarchy {
	var infos []*classes.Info
	var max uint32
	for id, s := range instanceTypes {
		infos = append(infos, &classes.Info{
			Name:         s.Name,
			ID:           id,
			InstanceType: structType(s, false),
		})
		if id > max {
			max = id
		}
	}
	return classes.NewHierarchy(infos, max)
}

func finalizedSelector(id uint32, name string, kind selector.Kind, targets ...*member.Reference) *selector.Info {
	s := &selector.Info{ID: id, Name: name, Kind: kind}
	for i, t := range targets {
		c := uint32(i)
		s.TargetRanges = append(s.TargetRanges, selector.TargetRange{
			Range:  selector.Range{Start: c, End: c},
			Target: t,
		})
		s.Params.MergeInto(t.Params)
	}
	s.MarkRangesFinalized()
	return s
}

func compute(t *testing.T, w *testWorld, h *classes.Hierarchy, s *selector.Info) *selector.FunctionType {
	t.Helper()
	if err := NewSynthesizer(w.lattice, h).Compute([]*selector.Info{s}); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	return s.Signature
}

func TestCompute_ReceiverJoin(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a, 1: w.b})

	ta := &member.Reference{Name: "foo", Kind: member.RefMethod, EnclosingClassID: 0, ReturnType: structType(w.a, false)}
	tb := &member.Reference{Name: "foo", Kind: member.RefMethod, EnclosingClassID: 1, ReturnType: structType(w.b, false)}
	s := finalizedSelector(1, "foo", selector.KindMethod, ta, tb)

	sig := compute(t, w, h, s)
	if sig.Receiver.Struct != w.a {
		t.Errorf("receiver = %v, want A (join of A and B)", sig.Receiver)
	}
	if sig.Receiver.Nullable {
		t.Error("receiver must be non-nullable")
	}
	if len(sig.Returns) != 1 || sig.Returns[0].Struct != w.a {
		t.Errorf("returns = %v, want [A]", sig.Returns)
	}
}

func TestCompute_SinglePrimitiveStaysUnboxed(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	ta := &member.Reference{
		Name: "foo", Kind: member.RefMethod, EnclosingClassID: 0,
		ParamTypes: []vtype.ValueType{intType()},
		Params:     member.ParameterInfo{PositionalArity: 1},
		ReturnType: intType(),
	}
	s := finalizedSelector(1, "foo", selector.KindMethod, ta)

	sig := compute(t, w, h, s)
	if len(sig.Params) != 1 {
		t.Fatalf("got %d params, want 1", len(sig.Params))
	}
	if sig.Params[0].Type.Kind != vtype.KindI64 {
		t.Errorf("param = %v, want unboxed i64", sig.Params[0].Type)
	}
}

func TestCompute_SentinelForcesBoxing(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	ta := &member.Reference{
		Name: "foo", Kind: member.RefMethod, EnclosingClassID: 0,
		ParamTypes: []vtype.ValueType{intType()},
		Params: member.ParameterInfo{
			PositionalArity: 1,
			DefaultSentinel: map[int]bool{0: true},
		},
		ReturnType: intType(),
	}
	s := finalizedSelector(1, "foo", selector.KindMethod, ta)

	sig := compute(t, w, h, s)
	p := sig.Params[0]
	if !p.EnsureBoxed {
		t.Error("slot with default sentinel must be marked ensureBoxed")
	}
	if p.Type.Kind != vtype.KindStruct || p.Type.Struct != w.boxedInt {
		t.Errorf("param = %v, want BoxedInt", p.Type)
	}
}

func TestCompute_MixedPrimitiveAndStructJoins(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a, 1: w.b})

	t1 := &member.Reference{
		Name: "foo", Kind: member.RefMethod, EnclosingClassID: 0,
		ParamTypes: []vtype.ValueType{intType()},
		Params:     member.ParameterInfo{PositionalArity: 1},
	}
	t2 := &member.Reference{
		Name: "foo", Kind: member.RefMethod, EnclosingClassID: 1,
		ParamTypes: []vtype.ValueType{structType(w.a, true)},
		Params:     member.ParameterInfo{PositionalArity: 1},
	}
	s := finalizedSelector(1, "foo", selector.KindMethod, t1, t2)

	sig := compute(t, w, h, s)
	p := sig.Params[0].Type
	// BoxedInt and A join at Object; nullability ORs across inputs.
	if p.Struct != w.object {
		t.Errorf("param = %v, want Object", p)
	}
	if !p.Nullable {
		t.Error("join of nullable input must stay nullable")
	}
}

func TestCompute_EqualityRHSNonNullable(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a, 1: w.b})

	t1 := &member.Reference{
		Name: "==", Kind: member.RefMethod, EnclosingClassID: 0,
		ParamTypes: []vtype.ValueType{structType(w.object, true)},
		Params:     member.ParameterInfo{PositionalArity: 1},
	}
	t2 := &member.Reference{
		Name: "==", Kind: member.RefMethod, EnclosingClassID: 1,
		ParamTypes: []vtype.ValueType{structType(w.object, true)},
		Params:     member.ParameterInfo{PositionalArity: 1},
	}
	s := finalizedSelector(1, "==", selector.KindMethod, t1, t2)

	sig := compute(t, w, h, s)
	if sig.Params[0].Type.Nullable {
		t.Error("equality operator's right-hand slot must be non-nullable")
	}
}

func TestCompute_SetterHasNoReturn(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	ta := &member.Reference{
		Name: "x", Kind: member.RefSetter, EnclosingClassID: 0,
		ParamType: intType(),
		Params:    member.ParameterInfo{PositionalArity: 1},
	}
	s := finalizedSelector(1, "x", selector.KindSetter, ta)

	sig := compute(t, w, h, s)
	if len(sig.Returns) != 0 {
		t.Errorf("setter signature has %d returns, want 0", len(sig.Returns))
	}
	if len(sig.Params) != 1 {
		t.Fatalf("setter signature has %d params, want 1", len(sig.Params))
	}
	if sig.Params[0].Type.Kind != vtype.KindI64 {
		t.Errorf("setter input = %v, want i64", sig.Params[0].Type)
	}
}

func TestCompute_GetterHasNoParams(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	ta := &member.Reference{
		Name: "x", Kind: member.RefGetter, EnclosingClassID: 0,
		ReturnType: structType(w.b, false),
	}
	s := finalizedSelector(1, "x", selector.KindGetter, ta)

	sig := compute(t, w, h, s)
	if len(sig.Params) != 0 {
		t.Errorf("getter signature has %d params, want 0", len(sig.Params))
	}
	if len(sig.Returns) != 1 || sig.Returns[0].Struct != w.b {
		t.Errorf("returns = %v, want [B]", sig.Returns)
	}
}

func TestCompute_NoImplementorsUsesTop(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	s := &selector.Info{ID: 1, Name: "ghost", Kind: selector.KindMethod,
		Params: member.ParameterInfo{PositionalArity: 1}}
	s.MarkRangesFinalized()

	sig := compute(t, w, h, s)
	top := w.lattice.TopNullable()
	if len(sig.Params) != 1 || sig.Params[0].Type != top {
		t.Errorf("params = %v, want [top nullable]", sig.Params)
	}
	if len(sig.Returns) != 1 || sig.Returns[0] != top {
		t.Errorf("returns = %v, want [top nullable]", sig.Returns)
	}
}

func TestCompute_TypeParamSlots(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	ta := &member.Reference{
		Name: "foo", Kind: member.RefMethod, EnclosingClassID: 0,
		Params:     member.ParameterInfo{TypeParamCount: 2},
		ReturnType: structType(w.a, false),
	}
	s := finalizedSelector(1, "foo", selector.KindMethod, ta)

	sig := compute(t, w, h, s)
	if len(sig.TypeParams) != 2 {
		t.Errorf("got %d type-param slots, want 2", len(sig.TypeParams))
	}
}

func TestCompute_RunsAtMostOnce(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	ta := &member.Reference{Name: "foo", Kind: member.RefMethod, EnclosingClassID: 0,
		ReturnType: structType(w.a, false)}
	s := finalizedSelector(1, "foo", selector.KindMethod, ta)

	synth := NewSynthesizer(w.lattice, h)
	if err := synth.Compute([]*selector.Info{s}); err != nil {
		t.Fatalf("first Compute failed: %v", err)
	}
	first := s.Signature
	if err := synth.Compute([]*selector.Info{s}); err != nil {
		t.Fatalf("second Compute failed: %v", err)
	}
	if s.Signature != first {
		t.Error("second Compute must not replace the signature")
	}
	if err := s.SetSignature(&selector.FunctionType{}); err == nil {
		t.Error("SetSignature after computation must fail")
	}
}

func TestCompute_BeforeRangesFinalizedFails(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a})

	s := &selector.Info{ID: 1, Name: "foo", Kind: selector.KindMethod}
	if err := NewSynthesizer(w.lattice, h).Compute([]*selector.Info{s}); err == nil {
		t.Fatal("Compute before range finalization must fail")
	}
}

// TestCompute_UpperBoundProperty: every target's input type is a subtype of
// the joined slot type (walking the supertype chain reaches it).
func TestCompute_UpperBoundProperty(t *testing.T) {
	w := newWorld()
	h := hierarchyFor(w, map[uint32]*vtype.Struct{0: w.a, 1: w.b})

	inputs := []vtype.ValueType{structType(w.b, false), structType(w.a, false), intType()}
	var targets []*member.Reference
	for i, in := range inputs {
		targets = append(targets, &member.Reference{
			Name: "foo", Kind: member.RefMethod, EnclosingClassID: uint32(i % 2),
			ParamTypes: []vtype.ValueType{in},
			Params:     member.ParameterInfo{PositionalArity: 1},
		})
	}
	s := finalizedSelector(1, "foo", selector.KindMethod, targets...)

	sig := compute(t, w, h, s)
	joined := sig.Params[0].Type
	for _, in := range inputs {
		boxed := in
		if in.Kind.IsPrimitive() {
			boxed = w.lattice.BoxedStructFor(in)
		}
		if !isSupertypeOf(w.lattice, joined, boxed) {
			t.Errorf("joined %v is not a supertype of input %v", joined, boxed)
		}
	}
}

func isSupertypeOf(l *vtype.StaticLattice, sup, sub vtype.ValueType) bool {
	cur := sub
	for {
		if cur.EqualIgnoringNull(sup) {
			return true
		}
		next, ok := l.SuperTypeOf(cur)
		if !ok {
			return false
		}
		cur = next
	}
}
