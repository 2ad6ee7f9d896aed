// Package signature computes each selector's uniform call signature as a
// structural least upper bound over its targets' signatures, with
// special-case rules for equality, tear-offs, setters, and field
// accessors.
package signature

import (
	"github.com/wippyai/vtable/classes"
	"github.com/wippyai/vtable/errors"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/selector"
	"github.com/wippyai/vtable/vtype"
)

// Synthesizer computes and caches FunctionType values for selectors once
// their target ranges are final.
type Synthesizer struct {
	lattice   *vtype.StaticLattice
	hierarchy *classes.Hierarchy
}

// NewSynthesizer creates a Synthesizer over the given lattice and hierarchy
// (the hierarchy supplies each class's instance type for receiver typing).
func NewSynthesizer(lattice *vtype.StaticLattice, hierarchy *classes.Hierarchy) *Synthesizer {
	return &Synthesizer{lattice: lattice, hierarchy: hierarchy}
}

// Compute synthesizes a signature for every selector in infos. Each
// selector's signature is computed at most once; calling Compute twice on
// an already-computed selector is a no-op, not an error, so orchestration
// code can call it idempotently.
func (s *Synthesizer) Compute(infos []*selector.Info) error {
	for _, info := range infos {
		if info.SignatureComputed() {
			continue
		}
		if !info.RangesFinalized() {
			return errors.SignatureTooEarly(info.ID)
		}
		sig, err := s.computeOne(info)
		if err != nil {
			return err
		}
		if err := info.SetSignature(sig); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synthesizer) computeOne(info *selector.Info) (*selector.FunctionType, error) {
	targets := distinctTargets(info.TargetRanges)

	receiver := s.receiverUpperBound(targets)

	sig := &selector.FunctionType{Receiver: receiver}

	for i := 0; i < info.Params.TypeParamCount; i++ {
		sig.TypeParams = append(sig.TypeParams, s.lattice.TopNullable())
	}

	totalSlots := info.Params.PositionalArity
	for _, t := range targets {
		if n := slotCount(t); n > totalSlots {
			totalSlots = n
		}
	}
	// Named slots live at the indices the merged NameIndex map assigns
	// them, which may extend past every individual target's slot count.
	for _, idx := range info.Params.NameIndex {
		if idx+1 > totalSlots {
			totalSlots = idx + 1
		}
	}

	for slot := 0; slot < totalSlots; slot++ {
		ensureBoxed := info.Params.DefaultSentinel[slot]
		inputTypes := collectInputTypes(targets, slot)
		vt := s.perSlotUpperBound(inputTypes, ensureBoxed)
		if info.Name == "==" && isRHSSlot(slot) {
			vt.Nullable = false
		}
		sig.Params = append(sig.Params, selector.ParamSlot{Type: vt, EnsureBoxed: ensureBoxed})
	}

	if info.Kind != selector.KindSetter {
		var returns []vtype.ValueType
		for _, t := range targets {
			if t.Kind == member.RefSetter {
				// A setter target among value-returning siblings has no
				// return of its own; pad with the top nullable type.
				returns = append(returns, s.lattice.TopNullable())
				continue
			}
			returns = append(returns, t.ReturnType)
		}
		ret := s.perSlotUpperBound(returns, false)
		sig.Returns = []vtype.ValueType{ret}
	}

	return sig, nil
}

// distinctTargets returns every distinct Reference among a selector's
// target ranges (multiple ranges may share one reference after adjacent
// ranges failed to coalesce across a gap, so de-duplicate by pointer).
func distinctTargets(ranges []selector.TargetRange) []*member.Reference {
	seen := make(map[*member.Reference]bool)
	var out []*member.Reference
	for _, tr := range ranges {
		if !seen[tr.Target] {
			seen[tr.Target] = true
			out = append(out, tr.Target)
		}
	}
	return out
}

// receiverUpperBound types slot 0 as the non-nullable instance type of each
// target's enclosing class, joined across targets.
func (s *Synthesizer) receiverUpperBound(targets []*member.Reference) vtype.ValueType {
	if len(targets) == 0 {
		top := s.lattice.TopNullable()
		top.Nullable = false
		return top
	}
	var types []vtype.ValueType
	for _, t := range targets {
		rt := s.lattice.TopNullable()
		if c := s.hierarchy.ByID(t.EnclosingClassID); c != nil {
			rt = c.InstanceType
		}
		rt.Nullable = false
		types = append(types, rt)
	}
	vt := s.perSlotUpperBound(types, false)
	vt.Nullable = false
	return vt
}

// slotCount returns how many positional+named slots t occupies: 0 for a
// getter/tear-off, 1 for a setter, else the procedure's declared slot list.
func slotCount(t *member.Reference) int {
	switch t.Kind {
	case member.RefGetter, member.RefTearOff:
		return 0
	case member.RefSetter:
		return 1
	default:
		return len(t.ParamTypes)
	}
}

func isRHSSlot(slot int) bool { return slot == 0 }

// collectInputTypes gathers the input type each target contributes to the
// given slot, skipping targets that don't reach that slot (e.g. a method
// declaring fewer parameters than a sibling, or a getter/tear-off).
func collectInputTypes(targets []*member.Reference, slot int) []vtype.ValueType {
	var out []vtype.ValueType
	for _, t := range targets {
		switch t.Kind {
		case member.RefGetter, member.RefTearOff:
			continue
		case member.RefSetter:
			if slot == 0 {
				out = append(out, t.ParamType)
			}
		default:
			if slot < len(t.ParamTypes) {
				out = append(out, t.ParamTypes[slot])
			}
		}
	}
	return out
}

// perSlotUpperBound joins the types one slot collects across targets.
func (s *Synthesizer) perSlotUpperBound(types []vtype.ValueType, ensureBoxed bool) vtype.ValueType {
	if len(types) == 0 {
		return s.lattice.TopNullable()
	}
	if len(types) == 1 && types[0].Kind.IsPrimitive() && !ensureBoxed {
		return types[0]
	}

	nullable := false
	var acc vtype.ValueType
	first := true
	for _, t := range types {
		nullable = nullable || t.Nullable
		boxed := t
		if t.Kind.IsPrimitive() {
			boxed = s.lattice.BoxedStructFor(t)
		}
		if first {
			acc = boxed
			first = false
			continue
		}
		acc = s.lattice.LeastUpperBound(acc, boxed)
	}
	acc.Nullable = nullable
	return acc
}
