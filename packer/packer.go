// Package packer fits every participating selector's row of
// (class-id, target) pairs into one flat sparse array by choosing per-row
// offsets so defined entries never collide: row-displacement compression,
// first-fit with a moving firstAvailable cursor.
package packer

import (
	"fmt"
	"sort"

	"github.com/wippyai/vtable/errors"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/selector"
	"github.com/wippyai/vtable/vlog"
	"go.uber.org/zap"
)

// Packer accumulates rows into a growable table of optional references.
type Packer struct {
	table          []*member.Reference
	firstAvailable int
}

// New creates an empty packer.
func New() *Packer {
	return &Packer{}
}

// Participates reports whether s gets a slot range in the packed table:
// the noSuchMethod selector always does; otherwise the selector must be
// called, polymorphic, and not entirely statically dispatched.
func Participates(s *selector.Info) bool {
	if s.IsNoSuchMethod {
		// Dynamic-call lowering synthesises noSuchMethod calls post-hoc,
		// so the row stays in the table even at callCount == 0.
		return true
	}
	return s.CallCount > 0 &&
		len(s.TargetRanges) > 1 &&
		!s.IsEntirelyStaticallyDispatched()
}

// rowEntry is one defined slot of a selector's row.
type rowEntry struct {
	ref     *member.Reference
	classID uint32
}

func rowFor(s *selector.Info) []rowEntry {
	var row []rowEntry
	for _, tr := range s.TargetRanges {
		for c := tr.Range.Start; c <= tr.Range.End; c++ {
			row = append(row, rowEntry{classID: c, ref: tr.Target})
		}
	}
	return row
}

// Pack assigns an offset to every participating selector in infos and
// returns the packed table. Non-participating selectors keep a nil Offset.
// Ordering is deterministic for equal inputs: the placement order sorts by
// the weight heuristic with selector id as tie-break.
func (p *Packer) Pack(infos []*selector.Info) ([]*member.Reference, error) {
	participating := make([]*selector.Info, 0, len(infos))
	for _, s := range infos {
		if Participates(s) && len(s.TargetRanges) > 0 {
			participating = append(participating, s)
		}
	}

	// High-fanout selectors first (harder to place); among similar fanouts
	// the frequently-called ones get small offsets for cheaper encodings.
	// The 10 weight constant is inherited and unexplained.
	sort.Slice(participating, func(i, j int) bool {
		wi := participating[i].ConcreteClasses*10 + participating[i].CallCount
		wj := participating[j].ConcreteClasses*10 + participating[j].CallCount
		if wi != wj {
			return wi > wj
		}
		return participating[i].ID < participating[j].ID
	})

	for _, s := range participating {
		row := rowFor(s)
		offset, err := p.place(s.ID, row)
		if err != nil {
			return nil, err
		}
		o := offset
		s.Offset = &o
		vlog.Logger().Debug("packed selector row",
			zap.Uint32("selector", s.ID),
			zap.Int32("offset", offset),
			zap.Int("slots", len(row)))
	}

	return p.table, nil
}

// place finds the first offset at which every slot of row lands on an
// empty or out-of-range index, writes the row, and advances the cursor.
func (p *Packer) place(selectorID uint32, row []rowEntry) (int32, error) {
	if len(row) == 0 {
		return 0, errors.New(errors.PhasePack, errors.KindStructuralAssertion).
			Path("selector", fmt.Sprint(selectorID)).
			Detail("participating selector has an empty row").
			Build()
	}

	firstIndex := int(row[0].classID)
	o := p.firstAvailable - firstIndex

	for {
		if p.fits(o, row) {
			break
		}
		o++
	}

	for _, e := range row {
		idx := o + int(e.classID)
		for idx >= len(p.table) {
			p.table = append(p.table, nil)
		}
		p.table[idx] = e.ref
	}

	for p.firstAvailable < len(p.table) && p.table[p.firstAvailable] != nil {
		p.firstAvailable++
	}

	return int32(o), nil
}

func (p *Packer) fits(o int, row []rowEntry) bool {
	for _, e := range row {
		idx := o + int(e.classID)
		if idx >= len(p.table) {
			// Extending beyond the current table always fits.
			continue
		}
		if p.table[idx] != nil {
			return false
		}
	}
	return true
}
