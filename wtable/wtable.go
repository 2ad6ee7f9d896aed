// Package wtable materializes the packed dispatch array into one function
// table defined in the main module and imported, not re-defined, into
// every other module.
package wtable

import (
	"github.com/wippyai/vtable/errors"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/vlog"
	"go.uber.org/zap"
)

// RefFuncNull is the element type of the dispatch table: a nullable
// function reference, so packing holes encode as null entries.
const RefFuncNull byte = 0x70

// ModuleID identifies one output module of the compilation.
type ModuleID string

// Limits bounds a table's size.
type Limits struct {
	Max *uint32
	Min uint32
}

// Table is the target-side function table object.
type Table struct {
	Limits   Limits
	ElemType byte
}

// Elem is one element-segment entry: a function object written at a global
// table index. Offsets are in the packed table's global index space; an
// imported view never renumbers.
type Elem struct {
	Func  *FuncObject
	Index uint32
}

// FuncObject is a resolved target function living in some module.
type FuncObject struct {
	Name   string
	Module ModuleID
	Index  uint32
}

// MainTable is the single table definition, owned by the main module.
type MainTable struct {
	Module ModuleID
	Table  Table
	Elems  []Elem
}

// ImportedTable is a per-module imported view of the main table: the same
// table referenced by import, carrying only the elements whose target
// function lives in that module.
type ImportedTable struct {
	Module ModuleID
	Table  Table
	Elems  []Elem
}

// Resolver is the seam to the functions/modules collaborators: where a
// reference's body lives, whether that module is the main one or deferred,
// and the resolved function object if the module is loaded.
type Resolver interface {
	MainModule() ModuleID
	ModuleForReference(ref *member.Reference) ModuleID
	IsMainModule(m ModuleID) bool
	IsDeferred(m ModuleID) bool
	GetExistingFunction(ref *member.Reference) (*FuncObject, bool)
}

// Emitter materializes packed tables.
type Emitter struct {
	resolver Resolver
}

// NewEmitter creates an Emitter over the given resolver.
func NewEmitter(resolver Resolver) *Emitter {
	return &Emitter{resolver: resolver}
}

// Output walks the packed array and produces the defined main table plus
// one lazily-materialized imported view per non-main module that owns at
// least one element. A missing function object is fatal unless the owning
// module is deferred, in which case the slot stays empty: calls can only
// reach an index whose class has been instantiated, which loads the module.
func (e *Emitter) Output(packed []*member.Reference) (*MainTable, map[ModuleID]*ImportedTable, error) {
	capacity := uint32(len(packed))
	main := &MainTable{
		Module: e.resolver.MainModule(),
		Table: Table{
			ElemType: RefFuncNull,
			Limits:   Limits{Min: capacity, Max: &capacity},
		},
	}
	imported := make(map[ModuleID]*ImportedTable)

	for i, ref := range packed {
		if ref == nil {
			continue
		}
		mod := e.resolver.ModuleForReference(ref)

		fn, ok := e.resolver.GetExistingFunction(ref)
		if !ok {
			if e.resolver.IsDeferred(mod) {
				continue
			}
			return nil, nil, errors.UnresolvedTarget(ref.Name)
		}

		el := Elem{Index: uint32(i), Func: fn}
		if e.resolver.IsMainModule(mod) {
			main.Elems = append(main.Elems, el)
			continue
		}
		view, ok := imported[mod]
		if !ok {
			view = &ImportedTable{Module: mod, Table: main.Table}
			imported[mod] = view
		}
		view.Elems = append(view.Elems, el)
	}

	vlog.Logger().Debug("emitted dispatch table",
		zap.Uint32("capacity", capacity),
		zap.Int("main_elems", len(main.Elems)),
		zap.Int("imported_views", len(imported)))

	return main, imported, nil
}
