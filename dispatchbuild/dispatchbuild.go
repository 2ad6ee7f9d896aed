// Package dispatchbuild wires the registry, range builder, signature
// synthesizer, and packer together in the required phase order and returns
// an immutable DispatchTable snapshot.
package dispatchbuild

import (
	"context"
	"fmt"

	"github.com/wippyai/vtable/classes"
	"github.com/wippyai/vtable/errors"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/packer"
	"github.com/wippyai/vtable/rangebuild"
	"github.com/wippyai/vtable/selector"
	"github.com/wippyai/vtable/signature"
	"github.com/wippyai/vtable/vlog"
	"github.com/wippyai/vtable/vtype"
	"github.com/wippyai/vtable/wtable"
	"go.uber.org/zap"
)

type phase int

const (
	phaseInit phase = iota
	phaseBuilt
)

// Builder consumes a hierarchy plus front-end metadata and produces the
// DispatchTable. A Builder is single-use: Build may run only once.
type Builder struct {
	hierarchy *classes.Hierarchy
	metadata  *classes.Metadata
	lattice   *vtype.StaticLattice
	registry  *selector.Registry
	phase     phase
}

// NewBuilder creates a Builder over the given closed-world inputs. The
// inputs are treated as immutable for the duration of Build.
func NewBuilder(hierarchy *classes.Hierarchy, metadata *classes.Metadata, lattice *vtype.StaticLattice) *Builder {
	return &Builder{
		hierarchy: hierarchy,
		metadata:  metadata,
		lattice:   lattice,
		registry:  selector.NewRegistry(),
	}
}

// DispatchTable is the immutable result snapshot. Downstream phases must
// not observe selectors before Build returns it.
type DispatchTable struct {
	registry *selector.Registry
	// Table is the packed array; nil entries are holes.
	Table []*member.Reference
	// Main and Imported are set by Emit.
	Main     *wtable.MainTable
	Imported map[wtable.ModuleID]*wtable.ImportedTable
}

// SelectorByID returns the selector with the given id, or nil.
func (dt *DispatchTable) SelectorByID(id uint32) *selector.Info {
	return dt.registry.ByID(id)
}

// Selectors returns every selector sorted by id.
func (dt *DispatchTable) Selectors() []*selector.Info {
	return dt.registry.All()
}

// SelectorForTarget is the lookup-only registry variant, still available
// on the finished table for code generation of static calls.
func (dt *DispatchTable) SelectorForTarget(r *member.Reference) (*selector.Info, error) {
	return dt.registry.SelectorForTarget(r)
}

// DynamicGetterSelectors enumerates getter selectors reachable dynamically
// under name.
func (dt *DispatchTable) DynamicGetterSelectors(name string) []*selector.Info {
	return dt.registry.DynamicGetterSelectors(name)
}

// DynamicSetterSelectors enumerates setter selectors reachable dynamically
// under name.
func (dt *DispatchTable) DynamicSetterSelectors(name string) []*selector.Info {
	return dt.registry.DynamicSetterSelectors(name)
}

// DynamicMethodSelectors enumerates method selectors reachable dynamically
// under name.
func (dt *DispatchTable) DynamicMethodSelectors(name string) []*selector.Info {
	return dt.registry.DynamicMethodSelectors(name)
}

// Build runs the phase sequence: register+range (one hierarchy walk),
// metadata application, signature synthesis, packing. The ctx parameter is
// for call-site uniformity with the rest of the toolchain; the build is
// single-threaded and non-suspending.
func (b *Builder) Build(ctx context.Context) (*DispatchTable, error) {
	if b.phase != phaseInit {
		return nil, errors.New(errors.PhaseBuild, errors.KindStructuralAssertion).
			Detail("Build already ran on this Builder").
			Build()
	}
	b.phase = phaseBuilt

	rb := rangebuild.NewBuilder(b.hierarchy, b.registry, b.metadata.PolymorphicSpecialization)
	if err := rb.Build(); err != nil {
		return nil, err
	}

	if err := b.applyMetadata(); err != nil {
		return nil, err
	}

	synth := signature.NewSynthesizer(b.lattice, b.hierarchy)
	if err := synth.Compute(b.registry.All()); err != nil {
		return nil, err
	}

	packed, err := packer.New().Pack(b.registry.All())
	if err != nil {
		return nil, err
	}

	vlog.Logger().Info("dispatch table built",
		zap.Int("selectors", len(b.registry.All())),
		zap.Int("table_len", len(packed)))

	return &DispatchTable{registry: b.registry, Table: packed}, nil
}

// applyMetadata copies per-selector call counts out of the front-end table
// and marks the root class's noSuchMethod selector.
func (b *Builder) applyMetadata() error {
	for _, info := range b.registry.All() {
		count, ok := b.metadata.CallCountFor(info.ID)
		if !ok {
			return errors.MissingMetadataFor(errors.PhaseBuild, "selector",
				fmt.Sprintf("%s (id %d)", info.Name, info.ID))
		}
		info.CallCount = count
	}

	root := b.hierarchy.Root()
	if root == nil {
		return nil
	}
	for _, m := range root.Members {
		if m.Name != classes.NoSuchMethodName {
			continue
		}
		for _, r := range m.References() {
			if r.Kind != member.RefMethod {
				continue
			}
			if info := b.registry.ByID(r.SelectorID); info != nil {
				info.IsNoSuchMethod = true
			}
		}
	}
	return nil
}

// Emit materializes the packed table through the resolver: one defined
// table in the main module, imported views elsewhere. Must run after Build
// and after every function body has been registered with the functions
// collaborator, so GetExistingFunction resolves.
func (dt *DispatchTable) Emit(resolver wtable.Resolver) error {
	main, imported, err := wtable.NewEmitter(resolver).Output(dt.Table)
	if err != nil {
		return err
	}
	dt.Main = main
	dt.Imported = imported
	return nil
}
