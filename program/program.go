// Package program loads a closed-world program description from a YAML
// document: the class hierarchy, member lists, selector metadata, the type
// lattice, and module placement. It is the stand-in for the front end this
// repository does not carry, so the CLI and tests can drive the builder
// from a file instead of hand-built Go literals.
package program

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/vtable/classes"
	"github.com/wippyai/vtable/errors"
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/vtype"
	"github.com/wippyai/vtable/wtable"
)

// Document is the YAML schema root.
type Document struct {
	Types                     TypesDoc      `yaml:"types"`
	Modules                   []ModuleDoc   `yaml:"modules"`
	Selectors                 []SelectorDoc `yaml:"selectors"`
	Classes                   []ClassDoc    `yaml:"classes"`
	PolymorphicSpecialization bool          `yaml:"polymorphic_specialization"`
}

// TypesDoc declares the struct lattice and the source-type table.
type TypesDoc struct {
	Structs []StructDoc          `yaml:"structs"`
	Boxed   map[string]string    `yaml:"boxed"`
	Source  map[string]SourceDoc `yaml:"source"`
}

type StructDoc struct {
	Name  string `yaml:"name"`
	Super string `yaml:"super"`
}

type SourceDoc struct {
	Kind     string `yaml:"kind"` // i32|i64|f32|f64|struct
	Struct   string `yaml:"struct"`
	Nullable bool   `yaml:"nullable"`
}

type ModuleDoc struct {
	Name     string `yaml:"name"`
	Main     bool   `yaml:"main"`
	Deferred bool   `yaml:"deferred"`
}

type SelectorDoc struct {
	ID        uint32 `yaml:"id"`
	CallCount uint32 `yaml:"call_count"`
}

type ClassDoc struct {
	Name         string      `yaml:"name"`
	ID           uint32      `yaml:"id"`
	Super        *uint32     `yaml:"super"`
	Abstract     bool        `yaml:"abstract"`
	WasmBase     bool        `yaml:"wasm_base"`
	InstanceType string      `yaml:"instance_type"`
	Members      []MemberDoc `yaml:"members"`
}

// MemberDoc is either a field (Field != "") or a procedure (Proc != "").
type MemberDoc struct {
	Field string `yaml:"field"`
	Proc  string `yaml:"proc"`

	Module string `yaml:"module"`

	// Field members.
	Type  string `yaml:"type"`
	Final bool   `yaml:"final"`

	// Procedure members.
	Kind       string         `yaml:"kind"` // method|getter|setter
	Params     []string       `yaml:"params"`
	Named      map[string]int `yaml:"named"`
	TypeParams int            `yaml:"type_params"`
	Sentinels  []int          `yaml:"default_sentinels"`
	Return     string         `yaml:"return"`
	Abstract   bool           `yaml:"abstract"`

	// Front-end attribute metadata, mirrored per member.
	GetterSelectorID         *uint32 `yaml:"getter_selector_id"`
	MethodOrSetterSelectorID *uint32 `yaml:"method_or_setter_selector_id"`
	GetterDynamic            bool    `yaml:"getter_called_dynamically"`
	MethodOrSetterDynamic    bool    `yaml:"method_or_setter_called_dynamically"`
	TearOff                  bool    `yaml:"has_tear_off_uses"`
	NonThis                  bool    `yaml:"has_non_this_uses"`
	StaticDispatch           bool    `yaml:"static_dispatch"`
}

// Program is the loaded closed world: everything Build needs plus the
// module resolver Emit needs.
type Program struct {
	Hierarchy *classes.Hierarchy
	Metadata  *classes.Metadata
	Lattice   *vtype.StaticLattice
	Resolver  *StaticResolver
}

// Load reads and assembles a program description from path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindMissingMetadata, err, "read program description")
	}
	return Parse(data)
}

// Parse assembles a program description from YAML bytes.
func Parse(data []byte) (*Program, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindMissingMetadata, err, "parse program description")
	}

	lattice, _, err := buildLattice(doc.Types)
	if err != nil {
		return nil, err
	}

	resolver := NewStaticResolver()
	for _, m := range doc.Modules {
		resolver.AddModule(wtable.ModuleID(m.Name), m.Main, m.Deferred)
	}

	hierarchy, err := buildHierarchy(doc, lattice, resolver)
	if err != nil {
		return nil, err
	}

	meta := &classes.Metadata{PolymorphicSpecialization: doc.PolymorphicSpecialization}
	var maxSel uint32
	for _, s := range doc.Selectors {
		if s.ID > maxSel {
			maxSel = s.ID
		}
	}
	meta.TableSelectors = make([]classes.SelectorMetadata, maxSel+1)
	for _, s := range doc.Selectors {
		meta.TableSelectors[s.ID] = classes.SelectorMetadata{CallCount: s.CallCount}
	}

	return &Program{
		Hierarchy: hierarchy,
		Metadata:  meta,
		Lattice:   lattice,
		Resolver:  resolver,
	}, nil
}

func buildLattice(t TypesDoc) (*vtype.StaticLattice, map[string]*vtype.Struct, error) {
	lattice := vtype.NewStaticLattice()
	structs := make(map[string]*vtype.Struct)

	// Structs are declared super-first, like classes.
	for _, s := range t.Structs {
		var super *vtype.Struct
		if s.Super != "" {
			parent, ok := structs[s.Super]
			if !ok {
				return nil, nil, errors.New(errors.PhaseLoad, errors.KindMissingMetadata).
					Path("types", "structs", s.Name).
					Detail("supertype %q declared after (or never before) its subtype", s.Super).
					Build()
			}
			super = parent
		}
		structs[s.Name] = lattice.RegisterStruct(s.Name, super)
	}

	for prim, name := range t.Boxed {
		kind, err := kindFromString(prim)
		if err != nil {
			return nil, nil, err
		}
		s, ok := structs[name]
		if !ok {
			return nil, nil, errors.New(errors.PhaseLoad, errors.KindMissingMetadata).
				Path("types", "boxed", prim).
				Detail("boxed struct %q not declared", name).
				Build()
		}
		lattice.RegisterBoxedEquivalent(kind, s)
	}

	for name, src := range t.Source {
		vt, err := valueTypeFromDoc(src, structs)
		if err != nil {
			return nil, nil, err
		}
		lattice.RegisterSourceType(name, vt)
	}

	return lattice, structs, nil
}

func kindFromString(s string) (vtype.Kind, error) {
	switch s {
	case "i32":
		return vtype.KindI32, nil
	case "i64":
		return vtype.KindI64, nil
	case "f32":
		return vtype.KindF32, nil
	case "f64":
		return vtype.KindF64, nil
	case "struct":
		return vtype.KindStruct, nil
	default:
		return 0, errors.New(errors.PhaseLoad, errors.KindMissingMetadata).
			Detail("unknown value type kind %q", s).
			Build()
	}
}

func valueTypeFromDoc(d SourceDoc, structs map[string]*vtype.Struct) (vtype.ValueType, error) {
	kind, err := kindFromString(d.Kind)
	if err != nil {
		return vtype.ValueType{}, err
	}
	vt := vtype.ValueType{Kind: kind, Nullable: d.Nullable}
	if kind == vtype.KindStruct {
		s, ok := structs[d.Struct]
		if !ok {
			return vtype.ValueType{}, errors.New(errors.PhaseLoad, errors.KindMissingMetadata).
				Detail("struct type %q not declared", d.Struct).
				Build()
		}
		vt.Struct = s
	}
	return vt, nil
}

func buildHierarchy(doc Document, lattice *vtype.StaticLattice, resolver *StaticResolver) (*classes.Hierarchy, error) {
	var infos []*classes.Info
	var maxConcrete uint32
	var nextRefID uint32

	for _, cd := range doc.Classes {
		info := &classes.Info{
			Name:       cd.Name,
			ID:         cd.ID,
			Super:      cd.Super,
			IsAbstract: cd.Abstract,
			IsWasmBase: cd.WasmBase,
		}
		if cd.InstanceType != "" {
			vt, err := lattice.TranslateType(cd.InstanceType)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseLoad, errors.KindMissingMetadata, err,
					fmt.Sprintf("class %q instance type", cd.Name))
			}
			info.InstanceType = vt
		}
		if !cd.Abstract && cd.ID > maxConcrete {
			maxConcrete = cd.ID
		}

		for _, md := range cd.Members {
			m, err := buildMember(cd, md, lattice, resolver, &nextRefID)
			if err != nil {
				return nil, err
			}
			info.Members = append(info.Members, m)
		}
		infos = append(infos, info)
	}

	return classes.NewHierarchy(infos, maxConcrete), nil
}

func buildMember(cd ClassDoc, md MemberDoc, lattice *vtype.StaticLattice, resolver *StaticResolver, nextRefID *uint32) (*member.Member, error) {
	mod := wtable.ModuleID(md.Module)

	newRef := func(name string, kind member.RefKind, selID uint32) *member.Reference {
		r := &member.Reference{
			Name:             name,
			ID:               *nextRefID,
			SelectorID:       selID,
			EnclosingClassID: cd.ID,
			Kind:             kind,
			Abstract:         md.Abstract,
			StaticDispatch:   md.StaticDispatch,
			HasTearOffUses:   md.TearOff,
			HasNonThisUses:   md.NonThis,
		}
		*nextRefID++
		resolver.AddReference(r, mod)
		return r
	}

	translate := func(name, what string) (vtype.ValueType, error) {
		vt, err := lattice.TranslateType(name)
		if err != nil {
			return vtype.ValueType{}, errors.Wrap(errors.PhaseLoad, errors.KindMissingMetadata, err,
				fmt.Sprintf("%s of member %q in class %q", what, md.Field+md.Proc, cd.Name))
		}
		return vt, nil
	}

	switch {
	case md.Field != "":
		if md.GetterSelectorID == nil {
			return nil, missingAttr(cd.Name, md.Field, "getter_selector_id")
		}
		ft, err := translate(md.Type, "type")
		if err != nil {
			return nil, err
		}
		m := &member.Member{Name: md.Field, EnclosingClassID: cd.ID, Kind: member.MemberField}
		g := newRef(md.Field, member.RefGetter, *md.GetterSelectorID)
		g.ReturnType = ft
		g.DynamicallyCalled = md.GetterDynamic
		m.FieldGetter = g
		if !md.Final {
			if md.MethodOrSetterSelectorID == nil {
				return nil, missingAttr(cd.Name, md.Field, "method_or_setter_selector_id")
			}
			s := newRef(md.Field, member.RefSetter, *md.MethodOrSetterSelectorID)
			s.ParamType = ft
			s.DynamicallyCalled = md.MethodOrSetterDynamic
			m.FieldSetter = s
		}
		return m, nil

	case md.Proc != "":
		m := &member.Member{Name: md.Proc, EnclosingClassID: cd.ID, Kind: member.MemberProcedure}
		var kind member.RefKind
		var selID uint32
		switch md.Kind {
		case "getter":
			if md.GetterSelectorID == nil {
				return nil, missingAttr(cd.Name, md.Proc, "getter_selector_id")
			}
			kind, selID = member.RefGetter, *md.GetterSelectorID
			m.ProcKind = member.ProcGetter
		case "setter":
			if md.MethodOrSetterSelectorID == nil {
				return nil, missingAttr(cd.Name, md.Proc, "method_or_setter_selector_id")
			}
			kind, selID = member.RefSetter, *md.MethodOrSetterSelectorID
			m.ProcKind = member.ProcSetter
		case "method", "":
			if md.MethodOrSetterSelectorID == nil {
				return nil, missingAttr(cd.Name, md.Proc, "method_or_setter_selector_id")
			}
			kind, selID = member.RefMethod, *md.MethodOrSetterSelectorID
			m.ProcKind = member.ProcMethod
		default:
			return nil, errors.New(errors.PhaseLoad, errors.KindMissingMetadata).
				Detail("member %q in class %q has unknown kind %q", md.Proc, cd.Name, md.Kind).
				Build()
		}

		r := newRef(md.Proc, kind, selID)
		r.DynamicallyCalled = md.MethodOrSetterDynamic
		if kind == member.RefGetter {
			r.DynamicallyCalled = md.GetterDynamic
		}
		for _, pname := range md.Params {
			vt, err := translate(pname, "parameter")
			if err != nil {
				return nil, err
			}
			r.ParamTypes = append(r.ParamTypes, vt)
		}
		switch kind {
		case member.RefSetter:
			if len(r.ParamTypes) > 0 {
				r.ParamType = r.ParamTypes[0]
			}
		default:
			if md.Return != "" {
				vt, err := translate(md.Return, "return type")
				if err != nil {
					return nil, err
				}
				r.ReturnType = vt
			}
		}
		r.Params = member.ParameterInfo{
			PositionalArity: len(md.Params),
			TypeParamCount:  md.TypeParams,
		}
		if len(md.Named) > 0 {
			r.Params.NameIndex = make(map[string]int, len(md.Named))
			for n, idx := range md.Named {
				r.Params.NameIndex[n] = idx
			}
		}
		if len(md.Sentinels) > 0 {
			r.Params.DefaultSentinel = make(map[int]bool, len(md.Sentinels))
			for _, slot := range md.Sentinels {
				r.Params.DefaultSentinel[slot] = true
			}
		}
		m.ProcRef = r

		if md.TearOff && kind == member.RefMethod {
			if md.GetterSelectorID == nil {
				return nil, missingAttr(cd.Name, md.Proc, "getter_selector_id")
			}
			to := newRef(md.Proc, member.RefTearOff, *md.GetterSelectorID)
			to.DynamicallyCalled = md.GetterDynamic
			to.Params = member.ParameterInfo{}
			m.TearOffRef = to
		}
		return m, nil

	default:
		return nil, errors.New(errors.PhaseLoad, errors.KindMissingMetadata).
			Detail("member of class %q is neither field nor proc", cd.Name).
			Build()
	}
}

func missingAttr(class, mem, attr string) error {
	return errors.New(errors.PhaseLoad, errors.KindMissingMetadata).
		Path("class", class, "member", mem).
		Detail("missing %s", attr).
		Build()
}
