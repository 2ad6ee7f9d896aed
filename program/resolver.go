package program

import (
	"github.com/wippyai/vtable/member"
	"github.com/wippyai/vtable/wtable"
)

// StaticResolver is the in-memory modules/functions collaborator backing
// wtable.Resolver: every reference loaded from the program description is
// assigned a function object in its declared module, numbered in load
// order per module.
type StaticResolver struct {
	modules   map[wtable.ModuleID]moduleInfo
	placement map[*member.Reference]wtable.ModuleID
	functions map[*member.Reference]*wtable.FuncObject
	byModule  map[wtable.ModuleID]uint32
	main      wtable.ModuleID
}

type moduleInfo struct {
	deferred bool
	main     bool
}

// NewStaticResolver creates an empty resolver with a default main module,
// replaced by the first module registered as main.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		modules:   make(map[wtable.ModuleID]moduleInfo),
		placement: make(map[*member.Reference]wtable.ModuleID),
		functions: make(map[*member.Reference]*wtable.FuncObject),
		byModule:  make(map[wtable.ModuleID]uint32),
		main:      "main",
	}
}

// AddModule registers a module. The first module flagged main becomes the
// main module.
func (r *StaticResolver) AddModule(id wtable.ModuleID, main, deferred bool) {
	if main {
		if cur, ok := r.modules[r.main]; !ok || !cur.main {
			r.main = id
		}
	}
	r.modules[id] = moduleInfo{main: main, deferred: deferred}
}

// AddReference binds ref to a fresh function object in module. An empty
// module id places the function in the main module.
func (r *StaticResolver) AddReference(ref *member.Reference, module wtable.ModuleID) {
	if module == "" {
		module = r.main
	}
	r.placement[ref] = module
	idx := r.byModule[module]
	r.byModule[module] = idx + 1
	r.functions[ref] = &wtable.FuncObject{
		Name:   ref.Name,
		Module: module,
		Index:  idx,
	}
}

// DropFunction forgets ref's function object, simulating a body that was
// never registered, so emission meets an unresolved target.
func (r *StaticResolver) DropFunction(ref *member.Reference) {
	delete(r.functions, ref)
}

func (r *StaticResolver) MainModule() wtable.ModuleID { return r.main }

func (r *StaticResolver) ModuleForReference(ref *member.Reference) wtable.ModuleID {
	if m, ok := r.placement[ref]; ok {
		return m
	}
	return r.main
}

func (r *StaticResolver) IsMainModule(m wtable.ModuleID) bool { return m == r.main }

func (r *StaticResolver) IsDeferred(m wtable.ModuleID) bool {
	return r.modules[m].deferred
}

func (r *StaticResolver) GetExistingFunction(ref *member.Reference) (*wtable.FuncObject, bool) {
	fn, ok := r.functions[ref]
	return fn, ok
}
