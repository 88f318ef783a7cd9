package ecs

import (
	"reflect"
	"unsafe"

	"github.com/xentripetal/verseengine/registry"
)

// componentInfo describes one registered component type: its dense ID, the
// byte size of one value (for column sizing) and the reflect.Type backing
// it, used when a chunk needs to zero or move a value generically.
type componentInfo struct {
	id   registry.ID
	typ  reflect.Type
	size uintptr
}

// componentRegistry extends registry.Registry with the per-type size
// information archetype chunks need to lay out columns, keyed by the same
// dense IDs registry.Registry hands out.
type componentRegistry struct {
	reg   *registry.Registry
	infos []componentInfo // indexed by registry.ID
}

func newComponentRegistry(reg *registry.Registry) *componentRegistry {
	return &componentRegistry{reg: reg}
}

func componentInfoFor[T any](cr *componentRegistry) componentInfo {
	id := registry.ComponentID[T](cr.reg)
	if int(id) < len(cr.infos) && cr.infos[id].typ != nil {
		return cr.infos[id]
	}
	var zero T
	info := componentInfo{id: id, typ: reflect.TypeOf(zero), size: unsafe.Sizeof(zero)}
	cr.set(id, info)
	return info
}

func (cr *componentRegistry) set(id registry.ID, info componentInfo) {
	for int(id) >= len(cr.infos) {
		cr.infos = append(cr.infos, componentInfo{})
	}
	cr.infos[id] = info
}

func (cr *componentRegistry) get(id registry.ID) componentInfo {
	if int(id) < len(cr.infos) {
		return cr.infos[id]
	}
	return componentInfo{}
}
