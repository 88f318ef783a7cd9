package registry

import "testing"

type widget struct{ X int }
type gizmo struct{ Y string }

func TestComponentIDStableAndDense(t *testing.T) {
	r := New()
	a := ComponentID[widget](r)
	b := ComponentID[gizmo](r)
	again := ComponentID[widget](r)

	if a == b {
		t.Fatalf("distinct types must get distinct IDs")
	}
	if a != again {
		t.Fatalf("re-registering the same type must return the same ID, got %d and %d", a, again)
	}
	if r.NumComponents() != 2 {
		t.Fatalf("expected 2 registered components, got %d", r.NumComponents())
	}
}

func TestComponentAndResourceNamespacesAreIndependent(t *testing.T) {
	r := New()
	compID := ComponentID[widget](r)
	resID := ResourceID[widget](r)

	if compID != 0 || resID != 0 {
		t.Fatalf("first registration in each namespace should be ID 0, got component=%d resource=%d", compID, resID)
	}
	if r.NumComponents() != 1 || r.NumResources() != 1 {
		t.Fatalf("namespaces must be counted independently")
	}
}

func TestLookupWithoutRegistration(t *testing.T) {
	r := New()
	if _, ok := LookupComponentID[widget](r); ok {
		t.Fatalf("widget should not be registered yet")
	}
	id := ComponentID[widget](r)
	got, ok := LookupComponentID[widget](r)
	if !ok || got != id {
		t.Fatalf("lookup after registration should return %d, got %d (ok=%v)", id, got, ok)
	}
}

func TestTypeRoundTrip(t *testing.T) {
	r := New()
	id := ComponentID[gizmo](r)
	typ, ok := r.ComponentType(id)
	if !ok {
		t.Fatalf("expected type for registered id")
	}
	if typ != typeOf[gizmo]() {
		t.Fatalf("round-tripped type mismatch: got %v", typ)
	}
	if _, ok := r.ComponentType(ID(999)); ok {
		t.Fatalf("unregistered id must not resolve to a type")
	}
}
