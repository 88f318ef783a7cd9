package asset

import "testing"

type texture struct{ W, H int }

func TestStrongHandleEmitsExactlyOneDropEventOnRelease(t *testing.T) {
	p := NewHandleProvider()
	typ := TypeOf[texture]()
	h := p.ReserveHandle(typ, true)

	clone := h.Clone()
	h.Release()

	select {
	case <-p.DropEvents(typ):
		t.Fatalf("drop event fired before the last clone was released")
	default:
	}

	clone.Release()

	select {
	case ev := <-p.DropEvents(typ):
		if ev.ID != h.ID() {
			t.Fatalf("drop event named the wrong id")
		}
	default:
		t.Fatalf("expected exactly one drop event after the last clone released")
	}

	select {
	case <-p.DropEvents(typ):
		t.Fatalf("expected exactly one drop event, got a second")
	default:
	}
}

func TestStrongHandleIsAliveReflectsRefcount(t *testing.T) {
	p := NewHandleProvider()
	typ := TypeOf[texture]()
	h := p.ReserveHandle(typ, true)
	if !h.IsAlive() {
		t.Fatalf("freshly reserved handle should be alive")
	}
	h.Release()
	if h.IsAlive() {
		t.Fatalf("handle should be dead after its only reference released")
	}
}

func TestUntypedHandleRoundTripsID(t *testing.T) {
	p := NewHandleProvider()
	typ := TypeOf[texture]()
	h := p.ReserveHandle(typ, true)
	typed := StrongOf[texture](h)
	untyped := typed.Untyped()
	if untyped.ID() != typed.ID() {
		t.Fatalf("untyped handle's id diverged from the typed handle's id")
	}
	if untyped.Type() != typ {
		t.Fatalf("untyped handle lost its type tag")
	}
	h.Release()
}
