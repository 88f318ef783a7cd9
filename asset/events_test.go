package asset

import "testing"

func TestReaderOnlySeesMessagesSentAfterCreation(t *testing.T) {
	ev := NewEvents[int]()
	ev.Send(1)

	r := NewReader(ev)
	ev.Send(2)

	got := r.Drain()
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected reader to see only messages sent after creation, got %v", got)
	}
}

func TestReaderSeesAcrossOneRotation(t *testing.T) {
	ev := NewEvents[int]()
	r := NewReader(ev)
	ev.Send(1)
	ev.Update() // 1 moves into the previous frame
	ev.Send(2)  // 2 lives in the new current frame

	got := r.Drain()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected [1 2] across one rotation, got %v", got)
	}
}

func TestReaderMissesMessagesOlderThanTwoFrames(t *testing.T) {
	ev := NewEvents[int]()
	ev.Send(1)
	ev.Update() // 1 -> previous
	ev.Update() // 1 aged out entirely; previous/current both empty

	r := NewReader(ev)
	ev.Send(2)

	got := r.Drain()
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only [2], the two-frame retention limit should have dropped 1, got %v", got)
	}
}

func TestDrainIsIdempotentBetweenSends(t *testing.T) {
	ev := NewEvents[int]()
	r := NewReader(ev)
	ev.Send(1)
	first := r.Drain()
	second := r.Drain()
	if len(first) != 1 || len(second) != 0 {
		t.Fatalf("second drain with nothing new sent should be empty, got %v then %v", first, second)
	}
}

func TestDrainThenRotationThenDrainDoesNotRedeliver(t *testing.T) {
	ev := NewEvents[int]()
	r := NewReader(ev)
	ev.Send(1)
	ev.Send(2)

	first := r.Drain()
	if len(first) != 2 || first[0] != 1 || first[1] != 2 {
		t.Fatalf("expected [1 2] on first drain, got %v", first)
	}

	ev.Update() // no Send in between; 1,2 move into previous untouched

	second := r.Drain()
	if len(second) != 0 {
		t.Fatalf("expected nothing redelivered after a rotation with no new sends, got %v", second)
	}

	ev.Send(3)
	third := r.Drain()
	if len(third) != 1 || third[0] != 3 {
		t.Fatalf("expected only [3] after the rotation, got %v", third)
	}
}
