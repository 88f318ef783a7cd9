package asset

import "sync"

// Events is a two-frame-rotation message queue: messages live in one of two
// frames (current and previous); Update() rotates current into previous and
// starts a fresh current. A Reader created at any point starts at the
// current tail and only ever sees messages written after its creation — it
// carries no cursor into messages that already existed.
//
// Frames are additionally addressed by a monotonic global index
// (currentStart/previousStart) that only ever grows, so a reader's cursor
// (Reader.next) names a message's position in the queue's entire lifetime
// rather than an offset into whichever slice happens to be "current" right
// now. Tracking frame-local lengths instead (as a first cut of this type
// did) re-delivers a message when Drain is called, then Update rotates with
// no intervening Send, then Drain is called again: the frame-local offset
// that used to mean "end of current" silently means the same thing after
// the rotation even though current is now a different, shorter slice.
type Events[T any] struct {
	mu            sync.Mutex
	current       []T
	previous      []T
	currentStart  int // global index of current[0]
	previousStart int // global index of previous[0]
}

// NewEvents returns an empty two-frame queue.
func NewEvents[T any]() *Events[T] { return &Events[T]{} }

// Send appends ev to the current frame.
func (e *Events[T]) Send(ev T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = append(e.current, ev)
}

// Update rotates frames: the previous frame is discarded, current becomes
// previous, and a new empty current frame begins. Call once per tick.
func (e *Events[T]) Update() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.previous = e.current
	e.previousStart = e.currentStart
	e.current = nil
	e.currentStart = e.previousStart + len(e.previous)
}

// Reader is a per-consumer cursor into an Events queue. next is the global
// index (see Events.currentStart) of the next message this reader hasn't
// yet seen; it only ever increases, so a rotation that doesn't move it past
// a frame boundary can neither skip nor repeat a message.
type Reader[T any] struct {
	events *Events[T]
	next   int
}

// NewReader returns a Reader that starts at ev's current tail.
func NewReader[T any](ev *Events[T]) *Reader[T] {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return &Reader[T]{events: ev, next: ev.currentStart + len(ev.current)}
}

// Drain returns every message sent since the last Drain (or since the
// reader's creation), across at most the two retained frames. A reader
// that doesn't drain for more than one Update misses messages from the
// frame that aged out — this is the documented two-frame retention limit,
// not a bug.
func (r *Reader[T]) Drain() []T {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()

	var out []T
	if prevEnd := r.events.previousStart + len(r.events.previous); r.next < prevEnd {
		start := r.next - r.events.previousStart
		if start < 0 {
			start = 0
		}
		out = append(out, r.events.previous[start:]...)
	}
	if currEnd := r.events.currentStart + len(r.events.current); r.next < currEnd {
		start := r.next - r.events.currentStart
		if start < 0 {
			start = 0
		}
		out = append(out, r.events.current[start:]...)
	}
	r.next = r.events.currentStart + len(r.events.current)
	return out
}

// LoadedEvent is published once an asset (and, once all dependencies
// resolve, with its full dependency tree) has loaded.
type LoadedEvent struct {
	ID ID
}

// LoadFailedEvent is the public, per-type load-failure notification,
// queued once the tracker has processed the failure.
type LoadFailedEvent struct {
	ID   ID
	Path string
	Err  error
}
