package ecs

import (
	"unsafe"

	arenapkg "github.com/xentripetal/verseengine/internal/arena"
	"github.com/xentripetal/verseengine/internal/tick"
	"github.com/xentripetal/verseengine/internal/unsafehelpers"
	"github.com/xentripetal/verseengine/registry"
)

// ChunkCapacity is the suggested number of entities per chunk (2^12), the
// default k from the archetype storage model. A chunk that fills up causes
// its archetype to allocate another without disturbing existing chunks or
// the rows already stored in them.
const ChunkCapacity = 1 << 12

// column is one component's storage inside a chunk: a raw byte buffer
// holding ChunkCapacity fixed-stride values plus one added-tick and one
// changed-tick per row. Allocated from the chunk's arena so the whole
// column is freed in one step when the chunk is torn down.
type column struct {
	data    []byte
	added   []tick.Tick
	changed []tick.Tick
	stride  uintptr
}

func newColumn(a *arenapkg.Arena, info componentInfo) *column {
	stride := info.size
	if stride == 0 {
		stride = 1 // zero-sized components still get a one-byte stride so pointer arithmetic stays well defined
	}
	// Round the stride up to its own natural alignment so no value straddles
	// a word boundary when accessed through an unsafe.Pointer cast.
	stride = unsafehelpers.AlignUp(stride, alignFor(stride))
	return &column{
		data:    arenapkg.MakeSlice[byte](a, int(stride)*ChunkCapacity),
		added:   arenapkg.MakeSlice[tick.Tick](a, ChunkCapacity),
		changed: arenapkg.MakeSlice[tick.Tick](a, ChunkCapacity),
		stride:  stride,
	}
}

func alignFor(size uintptr) uintptr {
	switch {
	case size >= 8:
		return 8
	case size >= 4:
		return 4
	case size >= 2:
		return 2
	default:
		return 1
	}
}

// ptrAt returns an unsafe.Pointer to row's value. Callers view it through
// unsafehelpers.ByteSliceFrom/PtrSlice when they need it as a typed slice.
func (c *column) ptrAt(row int) unsafe.Pointer {
	off := uintptr(row) * c.stride
	return unsafe.Pointer(&c.data[off])
}

// swapRemove moves the last occupied row's value into row's slot, mirroring
// the move the chunk's entity/row bookkeeping performs at the same time.
func (c *column) swapRemove(row, lastRow int) {
	if row == lastRow {
		return
	}
	dst := row * int(c.stride)
	src := lastRow * int(c.stride)
	copy(c.data[dst:dst+int(c.stride)], c.data[src:src+int(c.stride)])
	c.added[row] = c.added[lastRow]
	c.changed[row] = c.changed[lastRow]
}

// Chunk is one fixed-capacity slab of entities sharing an archetype. Its
// entities slice and every column are parallel arrays indexed by row.
type Chunk struct {
	arena    *arenapkg.Arena
	entities []Entity
	columns  map[registry.ID]*column
	len      int
}

func newChunk(componentIDs []registry.ID, cr *componentRegistry) *Chunk {
	a := arenapkg.New()
	cols := make(map[registry.ID]*column, len(componentIDs))
	for _, id := range componentIDs {
		cols[id] = newColumn(a, cr.get(id))
	}
	return &Chunk{
		arena:    a,
		entities: arenapkg.MakeSlice[Entity](a, ChunkCapacity),
		columns:  cols,
	}
}

// Full reports whether the chunk has no more rows available.
func (c *Chunk) Full() bool { return c.len >= ChunkCapacity }

// Len returns the number of occupied rows.
func (c *Chunk) Len() int { return c.len }

// push appends e to the chunk and returns its row. Caller must check !Full()
// first.
func (c *Chunk) push(e Entity, now tick.Tick) int {
	row := c.len
	c.entities[row] = e
	for _, col := range c.columns {
		col.added[row] = now
		col.changed[row] = now
	}
	c.len++
	return row
}

// swapRemove removes row by moving the last occupied row into its place
// (standard archetype swap-remove) and returns the Entity that was moved
// into row, or Null if row was already the last occupied row.
func (c *Chunk) swapRemove(row int) Entity {
	last := c.len - 1
	moved := Null
	if row != last {
		c.entities[row] = c.entities[last]
		moved = c.entities[row]
		for _, col := range c.columns {
			col.swapRemove(row, last)
		}
	}
	c.len--
	return moved
}

// writePointer returns a pointer to componentID's value at row, stamping
// the component's changed-tick to now. Used for structural writes (command
// buffer SetComponent) that bypass the query engine's own change tracking.
func (c *Chunk) writePointer(componentID registry.ID, row int, now tick.Tick) unsafe.Pointer {
	col := c.columns[componentID]
	col.changed[row] = now
	return col.ptrAt(row)
}

// readPointer returns a pointer to componentID's value at row without
// touching its changed-tick.
func (c *Chunk) readPointer(componentID registry.ID, row int) unsafe.Pointer {
	return c.columns[componentID].ptrAt(row)
}
