package linetree

import (
	"math"

	"github.com/Sumatoshi-tech/lineindex/pkg/safeconv"
)

// Handle identifies a line node. Handles stay valid while the line exists; once the line is
// destroyed by an edit or a rebuild every copy of its handle is reported as stale.
type Handle struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether the handle was never assigned.
func (h Handle) IsZero() bool {
	return h.slot == 0
}

type aggregate struct {
	length int
	bytes  int
	count  int
	height float64
}

type node struct {
	record              Record
	agg                 aggregate
	parent, left, right uint32
	gen                 uint32
	color               bool // Black or red.
	live                bool
}

// arena owns the nodes of one tree. Slot zero is the nil sentinel: it is never handed out,
// never written and always carries zero aggregates.
type arena struct {
	nodes []node
	free  []uint32
}

func newArena() arena {
	return arena{nodes: make([]node, 1), free: nil}
}

func (a *arena) alloc(rec Record) uint32 {
	var slot uint32

	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if uint64(len(a.nodes)) >= math.MaxUint32 {
			panic("linetree: the node arena has reached the maximum value for uint32")
		}

		slot = safeconv.MustIntToUint32(len(a.nodes))
		a.nodes = append(a.nodes, node{gen: 1})
	}

	n := &a.nodes[slot]
	n.record = rec
	n.agg = aggregate{length: rec.TotalLength(), bytes: rec.Bytes, count: 1, height: rec.Height}
	n.parent, n.left, n.right = 0, 0, 0
	n.color = red
	n.live = true

	return slot
}

func (a *arena) release(slot uint32) {
	doAssert(slot != 0)
	doAssert(a.nodes[slot].live)

	gen := a.nodes[slot].gen + 1
	if gen == 0 {
		gen = 1
	}

	a.nodes[slot] = node{gen: gen}
	a.free = append(a.free, slot)
}

// releaseAll destroys every live node while keeping generations, so old handles stay stale.
func (a *arena) releaseAll() {
	for slot := len(a.nodes) - 1; slot > 0; slot-- {
		if a.nodes[slot].live {
			a.release(safeconv.MustIntToUint32(slot))
		}
	}
}

func (a *arena) handle(slot uint32) Handle {
	return Handle{slot: slot, gen: a.nodes[slot].gen}
}

func (a *arena) resolve(h Handle) (uint32, bool) {
	if h.slot == 0 || int(h.slot) >= len(a.nodes) {
		return 0, false
	}

	n := &a.nodes[h.slot]
	if !n.live || n.gen != h.gen {
		return 0, false
	}

	return h.slot, true
}

// used returns the number of live nodes.
func (a *arena) used() int {
	return len(a.nodes) - 1 - len(a.free)
}
