package linetree

import (
	"iter"
)

// Iterator walks lines in document order. It is invalidated by any structural edit.
type Iterator struct {
	tree *Tree
	slot uint32
}

// Begin returns an iterator at the first line.
func (tree *Tree) Begin() Iterator {
	return Iterator{tree: tree, slot: tree.leftmost(tree.root)}
}

// At returns an iterator at h, or a limit iterator if h is stale.
func (tree *Tree) At(h Handle) Iterator {
	slot, _ := tree.arena.resolve(h)

	return Iterator{tree: tree, slot: slot}
}

// Limit reports whether the iterator moved past either end.
func (it Iterator) Limit() bool {
	return it.slot == 0
}

// Handle returns the handle of the current line.
func (it Iterator) Handle() Handle {
	return it.tree.arena.handle(it.slot)
}

// Record returns the record of the current line.
func (it Iterator) Record() Record {
	return it.tree.arena.nodes[it.slot].record
}

// Next returns the iterator of the following line.
func (it Iterator) Next() Iterator {
	return Iterator{tree: it.tree, slot: it.tree.next(it.slot)}
}

// Prev returns the iterator of the preceding line.
func (it Iterator) Prev() Iterator {
	return Iterator{tree: it.tree, slot: it.tree.prev(it.slot)}
}

// All yields every line in document order.
func (tree *Tree) All() iter.Seq2[Handle, Record] {
	return func(yield func(Handle, Record) bool) {
		for it := tree.Begin(); !it.Limit(); it = it.Next() {
			if !yield(it.Handle(), it.Record()) {
				return
			}
		}
	}
}
