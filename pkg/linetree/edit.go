package linetree

import (
	"fmt"
	"math"
)

// heightEpsilon is the smallest height change that is applied.
const heightEpsilon = 0x1p-52

// SpliceResult lists the lines touched by Splice.
type SpliceResult struct {
	// Edited lines kept their identity but changed their text extents.
	Edited []Handle
	// Inserted lines are new, in document order.
	Inserted []Handle
	// Removed lines no longer exist; their handles are stale.
	Removed []Handle
}

// InsertAfter inserts a new line right after h.
func (tree *Tree) InsertAfter(h Handle, rec Record) (Handle, error) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return Handle{}, ErrStaleHandle
	}

	return tree.arena.handle(tree.insertAfterSlot(slot, rec)), nil
}

// InsertBefore inserts a new line right before h.
func (tree *Tree) InsertBefore(h Handle, rec Record) (Handle, error) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return Handle{}, ErrStaleHandle
	}

	created := tree.arena.alloc(rec)

	if left := tree.arena.nodes[slot].left; left != 0 {
		tree.attach(created, tree.rightmost(left), false)
	} else {
		tree.attach(created, slot, true)
	}

	return tree.arena.handle(created), nil
}

// InsertLines inserts records in order right after h and returns their handles.
func (tree *Tree) InsertLines(after Handle, recs []Record) ([]Handle, error) {
	slot, ok := tree.arena.resolve(after)
	if !ok {
		return nil, ErrStaleHandle
	}

	handles := make([]Handle, 0, len(recs))

	for _, rec := range recs {
		slot = tree.insertAfterSlot(slot, rec)
		handles = append(handles, tree.arena.handle(slot))
	}

	return handles, nil
}

func (tree *Tree) insertAfterSlot(slot uint32, rec Record) uint32 {
	created := tree.arena.alloc(rec)

	if right := tree.arena.nodes[slot].right; right != 0 {
		tree.attach(created, tree.leftmost(right), true)
	} else {
		tree.attach(created, slot, false)
	}

	return created
}

// RemoveLines deletes count consecutive lines starting at first. The tree never becomes
// empty, so at least one line must remain.
func (tree *Tree) RemoveLines(first Handle, count int) ([]Handle, error) {
	slots, err := tree.run(first, count)
	if err != nil {
		return nil, err
	}

	if count >= tree.LineCount() {
		return nil, fmt.Errorf("removing all %d lines: %w", count, ErrOutOfRange)
	}

	removed := make([]Handle, 0, len(slots))

	for _, slot := range slots {
		removed = append(removed, tree.arena.handle(slot))
		tree.remove(slot)
	}

	return removed, nil
}

// Update replaces the text extents of a line and keeps its height. It reports whether the
// record changed.
func (tree *Tree) Update(h Handle, rec Record) (bool, error) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return false, ErrStaleHandle
	}

	return tree.updateSlot(slot, rec), nil
}

func (tree *Tree) updateSlot(slot uint32, rec Record) bool {
	n := &tree.arena.nodes[slot]
	if n.record.sameText(rec) {
		return false
	}

	rec.Height = n.record.Height
	n.record = rec
	tree.propagate(slot)

	return true
}

// SetHeight sets the height of a line and propagates the change to the content height.
// It returns false when the new height equals the old one within machine epsilon.
func (tree *Tree) SetHeight(h Handle, height float64) (bool, error) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return false, ErrStaleHandle
	}

	n := &tree.arena.nodes[slot]
	if math.Abs(height-n.record.Height) < heightEpsilon {
		return false, nil
	}

	n.record.Height = height
	tree.propagate(slot)

	return true, nil
}

// Splice replaces the count lines starting at first with recs.
//
// The first min(count, len(recs)) lines keep their identity and height and take the new text
// extents; only those whose extents changed are reported as edited. Surplus records become new
// lines after them and surplus old lines are removed. Both count and len(recs) must be positive.
func (tree *Tree) Splice(first Handle, count int, recs []Record) (SpliceResult, error) {
	if len(recs) == 0 {
		return SpliceResult{}, fmt.Errorf("splice without records: %w", ErrOutOfRange)
	}

	slots, err := tree.run(first, count)
	if err != nil {
		return SpliceResult{}, err
	}

	var res SpliceResult

	keep := min(count, len(recs))

	for i := range keep {
		if tree.updateSlot(slots[i], recs[i]) {
			res.Edited = append(res.Edited, tree.arena.handle(slots[i]))
		}
	}

	for _, slot := range slots[keep:] {
		res.Removed = append(res.Removed, tree.arena.handle(slot))
		tree.remove(slot)
	}

	after := slots[keep-1]

	for _, rec := range recs[keep:] {
		after = tree.insertAfterSlot(after, rec)
		res.Inserted = append(res.Inserted, tree.arena.handle(after))
	}

	return res, nil
}

// run collects the slots of count consecutive lines starting at first.
func (tree *Tree) run(first Handle, count int) ([]uint32, error) {
	slot, ok := tree.arena.resolve(first)
	if !ok {
		return nil, ErrStaleHandle
	}

	if count < 1 {
		return nil, fmt.Errorf("line run of %d: %w", count, ErrOutOfRange)
	}

	slots := make([]uint32, 0, count)

	for range count {
		if slot == 0 {
			return nil, fmt.Errorf("line run of %d past the last line: %w", count, ErrOutOfRange)
		}

		slots = append(slots, slot)
		slot = tree.next(slot)
	}

	return slots, nil
}
