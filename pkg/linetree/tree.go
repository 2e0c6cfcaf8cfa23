package linetree

import (
	"errors"
)

// Sentinel errors.
var (
	// ErrOutOfRange is returned for offsets, rows or byte offsets outside the document.
	ErrOutOfRange = errors.New("out of range")
	// ErrStaleHandle is returned for handles of lines that no longer exist.
	ErrStaleHandle = errors.New("stale line handle")
	// ErrInconsistentState is returned by Check when an invariant of the tree is broken.
	ErrInconsistentState = errors.New("inconsistent line tree state")
)

const (
	red   = false
	black = true
)

// Tree is an ordered sequence of lines stored as a red-black tree.
//
// Every node carries the sums of length, bytes, height and count over its subtree, so
// absolute positions are never stored and never need shifting after an edit. The tree always
// holds at least one line. Tree is not safe for concurrent use.
type Tree struct {
	arena arena
	root  uint32
}

// New creates a tree holding one empty line of the given height.
func New(height float64) *Tree {
	tree := &Tree{arena: newArena(), root: 0}
	tree.Rebuild([]Record{{Content: 0, Delimiter: None, Bytes: 0, Height: height}})

	return tree
}

// LineCount returns the number of lines.
func (tree *Tree) LineCount() int {
	return tree.arena.nodes[tree.root].agg.count
}

// DocumentLength returns the UTF-16 length of the document.
func (tree *Tree) DocumentLength() int {
	return tree.arena.nodes[tree.root].agg.length
}

// ByteLength returns the UTF-8 length of the document.
func (tree *Tree) ByteLength() int {
	return tree.arena.nodes[tree.root].agg.bytes
}

// ContentHeight returns the sum of all line heights.
func (tree *Tree) ContentHeight() float64 {
	return tree.arena.nodes[tree.root].agg.height
}

// Record returns the record of a line.
func (tree *Tree) Record(h Handle) (Record, error) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return Record{}, ErrStaleHandle
	}

	return tree.arena.nodes[slot].record, nil
}

// Contains reports whether the handle refers to a live line of the tree.
func (tree *Tree) Contains(h Handle) bool {
	_, ok := tree.arena.resolve(h)

	return ok
}

func doAssert(condition bool) {
	if !condition {
		panic("linetree internal assertion failed")
	}
}

func (tree *Tree) colorOf(slot uint32) bool {
	if slot == 0 {
		return black
	}

	return tree.arena.nodes[slot].color
}

func (tree *Tree) isLeftChild(slot uint32) bool {
	nodes := tree.arena.nodes

	return slot == nodes[nodes[slot].parent].left
}

// recalc recomputes the aggregates of one node from its record and children.
func (tree *Tree) recalc(slot uint32) {
	nodes := tree.arena.nodes
	n := &nodes[slot]
	left, right := nodes[n.left].agg, nodes[n.right].agg

	n.agg = aggregate{
		length: n.record.TotalLength() + left.length + right.length,
		bytes:  n.record.Bytes + left.bytes + right.bytes,
		count:  1 + left.count + right.count,
		height: n.record.Height + left.height + right.height,
	}
}

// propagate recomputes the aggregates from slot up to the root.
func (tree *Tree) propagate(slot uint32) {
	for slot != 0 {
		tree.recalc(slot)
		slot = tree.arena.nodes[slot].parent
	}
}

// relink puts repl where old hangs below parent.
func (tree *Tree) relink(parent, old, repl uint32) {
	nodes := tree.arena.nodes

	switch {
	case parent == 0:
		tree.root = repl
	case nodes[parent].left == old:
		nodes[parent].left = repl
	default:
		nodes[parent].right = repl
	}

	if repl != 0 {
		nodes[repl].parent = parent
	}
}

// rotateDirection performs a tree rotation in the specified direction and fixes the
// aggregates of the two nodes that changed subtrees.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree) rotateDirection(pivot uint32, isLeft bool) {
	nodes := tree.arena.nodes

	var child, inner uint32

	if isLeft {
		child = nodes[pivot].right
		inner = nodes[child].left
		nodes[pivot].right = inner
	} else {
		child = nodes[pivot].left
		inner = nodes[child].right
		nodes[pivot].left = inner
	}

	doAssert(child != 0)

	if inner != 0 {
		nodes[inner].parent = pivot
	}

	tree.relink(nodes[pivot].parent, pivot, child)

	if isLeft {
		nodes[child].left = pivot
	} else {
		nodes[child].right = pivot
	}

	nodes[pivot].parent = child

	tree.recalc(pivot)
	tree.recalc(child)
}

func (tree *Tree) rotateLeft(slot uint32) {
	tree.rotateDirection(slot, true)
}

func (tree *Tree) rotateRight(slot uint32) {
	tree.rotateDirection(slot, false)
}

// attach links a freshly allocated slot below parent and rebalances.
func (tree *Tree) attach(slot, parent uint32, asLeft bool) {
	nodes := tree.arena.nodes

	nodes[slot].parent = parent

	switch {
	case parent == 0:
		tree.root = slot
	case asLeft:
		doAssert(nodes[parent].left == 0)
		nodes[parent].left = slot
	default:
		doAssert(nodes[parent].right == 0)
		nodes[parent].right = slot
	}

	tree.propagate(parent)
	tree.insertFixup(slot)
}

func (tree *Tree) insertFixup(slot uint32) {
	nodes := tree.arena.nodes

	for {
		parent := nodes[slot].parent

		// Case 1: the node is the root.
		if parent == 0 {
			nodes[slot].color = black

			return
		}

		// Case 2: the parent is black, so the tree already
		// satisfies the RB properties.
		if nodes[parent].color == black {
			return
		}

		grandparent := nodes[parent].parent

		var uncle uint32
		if tree.isLeftChild(parent) {
			uncle = nodes[grandparent].right
		} else {
			uncle = nodes[grandparent].left
		}

		// Case 3: parent and uncle are both red.
		// Then paint both black and make grandparent red.
		if tree.colorOf(uncle) == red {
			nodes[parent].color = black
			nodes[uncle].color = black
			nodes[grandparent].color = red
			slot = grandparent

			continue
		}

		// Case 4: parent is red, uncle is black, the node is an inner grandchild.
		if !tree.isLeftChild(slot) && tree.isLeftChild(parent) {
			tree.rotateLeft(parent)
			slot = nodes[slot].left

			continue
		}

		if tree.isLeftChild(slot) && !tree.isLeftChild(parent) {
			tree.rotateRight(parent)
			slot = nodes[slot].right

			continue
		}

		// Case 5: parent is red, uncle is black, the node is an outer grandchild.
		nodes[parent].color = black
		nodes[grandparent].color = red

		if tree.isLeftChild(slot) {
			tree.rotateRight(grandparent)
		} else {
			tree.rotateLeft(grandparent)
		}

		return
	}
}

// remove unlinks and frees one node.
func (tree *Tree) remove(slot uint32) {
	nodes := tree.arena.nodes

	if nodes[slot].left != 0 && nodes[slot].right != 0 {
		tree.swapWithPredecessor(slot)
		tree.propagate(slot)
	}

	doAssert(nodes[slot].left == 0 || nodes[slot].right == 0)

	child := nodes[slot].left
	if child == 0 {
		child = nodes[slot].right
	}

	// A node with a single child is black and the child is red: recoloring the child is
	// enough. A black leaf is fixed up while it still occupies its position.
	if child == 0 && nodes[slot].color == black {
		tree.deleteFixup(slot)
	}

	parent := nodes[slot].parent
	tree.relink(parent, slot, child)

	if child != 0 {
		nodes[child].color = black
	}

	tree.propagate(parent)
	tree.arena.release(slot)
}

// swapWithPredecessor exchanges the tree positions of slot and its in-order predecessor.
// Records stay in their slots so handles keep pointing at the same lines.
func (tree *Tree) swapWithPredecessor(slot uint32) {
	nodes := tree.arena.nodes

	pred := nodes[slot].left
	for nodes[pred].right != 0 {
		pred = nodes[pred].right
	}

	n, p := &nodes[slot], &nodes[pred]
	nParent, nLeft, nRight := n.parent, n.left, n.right
	pParent, pLeft := p.parent, p.left

	tree.relink(nParent, slot, pred)

	p.right = nRight
	nodes[nRight].parent = pred

	if pParent == slot {
		// Swap the positions of slot and its own left child.
		p.left = slot
		n.parent = pred
	} else {
		p.left = nLeft
		nodes[nLeft].parent = pred
		nodes[pParent].right = slot
		n.parent = pParent
	}

	n.left = pLeft
	if pLeft != 0 {
		nodes[pLeft].parent = slot
	}

	n.right = 0
	n.color, p.color = p.color, n.color
}

// deleteFixup restores the black height after a black leaf at slot is going to be removed.
//
//nolint:gocognit // mirrored RB-tree cases.
func (tree *Tree) deleteFixup(slot uint32) {
	nodes := tree.arena.nodes
	cur := slot

	for cur != tree.root && tree.colorOf(cur) == black {
		parent := nodes[cur].parent

		if cur == nodes[parent].left {
			sib := nodes[parent].right

			// Case 1: red sibling.
			if tree.colorOf(sib) == red {
				nodes[sib].color = black
				nodes[parent].color = red
				tree.rotateLeft(parent)
				sib = nodes[parent].right
			}

			// Case 2: black sibling with black children.
			if tree.colorOf(nodes[sib].left) == black && tree.colorOf(nodes[sib].right) == black {
				nodes[sib].color = red
				cur = parent

				continue
			}

			// Case 3: the far nephew is black.
			if tree.colorOf(nodes[sib].right) == black {
				nodes[nodes[sib].left].color = black
				nodes[sib].color = red
				tree.rotateRight(sib)
				sib = nodes[parent].right
			}

			// Case 4.
			nodes[sib].color = nodes[parent].color
			nodes[parent].color = black
			nodes[nodes[sib].right].color = black
			tree.rotateLeft(parent)

			cur = tree.root

			continue
		}

		sib := nodes[parent].left

		if tree.colorOf(sib) == red {
			nodes[sib].color = black
			nodes[parent].color = red
			tree.rotateRight(parent)
			sib = nodes[parent].left
		}

		if tree.colorOf(nodes[sib].left) == black && tree.colorOf(nodes[sib].right) == black {
			nodes[sib].color = red
			cur = parent

			continue
		}

		if tree.colorOf(nodes[sib].left) == black {
			nodes[nodes[sib].right].color = black
			nodes[sib].color = red
			tree.rotateLeft(sib)
			sib = nodes[parent].left
		}

		nodes[sib].color = nodes[parent].color
		nodes[parent].color = black
		nodes[nodes[sib].left].color = black
		tree.rotateRight(parent)

		cur = tree.root
	}

	nodes[cur].color = black
}
