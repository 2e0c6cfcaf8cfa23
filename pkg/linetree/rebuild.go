package linetree

import (
	"math/bits"
)

// Rebuild discards every line and builds a tree of minimal height from recs in document
// order. All previously issued handles become stale. An empty slice yields one empty line.
func (tree *Tree) Rebuild(recs []Record) {
	tree.arena.releaseAll()
	tree.root = 0

	if len(recs) == 0 {
		recs = []Record{{Content: 0, Delimiter: None, Bytes: 0, Height: 0}}
	}

	// Nodes on the deepest level of a midpoint-built tree are red, every other node is black;
	// each path to a leaf then crosses the same number of black nodes.
	deepest := bits.Len(uint(len(recs))) - 1
	tree.root = tree.build(recs, 0, deepest)
}

func (tree *Tree) build(recs []Record, depth, deepest int) uint32 {
	if len(recs) == 0 {
		return 0
	}

	mid := len(recs) / 2
	slot := tree.arena.alloc(recs[mid])

	left := tree.build(recs[:mid], depth+1, deepest)
	right := tree.build(recs[mid+1:], depth+1, deepest)

	nodes := tree.arena.nodes
	n := &nodes[slot]
	n.left, n.right = left, right
	n.color = black

	if depth == deepest && depth > 0 {
		n.color = red
	}

	if left != 0 {
		nodes[left].parent = slot
	}

	if right != 0 {
		nodes[right].parent = slot
	}

	tree.recalc(slot)

	return slot
}

// Height returns the number of nodes on the longest path from the root to a leaf.
func (tree *Tree) Height() int {
	return tree.height(tree.root)
}

func (tree *Tree) height(slot uint32) int {
	if slot == 0 {
		return 0
	}

	n := tree.arena.nodes[slot]

	return 1 + max(tree.height(n.left), tree.height(n.right))
}
