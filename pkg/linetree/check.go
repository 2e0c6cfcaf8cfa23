package linetree

import (
	"fmt"
)

// Check verifies parent links, the four subtree aggregates, the red-black properties and
// that only the last line lacks a delimiter. Failures wrap ErrInconsistentState.
func (tree *Tree) Check() error {
	nodes := tree.arena.nodes

	if tree.root == 0 {
		return fmt.Errorf("%w: empty tree", ErrInconsistentState)
	}

	if nodes[tree.root].parent != 0 {
		return fmt.Errorf("%w: root has a parent", ErrInconsistentState)
	}

	if nodes[tree.root].color != black {
		return fmt.Errorf("%w: red root", ErrInconsistentState)
	}

	if _, err := tree.checkSubtree(tree.root); err != nil {
		return err
	}

	if live := tree.arena.used(); live != tree.LineCount() {
		return fmt.Errorf("%w: %d live nodes for %d lines", ErrInconsistentState, live, tree.LineCount())
	}

	last := tree.rightmost(tree.root)

	for slot := tree.leftmost(tree.root); slot != 0; slot = tree.next(slot) {
		rec := nodes[slot].record
		if rec.Content < 0 || rec.Bytes < 0 {
			return fmt.Errorf("%w: negative extent in slot %d", ErrInconsistentState, slot)
		}

		if slot != last && rec.Delimiter == None {
			return fmt.Errorf("%w: line in slot %d has no delimiter", ErrInconsistentState, slot)
		}
	}

	return nil
}

// checkSubtree returns the black height of the subtree rooted at slot.
func (tree *Tree) checkSubtree(slot uint32) (int, error) {
	if slot == 0 {
		return 1, nil
	}

	nodes := tree.arena.nodes
	n := nodes[slot]

	if !n.live {
		return 0, fmt.Errorf("%w: freed slot %d is linked", ErrInconsistentState, slot)
	}

	for _, child := range [2]uint32{n.left, n.right} {
		if child == 0 {
			continue
		}

		if nodes[child].parent != slot {
			return 0, fmt.Errorf("%w: slot %d has a wrong parent", ErrInconsistentState, child)
		}

		if n.color == red && nodes[child].color == red {
			return 0, fmt.Errorf("%w: red slot %d has a red child", ErrInconsistentState, slot)
		}
	}

	leftBlack, err := tree.checkSubtree(n.left)
	if err != nil {
		return 0, err
	}

	rightBlack, err := tree.checkSubtree(n.right)
	if err != nil {
		return 0, err
	}

	if leftBlack != rightBlack {
		return 0, fmt.Errorf("%w: black height differs below slot %d", ErrInconsistentState, slot)
	}

	left, right := nodes[n.left].agg, nodes[n.right].agg
	want := aggregate{
		length: n.record.TotalLength() + left.length + right.length,
		bytes:  n.record.Bytes + left.bytes + right.bytes,
		count:  1 + left.count + right.count,
		height: n.record.Height + left.height + right.height,
	}

	if want != n.agg {
		return 0, fmt.Errorf("%w: stale aggregate in slot %d", ErrInconsistentState, slot)
	}

	if n.color == black {
		leftBlack++
	}

	return leftBlack, nil
}
