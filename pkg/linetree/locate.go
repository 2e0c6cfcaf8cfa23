package linetree

// Position is the computed location of the start of a line.
type Position struct {
	// Row is the zero-based line number.
	Row int
	// Offset is the UTF-16 offset of the first code unit.
	Offset int
	// Byte is the UTF-8 offset of the first byte.
	Byte int
	// Y is the sum of the heights of all preceding lines.
	Y float64
}

func (p *Position) skip(agg aggregate) {
	p.Row += agg.count
	p.Offset += agg.length
	p.Byte += agg.bytes
	p.Y += agg.height
}

func (p *Position) skipRecord(rec Record) {
	p.Row++
	p.Offset += rec.TotalLength()
	p.Byte += rec.Bytes
	p.Y += rec.Height
}

// LocateOffset returns the line containing the UTF-16 offset. An offset equal to the document
// length addresses the end of the last line.
func (tree *Tree) LocateOffset(offset int) (Handle, Position, error) {
	total := tree.DocumentLength()
	if offset < 0 || offset > total {
		return Handle{}, Position{}, ErrOutOfRange
	}

	if offset == total {
		return tree.lastWithPosition()
	}

	slot, pos := tree.descend(func(agg aggregate) int { return agg.length }, offset)

	return tree.arena.handle(slot), pos, nil
}

// LocateByte returns the line containing the UTF-8 byte offset.
func (tree *Tree) LocateByte(byteOffset int) (Handle, Position, error) {
	total := tree.ByteLength()
	if byteOffset < 0 || byteOffset > total {
		return Handle{}, Position{}, ErrOutOfRange
	}

	if byteOffset == total {
		return tree.lastWithPosition()
	}

	slot, pos := tree.descend(func(agg aggregate) int { return agg.bytes }, byteOffset)

	return tree.arena.handle(slot), pos, nil
}

// LocateRow returns the line at the zero-based row.
func (tree *Tree) LocateRow(row int) (Handle, Position, error) {
	if row < 0 || row >= tree.LineCount() {
		return Handle{}, Position{}, ErrOutOfRange
	}

	slot, pos := tree.descend(func(agg aggregate) int { return agg.count }, row)

	return tree.arena.handle(slot), pos, nil
}

// LocateY returns the first line whose vertical span contains y. Positions above the document
// resolve to the first line and positions at or below the content height to the last one.
func (tree *Tree) LocateY(y float64) (Handle, Position) {
	if y < 0 {
		return tree.First(), Position{}
	}

	if y >= tree.ContentHeight() {
		h, pos, _ := tree.lastWithPosition()

		return h, pos
	}

	nodes := tree.arena.nodes
	slot := tree.root

	var pos Position

	for {
		n := &nodes[slot]
		left := nodes[n.left].agg

		if n.left != 0 && y < pos.Y+left.height {
			slot = n.left

			continue
		}

		if y < pos.Y+left.height+n.record.Height || n.right == 0 {
			pos.skip(left)

			return tree.arena.handle(slot), pos
		}

		pos.skip(left)
		pos.skipRecord(n.record)
		slot = n.right
	}
}

// metric selects the aggregate a descent is ordered by.
type metric func(agg aggregate) int

// descend finds the node whose span of the measured metric contains target. The caller
// guarantees 0 <= target < total.
func (tree *Tree) descend(weight metric, target int) (uint32, Position) {
	nodes := tree.arena.nodes
	slot := tree.root

	var pos Position

	for {
		n := &nodes[slot]
		leftWeight := weight(nodes[n.left].agg)
		own := weight(n.agg) - leftWeight - weight(nodes[n.right].agg)

		if target < leftWeight {
			slot = n.left

			continue
		}

		pos.skip(nodes[n.left].agg)
		target -= leftWeight

		if target < own || n.right == 0 {
			return slot, pos
		}

		pos.skipRecord(n.record)
		target -= own
		slot = n.right
	}
}

func (tree *Tree) lastWithPosition() (Handle, Position, error) {
	h := tree.Last()
	pos, err := tree.Position(h)

	return h, pos, err
}

// Position computes the start position of a line by walking to the root.
func (tree *Tree) Position(h Handle) (Position, error) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return Position{}, ErrStaleHandle
	}

	nodes := tree.arena.nodes

	var pos Position

	pos.skip(nodes[nodes[slot].left].agg)

	for cur := slot; nodes[cur].parent != 0; cur = nodes[cur].parent {
		parent := nodes[cur].parent
		if nodes[parent].right == cur {
			pos.skip(nodes[nodes[parent].left].agg)
			pos.skipRecord(nodes[parent].record)
		}
	}

	return pos, nil
}

// Row returns the zero-based row of a line.
func (tree *Tree) Row(h Handle) (int, error) {
	pos, err := tree.Position(h)

	return pos.Row, err
}

// StartOffset returns the UTF-16 offset of the first code unit of a line.
func (tree *Tree) StartOffset(h Handle) (int, error) {
	pos, err := tree.Position(h)

	return pos.Offset, err
}

// StartByte returns the UTF-8 offset of the first byte of a line.
func (tree *Tree) StartByte(h Handle) (int, error) {
	pos, err := tree.Position(h)

	return pos.Byte, err
}

// YPosition returns the vertical position of the top of a line.
func (tree *Tree) YPosition(h Handle) (float64, error) {
	pos, err := tree.Position(h)

	return pos.Y, err
}

// First returns the first line.
func (tree *Tree) First() Handle {
	return tree.arena.handle(tree.leftmost(tree.root))
}

// Last returns the last line.
func (tree *Tree) Last() Handle {
	return tree.arena.handle(tree.rightmost(tree.root))
}

// Next returns the line after h. ok is false for the last line or a stale handle.
func (tree *Tree) Next(h Handle) (Handle, bool) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return Handle{}, false
	}

	next := tree.next(slot)
	if next == 0 {
		return Handle{}, false
	}

	return tree.arena.handle(next), true
}

// Prev returns the line before h. ok is false for the first line or a stale handle.
func (tree *Tree) Prev(h Handle) (Handle, bool) {
	slot, ok := tree.arena.resolve(h)
	if !ok {
		return Handle{}, false
	}

	prev := tree.prev(slot)
	if prev == 0 {
		return Handle{}, false
	}

	return tree.arena.handle(prev), true
}

func (tree *Tree) leftmost(slot uint32) uint32 {
	nodes := tree.arena.nodes
	for nodes[slot].left != 0 {
		slot = nodes[slot].left
	}

	return slot
}

func (tree *Tree) rightmost(slot uint32) uint32 {
	nodes := tree.arena.nodes
	for nodes[slot].right != 0 {
		slot = nodes[slot].right
	}

	return slot
}

// Return the minimum node that's larger than slot, or zero.
func (tree *Tree) next(slot uint32) uint32 {
	nodes := tree.arena.nodes

	if nodes[slot].right != 0 {
		return tree.leftmost(nodes[slot].right)
	}

	for nodes[slot].parent != 0 {
		parent := nodes[slot].parent
		if nodes[parent].left == slot {
			return parent
		}

		slot = parent
	}

	return 0
}

// Return the maximum node that's smaller than slot, or zero.
func (tree *Tree) prev(slot uint32) uint32 {
	nodes := tree.arena.nodes

	if nodes[slot].left != 0 {
		return tree.rightmost(nodes[slot].left)
	}

	for nodes[slot].parent != 0 {
		parent := nodes[slot].parent
		if nodes[parent].right == slot {
			return parent
		}

		slot = parent
	}

	return 0
}
