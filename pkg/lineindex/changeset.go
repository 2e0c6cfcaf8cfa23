package lineindex

import (
	"slices"

	"github.com/Sumatoshi-tech/lineindex/pkg/linetree"
)

// LineChangeSet names the lines an edit touched. Collaborators re-typeset and re-highlight
// exactly these lines.
type LineChangeSet struct {
	// Inserted lines are new, in document order.
	Inserted []linetree.Handle
	// Removed lines were destroyed; their handles are stale.
	Removed []linetree.Handle
	// Edited lines survived the edit with different text.
	Edited []linetree.Handle
}

// IsEmpty reports whether no line changed.
func (c *LineChangeSet) IsEmpty() bool {
	return len(c.Inserted) == 0 && len(c.Removed) == 0 && len(c.Edited) == 0
}

// MarkInserted records a new line.
func (c *LineChangeSet) MarkInserted(h linetree.Handle) {
	c.Removed = without(c.Removed, h)
	c.Edited = without(c.Edited, h)

	if !slices.Contains(c.Inserted, h) {
		c.Inserted = append(c.Inserted, h)
	}
}

// MarkRemoved records a destroyed line.
func (c *LineChangeSet) MarkRemoved(h linetree.Handle) {
	c.Inserted = without(c.Inserted, h)
	c.Edited = without(c.Edited, h)

	if !slices.Contains(c.Removed, h) {
		c.Removed = append(c.Removed, h)
	}
}

// MarkEdited records a changed line unless it is already known as inserted or removed.
func (c *LineChangeSet) MarkEdited(h linetree.Handle) {
	if slices.Contains(c.Inserted, h) || slices.Contains(c.Removed, h) || slices.Contains(c.Edited, h) {
		return
	}

	c.Edited = append(c.Edited, h)
}

// Union merges other into c, applying the same rules as the Mark methods.
func (c *LineChangeSet) Union(other LineChangeSet) {
	for _, h := range other.Inserted {
		c.MarkInserted(h)
	}

	for _, h := range other.Removed {
		c.MarkRemoved(h)
	}

	for _, h := range other.Edited {
		c.MarkEdited(h)
	}
}

func without(hs []linetree.Handle, h linetree.Handle) []linetree.Handle {
	return slices.DeleteFunc(hs, func(x linetree.Handle) bool { return x == h })
}

func changeSetOf(res linetree.SpliceResult) LineChangeSet {
	var c LineChangeSet

	for _, h := range res.Inserted {
		c.MarkInserted(h)
	}

	for _, h := range res.Removed {
		c.MarkRemoved(h)
	}

	for _, h := range res.Edited {
		c.MarkEdited(h)
	}

	return c
}
