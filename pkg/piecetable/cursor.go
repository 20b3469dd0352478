package piecetable

import (
	"bytes"
	"unicode/utf8"
)

// ancestorFrame is one level of a Cursor's root-to-leaf path: the inner
// node at that level and the index of the child the cursor currently
// sits under. Cursor keeps the whole path (bounded by Table.Depth,
// itself bounded by log_B(N)) rather than a fixed-depth window, so there
// is never a need to re-descend from the root to repair it.
type ancestorFrame struct {
	node *innerNode
	idx  int
}

// Cursor is a position-tracking read handle over a Table: byte,
// codepoint and line navigation with an O(1) amortized path for moving
// within or between adjacent leaves. A Cursor is invalidated by any
// mutation (Insert, Delete) or Close of the Table it was seeded from;
// using it afterward is undefined, matching the Table's copy-on-write
// discipline (the cursor's cached leaf may have been replaced, or
// freed, out from under it).
type Cursor struct {
	t    *Table
	path []ancestorFrame
	leaf *leafNode

	slotIdx int
	slotOff int
	pos     int
}

// NewCursor returns a Cursor seeded at byte position pos, which must
// satisfy 0 <= pos <= t.Size() (pos == Size() is the sole allowed
// off-end state: chunk/byte/codepoint reads from it report end-of-table
// rather than an error).
func NewCursor(t *Table, pos int) (*Cursor, error) {
	c := &Cursor{t: t}
	if err := c.Seek(pos); err != nil {
		return nil, err
	}
	return c, nil
}

// Seek repositions the cursor at byte position pos via a fresh
// root-to-leaf descent, discarding any cached path.
func (c *Cursor) Seek(pos int) error {
	if err := c.t.checkOpen(); err != nil {
		return err
	}
	if pos < 0 || pos > c.t.Size() {
		return ErrOutOfRange
	}

	var path []ancestorFrame
	n := c.t.root
	depth := c.t.depth
	for depth > 0 {
		in := n.(*innerNode)
		idx, off := in.locateForward(pos)
		path = append(path, ancestorFrame{node: in, idx: idx})
		n = in.entries[idx].child
		pos = off
		depth--
	}
	leaf := n.(*leafNode)
	slotIdx, slotOff := leaf.locateForward(pos)

	c.path = path
	c.leaf = leaf
	c.slotIdx = slotIdx
	c.slotOff = slotOff
	// pos was rewritten into a subtree-relative offset by the descent
	// above; recompute the absolute position from the path instead.
	c.pos = absolutePos(path, leaf, slotIdx, slotOff)
	return nil
}

// absolutePos reconstructs a cursor's byte position from its path.
func absolutePos(path []ancestorFrame, leaf *leafNode, slotIdx, slotOff int) int {
	pos := 0
	for _, f := range path {
		for i := 0; i < f.idx; i++ {
			pos += f.node.entries[i].span
		}
	}
	for i := 0; i < slotIdx; i++ {
		pos += leaf.slots[i].length
	}
	pos += slotOff
	return pos
}

// Pos returns the cursor's current absolute byte position.
func (c *Cursor) Pos() int { return c.pos }

// chunkBytes returns the current slot's full byte range, or false if the
// table (and therefore the cursor's leaf) is empty.
func (c *Cursor) chunkBytes() ([]byte, bool) {
	if c.leaf == nil || len(c.leaf.slots) == 0 {
		return nil, false
	}
	return c.leaf.slots[c.slotIdx].bytes(), true
}

// Chunk returns the byte range of the slot the cursor currently sits
// within. It reports false only when the table is entirely empty.
func (c *Cursor) Chunk() ([]byte, bool) {
	return c.chunkBytes()
}

// rollForward normalizes the cursor so that slotOff < len(currentChunk)
// whenever a later chunk exists, so that Byte/Chunk never observe an
// "end of slot i" representation of a position that could equally be
// represented as "start of slot i+1" — the one exception is the true
// end of the table, the cursor's sole allowed off-end state.
func (c *Cursor) rollForward() {
	for {
		chunk, ok := c.chunkBytes()
		if !ok || c.slotOff < len(chunk) {
			return
		}
		if !c.stepToNextChunk() {
			return
		}
	}
}

// stepToNextChunk advances to the next live slot, within this leaf or,
// failing that, the next leaf via the ancestor path. It does not touch
// pos; callers that move the logical position account for it
// separately.
func (c *Cursor) stepToNextChunk() bool {
	if c.leaf == nil || len(c.leaf.slots) == 0 {
		return false
	}
	if c.slotIdx+1 < len(c.leaf.slots) {
		c.slotIdx++
		c.slotOff = 0
		return true
	}
	if !c.advanceLeaf() {
		return false
	}
	c.slotIdx = 0
	c.slotOff = 0
	return true
}

// stepToPrevChunk retreats to the previous live slot, landing at its
// end (slotOff == its length); callers normalize from there. It does
// not touch pos.
func (c *Cursor) stepToPrevChunk() bool {
	if c.leaf == nil || len(c.leaf.slots) == 0 {
		return false
	}
	if c.slotIdx > 0 {
		c.slotIdx--
		c.slotOff = len(c.leaf.slots[c.slotIdx].bytes())
		return true
	}
	if !c.retreatLeaf() {
		return false
	}
	c.slotIdx = len(c.leaf.slots) - 1
	c.slotOff = len(c.leaf.slots[c.slotIdx].bytes())
	return true
}

// advanceLeaf moves the cursor's leaf (and path) to the next leaf in
// the tree's in-order traversal, returning false if the current leaf is
// the last one.
func (c *Cursor) advanceLeaf() bool {
	i := len(c.path) - 1
	for i >= 0 && c.path[i].idx+1 >= len(c.path[i].node.entries) {
		i--
	}
	if i < 0 {
		return false
	}
	c.path[i].idx++
	c.path = c.path[:i+1]

	var n node = c.path[i].node.entries[c.path[i].idx].child
	for {
		if ln, ok := n.(*leafNode); ok {
			c.leaf = ln
			return true
		}
		in := n.(*innerNode)
		c.path = append(c.path, ancestorFrame{node: in, idx: 0})
		n = in.entries[0].child
	}
}

// retreatLeaf is advanceLeaf's mirror: the previous leaf in traversal
// order, descending the rightmost spine of the sibling subtree.
func (c *Cursor) retreatLeaf() bool {
	i := len(c.path) - 1
	for i >= 0 && c.path[i].idx == 0 {
		i--
	}
	if i < 0 {
		return false
	}
	c.path[i].idx--
	c.path = c.path[:i+1]

	var n node = c.path[i].node.entries[c.path[i].idx].child
	for {
		if ln, ok := n.(*leafNode); ok {
			c.leaf = ln
			return true
		}
		in := n.(*innerNode)
		lastIdx := len(in.entries) - 1
		c.path = append(c.path, ancestorFrame{node: in, idx: lastIdx})
		n = in.entries[lastIdx].child
	}
}

// NextChunk advances the cursor to the start of the next live slot,
// returning false (and positioning the cursor at the off-end sentinel
// of the current, last, slot) if none exists.
func (c *Cursor) NextChunk() bool {
	chunk, ok := c.chunkBytes()
	if !ok {
		return false
	}
	remaining := len(chunk) - c.slotOff
	if !c.stepToNextChunk() {
		c.slotOff = len(chunk)
		c.pos += remaining
		return false
	}
	c.pos += remaining
	return true
}

// PrevChunk retreats the cursor to the start of the previous live slot,
// returning false (leaving the cursor unchanged) if none exists. From the
// table's end, the previous slot is the last one.
func (c *Cursor) PrevChunk() bool {
	back := c.slotOff
	if chunk, ok := c.chunkBytes(); ok && back > 0 && back == len(chunk) {
		c.slotOff = 0
		c.pos -= back
		return true
	}
	if !c.stepToPrevChunk() {
		return false
	}
	chunk, _ := c.chunkBytes()
	c.pos -= back + len(chunk)
	c.slotOff = 0
	return true
}

// Byte returns the byte at the cursor's current position, or false at
// the table's end.
func (c *Cursor) Byte() (byte, bool) {
	chunk, ok := c.chunkBytes()
	if !ok || c.slotOff >= len(chunk) {
		return 0, false
	}
	return chunk[c.slotOff], true
}

// NextByte advances the cursor by n bytes, returning false (and
// advancing as far as possible) if fewer than n bytes remain.
func (c *Cursor) NextByte(n int) bool {
	for n > 0 {
		chunk, ok := c.chunkBytes()
		if !ok {
			return false
		}
		avail := len(chunk) - c.slotOff
		if avail == 0 {
			return false
		}
		step := avail
		if step > n {
			step = n
		}
		c.slotOff += step
		c.pos += step
		n -= step
		c.rollForward()
	}
	return true
}

// PrevByte retreats the cursor by n bytes, returning false (and
// retreating as far as possible) if fewer than n bytes precede it.
func (c *Cursor) PrevByte(n int) bool {
	for n > 0 {
		if c.slotOff == 0 {
			if !c.stepToPrevChunk() {
				return false
			}
		}
		step := c.slotOff
		if step > n {
			step = n
		}
		c.slotOff -= step
		c.pos -= step
		n -= step
	}
	return true
}

// peekForward gathers up to max bytes starting at the cursor's current
// position without crossing a leaf boundary and without moving the
// cursor. Leaf splits and borrows move whole slots regardless of UTF-8
// boundaries, so a codepoint whose bytes continue into the next leaf
// decodes as malformed.
func (c *Cursor) peekForward(max int) []byte {
	if c.leaf == nil || len(c.leaf.slots) == 0 {
		return nil
	}
	out := make([]byte, 0, max)
	idx, off := c.slotIdx, c.slotOff
	for idx < len(c.leaf.slots) && len(out) < max {
		b := c.leaf.slots[idx].bytes()
		if off >= len(b) {
			idx++
			off = 0
			continue
		}
		take := len(b) - off
		if len(out)+take > max {
			take = max - len(out)
		}
		out = append(out, b[off:off+take]...)
		off += take
	}
	return out
}

// peekBackward gathers up to max bytes immediately preceding the
// cursor's current position without crossing a leaf boundary.
func (c *Cursor) peekBackward(max int) []byte {
	if c.leaf == nil || len(c.leaf.slots) == 0 {
		return nil
	}
	var parts [][]byte
	idx, off := c.slotIdx, c.slotOff
	remaining := max
	for remaining > 0 {
		if off == 0 {
			idx--
			if idx < 0 {
				break
			}
			off = len(c.leaf.slots[idx].bytes())
			continue
		}
		b := c.leaf.slots[idx].bytes()
		take := off
		if take > remaining {
			take = remaining
		}
		parts = append(parts, b[off-take:off])
		off -= take
		remaining -= take
	}
	out := make([]byte, 0, max)
	for i := len(parts) - 1; i >= 0; i-- {
		out = append(out, parts[i]...)
	}
	return out
}

// Codepoint decodes the UTF-8 codepoint starting at the cursor's
// current position without moving it. It reports ok == false at the
// table's end or on a malformed lead byte, surfacing as ok == false
// with r == utf8.RuneError.
func (c *Cursor) Codepoint() (r rune, size int, ok bool) {
	buf := c.peekForward(utf8.UTFMax)
	if len(buf) == 0 {
		return 0, 0, false
	}
	r, size = utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return utf8.RuneError, 1, false
	}
	return r, size, true
}

// prevCodepoint decodes the UTF-8 codepoint immediately preceding the
// cursor's current position without moving it.
func (c *Cursor) prevCodepoint() (r rune, size int, ok bool) {
	buf := c.peekBackward(utf8.UTFMax)
	if len(buf) == 0 {
		return 0, 0, false
	}
	r, size = utf8.DecodeLastRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return utf8.RuneError, 1, false
	}
	return r, size, true
}

// NextCodepoint advances the cursor by n codepoints, returning false
// (and advancing as far as possible) if fewer than n remain or a
// malformed sequence is hit first.
func (c *Cursor) NextCodepoint(n int) bool {
	for i := 0; i < n; i++ {
		_, size, ok := c.Codepoint()
		if !ok || !c.NextByte(size) {
			return false
		}
	}
	return true
}

// PrevCodepoint retreats the cursor by n codepoints, returning false
// (and retreating as far as possible) if fewer than n precede it or a
// malformed sequence is hit first.
func (c *Cursor) PrevCodepoint(n int) bool {
	for i := 0; i < n; i++ {
		_, size, ok := c.prevCodepoint()
		if !ok || !c.PrevByte(size) {
			return false
		}
	}
	return true
}

// NextLine advances the cursor past the n-th next '\n', returning false
// (and advancing as far as possible) if fewer than n newlines remain.
func (c *Cursor) NextLine(n int) bool {
	for i := 0; i < n; i++ {
		if !c.nextLineOnce() {
			return false
		}
	}
	return true
}

func (c *Cursor) nextLineOnce() bool {
	for {
		chunk, ok := c.chunkBytes()
		if !ok {
			return false
		}
		if rel := bytes.IndexByte(chunk[c.slotOff:], '\n'); rel >= 0 {
			step := rel + 1
			c.slotOff += step
			c.pos += step
			c.rollForward()
			return true
		}
		remaining := len(chunk) - c.slotOff
		if !c.stepToNextChunk() {
			c.slotOff = len(chunk)
			c.pos += remaining
			return false
		}
		c.pos += remaining
	}
}

// PrevLine retreats the cursor to just past the n-th previous '\n' (the
// start of the line n lines back), returning false (and retreating as
// far as possible, to position 0) if fewer than n newlines precede it.
func (c *Cursor) PrevLine(n int) bool {
	for i := 0; i < n; i++ {
		if !c.prevLineOnce() {
			return false
		}
	}
	return true
}

func (c *Cursor) prevLineOnce() bool {
	// Step back one byte before searching: a cursor sitting exactly at a
	// line start is positioned right after that line's newline, and
	// searching from there unmodified would immediately re-find the same
	// newline instead of the one before it.
	if !c.PrevByte(1) {
		return false
	}
	for {
		chunk, ok := c.chunkBytes()
		if ok {
			if rel := bytes.LastIndexByte(chunk[:c.slotOff], '\n'); rel >= 0 {
				step := c.slotOff - (rel + 1)
				c.slotOff = rel + 1
				c.pos -= step
				c.rollForward()
				return true
			}
		}
		step := c.slotOff
		c.pos -= step
		if !c.stepToPrevChunk() {
			c.slotOff = 0
			return false
		}
	}
}
