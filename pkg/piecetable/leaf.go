package piecetable

import "sync/atomic"

// leafNode holds a fixed-capacity run of slots: the bottom level of the
// tree, directly covering a contiguous byte range of the sequence. Leaves
// carry no sibling pointers; a Cursor navigates between them through its
// ancestor stack rather than a linked list, so a leaf produced by
// copy-on-write never needs to repair a neighbor's link.
type leafNode struct {
	refs  atomic.Int32
	slots []*slot
}

func newLeafNode() *leafNode {
	l := &leafNode{}
	l.refs.Store(1)
	return l
}

func (l *leafNode) incref() { l.refs.Add(1) }

// release drops a reference to l, releasing its slots' own references
// (unmapping any large-slot blocks whose last reference this was) once
// l's refcount reaches zero.
func (l *leafNode) release() {
	if l.refs.Add(-1) == 0 {
		for _, s := range l.slots {
			s.release()
		}
	}
}

// span is the total number of bytes the leaf's slots cover.
func (l *leafNode) span() int {
	n := 0
	for _, s := range l.slots {
		n += s.length
	}
	return n
}

func (l *leafNode) isFull(cfg Config) bool      { return len(l.slots) > cfg.BLeaf }
func (l *leafNode) isUnderflow(cfg Config) bool { return len(l.slots) < cfg.minLeafFill() }

// locate finds the slot covering byte position pos within the leaf and
// the offset of pos within that slot. A position that falls exactly on
// the boundary between two slots resolves to the end of the earlier
// slot (idx, slots[idx].length), never the start of the next — this is
// the convention insert and delete rely on throughout.
func (l *leafNode) locate(pos int) (idx, off int) {
	for i, s := range l.slots {
		if pos <= s.length {
			return i, pos
		}
		pos -= s.length
	}
	last := len(l.slots) - 1
	return last, l.slots[last].length
}

// locateForward finds the slot covering byte position pos the way a
// Cursor wants it: a position exactly on the boundary between two slots
// resolves to the start of the later slot, not the end of the earlier
// one, except at the very end of the leaf's span, the one case where
// there is no later slot to resolve to (the cursor's sole allowed
// off-end state).
func (l *leafNode) locateForward(pos int) (idx, off int) {
	for i, s := range l.slots {
		if pos < s.length {
			return i, pos
		}
		pos -= s.length
	}
	last := len(l.slots) - 1
	if last < 0 {
		return 0, 0
	}
	return last, l.slots[last].length
}

// freshSlots materializes newly inserted bytes as the leaf insert base
// case's fallthrough action: a private small buffer when data fits
// under cfg.HighWater, or a single large slot
// backed by one freshly allocated heap block otherwise. Unlike a small
// slot, a large slot carries no capacity cap, so the whole of data
// becomes one slot either way — never chunked into multiple pieces.
func freshSlots(cfg Config, data []byte) []*slot {
	if len(data) <= cfg.HighWater {
		return []*slot{newSmallSlot(cfg, data)}
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	blk := newHeapBlock(owned)
	return []*slot{adoptLargeSlot(blk, 0, len(owned))}
}

// insert places data at byte position pos within the leaf. It first
// tries the base case of splicing into an existing small slot's spare
// capacity in place (the common case for typewriter-style editing);
// failing that, it materializes fresh slots and splices them into the
// leaf's slot array, splitting the slot straddling pos if necessary.
func (l *leafNode) insert(cfg Config, stats *Stats, pos int, data []byte) {
	if len(l.slots) == 0 {
		l.slots = freshSlots(cfg, data)
		return
	}

	idx, off := l.locate(pos)
	s := l.slots[idx]

	if s.kind == smallSlot && s.spliceSmall(cfg, off, data) {
		return
	}
	if off == s.length && idx+1 < len(l.slots) {
		if next := l.slots[idx+1]; next.kind == smallSlot && next.spliceSmall(cfg, 0, data) {
			return
		}
	}

	fresh := freshSlots(cfg, data)
	switch {
	case off == 0:
		l.slots = spliceAt(l.slots, idx, 0, fresh)
	case off == s.length:
		l.slots = spliceAt(l.slots, idx+1, 0, fresh)
	default:
		prefix := makePiece(cfg, s, 0, off)
		suffix := makePiece(cfg, s, off, s.length-off)
		s.release()
		replacement := make([]*slot, 0, len(fresh)+2)
		replacement = append(replacement, prefix)
		replacement = append(replacement, fresh...)
		replacement = append(replacement, suffix)
		l.slots = spliceAt(l.slots, idx, 1, replacement)
	}

	// Splicing fresh slots in can leave a newly-adjacent pair of small
	// slots under the HighWater coalescing threshold — a split interior
	// slot's small prefix next to a pre-existing small sibling, for
	// instance. Coalesce the same way delete does.
	l.mergeAdjacent(cfg, stats)
}

// delete removes the length bytes starting at pos, both measured within
// this leaf's own span, and then coalesces any adjacent small slots the
// deletion left behind.
func (l *leafNode) delete(cfg Config, stats *Stats, pos, length int) {
	idx, off := l.locate(pos)
	remaining := length

	newSlots := append([]*slot{}, l.slots[:idx]...)
	for remaining > 0 {
		s := l.slots[idx]
		avail := s.length - off
		if avail == 0 {
			newSlots = append(newSlots, s)
			idx++
			off = 0
			continue
		}
		take := avail
		if take > remaining {
			take = remaining
		}
		newSlots = append(newSlots, deleteWithinSlot(cfg, s, off, take)...)
		remaining -= take
		idx++
		off = 0
	}
	newSlots = append(newSlots, l.slots[idx:]...)
	l.slots = newSlots

	l.mergeAdjacent(cfg, stats)
}

// mergeAdjacent coalesces adjacent small/small slot pairs whose combined
// length still fits under cfg.HighWater, repeating to a fixed point. A
// leaf never holds more than cfg.BLeaf slots, so scanning the whole leaf
// is simpler than (and just as cheap as) bounding the scan to a window
// of cfg.MergeWindow neighbors around the edit.
func (l *leafNode) mergeAdjacent(cfg Config, stats *Stats) {
	for {
		merged := false
		for i := 0; i+1 < len(l.slots); i++ {
			a, b := l.slots[i], l.slots[i+1]
			if a.kind != smallSlot || b.kind != smallSlot {
				continue
			}
			if a.length+b.length > cfg.HighWater {
				continue
			}
			a.spliceSmall(cfg, a.length, b.bytes())
			l.slots = append(l.slots[:i+1], l.slots[i+2:]...)
			stats.addMerge()
			merged = true
			break
		}
		if !merged {
			return
		}
	}
}

// split divides an overfull leaf into two, returning the new left and
// right leaves (the receiver is not reused, to keep split side-effect
// free on l so callers can decide whether to replace l or keep it when
// COW is involved).
func (l *leafNode) split(cfg Config) (left, right *leafNode) {
	mid := len(l.slots) / 2
	left = newLeafNode()
	right = newLeafNode()
	left.slots = append([]*slot{}, l.slots[:mid]...)
	right.slots = append([]*slot{}, l.slots[mid:]...)
	return left, right
}

// merge appends right's slots onto l in place; right is left empty and
// still owned by the caller to release.
func (l *leafNode) merge(right *leafNode) {
	l.slots = append(l.slots, right.slots...)
	right.slots = nil
}

// borrowFromLeft moves left's last slot onto the front of l.
func (l *leafNode) borrowFromLeft(left *leafNode) {
	last := left.slots[len(left.slots)-1]
	left.slots = left.slots[:len(left.slots)-1]
	l.slots = spliceAt(l.slots, 0, 0, []*slot{last})
}

// borrowFromRight moves right's first slot onto the back of l.
func (l *leafNode) borrowFromRight(right *leafNode) {
	first := right.slots[0]
	right.slots = right.slots[1:]
	l.slots = append(l.slots, first)
}
