package piecetable

// childUnderflow reports whether n (a child one level above depth, i.e.
// itself at depth) holds fewer entries/slots than its minimum fill.
func childUnderflow(cfg Config, depth int, n node) bool {
	if depth == 0 {
		return n.(*leafNode).isUnderflow(cfg)
	}
	return n.(*innerNode).isUnderflow(cfg)
}

// childHasSpare reports whether n holds more than the minimum fill and
// can donate one entry/slot to a sibling without itself underflowing.
func childHasSpare(cfg Config, depth int, n node) bool {
	if depth == 0 {
		return len(n.(*leafNode).slots) > cfg.minLeafFill()
	}
	return len(n.(*innerNode).entries) > cfg.minInnerFill()
}

// insertDescend recursively places data at byte position pos within the
// subtree rooted at n (n is a leaf when depth == 0, otherwise an inner
// node depth levels above the leaves). It returns the (possibly cloned,
// possibly split) replacement for n, that replacement's span, and, if n
// overflowed and split, the new right sibling and its span.
func (t *Table) insertDescend(n node, depth, pos int, data []byte) (newChild node, newSpan int, sibling node, sibSpan int) {
	if depth == 0 {
		l := ensureEditableLeaf(t.cfg, t.stats, n.(*leafNode))
		l.insert(t.cfg, t.stats, pos, data)
		if !l.isFull(t.cfg) {
			return l, l.span(), nil, 0
		}
		left, right := l.split(t.cfg)
		t.stats.addSplit()
		return left, left.span(), right, right.span()
	}

	in := ensureEditableInner(t.cfg, t.stats, n.(*innerNode))
	idx, childOff := in.locate(pos)

	nc, ncSpan, sib, sibSpan2 := t.insertDescend(in.entries[idx].child, depth-1, childOff, data)
	in.entries[idx].child = nc
	in.entries[idx].span = ncSpan
	if sib != nil {
		in.insertChild(idx+1, sibSpan2, sib)
	}

	if !in.isFull(t.cfg) {
		return in, in.span(), nil, 0
	}
	left, right := in.split()
	t.stats.addSplit()
	return left, left.span(), right, right.span()
}

// deleteDescend recursively removes [pos, pos+length) from the subtree
// rooted at n, resolving any underflow its children suffer as a result
// before returning. It returns the replacement for n and that
// replacement's span, and whether n itself now underflows (left for the
// caller, which holds n's siblings, to resolve). A child that is n's only
// remaining entry has no sibling to borrow from or merge with and is left
// as it is.
func (t *Table) deleteDescend(n node, depth, pos, length int) (newChild node, newSpan int, underflow bool) {
	if depth == 0 {
		l := ensureEditableLeaf(t.cfg, t.stats, n.(*leafNode))
		l.delete(t.cfg, t.stats, pos, length)
		return l, l.span(), l.isUnderflow(t.cfg)
	}

	in := ensureEditableInner(t.cfg, t.stats, n.(*innerNode))
	idx, childOff := in.locate(pos)
	remaining := length
	first := idx
	for remaining > 0 {
		childSpan := in.entries[idx].span
		avail := childSpan - childOff
		take := avail
		if take > remaining {
			take = remaining
		}
		nc, ncSpan, _ := t.deleteDescend(in.entries[idx].child, depth-1, childOff, take)
		in.entries[idx].child = nc
		in.entries[idx].span = ncSpan
		remaining -= take
		idx++
		childOff = 0
	}
	last := idx - 1

	for i := last; i >= first; i-- {
		if i >= len(in.entries) || len(in.entries) < 2 {
			continue
		}
		if childUnderflow(t.cfg, depth-1, in.entries[i].child) {
			i = t.resolveChildUnderflow(in, depth-1, i)
			if depth == 1 {
				// A borrow or merge can bring two small slots from either
				// side of a leaf boundary together; coalesce them.
				in.entries[i].child.(*leafNode).mergeAdjacent(t.cfg, t.stats)
			}
			i++ // re-check the resolved child on the next pass
		}
	}

	return in, in.span(), in.isUnderflow(t.cfg)
}

// resolveChildUnderflow fixes up the child of parent at idx (one level
// at depth) that has fallen below its minimum fill, by borrowing a
// slot/entry from a neighbor with spare capacity or, failing that,
// merging with a neighbor. It returns the index the caller should treat
// as resolved (unchanged for a borrow, the surviving merged index for a
// merge).
func (t *Table) resolveChildUnderflow(parent *innerNode, depth, idx int) int {
	cfg := t.cfg
	n := len(parent.entries)

	if idx > 0 && childHasSpare(cfg, depth, parent.entries[idx-1].child) {
		t.borrowFromLeftSibling(parent, depth, idx)
		return idx
	}
	if idx+1 < n && childHasSpare(cfg, depth, parent.entries[idx+1].child) {
		t.borrowFromRightSibling(parent, depth, idx)
		return idx
	}
	if idx > 0 {
		t.mergeIntoLeftSibling(parent, depth, idx)
		return idx - 1
	}
	t.mergeRightSiblingInto(parent, depth, idx)
	return idx
}

func (t *Table) borrowFromLeftSibling(parent *innerNode, depth, idx int) {
	cfg, stats := t.cfg, t.stats
	if depth == 0 {
		left := ensureEditableLeaf(cfg, stats, parent.entries[idx-1].child.(*leafNode))
		child := ensureEditableLeaf(cfg, stats, parent.entries[idx].child.(*leafNode))
		before := left.span()
		child.borrowFromLeft(left)
		delta := before - left.span()
		parent.entries[idx-1].child = left
		parent.entries[idx].child = child
		parent.entries[idx-1].span -= delta
		parent.entries[idx].span += delta
	} else {
		left := ensureEditableInner(cfg, stats, parent.entries[idx-1].child.(*innerNode))
		child := ensureEditableInner(cfg, stats, parent.entries[idx].child.(*innerNode))
		before := left.span()
		child.borrowFromLeft(left)
		delta := before - left.span()
		parent.entries[idx-1].child = left
		parent.entries[idx].child = child
		parent.entries[idx-1].span -= delta
		parent.entries[idx].span += delta
	}
	stats.addRebalance()
}

func (t *Table) borrowFromRightSibling(parent *innerNode, depth, idx int) {
	cfg, stats := t.cfg, t.stats
	if depth == 0 {
		child := ensureEditableLeaf(cfg, stats, parent.entries[idx].child.(*leafNode))
		right := ensureEditableLeaf(cfg, stats, parent.entries[idx+1].child.(*leafNode))
		before := right.span()
		child.borrowFromRight(right)
		delta := before - right.span()
		parent.entries[idx].child = child
		parent.entries[idx+1].child = right
		parent.entries[idx].span += delta
		parent.entries[idx+1].span -= delta
	} else {
		child := ensureEditableInner(cfg, stats, parent.entries[idx].child.(*innerNode))
		right := ensureEditableInner(cfg, stats, parent.entries[idx+1].child.(*innerNode))
		before := right.span()
		child.borrowFromRight(right)
		delta := before - right.span()
		parent.entries[idx].child = child
		parent.entries[idx+1].child = right
		parent.entries[idx].span += delta
		parent.entries[idx+1].span -= delta
	}
	stats.addRebalance()
}

// mergeIntoLeftSibling merges the child at idx into its left sibling,
// removing idx from parent. Both sides are run through ensureEditable*
// before the merge touches them: the right-hand child being merged away
// still needs a private copy if it is shared with another clone, since
// merge zeroes its slots/entries once it has handed them to the
// survivor.
func (t *Table) mergeIntoLeftSibling(parent *innerNode, depth, idx int) {
	cfg, stats := t.cfg, t.stats
	if depth == 0 {
		left := ensureEditableLeaf(cfg, stats, parent.entries[idx-1].child.(*leafNode))
		child := ensureEditableLeaf(cfg, stats, parent.entries[idx].child.(*leafNode))
		left.merge(child)
		parent.entries[idx-1].child = left
		parent.entries[idx].child = child
	} else {
		left := ensureEditableInner(cfg, stats, parent.entries[idx-1].child.(*innerNode))
		child := ensureEditableInner(cfg, stats, parent.entries[idx].child.(*innerNode))
		left.merge(child)
		parent.entries[idx-1].child = left
		parent.entries[idx].child = child
	}
	parent.entries[idx-1].span += parent.entries[idx].span
	removed := parent.removeChild(idx)
	removed.release()
	stats.addMerge()
}

func (t *Table) mergeRightSiblingInto(parent *innerNode, depth, idx int) {
	cfg, stats := t.cfg, t.stats
	if depth == 0 {
		child := ensureEditableLeaf(cfg, stats, parent.entries[idx].child.(*leafNode))
		right := ensureEditableLeaf(cfg, stats, parent.entries[idx+1].child.(*leafNode))
		child.merge(right)
		parent.entries[idx].child = child
		parent.entries[idx+1].child = right
	} else {
		child := ensureEditableInner(cfg, stats, parent.entries[idx].child.(*innerNode))
		right := ensureEditableInner(cfg, stats, parent.entries[idx+1].child.(*innerNode))
		child.merge(right)
		parent.entries[idx].child = child
		parent.entries[idx+1].child = right
	}
	parent.entries[idx].span += parent.entries[idx+1].span
	removed := parent.removeChild(idx + 1)
	removed.release()
	stats.addMerge()
}

// collapseRoot pulls a single remaining child up to replace the root,
// repeatedly, for however many levels the root has shrunk to holding
// just one entry. A root leaf, or a root inner node with more than one
// entry, is left alone.
func (t *Table) collapseRoot() {
	for t.depth > 0 {
		in, ok := t.root.(*innerNode)
		if !ok || len(in.entries) != 1 {
			break
		}
		t.root = in.entries[0].child
		t.depth--
		in.entries = nil
	}
}
