package piecetable

// shared reports whether more than one owner currently references l,
// the signal that an edit must go through copy-on-write instead of
// mutating l in place.
func (l *leafNode) shared() bool { return l.refs.Load() > 1 }

func (n *innerNode) shared() bool { return n.refs.Load() > 1 }

// cloneLeaf deep-copies l's slots into a fresh leaf with its own
// refcount. Small slots are fully duplicated since they are never
// shared; large slots share their backing block by taking another
// reference to it.
func cloneLeaf(cfg Config, l *leafNode, stats *Stats) *leafNode {
	nl := newLeafNode()
	nl.slots = make([]*slot, len(l.slots))
	for i, s := range l.slots {
		nl.slots[i] = s.clone()
	}
	stats.addCowCopy()
	return nl
}

// cloneInner shallow-copies n's entries into a fresh inner node. Each
// child is shared with the original by incrementing its refcount, not
// copied, so copy-on-write only materializes new nodes along the single
// path an edit actually descends.
func cloneInner(n *innerNode, stats *Stats) *innerNode {
	nn := newInnerNode()
	nn.entries = make([]innerEntry, len(n.entries))
	copy(nn.entries, n.entries)
	for _, e := range nn.entries {
		e.child.incref()
	}
	stats.addCowCopy()
	return nn
}

// ensureEditableLeaf returns a leaf the caller may mutate in place: l
// itself if l is uniquely owned, or a private clone otherwise. When it
// clones, it releases the caller's reference to the shared original; the
// caller is responsible for installing the returned leaf in l's place.
func ensureEditableLeaf(cfg Config, stats *Stats, l *leafNode) *leafNode {
	if !l.shared() {
		return l
	}
	nl := cloneLeaf(cfg, l, stats)
	l.release()
	return nl
}

// ensureEditableInner is ensureEditableLeaf's counterpart for inner
// nodes.
func ensureEditableInner(cfg Config, stats *Stats, n *innerNode) *innerNode {
	if !n.shared() {
		return n
	}
	nn := cloneInner(n, stats)
	n.release()
	return nn
}
