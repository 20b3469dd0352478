package piecetable

// slotKind distinguishes a small, privately-owned slot from a large slot
// referencing a shared, refcounted block.
type slotKind uint8

const (
	smallSlot slotKind = iota
	largeSlot
)

// slot is one contiguous run of bytes held by a leaf. A small slot owns a
// private buffer sized to Config.HighWater and is always safe to edit in
// place once its owning leaf is known to be uniquely referenced. A large
// slot is an immutable view into a shared block and must never be
// mutated; splitting or shrinking one produces new slots instead.
type slot struct {
	kind   slotKind
	length int

	buf []byte // smallSlot: private backing array, len == cap == HighWater

	blk *block // largeSlot: shared backing block
	off int     // largeSlot: start offset within blk.data
}

// bytes returns the slot's current contents. The returned slice aliases
// the slot's storage and must not be retained past the slot's lifetime
// for a large slot, or past the next mutation for a small slot.
func (s *slot) bytes() []byte {
	if s.kind == smallSlot {
		return s.buf[:s.length]
	}
	return s.blk.data[s.off : s.off+s.length]
}

// newSmallSlot copies data into a freshly allocated private buffer.
// Callers must ensure len(data) <= cfg.HighWater.
func newSmallSlot(cfg Config, data []byte) *slot {
	buf := make([]byte, cfg.HighWater)
	n := copy(buf, data)
	return &slot{kind: smallSlot, buf: buf, length: n}
}

// newLargeSlot references [off, off+length) of blk, taking a reference.
func newLargeSlot(blk *block, off, length int) *slot {
	blk.incref()
	return &slot{kind: largeSlot, blk: blk, off: off, length: length}
}

// adoptLargeSlot references [off, off+length) of blk without taking a new
// reference: it consumes the single reference a freshly constructed block
// (newHeapBlock, mapFileReadOnly) already carries. Used only where the
// block has just been created and has no other owner yet (a table's
// construction, and freshSlots for a large insert); every other large
// slot is created through newLargeSlot against a block something else is
// already holding.
func adoptLargeSlot(blk *block, off, length int) *slot {
	return &slot{kind: largeSlot, blk: blk, off: off, length: length}
}

// release drops the slot's reference to its backing block, if any. A
// small slot's buffer is left for the garbage collector.
func (s *slot) release() {
	if s.kind == largeSlot && s.blk != nil {
		s.blk.decref()
		s.blk = nil
	}
}

// clone returns an independent slot with the same logical bytes. Small
// slots are deep-copied since they are never shared between leaves;
// large slots are shared by taking another reference to the block.
func (s *slot) clone() *slot {
	if s.kind == smallSlot {
		buf := make([]byte, len(s.buf))
		copy(buf, s.buf)
		return &slot{kind: smallSlot, buf: buf, length: s.length}
	}
	return newLargeSlot(s.blk, s.off, s.length)
}

// spliceSmall inserts data at byte offset at within a small slot's private
// buffer, in place, if the result still fits within cfg.HighWater. It
// reports whether the insert was performed; callers fall back to
// allocating a fresh slot when it returns false.
func (s *slot) spliceSmall(cfg Config, at int, data []byte) bool {
	if s.kind != smallSlot {
		return false
	}
	newLen := s.length + len(data)
	if newLen > cfg.HighWater {
		return false
	}
	copy(s.buf[at+len(data):newLen], s.buf[at:s.length])
	copy(s.buf[at:at+len(data)], data)
	s.length = newLen
	return true
}

// makePiece carves out [off, off+length) of src as a new slot. The result
// is a small, privately-owned slot when it fits under cfg.HighWater, and
// otherwise a large slot sharing src's backing block. length must be > 0.
func makePiece(cfg Config, src *slot, off, length int) *slot {
	if length <= cfg.HighWater || src.kind == smallSlot {
		return newSmallSlot(cfg, src.bytes()[off:off+length])
	}
	return newLargeSlot(src.blk, src.off+off, length)
}

// deleteWithinSlot removes [off, off+length) from s, releasing s's own
// reference, and returns the 0, 1, or 2 replacement slots covering what
// remains on either side of the deleted range. A small slot's surviving
// prefix is shrunk in place and reused rather than reallocated; its
// surviving suffix, if any, is copied into a fresh small slot.
func deleteWithinSlot(cfg Config, s *slot, off, length int) []*slot {
	total := s.length
	prefixLen := off
	suffixStart := off + length
	suffixLen := total - suffixStart

	var out []*slot
	switch s.kind {
	case smallSlot:
		var suffix *slot
		if suffixLen > 0 {
			suffix = newSmallSlot(cfg, s.buf[suffixStart:total])
		}
		if prefixLen > 0 {
			s.length = prefixLen
			out = append(out, s)
		}
		if suffix != nil {
			out = append(out, suffix)
		}
	default: // largeSlot
		var prefix, suffix *slot
		if prefixLen > 0 {
			prefix = makePiece(cfg, s, 0, prefixLen)
		}
		if suffixLen > 0 {
			suffix = makePiece(cfg, s, suffixStart, suffixLen)
		}
		s.release()
		if prefix != nil {
			out = append(out, prefix)
		}
		if suffix != nil {
			out = append(out, suffix)
		}
	}
	return out
}
