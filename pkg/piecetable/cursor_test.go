package piecetable

import "testing"

func newTestCursor(t *testing.T, tbl *Table, pos int) *Cursor {
	t.Helper()
	c, err := NewCursor(tbl, pos)
	if err != nil {
		t.Fatalf("NewCursor(%d): %v", pos, err)
	}
	return c
}

// Property 7 (§8): iterating byte-by-byte from a cursor seeded at p
// reproduces text[p:].
func TestCursorByteIteration(t *testing.T) {
	tbl := New()
	defer tbl.Close()
	text := "the quick brown fox jumps over the lazy dog"
	mustInsert(t, tbl, 0, text)

	for p := 0; p <= len(text); p++ {
		c := newTestCursor(t, tbl, p)
		var got []byte
		for {
			b, ok := c.Byte()
			if !ok {
				break
			}
			got = append(got, b)
			if !c.NextByte(1) {
				break
			}
		}
		if string(got) != text[p:] {
			t.Fatalf("seek(%d): got %q, want %q", p, got, text[p:])
		}
	}
}

func TestCursorByteAtEndReportsFalse(t *testing.T) {
	tbl := New()
	defer tbl.Close()
	mustInsert(t, tbl, 0, "abc")
	c := newTestCursor(t, tbl, 3)
	if _, ok := c.Byte(); ok {
		t.Fatalf("Byte() at end of table should report false")
	}
	if c.NextByte(1) {
		t.Fatalf("NextByte(1) at end of table should report false")
	}
}

func TestCursorPrevByte(t *testing.T) {
	tbl := New()
	defer tbl.Close()
	text := "abcdefghij"
	mustInsert(t, tbl, 0, text)

	c := newTestCursor(t, tbl, len(text))
	var got []byte
	for c.PrevByte(1) {
		b, ok := c.Byte()
		if !ok {
			t.Fatalf("Byte() failed mid-reverse-walk")
		}
		got = append([]byte{b}, got...)
	}
	if string(got) != text {
		t.Fatalf("reverse walk got %q, want %q", got, text)
	}
}

func TestCursorSeekOutOfRange(t *testing.T) {
	tbl := New()
	defer tbl.Close()
	mustInsert(t, tbl, 0, "abc")
	if _, err := NewCursor(tbl, 4); err != ErrOutOfRange {
		t.Fatalf("NewCursor(4) on a 3-byte table: got %v, want ErrOutOfRange", err)
	}
}

// NextChunk/PrevChunk must walk every live slot across leaf boundaries
// and reconstruct the same content Dump does.
func TestCursorChunkWalk(t *testing.T) {
	tbl := New()
	defer tbl.Close()
	total := 0
	for i := 0; i < 30; i++ {
		chunk := make([]byte, HighWater+7)
		for j := range chunk {
			chunk[j] = byte('A' + i%26)
		}
		mustInsert(t, tbl, total, string(chunk))
		total += len(chunk)
	}
	if tbl.Depth() == 0 {
		t.Fatalf("setup didn't grow the tree past a single leaf")
	}

	c := newTestCursor(t, tbl, 0)
	var got []byte
	for {
		chunk, ok := c.Chunk()
		if !ok {
			break
		}
		got = append(got, chunk...)
		if !c.NextChunk() {
			break
		}
	}

	var want []byte
	if err := tbl.Dump(writerFunc(func(p []byte) (int, error) {
		want = append(want, p...)
		return len(p), nil
	})); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("chunk walk diverged from Dump, got len=%d want len=%d", len(got), len(want))
	}

	// Walk backward from the end and confirm we retrace the same chunks.
	c2 := newTestCursor(t, tbl, total)
	var reversed []byte
	for c2.PrevChunk() {
		chunk, ok := c2.Chunk()
		if !ok {
			t.Fatalf("Chunk() failed after a successful PrevChunk")
		}
		reversed = append(chunk, reversed...)
	}
	if string(reversed) != string(want) {
		t.Fatalf("backward chunk walk diverged, got len=%d want len=%d", len(reversed), len(want))
	}
}

func TestCursorCodepointNavigation(t *testing.T) {
	tbl := New()
	defer tbl.Close()
	text := "aé中\U0001F600z" // ascii, 2-byte, 3-byte, 4-byte, ascii
	mustInsert(t, tbl, 0, text)
	runes := []rune(text)

	c := newTestCursor(t, tbl, 0)
	for i, want := range runes {
		r, _, ok := c.Codepoint()
		if !ok {
			t.Fatalf("Codepoint() failed at rune %d", i)
		}
		if r != want {
			t.Fatalf("rune %d: got %q, want %q", i, r, want)
		}
		if i+1 < len(runes) && !c.NextCodepoint(1) {
			t.Fatalf("NextCodepoint(1) failed before the last rune")
		}
	}

	// Walk back to front.
	for i := len(runes) - 1; i >= 0; i-- {
		r, _, ok := c.Codepoint()
		if !ok {
			t.Fatalf("Codepoint() failed walking backward at rune %d", i)
		}
		if r != runes[i] {
			t.Fatalf("backward rune %d: got %q, want %q", i, r, runes[i])
		}
		if i > 0 && !c.PrevCodepoint(1) {
			t.Fatalf("PrevCodepoint(1) failed before the first rune")
		}
	}
}

func TestCursorLineNavigation(t *testing.T) {
	tbl := New()
	defer tbl.Close()
	text := "one\ntwo\nthree\nfour"
	mustInsert(t, tbl, 0, text)

	c := newTestCursor(t, tbl, 0)
	if !c.NextLine(1) {
		t.Fatalf("NextLine(1) failed")
	}
	if c.Pos() != 4 { // just past "one\n"
		t.Fatalf("Pos() = %d, want 4", c.Pos())
	}
	if !c.NextLine(2) {
		t.Fatalf("NextLine(2) failed")
	}
	if c.Pos() != 14 { // just past "two\nthree\n"
		t.Fatalf("Pos() = %d, want 14", c.Pos())
	}

	if !c.PrevLine(1) {
		t.Fatalf("PrevLine(1) failed")
	}
	if c.Pos() != 8 { // start of "three"
		t.Fatalf("Pos() = %d, want 8", c.Pos())
	}

	c2 := newTestCursor(t, tbl, len(text))
	if c2.NextLine(1) {
		t.Fatalf("NextLine(1) at end of table with no trailing newline should fail")
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
