package piecetable

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
)

// TestPropertyRandomEditSequence drives a table and a
// plain []byte reference through the same long sequence of random
// insert/delete operations (each weighted to occasionally cross
// HighWater so both small and large slots get exercised), checking
// structural invariants and content equality after every single edit.
func TestPropertyRandomEditSequence(t *testing.T) {
	const seed = 20260731
	rng := rand.New(rand.NewSource(seed))

	tbl := New()
	defer tbl.Close()
	var ref []byte

	const ops = 2000
	for i := 0; i < ops; i++ {
		if len(ref) == 0 || rng.Intn(3) != 0 {
			pos := rng.Intn(len(ref) + 1)
			data := randomBytes(rng, rng.Intn(2*HighWater))
			if err := tbl.Insert(pos, data); err != nil {
				t.Fatalf("op %d: Insert(%d, len=%d): %v", i, pos, len(data), err)
			}
			ref = append(ref[:pos:pos], append(append([]byte{}, data...), ref[pos:]...)...)
		} else {
			pos := rng.Intn(len(ref))
			length := rng.Intn(len(ref) - pos + 1)
			if err := tbl.Delete(pos, length); err != nil {
				t.Fatalf("op %d: Delete(%d, %d): %v", i, pos, length, err)
			}
			ref = append(ref[:pos:pos], ref[pos+length:]...)
		}

		if err := CheckInvariants(tbl); err != nil {
			t.Fatalf("op %d: invariants broke: %v", i, err)
		}
		if tbl.Size() != len(ref) {
			t.Fatalf("op %d: Size() = %d, want %d", i, tbl.Size(), len(ref))
		}
		if i%97 == 0 {
			var buf bytes.Buffer
			if err := tbl.Dump(&buf); err != nil {
				t.Fatalf("op %d: Dump: %v", i, err)
			}
			if !bytes.Equal(buf.Bytes(), ref) {
				t.Fatalf("op %d: content diverged from reference", i)
			}
		}
	}

	var buf bytes.Buffer
	if err := tbl.Dump(&buf); err != nil {
		t.Fatalf("final Dump: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), ref) {
		t.Fatalf("final content diverged from reference, got len=%d want len=%d", buf.Len(), len(ref))
	}
}

// TestPropertyCloneNeverObservesSiblingEdits forks a table repeatedly and
// drives random edits into each fork independently, confirming that no
// clone ever observes a sibling's mutation and that every clone's own
// edit history matches its private reference buffer.
func TestPropertyCloneNeverObservesSiblingEdits(t *testing.T) {
	const seed = 314159265
	rng := rand.New(rand.NewSource(seed))

	root := New()
	defer root.Close()
	mustInsert(t, root, 0, "the quick brown fox jumps over the lazy dog")

	type fork struct {
		tbl *Table
		ref []byte
	}
	forks := []*fork{{tbl: root, ref: []byte("the quick brown fox jumps over the lazy dog")}}

	const generations = 40
	for g := 0; g < generations; g++ {
		parent := forks[rng.Intn(len(forks))]
		child := &fork{tbl: parent.tbl.Clone(), ref: append([]byte{}, parent.ref...)}
		forks = append(forks, child)

		f := forks[rng.Intn(len(forks))]
		pos := rng.Intn(len(f.ref) + 1)
		data := randomBytes(rng, rng.Intn(64))
		if err := f.tbl.Insert(pos, data); err != nil {
			t.Fatalf("generation %d: Insert: %v", g, err)
		}
		f.ref = append(f.ref[:pos:pos], append(append([]byte{}, data...), f.ref[pos:]...)...)
	}

	for i, f := range forks {
		if err := CheckInvariants(f.tbl); err != nil {
			t.Fatalf("fork %d: invariants broke: %v", i, err)
		}
		got := dumpString(t, f.tbl)
		if got != string(f.ref) {
			t.Fatalf("fork %d: content diverged, got %q want %q", i, got, string(f.ref))
		}
	}
	for i, f := range forks {
		if i == 0 {
			continue
		}
		f.tbl.Close()
	}
}

// TestPropertyCursorMatchesReferenceUnderEdits rebuilds a cursor after
// each edit and confirms it reproduces the reference buffer from every
// seeded position, interleaving edits with cursor walks.
func TestPropertyCursorMatchesReferenceUnderEdits(t *testing.T) {
	const seed = 271828
	rng := rand.New(rand.NewSource(seed))

	tbl := New()
	defer tbl.Close()
	var ref []byte

	const rounds = 150
	for r := 0; r < rounds; r++ {
		pos := rng.Intn(len(ref) + 1)
		data := randomBytes(rng, rng.Intn(300))
		mustInsert(t, tbl, pos, string(data))
		ref = append(ref[:pos:pos], append(append([]byte{}, data...), ref[pos:]...)...)

		if len(ref) == 0 {
			continue
		}
		p := rng.Intn(len(ref) + 1)
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
		if !bytes.Equal(got, ref[p:]) {
			t.Fatalf("round %d: cursor from %d got %d bytes, want %d", r, p, len(got), len(ref)-p)
		}
	}
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + rng.Intn(26))
	}
	return b
}

func TestPropertyInsertDeleteRoundTripIsIdentityAcrossSizes(t *testing.T) {
	sizes := []int{0, 1, 17, HighWater - 1, HighWater, HighWater + 1, 3 * HighWater}
	for _, n := range sizes {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			tbl := New()
			defer tbl.Close()
			base := bytes.Repeat([]byte("r"), n)
			mustInsert(t, tbl, 0, string(base))

			mustInsert(t, tbl, n/2, "INSERTED")
			mustDelete(t, tbl, n/2, len("INSERTED"))

			if got := dumpString(t, tbl); got != string(base) {
				t.Fatalf("round trip at n=%d changed content", n)
			}
		})
	}
}
