// Package piecetable implements a persistent, copy-on-write B+tree slice
// sequence: the editable-text container behind a text editor's buffer.
//
// A Table exposes byte-position insert/delete with O(log N) worst-case
// edit cost. Clones are O(1) and share structure with the original until
// one of the two is edited, at which point copy-on-write materializes
// private copies only along the edited path.
package piecetable

import "errors"

const (
	// HighWater is the boundary, in bytes, between a small slot (an
	// editable-in-place private buffer) and a large slot (an immutable
	// reference into a shared block). It also doubles as a small slot's
	// buffer capacity, so repeated small inserts coalesce into the same
	// allocation instead of growing it.
	HighWater = 4096

	// B is the maximum number of entries an inner node holds.
	B = 15

	// BLeaf is the maximum number of slots a leaf node holds.
	BLeaf = 15

	// MergeWindow is carried in Config as a tuning value for the
	// small/small coalescing window. The leaf's coalescing pass
	// (mergeAdjacent) scans the whole leaf and does not read it.
	MergeWindow = 5

	minInnerFill = (B + 1) / 2
	minLeafFill  = (BLeaf + 1) / 2
)

var (
	// ErrOutOfRange is returned when an edit or seek targets a byte
	// position outside the table's current size.
	ErrOutOfRange = errors.New("piecetable: position out of range")

	// ErrClosed is returned by Insert, Delete, Dump, Close, NewCursor and
	// Cursor.Seek once Close has been called on the table.
	ErrClosed = errors.New("piecetable: table is closed")

	// ErrInvariant is raised by CheckInvariants (test support only) when
	// a structural invariant does not hold.
	ErrInvariant = errors.New("piecetable: invariant violation")
)

// Config holds the tuning knobs for a Table. The package constants above
// are its defaults; the numbers are design points; a caller assembling a
// Table for unusually small or large documents can supply its own.
type Config struct {
	HighWater   int
	B           int
	BLeaf       int
	MergeWindow int
}

// DefaultConfig returns the package's default tuning parameters.
func DefaultConfig() Config {
	return Config{
		HighWater:   HighWater,
		B:           B,
		BLeaf:       BLeaf,
		MergeWindow: MergeWindow,
	}
}

func (c Config) minInnerFill() int { return (c.B + 1) / 2 }
func (c Config) minLeafFill() int  { return (c.BLeaf + 1) / 2 }

// Stats holds optional counters a caller can attach to a Table to observe
// its behavior. Nil by default and never touched unless a caller passes
// one in through NewWithConfig/LoadFromFileConfig/NewFromBytesConfig;
// never a package global.
type Stats struct {
	Splits     int64
	Merges     int64
	Rebalances int64
	CowCopies  int64
}

func (s *Stats) addSplit() {
	if s != nil {
		s.Splits++
	}
}

func (s *Stats) addMerge() {
	if s != nil {
		s.Merges++
	}
}

func (s *Stats) addRebalance() {
	if s != nil {
		s.Rebalances++
	}
}

func (s *Stats) addCowCopy() {
	if s != nil {
		s.CowCopies++
	}
}
