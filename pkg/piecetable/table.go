package piecetable

import "io"

// Table is a persistent, copy-on-write slice sequence: the editable byte
// container behind a text editor's buffer. It exposes byte-position
// insert/delete with O(log N) worst-case edit cost; Clone is O(1) and
// shares the underlying tree with the original until one of the two
// clones is next edited, at which point copy-on-write materializes
// private nodes only along the edited path.
//
// A Table is not safe for concurrent mutation. Distinct clones may be
// read concurrently from different goroutines; at most one goroutine
// may call a mutating method (Insert, Delete, Close) on a given handle
// at a time.
type Table struct {
	cfg    Config
	stats  *Stats
	root   node
	depth  int
	closed bool
}

// New returns an empty table using the package's default tuning
// constants and no statistics sink.
func New() *Table {
	return NewWithConfig(DefaultConfig(), nil)
}

// NewWithConfig returns an empty table tuned by cfg. stats may be nil; if
// non-nil, it is updated in place as the table is edited and is shared
// by every clone descended from this table.
func NewWithConfig(cfg Config, stats *Stats) *Table {
	return &Table{cfg: cfg, stats: stats, root: newLeafNode(), depth: 0}
}

// NewFromBytes returns a table whose initial content is data, using the
// default tuning constants. data is copied, never retained by reference:
// at or under cfg.HighWater into a private small slot, and for longer
// data into one fresh heap block held as a single large slot, the same
// shape LoadFromFile produces for a memory-mapped file.
func NewFromBytes(data []byte) *Table {
	return NewFromBytesConfig(DefaultConfig(), nil, data)
}

// NewFromBytesConfig is NewFromBytes with an explicit Config and Stats
// sink, mirroring NewWithConfig.
func NewFromBytesConfig(cfg Config, stats *Stats, data []byte) *Table {
	t := NewWithConfig(cfg, stats)
	if len(data) == 0 {
		return t
	}
	leaf := t.root.(*leafNode)
	leaf.slots = freshSlots(cfg, data)
	return t
}

// LoadFromFile returns a table whose initial content is the bytes of the
// file at path. A file at or under the default HighWater is read into a
// private small buffer and its mapping released immediately; a larger
// file is kept memory-mapped read-only as a single large slot, released
// when the table (and every clone descended from it) has been closed.
func LoadFromFile(path string) (*Table, error) {
	return LoadFromFileConfig(DefaultConfig(), nil, path)
}

// LoadFromFileConfig is LoadFromFile with an explicit Config and Stats
// sink.
func LoadFromFileConfig(cfg Config, stats *Stats, path string) (*Table, error) {
	blk, err := mapFileReadOnly(path)
	if err != nil {
		return nil, err
	}
	t := NewWithConfig(cfg, stats)
	if len(blk.data) == 0 {
		blk.decref()
		return t, nil
	}

	leaf := t.root.(*leafNode)
	if len(blk.data) <= cfg.HighWater {
		leaf.slots = []*slot{newSmallSlot(cfg, blk.data)}
		blk.decref()
		return t, nil
	}
	leaf.slots = []*slot{adoptLargeSlot(blk, 0, len(blk.data))}
	return t, nil
}

// Clone returns a handle sharing the receiver's tree in O(1) time.
// Neither handle is affected by subsequent edits to the other;
// copy-on-write materializes private nodes the first time either one is
// next edited.
func (t *Table) Clone() *Table {
	t.root.incref()
	return &Table{cfg: t.cfg, stats: t.stats, root: t.root, depth: t.depth}
}

// Close releases the table's reference to its tree, freeing any node
// (and, transitively, any block — unmapping a memory-mapped file) whose
// refcount reaches zero as a result. Using t after Close, or using a
// Cursor seeded from t before the Close, is undefined.
func (t *Table) Close() error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	t.root.release()
	t.root = nil
	return nil
}

func (t *Table) checkOpen() error {
	if t.closed {
		return ErrClosed
	}
	return nil
}

// Size returns the table's current length in bytes.
func (t *Table) Size() int {
	if t.closed {
		return 0
	}
	return t.root.span()
}

// Insert places data at byte position pos, growing the table by
// len(data). It fails with ErrOutOfRange iff pos > Size(); a zero-length
// data is a no-op that always succeeds.
func (t *Table) Insert(pos int, data []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if pos < 0 || pos > t.Size() {
		return ErrOutOfRange
	}

	newChild, _, sibling, sibSpan := t.insertDescend(t.root, t.depth, pos, data)
	if sibling != nil {
		root := newInnerNode()
		root.entries = []innerEntry{
			{span: newChild.span(), child: newChild},
			{span: sibSpan, child: sibling},
		}
		t.root = root
		t.depth++
	} else {
		t.root = newChild
	}
	t.collapseRoot()
	return nil
}

// Delete removes the length bytes starting at byte position pos. It
// fails with ErrOutOfRange iff pos+length > Size(); a zero length is a
// no-op that always succeeds.
func (t *Table) Delete(pos, length int) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	if pos < 0 || length < 0 || pos+length > t.Size() {
		return ErrOutOfRange
	}

	newChild, _, _ := t.deleteDescend(t.root, t.depth, pos, length)
	t.root = newChild
	t.collapseRoot()
	return nil
}

// Dump writes the table's full content to w, in left-to-right order.
func (t *Table) Dump(w io.Writer) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	return dumpNode(w, t.root)
}

func dumpNode(w io.Writer, n node) error {
	switch v := n.(type) {
	case *leafNode:
		for _, s := range v.slots {
			if _, err := w.Write(s.bytes()); err != nil {
				return err
			}
		}
	case *innerNode:
		for _, e := range v.entries {
			if err := dumpNode(w, e.child); err != nil {
				return err
			}
		}
	}
	return nil
}

// Depth returns the number of inner-node levels above the leaves (0 when
// the root is itself a leaf).
func (t *Table) Depth() int { return t.depth }

// NodeCount returns the total number of live nodes (inner and leaf) in
// the table's tree. It is a diagnostic, not a hot-path operation: it
// walks the whole tree.
func (t *Table) NodeCount() int {
	if t.closed {
		return 0
	}
	return countNodes(t.root)
}

func countNodes(n node) int {
	switch v := n.(type) {
	case *leafNode:
		return 1
	case *innerNode:
		total := 1
		for _, e := range v.entries {
			total += countNodes(e.child)
		}
		return total
	default:
		return 0
	}
}

// Stats returns a snapshot of the table's statistics sink, or the zero
// value if no sink was attached at construction.
func (t *Table) Stats() Stats {
	if t.stats == nil {
		return Stats{}
	}
	return *t.stats
}
