package piecetable

import "fmt"

// CheckInvariants walks t's tree and verifies its structural invariants:
// balanced depth, fill bounds, the subtree-span bookkeeping, the
// no-adjacent-small-slot rule, and the no-zero-span-slot rule. It is a
// test-support helper, not part of the hot edit path, and is exported so
// property-based tests outside this package can call it after arbitrary
// edit sequences.
func CheckInvariants(t *Table) error {
	if t.closed {
		return fmt.Errorf("%w: checking a closed table", ErrInvariant)
	}
	_, err := checkSubtree(t.cfg, t.root, t.depth, true)
	return err
}

func checkSubtree(cfg Config, n node, depth int, isRoot bool) (span int, err error) {
	if depth == 0 {
		l, ok := n.(*leafNode)
		if !ok {
			return 0, fmt.Errorf("%w: expected leaf at depth 0", ErrInvariant)
		}
		return checkLeaf(cfg, l, isRoot)
	}

	in, ok := n.(*innerNode)
	if !ok {
		return 0, fmt.Errorf("%w: expected inner node above depth 0", ErrInvariant)
	}
	fill := len(in.entries)
	min := cfg.minInnerFill()
	if isRoot {
		min = 2
	}
	if fill < min || fill > cfg.B {
		return 0, fmt.Errorf("%w: inner node fill %d out of [%d,%d]", ErrInvariant, fill, min, cfg.B)
	}

	total := 0
	for i, e := range in.entries {
		childSpan, err := checkSubtree(cfg, e.child, depth-1, false)
		if err != nil {
			return 0, err
		}
		if childSpan != e.span {
			return 0, fmt.Errorf("%w: inner entry %d span %d, child sums to %d", ErrInvariant, i, e.span, childSpan)
		}
		total += childSpan
	}
	return total, nil
}

func checkLeaf(cfg Config, l *leafNode, isRoot bool) (int, error) {
	fill := len(l.slots)
	if !isRoot {
		min := cfg.minLeafFill()
		if fill < min || fill > cfg.BLeaf {
			return 0, fmt.Errorf("%w: leaf fill %d out of [%d,%d]", ErrInvariant, fill, min, cfg.BLeaf)
		}
	} else if fill > cfg.BLeaf {
		return 0, fmt.Errorf("%w: root leaf fill %d exceeds %d", ErrInvariant, fill, cfg.BLeaf)
	}

	total := 0
	for i, s := range l.slots {
		if s.length <= 0 {
			return 0, fmt.Errorf("%w: leaf slot %d has non-positive span %d", ErrInvariant, i, s.length)
		}
		if i+1 < len(l.slots) {
			next := l.slots[i+1]
			if s.kind == smallSlot && next.kind == smallSlot && s.length+next.length <= cfg.HighWater {
				return 0, fmt.Errorf("%w: adjacent small slots %d,%d were not merged", ErrInvariant, i, i+1)
			}
		}
		total += s.length
	}
	return total, nil
}
