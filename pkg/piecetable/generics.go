package piecetable

// spliceAt returns a new slice with s[idx:idx+remove] replaced by insert.
// It never aliases s's backing array, since both leaf slot lists and
// inner entry lists are shared structure under copy-on-write and must
// not be mutated through an old owner's slice header.
func spliceAt[T any](s []T, idx, remove int, insert []T) []T {
	out := make([]T, 0, len(s)-remove+len(insert))
	out = append(out, s[:idx]...)
	out = append(out, insert...)
	out = append(out, s[idx+remove:]...)
	return out
}
